package banking

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coba-dev/coba/internal/accounts"
	"github.com/coba-dev/coba/internal/model"
	"github.com/coba-dev/coba/internal/page"
)

const siteDateFormat = "01/02/2006"

// TransferRequest moves money between two of the user's accounts.
type TransferRequest struct {
	Amount    decimal.Decimal
	From      []string
	To        []string
	Memo      string
	DeliverBy time.Time // zero: the site's default
}

// TransferSummary is what the user is asked to approve.
func TransferSummary(amount decimal.Decimal, from, to model.Account, memo string, deliverBy time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Transfer %s from %s to %s", model.FormatMoney(amount), from, to)
	if !deliverBy.IsZero() {
		fmt.Fprintf(&b, " by %s", deliverBy.Format("2006-01-02"))
	}
	if memo != "" {
		fmt.Fprintf(&b, " (memo: %s)", memo)
	}
	return b.String()
}

// Transfer resolves both accounts, asks for confirmation and submits the
// transfer. The returned confirmation carries the site's number.
func (e *Engine) Transfer(ctx context.Context, req TransferRequest) (model.Confirmation, error) {
	if err := validateAmount(req.Amount, req.Amount.String()); err != nil {
		return model.Confirmation{}, err
	}
	if accounts.SameQualifiers(req.From, req.To) {
		return model.Confirmation{}, &SameAccountError{Account: strings.Join(req.From, " ")}
	}

	set, err := e.loadAccounts(ctx)
	if err != nil {
		return model.Confirmation{}, err
	}
	from, err := set.ResolveOne(req.From)
	if err != nil {
		return model.Confirmation{}, fmt.Errorf("resolving transfer source: %w", err)
	}
	to, err := set.ResolveOne(req.To)
	if err != nil {
		return model.Confirmation{}, fmt.Errorf("resolving transfer destination: %w", err)
	}
	if from.SameAs(to) {
		return model.Confirmation{}, &SameAccountError{Account: from.String()}
	}
	if from.TransferURL == "" {
		return model.Confirmation{}, &CategoryError{Account: from, Role: "transfer source", Want: model.CategoryDebit}
	}

	summary := TransferSummary(req.Amount, from, to, req.Memo, req.DeliverBy)
	if err := e.confirm(ctx, summary); err != nil {
		return model.Confirmation{}, err
	}

	// Destinations offered for this source.
	p, err := e.fetch(ctx, from.TransferURL)
	if err != nil {
		return model.Confirmation{}, fmt.Errorf("loading transfer destinations: %w", err)
	}
	link, ok := page.FindLinkFunc(p.Body, func(_, href string) bool {
		return destinationID(href) == to.ID
	})
	if !ok {
		return model.Confirmation{}, fmt.Errorf("%s is not offered as a transfer destination from %s", to, from)
	}
	if p, err = e.fetch(ctx, link); err != nil {
		return model.Confirmation{}, fmt.Errorf("loading transfer form: %w", err)
	}

	form, err := page.FindFormWith(p.Body, "Amount")
	if err != nil {
		return model.Confirmation{}, err
	}
	form = form.Set("Amount", req.Amount.StringFixed(2)).Set("Memo", req.Memo)
	if !req.DeliverBy.IsZero() {
		form = form.Set("DeliverByDate", req.DeliverBy.Format(siteDateFormat))
	}

	sub := Submission{
		Operation: "transfer",
		From:      from.Ref(),
		To:        to.Ref(),
		Amount:    req.Amount,
		Memo:      req.Memo,
	}

	review, err := e.session.Submit(ctx, click(form, "Next"))
	if err != nil {
		return model.Confirmation{}, fmt.Errorf("submitting transfer details: %w", err)
	}
	if err := rejection("transfer", review.Body); err != nil {
		sub.Reason = err.(*RejectedError).Reason
		e.record(sub)
		return model.Confirmation{}, err
	}
	verify, err := page.FindFormWith(review.Body, "Submit")
	if err != nil {
		return model.Confirmation{}, fmt.Errorf("reading transfer review: %w", err)
	}
	return e.finish(ctx, "transfer", click(verify, "Submit"), sub)
}

// destinationID returns the toId query parameter of a destination link.
func destinationID(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return u.Query().Get("toId")
}
