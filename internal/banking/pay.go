package banking

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/coba-dev/coba/internal/accounts"
	"github.com/coba-dev/coba/internal/model"
	"github.com/coba-dev/coba/internal/page"
)

// PaymentRequest pays a credit card (On) from a debit account (With).
type PaymentRequest struct {
	Amount PaymentAmount
	On     []string
	With   []string
}

// PaymentSummary is what the user is asked to approve.
func PaymentSummary(amount decimal.Decimal, kind PaymentAmount, card, source model.Account) string {
	s := fmt.Sprintf("Pay %s", model.FormatMoney(amount))
	if label := kind.label(); label != "" {
		s += " (" + label + ")"
	}
	return fmt.Sprintf("%s to %s from %s", s, card, source)
}

// Pay resolves the card and the paying account, reads the card's detail
// page to settle a symbolic amount, asks for confirmation and submits the
// payment.
func (e *Engine) Pay(ctx context.Context, req PaymentRequest) (model.Confirmation, error) {
	if req.Amount.Kind == PayLiteral {
		if err := validateAmount(req.Amount.Value, req.Amount.Value.String()); err != nil {
			return model.Confirmation{}, err
		}
	}
	if accounts.SameQualifiers(req.On, req.With) {
		return model.Confirmation{}, &SameAccountError{Account: strings.Join(req.On, " ")}
	}

	set, err := e.loadAccounts(ctx)
	if err != nil {
		return model.Confirmation{}, err
	}
	card, err := set.ResolveOne(req.On)
	if err != nil {
		return model.Confirmation{}, fmt.Errorf("resolving card to pay: %w", err)
	}
	source, err := set.ResolveOne(req.With)
	if err != nil {
		return model.Confirmation{}, fmt.Errorf("resolving paying account: %w", err)
	}
	if card.SameAs(source) {
		return model.Confirmation{}, &SameAccountError{Account: card.String()}
	}
	if card.Category != model.CategoryCredit || card.PaymentURL == "" {
		return model.Confirmation{}, &CategoryError{Account: card, Role: "card to pay", Want: model.CategoryCredit}
	}
	if source.Category != model.CategoryDebit {
		return model.Confirmation{}, &CategoryError{Account: source, Role: "paying account", Want: model.CategoryDebit}
	}

	// Symbolic amounts come from the detail page, read after resolution.
	card, err = e.details(ctx, card)
	if err != nil {
		return model.Confirmation{}, err
	}
	amount := req.Amount.Value
	if keys := req.Amount.propertyKeys(); len(keys) > 0 {
		v, ok := symbolicAmount(card, keys)
		if !ok {
			return model.Confirmation{}, &InvalidAmountError{Reason: fmt.Sprintf("%s shows no %s", card, req.Amount.label())}
		}
		if !v.IsPositive() {
			return model.Confirmation{}, &InvalidAmountError{
				Amount: model.FormatMoney(v),
				Reason: fmt.Sprintf("%s of %s leaves nothing to pay", req.Amount.label(), card),
			}
		}
		if err := validateAmount(v, model.FormatMoney(v)); err != nil {
			return model.Confirmation{}, err
		}
		amount = v
	}

	if err := e.confirm(ctx, PaymentSummary(amount, req.Amount, card, source)); err != nil {
		return model.Confirmation{}, err
	}

	p, err := e.fetch(ctx, card.PaymentURL)
	if err != nil {
		return model.Confirmation{}, fmt.Errorf("loading payment sources: %w", err)
	}
	link, ok := page.FindLinkFunc(p.Body, func(text, _ string) bool {
		return strings.Contains(text, source.Name) && (source.Mask == "" || strings.Contains(text, source.Mask))
	})
	if !ok {
		return model.Confirmation{}, fmt.Errorf("%s is not offered to pay %s", source, card)
	}
	if p, err = e.fetch(ctx, link); err != nil {
		return model.Confirmation{}, fmt.Errorf("loading payment form: %w", err)
	}

	options, err := page.ParsePaymentOptions(p.Body)
	if err != nil {
		return model.Confirmation{}, err
	}
	// Unchecked radios are not fields, so look the form up by its amount box.
	form, err := page.FindFormWith(p.Body, "Amount")
	if err != nil {
		return model.Confirmation{}, err
	}
	if value, ok := options[req.Amount.option()]; ok && req.Amount.Kind != PayLiteral {
		form = form.Set(page.PaymentOptionField, value)
	} else if value, ok := options[page.OptionOther]; ok {
		form = form.Set(page.PaymentOptionField, value).Set("Amount", amount.StringFixed(2))
	} else {
		return model.Confirmation{}, fmt.Errorf("payment form for %s has no other-amount option", card)
	}

	sub := Submission{
		Operation: "payment",
		From:      source.Ref(),
		To:        card.Ref(),
		Amount:    amount,
	}

	review, err := e.session.Submit(ctx, click(form, "Submit"))
	if err != nil {
		return model.Confirmation{}, fmt.Errorf("submitting payment details: %w", err)
	}
	if err := rejection("payment", review.Body); err != nil {
		sub.Reason = err.(*RejectedError).Reason
		e.record(sub)
		return model.Confirmation{}, err
	}
	total, err := page.ParseTotalPayment(review.Body)
	if err != nil {
		return model.Confirmation{}, err
	}
	if !total.Equal(amount) {
		return model.Confirmation{}, &AmountChangedError{Confirmed: amount, Shown: total}
	}
	verify, err := page.FindFormWith(review.Body, "Submit")
	if err != nil {
		return model.Confirmation{}, fmt.Errorf("reading payment review: %w", err)
	}
	return e.finish(ctx, "payment", click(verify, "Submit"), sub)
}

// symbolicAmount reads the first of keys that the card's details show.
func symbolicAmount(card model.Account, keys []string) (decimal.Decimal, bool) {
	for _, key := range keys {
		if v, ok := card.Money(key); ok {
			return v, true
		}
	}
	return decimal.Zero, false
}
