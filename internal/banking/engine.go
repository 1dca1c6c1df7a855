// Package banking implements the operations a user can run against the
// bank: listing accounts and activity, transfers and card payments. Every
// operation reloads the accounts page so it never acts on stale balances.
package banking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/coba-dev/coba/internal/accounts"
	"github.com/coba-dev/coba/internal/browser"
	"github.com/coba-dev/coba/internal/model"
	"github.com/coba-dev/coba/internal/page"
	"github.com/coba-dev/coba/internal/session"
)

const (
	DefaultAccountsURL = "/Secure/Accounts/"
	DefaultMaxPages    = 100
)

// Session is the part of *session.Session the engine needs.
type Session interface {
	EnsureAuthenticated(ctx context.Context) error
	Fetch(ctx context.Context, rawURL string) (*browser.Page, error)
	Submit(ctx context.Context, form browser.Form) (*browser.Page, error)
}

// Confirmer approves state-changing operations. summary names both
// accounts and the amount.
type Confirmer interface {
	Confirm(ctx context.Context, summary string) (bool, error)
}

// Submission describes a transfer or payment that reached the site.
type Submission struct {
	At        time.Time
	Operation string
	From      model.AccountRef
	To        model.AccountRef
	Amount    decimal.Decimal
	Memo      string
	Accepted  bool
	Number    string
	Reason    string
}

// Recorder keeps a log of submissions.
type Recorder interface {
	Record(s Submission) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder sets where submissions are logged.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithMaxPages caps how many activity pages are read per account.
func WithMaxPages(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPages = n
		}
	}
}

// WithAccountsURL overrides the accounts page location.
func WithAccountsURL(u string) Option {
	return func(e *Engine) { e.accountsURL = u }
}

// WithClock sets the time source used for pending transactions and the
// audit log.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// Engine runs banking operations over a Session.
type Engine struct {
	session     Session
	confirmer   Confirmer
	recorder    Recorder
	accountsURL string
	maxPages    int
	now         func() time.Time
	log         zerolog.Logger
}

// New creates an Engine.
func New(s Session, c Confirmer, opts ...Option) *Engine {
	e := &Engine{
		session:     s,
		confirmer:   c,
		accountsURL: DefaultAccountsURL,
		maxPages:    DefaultMaxPages,
		now:         time.Now,
		log:         zerolog.Nop(),
	}
	for _, o := range opts {
		o(e)
	}
	e.log = e.log.With().Str("component", "banking").Logger()
	return e
}

// fetch loads a page, logging in again once if the session expired.
func (e *Engine) fetch(ctx context.Context, rawURL string) (*browser.Page, error) {
	p, err := e.session.Fetch(ctx, rawURL)
	if errors.Is(err, session.ErrSessionExpired) {
		e.log.Warn().Str("url", rawURL).Msg("session expired, logging in again")
		p, err = e.session.Fetch(ctx, rawURL)
	}
	return p, err
}

func (e *Engine) loadAccounts(ctx context.Context) (*accounts.Set, error) {
	if err := e.session.EnsureAuthenticated(ctx); err != nil {
		return nil, err
	}
	p, err := e.fetch(ctx, e.accountsURL)
	if err != nil {
		return nil, fmt.Errorf("loading accounts: %w", err)
	}
	accts, err := page.ParseAccounts(p.Body)
	if err != nil {
		return nil, err
	}
	return accounts.NewSet(accts), nil
}

// ListAccounts returns the accounts matching qualifiers. With
// adjustForPending, each credit account's available balance is reduced by
// its pending transactions, at the cost of one more fetch per card.
func (e *Engine) ListAccounts(ctx context.Context, qualifiers []string, adjustForPending bool) ([]model.Account, error) {
	set, err := e.loadAccounts(ctx)
	if err != nil {
		return nil, err
	}
	found := set.Resolve(qualifiers)
	if !adjustForPending {
		return found, nil
	}

	for i, a := range found {
		if a.Category != model.CategoryCredit || a.ActivityURL == "" {
			continue
		}
		p, err := e.fetch(ctx, a.ActivityURL)
		if err != nil {
			return nil, fmt.Errorf("loading activity for %s: %w", a, err)
		}
		txns, err := page.ParseTransactions(p.Body)
		if err != nil {
			return nil, err
		}
		pending := decimal.Zero
		for _, t := range txns {
			if t.Pending() {
				pending = pending.Add(t.Amount)
			}
		}
		found[i] = a.WithPending(pending)
	}
	return found, nil
}

// AccountDetails returns the matching accounts with their detail pages
// merged in.
func (e *Engine) AccountDetails(ctx context.Context, qualifiers []string) ([]model.Account, error) {
	set, err := e.loadAccounts(ctx)
	if err != nil {
		return nil, err
	}
	found := set.Resolve(qualifiers)
	for i, a := range found {
		if found[i], err = e.details(ctx, a); err != nil {
			return nil, err
		}
	}
	return found, nil
}

func (e *Engine) details(ctx context.Context, a model.Account) (model.Account, error) {
	if a.DetailURL == "" {
		return a, nil
	}
	p, err := e.fetch(ctx, a.DetailURL)
	if err != nil {
		return model.Account{}, fmt.Errorf("loading details for %s: %w", a, err)
	}
	return page.ParseAccountDetail(p.Body, a)
}

// ListTransactions returns one Statement per matching account, in account
// order, each holding the transactions that pass f in site order.
func (e *Engine) ListTransactions(ctx context.Context, qualifiers []string, f Filter) ([]Statement, error) {
	set, err := e.loadAccounts(ctx)
	if err != nil {
		return nil, err
	}
	now := e.now()

	var statements []Statement
	for _, a := range set.Resolve(qualifiers) {
		txns, err := e.activity(ctx, a, f)
		if err != nil {
			return nil, err
		}
		st := Statement{Account: a}
		for _, t := range txns {
			if f.Match(t, now) {
				st.Transactions = append(st.Transactions, t)
			}
		}
		statements = append(statements, st)
	}
	return statements, nil
}

// activity reads an account's activity pages, following Next links until
// the pages are older than the filter or the page cap is reached.
func (e *Engine) activity(ctx context.Context, a model.Account, f Filter) ([]model.Transaction, error) {
	var all []model.Transaction
	next := a.ActivityURL
	for pageNum := 1; next != "" && pageNum <= e.maxPages; pageNum++ {
		p, err := e.fetch(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("loading activity page %d for %s: %w", pageNum, a, err)
		}
		txns, err := page.ParseTransactions(p.Body)
		if err != nil {
			return nil, err
		}
		for i := range txns {
			txns[i].Account = a.Ref()
		}
		all = append(all, txns...)

		if f.olderThan(txns) {
			break
		}
		next, _ = page.NextPageURL(p.Body)
		if next != "" && pageNum == e.maxPages {
			e.log.Warn().Str("account", a.String()).Int("max_pages", e.maxPages).Msg("activity truncated")
		}
	}
	return all, nil
}

func (e *Engine) confirm(ctx context.Context, summary string) error {
	ok, err := e.confirmer.Confirm(ctx, summary)
	if err != nil {
		return fmt.Errorf("asking for confirmation: %w", err)
	}
	if !ok {
		return ErrDeclined
	}
	return nil
}

// record logs a submission. The operation already happened on the site, so
// a failure to record it is logged rather than returned.
func (e *Engine) record(s Submission) {
	if e.recorder == nil {
		return
	}
	s.At = e.now()
	if err := e.recorder.Record(s); err != nil {
		e.log.Error().Err(err).Str("operation", s.Operation).Str("number", s.Number).Msg("recording submission")
	}
}

// finish submits the last form of a flow and reads the confirmation page.
func (e *Engine) finish(ctx context.Context, op string, form browser.Form, sub Submission) (model.Confirmation, error) {
	resp, err := e.session.Submit(ctx, form)
	if err != nil {
		return model.Confirmation{}, fmt.Errorf("submitting %s: %w", op, err)
	}
	c, err := e.readConfirmation(op, resp.Body)
	if err != nil {
		var rej *RejectedError
		if errors.As(err, &rej) {
			sub.Reason = rej.Reason
			e.record(sub)
		}
		return model.Confirmation{}, err
	}
	if c.Amount.IsZero() {
		c.Amount = sub.Amount
	}
	sub.Accepted = true
	sub.Number = c.Number
	e.record(sub)
	e.log.Info().Str("operation", op).Str("number", c.Number).Msg("submitted")
	return c, nil
}

func (e *Engine) readConfirmation(op, html string) (model.Confirmation, error) {
	c, err := page.ParseConfirmation(html)
	var serr *page.SiteError
	if errors.As(err, &serr) {
		return model.Confirmation{}, &RejectedError{Operation: op, Reason: serr.Message}
	}
	if err != nil {
		return model.Confirmation{}, err
	}
	if !c.Complete() {
		return model.Confirmation{}, &RejectedError{
			Operation: op,
			Reason:    fmt.Sprintf("site stopped at step %d of %d", c.Step, c.Steps),
		}
	}
	return c, nil
}

// rejection returns the site's coaching message on an intermediate page.
func rejection(op, html string) error {
	if msg, ok := page.SiteMessage(html); ok {
		return &RejectedError{Operation: op, Reason: msg}
	}
	return nil
}

// click presses button when the form has it.
func click(f browser.Form, button string) browser.Form {
	if f.Has(button) {
		return f.Click(button)
	}
	return f
}
