package banking

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coba-dev/coba/internal/model"
)

// Filter selects transactions. Every set field must match. A zero From
// means the beginning of time, a zero Through means now.
type Filter struct {
	From     time.Time
	Through  time.Time
	Min      *decimal.Decimal
	Max      *decimal.Decimal
	Contains string
}

// Match reports whether t passes the filter. Pending transactions are
// dated now.
func (f Filter) Match(t model.Transaction, now time.Time) bool {
	date := t.EffectiveDate(now)
	if !f.From.IsZero() && date.Before(f.From) {
		return false
	}
	through := f.Through
	if through.IsZero() {
		through = now
	}
	if date.After(through) {
		return false
	}
	if f.Min != nil && t.Amount.LessThan(*f.Min) {
		return false
	}
	if f.Max != nil && t.Amount.GreaterThan(*f.Max) {
		return false
	}
	if f.Contains != "" && !strings.Contains(strings.ToLower(t.Description), strings.ToLower(f.Contains)) {
		return false
	}
	return true
}

// olderThan reports whether a page of activity has reached posted
// transactions dated before the filter's start. Pages are newest first.
func (f Filter) olderThan(txns []model.Transaction) bool {
	if f.From.IsZero() {
		return false
	}
	for i := len(txns) - 1; i >= 0; i-- {
		if !txns[i].Pending() && !txns[i].Date.IsZero() {
			return txns[i].Date.Before(f.From)
		}
	}
	return false
}

// Statement is the filtered activity of one account.
type Statement struct {
	Account      model.Account
	Transactions []model.Transaction
}
