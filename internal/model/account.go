package model

import (
	"fmt"
	"maps"

	"github.com/shopspring/decimal"
)

// Category classifies accounts by the fields the site shows for them.
type Category string

const (
	CategoryDebit  Category = "debit"
	CategoryCredit Category = "credit"
)

// Property keys the site uses for balances and payment amounts.
const (
	KeyPresentBalance    = "present_balance"
	KeyAvailableBalance  = "available_balance"
	KeyCurrentBalance    = "current_balance"
	KeyAvailableCredit   = "available_credit"
	KeyCreditLimit       = "credit_limit"
	KeyStatementBalance  = "statement_balance"
	KeyMinimumPayment    = "minimum_payment"
	KeyMinimumPaymentDue = "minimum_payment_due"
	KeyPaymentDueDate    = "payment_due_date"
	KeyRewardsProgram    = "rewards_program"
)

// Account is one row of the accounts page. Accounts are rebuilt on every
// accounts page load and never modified in place.
type Account struct {
	ID         string
	Name       string
	Mask       string // trailing digits of the account number
	Category   Category
	Present    decimal.Decimal
	Available  decimal.Decimal
	Properties map[string]Property

	// PendingTotal is the sum of pending transactions already subtracted
	// from Available. Zero unless the balance was adjusted.
	PendingTotal decimal.Decimal

	DetailURL   string
	ActivityURL string
	TransferURL string
	PaymentURL  string
}

// String renders the account the way the site labels it.
func (a Account) String() string {
	if a.Mask == "" {
		return a.Name
	}
	return fmt.Sprintf("%s (...%s)", a.Name, a.Mask)
}

// SameAs reports whether a and b refer to the same site account.
func (a Account) SameAs(b Account) bool {
	if a.ID != "" && b.ID != "" {
		return a.ID == b.ID
	}
	return a.Name == b.Name && a.Mask == b.Mask
}

// Ref returns the back-reference stored on transactions.
func (a Account) Ref() AccountRef {
	return AccountRef{ID: a.ID, Name: a.Name, Mask: a.Mask}
}

// Money returns a monetary property.
func (a Account) Money(key string) (decimal.Decimal, bool) {
	p, ok := a.Properties[key]
	if !ok || p.Kind != KindMoney {
		return decimal.Zero, false
	}
	return p.Money, true
}

// WithProperties returns a copy of a whose properties are a's merged with
// props. Balances are refreshed from the merged set.
func (a Account) WithProperties(props map[string]Property) Account {
	merged := make(map[string]Property, len(a.Properties)+len(props))
	maps.Copy(merged, a.Properties)
	maps.Copy(merged, props)
	a.Properties = merged

	presentKey, availableKey := KeyPresentBalance, KeyAvailableBalance
	if a.Category == CategoryCredit {
		presentKey, availableKey = KeyCurrentBalance, KeyAvailableCredit
	}
	if v, ok := a.Money(presentKey); ok {
		a.Present = v
	}
	if v, ok := a.Money(availableKey); ok {
		a.Available = v.Sub(a.PendingTotal)
	}
	return a
}

// WithPending returns a copy of a with the pending total subtracted from
// the available balance.
func (a Account) WithPending(total decimal.Decimal) Account {
	a.Available = a.Available.Add(a.PendingTotal).Sub(total)
	a.PendingTotal = total
	return a
}

// AccountRef identifies the account a transaction belongs to.
type AccountRef struct {
	ID   string
	Name string
	Mask string
}

func (r AccountRef) String() string {
	return Account{Name: r.Name, Mask: r.Mask}.String()
}
