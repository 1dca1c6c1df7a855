package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is either pending or posted.
type TransactionStatus string

const (
	StatusPending TransactionStatus = "pending"
	StatusPosted  TransactionStatus = "posted"
)

// Transaction is one entry of an account's activity page.
type Transaction struct {
	Account     AccountRef
	Description string
	Category    string
	Date        time.Time       // zero while pending
	Amount      decimal.Decimal // negative = payment or credit toward the balance
	Status      TransactionStatus
	Memo        string
	Reference   string
	Balance     *decimal.Decimal // running balance, debit accounts only
}

// Pending reports whether the transaction has not posted yet.
func (t Transaction) Pending() bool {
	return t.Status == StatusPending
}

// EffectiveDate is the posting date, or now for pending transactions.
func (t Transaction) EffectiveDate(now time.Time) time.Time {
	if t.Date.IsZero() {
		return now
	}
	return t.Date
}
