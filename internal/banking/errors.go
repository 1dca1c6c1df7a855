package banking

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/coba-dev/coba/internal/model"
)

// ErrDeclined is returned when the user does not approve a transfer or
// payment. Nothing was submitted.
var ErrDeclined = errors.New("declined")

// SameAccountError means the source and destination are one account.
type SameAccountError struct {
	Account string
}

func (e *SameAccountError) Error() string {
	return fmt.Sprintf("source and destination are the same account (%s)", e.Account)
}

// CategoryError means an account cannot play the role it was given, e.g.
// paying a checking account as if it were a card.
type CategoryError struct {
	Account model.Account
	Role    string
	Want    model.Category
}

func (e *CategoryError) Error() string {
	return fmt.Sprintf("%s cannot be the %s: need a %s account, it is %s", e.Account, e.Role, e.Want, e.Account.Category)
}

// RejectedError carries the site's reason for refusing a transfer or payment.
type RejectedError struct {
	Operation string
	Reason    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Operation, e.Reason)
}

// InvalidAmountError means an amount is unusable before anything is sent.
type InvalidAmountError struct {
	Amount string
	Reason string
}

func (e *InvalidAmountError) Error() string {
	if e.Amount == "" {
		return "invalid amount: " + e.Reason
	}
	return fmt.Sprintf("invalid amount %q: %s", e.Amount, e.Reason)
}

// AmountChangedError means the site's payment total differs from the
// amount the user approved. The payment was abandoned before submission.
type AmountChangedError struct {
	Confirmed decimal.Decimal
	Shown     decimal.Decimal
}

func (e *AmountChangedError) Error() string {
	return fmt.Sprintf("site shows a payment total of %s but %s was confirmed",
		model.FormatMoney(e.Shown), model.FormatMoney(e.Confirmed))
}
