package banking

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/coba-dev/coba/internal/model"
	"github.com/coba-dev/coba/internal/page"
)

// PaymentKind says where a payment amount comes from.
type PaymentKind string

const (
	PayLiteral   PaymentKind = "amount"
	PayStatement PaymentKind = "statement"
	PayMinimum   PaymentKind = "minimum"
	PayCurrent   PaymentKind = "current"
)

// PaymentAmount is either a literal amount or a symbolic one that is read
// from the card's detail page right before confirmation.
type PaymentAmount struct {
	Kind  PaymentKind
	Value decimal.Decimal
}

// Literal returns a fixed payment amount.
func Literal(d decimal.Decimal) PaymentAmount {
	return PaymentAmount{Kind: PayLiteral, Value: d}
}

func (p PaymentAmount) String() string {
	if p.Kind == PayLiteral {
		return model.FormatMoney(p.Value)
	}
	return string(p.Kind)
}

// propertyKeys lists the detail-page properties a symbolic amount may be
// read from, in order of preference.
func (p PaymentAmount) propertyKeys() []string {
	switch p.Kind {
	case PayStatement:
		return []string{model.KeyStatementBalance}
	case PayMinimum:
		return []string{model.KeyMinimumPayment, model.KeyMinimumPaymentDue}
	case PayCurrent:
		return []string{model.KeyCurrentBalance}
	}
	return nil
}

func (p PaymentAmount) option() page.PaymentOption {
	switch p.Kind {
	case PayStatement:
		return page.OptionStatement
	case PayMinimum:
		return page.OptionMinimum
	case PayCurrent:
		return page.OptionCurrent
	}
	return page.OptionOther
}

func (p PaymentAmount) label() string {
	switch p.Kind {
	case PayStatement:
		return "statement balance"
	case PayMinimum:
		return "minimum payment"
	case PayCurrent:
		return "current balance"
	}
	return ""
}

// ParseAmount reads a positive dollar amount such as "25", "$1,200.50".
func ParseAmount(s string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(s)
	clean := strings.ReplaceAll(strings.TrimPrefix(raw, "$"), ",", "")
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, &InvalidAmountError{Amount: s, Reason: "not a number"}
	}
	if err := validateAmount(d, s); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// validateAmount rejects amounts the site cannot move: zero, negative, or
// with fractions of a cent. shown is the amount as the user gave it.
func validateAmount(d decimal.Decimal, shown string) error {
	if !d.IsPositive() {
		return &InvalidAmountError{Amount: shown, Reason: "must be greater than zero"}
	}
	if !d.Equal(d.Round(2)) {
		return &InvalidAmountError{Amount: shown, Reason: "more than two decimal places"}
	}
	return nil
}

// ParsePaymentAmount accepts "statement", "minimum", "current" or an amount.
func ParsePaymentAmount(s string) (PaymentAmount, error) {
	switch k := PaymentKind(strings.ToLower(strings.TrimSpace(s))); k {
	case PayStatement, PayMinimum, PayCurrent:
		return PaymentAmount{Kind: k}, nil
	}
	d, err := ParseAmount(s)
	if err != nil {
		return PaymentAmount{}, err
	}
	return Literal(d), nil
}
