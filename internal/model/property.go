package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PropertyKind tells which field of a Property holds the value.
type PropertyKind int

const (
	KindText PropertyKind = iota
	KindMoney
	KindDate
)

// Property is a typed label/value pair scraped from an account page.
type Property struct {
	Kind  PropertyKind
	Text  string
	Money decimal.Decimal
	Date  time.Time
}

// TextProperty, MoneyProperty and DateProperty build a Property of each kind.
func TextProperty(s string) Property { return Property{Kind: KindText, Text: s} }

func MoneyProperty(d decimal.Decimal) Property { return Property{Kind: KindMoney, Money: d} }

func DateProperty(t time.Time) Property { return Property{Kind: KindDate, Date: t} }

// String formats the value for display.
func (p Property) String() string {
	switch p.Kind {
	case KindMoney:
		return FormatMoney(p.Money)
	case KindDate:
		return p.Date.Format("2006-01-02")
	default:
		return p.Text
	}
}

// FormatMoney renders an amount with two decimals and a dollar sign.
// "-12.5" -> "-$12.50"
func FormatMoney(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}
