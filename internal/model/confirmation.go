package model

import "github.com/shopspring/decimal"

// Confirmation is what the site shows after a transfer or payment step.
type Confirmation struct {
	Step    int
	Steps   int
	Number  string
	Amount  decimal.Decimal
	Details map[string]Property
	Message string
}

// Complete reports whether the site reached the final step.
func (c Confirmation) Complete() bool {
	return c.Steps > 0 && c.Step == c.Steps
}
