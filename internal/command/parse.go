// Package command turns shell-like command text into banking operations
// and renders their results as text tables.
package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
	"github.com/shopspring/decimal"

	"github.com/coba-dev/coba/internal/banking"
)

// Kind names a command.
type Kind string

const (
	KindAccounts     Kind = "accounts"
	KindDetails      Kind = "details"
	KindTransactions Kind = "transactions"
	KindTransfer     Kind = "transfer"
	KindPay          Kind = "pay"
)

// Kinds lists every command in help order.
var Kinds = []Kind{KindAccounts, KindDetails, KindTransactions, KindTransfer, KindPay}

// Usage is the argument grammar of each command.
var Usage = map[Kind]string{
	KindAccounts:     "accounts [--pending] [qualifier...]",
	KindDetails:      "details [qualifier...]",
	KindTransactions: "transactions [qualifier...] [since:DATE] [through:DATE] [min:AMOUNT] [max:AMOUNT] [contains:TEXT]",
	KindTransfer:     "transfer AMOUNT from QUALIFIER... to QUALIFIER... [memo:TEXT] [date:DATE]",
	KindPay:          "pay AMOUNT|statement|minimum|current on QUALIFIER... with QUALIFIER...",
}

// Invocation is a parsed command.
type Invocation struct {
	Kind       Kind
	Qualifiers []string
	Pending    bool
	Filter     banking.Filter
	Transfer   banking.TransferRequest
	Payment    banking.PaymentRequest
}

// SyntaxError reports command text that does not follow the grammar.
type SyntaxError struct {
	Command string
	Reason  string
}

func (e *SyntaxError) Error() string {
	if e.Command == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s (usage: %s)", e.Command, e.Reason, Usage[Kind(e.Command)])
}

func syntaxErr(kind Kind, format string, args ...any) *SyntaxError {
	return &SyntaxError{Command: string(kind), Reason: fmt.Sprintf(format, args...)}
}

// Lex splits a command line the way a shell would, honoring quotes.
func Lex(line string) ([]string, error) {
	words, err := shellwords.Parse(line)
	if err != nil {
		return nil, &SyntaxError{Reason: fmt.Sprintf("splitting %q: %v", line, err)}
	}
	return words, nil
}

// ParseLine lexes and parses one command line.
func ParseLine(line string) (Invocation, error) {
	tokens, err := Lex(line)
	if err != nil {
		return Invocation{}, err
	}
	return Parse(tokens)
}

// Parse reads an invocation from tokens; the first token names the command.
func Parse(tokens []string) (Invocation, error) {
	if len(tokens) == 0 {
		return Invocation{}, &SyntaxError{Reason: "no command given"}
	}
	kind := Kind(strings.ToLower(tokens[0]))
	args := tokens[1:]
	switch kind {
	case KindAccounts:
		return parseAccounts(args)
	case KindDetails:
		return Invocation{Kind: KindDetails, Qualifiers: args}, nil
	case KindTransactions:
		return parseTransactions(args)
	case KindTransfer:
		return parseTransfer(args)
	case KindPay:
		return parsePay(args)
	default:
		return Invocation{}, &SyntaxError{Reason: fmt.Sprintf("unknown command %q", tokens[0])}
	}
}

func parseAccounts(args []string) (Invocation, error) {
	inv := Invocation{Kind: KindAccounts}
	for _, a := range args {
		if a == "--pending" || a == "-p" {
			inv.Pending = true
			continue
		}
		inv.Qualifiers = append(inv.Qualifiers, a)
	}
	return inv, nil
}

// option splits "key:value" for the given keys.
func option(token string, keys ...string) (key, value string, ok bool) {
	k, v, found := strings.Cut(token, ":")
	if !found {
		return "", "", false
	}
	k = strings.ToLower(k)
	for _, want := range keys {
		if k == want {
			return k, v, true
		}
	}
	return "", "", false
}

func parseTransactions(args []string) (Invocation, error) {
	inv := Invocation{Kind: KindTransactions}
	for _, a := range args {
		key, value, ok := option(a, "from", "since", "through", "to", "min", "max", "contains")
		if !ok {
			inv.Qualifiers = append(inv.Qualifiers, a)
			continue
		}
		if value == "" {
			return Invocation{}, syntaxErr(KindTransactions, "%s: needs a value", key)
		}
		switch key {
		case "from", "since":
			d, err := ParseDate(value)
			if err != nil {
				return Invocation{}, syntaxErr(KindTransactions, "%v", err)
			}
			inv.Filter.From = d
		case "through", "to":
			d, err := ParseDate(value)
			if err != nil {
				return Invocation{}, syntaxErr(KindTransactions, "%v", err)
			}
			inv.Filter.Through = d
		case "min", "max":
			d, err := parseSignedAmount(value)
			if err != nil {
				return Invocation{}, syntaxErr(KindTransactions, "%s: %v", key, err)
			}
			if key == "min" {
				inv.Filter.Min = &d
			} else {
				inv.Filter.Max = &d
			}
		case "contains":
			inv.Filter.Contains = value
		}
	}
	f := inv.Filter
	if !f.From.IsZero() && !f.Through.IsZero() && f.Through.Before(f.From) {
		return Invocation{}, syntaxErr(KindTransactions, "through date is before since date")
	}
	if f.Min != nil && f.Max != nil && f.Max.LessThan(*f.Min) {
		return Invocation{}, syntaxErr(KindTransactions, "max is below min")
	}
	return inv, nil
}

// splitAt divides args into the qualifiers before and after keyword.
func splitAt(args []string, keyword string) (before, after []string, ok bool) {
	for i, a := range args {
		if strings.EqualFold(a, keyword) {
			return args[:i], args[i+1:], true
		}
	}
	return args, nil, false
}

func parseTransfer(args []string) (Invocation, error) {
	req := banking.TransferRequest{}
	var rest []string
	for _, a := range args {
		key, value, ok := option(a, "memo", "date")
		if !ok {
			rest = append(rest, a)
			continue
		}
		switch key {
		case "memo":
			req.Memo = value
		case "date":
			d, err := ParseDate(value)
			if err != nil {
				return Invocation{}, syntaxErr(KindTransfer, "%v", err)
			}
			req.DeliverBy = d
		}
	}
	if len(rest) == 0 {
		return Invocation{}, syntaxErr(KindTransfer, "missing amount")
	}
	amount, err := banking.ParseAmount(rest[0])
	if err != nil {
		return Invocation{}, err
	}
	req.Amount = amount

	if len(rest) < 2 || !strings.EqualFold(rest[1], "from") {
		return Invocation{}, syntaxErr(KindTransfer, `expected "from" after the amount`)
	}
	from, to, ok := splitAt(rest[2:], "to")
	if !ok {
		return Invocation{}, syntaxErr(KindTransfer, `missing "to"`)
	}
	if len(from) == 0 || len(to) == 0 {
		return Invocation{}, syntaxErr(KindTransfer, "both accounts need at least one qualifier")
	}
	req.From, req.To = from, to
	return Invocation{Kind: KindTransfer, Transfer: req}, nil
}

func parsePay(args []string) (Invocation, error) {
	if len(args) == 0 {
		return Invocation{}, syntaxErr(KindPay, "missing amount")
	}
	amount, err := banking.ParsePaymentAmount(args[0])
	if err != nil {
		return Invocation{}, err
	}
	if len(args) < 2 || !strings.EqualFold(args[1], "on") {
		return Invocation{}, syntaxErr(KindPay, `expected "on" after the amount`)
	}
	on, with, ok := splitAt(args[2:], "with")
	if !ok {
		return Invocation{}, syntaxErr(KindPay, `missing "with"`)
	}
	if len(on) == 0 || len(with) == 0 {
		return Invocation{}, syntaxErr(KindPay, "both accounts need at least one qualifier")
	}
	return Invocation{
		Kind:    KindPay,
		Payment: banking.PaymentRequest{Amount: amount, On: on, With: with},
	}, nil
}

var dateLayouts = []string{"2006-01-02", "1/2/2006"}

// ParseDate accepts YYYY-MM-DD or M/D/YYYY.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD or M/D/YYYY)", s)
}

func parseSignedAmount(s string) (decimal.Decimal, error) {
	clean := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(s))
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}
