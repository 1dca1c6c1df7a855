// Package page turns the bank's mobile HTML into typed records. Every
// function is pure: it looks only at the HTML it is given.
package page

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/coba-dev/coba/internal/model"
)

const (
	siteDateFormat  = "1/2/2006"
	maxFragmentSize = 160
)

// ParseError reports markup that does not have the expected structure.
type ParseError struct {
	Page     string
	Reason   string
	Fragment string
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parsing %s page: %s", e.Page, e.Reason)
	if e.Fragment != "" {
		msg += fmt.Sprintf(" (near %q)", e.Fragment)
	}
	return msg
}

// SiteError carries a message the bank displayed instead of the page we
// asked for, e.g. "insufficient funds".
type SiteError struct {
	Message string
}

func (e *SiteError) Error() string {
	return "bank says: " + e.Message
}

func newParseError(page string, sel *goquery.Selection, format string, args ...any) *ParseError {
	return &ParseError{
		Page:     page,
		Reason:   fmt.Sprintf(format, args...),
		Fragment: fragment(sel),
	}
}

func fragment(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	html, err := goquery.OuterHtml(sel.First())
	if err != nil {
		return ""
	}
	html = clean(html)
	if len(html) > maxFragmentSize {
		html = html[:maxFragmentSize] + "..."
	}
	return html
}

func load(html, page string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &ParseError{Page: page, Reason: err.Error()}
	}
	return doc, nil
}

// clean collapses runs of whitespace into single spaces.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var (
	nonKeyChars     = regexp.MustCompile(`[^a-z0-9_-]+`)
	edgeUnderscores = regexp.MustCompile(`\b_|_\b`)
	nonMoneyChars   = regexp.MustCompile(`[^0-9.-]+`)
)

// Wordize turns a row label into a property key.
// "Debit/Credit Amount:" -> "debit_credit_amount"
func Wordize(label string) string {
	key := nonKeyChars.ReplaceAllString(strings.ToLower(clean(label)), "_")
	return edgeUnderscores.ReplaceAllString(key, "")
}

func isMoney(s string) bool {
	return strings.HasPrefix(s, "$") || strings.HasPrefix(s, "-$")
}

func parseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(nonMoneyChars.ReplaceAllString(s, ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return d, nil
}

// parseValue converts a cell into a money, date or text property.
func parseValue(raw string) (model.Property, error) {
	v := clean(raw)
	if isMoney(v) {
		d, err := parseMoney(v)
		if err != nil {
			return model.Property{}, err
		}
		return model.MoneyProperty(d), nil
	}
	if strings.Contains(v, "/") {
		if t, err := time.Parse(siteDateFormat, v); err == nil {
			return model.DateProperty(t), nil
		}
	}
	return model.TextProperty(v), nil
}

// keyValueRows collects every two-cell row under sel.
func keyValueRows(sel *goquery.Selection, page string) (map[string]model.Property, error) {
	props := make(map[string]model.Property)
	var perr error
	sel.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.ChildrenFiltered("td")
		if cells.Length() != 2 {
			return true
		}
		key := Wordize(cells.Eq(0).Text())
		if key == "" {
			return true
		}
		prop, err := parseValue(cells.Eq(1).Text())
		if err != nil {
			perr = newParseError(page, row, "%v", err)
			return false
		}
		props[key] = prop
		return true
	})
	if perr != nil {
		return nil, perr
	}
	return props, nil
}

// SiteMessage returns the bank's coaching message, if the page shows one.
// Announcement banners are not messages.
func SiteMessage(html string) (string, bool) {
	doc, err := load(html, "message")
	if err != nil {
		return "", false
	}
	return siteMessage(doc)
}

func siteMessage(doc *goquery.Document) (string, bool) {
	var msg string
	doc.Find(".coaching").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if href, ok := s.Attr("href"); ok && strings.HasSuffix(href, "/Announcement") {
			return true
		}
		msg = clean(s.Text())
		return msg == ""
	})
	return msg, msg != ""
}

// IsLoginPage reports whether the site answered with its logon form,
// which is how an expired session shows up.
func IsLoginPage(html string) bool {
	doc, err := load(html, "login")
	if err != nil {
		return false
	}
	return doc.Find("#auth_form").Length() > 0
}

// NeedsVerification reports whether the site asks for an activation code.
func NeedsVerification(html string) bool {
	return strings.Contains(html, "EnterActivationCode")
}

// IsVerificationForm reports whether the page asks for the code itself.
func IsVerificationForm(html string) bool {
	doc, err := load(html, "verification")
	if err != nil {
		return false
	}
	return doc.Find(`input[name="auth_otp"]`).Length() > 0
}
