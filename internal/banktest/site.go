// Package banktest provides an in-memory imitation of the bank's mobile
// site for tests. Site implements browser.Transport.
package banktest

import (
	"context"
	"embed"
	"fmt"
	"html"
	"net/url"
	"strings"
	"sync"

	"github.com/coba-dev/coba/internal/browser"
)

//go:embed testdata/*.html
var fixtures embed.FS

// Credentials accepted by the site.
const (
	Username = "jdoe"
	Password = "hunter2"
	Code     = "123456"
)

const (
	origin       = "https://mobilebanking.test"
	LogOnPath    = "/Public/Home/LogOn"
	AccountsPath = "/Secure/Accounts/"

	activationPath = "/Public/Auth/EnterActivationCode"
	sendCodePath   = "/Public/Auth/SendCode"
	validatePath   = "/Public/Auth/ValidateCode"
)

// Account labels by site id.
var labels = map[string]string{
	"1111": "TOTAL CHECKING (...1234)",
	"2222": "CHASE PREMIER CHECKING (...5678)",
	"3333": "FREEDOM (...9012)",
}

var debitIDs = []string{"1111", "2222"}

// Fixture returns an embedded HTML page from testdata.
func Fixture(name string) string {
	data, err := fixtures.ReadFile("testdata/" + name)
	if err != nil {
		panic(fmt.Sprintf("banktest: missing fixture %s", name))
	}
	return string(data)
}

// CreditDetailPage renders the credit card detail page with the given
// minimum payment, e.g. "$35.00".
func CreditDetailPage(minimum string) string {
	return strings.ReplaceAll(Fixture("detail_credit.html"), "{{minimum_payment}}", minimum)
}

// Call is one request the site received.
type Call struct {
	Method string
	URL    string // path and query
	Form   url.Values
}

func (c Call) String() string {
	return c.Method + " " + c.URL
}

// Transfer is a transfer the site accepted.
type Transfer struct {
	FromID    string
	ToID      string
	Amount    string
	Memo      string
	DeliverBy string
}

// Payment is a card payment the site accepted.
type Payment struct {
	CardID string
	FromID string
	Option string
	Amount string
}

// Site is a scripted bank. Exported fields configure behavior; the
// recorded fields are read through accessor methods.
type Site struct {
	// RequireVerification makes the first login from this "device" ask for
	// an activation code.
	RequireVerification bool
	// MinimumPayment is shown on the card detail and payment pages.
	MinimumPayment string
	// RejectTransfers and RejectPayments, when set, are shown as coaching
	// messages instead of accepting the request.
	RejectTransfers string
	RejectPayments  string
	// TotalOverride replaces the total on the payment review page.
	TotalOverride string
	// Destinations lists the account ids offered as transfer destinations,
	// in page order. Nil offers the debit accounts.
	Destinations []string
	// MinimumPaymentLabel replaces the minimum payment row label on the
	// card detail page.
	MinimumPaymentLabel string
	// OmitConfirmationAmount drops the amount row from final confirmations.
	OmitConfirmationAmount bool

	mu         sync.Mutex
	loggedIn   bool
	verified   bool
	pendingOTP bool
	calls      []Call
	logins     int
	deliveries []string
	transfers  []Transfer
	payments   []Payment
}

// NewSite returns a site with the default fixtures.
func NewSite() *Site {
	return &Site{MinimumPayment: "$35.00"}
}

// Expire ends the current login as if the session timed out.
func (s *Site) Expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedIn = false
}

// SetLoggedIn marks the site as already logged in, as restored cookies would.
func (s *Site) SetLoggedIn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedIn = true
}

// Calls returns every request received so far.
func (s *Site) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Count returns how many requests used method ("GET" or "POST"); an empty
// method counts all.
func (s *Site) Count(method string) int {
	n := 0
	for _, c := range s.Calls() {
		if method == "" || c.Method == method {
			n++
		}
	}
	return n
}

// Logins returns the number of completed logins.
func (s *Site) Logins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

// Deliveries returns the delivery methods codes were requested through.
func (s *Site) Deliveries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deliveries...)
}

// Transfers returns accepted transfers.
func (s *Site) Transfers() []Transfer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Transfer(nil), s.transfers...)
}

// Payments returns accepted payments.
func (s *Site) Payments() []Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Payment(nil), s.payments...)
}

// Get implements browser.Transport.
func (s *Site) Get(ctx context.Context, rawURL string) (*browser.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: "GET", URL: u.RequestURI()})

	q := u.Query()
	switch {
	case u.Path == LogOnPath:
		return page(LogOnPath, logonPage("")), nil
	case u.Path == sendCodePath:
		if !s.pendingOTP {
			return page(LogOnPath, logonPage("")), nil
		}
		s.deliveries = append(s.deliveries, q.Get("method"))
		return page(sendCodePath, otpPage("")), nil
	case strings.HasPrefix(u.Path, "/Secure/") && !s.loggedIn:
		return page(LogOnPath, logonPage("")), nil
	}

	switch u.Path {
	case AccountsPath:
		return page(AccountsPath, Fixture("accounts.html")), nil
	case "/Secure/Accounts/Details":
		switch q.Get("id") {
		case "3333":
			body := CreditDetailPage(s.MinimumPayment)
			if s.MinimumPaymentLabel != "" {
				body = strings.ReplaceAll(body, "Minimum Payment:", s.MinimumPaymentLabel)
			}
			return page(u.RequestURI(), body), nil
		case "1111", "2222":
			return page(u.RequestURI(), Fixture("detail_debit.html")), nil
		}
	case "/Secure/Accounts/Activity":
		switch {
		case q.Get("id") == "3333" && q.Get("page") == "2":
			return page(u.RequestURI(), Fixture("transactions_credit_page2.html")), nil
		case q.Get("id") == "3333":
			return page(u.RequestURI(), Fixture("transactions_credit.html")), nil
		case q.Get("id") == "1111":
			return page(u.RequestURI(), Fixture("transactions_debit.html")), nil
		case q.Get("id") == "2222":
			return page(u.RequestURI(), Fixture("transactions_empty.html")), nil
		}
	case "/Secure/Transfer/From":
		return page(u.RequestURI(), s.transferDestinations(q.Get("fromId"))), nil
	case "/Secure/Transfer/Transfer/EnterDetails":
		return page(u.RequestURI(), transferForm(q.Get("fromId"), q.Get("toId"))), nil
	case "/Secure/Payment/Pay":
		return page(u.RequestURI(), paymentSources(q.Get("id"))), nil
	case "/Secure/Payment/EnterDetails":
		return page(u.RequestURI(), s.paymentForm(q.Get("id"), q.Get("fromId"))), nil
	}
	return nil, &browser.StatusError{Code: 404, URL: origin + u.RequestURI()}
}

// PostForm implements browser.Transport.
func (s *Site) PostForm(ctx context.Context, action string, fields url.Values) (*browser.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, err := url.Parse(action)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: "POST", URL: u.RequestURI(), Form: fields})

	switch u.Path {
	case LogOnPath:
		if fields.Get("auth_userId") != Username || fields.Get("auth_passwd") != Password {
			return page(LogOnPath, logonPage("The information you entered does not match our records.")), nil
		}
		if s.RequireVerification && !s.verified {
			s.pendingOTP = true
			return page(LogOnPath, activationPage()), nil
		}
		return s.completeLogin(), nil
	case activationPath:
		if !s.pendingOTP {
			return page(LogOnPath, logonPage("")), nil
		}
		return page(activationPath, deliveryPage()), nil
	case validatePath:
		if !s.pendingOTP {
			return page(LogOnPath, logonPage("")), nil
		}
		if fields.Get("auth_otp") != Code || fields.Get("auth_passwd") != Password {
			return page(validatePath, otpPage("The activation code you entered is not valid.")), nil
		}
		s.pendingOTP = false
		s.verified = true
		return s.completeLogin(), nil
	}

	if strings.HasPrefix(u.Path, "/Secure/") && !s.loggedIn {
		return page(LogOnPath, logonPage("")), nil
	}

	switch u.Path {
	case "/Secure/Transfer/Transfer/EnterDetails":
		if s.RejectTransfers != "" {
			return page(u.Path, rejection(s.RejectTransfers, "Step 2 of 5")), nil
		}
		if fields.Get("Amount") == "" {
			return page(u.Path, rejection("Please enter a valid amount.", "Step 2 of 5")), nil
		}
		return page("/Secure/Transfer/Transfer/Verify", transferReview(fields)), nil
	case "/Secure/Transfer/Transfer/Verify":
		t := Transfer{
			FromID:    fields.Get("FromId"),
			ToID:      fields.Get("ToId"),
			Amount:    fields.Get("Amount"),
			Memo:      fields.Get("Memo"),
			DeliverBy: fields.Get("DeliverByDate"),
		}
		s.transfers = append(s.transfers, t)
		return page(u.Path, s.transferDone(t, len(s.transfers))), nil
	case "/Secure/Payment/EnterDetails":
		if s.RejectPayments != "" {
			return page(u.Path, rejection(s.RejectPayments, "Step 2 of 4")), nil
		}
		total := s.paymentTotal(fields)
		if total == "" {
			return page(u.Path, rejection("Please select a payment amount.", "Step 2 of 4")), nil
		}
		return page("/Secure/Payment/Verify", paymentReview(fields, total)), nil
	case "/Secure/Payment/Verify":
		p := Payment{
			CardID: fields.Get("CardId"),
			FromID: fields.Get("FromId"),
			Option: fields.Get("PaymentOptionId"),
			Amount: fields.Get("Amount"),
		}
		s.payments = append(s.payments, p)
		return page(u.Path, s.paymentDone(p, len(s.payments))), nil
	}
	return nil, &browser.StatusError{Code: 404, URL: origin + u.RequestURI()}
}

func (s *Site) completeLogin() *browser.Page {
	s.loggedIn = true
	s.logins++
	return page(AccountsPath, Fixture("accounts.html"))
}

func (s *Site) paymentTotal(fields url.Values) string {
	var total string
	switch fields.Get("PaymentOptionId") {
	case "T":
		total = "$350.00"
	case "C":
		total = "$400.00"
	case "M":
		total = s.MinimumPayment
	case "O":
		if amt := fields.Get("Amount"); amt != "" {
			total = "$" + amt
		}
	}
	if total != "" && s.TotalOverride != "" {
		total = s.TotalOverride
	}
	return total
}

func page(path, body string) *browser.Page {
	return &browser.Page{URL: origin + path, Body: body}
}

func doc(body string) string {
	return "<!DOCTYPE html>\n<html><head><title>Chase Mobile</title></head><body>\n" + body + "\n</body></html>"
}

func coaching(msg string) string {
	if msg == "" {
		return ""
	}
	return `<div class="coaching">` + html.EscapeString(msg) + `</div>`
}

func logonPage(msg string) string {
	return doc(coaching(msg) + `
<form id="auth_form" action="` + LogOnPath + `" method="post">
<input type="hidden" name="auth_siteId" value="MBL">
<input type="text" name="auth_userId" value="">
<input type="password" name="auth_passwd" value="">
<input type="submit" name="LogOn" value="Log On">
</form>`)
}

func activationPage() string {
	return doc(`<p>We don't recognize the device you're using.</p>
<form action="` + activationPath + `" method="post">
<input type="hidden" name="auth_siteId" value="MBL">
<input type="submit" name="Next" value="Next">
</form>
<a href="/Public/Auth/AlreadyHaveCode">Already Have an Activation Code?</a>`)
}

func deliveryPage() string {
	return doc(`<p>How would you like to receive your activation code?</p>
<ul>
<li><a href="` + sendCodePath + `?method=X">Text me at (xxx) xxx-1234</a></li>
<li><a href="` + sendCodePath + `?method=L">Call me at (xxx) xxx-1234</a></li>
<li><a href="` + sendCodePath + `?method=E">j***e@example.com</a></li>
</ul>`)
}

func otpPage(msg string) string {
	return doc(coaching(msg) + `
<form action="` + validatePath + `" method="post">
<input type="hidden" name="auth_siteId" value="MBL">
<input type="text" name="auth_otp" value="">
<input type="password" name="auth_passwd" value="">
<input type="submit" name="Next" value="Next">
</form>`)
}

func rejection(msg, step string) string {
	return doc(coaching(msg) + "\n<p>" + step + "</p>")
}

func (s *Site) transferDestinations(fromID string) string {
	ids := s.Destinations
	if ids == nil {
		ids = debitIDs
	}
	var b strings.Builder
	b.WriteString("<p>Transfer to:</p>\n<ul>\n")
	for _, id := range ids {
		if id == fromID {
			continue
		}
		label, ok := labels[id]
		if !ok {
			label = "ACCOUNT (..." + id + ")"
		}
		fmt.Fprintf(&b, `<li><a href="/Secure/Transfer/Transfer/EnterDetails?fromId=%s&amp;toId=%s">%s</a></li>`+"\n",
			fromID, id, label)
	}
	b.WriteString("</ul>")
	return doc(b.String())
}

func transferForm(fromID, toID string) string {
	return doc(fmt.Sprintf(`<p>Step 1 of 5</p>
<form action="/Secure/Transfer/Transfer/EnterDetails" method="post">
<input type="hidden" name="FromId" value="%s">
<input type="hidden" name="ToId" value="%s">
<input type="text" name="Amount" value="">
<input type="text" name="Memo" value="">
<input type="text" name="DeliverByDate" value="01/08/2014">
<input type="submit" name="Next" value="Next">
</form>`, fromID, toID))
}

func transferReview(fields url.Values) string {
	return doc(fmt.Sprintf(`<p>Step 4 of 5</p>
<table>
<tr><td>From:</td><td>%s</td></tr>
<tr><td>To:</td><td>%s</td></tr>
<tr><td>Amount:</td><td>$%s</td></tr>
</table>
<form action="/Secure/Transfer/Transfer/Verify" method="post">
<input type="hidden" name="FromId" value="%s">
<input type="hidden" name="ToId" value="%s">
<input type="hidden" name="Amount" value="%s">
<input type="hidden" name="Memo" value="%s">
<input type="hidden" name="DeliverByDate" value="%s">
<input type="submit" name="Submit" value="Submit">
</form>`,
		labels[fields.Get("FromId")], labels[fields.Get("ToId")], html.EscapeString(fields.Get("Amount")),
		fields.Get("FromId"), fields.Get("ToId"), html.EscapeString(fields.Get("Amount")),
		html.EscapeString(fields.Get("Memo")), html.EscapeString(fields.Get("DeliverByDate"))))
}

func (s *Site) transferDone(t Transfer, n int) string {
	return doc(fmt.Sprintf(`<p>Step 5 of 5</p>
<p>Your transfer has been scheduled.</p>
<table>
<tr><td>From:</td><td>%s</td></tr>
<tr><td>To:</td><td>%s</td></tr>
%s<tr><td>Confirmation Number:</td><td>TR-%07d</td></tr>
</table>`, labels[t.FromID], labels[t.ToID], s.amountRow("Amount", t.Amount), n))
}

func (s *Site) amountRow(label, amount string) string {
	if s.OmitConfirmationAmount {
		return ""
	}
	return fmt.Sprintf("<tr><td>%s:</td><td>$%s</td></tr>\n", label, html.EscapeString(amount))
}

func paymentSources(cardID string) string {
	var b strings.Builder
	b.WriteString("<p>Pay from:</p>\n<ul>\n")
	for _, id := range debitIDs {
		fmt.Fprintf(&b, `<li><a href="/Secure/Payment/EnterDetails?id=%s&amp;fromId=%s">%s</a></li>`+"\n",
			cardID, id, labels[id])
	}
	b.WriteString("</ul>")
	return doc(b.String())
}

func (s *Site) paymentForm(cardID, fromID string) string {
	return doc(fmt.Sprintf(`<p>Step 1 of 4</p>
<form action="/Secure/Payment/EnterDetails" method="post">
<input type="hidden" name="CardId" value="%s">
<input type="hidden" name="FromId" value="%s">
<table>
<tr><td><input type="radio" name="PaymentOptionId" value="T"></td><td>Statement balance: $350.00</td></tr>
<tr><td><input type="radio" name="PaymentOptionId" value="C"></td><td>Current Balance: $400.00</td></tr>
<tr><td><input type="radio" name="PaymentOptionId" value="M"></td><td>Minimum payment: %s</td></tr>
<tr><td><input type="radio" name="PaymentOptionId" value="O"></td><td>Other amount</td></tr>
</table>
<input type="text" name="Amount" value="">
<input type="submit" name="Submit" value="Next">
</form>`, cardID, fromID, s.MinimumPayment))
}

func paymentReview(fields url.Values, total string) string {
	return doc(fmt.Sprintf(`<p>Step 3 of 4</p>
<table>
<tr><td>Pay To:</td><td>%s</td></tr>
<tr><td>Pay From:</td><td>%s</td></tr>
<tr><td colspan="2">Total payment amount: %s</td></tr>
</table>
<form action="/Secure/Payment/Verify" method="post">
<input type="hidden" name="CardId" value="%s">
<input type="hidden" name="FromId" value="%s">
<input type="hidden" name="PaymentOptionId" value="%s">
<input type="hidden" name="Amount" value="%s">
<input type="submit" name="Submit" value="Submit">
</form>`,
		labels[fields.Get("CardId")], labels[fields.Get("FromId")], total,
		fields.Get("CardId"), fields.Get("FromId"), fields.Get("PaymentOptionId"), strings.TrimPrefix(total, "$")))
}

func (s *Site) paymentDone(p Payment, n int) string {
	return doc(fmt.Sprintf(`<p>Step 4 of 4</p>
<table>
<tr><td>Pay To:</td><td>%s</td></tr>
<tr><td>Pay From:</td><td>%s</td></tr>
%s<tr><td>Confirmation Number:</td><td>PC-%07d</td></tr>
</table>`, labels[p.CardID], labels[p.FromID], s.amountRow("Payment Amount", p.Amount), n))
}
