package page

import (
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/coba-dev/coba/internal/model"
)

// Transaction row labels and the field each one fills.
var transactionFields = map[string]string{
	"balance":             "balance",
	"transaction_date":    "date",
	"post_date":           "date",
	"date":                "date",
	"type":                "category",
	"category":            "category",
	"memo_description":    "memo",
	"memo":                "memo",
	"transaction_number":  "reference",
	"reference_number":    "reference",
	"debit_credit_amount": "amount",
	"debit_credit":        "amount",
	"amount":              "amount",
}

type transactionBuilder struct {
	txn       model.Transaction
	fields    int
	hasAmount bool
}

// ParseTransactions reads one page of account activity. Transactions are
// returned in page order. The Account reference is left for the caller.
func ParseTransactions(html string) ([]model.Transaction, error) {
	doc, err := load(html, "activity")
	if err != nil {
		return nil, err
	}

	tables := doc.Find("table")
	if tables.Length() == 0 {
		return nil, newParseError("activity", doc.Find("body"), "no activity table")
	}

	var (
		txns []model.Transaction
		cur  *transactionBuilder
		perr error
	)
	tables.Last().Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.ChildrenFiltered("td")
		switch cells.Length() {
		case 1:
			if row.Find("hr").Length() > 0 {
				if cur == nil {
					return true
				}
				if !cur.hasAmount {
					perr = newParseError("activity", row.Prev(), "transaction %q has no amount", cur.txn.Description)
					return false
				}
				txns = append(txns, cur.txn)
				cur = nil
				return true
			}
			if cur == nil {
				cur = &transactionBuilder{txn: model.Transaction{
					Description: clean(row.Text()),
					Status:      model.StatusPosted,
				}}
			}
		case 2:
			if cur == nil {
				perr = newParseError("activity", row, "label row outside of a transaction")
				return false
			}
			field, ok := transactionFields[Wordize(cells.Eq(0).Text())]
			if !ok {
				return true
			}
			cur.fields++
			if err := cur.set(field, clean(cells.Eq(1).Text())); err != nil {
				perr = newParseError("activity", row, "%v", err)
				return false
			}
		default:
			perr = newParseError("activity", row, "unexpected row with %d cells", cells.Length())
			return false
		}
		return true
	})
	if perr != nil {
		return nil, perr
	}
	// A lone one-cell row is a notice such as "no activity".
	if cur != nil && cur.fields > 0 {
		return nil, newParseError("activity", tables.Last(), "transaction %q is not terminated", cur.txn.Description)
	}
	return txns, nil
}

func (b *transactionBuilder) set(field, value string) error {
	if value == "" || value == "--" {
		return nil
	}
	switch field {
	case "date":
		if value == "Pending" {
			b.txn.Status = model.StatusPending
			return nil
		}
		t, err := time.Parse(siteDateFormat, value)
		if err != nil {
			return err
		}
		b.txn.Date = t
	case "amount":
		d, err := parseMoney(value)
		if err != nil {
			return err
		}
		b.txn.Amount = d
		b.hasAmount = true
	case "balance":
		d, err := parseMoney(value)
		if err != nil {
			return err
		}
		b.txn.Balance = &d
	case "category":
		b.txn.Category = value
	case "memo":
		b.txn.Memo = value
	case "reference":
		b.txn.Reference = value
	}
	return nil
}

// NextPageURL returns the href of the "Next" link on an activity page.
func NextPageURL(html string) (string, bool) {
	doc, err := load(html, "activity")
	if err != nil {
		return "", false
	}
	var href string
	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if clean(a.Text()) != "Next" {
			return true
		}
		href, _ = a.Attr("href")
		return false
	})
	return href, href != ""
}
