// Package export writes account activity as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/coba-dev/coba/internal/banking"
	"github.com/coba-dev/coba/internal/model"
)

const dateFormat = "01/02/2006"

// Header is the CSV header row. The first columns follow the bank's own
// download format.
var Header = []string{
	"Details", "Posting Date", "Description", "Amount", "Type", "Balance",
	"Account", "Status", "Memo", "Reference",
}

const (
	colDetails = iota
	colDate
	colDesc
	colAmount
	colType
	colBalance
	colAccount
	colStatus
	colMemo
	colRef
	numFields
)

// WriteCSV writes every transaction of every statement, in statement order.
func WriteCSV(w io.Writer, statements []banking.Statement) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, st := range statements {
		for i, t := range st.Transactions {
			if err := cw.Write(Row(t)); err != nil {
				return fmt.Errorf("writing %s row %d: %w", st.Account, i+1, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// Row converts a transaction to a CSV record.
func Row(t model.Transaction) []string {
	row := make([]string, numFields)
	row[colDetails] = "DEBIT"
	if t.Amount.IsNegative() {
		row[colDetails] = "CREDIT"
	}
	if !t.Pending() && !t.Date.IsZero() {
		row[colDate] = t.Date.Format(dateFormat)
	}
	row[colDesc] = t.Description
	row[colAmount] = t.Amount.StringFixed(2)
	row[colType] = t.Category
	if t.Balance != nil {
		row[colBalance] = t.Balance.StringFixed(2)
	}
	row[colAccount] = t.Account.String()
	row[colStatus] = string(t.Status)
	row[colMemo] = t.Memo
	row[colRef] = t.Reference
	if row[colRef] == "" && !t.Date.IsZero() {
		row[colRef] = makeRef(t.Date, t.Description)
	}
	return row
}

// makeRef creates a reference like chase_20140105_BESTBUY000 for rows
// the site gave no transaction number.
func makeRef(date time.Time, desc string) string {
	prefix := strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, desc)
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	return fmt.Sprintf("chase_%s_%s", date.Format("20060102"), prefix)
}
