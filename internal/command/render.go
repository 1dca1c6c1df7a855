package command

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/coba-dev/coba/internal/banking"
	"github.com/coba-dev/coba/internal/export"
	"github.com/coba-dev/coba/internal/model"
)

// Render writes the result as text tables.
func (r *Result) Render(w io.Writer) error {
	switch r.Kind {
	case KindAccounts:
		return renderAccounts(w, r.Accounts, r.Pending)
	case KindDetails:
		return renderDetails(w, r.Accounts)
	case KindTransactions:
		return renderStatements(w, r.Statements)
	case KindTransfer, KindPay:
		return renderConfirmation(w, r.Kind, r.Confirmation)
	}
	return fmt.Errorf("nothing to render for %q", r.Kind)
}

// RenderCSV writes transactions as CSV. Other results have no CSV form.
func (r *Result) RenderCSV(w io.Writer) error {
	if r.Kind != KindTransactions {
		return fmt.Errorf("%s results cannot be written as CSV", r.Kind)
	}
	return export.WriteCSV(w, r.Statements)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func renderAccounts(w io.Writer, accts []model.Account, pending bool) error {
	if len(accts) == 0 {
		_, err := fmt.Fprintln(w, "No matching accounts.")
		return err
	}
	tw := newTable(w)
	if pending {
		fmt.Fprintln(tw, "ACCOUNT\tTYPE\tPRESENT\tAVAILABLE\tPENDING")
	} else {
		fmt.Fprintln(tw, "ACCOUNT\tTYPE\tPRESENT\tAVAILABLE")
	}
	for _, a := range accts {
		row := []string{a.String(), string(a.Category), model.FormatMoney(a.Present), model.FormatMoney(a.Available)}
		if pending {
			row = append(row, model.FormatMoney(a.PendingTotal))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func renderDetails(w io.Writer, accts []model.Account) error {
	if len(accts) == 0 {
		_, err := fmt.Fprintln(w, "No matching accounts.")
		return err
	}
	tw := newTable(w)
	for i, a := range accts {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "%s\n", a)
		var keys []string
		for k := range a.Properties {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(tw, "  %s\t%s\n", k, a.Properties[k])
		}
	}
	return tw.Flush()
}

func renderStatements(w io.Writer, statements []banking.Statement) error {
	if len(statements) == 0 {
		_, err := fmt.Fprintln(w, "No matching accounts.")
		return err
	}
	tw := newTable(w)
	for i, st := range statements {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "%s\n", st.Account)
		if len(st.Transactions) == 0 {
			fmt.Fprintln(tw, "  (no transactions)")
			continue
		}
		fmt.Fprintln(tw, "  DATE\tDESCRIPTION\tAMOUNT\tTYPE")
		for _, t := range st.Transactions {
			date := "pending"
			if !t.Pending() {
				date = t.Date.Format("2006-01-02")
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", date, t.Description, model.FormatMoney(t.Amount), t.Category)
		}
	}
	return tw.Flush()
}

func renderConfirmation(w io.Writer, kind Kind, c *model.Confirmation) error {
	if c == nil {
		return fmt.Errorf("%s has no confirmation", kind)
	}
	what := "Transfer"
	if kind == KindPay {
		what = "Payment"
	}
	if _, err := fmt.Fprintf(w, "%s of %s submitted. Confirmation number: %s\n", what, model.FormatMoney(c.Amount), c.Number); err != nil {
		return err
	}
	if c.Message != "" {
		if _, err := fmt.Fprintln(w, c.Message); err != nil {
			return err
		}
	}
	return nil
}
