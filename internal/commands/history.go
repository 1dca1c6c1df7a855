package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/coba-dev/coba/internal/auditlog"
	"github.com/coba-dev/coba/internal/config"
	"github.com/coba-dev/coba/internal/model"
)

func (a *app) newHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show transfers and payments submitted from this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Resolve(a.configPath)
			if err != nil {
				return err
			}
			entries, err := auditlog.Read(cfg.AuditLog)
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), entries)
		},
	}
}

func printHistory(w io.Writer, entries []auditlog.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No submissions recorded.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tOPERATION\tAMOUNT\tFROM\tTO\tSTATUS\tDETAIL")
	for _, e := range entries {
		detail := e.Number
		if e.Status == auditlog.StatusRejected {
			detail = e.Reason
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Format("2006-01-02 15:04"), e.Operation, model.FormatMoney(e.Amount), e.From, e.To, e.Status, detail)
	}
	return tw.Flush()
}
