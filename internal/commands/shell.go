package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coba-dev/coba/internal/banking"
	"github.com/coba-dev/coba/internal/command"
)

func (a *app) newShellCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Read commands line by line over one session",
		Long: `Read commands line by line and run them over one logged-in session.
Type "help" for the command grammar and "exit" to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runShell(cmd, yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "submit transfers and payments without asking")

	return cmd
}

func (a *app) runShell(cmd *cobra.Command, assumeYes bool) error {
	b, err := a.open(cmd, assumeYes)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	for {
		fmt.Fprint(errOut, "coba> ")
		line, err := b.prompter.ReadLine(ctx)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(errOut)
			return nil
		}
		if err != nil {
			return err
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "help":
			printUsage(out)
			continue
		}

		res, err := b.interp.Run(ctx, line)
		switch {
		case errors.Is(err, banking.ErrDeclined):
			if err := cancelled(out); err != nil {
				return err
			}
		case err != nil:
			b.log.Debug().Err(err).Str("line", line).Msg("command failed")
			fmt.Fprintf(errOut, "error: %v\n", err)
		default:
			if err := res.Render(out); err != nil {
				return err
			}
		}
	}
}

func printUsage(w io.Writer) {
	for _, k := range command.Kinds {
		fmt.Fprintf(w, "  %s\n", command.Usage[k])
	}
	fmt.Fprintln(w, "  exit")
}
