package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/coba-dev/coba/internal/browser"
	"github.com/coba-dev/coba/internal/buildinfo"
	"github.com/coba-dev/coba/internal/config"
)

// app holds the root flags and the collaborators tests may replace.
type app struct {
	configPath string
	verbose    bool
	transport  browser.Transport
	in         io.Reader
}

// Option configures the root command.
type Option func(*app)

// WithTransport replaces the HTTP client, e.g. with a scripted site.
func WithTransport(t browser.Transport) Option {
	return func(a *app) { a.transport = t }
}

// WithInput sets where passwords, codes and confirmations are read from.
func WithInput(r io.Reader) Option {
	return func(a *app) { a.in = r }
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand(opts ...Option) *cobra.Command {
	a := &app{in: os.Stdin}
	for _, opt := range opts {
		opt(a)
	}

	rootCmd := &cobra.Command{
		Use:     "coba",
		Short:   "Command-line banking against the Chase mobile site",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", config.FileName, "config file")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	rootCmd.AddCommand(
		newInitCommand(),
		a.newAccountsCommand(),
		a.newDetailsCommand(),
		a.newTransactionsCommand(),
		a.newTransferCommand(),
		a.newPayCommand(),
		a.newShellCommand(),
		a.newHistoryCommand(),
	)

	return rootCmd
}

func cancelled(w io.Writer) error {
	_, err := fmt.Fprintln(w, "Cancelled.")
	return err
}
