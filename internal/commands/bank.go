package commands

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/coba-dev/coba/internal/auditlog"
	"github.com/coba-dev/coba/internal/banking"
	"github.com/coba-dev/coba/internal/browser"
	"github.com/coba-dev/coba/internal/command"
	"github.com/coba-dev/coba/internal/config"
	"github.com/coba-dev/coba/internal/logging"
	"github.com/coba-dev/coba/internal/prompt"
	"github.com/coba-dev/coba/internal/session"
)

// bank is everything one invocation needs to talk to the site.
type bank struct {
	cfg      *config.Config
	log      zerolog.Logger
	prompter *prompt.Prompter
	interp   *command.Interpreter
}

// open loads the config and builds the session, engine and interpreter.
// The password is asked for when neither the file nor COBA_PASSWORD has one.
func (a *app) open(cmd *cobra.Command, assumeYes bool) (*bank, error) {
	cfg, err := config.Resolve(a.configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Username == "" {
		return nil, fmt.Errorf("no username configured: run coba init or set COBA_USERNAME")
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if a.verbose {
		level = zerolog.DebugLevel
	}
	log := logging.New(cmd.ErrOrStderr(), level)

	p := prompt.New(a.in, cmd.ErrOrStderr(), prompt.WithAssumeYes(assumeYes))
	if cfg.Password == "" {
		pw, err := p.Password(cmd.Context(), cfg.Username)
		if err != nil {
			return nil, err
		}
		cfg.Password = pw
	}

	sessOpts := []session.Option{
		session.WithVerificationMethod(cfg.VerificationMethod()),
		session.WithMaxVerificationAttempts(cfg.MaxVerificationAttempts),
		session.WithLogger(log),
	}
	transport := a.transport
	if transport == nil {
		client, err := browser.NewClient(cfg.BaseURL,
			browser.WithUserAgent(cfg.UserAgent),
			browser.WithCookieFile(cfg.CookieFile),
		)
		if err != nil {
			return nil, fmt.Errorf("creating client: %w", err)
		}
		transport = client
		sessOpts = append(sessOpts, session.WithCookieStore(client))
	}

	creds := session.Credentials{Username: cfg.Username, Password: cfg.Password}
	s := session.New(transport, creds, p, sessOpts...)
	if _, err := s.Restore(); err != nil {
		log.Warn().Err(err).Msg("ignoring saved cookies")
	}

	engine := banking.New(s, p,
		banking.WithRecorder(auditlog.New(cfg.AuditLog)),
		banking.WithMaxPages(cfg.MaxPages),
		banking.WithLogger(log),
	)
	return &bank{cfg: cfg, log: log, prompter: p, interp: command.NewInterpreter(engine)}, nil
}

type runOptions struct {
	csv       bool
	assumeYes bool
}

// run parses tokens with the interpreter grammar, executes them and
// renders the result on stdout.
func (a *app) run(cmd *cobra.Command, tokens []string, opts runOptions) error {
	inv, err := command.Parse(tokens)
	if err != nil {
		return err
	}
	b, err := a.open(cmd, opts.assumeYes)
	if err != nil {
		return err
	}
	res, err := b.interp.Execute(cmd.Context(), inv)
	if errors.Is(err, banking.ErrDeclined) {
		return cancelled(cmd.OutOrStdout())
	}
	if err != nil {
		return err
	}
	if opts.csv {
		return res.RenderCSV(cmd.OutOrStdout())
	}
	return res.Render(cmd.OutOrStdout())
}

func tokens(kind command.Kind, args []string) []string {
	return append([]string{string(kind)}, args...)
}

func (a *app) newAccountsCommand() *cobra.Command {
	var pending bool

	cmd := &cobra.Command{
		Use:   "accounts [qualifier...]",
		Short: "List accounts with their balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			if pending {
				args = append([]string{"--pending"}, args...)
			}
			return a.run(cmd, tokens(command.KindAccounts, args), runOptions{})
		},
	}

	cmd.Flags().BoolVarP(&pending, "pending", "p", false, "subtract pending card charges from the available credit")

	return cmd
}

func (a *app) newDetailsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "details [qualifier...]",
		Short: "Show every property of the matching accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, tokens(command.KindDetails, args), runOptions{})
		},
	}
}

func (a *app) newTransactionsCommand() *cobra.Command {
	var csv bool

	cmd := &cobra.Command{
		Use:   "transactions [qualifier...] [since:DATE] [through:DATE] [min:AMOUNT] [max:AMOUNT] [contains:TEXT]",
		Short: "List transactions of the matching accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, tokens(command.KindTransactions, args), runOptions{csv: csv})
		},
	}

	cmd.Flags().BoolVar(&csv, "csv", false, "write CSV instead of a table")

	return cmd
}

func (a *app) newTransferCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "transfer AMOUNT from QUALIFIER... to QUALIFIER... [memo:TEXT] [date:DATE]",
		Short: "Move money between two of your accounts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, tokens(command.KindTransfer, args), runOptions{assumeYes: yes})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "submit without asking for confirmation")

	return cmd
}

func (a *app) newPayCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "pay AMOUNT|statement|minimum|current on QUALIFIER... with QUALIFIER...",
		Short: "Pay a credit card from a checking account",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, tokens(command.KindPay, args), runOptions{assumeYes: yes})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "submit without asking for confirmation")

	return cmd
}
