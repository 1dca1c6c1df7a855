package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/coba-dev/coba/internal/config"
)

func newInitCommand() *cobra.Command {
	var username string
	var verification string
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a starter coba.yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.OutOrStdout(), absDir, username, verification, force)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "bank username (required)")
	_ = cmd.MarkFlagRequired("username")
	cmd.Flags().StringVar(&verification, "verification", "email", "how activation codes are delivered: sms, call or email")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")

	return cmd
}

func runInit(w io.Writer, dir, username, verification string, force bool) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	path := filepath.Join(dir, config.FileName)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	cfg := config.Default(username)
	cfg.Verification = verification
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}

	// Cookies hold a live session.
	ignore := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(ignore); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(ignore, []byte(cfg.CookieFile+"\n.env\n"), 0o644); err != nil {
			return fmt.Errorf("writing .gitignore: %w", err)
		}
	}

	_, err := fmt.Fprintf(w, "Wrote %s\n", path)
	return err
}
