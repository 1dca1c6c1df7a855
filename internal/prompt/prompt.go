// Package prompt asks the user for verification codes, confirmations and
// passwords on a terminal or any reader/writer pair.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/coba-dev/coba/internal/session"
)

// Prompter implements session.Verifier and banking.Confirmer.
type Prompter struct {
	in        *bufio.Reader
	out       io.Writer
	fd        int
	assumeYes bool
}

// Option configures a Prompter.
type Option func(*Prompter)

// WithAssumeYes answers every confirmation with yes without asking.
func WithAssumeYes(yes bool) Option {
	return func(p *Prompter) { p.assumeYes = yes }
}

// New returns a Prompter reading answers from in and writing questions to
// out. When in is a terminal, passwords are read without echo.
func New(in io.Reader, out io.Writer, opts ...Option) *Prompter {
	p := &Prompter{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ReadLine reads one trimmed line of input. A final line without a newline
// is returned without error.
func (p *Prompter) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// VerificationCode asks for the activation code the site sent. Running out
// of input yields an empty code.
func (p *Prompter) VerificationCode(ctx context.Context, method session.VerificationMethod) (string, error) {
	fmt.Fprintf(p.out, "Enter the verification code sent by %s: ", method)
	code, err := p.ReadLine(ctx)
	if errors.Is(err, io.EOF) {
		return "", nil
	}
	return code, err
}

// Confirm shows summary and asks for a yes/no answer. No answer is no.
func (p *Prompter) Confirm(ctx context.Context, summary string) (bool, error) {
	fmt.Fprintln(p.out, summary)
	if p.assumeYes {
		return true, nil
	}
	fmt.Fprint(p.out, "Proceed? [y/N] ")
	answer, err := p.ReadLine(ctx)
	if errors.Is(err, io.EOF) {
		fmt.Fprintln(p.out)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Password asks for the bank password, without echo on a terminal.
func (p *Prompter) Password(ctx context.Context, username string) (string, error) {
	fmt.Fprintf(p.out, "Password for %s: ", username)
	if p.fd >= 0 {
		b, err := term.ReadPassword(p.fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}
	pw, err := p.ReadLine(ctx)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return pw, nil
}
