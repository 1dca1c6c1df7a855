// Package session keeps an authenticated connection to the bank's mobile
// site alive: it runs the login handshake, including identity verification,
// notices when the site has logged us out, and logs in again on demand.
package session

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/coba-dev/coba/internal/browser"
	"github.com/coba-dev/coba/internal/page"
)

const (
	DefaultLogOnURL                = "/Public/Home/LogOn"
	DefaultMaxVerificationAttempts = 3
)

// Credentials are held in memory only.
type Credentials struct {
	Username string
	Password string
}

// String omits the password so credentials are safe to print.
func (c Credentials) String() string {
	return c.Username + ":****"
}

// Verifier supplies the out-of-band verification code. It may block until
// the user has received and typed the code.
type Verifier interface {
	VerificationCode(ctx context.Context, method VerificationMethod) (string, error)
}

// CookieStore persists the transport's cookies between runs.
type CookieStore interface {
	LoadCookies() (bool, error)
	SaveCookies() error
}

// Option configures a Session.
type Option func(*Session)

// WithVerificationMethod sets how activation codes are delivered.
func WithVerificationMethod(m VerificationMethod) Option {
	return func(s *Session) { s.method = m }
}

// WithMaxVerificationAttempts bounds the number of codes tried per login.
func WithMaxVerificationAttempts(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithLogOnURL overrides the logon page location.
func WithLogOnURL(u string) Option {
	return func(s *Session) { s.logOnURL = u }
}

// WithCookieStore enables cookie persistence.
func WithCookieStore(c CookieStore) Option {
	return func(s *Session) { s.cookies = c }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// Session is one authenticated connection. Its methods are safe to call
// from several goroutines, but only one login handshake runs at a time.
type Session struct {
	transport   browser.Transport
	creds       Credentials
	verifier    Verifier
	method      VerificationMethod
	maxAttempts int
	logOnURL    string
	cookies     CookieStore
	log         zerolog.Logger

	mu    sync.Mutex
	state State

	loginMu sync.Mutex
}

// New creates a logged-out Session.
func New(t browser.Transport, creds Credentials, v Verifier, opts ...Option) *Session {
	s := &Session{
		transport:   t,
		creds:       creds,
		verifier:    v,
		method:      MethodEmail,
		maxAttempts: DefaultMaxVerificationAttempts,
		logOnURL:    DefaultLogOnURL,
		log:         zerolog.Nop(),
		state:       LoggedOut,
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With().Str("component", "session").Logger()
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) transition(to State) error {
	s.mu.Lock()
	from := s.state
	if !CanTransition(from, to) {
		s.mu.Unlock()
		return &TransitionError{From: from, To: to}
	}
	s.state = to
	s.mu.Unlock()

	if from != to {
		s.log.Debug().Stringer("from", from).Stringer("to", to).Msg("session state")
	}
	return nil
}

// Restore loads persisted cookies. When cookies were found the session is
// assumed Authenticated until the site says otherwise.
func (s *Session) Restore() (bool, error) {
	if s.cookies == nil {
		return false, nil
	}
	ok, err := s.cookies.LoadCookies()
	if err != nil {
		return false, fmt.Errorf("restoring cookies: %w", err)
	}
	if !ok {
		return false, nil
	}
	if s.State() == LoggedOut {
		if err := s.transition(Authenticated); err != nil {
			return false, err
		}
	}
	s.log.Debug().Msg("restored cookies")
	return true, nil
}

// EnsureAuthenticated logs in unless the session is already Authenticated.
func (s *Session) EnsureAuthenticated(ctx context.Context) error {
	if s.State() == Authenticated {
		return nil
	}
	return s.Login(ctx)
}

// Login runs the full handshake with the stored credentials. The verifier
// is consulted only if the site asks for an activation code.
func (s *Session) Login(ctx context.Context) error {
	if !s.loginMu.TryLock() {
		return ErrLoginInProgress
	}
	defer s.loginMu.Unlock()

	if s.State() == Authenticated {
		if err := s.transition(LoggedOut); err != nil {
			return err
		}
	}
	if err := s.handshake(ctx); err != nil {
		_ = s.transition(LoggedOut)
		return err
	}
	if err := s.transition(Authenticated); err != nil {
		return err
	}
	s.log.Info().Str("method", string(s.method)).Msg("logged in")
	s.saveCookies()
	return nil
}

func (s *Session) handshake(ctx context.Context) error {
	logon, err := s.transport.Get(ctx, s.logOnURL)
	if err != nil {
		return fmt.Errorf("fetching logon page: %w", err)
	}
	if !page.IsLoginPage(logon.Body) {
		// Cookies we did not know about are still valid.
		return nil
	}

	form, err := page.FindForm(logon.Body, "#auth_form")
	if err != nil {
		return fmt.Errorf("reading logon form: %w", err)
	}
	form = form.Set("auth_userId", s.creds.Username).Set("auth_passwd", s.creds.Password)
	resp, err := s.post(ctx, form)
	if err != nil {
		return fmt.Errorf("submitting credentials: %w", err)
	}

	if page.NeedsVerification(resp.Body) {
		if err := s.transition(AwaitingVerification); err != nil {
			return err
		}
		if resp, err = s.verify(ctx, resp); err != nil {
			return err
		}
	}
	if page.IsLoginPage(resp.Body) {
		msg, _ := page.SiteMessage(resp.Body)
		return &LoginError{Message: msg}
	}
	return nil
}

// verify asks for an activation code to be delivered and submits the codes
// the verifier supplies until one is accepted.
func (s *Session) verify(ctx context.Context, prompt *browser.Page) (*browser.Page, error) {
	form, err := page.FindForm(prompt.Body, `form[action*="EnterActivationCode"]`)
	if err != nil {
		return nil, fmt.Errorf("reading activation form: %w", err)
	}
	options, err := s.post(ctx, form.Click("Next"))
	if err != nil {
		return nil, fmt.Errorf("requesting activation code: %w", err)
	}

	link, ok := page.FindLinkFunc(options.Body, s.method.matchesLink)
	if !ok {
		return nil, fmt.Errorf("site offers no %s delivery for activation codes", s.method)
	}
	current, err := s.transport.Get(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("sending activation code by %s: %w", s.method, err)
	}
	s.log.Info().Str("method", string(s.method)).Msg("activation code requested")

	var lastMsg string
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if page.IsLoginPage(current.Body) {
			msg, _ := page.SiteMessage(current.Body)
			return nil, &LoginError{Message: msg}
		}
		if !page.IsVerificationForm(current.Body) {
			return current, nil
		}

		code, err := s.verifier.VerificationCode(ctx, s.method)
		if err != nil {
			return nil, fmt.Errorf("reading verification code: %w", err)
		}
		code = strings.TrimSpace(code)
		if code == "" {
			return nil, &VerificationFailedError{Attempts: attempt, Message: "no code entered"}
		}

		form, err := page.FindFormWith(current.Body, "auth_otp")
		if err != nil {
			return nil, fmt.Errorf("reading verification form: %w", err)
		}
		form = form.Set("auth_otp", code).Set("auth_passwd", s.creds.Password)
		if form.Has("Next") {
			form = form.Click("Next")
		}
		if current, err = s.post(ctx, form); err != nil {
			return nil, fmt.Errorf("submitting verification code: %w", err)
		}
		if page.IsVerificationForm(current.Body) {
			lastMsg, _ = page.SiteMessage(current.Body)
			s.log.Warn().Int("attempt", attempt).Str("site_message", lastMsg).Msg("verification code rejected")
		}
	}
	if page.IsVerificationForm(current.Body) {
		return nil, &VerificationFailedError{Attempts: s.maxAttempts, Message: lastMsg}
	}
	return current, nil
}

// Fetch loads url, logging in first if needed. When the site answers with
// its logon page the session becomes Expired and ErrSessionExpired is
// returned; the caller decides whether to retry.
func (s *Session) Fetch(ctx context.Context, rawURL string) (*browser.Page, error) {
	if err := s.EnsureAuthenticated(ctx); err != nil {
		return nil, err
	}
	p, err := s.transport.Get(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	return s.checkAlive(p)
}

// Submit sends form. It is never retried here: a submission may have had
// effects on the site even if the session expired.
func (s *Session) Submit(ctx context.Context, form browser.Form) (*browser.Page, error) {
	if err := s.EnsureAuthenticated(ctx); err != nil {
		return nil, err
	}
	p, err := s.post(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("submitting %s: %w", form.Action, err)
	}
	return s.checkAlive(p)
}

func (s *Session) checkAlive(p *browser.Page) (*browser.Page, error) {
	if page.IsLoginPage(p.Body) {
		if err := s.transition(Expired); err != nil {
			return nil, err
		}
		s.log.Warn().Str("url", p.URL).Msg("session expired")
		return nil, ErrSessionExpired
	}
	s.saveCookies()
	return p, nil
}

func (s *Session) post(ctx context.Context, form browser.Form) (*browser.Page, error) {
	if form.Method == "get" {
		u, err := url.Parse(form.Action)
		if err != nil {
			return nil, fmt.Errorf("parsing form action: %w", err)
		}
		u.RawQuery = form.Fields.Encode()
		return s.transport.Get(ctx, u.String())
	}
	return s.transport.PostForm(ctx, form.Action, form.Fields)
}

func (s *Session) saveCookies() {
	if s.cookies == nil {
		return
	}
	if err := s.cookies.SaveCookies(); err != nil {
		s.log.Warn().Err(err).Msg("saving cookies")
	}
}
