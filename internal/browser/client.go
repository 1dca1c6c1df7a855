package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultUserAgent identifies the client to the bank.
const DefaultUserAgent = "coba/Go (+https://github.com/coba-dev/coba)"

const maxBodyBytes = 8 << 20

// StatusError is returned for HTTP responses with status 400 or above.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.Code)
}

// Client is the Transport used against the live site. Certificates are
// verified by the standard library defaults.
type Client struct {
	baseURL    *url.URL
	userAgent  string
	cookieFile string
	jar        *persistentJar
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithCookieFile persists cookies to path between runs.
func WithCookieFile(path string) Option {
	return func(c *Client) { c.cookieFile = path }
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient creates a Client that resolves relative links against baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parsing base url %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	jar, err := newPersistentJar()
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:   base,
		userAgent: DefaultUserAgent,
		jar:       jar,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get fetches rawURL, which may be relative to the base URL.
func (c *Client) Get(ctx context.Context, rawURL string) (*Page, error) {
	target, err := c.resolve(rawURL)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return c.do(req)
}

// PostForm submits fields url-encoded to action.
func (c *Client) PostForm(ctx context.Context, action string, fields url.Values) (*Page, error) {
	target, err := c.resolve(action)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(fields.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

// LoadCookies restores cookies saved by SaveCookies. It reports whether
// any cookie was restored; a missing file is not an error.
func (c *Client) LoadCookies() (bool, error) {
	if c.cookieFile == "" {
		return false, nil
	}
	return c.jar.load(c.cookieFile)
}

// SaveCookies writes the current cookies, session cookies included.
func (c *Client) SaveCookies() error {
	if c.cookieFile == "" {
		return nil
	}
	return c.jar.save(c.cookieFile, time.Now())
}

func (c *Client) resolve(rawURL string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parsing url %q: %w", rawURL, err)
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

func (c *Client) do(req *http.Request) (*Page, error) {
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &StatusError{Code: resp.StatusCode, URL: req.URL.Redacted()}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", req.URL.Redacted(), err)
	}
	return &Page{URL: resp.Request.URL.String(), Body: string(body)}, nil
}
