package browser

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"sort"
	"sync"
	"time"
)

// storedCookie is one line of the cookie file.
type storedCookie struct {
	URL      string    `json:"url"`
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain,omitempty"`
	Path     string    `json:"path,omitempty"`
	Expires  time.Time `json:"expires,omitzero"`
	Secure   bool      `json:"secure,omitempty"`
	HTTPOnly bool      `json:"http_only,omitempty"`
}

// persistentJar is a cookiejar.Jar that remembers every cookie it was given
// so the full set can be written out. cookiejar.Jar only hands back
// name/value pairs per URL.
type persistentJar struct {
	mu      sync.Mutex
	jar     *cookiejar.Jar
	entries map[string]storedCookie
}

func newPersistentJar() (*persistentJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	return &persistentJar{jar: jar, entries: make(map[string]storedCookie)}, nil
}

func (j *persistentJar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

func (j *persistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.jar.SetCookies(u, cookies)

	j.mu.Lock()
	defer j.mu.Unlock()
	now := time.Now()
	origin := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}).String()
	for _, c := range cookies {
		domain := c.Domain
		if domain == "" {
			domain = u.Host
		}
		key := domain + "|" + c.Path + "|" + c.Name
		if c.MaxAge < 0 {
			delete(j.entries, key)
			continue
		}
		expires := c.Expires
		if c.MaxAge > 0 {
			expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}
		j.entries[key] = storedCookie{
			URL:      origin,
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  expires,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		}
	}
}

// save writes unexpired cookies to path. Session cookies are kept so a later
// run can resume the same login.
func (j *persistentJar) save(path string, now time.Time) error {
	j.mu.Lock()
	stored := make([]storedCookie, 0, len(j.entries))
	for _, c := range j.entries {
		if !c.Expires.IsZero() && c.Expires.Before(now) {
			continue
		}
		stored = append(stored, c)
	}
	j.mu.Unlock()

	sort.Slice(stored, func(a, b int) bool {
		if stored[a].Domain != stored[b].Domain {
			return stored[a].Domain < stored[b].Domain
		}
		if stored[a].Path != stored[b].Path {
			return stored[a].Path < stored[b].Path
		}
		return stored[a].Name < stored[b].Name
	})

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cookies: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing cookie file: %w", err)
	}
	return nil
}

func (j *persistentJar) load(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading cookie file: %w", err)
	}

	var stored []storedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		return false, fmt.Errorf("parsing cookie file %s: %w", path, err)
	}

	now := time.Now()
	restored := 0
	for _, s := range stored {
		if !s.Expires.IsZero() && s.Expires.Before(now) {
			continue
		}
		u, err := url.Parse(s.URL)
		if err != nil {
			return false, fmt.Errorf("cookie %s: parsing url %q: %w", s.Name, s.URL, err)
		}
		j.SetCookies(u, []*http.Cookie{{
			Name:     s.Name,
			Value:    s.Value,
			Domain:   s.Domain,
			Path:     s.Path,
			Expires:  s.Expires,
			Secure:   s.Secure,
			HttpOnly: s.HTTPOnly,
		}})
		restored++
	}
	return restored > 0, nil
}
