package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/coba-dev/coba/internal/session"
)

// FileName is the config file looked up in the working directory.
const FileName = "coba.yaml"

// DefaultBaseURL is the mobile banking site.
const DefaultBaseURL = "https://mobilebanking.chase.com"

// Config represents the coba.yaml configuration.
type Config struct {
	Username                string `yaml:"username"`
	Password                string `yaml:"password,omitempty"`
	CookieFile              string `yaml:"cookie_file"`
	Verification            string `yaml:"verification"` // sms, call or email
	UserAgent               string `yaml:"user_agent,omitempty"`
	BaseURL                 string `yaml:"base_url"`
	AuditLog                string `yaml:"audit_log"`
	MaxVerificationAttempts int    `yaml:"max_verification_attempts"`
	MaxPages                int    `yaml:"max_pages"`
	LogLevel                string `yaml:"log_level"`
}

// Load reads a coba.yaml file from disk. Fields missing from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file. The file may hold a password, so it
// is only readable by the owner.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new setup.
func Default(username string) *Config {
	return &Config{
		Username:                username,
		CookieFile:              "cookies.json",
		Verification:            string(session.MethodEmail),
		BaseURL:                 DefaultBaseURL,
		AuditLog:                "audit.csv",
		MaxVerificationAttempts: session.DefaultMaxVerificationAttempts,
		MaxPages:                100,
		LogLevel:                "warn",
	}
}

// Resolve loads path if it exists, applies COBA_* environment overrides,
// makes file paths absolute relative to the config file and validates the
// result. A missing file yields the defaults.
func Resolve(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = Default(""), nil
	}
	if err != nil {
		return nil, err
	}
	ApplyEnv(cfg)

	dir := filepath.Dir(path)
	cfg.CookieFile = absPath(dir, cfg.CookieFile)
	cfg.AuditLog = absPath(dir, cfg.AuditLog)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var stringEnv = []string{"username", "password", "cookie_file", "verification", "user_agent", "base_url", "audit_log", "log_level"}

var intEnv = []string{"max_verification_attempts", "max_pages"}

// ApplyEnv overrides cfg with non-empty COBA_* environment variables,
// e.g. COBA_PASSWORD.
func ApplyEnv(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix("coba")
	for _, key := range append(stringEnv, intEnv...) {
		_ = v.BindEnv(key)
	}

	strs := map[string]*string{
		"username":     &cfg.Username,
		"password":     &cfg.Password,
		"cookie_file":  &cfg.CookieFile,
		"verification": &cfg.Verification,
		"user_agent":   &cfg.UserAgent,
		"base_url":     &cfg.BaseURL,
		"audit_log":    &cfg.AuditLog,
		"log_level":    &cfg.LogLevel,
	}
	for _, key := range stringEnv {
		if s := v.GetString(key); s != "" {
			*strs[key] = s
		}
	}

	ints := map[string]*int{
		"max_verification_attempts": &cfg.MaxVerificationAttempts,
		"max_pages":                 &cfg.MaxPages,
	}
	for _, key := range intEnv {
		if n := v.GetInt(key); n > 0 {
			*ints[key] = n
		}
	}
}

// Validate checks values that would otherwise fail deep inside a login.
func (c *Config) Validate() error {
	if _, err := session.ParseVerificationMethod(c.Verification); err != nil {
		return fmt.Errorf("verification: %w", err)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url %q must be an absolute URL", c.BaseURL)
	}
	if c.MaxVerificationAttempts < 1 {
		return fmt.Errorf("max_verification_attempts must be at least 1, got %d", c.MaxVerificationAttempts)
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("max_pages must be at least 1, got %d", c.MaxPages)
	}
	return nil
}

// VerificationMethod returns the parsed verification setting.
func (c *Config) VerificationMethod() session.VerificationMethod {
	m, err := session.ParseVerificationMethod(c.Verification)
	if err != nil {
		return session.MethodEmail
	}
	return m
}

func absPath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
