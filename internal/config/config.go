// Package config loads the console settings from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/technosupport/cctv-console/internal/camapi"
	"github.com/technosupport/cctv-console/internal/ratelimit"
)

const DefaultPath = "config/console.yaml"

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Environment struct {
		Mode    string `yaml:"mode"`
		PageURL string `yaml:"page_url"`
	} `yaml:"environment"`

	API struct {
		// BaseURL skips environment-based selection when set.
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"api"`

	Server struct {
		Addr           string        `yaml:"addr"`
		BasePath       string        `yaml:"base_path"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"server"`

	Logging LoggingConfig `yaml:"logging"`

	RateLimit struct {
		RedisAddr string                `yaml:"redis_addr"`
		Salt      string                `yaml:"salt"`
		Actions   ratelimit.LimitConfig `yaml:"actions"`
	} `yaml:"rate_limit"`

	Events struct {
		NatsURL         string `yaml:"nats_url"`
		Subject         string `yaml:"subject"`
		PublishRetryMax int    `yaml:"publish_retry_max"`
	} `yaml:"events"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() Config {
	var c Config
	c.Environment.Mode = camapi.ModeProduction
	// Pages are served through the reverse proxy on :80, which also routes
	// /api to the backend. The console itself listens on :8080.
	c.Environment.PageURL = "http://localhost"
	c.API.Timeout = camapi.DefaultTimeout
	c.Server.Addr = ":8080"
	c.Server.BasePath = "/"
	c.Server.RequestTimeout = 30 * time.Second
	c.Logging = LoggingConfig{Level: "info", Format: "json"}
	c.RateLimit.Actions = ratelimit.LimitConfig{Rate: 30, Window: time.Minute}
	c.Events.Subject = "cctv.cameras.events"
	c.Events.PublishRetryMax = 3
	return c
}

// Load reads path (a missing file is fine), applies environment overrides
// and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Path returns CONSOLE_CONFIG or DefaultPath.
func Path() string {
	if p := os.Getenv("CONSOLE_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	set("CONSOLE_MODE", &c.Environment.Mode)
	set("CONSOLE_PAGE_URL", &c.Environment.PageURL)
	set("CONSOLE_API_URL", &c.API.BaseURL)
	set("CONSOLE_BASE_PATH", &c.Server.BasePath)
	set("LOG_LEVEL", &c.Logging.Level)
	set("LOG_FORMAT", &c.Logging.Format)
	set("REDIS_ADDR", &c.RateLimit.RedisAddr)
	set("NATS_URL", &c.Events.NatsURL)
	set("NATS_SUBJECT", &c.Events.Subject)

	if v, ok := lookup("PORT"); ok && v != "" {
		c.Server.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	if v, ok := lookup("API_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: API_TIMEOUT %q: %v", ErrInvalidConfig, v, err)
		}
		c.API.Timeout = d
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.Environment.Mode {
	case camapi.ModeDevelopment, camapi.ModeProduction:
	default:
		errs = append(errs, fmt.Errorf("environment.mode %q: want %s or %s", c.Environment.Mode, camapi.ModeDevelopment, camapi.ModeProduction))
	}
	if u, err := url.Parse(c.Environment.PageURL); err != nil || !u.IsAbs() {
		errs = append(errs, fmt.Errorf("environment.page_url %q is not an absolute URL", c.Environment.PageURL))
	}
	if c.backendIsSelf() {
		errs = append(errs, fmt.Errorf("environment.page_url %q sends backend calls to server.addr %q; set api.base_url", c.Environment.PageURL, c.Server.Addr))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout))
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		errs = append(errs, fmt.Errorf("server.base_path %q must start with /", c.Server.BasePath))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q: want json or console", c.Logging.Format))
	}
	if c.RateLimit.RedisAddr != "" && !c.RateLimit.Actions.Enabled() {
		errs = append(errs, fmt.Errorf("rate_limit.actions needs a positive rate and window"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// backendIsSelf reports whether the resolved backend URL is the console's
// own listener on the loopback interface.
func (c Config) backendIsSelf() bool {
	base, err := c.APIBaseURL()
	if err != nil {
		return false
	}
	u, err := url.Parse(base)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
	default:
		return false
	}
	port := u.Port()
	if port == "" {
		port = map[string]string{"http": "80", "https": "443"}[u.Scheme]
	}
	host, listenPort, err := net.SplitHostPort(c.Server.Addr)
	if err != nil || listenPort != port {
		return false
	}
	switch host {
	case "", "0.0.0.0", "::", "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// APIBaseURL returns api.base_url when set, otherwise the URL chosen from
// the environment.
func (c Config) APIBaseURL() (string, error) {
	if c.API.BaseURL != "" {
		return c.API.BaseURL, nil
	}
	return camapi.ResolveBaseURL(camapi.Environment{
		Mode:    c.Environment.Mode,
		PageURL: c.Environment.PageURL,
	})
}
