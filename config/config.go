package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopuda/shopclient/dto"
)

const (
	EnvBaseURL      = "SHOPUDA_BASE_URL"
	EnvTimeout      = "SHOPUDA_REQUEST_TIMEOUT"
	EnvUserAgent    = "SHOPUDA_USER_AGENT"
	EnvStorageDir   = "SHOPUDA_STORAGE_DIR"
	EnvExtraHeaders = "SHOPUDA_EXTRA_HEADERS"
	EnvLogLevel     = "SHOPUDA_LOG_LEVEL"
)

const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultUserAgent      = "shopuda-client/1.0"
	defaultAppDirName     = "shopuda"
)

// SvcConfig configures the store client. Build with DefaultSvcConfig and the
// With* modifiers, or FromEnv for SHOPUDA_* environment variables.
type SvcConfig struct {
	BaseURL        string           `json:"base_url" yaml:"base_url"`
	RequestTimeout time.Duration    `json:"request_timeout" yaml:"request_timeout"`
	UserAgent      string           `json:"user_agent" yaml:"user_agent"`
	ExtraHeaders   dto.ExtraHeaders `json:"extra_headers,omitempty" yaml:"extra_headers,omitempty"`
	// StorageDir holds the persisted credential file. Empty means
	// os.UserConfigDir()/shopuda; unusable storage degrades to memory-only.
	StorageDir string `json:"storage_dir,omitempty" yaml:"storage_dir,omitempty"`
	// Source overrides the stored credential pair when set.
	Source dto.CredentialSource `json:"-" yaml:"-"`
	Logger zerolog.Logger       `json:"-" yaml:"-"`
}

func DefaultSvcConfig() SvcConfig {
	return SvcConfig{
		RequestTimeout: DefaultRequestTimeout,
		UserAgent:      DefaultUserAgent,
		ExtraHeaders:   dto.ExtraHeaders{},
		Logger:         zerolog.Nop(),
	}
}

// FromEnv layers SHOPUDA_* variables over the defaults.
func FromEnv() (SvcConfig, error) {
	cfg := DefaultSvcConfig()

	cfg.BaseURL = os.Getenv(EnvBaseURL)
	if ua := os.Getenv(EnvUserAgent); ua != "" {
		cfg.UserAgent = ua
	}
	if dir := os.Getenv(EnvStorageDir); dir != "" {
		cfg.StorageDir = dir
	}
	if raw := os.Getenv(EnvTimeout); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return cfg, err
		}
		cfg.RequestTimeout = d
	}
	if raw := os.Getenv(EnvExtraHeaders); raw != "" {
		if err := cfg.ExtraHeaders.Set(raw); err != nil {
			return cfg, err
		}
	}
	if raw := os.Getenv(EnvLogLevel); raw != "" {
		level, err := zerolog.ParseLevel(raw)
		if err != nil {
			return cfg, err
		}
		cfg.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)
	}
	return cfg, nil
}

func (c *SvcConfig) WithBaseURL(u string) *SvcConfig {
	c.BaseURL = u
	return c
}

func (c *SvcConfig) WithRequestTimeout(d time.Duration) *SvcConfig {
	c.RequestTimeout = d
	return c
}

func (c *SvcConfig) WithUserAgent(ua string) *SvcConfig {
	c.UserAgent = ua
	return c
}

func (c *SvcConfig) WithExtraHeader(k, v string) *SvcConfig {
	if c.ExtraHeaders == nil {
		c.ExtraHeaders = dto.ExtraHeaders{}
	}
	c.ExtraHeaders[k] = v
	return c
}

func (c *SvcConfig) WithStorageDir(dir string) *SvcConfig {
	c.StorageDir = dir
	return c
}

func (c *SvcConfig) WithSource(src dto.CredentialSource) *SvcConfig {
	c.Source = src
	return c
}

func (c *SvcConfig) WithLogger(l zerolog.Logger) *SvcConfig {
	c.Logger = l
	return c
}

func (c *SvcConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("no base URL configured")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	return nil
}

// ResolveStorageDir returns the effective credential directory, falling back
// to the per-user config dir. An error means persistence is unavailable and
// the credential store runs memory-only.
func (c *SvcConfig) ResolveStorageDir() (string, error) {
	if c.StorageDir != "" {
		return c.StorageDir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, defaultAppDirName), nil
}
