package types

import (
	"errors"
	"net/url"
	"time"
)

// Config holds everything the roster binary reads from config.yaml and the
// environment. Stores only look at Backend, DataDir, and RedisAddr.
type Config struct {
	Backend        string        `json:"backend" yaml:"backend"`
	DataDir        string        `json:"data_dir" yaml:"data_dir"`
	RedisAddr      string        `json:"redis_addr" yaml:"redis_addr"`
	ProxyURL       string        `json:"proxy_url" yaml:"proxy_url"`
	Listen         string        `json:"listen" yaml:"listen"`
	APIPrefix      string        `json:"api_prefix" yaml:"api_prefix"`
	UpstreamURL    string        `json:"upstream_url" yaml:"upstream_url"`
	UpstreamListen string        `json:"upstream_listen" yaml:"upstream_listen"`
	UpstreamPrefix string        `json:"upstream_prefix" yaml:"upstream_prefix"`
	Theme          string        `json:"theme" yaml:"theme"`
	Timeout        time.Duration `json:"timeout" yaml:"timeout"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Supported themes.
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrThemeUnknown   = errors.New("unknown theme")
	ErrURLInvalid     = errors.New("invalid URL")
	ErrTimeoutInvalid = errors.New("timeout must not be negative")
)

var knownBackends = map[string]bool{
	BackendSQLite: true,
	BackendRedis:  true,
}

var knownThemes = map[string]bool{
	"":          true,
	ThemeLight:  true,
	ThemeDark:   true,
	ThemeSystem: true,
}

// Validate checks that the Config is well-formed. Empty URLs are allowed so a
// store-only config validates; non-empty ones must be absolute http(s) URLs.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if !knownThemes[c.Theme] {
		return ErrThemeUnknown
	}
	if c.Timeout < 0 {
		return ErrTimeoutInvalid
	}
	for _, raw := range []string{c.ProxyURL, c.UpstreamURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ErrURLInvalid
		}
	}
	return nil
}
