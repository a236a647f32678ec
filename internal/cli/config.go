// Config loading for the roster CLI: defaults, config.yaml, then ROSTER_*
// environment overrides.
package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/roster/internal/paths"
	"github.com/mesh-intelligence/roster/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "ROSTER"

	cfgKeyBackend        = "backend"
	cfgKeyDataDir        = "data_dir"
	cfgKeyRedisAddr      = "redis_addr"
	cfgKeyProxyURL       = "proxy_url"
	cfgKeyListen         = "listen"
	cfgKeyAPIPrefix      = "api_prefix"
	cfgKeyUpstreamURL    = "upstream_url"
	cfgKeyUpstreamListen = "upstream_listen"
	cfgKeyUpstreamPrefix = "upstream_prefix"
	cfgKeyTheme          = "theme"
	cfgKeyTimeout        = "timeout"
)

// defaults are the values used when neither config.yaml nor the environment
// sets a key.
var defaults = types.Config{
	Backend:        types.BackendSQLite,
	RedisAddr:      "127.0.0.1:6379",
	ProxyURL:       "http://127.0.0.1:8081/api",
	Listen:         ":8081",
	APIPrefix:      "/api",
	UpstreamURL:    "http://127.0.0.1:8082/PersonsAPI/api/person",
	UpstreamListen: ":8082",
	UpstreamPrefix: "/PersonsAPI/api/person",
	Theme:          types.ThemeSystem,
	Timeout:        30 * time.Second,
}

// envKeys can be overridden by ROSTER_<KEY>. data_dir is resolved through
// internal/paths so that config.yaml wins over ROSTER_DATA_DIR.
var envKeys = []string{
	cfgKeyBackend, cfgKeyRedisAddr, cfgKeyProxyURL, cfgKeyListen, cfgKeyAPIPrefix,
	cfgKeyUpstreamURL, cfgKeyUpstreamListen, cfgKeyUpstreamPrefix, cfgKeyTheme, cfgKeyTimeout,
}

// loadConfig reads config.yaml from configDir. A missing file is not an
// error. dataDirFlag is the --data-dir value, which beats every other source.
func loadConfig(configDir, dataDirFlag string) (types.Config, error) {
	v := viper.New()
	v.SetDefault(cfgKeyBackend, defaults.Backend)
	v.SetDefault(cfgKeyRedisAddr, defaults.RedisAddr)
	v.SetDefault(cfgKeyProxyURL, defaults.ProxyURL)
	v.SetDefault(cfgKeyListen, defaults.Listen)
	v.SetDefault(cfgKeyAPIPrefix, defaults.APIPrefix)
	v.SetDefault(cfgKeyUpstreamURL, defaults.UpstreamURL)
	v.SetDefault(cfgKeyUpstreamListen, defaults.UpstreamListen)
	v.SetDefault(cfgKeyUpstreamPrefix, defaults.UpstreamPrefix)
	v.SetDefault(cfgKeyTheme, defaults.Theme)
	v.SetDefault(cfgKeyTimeout, defaults.Timeout)

	v.SetEnvPrefix(envPrefix)
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return types.Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	dataDir, err := paths.ResolveDataDir(dataDirFlag, v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}

	cfg := types.Config{
		Backend:        v.GetString(cfgKeyBackend),
		DataDir:        dataDir,
		RedisAddr:      v.GetString(cfgKeyRedisAddr),
		ProxyURL:       v.GetString(cfgKeyProxyURL),
		Listen:         v.GetString(cfgKeyListen),
		APIPrefix:      v.GetString(cfgKeyAPIPrefix),
		UpstreamURL:    v.GetString(cfgKeyUpstreamURL),
		UpstreamListen: v.GetString(cfgKeyUpstreamListen),
		UpstreamPrefix: v.GetString(cfgKeyUpstreamPrefix),
		Theme:          v.GetString(cfgKeyTheme),
		Timeout:        v.GetDuration(cfgKeyTimeout),
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// configFile is the document roster init writes.
type configFile struct {
	Backend        string `yaml:"backend"`
	DataDir        string `yaml:"data_dir,omitempty"`
	RedisAddr      string `yaml:"redis_addr"`
	ProxyURL       string `yaml:"proxy_url"`
	Listen         string `yaml:"listen"`
	APIPrefix      string `yaml:"api_prefix"`
	UpstreamURL    string `yaml:"upstream_url"`
	UpstreamListen string `yaml:"upstream_listen"`
	UpstreamPrefix string `yaml:"upstream_prefix"`
	Theme          string `yaml:"theme"`
	Timeout        string `yaml:"timeout"`
}

// writeConfigIfMissing creates config.yaml with default values. An existing
// file is left alone.
func writeConfigIfMissing(path, dataDir string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	doc := configFile{
		Backend:        defaults.Backend,
		DataDir:        dataDir,
		RedisAddr:      defaults.RedisAddr,
		ProxyURL:       defaults.ProxyURL,
		Listen:         defaults.Listen,
		APIPrefix:      defaults.APIPrefix,
		UpstreamURL:    defaults.UpstreamURL,
		UpstreamListen: defaults.UpstreamListen,
		UpstreamPrefix: defaults.UpstreamPrefix,
		Theme:          defaults.Theme,
		Timeout:        defaults.Timeout.String(),
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}
