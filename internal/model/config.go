package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const appName = "triage"

// GitHubConfig holds the settings of the notification API client.
type GitHubConfig struct {
	// BaseURL is the API root. Tests point it at a fake server.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// Token is the bearer credential. GH_TOKEN overrides it.
	Token string `mapstructure:"token" yaml:"token"`

	// TimeoutSec bounds every HTTP request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// Timeout returns TimeoutSec as a duration.
func (c GitHubConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// StoreConfig locates the local database.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// RulesConfig locates the scoring rule file.
type RulesConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig controls the file logger.
type LogConfig struct {
	Path  string `mapstructure:"path" yaml:"path"`
	Level string `mapstructure:"level" yaml:"level"`
}

// SyncConfig paces the background loops.
type SyncConfig struct {
	RefreshSec int `mapstructure:"refresh_sec" yaml:"refresh_sec"`
	RedrawSec  int `mapstructure:"redraw_sec" yaml:"redraw_sec"`
}

// RefreshInterval returns the auto-sync floor.
func (c SyncConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshSec) * time.Second
}

// RedrawInterval returns the delay between two redraws.
func (c SyncConfig) RedrawInterval() time.Duration {
	return time.Duration(c.RedrawSec) * time.Second
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	GitHub GitHubConfig `mapstructure:"github" yaml:"github"`
	Store  StoreConfig  `mapstructure:"store" yaml:"store"`
	Rules  RulesConfig  `mapstructure:"rules" yaml:"rules"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
	Sync   SyncConfig   `mapstructure:"sync" yaml:"sync"`
}

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"base-url": "github.base_url",
	"db":       "store.path",
	"rules":    "rules.path",
	"log-file": "log.path",
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/triage/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), appName, "config.yaml")
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, defaults are used. Environment variables
// GH_TOKEN and DATABASE_URL override the file, and flags that were set on
// the command line override both. flags may be nil.
func LoadConfig(path string, flags *pflag.FlagSet) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("github.base_url", "https://api.github.com")
	v.SetDefault("github.timeout_sec", 30)
	v.SetDefault("store.path", filepath.Join(dataDir(), appName, "triage.db"))
	v.SetDefault("rules.path", filepath.Join(configDir(), appName, "rules.toml"))
	v.SetDefault("log.path", filepath.Join(stateDir(), appName, "triage.log"))
	v.SetDefault("log.level", "info")
	v.SetDefault("sync.refresh_sec", 300)
	v.SetDefault("sync.redraw_sec", 60)

	if err := v.BindEnv("github.token", "GH_TOKEN"); err != nil {
		return nil, fmt.Errorf("binding GH_TOKEN: %w", err)
	}
	if err := v.BindEnv("store.path", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("binding DATABASE_URL: %w", err)
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag --%s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

func configDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	return "."
}

// dataDir follows XDG_DATA_HOME, falling back to ~/.local/share.
func dataDir() string {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// stateDir follows XDG_STATE_HOME, falling back to ~/.local/state.
func stateDir() string {
	return xdgDir("XDG_STATE_HOME", ".local", "state")
}

func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}
