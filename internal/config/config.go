package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Server  ServerConfig
	Dialog  DialogConfig
	Preview PreviewConfig
	Log     LogConfig
}

// ServerConfig locates the OSLC service and its bug container.
type ServerConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	Container string
	Timeout   time.Duration
}

// DialogConfig controls the delegated creation dialog and the local
// listener its frame posts results to.
type DialogConfig struct {
	Path        string
	ListenAddr  string `mapstructure:"listen_addr"`
	OpenBrowser bool   `mapstructure:"open_browser"`
}

// PreviewConfig holds hover preview settings.
type PreviewConfig struct {
	DismissDelay  time.Duration `mapstructure:"dismiss_delay"`
	DefaultWidth  string        `mapstructure:"default_width"`
	DefaultHeight string        `mapstructure:"default_height"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Path  string
	Level string
}

// Load reads configuration from file and env. Env var overrides use prefix OSLCBUGS_.
func Load() (Config, error) {
	v := viper.New()

	home := os.Getenv("HOME")
	v.SetDefault("server.base_url", "http://localhost:8080/oslc4j-sample/")
	v.SetDefault("server.container", "r/bugs")
	v.SetDefault("server.timeout", 10*time.Second)
	v.SetDefault("dialog.path", "newBug.html")
	v.SetDefault("dialog.listen_addr", "127.0.0.1:8765")
	v.SetDefault("dialog.open_browser", false)
	v.SetDefault("preview.dismiss_delay", 500*time.Millisecond)
	v.SetDefault("preview.default_width", "400px")
	v.SetDefault("preview.default_height", "300px")
	v.SetDefault("log.path", filepath.Join(home, ".local", "state", "oslcbugs", "oslcbugs.log"))
	v.SetDefault("log.level", "info")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("OSLCBUGS_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(home, ".config", "oslcbugs"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("OSLCBUGS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// a missing default file is fine; an explicit path must exist
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks values that would otherwise fail far from their source.
func (c Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil {
		return fmt.Errorf("server.base_url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server.base_url: %q is not absolute", c.Server.BaseURL)
	}
	if strings.TrimSpace(c.Server.Container) == "" {
		return fmt.Errorf("server.container is required")
	}
	if c.Preview.DismissDelay <= 0 {
		return fmt.Errorf("preview.dismiss_delay must be positive, got %s", c.Preview.DismissDelay)
	}
	return nil
}
