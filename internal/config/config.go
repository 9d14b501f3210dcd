package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/mkraev/freedom-calculator/internal/model"
)

// Default listen address. Port 8501 is kept for compatibility with the
// reverse-proxy and systemd configurations in docs/deploy.
const (
	DefaultHost     = "0.0.0.0"
	DefaultPort     = 8501
	DefaultWorkdir  = "./workspace"
	DefaultCurrency = "USD"
)

// Config is the application configuration.
type Config struct {
	// Listen is the web server bind address.
	Listen ListenConfig `yaml:"listen"`

	// Workdir is the report workspace directory, created on launch when
	// absent.
	Workdir string `yaml:"workdir"`

	// Currency is the default trade currency (USD, EUR or GBP).
	Currency string `yaml:"currency"`

	// Rates configures where exchange rates come from when no rates file
	// is supplied.
	Rates RatesConfig `yaml:"rates"`
}

// ListenConfig is the host/port pair the web server binds.
type ListenConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the host:port form used by net/http.
func (l ListenConfig) Addr() string {
	return fmt.Sprintf("%s:%d", l.Host, l.Port)
}

// RatesConfig configures the CBR rates fetcher.
type RatesConfig struct {
	// BaseURL overrides the CBR endpoint, mainly for tests.
	BaseURL string `yaml:"baseUrl"`
}

// Default returns the configuration with every field at its default.
func Default() *Config {
	return &Config{
		Listen:   ListenConfig{Host: DefaultHost, Port: DefaultPort},
		Workdir:  DefaultWorkdir,
		Currency: DefaultCurrency,
	}
}

// Load reads the configuration. A missing file at the given path is an
// error; an empty path skips the file layer entirely. Environment
// variables (FREEDOM_HOST, FREEDOM_PORT, FREEDOM_WORKDIR,
// FREEDOM_CURRENCY) are applied on top.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, model.WrapCLIError(model.ExitInputNotFound, "failed to read config file", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, model.WrapCLIError(model.ExitParseError, "invalid config file", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays FREEDOM_* environment variables onto the config.
func applyEnv(cfg *Config) {
	if v := os.Getenv("FREEDOM_HOST"); v != "" {
		cfg.Listen.Host = v
	}
	if v := os.Getenv("FREEDOM_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Listen.Port = port
		}
	}
	if v := os.Getenv("FREEDOM_WORKDIR"); v != "" {
		cfg.Workdir = v
	}
	if v := os.Getenv("FREEDOM_CURRENCY"); v != "" {
		cfg.Currency = v
	}
}

// Validate checks the loaded configuration for values that would fail
// later in less obvious ways.
func (c *Config) Validate() error {
	if c.Listen.Port < 1 || c.Listen.Port > 65535 {
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("invalid listen port %d", c.Listen.Port))
	}
	if c.Workdir == "" {
		return model.NewCLIError(model.ExitGeneralError, "workdir must not be empty")
	}
	return nil
}
