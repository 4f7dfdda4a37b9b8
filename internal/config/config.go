// Package config provides the configuration schema and loader for the
// campaign server. Configuration is loaded from a YAML file; API keys
// may also come from the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure, typically loaded from a
// YAML file using [Load].
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Budget   BudgetConfig   `yaml:"budget"`
	Campaign CampaignConfig `yaml:"campaign"`
}

// ServerConfig holds network settings for the HTTP server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`
}

// DatabaseConfig holds the SQLite location.
type DatabaseConfig struct {
	// Path is the SQLite database file. The directory is created on
	// first use.
	Path string `yaml:"path"`
}

// LLMConfig selects and configures the narrative backend.
type LLMConfig struct {
	// Provider selects the backend: "mistral", "openai", or "none"
	// for deterministic fallback text only.
	Provider string `yaml:"provider"`

	// APIKey authenticates against the provider. Falls back to
	// MISTRAL_API_KEY or OPENAI_API_KEY when empty.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider endpoint (proxies, local models).
	BaseURL string `yaml:"base_url"`

	// Model overrides the provider's default model.
	Model string `yaml:"model"`
}

// BudgetConfig caps LLM spending.
type BudgetConfig struct {
	DailyUSD   float64 `yaml:"daily_usd"`
	MonthlyUSD float64 `yaml:"monthly_usd"`
}

// CampaignConfig holds the game defaults for new campaigns.
type CampaignConfig struct {
	// Year selects the scenario backdrop: 1925 or 1931.
	Year int `yaml:"year"`

	// PlayerName is the diary author's name on fresh campaigns.
	PlayerName string `yaml:"player_name"`
}

// Load reads the YAML configuration file at path and returns a
// validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/campaign.db"
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "mistral"
	}
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "mistral":
			cfg.LLM.APIKey = os.Getenv("MISTRAL_API_KEY")
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if cfg.Budget.DailyUSD == 0 {
		cfg.Budget.DailyUSD = 1.00
	}
	if cfg.Budget.MonthlyUSD == 0 {
		cfg.Budget.MonthlyUSD = 10.00
	}
	if cfg.Campaign.Year == 0 {
		cfg.Campaign.Year = 1925
	}
	if cfg.Campaign.PlayerName == "" {
		cfg.Campaign.PlayerName = "John Miller"
	}
}

// Validate checks that cfg contains a coherent set of values. It
// returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	switch cfg.LLM.Provider {
	case "mistral", "openai", "none":
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is invalid; valid values: mistral, openai, none", cfg.LLM.Provider))
	}

	if cfg.Budget.DailyUSD < 0 {
		errs = append(errs, fmt.Errorf("budget.daily_usd must not be negative"))
	}
	if cfg.Budget.MonthlyUSD < 0 {
		errs = append(errs, fmt.Errorf("budget.monthly_usd must not be negative"))
	}

	if cfg.Campaign.Year != 1925 && cfg.Campaign.Year != 1931 {
		errs = append(errs, fmt.Errorf("campaign.year %d is invalid; supported scenarios: 1925, 1931", cfg.Campaign.Year))
	}

	return errors.Join(errs...)
}
