// Package config loads the bot configuration from a YAML or JSON file,
// applies defaults, and lets DICEBOT_* environment variables override
// individual fields. Secrets (the API key) are usually supplied through
// the environment or the keyring rather than the file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const envPrefix = "DICEBOT_"

type StakesConfig struct {
	Standard  string `yaml:"standard" json:"standard"`
	Confident string `yaml:"confident" json:"confident"`
}

type Config struct {
	// Session
	Site      string `yaml:"site" json:"site"`
	Currency  string `yaml:"currency" json:"currency"`
	Strategy  string `yaml:"strategy" json:"strategy"`
	APIKey    string `yaml:"api_key" json:"api_key"`
	BaseURL   string `yaml:"base_url" json:"base_url"`
	UseFaucet bool   `yaml:"use_faucet" json:"use_faucet"`
	DryRun    bool   `yaml:"dry_run" json:"dry_run"`

	// Loop timing
	CycleInterval  Duration `yaml:"cycle_interval" json:"cycle_interval"`
	MaxRatePause   Duration `yaml:"max_rate_pause" json:"max_rate_pause"`
	BackoffCeiling Duration `yaml:"backoff_ceiling" json:"backoff_ceiling"`
	RequestTimeout Duration `yaml:"request_timeout" json:"request_timeout"`

	// Fault and rotation policy
	APIErrorFaultThreshold int    `yaml:"api_error_fault_threshold" json:"api_error_fault_threshold"`
	SeedRotateEvery        uint64 `yaml:"seed_rotate_every" json:"seed_rotate_every"`
	DisableLoop            bool   `yaml:"disable_loop" json:"disable_loop"`

	Stakes StakesConfig `yaml:"stakes" json:"stakes"`

	// Logging
	LogLevel string `yaml:"log_level" json:"log_level"`
	LogFile  string `yaml:"log_file" json:"log_file"`

	// Surfaces and storage
	ControlAddr string `yaml:"control_addr" json:"control_addr"`
	DebugAddr   string `yaml:"debug_addr" json:"debug_addr"`
	JournalPath string `yaml:"journal_path" json:"journal_path"`
	KeyringDir  string `yaml:"keyring_dir" json:"keyring_dir"`
}

// Load reads the file at path (missing file is fine, the defaults and
// environment carry a full config), applies defaults, then environment
// overrides, then validates.
func Load(path string) (*Config, error) {
	c := &Config{}
	if path != "" {
		if err := c.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	c.ApplyDefaults()
	c.applyEnvOverrides()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse json: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format %q (want .yaml, .yml or .json)", ext)
	}
	return nil
}

func (c *Config) ApplyDefaults() {
	if c.Site == "" {
		c.Site = "duckdice"
	}
	if c.Strategy == "" {
		c.Strategy = "threshold"
	}
	if c.CycleInterval.Duration == 0 {
		c.CycleInterval.Duration = 5 * time.Second
	}
	if c.MaxRatePause.Duration == 0 {
		c.MaxRatePause.Duration = 300 * time.Second
	}
	if c.BackoffCeiling.Duration == 0 {
		c.BackoffCeiling.Duration = 80 * time.Second
	}
	if c.RequestTimeout.Duration == 0 {
		c.RequestTimeout.Duration = 12 * time.Second
	}
	if c.APIErrorFaultThreshold == 0 {
		c.APIErrorFaultThreshold = 3
	}
	if c.Stakes.Standard == "" {
		c.Stakes.Standard = "0.00000050"
	}
	if c.Stakes.Confident == "" {
		c.Stakes.Confident = "0.00000100"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFile == "" {
		c.LogFile = "logs/dicebot.log"
	}
	if c.ControlAddr == "" {
		c.ControlAddr = "127.0.0.1:8787"
	}
	if c.JournalPath == "" {
		c.JournalPath = "data/bets.db"
	}
}

// applyEnvOverrides lets DICEBOT_* variables win over the file; the
// environment is where deploy scripts and the keyring importer put
// values.
func (c *Config) applyEnvOverrides() {
	overrideString(&c.Site, "SITE")
	overrideString(&c.Currency, "CURRENCY")
	overrideString(&c.Strategy, "STRATEGY")
	overrideString(&c.APIKey, "API_KEY")
	overrideString(&c.BaseURL, "BASE_URL")
	overrideBool(&c.UseFaucet, "USE_FAUCET")
	overrideBool(&c.DryRun, "DRY_RUN")

	overrideDuration(&c.CycleInterval, "CYCLE_INTERVAL")
	overrideDuration(&c.MaxRatePause, "MAX_RATE_PAUSE")
	overrideDuration(&c.BackoffCeiling, "BACKOFF_CEILING")
	overrideDuration(&c.RequestTimeout, "REQUEST_TIMEOUT")

	overrideInt(&c.APIErrorFaultThreshold, "API_ERROR_FAULT_THRESHOLD")
	overrideUint64(&c.SeedRotateEvery, "SEED_ROTATE_EVERY")
	overrideBool(&c.DisableLoop, "DISABLE_LOOP")

	overrideString(&c.Stakes.Standard, "STAKE_STANDARD")
	overrideString(&c.Stakes.Confident, "STAKE_CONFIDENT")

	overrideString(&c.LogLevel, "LOG_LEVEL")
	overrideString(&c.LogFile, "LOG_FILE")

	overrideString(&c.ControlAddr, "CONTROL_ADDR")
	overrideString(&c.DebugAddr, "DEBUG_ADDR")
	overrideString(&c.JournalPath, "JOURNAL_PATH")
	overrideString(&c.KeyringDir, "KEYRING_DIR")
}

func (c *Config) Validate() error {
	if c.Site == "" {
		return fmt.Errorf("site is required")
	}
	if c.Currency == "" {
		return fmt.Errorf("currency is required (config currency or DICEBOT_CURRENCY)")
	}
	if c.Strategy == "" {
		return fmt.Errorf("strategy is required")
	}
	if !c.DryRun && c.APIKey == "" && c.KeyringDir == "" {
		return fmt.Errorf("api key is required (config api_key, DICEBOT_API_KEY, or keyring_dir)")
	}
	if c.CycleInterval.Duration <= 0 {
		return fmt.Errorf("cycle_interval must be positive, got %s", c.CycleInterval.Duration)
	}
	if c.MaxRatePause.Duration <= 0 {
		return fmt.Errorf("max_rate_pause must be positive, got %s", c.MaxRatePause.Duration)
	}
	if c.BackoffCeiling.Duration <= 0 {
		return fmt.Errorf("backoff_ceiling must be positive, got %s", c.BackoffCeiling.Duration)
	}
	if c.RequestTimeout.Duration <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout.Duration)
	}
	if c.APIErrorFaultThreshold < 1 {
		return fmt.Errorf("api_error_fault_threshold must be at least 1, got %d", c.APIErrorFaultThreshold)
	}
	for name, v := range map[string]string{
		"stakes.standard":  c.Stakes.Standard,
		"stakes.confident": c.Stakes.Confident,
	} {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("%s: invalid amount %q: %w", name, v, err)
		}
		if !d.IsPositive() {
			return fmt.Errorf("%s must be positive, got %s", name, v)
		}
	}
	return nil
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		*dst = v
	}
}

func overrideBool(dst *bool, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func overrideInt(dst *int, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func overrideUint64(dst *uint64, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func overrideDuration(dst *Duration, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
