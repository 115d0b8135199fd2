package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// RPC endpoint and network preset.
	RPC_URL string `yaml:"RPC_URL"`
	NETWORK string `yaml:"NETWORK"` // "ethereum", "base", "bsc"

	// Signing key kept in YAML or env, never accepted over the API.
	PRIVATE_KEY string `yaml:"PRIVATE_KEY"`

	// API surface.
	LISTEN_ADDR string `yaml:"LISTEN_ADDR"`

	// Optional outcome sink; empty means in-memory ring.
	REDIS_ADDR     string `yaml:"REDIS_ADDR"`
	REDIS_PASSWORD string `yaml:"REDIS_PASSWORD"`

	// Execution knobs.
	SLIPPAGE_PERCENT   float64 `yaml:"SLIPPAGE_PERCENT"`   // default when request omits it
	DEADLINE_SECONDS   int64   `yaml:"DEADLINE_SECONDS"`   // swap deadline window
	MAX_GAS_PRICE_GWEI string  `yaml:"MAX_GAS_PRICE_GWEI"` // fee cap ceiling
	GAS_TIP_BOOST      int     `yaml:"GAS_TIP_BOOST"`      // percentage boost on suggested tip

	// Probe throttle (eth_estimateGas calls per second).
	PROBE_RATE_LIMIT float64 `yaml:"PROBE_RATE_LIMIT"`

	DEBUG bool `yaml:"DEBUG"`
}

const DefaultPath = "config.yml"

func Default() *Config {
	return &Config{
		RPC_URL: "",
		NETWORK: "ethereum",

		PRIVATE_KEY: "",

		LISTEN_ADDR: ":8880",

		REDIS_ADDR:     "",
		REDIS_PASSWORD: "",

		SLIPPAGE_PERCENT:   0.5,
		DEADLINE_SECONDS:   1200,
		MAX_GAS_PRICE_GWEI: "150",
		GAS_TIP_BOOST:      10,

		PROBE_RATE_LIMIT: 4,

		DEBUG: false,
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RPC_URL"); v != "" {
		c.RPC_URL = v
	}
	if v := os.Getenv("NETWORK"); v != "" {
		c.NETWORK = v
	}
	if v := os.Getenv("PRIVATE_KEY"); v != "" {
		c.PRIVATE_KEY = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.LISTEN_ADDR = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.REDIS_ADDR = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.REDIS_PASSWORD = v
	}
	if v := os.Getenv("SLIPPAGE_PERCENT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.SLIPPAGE_PERCENT = f
		}
	}
	if v := os.Getenv("DEBUG"); v != "" {
		c.DEBUG = v == "true" || v == "1"
	}
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	// create if missing
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := Save(path, cfg); err != nil {
			return nil, fmt.Errorf("create default config: %w", err)
		}
		cfg.applyEnvOverrides()
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.RPC_URL == "" {
		return fmt.Errorf("RPC_URL is required (set in config.yml or RPC_URL env)")
	}
	if c.PRIVATE_KEY == "" {
		return fmt.Errorf("PRIVATE_KEY is required (set in config.yml or PRIVATE_KEY env)")
	}
	if c.SLIPPAGE_PERCENT < 0 || c.SLIPPAGE_PERCENT > 100 {
		return fmt.Errorf("SLIPPAGE_PERCENT must be within [0,100]")
	}
	if c.DEADLINE_SECONDS <= 0 {
		return fmt.Errorf("DEADLINE_SECONDS must be positive")
	}
	return nil
}

func Save(path string, cfg *Config) error {
	if path == "" {
		path = DefaultPath
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0600)
}
