// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"uptime-sim/internal/catalog"
	"uptime-sim/internal/engine"
	"uptime-sim/internal/formula"
	"uptime-sim/internal/game"
	"uptime-sim/internal/scenario"
)

// Store kinds accepted in store.kind.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// OracleConfig points at the Ollama-compatible incident collaborator.
type OracleConfig struct {
	Enabled  bool          `yaml:"enabled"`
	URL      string        `yaml:"url"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
	Interval time.Duration `yaml:"interval"`
}

// StoreConfig selects where save slots live.
type StoreConfig struct {
	Kind     string        `yaml:"kind"`
	Dir      string        `yaml:"dir"`
	RedisURI string        `yaml:"redis_uri"`
	Slot     string        `yaml:"slot"`
	Autosave time.Duration `yaml:"autosave"`
}

// GreptimeConfig enables the GreptimeDB writer when Endpoint is set.
type GreptimeConfig struct {
	Endpoint string `yaml:"endpoint"`
	Database string `yaml:"database"`
}

type AdminConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Config is the root configuration for a session.
type Config struct {
	Tick     time.Duration  `yaml:"tick"`
	Game     game.Options   `yaml:"game"`
	Formula  formula.Params `yaml:"formula"`
	Engine   engine.Tuning  `yaml:"engine"`
	Catalog  string         `yaml:"catalog"`
	Scenario string         `yaml:"scenario"`
	Oracle   OracleConfig   `yaml:"oracle"`
	Store    StoreConfig    `yaml:"store"`
	Greptime GreptimeConfig `yaml:"greptime"`
	Admin    AdminConfig    `yaml:"admin"`
	Log      LogConfig      `yaml:"log"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		Tick:    time.Second,
		Game:    game.DefaultOptions(),
		Formula: formula.DefaultParams(),
		Engine:  engine.DefaultTuning(),
		Oracle: OracleConfig{
			URL:      "http://localhost:11434",
			Model:    "llama3.1",
			Timeout:  30 * time.Second,
			Interval: time.Minute,
		},
		Store: StoreConfig{
			Kind:     StoreFile,
			Dir:      "saves",
			Autosave: 5 * time.Minute,
		},
		Greptime: GreptimeConfig{Database: "public"},
		Log:      LogConfig{Level: "info"},
	}
}

// Load loads YAML config over the defaults and validates it against a CUE
// schema. An empty schema path skips schema validation.
func Load(configPath, cueSchemaPath string) (*Config, error) {
	if cueSchemaPath != "" {
		if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides endpoints from the environment.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("REDIS_URI"); v != "" {
		c.Store.Kind = StoreRedis
		c.Store.RedisURI = v
	}
	if v := os.Getenv("GREPTIMEDB_ENDPOINT"); v != "" {
		c.Greptime.Endpoint = v
	}
	if v := os.Getenv("GREPTIMEDB_DATABASE"); v != "" {
		c.Greptime.Database = v
	}
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		c.Oracle.Enabled = true
		c.Oracle.URL = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		c.Oracle.Model = v
	}
	if v := os.Getenv("TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TICK_INTERVAL: %w", err)
		}
		c.Tick = d
	}
	return nil
}

// Validate checks constraints the schema cannot express.
func (c *Config) Validate() error {
	if c.Tick <= 0 {
		return fmt.Errorf("tick must be positive, got %s", c.Tick)
	}
	switch c.Store.Kind {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}
	if c.Store.Kind == StoreFile && c.Store.Dir == "" {
		return fmt.Errorf("store.dir is required for the file store")
	}
	if c.Oracle.Enabled && c.Oracle.URL == "" {
		return fmt.Errorf("oracle.url is required when the oracle is enabled")
	}
	return nil
}

// Env builds the engine environment, merging the catalog overlay if one is set.
func (c *Config) Env() (*engine.Env, error) {
	cat := catalog.BuiltIn()
	if c.Catalog != "" {
		var err error
		if cat, err = catalog.Load(c.Catalog); err != nil {
			return nil, err
		}
	}
	return &engine.Env{Catalog: cat, Params: c.Formula, Tuning: c.Engine}, nil
}

// LoadScenario resolves the scenario setting: a built-in arc name, a YAML
// path, or empty for none.
func (c *Config) LoadScenario() (*scenario.Scenario, error) {
	if c.Scenario == "" {
		return nil, nil
	}
	if s, ok := scenario.BuiltIn()[c.Scenario]; ok {
		return &s, nil
	}
	return scenario.Load(c.Scenario)
}
