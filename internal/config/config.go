package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/aretw0/swimlane/internal/logging"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SWIMLANE_"

// Config is the process configuration shared by the CLI commands.
type Config struct {
	Listen    string `yaml:"listen" json:"listen" toml:"listen"`
	LogLevel  string `yaml:"log_level" json:"log_level" toml:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format" toml:"log_format"`
	Metrics   bool   `yaml:"metrics" json:"metrics" toml:"metrics"`
	// Seed is a scenario file applied to the default board at startup.
	Seed  string `yaml:"seed" json:"seed" toml:"seed"`
	Board string `yaml:"board" json:"board" toml:"board"`
	Redis Redis  `yaml:"redis" json:"redis" toml:"redis"`
}

// Redis selects the Redis event log and locker. An empty Addr keeps logs in memory.
type Redis struct {
	Addr     string   `yaml:"addr" json:"addr" toml:"addr"`
	Password string   `yaml:"password" json:"password" toml:"password"`
	DB       int      `yaml:"db" json:"db" toml:"db"`
	Prefix   string   `yaml:"prefix" json:"prefix" toml:"prefix"`
	TTL      Duration `yaml:"ttl" json:"ttl" toml:"ttl"`
}

// Duration reads "90s"-style strings from any of the config formats.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", b, err)
	}
	d.Duration = v
	return nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen:    ":8080",
		LogLevel:  "info",
		LogFormat: "text",
		Board:     "default",
		Redis: Redis{
			Prefix: "swimlane:",
		},
	}
}

// Load reads path (YAML, JSON or TOML by extension) over the defaults and
// applies SWIMLANE_* environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an injectable environment.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return cfg, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := decode(path, data, &cfg); err != nil {
				return cfg, err
			}
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func decode(path string, data []byte, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		// Default to YAML
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	str("LISTEN", &cfg.Listen)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)
	str("SEED", &cfg.Seed)
	str("BOARD", &cfg.Board)
	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	str("REDIS_PREFIX", &cfg.Redis.Prefix)

	if v, ok := lookup(EnvPrefix + "METRICS"); ok {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return fmt.Errorf("%sMETRICS: %w", EnvPrefix, err)
		}
		cfg.Metrics = b
	}
	if v, ok := lookup(EnvPrefix + "REDIS_DB"); ok {
		n, err := cast.ToIntE(v)
		if err != nil {
			return fmt.Errorf("%sREDIS_DB: %w", EnvPrefix, err)
		}
		cfg.Redis.DB = n
	}
	if v, ok := lookup(EnvPrefix + "REDIS_TTL"); ok {
		if err := cfg.Redis.TTL.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%sREDIS_TTL: %w", EnvPrefix, err)
		}
	}
	return nil
}

// Validate checks fields that have a closed set of values.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.Board == "" {
		return fmt.Errorf("board must not be empty")
	}
	if c.Redis.TTL.Duration < 0 {
		return fmt.Errorf("redis ttl must not be negative")
	}
	return nil
}
