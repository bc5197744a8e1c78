package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"vacancy-vault/internal/detection"
	"vacancy-vault/internal/logging"
	"vacancy-vault/internal/monitoring"
	"vacancy-vault/internal/parking"
	"vacancy-vault/internal/store"
)

// EnvPrefix selects environment overrides. A double underscore separates
// nested keys: PARKING_SERVER__PORT sets server.port.
const EnvPrefix = "PARKING_"

type Config struct {
	Server    ServerConfig            `json:"server"`
	Lot       LotConfig               `json:"lot"`
	Store     StoreConfig             `json:"store"`
	Pricing   PricingConfig           `json:"pricing"`
	Detection detection.Config        `json:"detection"`
	Telemetry parking.TelemetryConfig `json:"telemetry"`
	Logging   logging.Config          `json:"logging"`
	Sentry    monitoring.Config       `json:"sentry"`
}

type ServerConfig struct {
	Port            string        `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 15 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 15 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

type LotConfig struct {
	Capacity         int    `json:"capacity"`
	MaxDurationHours int    `json:"max_duration_hours"`
	Timezone         string `json:"timezone"`
}

func (c *LotConfig) SetDefaults() {
	if c.Capacity <= 0 {
		c.Capacity = parking.DefaultCapacity
	}
	if c.MaxDurationHours <= 0 {
		c.MaxDurationHours = parking.DefaultMaxDurationHours
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
}

func (c LotConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

type StoreConfig struct {
	// Backend is BackendFile or BackendRedis.
	Backend string            `json:"backend"`
	Dir     string            `json:"dir"`
	Redis   store.RedisConfig `json:"redis"`
}

func (c *StoreConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = BackendFile
	}
	if c.Dir == "" {
		c.Dir = "data"
	}
	c.Redis.SetDefaults()
}

func (c StoreConfig) Validate() error {
	switch c.Backend {
	case BackendFile:
		if c.Dir == "" {
			return fmt.Errorf("store dir is required")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("store redis addr is required")
		}
	default:
		return fmt.Errorf("unknown store backend %s", c.Backend)
	}
	return nil
}

// Default returns the configuration used when no file or environment
// override sets a value.
func Default() Config {
	cfg := base()
	cfg.SetDefaults()
	return cfg
}

// base carries the values SetDefaults cannot tell apart from zero.
func base() Config {
	def := DefaultPricing()
	return Config{Pricing: PricingConfig{
		NightStartHour: def.NightStartHour,
		NightEndHour:   def.NightEndHour,
	}}
}

func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.Lot.SetDefaults()
	c.Store.SetDefaults()
	c.Pricing.SetDefaults()
	c.Detection.SetDefaults()
	c.Telemetry.SetDefaults()
	c.Logging.SetDefaults()
}

func (c Config) Validate() error {
	if c.Lot.Capacity <= 0 {
		return fmt.Errorf("lot capacity must be positive")
	}
	if _, err := c.Lot.Location(); err != nil {
		return fmt.Errorf("lot timezone: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if _, err := c.Pricing.RateTable(); err != nil {
		return err
	}
	if err := c.Detection.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	return c.Sentry.Validate()
}

// Load reads path, if given, as YAML or JSON, then applies PARKING_
// environment overrides on top of the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	cfg := base()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
