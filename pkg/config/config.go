package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"OracleDash/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	// Oracle is the forecasting backend every resource path is relative to.
	Oracle struct {
		BaseURL      string        `yaml:"base_url" default:"http://localhost:8000" validate:"required,url"`
		Timeout      time.Duration `yaml:"timeout" default:"15s"`
		HistoryLimit int           `yaml:"history_limit" default:"20" validate:"gte=1,lte=500"`
		LogLimit     int           `yaml:"log_limit" default:"50" validate:"gte=1,lte=500"`
	} `yaml:"oracle"`
	Polling struct {
		Signals     time.Duration `yaml:"signals" default:"30s"`
		Predictions time.Duration `yaml:"predictions" default:"60s"`
		Causal      time.Duration `yaml:"causal" default:"120s"`
		Learning    time.Duration `yaml:"learning" default:"60s"`
		Scheduler   time.Duration `yaml:"scheduler" default:"60s"`
		Sources     time.Duration `yaml:"sources" default:"120s"`
	} `yaml:"polling"`
	Cycle struct {
		BurstLimit   float64 `yaml:"burst_limit" default:"3"`
		RefillPerSec float64 `yaml:"refill_per_sec" default:"0.2"`
	} `yaml:"cycle"`
	Notify struct {
		Backend string `yaml:"backend" default:"none" validate:"oneof=none redis kafka"`
		Redis   struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Channel  string `yaml:"channel" default:"oracledash:cycles"`
		} `yaml:"redis"`
		Kafka struct {
			Brokers []string `yaml:"brokers"`
			Topic   string   `yaml:"topic" default:"oracledash.cycles"`
			GroupID string   `yaml:"group_id"`
		} `yaml:"kafka"`
	} `yaml:"notify"`
}

var validate = validator.New()

// Default returns a config populated only from default tags.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A missing file is not an error: defaults plus environment are enough to run.
// A .env file in the working directory is loaded first when present.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	var (
		c   *Config
		err error
	)
	if path != "" {
		c, err = Load(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	if c == nil {
		if c, err = Default(); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("ORACLE_API_URL"); v != "" {
		c.Oracle.BaseURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("NOTIFY_BACKEND"); v != "" {
		c.Notify.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Notify.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		c.Notify.Redis.DB = util.ParseIntDefault(v, c.Notify.Redis.DB)
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Notify.Kafka.Brokers = strings.Split(v, ",")
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	c.Oracle.BaseURL = strings.TrimRight(c.Oracle.BaseURL, "/")
	if c.Notify.Backend == "kafka" && len(c.Notify.Kafka.Brokers) == 0 {
		return fmt.Errorf("notify.kafka.brokers cannot be empty when notify.backend is kafka")
	}
	for name, d := range map[string]time.Duration{
		"signals":     c.Polling.Signals,
		"predictions": c.Polling.Predictions,
		"causal":      c.Polling.Causal,
		"learning":    c.Polling.Learning,
		"scheduler":   c.Polling.Scheduler,
		"sources":     c.Polling.Sources,
	} {
		if d <= 0 {
			return fmt.Errorf("polling.%s must be positive, got %s", name, d)
		}
	}
	return nil
}
