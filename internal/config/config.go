// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port            int           `yaml:"port" env:"ORBIT_HTTP_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level" env:"ORBIT_LOG_LEVEL"`   // trace|debug|info|warn|error
	Format   string `yaml:"format" env:"ORBIT_LOG_FORMAT"` // json|console
	Sampling bool   `yaml:"sampling"`                      // enable sampling in prod
}

type DatabaseConfig struct {
	URL         string `yaml:"url" env:"ORBIT_DATABASE_URL"`
	MaxConns    int32  `yaml:"max_conns"`
	ApplySchema bool   `yaml:"apply_schema" env:"ORBIT_DATABASE_APPLY_SCHEMA"` // run the embedded DDL on startup
}

type RedisConfig struct {
	URL      string        `yaml:"url" env:"ORBIT_REDIS_URL"`
	Password string        `yaml:"password" env:"ORBIT_REDIS_PASSWORD"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AMQPConfig struct {
	URL         string `yaml:"url" env:"ORBIT_AMQP_URL"`
	Exchange    string `yaml:"exchange"`
	RedeemedKey string `yaml:"redeemed_routing_key"`
	BatchKey    string `yaml:"batch_routing_key"`
	Workers     int    `yaml:"workers"`
	QueueSize   int    `yaml:"queue_size"`
}

type AuthConfig struct {
	AdminKey  string        `yaml:"admin_key" env:"ORBIT_ADMIN_KEY"`
	JWTSecret string        `yaml:"jwt_secret" env:"ORBIT_JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type CodesConfig struct {
	SegmentLength int `yaml:"segment_length"`
	MaxAttempts   int `yaml:"max_attempts"`
}

type ReportsConfig struct {
	Timezone string `yaml:"timezone" env:"ORBIT_REPORTS_TIMEZONE"`
}

type SchedulerConfig struct {
	SnapshotCron string `yaml:"snapshot_cron"`
}

type RateLimitConfig struct {
	RedeemPerMinute int `yaml:"redeem_per_minute"`
}

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	AMQP      AMQPConfig      `yaml:"amqp"`
	Auth      AuthConfig      `yaml:"auth"`
	Codes     CodesConfig     `yaml:"codes"`
	Reports   ReportsConfig   `yaml:"reports"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig parses -config and -dev from the command line and loads the file.
func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()
	return Load(configPath, dev)
}

// Load reads the YAML file at path (optional in dev), a .env file when present, then
// ORBIT_* environment overrides, and validates the result.
func Load(path string, dev bool) (*Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && dev:
		// dev runs from env alone
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	// .env is optional; a missing file is not an error
	_ = godotenv.Load()
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.Runtime.Dev = dev
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	c.HTTP.ReadTimeout = orDefault(c.HTTP.ReadTimeout, 10*time.Second)
	c.HTTP.WriteTimeout = orDefault(c.HTTP.WriteTimeout, 15*time.Second)
	c.HTTP.RequestTimeout = orDefault(c.HTTP.RequestTimeout, 10*time.Second)
	c.HTTP.ShutdownTimeout = orDefault(c.HTTP.ShutdownTimeout, 10*time.Second)
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	c.Redis.TTL = orDefault(c.Redis.TTL, time.Hour)
	if c.AMQP.Exchange == "" {
		c.AMQP.Exchange = "orbit.events"
	}
	if c.AMQP.RedeemedKey == "" {
		c.AMQP.RedeemedKey = "code.redeemed"
	}
	if c.AMQP.BatchKey == "" {
		c.AMQP.BatchKey = "batch.created"
	}
	if c.AMQP.Workers <= 0 {
		c.AMQP.Workers = 2
	}
	if c.AMQP.QueueSize <= 0 {
		c.AMQP.QueueSize = 256
	}
	c.Auth.TokenTTL = orDefault(c.Auth.TokenTTL, 24*time.Hour)
	if c.Codes.SegmentLength <= 0 {
		c.Codes.SegmentLength = 12
	}
	if c.Codes.MaxAttempts <= 0 {
		c.Codes.MaxAttempts = 10
	}
	if c.Reports.Timezone == "" {
		c.Reports.Timezone = "UTC"
	}
	if c.Scheduler.SnapshotCron == "" {
		c.Scheduler.SnapshotCron = "*/5 * * * *"
	}
	if c.RateLimit.RedeemPerMinute <= 0 {
		c.RateLimit.RedeemPerMinute = 30
	}
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Auth.AdminKey == "" {
		return errors.New("auth.admin_key is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Database.URL == "" && !c.Runtime.Dev {
		return errors.New("database.url is required")
	}
	if c.Codes.SegmentLength < 6 {
		return errors.New("codes.segment_length must be at least 6")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("reports.timezone: %w", err)
	}
	return nil
}

// Location resolves the report timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Reports.Timezone)
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
