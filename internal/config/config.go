package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig        `yaml:"app"`
	Database DatabaseConfig   `yaml:"database"`
	Redis    RedisConfig      `yaml:"redis"`
	API      APIConfig        `yaml:"api"`
	Billing  BillingConfig    `yaml:"billing"`
	Worker   WorkerConfig     `yaml:"worker"`
	Exports  ExportConfig     `yaml:"exports"`
	Logging  LoggingConfig    `yaml:"logging"`
	Metrics  MonitoringConfig `yaml:"monitoring"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Address   string `yaml:"address"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	PoolSize  int    `yaml:"pool_size"`
	CacheTTLs int    `yaml:"cache_ttl_seconds"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type BillingConfig struct {
	Currency       string  `yaml:"currency"`
	BookingFeePct  float64 `yaml:"booking_fee_percent"`
	MaxBookingDays int     `yaml:"max_booking_days"`
}

type WorkerConfig struct {
	Enabled         bool `yaml:"enabled"`
	IntervalSeconds int  `yaml:"interval_seconds"`
	BatchSize       int  `yaml:"batch_size"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

// Load reads the YAML config, expanding ${ENV} references after overlaying
// a .env file when one is present.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Redis.Enabled && c.Redis.Address == "" {
		return errors.New("redis address is required when redis is enabled")
	}
	if c.Billing.BookingFeePct < 0 || c.Billing.BookingFeePct >= 1 {
		return fmt.Errorf("booking fee percent %v out of range [0,1)", c.Billing.BookingFeePct)
	}
	if c.API.Auth.Enabled && len(c.API.Auth.APIKeys) == 0 {
		return errors.New("api auth enabled but no api keys configured")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "carebook"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 10
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 5
	}
	if c.Metrics.PrometheusEnabled && c.Metrics.PrometheusPort == 0 {
		c.Metrics.PrometheusPort = 9090
	}
	if c.Billing.Currency == "" {
		c.Billing.Currency = "USD"
	}
	if c.Billing.BookingFeePct == 0 {
		c.Billing.BookingFeePct = 0.10
	}
	if c.Billing.MaxBookingDays == 0 {
		c.Billing.MaxBookingDays = 365
	}
	if c.Worker.IntervalSeconds == 0 {
		c.Worker.IntervalSeconds = 300
	}
	if c.Worker.BatchSize == 0 {
		c.Worker.BatchSize = 50
	}
	if c.Redis.CacheTTLs == 0 {
		c.Redis.CacheTTLs = 30 * 60
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
