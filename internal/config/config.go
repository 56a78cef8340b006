package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Security   SecurityConfig   `json:"security"`
	Logging    LoggingConfig    `json:"logging"`
	Compliance ComplianceConfig `json:"compliance"`
	Market     MarketConfig     `json:"market"`
	Ledger     LedgerConfig     `json:"ledger"`
	Events     EventsConfig     `json:"events"`
	Seed       SeedConfig       `json:"seed"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// DatabaseConfig represents database configuration.
// Driver is "memory" or "postgres".
type DatabaseConfig struct {
	Driver         string        `json:"driver"`
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret            string `json:"jwt_secret"`
	PaymentWebhookSecret string `json:"payment_webhook_secret"`
}

// LoggingConfig
type LoggingConfig struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
}

// ComplianceConfig holds the policy constants of the compliance ledger.
type ComplianceConfig struct {
	WarningThreshold decimal.Decimal `json:"warning_threshold"`
	DailyAverage     decimal.Decimal `json:"daily_average"`
	DefaultQuota     decimal.Decimal `json:"default_quota"`
	// MonitorSchedule is a cron expression; empty disables the sweep.
	MonitorSchedule string `json:"monitor_schedule"`
}

// PackageConfig is one credit package of the market catalog.
type PackageConfig struct {
	ID        string          `json:"id"`
	Label     string          `json:"label"`
	Amount    decimal.Decimal `json:"amount"`
	Price     decimal.Decimal `json:"price"`
	BestValue bool            `json:"best_value"`
}

// MarketConfig
type MarketConfig struct {
	Currency string          `json:"currency"`
	Packages []PackageConfig `json:"packages"`
}

// LedgerConfig configures the minting collaborator.
type LedgerConfig struct {
	Network        string `json:"network"`
	SimulateOutage bool   `json:"simulate_outage"`
}

// EventsConfig
type EventsConfig struct {
	FeedSize    int    `json:"feed_size"`
	SNSTopicARN string `json:"sns_topic_arn"`
	AWSRegion   string `json:"aws_region"`
}

// SeedConfig
type SeedConfig struct {
	Demo bool `json:"demo"`
}

// Default returns the configuration used when no file or environment overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:         "memory",
			Host:           "localhost",
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "carbon_connect",
			SSLMode:        "disable",
			MaxConnections: 25,
			MaxIdleConns:   5,
			MaxLifetime:    30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Development: true,
		},
		Compliance: ComplianceConfig{
			WarningThreshold: decimal.NewFromInt(10),
			DailyAverage:     decimal.RequireFromString("2.5"),
			DefaultQuota:     decimal.NewFromInt(50),
			MonitorSchedule:  "0 0 * * *",
		},
		Market: MarketConfig{
			Currency: "INR",
			Packages: []PackageConfig{
				{ID: "starter", Label: "Starter Pack", Amount: decimal.NewFromInt(10), Price: decimal.NewFromInt(1500)},
				{ID: "factory-standard", Label: "Factory Standard", Amount: decimal.NewFromInt(50), Price: decimal.NewFromInt(7000), BestValue: true},
				{ID: "enterprise", Label: "Enterprise", Amount: decimal.NewFromInt(100), Price: decimal.NewFromInt(13500)},
			},
		},
		Ledger: LedgerConfig{
			Network: "testnet",
		},
		Events: EventsConfig{
			FeedSize:  100,
			AWSRegion: "us-east-1",
		},
	}
}

// LoadConfig loads configuration from file and environment variables.
// A .env file in the working directory is loaded first when present.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	config := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	overrideWithEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if driver := os.Getenv("DATABASE_DRIVER"); driver != "" {
		config.Database.Driver = driver
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
	if secret := os.Getenv("PAYMENT_WEBHOOK_SECRET"); secret != "" {
		config.Security.PaymentWebhookSecret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if arn := os.Getenv("SNS_TOPIC_ARN"); arn != "" {
		config.Events.SNSTopicARN = arn
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		config.Events.AWSRegion = region
	}
	if demo := os.Getenv("SEED_DEMO"); demo != "" {
		if b, err := strconv.ParseBool(demo); err == nil {
			config.Seed.Demo = b
		}
	}
}

// Validate checks the settings the services cannot run without.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Compliance.WarningThreshold.IsNegative() {
		return fmt.Errorf("compliance.warning_threshold must not be negative")
	}
	if c.Compliance.DefaultQuota.IsNegative() {
		return fmt.Errorf("compliance.default_quota must not be negative")
	}
	if len(c.Market.Packages) == 0 {
		return fmt.Errorf("market.packages must not be empty")
	}
	seen := make(map[string]bool, len(c.Market.Packages))
	for _, p := range c.Market.Packages {
		if p.ID == "" || seen[p.ID] {
			return fmt.Errorf("market package id %q is empty or duplicated", p.ID)
		}
		if !p.Amount.IsPositive() || p.Price.IsNegative() {
			return fmt.Errorf("market package %q has invalid amount or price", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
