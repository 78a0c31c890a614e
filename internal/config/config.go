package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	SMTP     SMTPConfig
	Outreach OutreachConfig
	Env      string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
}

// StorageConfig selects the state storage backend
type StorageConfig struct {
	// Backend is "postgres" or "memory". Memory is for development only:
	// state does not survive a restart.
	Backend string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// RabbitMQConfig holds RabbitMQ configuration
type RabbitMQConfig struct {
	Host       string
	Port       string
	User       string
	Password   string
	EventQueue string
}

// SMTPConfig holds outbound mail configuration
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// OutreachConfig holds the guardrail policy settings
type OutreachConfig struct {
	DailyEmailCap    int
	MinSendInterval  time.Duration
	ApprovalRequired bool
	SpamBlocklist    []string

	// Timezone is the zone the heartbeat clock runs in; it keys the
	// daily send counters.
	Timezone *time.Location
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	tzName := getEnv("HEARTBEAT_TIMEZONE", "Local")
	timezone, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("HEARTBEAT_TIMEZONE %q is not a valid timezone: %v", tzName, err)
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Storage: StorageConfig{
			Backend: getEnv("STATE_BACKEND", "postgres"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     getEnv("POSTGRES_USER", "mubot"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			DBName:   getEnv("POSTGRES_DB", "mubot_db"),
		},
		RabbitMQ: RabbitMQConfig{
			Host:       getEnv("RABBITMQ_HOST", "localhost"),
			Port:       getEnv("RABBITMQ_PORT", "5672"),
			User:       getEnv("RABBITMQ_DEFAULT_USER", "guest"),
			Password:   getEnv("RABBITMQ_DEFAULT_PASS", "guest"),
			EventQueue: getEnv("RABBITMQ_EVENT_QUEUE", "outreach_events"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
		},
		Outreach: OutreachConfig{
			DailyEmailCap:    getEnvAsInt("DAILY_EMAIL_CAP", 20),
			MinSendInterval:  getEnvAsDuration("MIN_SEND_INTERVAL", 5*time.Minute),
			ApprovalRequired: getEnvAsBool("APPROVAL_REQUIRED", false),
			SpamBlocklist:    getEnvAsList("SPAM_BLOCKLIST"),
			Timezone:         timezone,
		},
		Env: getEnv("ENV", "development"),
	}

	// Validate required fields
	if config.Storage.Backend != "postgres" && config.Storage.Backend != "memory" {
		return nil, fmt.Errorf("STATE_BACKEND must be 'postgres' or 'memory'")
	}
	if config.Storage.Backend == "postgres" && config.Database.Password == "" {
		return nil, fmt.Errorf("POSTGRES_PASSWORD is required")
	}
	if config.Outreach.DailyEmailCap < 1 {
		return nil, fmt.Errorf("DAILY_EMAIL_CAP must be at least 1")
	}

	return config, nil
}

// GetDatabaseDSN returns PostgreSQL connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// GetRabbitMQURL returns RabbitMQ connection URL
func (c *Config) GetRabbitMQURL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		c.RabbitMQ.User,
		c.RabbitMQ.Password,
		c.RabbitMQ.Host,
		c.RabbitMQ.Port,
	)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// getEnv gets environment variable or returns default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets environment variable as integer or returns default
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool gets environment variable as boolean or returns default
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration gets environment variable as duration or returns default
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList gets a comma-separated environment variable as a slice
func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
