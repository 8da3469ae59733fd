package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	RabbitMQ  RabbitMQConfig
	Redis     RedisConfig
	Providers ProvidersConfig
	Dispatch  DispatchConfig
	Env       string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
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
	Host     string
	Port     string
	User     string
	Password string
}

// RedisConfig holds Redis configuration (rate limiting, scheduler lock,
// extension heartbeats)
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ProvidersConfig holds delivery provider credentials
type ProvidersConfig struct {
	SMS  SMSProviderConfig
	SMTP SMTPConfig
}

// SMSProviderConfig holds the SMS gateway credentials
type SMSProviderConfig struct {
	APIURL     string
	AccountSID string
	AuthToken  string
	FromNumber string
}

// SMTPConfig holds the outbound email credentials
type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

// DispatchConfig holds dispatch scheduler tuning
type DispatchConfig struct {
	TickInterval   time.Duration
	SendsPerMinute int
	QuietPeriod    time.Duration
	MaxAttempts    int
	RetryBackoff   time.Duration
	SendTimeout    time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     getEnv("POSTGRES_USER", "vendzz"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			DBName:   getEnv("POSTGRES_DB", "vendzz_db"),
		},
		RabbitMQ: RabbitMQConfig{
			Host:     getEnv("RABBITMQ_HOST", "localhost"),
			Port:     getEnv("RABBITMQ_PORT", "5672"),
			User:     getEnv("RABBITMQ_DEFAULT_USER", "guest"),
			Password: getEnv("RABBITMQ_DEFAULT_PASS", "guest"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Providers: ProvidersConfig{
			SMS: SMSProviderConfig{
				APIURL:     getEnv("SMS_API_URL", ""),
				AccountSID: getEnv("SMS_ACCOUNT_SID", ""),
				AuthToken:  getEnv("SMS_AUTH_TOKEN", ""),
				FromNumber: getEnv("SMS_FROM_NUMBER", ""),
			},
			SMTP: SMTPConfig{
				Host:     getEnv("SMTP_HOST", ""),
				Port:     getEnv("SMTP_PORT", "587"),
				User:     getEnv("SMTP_USER", ""),
				Password: getEnv("SMTP_PASS", ""),
				From:     getEnv("SMTP_FROM", ""),
			},
		},
		Dispatch: DispatchConfig{
			TickInterval:   time.Duration(getEnvAsInt("DISPATCH_TICK_SECONDS", 10)) * time.Second,
			SendsPerMinute: getEnvAsInt("DISPATCH_SENDS_PER_MINUTE", 60),
			QuietPeriod:    time.Duration(getEnvAsInt("DISPATCH_QUIET_SECONDS", 120)) * time.Second,
			MaxAttempts:    getEnvAsInt("DISPATCH_MAX_ATTEMPTS", 3),
			RetryBackoff:   time.Duration(getEnvAsInt("DISPATCH_RETRY_BACKOFF_SECONDS", 30)) * time.Second,
			SendTimeout:    time.Duration(getEnvAsInt("DISPATCH_SEND_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Env: getEnv("ENV", "development"),
	}

	// Validate required fields
	if config.Database.Password == "" {
		return nil, fmt.Errorf("POSTGRES_PASSWORD is required")
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
