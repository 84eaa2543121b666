package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Auth     AuthConfig
	Tokens   TokenConfig
	Mail     MailConfig
	Frontend FrontendConfig
	Sweeper  SweeperConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string
	Port string
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// JWTConfig holds access-token signing configuration.
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
	Issuer            string
}

// AuthConfig holds the lockout policy.
type AuthConfig struct {
	// LockoutThreshold is the number of consecutive failed logins after
	// which the account is deactivated.
	LockoutThreshold int
}

// TokenConfig holds the default lifetimes of action tokens.
type TokenConfig struct {
	RefreshExpiry      time.Duration
	ConfirmationExpiry time.Duration
	ResetExpiry        time.Duration
	EmailChangeExpiry  time.Duration
}

// MailConfig holds outbound SMTP configuration.
type MailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	// QueueSize bounds the async dispatch buffer. Delivery is
	// fire-and-report, so overflow is dropped with a warning.
	QueueSize int
}

// FrontendConfig holds the base URL embedded in action links.
type FrontendConfig struct {
	BaseURL string
}

// SweeperConfig holds the background job schedule.
type SweeperConfig struct {
	Interval time.Duration
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "ebok"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: getDurationEnv("JWT_ACCESS_EXPIRY", 15*time.Minute),
			Issuer:            getEnv("JWT_ISSUER", "ebok"),
		},
		Auth: AuthConfig{
			LockoutThreshold: getIntEnv("AUTH_LOCKOUT_THRESHOLD", 3),
		},
		Tokens: TokenConfig{
			RefreshExpiry:      getDurationEnv("TOKEN_REFRESH_EXPIRY", 24*time.Hour),
			ConfirmationExpiry: getDurationEnv("TOKEN_CONFIRMATION_EXPIRY", 24*time.Hour),
			ResetExpiry:        getDurationEnv("TOKEN_RESET_EXPIRY", 30*time.Minute),
			EmailChangeExpiry:  getDurationEnv("TOKEN_EMAIL_CHANGE_EXPIRY", 30*time.Minute),
		},
		Mail: MailConfig{
			Host:      getEnv("MAIL_HOST", "localhost"),
			Port:      getEnv("MAIL_PORT", "587"),
			Username:  getEnv("MAIL_USERNAME", ""),
			Password:  getEnv("MAIL_PASSWORD", ""),
			From:      getEnv("MAIL_FROM", "no-reply@ebok.local"),
			QueueSize: getIntEnv("MAIL_QUEUE_SIZE", 256),
		},
		Frontend: FrontendConfig{
			BaseURL: getEnv("FRONTEND_URL", "http://localhost:4200"),
		},
		Sweeper: SweeperConfig{
			Interval: getDurationEnv("SWEEPER_INTERVAL", time.Hour),
		},
	}
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return "host=" + d.Host +
		" port=" + d.Port +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.DBName +
		" sslmode=" + d.SSLMode
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv returns a duration from an environment variable or default.
// Values parse as Go durations ("15m", "24h").
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getIntEnv returns an integer from an environment variable or default.
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
