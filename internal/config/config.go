// Package config loads the service configuration and the per-repository
// job configuration. The service config comes from environment
// variables and an optional .env file; the job configuration is the
// .forgebot.yml file declared in the repository the event points at.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/forgebot/forgebot/internal/logger"
)

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port string
}

// GitHubConfig holds the GitHub App credentials.
type GitHubConfig struct {
	AppID          int64
	WebhookSecret  string
	PrivateKeyPath string
	// Token is an optional personal access token used by the CLI
	// instead of an app installation.
	Token string
}

// DBConfig holds the postgres connection settings.
type DBConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	Database        string
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// QueueConfig bounds the execution substrate.
type QueueConfig struct {
	Workers    int
	Size       int
	MaxRetries int
}

// GateConfig feeds the access gate.
type GateConfig struct {
	// Admins short-circuit the gate: events from these logins are
	// always allowed.
	Admins []string
	// CommandPrefix is the token opening a comment command,
	// e.g. "/forgebot".
	CommandPrefix string
}

// IdentityConfig points at the identity-linking backend.
type IdentityConfig struct {
	BaseURL string
}

// MetricsConfig configures the optional pushgateway push.
type MetricsConfig struct {
	PushgatewayURL string
	JobName        string
}

// Config holds the application's configuration values.
type Config struct {
	Deployment string
	Server     ServerConfig
	Logging    logger.Config
	GitHub     GitHubConfig
	Database   *DBConfig
	Queue      QueueConfig
	Gate       GateConfig
	Identity   IdentityConfig
	Metrics    MetricsConfig
}

// LoadConfig reads configuration from environment variables and a .env
// file, sets defaults, and validates required fields.
func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("LOG_OUTPUT", "stdout")
	viper.SetDefault("DEPLOYMENT", "prod")
	viper.SetDefault("GITHUB_PRIVATE_KEY_PATH", "keys/forgebot-app.private-key.pem")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USER", "forgebot")
	viper.SetDefault("DB_NAME", "forgebot")
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	viper.SetDefault("DB_CONN_MAX_IDLE_TIME", "5m")
	viper.SetDefault("QUEUE_WORKERS", 5)
	viper.SetDefault("QUEUE_SIZE", 100)
	viper.SetDefault("QUEUE_MAX_RETRIES", 3)
	viper.SetDefault("COMMAND_PREFIX", "/forgebot")
	viper.SetDefault("METRICS_JOB_NAME", "forgebot")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read .env: %w", err)
		}
	}

	if viper.GetInt64("GITHUB_APP_ID") == 0 && viper.GetString("GITHUB_TOKEN") == "" {
		return nil, fmt.Errorf("either GITHUB_APP_ID or GITHUB_TOKEN must be set")
	}
	if viper.GetString("GITHUB_WEBHOOK_SECRET") == "" {
		return nil, fmt.Errorf("GITHUB_WEBHOOK_SECRET must be set")
	}

	return &Config{
		Deployment: viper.GetString("DEPLOYMENT"),
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Logging: logger.Config{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
			Output: viper.GetString("LOG_OUTPUT"),
		},
		GitHub: GitHubConfig{
			AppID:          viper.GetInt64("GITHUB_APP_ID"),
			WebhookSecret:  viper.GetString("GITHUB_WEBHOOK_SECRET"),
			PrivateKeyPath: viper.GetString("GITHUB_PRIVATE_KEY_PATH"),
			Token:          viper.GetString("GITHUB_TOKEN"),
		},
		Database: &DBConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			Username:        viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Database:        viper.GetString("DB_NAME"),
			ConnMaxLifetime: viper.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: viper.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		},
		Queue: QueueConfig{
			Workers:    viper.GetInt("QUEUE_WORKERS"),
			Size:       viper.GetInt("QUEUE_SIZE"),
			MaxRetries: viper.GetInt("QUEUE_MAX_RETRIES"),
		},
		Gate: GateConfig{
			Admins:        viper.GetStringSlice("GATE_ADMINS"),
			CommandPrefix: viper.GetString("COMMAND_PREFIX"),
		},
		Identity: IdentityConfig{
			BaseURL: viper.GetString("IDENTITY_BASE_URL"),
		},
		Metrics: MetricsConfig{
			PushgatewayURL: viper.GetString("METRICS_PUSHGATEWAY_URL"),
			JobName:        viper.GetString("METRICS_JOB_NAME"),
		},
	}, nil
}
