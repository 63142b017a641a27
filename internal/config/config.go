// Package config loads service configuration from YAML plus environment
// overrides.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	OpenAI        OpenAIConfig        `mapstructure:"openai"`
	BankCore      BankCoreConfig      `mapstructure:"bankcore"`
	Ticket        TicketConfig        `mapstructure:"ticket"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Workflow      WorkflowConfig      `mapstructure:"workflow"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Report        ReportConfig        `mapstructure:"report"`
	Collaborators CollaboratorsConfig `mapstructure:"collaborators"`
	Logger        LoggerConfig        `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// OpenAIConfig holds document extraction configuration
type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// BankCoreConfig holds the core banking API configuration
type BankCoreConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TicketConfig holds the tracking ticket system configuration
type TicketConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// NotificationsConfig holds outbound notification configuration
type NotificationsConfig struct {
	CreditorWebhookURL string        `mapstructure:"creditor_webhook_url"`
	CustomerWebhookURL string        `mapstructure:"customer_webhook_url"`
	SendTimeout        time.Duration `mapstructure:"send_timeout"`
	MaxAttempts        int           `mapstructure:"max_attempts"`
	DeliveryInterval   time.Duration `mapstructure:"delivery_interval"`
	BatchSize          int           `mapstructure:"batch_size"`
}

// WorkflowConfig holds the engine's thresholds and retry policy
type WorkflowConfig struct {
	ExtractionThreshold   float64       `mapstructure:"extraction_threshold"`
	VerificationThreshold float64       `mapstructure:"verification_threshold"`
	RetryMaxAttempts      int           `mapstructure:"retry_max_attempts"`
	RetryInitialDelay     time.Duration `mapstructure:"retry_initial_delay"`
	RetryMaxDelay         time.Duration `mapstructure:"retry_max_delay"`
	EventQueueSize        int           `mapstructure:"event_queue_size"`
}

// StorageConfig holds intake document storage configuration
type StorageConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// ReportConfig holds settlement report configuration
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// CollaboratorsConfig selects real or in-process fake collaborators.
// Fakes keep local development working without bank credentials.
type CollaboratorsConfig struct {
	Mode string `mapstructure:"mode"` // "real" or "fake"
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("database.path", "data/garnishflow.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	viper.SetDefault("openai.model", "gpt-4o-mini")

	viper.SetDefault("bankcore.timeout", 30*time.Second)
	viper.SetDefault("ticket.timeout", 15*time.Second)

	viper.SetDefault("notifications.send_timeout", 30*time.Second)
	viper.SetDefault("notifications.max_attempts", 5)
	viper.SetDefault("notifications.delivery_interval", 5*time.Second)
	viper.SetDefault("notifications.batch_size", 50)

	viper.SetDefault("workflow.extraction_threshold", 0.70)
	viper.SetDefault("workflow.verification_threshold", 0.80)
	viper.SetDefault("workflow.retry_max_attempts", 3)
	viper.SetDefault("workflow.retry_initial_delay", 500*time.Millisecond)
	viper.SetDefault("workflow.retry_max_delay", 10*time.Second)
	viper.SetDefault("workflow.event_queue_size", 256)

	viper.SetDefault("storage.base_dir", "data/intake")
	viper.SetDefault("report.output_dir", "data/reports")

	viper.SetDefault("collaborators.mode", "real")

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	viper.BindEnv("bankcore.base_url", "BANKCORE_BASE_URL")
	viper.BindEnv("bankcore.api_key", "BANKCORE_API_KEY")
	viper.BindEnv("ticket.base_url", "TICKET_BASE_URL")
	viper.BindEnv("ticket.api_key", "TICKET_API_KEY")
	viper.BindEnv("notifications.creditor_webhook_url", "CREDITOR_WEBHOOK_URL")
	viper.BindEnv("notifications.customer_webhook_url", "CUSTOMER_WEBHOOK_URL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Collaborators.Mode != "real" && c.Collaborators.Mode != "fake" {
		return fmt.Errorf("collaborators.mode must be \"real\" or \"fake\"")
	}

	// Real collaborators need their credentials; fakes run without any.
	if c.Collaborators.Mode == "real" {
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("openai.api_key is required")
		}
		if c.BankCore.BaseURL == "" {
			return fmt.Errorf("bankcore.base_url is required")
		}
		if c.Notifications.CreditorWebhookURL == "" {
			return fmt.Errorf("notifications.creditor_webhook_url is required")
		}
		if c.Notifications.CustomerWebhookURL == "" {
			return fmt.Errorf("notifications.customer_webhook_url is required")
		}
	}

	if c.Workflow.ExtractionThreshold <= 0 || c.Workflow.ExtractionThreshold > 1 {
		return fmt.Errorf("workflow.extraction_threshold must be in (0, 1]")
	}
	if c.Workflow.VerificationThreshold <= 0 || c.Workflow.VerificationThreshold > 1 {
		return fmt.Errorf("workflow.verification_threshold must be in (0, 1]")
	}

	return nil
}
