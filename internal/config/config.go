// Package config loads the service configuration from a yaml file with
// environment overrides for secrets.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/garyjia/cierres-audit/internal/audit"
	"github.com/garyjia/cierres-audit/internal/dates"
	"github.com/garyjia/cierres-audit/internal/parser"
)

// Evidence providers
const (
	ProviderDrive = "drive"
	ProviderLocal = "local"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Lark     LarkConfig     `mapstructure:"lark"`
	Drive    DriveConfig    `mapstructure:"drive"`
	Evidence EvidenceConfig `mapstructure:"evidence"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Business BusinessConfig `mapstructure:"business"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CronSecret   string        `mapstructure:"cron_secret"`
	APIToken     string        `mapstructure:"api_token"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	PromptsPath string        `mapstructure:"prompts_path"`
	MaxPDFPages int           `mapstructure:"max_pdf_pages"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// LarkConfig holds Lark notifier configuration
type LarkConfig struct {
	AppID         string `mapstructure:"app_id"`
	AppSecret     string `mapstructure:"app_secret"`
	ReceiveID     string `mapstructure:"receive_id"`
	ReceiveIDType string `mapstructure:"receive_id_type"`
}

// Enabled reports whether alerts can be sent
func (c LarkConfig) Enabled() bool {
	return c.AppID != "" && c.AppSecret != "" && c.ReceiveID != ""
}

// DriveConfig holds Google Drive configuration
type DriveConfig struct {
	RootFolderID      string `mapstructure:"root_folder_id"`
	ServiceAccountKey string `mapstructure:"service_account_key"`
	MaxFileBytes      int64  `mapstructure:"max_file_bytes"`
}

// EvidenceConfig selects where evidence is read from
type EvidenceConfig struct {
	Provider      string `mapstructure:"provider"`
	LocalDir      string `mapstructure:"local_dir"`
	MaxBatchBytes int64  `mapstructure:"max_batch_bytes"`
}

// AuditConfig holds the risk ladder and business timezone
type AuditConfig struct {
	Tolerance int64  `mapstructure:"tolerance"`
	Low       int64  `mapstructure:"low"`
	Medium    int64  `mapstructure:"medium"`
	Timezone  string `mapstructure:"timezone"`
}

// Thresholds returns the configured risk ladder
func (c AuditConfig) Thresholds() audit.Thresholds {
	return audit.Thresholds{Tolerance: c.Tolerance, Low: c.Low, Medium: c.Medium}
}

// BusinessConfig holds the canonical business names and the alias table
// mapping chat spellings to them. Alias keys are matched case-insensitively.
type BusinessConfig struct {
	Names   []string          `mapstructure:"names"`
	Aliases map[string]string `mapstructure:"aliases"`
}

// WorkerConfig holds the in-process review poller settings
type WorkerConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Interval   time.Duration `mapstructure:"interval"`
	BatchSize  int           `mapstructure:"batch_size"`
	ReviewTime time.Duration `mapstructure:"review_timeout"`
}

// Load loads configuration from file and environment variables. A missing
// file is not an error; defaults and the environment are used instead.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v)
	bindEnvVars(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyBusinessDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)

	// Database defaults
	v.SetDefault("database.path", "data/cierres.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 0)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	// OpenAI defaults
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.max_pdf_pages", 5)
	v.SetDefault("openai.timeout", 4*time.Minute)

	// Lark defaults
	v.SetDefault("lark.receive_id_type", "chat_id")

	// Drive defaults
	v.SetDefault("drive.max_file_bytes", 4*1024*1024)

	// Evidence defaults
	v.SetDefault("evidence.provider", ProviderDrive)
	v.SetDefault("evidence.local_dir", "data/evidence")
	v.SetDefault("evidence.max_batch_bytes", 20*1024*1024)

	// Audit defaults
	thresholds := audit.DefaultThresholds()
	v.SetDefault("audit.tolerance", thresholds.Tolerance)
	v.SetDefault("audit.low", thresholds.Low)
	v.SetDefault("audit.medium", thresholds.Medium)
	v.SetDefault("audit.timezone", dates.DefaultTimezone)

	// Worker defaults
	v.SetDefault("worker.enabled", false)
	v.SetDefault("worker.interval", time.Minute)
	v.SetDefault("worker.batch_size", 5)
	v.SetDefault("worker.review_timeout", 10*time.Minute)
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	// Sensitive credentials from environment
	_ = v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("lark.app_id", "LARK_APP_ID")
	_ = v.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	_ = v.BindEnv("lark.receive_id", "ALERT_CHAT_ID")
	_ = v.BindEnv("drive.root_folder_id", "DRIVE_ROOT_FOLDER_ID")
	_ = v.BindEnv("drive.service_account_key", "GOOGLE_SERVICE_ACCOUNT_KEY")
	_ = v.BindEnv("server.cron_secret", "CRON_SECRET")
	_ = v.BindEnv("server.api_token", "API_TOKEN")

	// Deployment knobs
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("database.path", "DATABASE_PATH")
	_ = v.BindEnv("logger.level", "LOG_LEVEL")
	_ = v.BindEnv("evidence.provider", "EVIDENCE_PROVIDER")
	_ = v.BindEnv("worker.enabled", "REVIEW_WORKER_ENABLED")
}

// applyBusinessDefaults fills the business tables from the parser defaults
// when the file leaves them out
func (c *Config) applyBusinessDefaults() {
	if len(c.Business.Names) == 0 {
		c.Business.Names = append([]string(nil), parser.DefaultBusinesses...)
	}
	if len(c.Business.Aliases) == 0 {
		c.Business.Aliases = make(map[string]string, len(parser.DefaultAliases))
		for k, v := range parser.DefaultAliases {
			c.Business.Aliases[k] = v
		}
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if err := c.Audit.Thresholds().Validate(); err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	if _, err := dates.NewClock(c.Audit.Timezone); err != nil {
		return fmt.Errorf("audit.timezone: %w", err)
	}

	switch c.Evidence.Provider {
	case ProviderDrive:
		if c.Drive.RootFolderID != "" && strings.TrimSpace(c.Drive.ServiceAccountKey) == "" {
			return fmt.Errorf("drive.service_account_key is required when drive.root_folder_id is set")
		}
	case ProviderLocal:
		if c.Evidence.LocalDir == "" {
			return fmt.Errorf("evidence.local_dir is required for the local provider")
		}
	default:
		return fmt.Errorf("evidence.provider must be %q or %q, got %q", ProviderDrive, ProviderLocal, c.Evidence.Provider)
	}

	if c.Lark.ReceiveID != "" && (c.Lark.AppID == "" || c.Lark.AppSecret == "") {
		return fmt.Errorf("lark.app_id and lark.app_secret are required when lark.receive_id is set")
	}

	for alias, name := range c.Business.Aliases {
		if !contains(c.Business.Names, name) {
			return fmt.Errorf("business alias %q points to unknown business %q", alias, name)
		}
	}

	if c.Worker.Enabled && c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required when the review worker is enabled")
	}

	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
