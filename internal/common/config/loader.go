// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges configs/config.<APP_ENVIRONMENT>.yaml on top,
// then applies environment overrides, defaults and validation.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // environment file is optional

	cfg, err := build(v)
	if err != nil {
		return nil, err
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = env
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return build(v)
}

func build(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// expandEnvVars replaces ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

func envFallback(dst *string, names ...string) {
	if *dst != "" {
		return
	}
	for _, name := range names {
		if val := os.Getenv(name); val != "" {
			*dst = val
			return
		}
	}
}

// overrideEmptyConfig fills secrets that are conventionally passed as plain env vars.
func overrideEmptyConfig(cfg *Config) {
	envFallback(&cfg.Database.Postgres.User, "DB_USER")
	envFallback(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	envFallback(&cfg.Database.Redis.Password, "REDIS_PASSWORD")

	envFallback(&cfg.Integrations.HubSpot.AccessToken, "HUBSPOT_ACCESS_TOKEN", "HUBSPOT_API_KEY")
	envFallback(&cfg.Integrations.SMTP.Password, "SMTP_PASSWORD")
	envFallback(&cfg.Integrations.AWS.SNS.SalesAlertPhone, "SALES_ALERT_PHONE")

	envFallback(&cfg.Security.FieldEncryptionKey, "FIELD_ENCRYPTION_KEY")
	envFallback(&cfg.Security.BlindIndexKey, "BLIND_INDEX_KEY")

	if len(cfg.Integrations.Email.SalesRecipients) == 0 {
		if val := os.Getenv("SALES_EMAIL"); val != "" {
			cfg.Integrations.Email.SalesRecipients = strings.Split(val, ",")
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "lead-capture"
	}
	if cfg.App.Port == 0 {
		cfg.App.Port = 8080
	}
	if cfg.App.ReadTimeout == 0 {
		cfg.App.ReadTimeout = 10000
	}
	if cfg.App.WriteTimeout == 0 {
		cfg.App.WriteTimeout = 15000
	}
	if cfg.App.ShutdownTimeout == 0 {
		cfg.App.ShutdownTimeout = 15000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "roi-leads"
	}

	if cfg.RateLimit.Backend == "" {
		if cfg.Database.Redis.Address != "" {
			cfg.RateLimit.Backend = "redis"
		} else {
			cfg.RateLimit.Backend = "memory"
		}
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = 60000
	}
	if cfg.RateLimit.KeyPrefix == "" {
		cfg.RateLimit.KeyPrefix = "roi:ratelimit"
	}
	if cfg.RateLimit.Calculate == 0 {
		cfg.RateLimit.Calculate = 20
	}
	if cfg.RateLimit.Submit == 0 {
		cfg.RateLimit.Submit = 5
	}
	if cfg.RateLimit.Status == 0 {
		cfg.RateLimit.Status = 10
	}
	if cfg.RateLimit.GDPR == 0 {
		cfg.RateLimit.GDPR = 3
	}

	if cfg.Notifications.Workers == 0 {
		cfg.Notifications.Workers = 4
	}
	if cfg.Notifications.QueueSize == 0 {
		cfg.Notifications.QueueSize = 256
	}
	if cfg.Notifications.MaxAttempts == 0 {
		cfg.Notifications.MaxAttempts = 3
	}
	if cfg.Notifications.RetryDelay == 0 {
		cfg.Notifications.RetryDelay = 60000
	}
	if cfg.Notifications.AttemptLimit == 0 {
		cfg.Notifications.AttemptLimit = 15000
	}

	if cfg.Integrations.HubSpot.BaseURL == "" {
		cfg.Integrations.HubSpot.BaseURL = "https://api.hubapi.com"
	}
	if cfg.Integrations.HubSpot.RequestsPerSecond == 0 {
		cfg.Integrations.HubSpot.RequestsPerSecond = 5
	}
	if cfg.Integrations.HubSpot.Burst == 0 {
		cfg.Integrations.HubSpot.Burst = 5
	}
	if cfg.Integrations.HubSpot.Pipeline == "" {
		cfg.Integrations.HubSpot.Pipeline = "default"
	}
	if cfg.Integrations.HubSpot.DealStage == "" {
		cfg.Integrations.HubSpot.DealStage = "qualifiedtobuy"
	}
	if cfg.Integrations.HubSpot.Timeout == 0 {
		cfg.Integrations.HubSpot.Timeout = 10000
	}

	if cfg.Integrations.Email.Provider == "" {
		cfg.Integrations.Email.Provider = "disabled"
	}
	if cfg.Integrations.Email.FromName == "" {
		cfg.Integrations.Email.FromName = "ROI Calculator"
	}
	if cfg.Integrations.SMTP.Port == 0 {
		cfg.Integrations.SMTP.Port = 587
	}
	if cfg.Integrations.AWS.Region == "" {
		cfg.Integrations.AWS.Region = "us-east-1"
	}

	if cfg.Retention.Days == 0 {
		cfg.Retention.Days = 90
	}
	if cfg.Retention.SweepInterval == 0 {
		cfg.Retention.SweepInterval = 24 * 60 * 60 * 1000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	switch cfg.RateLimit.Backend {
	case "memory":
	case "redis":
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for the redis rate limit backend")
		}
	default:
		return fmt.Errorf("rate_limit.backend must be redis or memory, got %q", cfg.RateLimit.Backend)
	}

	switch cfg.Integrations.Email.Provider {
	case "disabled", "ses":
	case "smtp":
		if cfg.Integrations.SMTP.Host == "" {
			return fmt.Errorf("integrations.smtp.host is required for the smtp email provider")
		}
	default:
		return fmt.Errorf("integrations.email.provider must be ses, smtp or disabled, got %q", cfg.Integrations.Email.Provider)
	}
	if cfg.Integrations.Email.Provider != "disabled" && cfg.Integrations.Email.FromEmail == "" {
		return fmt.Errorf("integrations.email.from_email is required when email is enabled")
	}

	if cfg.Notifications.IndexEnabled && cfg.Database.Elasticsearch.GetURL() == "" {
		return fmt.Errorf("database.elasticsearch.addresses or url is required when indexing is enabled")
	}

	if cfg.Security.FieldEncryptionKey == "" {
		return fmt.Errorf("security.field_encryption_key is required")
	}
	if cfg.Retention.Days < 1 {
		return fmt.Errorf("retention.days must be positive")
	}
	if cfg.Retention.SweepInterval < 1 {
		return fmt.Errorf("retention.sweep_interval must be positive")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
