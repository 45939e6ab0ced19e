// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Database      DatabaseConfig     `mapstructure:"database"`
	RateLimit     RateLimitConfig    `mapstructure:"rate_limit"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Integrations  IntegrationConfig  `mapstructure:"integrations"`
	Security      SecurityConfig     `mapstructure:"security"`
	Retention     RetentionConfig    `mapstructure:"retention"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name            string   `mapstructure:"name"`
	Version         string   `mapstructure:"version"`
	Environment     string   `mapstructure:"environment"`
	Port            int      `mapstructure:"port"`
	ReadTimeout     int      `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int      `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int      `mapstructure:"shutdown_timeout"` // milliseconds
	TrustedProxies  []string `mapstructure:"trusted_proxies"`
	CORSOrigins     []string `mapstructure:"cors_origins"`
}

// Addr returns the listen address for the HTTP server.
func (a AppConfig) Addr() string {
	return fmt.Sprintf(":%d", a.Port)
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
	URL       string   `mapstructure:"url"` // single URL, kept for older env files
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimitConfig sets per-operation quotas for a caller within one window.
type RateLimitConfig struct {
	Backend   string `mapstructure:"backend"` // "redis" or "memory"
	Window    int    `mapstructure:"window"`  // milliseconds
	KeyPrefix string `mapstructure:"key_prefix"`
	Calculate int    `mapstructure:"calculate"`
	Submit    int    `mapstructure:"submit"`
	Status    int    `mapstructure:"status"`
	GDPR      int    `mapstructure:"gdpr"`
}

// NotificationConfig drives the background notification workers.
type NotificationConfig struct {
	Workers      int  `mapstructure:"workers"`
	QueueSize    int  `mapstructure:"queue_size"`
	MaxAttempts  int  `mapstructure:"max_attempts"`
	RetryDelay   int  `mapstructure:"retry_delay"`   // milliseconds, multiplied by attempt number
	AttemptLimit int  `mapstructure:"attempt_limit"` // milliseconds per outbound call
	EmailEnabled bool `mapstructure:"email_enabled"`
	CRMEnabled   bool `mapstructure:"crm_enabled"`
	SMSEnabled   bool `mapstructure:"sms_enabled"`
	IndexEnabled bool `mapstructure:"index_enabled"`
}

// IntegrationConfig holds settings for CRM, Email, and other external services.
type IntegrationConfig struct {
	HubSpot struct {
		BaseURL           string  `mapstructure:"base_url"`
		AccessToken       string  `mapstructure:"access_token"`
		RequestsPerSecond float64 `mapstructure:"requests_per_second"`
		Burst             int     `mapstructure:"burst"`
		Pipeline          string  `mapstructure:"pipeline"`
		DealStage         string  `mapstructure:"deal_stage"`
		Timeout           int     `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"hubspot"`

	Email struct {
		Provider        string   `mapstructure:"provider"` // "ses", "smtp" or "disabled"
		FromEmail       string   `mapstructure:"from_email"`
		FromName        string   `mapstructure:"from_name"`
		SalesRecipients []string `mapstructure:"sales_recipients"`
		CalendarURL     string   `mapstructure:"calendar_url"`
	} `mapstructure:"email"`

	AWS struct {
		Region string `mapstructure:"region"`
		SNS    struct {
			SalesAlertPhone string `mapstructure:"sales_alert_phone"`
			SenderID        string `mapstructure:"sender_id"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`

	SMTP struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		UseTLS   bool   `mapstructure:"use_tls"`
	} `mapstructure:"smtp"`
}

// SecurityConfig holds the keys used to protect PII at rest.
type SecurityConfig struct {
	FieldEncryptionKey string `mapstructure:"field_encryption_key"` // base64, 32 bytes
	BlindIndexKey      string `mapstructure:"blind_index_key"`
}

type RetentionConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	Days          int  `mapstructure:"days"`
	SweepInterval int  `mapstructure:"sweep_interval"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
