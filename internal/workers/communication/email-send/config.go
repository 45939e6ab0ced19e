package emailsend

import (
	"fmt"
	"time"
)

const (
	ProviderSES      = "ses"
	ProviderSMTP     = "smtp"
	ProviderDisabled = "disabled"
)

type Config struct {
	Provider        string        `mapstructure:"provider"`
	Timeout         time.Duration `mapstructure:"timeout"`
	FromEmail       string        `mapstructure:"from_email"`
	FromName        string        `mapstructure:"from_name"`
	SalesRecipients []string      `mapstructure:"sales_recipients"`
	CalendarURL     string        `mapstructure:"calendar_url"`
	SMTPHost        string        `mapstructure:"smtp_host"`
	SMTPPort        int           `mapstructure:"smtp_port"`
	SMTPUsername    string        `mapstructure:"smtp_username"`
	SMTPPassword    string        `mapstructure:"smtp_password"`
	UseTLS          bool          `mapstructure:"use_tls"`
}

func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderDisabled,
		Timeout:  15 * time.Second,
		FromName: "ROI Calculator",
		SMTPPort: 587,
		UseTLS:   true,
	}
}

// Enabled reports whether a real provider is configured.
func (c *Config) Enabled() bool {
	return c.Provider == ProviderSES || c.Provider == ProviderSMTP
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	switch c.Provider {
	case ProviderDisabled:
		return nil
	case ProviderSES:
	case ProviderSMTP:
		if c.SMTPHost == "" {
			return fmt.Errorf("smtp_host is required")
		}
		if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
			return fmt.Errorf("smtp_port must be between 1 and 65535")
		}
	default:
		return fmt.Errorf("unknown email provider %q", c.Provider)
	}
	if c.FromEmail == "" {
		return fmt.Errorf("from_email is required")
	}
	return nil
}
