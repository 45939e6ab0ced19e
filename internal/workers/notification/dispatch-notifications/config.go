// internal/workers/notification/dispatch-notifications/config.go
package dispatchnotifications

import (
	"fmt"
	"time"
)

type Config struct {
	Workers     int
	QueueSize   int
	MaxAttempts int

	// RetryDelay is multiplied by the attempt number before each retry.
	RetryDelay     time.Duration
	AttemptTimeout time.Duration

	EmailEnabled bool
	CRMEnabled   bool
	SMSEnabled   bool
	IndexEnabled bool

	SalesAlertPhone string
	SMSSenderID     string
}

func LoadConfig() *Config {
	return &Config{
		Workers:        4,
		QueueSize:      256,
		MaxAttempts:    3,
		RetryDelay:     60 * time.Second,
		AttemptTimeout: 30 * time.Second,
		EmailEnabled:   true,
		CRMEnabled:     true,
		SMSEnabled:     true,
		IndexEnabled:   true,
	}
}

func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be positive")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be positive")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must not be negative")
	}
	if c.AttemptTimeout <= 0 {
		return fmt.Errorf("attempt_timeout must be positive")
	}
	return nil
}
