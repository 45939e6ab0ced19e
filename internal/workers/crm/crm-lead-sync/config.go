package crmleadsync

import (
	"fmt"
	"time"
)

type Config struct {
	BaseURL           string        `mapstructure:"base_url"`
	AccessToken       string        `mapstructure:"access_token"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	Pipeline          string        `mapstructure:"pipeline"`
	DealStage         string        `mapstructure:"deal_stage"`
	DealShare         float64       `mapstructure:"deal_share"`
	CloseWithin       time.Duration `mapstructure:"close_within"`
}

func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "https://api.hubapi.com",
		Timeout:           30 * time.Second,
		RequestsPerSecond: 8,
		Burst:             4,
		Pipeline:          "default",
		DealStage:         "appointmentscheduled",
		DealShare:         0.3,
		CloseWithin:       90 * 24 * time.Hour,
	}
}

// Enabled reports whether a HubSpot token is configured.
func (c *Config) Enabled() bool {
	return c.AccessToken != ""
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Pipeline == "" {
		return fmt.Errorf("pipeline is required")
	}
	if c.DealStage == "" {
		return fmt.Errorf("deal_stage is required")
	}
	if c.DealShare <= 0 || c.DealShare > 1 {
		return fmt.Errorf("deal_share must be in (0, 1]")
	}
	if c.CloseWithin <= 0 {
		return fmt.Errorf("close_within must be positive")
	}
	return nil
}
