package indexlead

import "time"

type Config struct {
	Index   string        `mapstructure:"index"`
	Timeout time.Duration `mapstructure:"timeout"`
	// Refresh is passed through to the index API ("", "true" or "wait_for").
	Refresh string `mapstructure:"refresh"`
}

func DefaultConfig() *Config {
	return &Config{
		Index:   "roi-leads",
		Timeout: 5 * time.Second,
	}
}
