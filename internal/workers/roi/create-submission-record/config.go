// internal/workers/roi/create-submission-record/config.go
package createsubmissionrecord

import "time"

type Config struct {
	Table   string
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Table:   "roi_submissions",
		Timeout: 10 * time.Second,
	}
}
