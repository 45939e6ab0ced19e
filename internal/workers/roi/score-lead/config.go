// internal/workers/roi/score-lead/config.go
package scorelead

type Config struct {
	HotThreshold  int
	WarmThreshold int
}

func LoadConfig() *Config {
	return &Config{
		HotThreshold:  90,
		WarmThreshold: 60,
	}
}
