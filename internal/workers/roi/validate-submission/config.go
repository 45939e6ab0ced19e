// internal/workers/roi/validate-submission/config.go
package validatesubmission

// Config holds the bounds that are not part of the field contract itself.
// The numeric ceilings keep projections and derived defaults finite.
type Config struct {
	MaxBusinessNameLength    int
	MaxChallengesOtherLength int

	MaxMonthlyRevenue    float64
	MaxAverageOrderValue float64
	MaxMonthlyAdSpend    float64
	MaxMonthlyOrders     int
	MaxManualHours       int
}

func LoadConfig() *Config {
	return &Config{
		MaxBusinessNameLength:    200,
		MaxChallengesOtherLength: 1000,
		MaxMonthlyRevenue:        1e12,
		MaxAverageOrderValue:     1e9,
		MaxMonthlyAdSpend:        1e12,
		MaxMonthlyOrders:         1_000_000_000,
		MaxManualHours:           1_000_000,
	}
}
