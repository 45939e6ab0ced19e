// internal/workers/roi/calculate-projection/config.go
package calculateprojection

// ScenarioParams is one fixed growth scenario. GrowthPercent is the revenue uplift
// in whole percent; ROI and break-even are illustrative constants.
type ScenarioParams struct {
	GrowthPercent   int
	ROIPercentage   int
	BreakEvenMonths int
}

type Config struct {
	Conservative ScenarioParams
	Expected     ScenarioParams
	Optimistic   ScenarioParams
}

func LoadConfig() *Config {
	return &Config{
		Conservative: ScenarioParams{GrowthPercent: 10, ROIPercentage: 150, BreakEvenMonths: 6},
		Expected:     ScenarioParams{GrowthPercent: 30, ROIPercentage: 400, BreakEvenMonths: 5},
		Optimistic:   ScenarioParams{GrowthPercent: 50, ROIPercentage: 700, BreakEvenMonths: 4},
	}
}
