// internal/workers/roi/calculate-projection/handler.go
package calculateprojection

import (
	"lead-capture/internal/common/logger"
	"lead-capture/internal/models"
)

const (
	TaskType = "calculate-projection"
)

type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Project returns the three growth scenarios for a monthly revenue. Values are
// not rounded.
func (h *Handler) Project(monthlyRevenue float64) models.Projection {
	p := models.Projection{
		Conservative: scenario(monthlyRevenue, h.config.Conservative),
		Expected:     scenario(monthlyRevenue, h.config.Expected),
		Optimistic:   scenario(monthlyRevenue, h.config.Optimistic),
	}

	h.logger.Debug("projection calculated", map[string]interface{}{
		"monthlyRevenue":   monthlyRevenue,
		"expectedAnnual":   p.Expected.AnnualBenefit,
		"optimisticAnnual": p.Optimistic.AnnualBenefit,
	})
	return p
}

// scenario multiplies by whole percentages so round inputs give round outputs
// (50000 at 10% is exactly 55000, not 55000.000000000007).
func scenario(revenue float64, p ScenarioParams) models.Scenario {
	increase := revenue * float64(p.GrowthPercent) / 100
	return models.Scenario{
		MonthlyRevenue:  revenue * float64(100+p.GrowthPercent) / 100,
		MonthlyIncrease: increase,
		AnnualBenefit:   increase * 12,
		ROIPercentage:   p.ROIPercentage,
		BreakEvenMonths: p.BreakEvenMonths,
	}
}
