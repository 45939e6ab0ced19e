// internal/workers/roi/validate-submission/defaults.go
package validatesubmission

import (
	"math"

	"lead-capture/internal/models"
)

// Defaults used when the calculator is driven before every field is filled in.
// The same table applies to the calculation and submission entry points.
const (
	DefaultCartAbandonmentRate = 70.0
	minimumDefaultOrders       = 10
)

func defaultAverageOrderValue(industry models.Industry, revenue float64) float64 {
	switch industry {
	case models.IndustryElectronic:
		return math.Max(100, revenue*0.002)
	case models.IndustryFashion, models.IndustryBeauty:
		return math.Max(50, revenue*0.001)
	default:
		return math.Max(75, revenue*0.0015)
	}
}

func defaultMonthlyOrders(revenue, aov float64, ceiling int) int {
	if aov <= 0 {
		return minimumDefaultOrders
	}
	return clampInt(floorToInt(revenue/aov, ceiling), minimumDefaultOrders, ceiling)
}

func defaultManualHours(stage models.BusinessStage, revenue float64, ceiling int) int {
	floorDiv := func(d float64) int { return floorToInt(revenue/d, ceiling) }
	var hours int
	switch stage {
	case models.StageStartup:
		hours = maxInt(10, floorDiv(5000))
	case models.StageGrowth:
		hours = maxInt(15, floorDiv(4000))
	case models.StageEstablished:
		hours = maxInt(20, floorDiv(3000))
	default:
		hours = maxInt(25, floorDiv(2500))
	}
	return clampInt(hours, 0, ceiling)
}

// floorToInt floors x and saturates at ceiling instead of wrapping.
func floorToInt(x float64, ceiling int) int {
	if math.IsNaN(x) || x <= 0 {
		return 0
	}
	if x >= float64(ceiling) {
		return ceiling
	}
	return int(math.Floor(x))
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func defaultConversionRate(industry models.Industry) float64 {
	switch industry {
	case models.IndustryElectronic:
		return 2.5
	case models.IndustryFashion:
		return 2.8
	default:
		return 2.0
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
