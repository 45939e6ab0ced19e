// internal/models/projection.go
package models

// Scenario is one growth projection. Amounts are unrounded.
type Scenario struct {
	MonthlyRevenue  float64 `json:"monthly_revenue"`
	MonthlyIncrease float64 `json:"monthly_increase"`
	AnnualBenefit   float64 `json:"annual_benefit"`
	ROIPercentage   int     `json:"roi_percentage"`
	BreakEvenMonths int     `json:"break_even_months"`
}

type Projection struct {
	Conservative Scenario `json:"conservative"`
	Expected     Scenario `json:"expected"`
	Optimistic   Scenario `json:"optimistic"`
}
