// internal/models/score.go
package models

type Tier string

const (
	TierHot  Tier = "Hot"
	TierWarm Tier = "Warm"
	TierCold Tier = "Cold"
)

// ScoreBreakdown is the output of lead scoring. Details maps each contributing
// sub-factor to the points it added before capping.
type ScoreBreakdown struct {
	Demographic int            `json:"demographic"`
	Behavioral  int            `json:"behavioral"`
	Fit         int            `json:"fit"`
	Total       int            `json:"total"`
	Tier        Tier           `json:"tier"`
	Details     map[string]int `json:"details"`
}
