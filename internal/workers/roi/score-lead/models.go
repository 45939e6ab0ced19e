// internal/workers/roi/score-lead/models.go
package scorelead

import "lead-capture/internal/models"

// Sub-score caps. The total can never exceed MaxTotal.
const (
	MaxDemographic = 60
	MaxBehavioral  = 52
	MaxFit         = 38
	MaxTotal       = MaxDemographic + MaxBehavioral + MaxFit
)

// Detail keys reported in ScoreBreakdown.Details.
const (
	DetailRevenueTier        = "revenue_tier"
	DetailBusinessStage      = "business_stage"
	DetailWebsiteFilled      = "website_filled"
	DetailPhoneFilled        = "phone_filled"
	DetailAdSpendFilled      = "monthly_ad_spend_filled"
	DetailDetailedChallenges = "detailed_challenges"
	DetailHighManualHours    = "high_manual_hours"
	DetailIndustryFit        = "industry_fit"
	DetailChallengeAlignment = "challenge_alignment"
)

const otherChallengeMinLength = 50

var stagePoints = map[models.BusinessStage]int{
	models.StageStartup:     10,
	models.StageGrowth:      20,
	models.StageEstablished: 30,
	models.StageMature:      40,
}

var (
	highFitIndustryKeywords = []string{"fashion", "beauty", "sports", "food & beverage"}
	corePainKeywords        = []string{"manual processes", "low conversion", "high cart abandonment"}
)
