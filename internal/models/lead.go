// internal/models/lead.go
package models

type Industry string

const (
	IndustryFashion    Industry = "Fashion & Apparel"
	IndustryElectronic Industry = "Electronics"
	IndustryHealth     Industry = "Health & Wellness"
	IndustryHome       Industry = "Home & Garden"
	IndustryBeauty     Industry = "Beauty & Cosmetics"
	IndustryFood       Industry = "Food & Beverage"
	IndustryPet        Industry = "Pet Products"
	IndustrySports     Industry = "Sports & Fitness"
	IndustryAutomotive Industry = "Automotive"
	IndustryBooks      Industry = "Books & Media"
	IndustryToys       Industry = "Toys & Games"
	IndustryOther      Industry = "Other"
)

// Industries is the closed set accepted by the validator, in display order.
var Industries = []Industry{
	IndustryFashion, IndustryElectronic, IndustryHealth, IndustryHome,
	IndustryBeauty, IndustryFood, IndustryPet, IndustrySports,
	IndustryAutomotive, IndustryBooks, IndustryToys, IndustryOther,
}

type BusinessStage string

const (
	StageStartup     BusinessStage = "Startup"
	StageGrowth      BusinessStage = "Growth"
	StageEstablished BusinessStage = "Established"
	StageMature      BusinessStage = "Mature"
)

var BusinessStages = []BusinessStage{StageStartup, StageGrowth, StageEstablished, StageMature}

type Challenge string

const (
	ChallengeManualProcesses Challenge = "Manual processes"
	ChallengeLowConversion   Challenge = "Low conversion rates"
	ChallengeCartAbandonment Challenge = "High cart abandonment"
	ChallengeRetention       Challenge = "Poor customer retention"
	ChallengeInventory       Challenge = "Inventory management"
	ChallengeMarketing       Challenge = "Marketing inefficiency"
	ChallengeCustomerService Challenge = "Customer service issues"
	ChallengeDataAnalysis    Challenge = "Data analysis challenges"
	ChallengeOther           Challenge = "Other"
)

var Challenges = []Challenge{
	ChallengeManualProcesses, ChallengeLowConversion, ChallengeCartAbandonment,
	ChallengeRetention, ChallengeInventory, ChallengeMarketing,
	ChallengeCustomerService, ChallengeDataAnalysis, ChallengeOther,
}

// BusinessMetrics is the validated business half of a submission. It is all the
// calculation preview needs.
type BusinessMetrics struct {
	MonthlyRevenue      float64       `json:"monthly_revenue"`
	AverageOrderValue   float64       `json:"average_order_value"`
	MonthlyOrders       int           `json:"monthly_orders"`
	Industry            Industry      `json:"industry,omitempty"`
	BusinessStage       BusinessStage `json:"business_stage,omitempty"`
	ConversionRate      float64       `json:"conversion_rate"`
	CartAbandonmentRate float64       `json:"cart_abandonment_rate"`
	ManualHoursPerWeek  int           `json:"manual_hours_per_week"`
	MonthlyAdSpend      *float64      `json:"monthly_ad_spend,omitempty"`
	Challenges          []Challenge   `json:"challenges"`
	ChallengesOther     string        `json:"challenges_other,omitempty"`
}

// ContactInfo is the contact half; Website and Phone are empty when not supplied.
type ContactInfo struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	BusinessName string `json:"business_name"`
	Website      string `json:"website,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

// CleanSubmission is only ever built from fully validated input.
type CleanSubmission struct {
	BusinessMetrics
	ContactInfo
	MarketingConsent bool `json:"marketing_consent"`
}

// HasChallenge reports whether c was selected.
func (b BusinessMetrics) HasChallenge(c Challenge) bool {
	for _, got := range b.Challenges {
		if got == c {
			return true
		}
	}
	return false
}

func (c ContactInfo) FullName() string {
	return c.FirstName + " " + c.LastName
}
