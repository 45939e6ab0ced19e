// internal/workers/roi/score-lead/followup.go
package scorelead

import (
	"time"

	"lead-capture/internal/models"
)

// FollowUp is how sales should treat a lead of a given tier. It is used for
// human facing scheduling only.
type FollowUp struct {
	Within         time.Duration
	LifecycleStage string
	LeadStatus     string
	TaskPriority   string
	TaskType       string
}

var followUps = map[models.Tier]FollowUp{
	models.TierHot: {
		Within:         time.Hour,
		LifecycleStage: "salesqualifiedlead",
		LeadStatus:     "NEW",
		TaskPriority:   "HIGH",
		TaskType:       "CALL",
	},
	models.TierWarm: {
		Within:         24 * time.Hour,
		LifecycleStage: "marketingqualifiedlead",
		LeadStatus:     "OPEN",
		TaskPriority:   "MEDIUM",
		TaskType:       "CALL",
	},
	models.TierCold: {
		Within:         72 * time.Hour,
		LifecycleStage: "lead",
		LeadStatus:     "ATTEMPTED_TO_CONTACT",
		TaskPriority:   "LOW",
		TaskType:       "EMAIL",
	},
}

// FollowUpFor returns the follow-up plan for tier. Unknown tiers are treated as Cold.
func FollowUpFor(tier models.Tier) FollowUp {
	if f, ok := followUps[tier]; ok {
		return f
	}
	return followUps[models.TierCold]
}

// NextSteps is the customer facing copy returned with a submission.
func NextSteps(tier models.Tier) []string {
	switch tier {
	case models.TierHot:
		return []string{
			"A senior automation specialist will call you within 1 hour",
			"Check your inbox for your detailed ROI report",
			"Book a strategy session using the link in the email",
		}
	case models.TierWarm:
		return []string{
			"Our team will reach out within 24 hours",
			"Check your inbox for your detailed ROI report",
		}
	default:
		return []string{
			"Check your inbox for your detailed ROI report",
			"We will follow up with automation resources within 3 days",
		}
	}
}
