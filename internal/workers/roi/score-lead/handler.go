// internal/workers/roi/score-lead/handler.go
package scorelead

import (
	"strings"

	"lead-capture/internal/common/logger"
	"lead-capture/internal/models"
)

const (
	TaskType = "score-lead"
)

// Handler scores clean submissions. Scoring is a pure function of its input.
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

func (h *Handler) Score(s *models.CleanSubmission) models.ScoreBreakdown {
	details := make(map[string]int)

	demographic := h.demographic(s, details)
	behavioral := h.behavioral(s, details)
	fit := h.fit(s, details)
	total := demographic + behavioral + fit

	breakdown := models.ScoreBreakdown{
		Demographic: demographic,
		Behavioral:  behavioral,
		Fit:         fit,
		Total:       total,
		Tier:        h.TierFor(total),
		Details:     details,
	}

	h.logger.Debug("lead scored", map[string]interface{}{
		"demographic": demographic,
		"behavioral":  behavioral,
		"fit":         fit,
		"total":       total,
		"tier":        breakdown.Tier,
	})
	return breakdown
}

// TierFor maps a total to a tier. Thresholds are inclusive lower bounds.
func (h *Handler) TierFor(total int) models.Tier {
	switch {
	case total >= h.config.HotThreshold:
		return models.TierHot
	case total >= h.config.WarmThreshold:
		return models.TierWarm
	default:
		return models.TierCold
	}
}

func (h *Handler) demographic(s *models.CleanSubmission, details map[string]int) int {
	revenuePoints := minInt(revenueTierPoints(s.MonthlyRevenue), MaxDemographic)
	details[DetailRevenueTier] = revenuePoints

	score := revenuePoints
	if points, ok := stagePoints[s.BusinessStage]; ok {
		details[DetailBusinessStage] = points
		score += points
	}
	return minInt(score, MaxDemographic)
}

func revenueTierPoints(revenue float64) int {
	switch {
	case revenue >= 500000:
		return 70
	case revenue >= 100000:
		return 55
	case revenue >= 50000:
		return 40
	case revenue >= 10000:
		return 25
	default:
		return 10
	}
}

func (h *Handler) behavioral(s *models.CleanSubmission, details map[string]int) int {
	score := 0

	if s.Website != "" {
		details[DetailWebsiteFilled] = 10
		score += 10
	}
	if s.Phone != "" {
		details[DetailPhoneFilled] = 10
		score += 10
	}
	if s.MonthlyAdSpend != nil && *s.MonthlyAdSpend > 0 {
		details[DetailAdSpendFilled] = 10
		score += 10
	}

	detailedOther := s.HasChallenge(models.ChallengeOther) &&
		len([]rune(strings.TrimSpace(s.ChallengesOther))) >= otherChallengeMinLength
	if len(s.Challenges) >= 2 || detailedOther {
		details[DetailDetailedChallenges] = 12
		score += 12
	}

	if s.ManualHoursPerWeek >= 20 {
		details[DetailHighManualHours] = 10
		score += 10
	}

	return minInt(score, MaxBehavioral)
}

func (h *Handler) fit(s *models.CleanSubmission, details map[string]int) int {
	industryPoints := 10
	industry := strings.ToLower(string(s.Industry))
	for _, kw := range highFitIndustryKeywords {
		if strings.Contains(industry, kw) {
			industryPoints = 15
			break
		}
	}
	details[DetailIndustryFit] = industryPoints
	score := industryPoints

	if matchesCorePain(s.Challenges) {
		details[DetailChallengeAlignment] = 13
		score += 13
	}
	return minInt(score, MaxFit)
}

func matchesCorePain(challenges []models.Challenge) bool {
	for _, c := range challenges {
		text := strings.ToLower(string(c))
		for _, kw := range corePainKeywords {
			if strings.Contains(text, kw) {
				return true
			}
		}
	}
	return false
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
