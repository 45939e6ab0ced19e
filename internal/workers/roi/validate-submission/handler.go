// internal/workers/roi/validate-submission/handler.go
package validatesubmission

import (
	"errors"
	"fmt"
	"strings"

	"lead-capture/internal/common/logger"
	"lead-capture/internal/models"
)

const (
	TaskType = "validate-submission"
)

// Handler validates raw form input. It holds no per-call state and is safe for
// concurrent use.
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

// ValidateCalculation validates the business fields used by the live preview.
// Only monthly_revenue is required; industry and business_stage are checked when
// supplied. Every failing field is reported in a single *ValidationError.
func (h *Handler) ValidateCalculation(raw map[string]interface{}) (*models.BusinessMetrics, error) {
	errs := fieldErrors{}
	metrics := h.validateMetrics(raw, false, errs)
	if err := errs.err(); err != nil {
		h.logRejected("calculate", errs)
		return nil, err
	}
	return metrics, nil
}

// ValidateSubmission validates the business fields plus contact details. No
// contact field is defaulted.
func (h *Handler) ValidateSubmission(raw map[string]interface{}) (*models.CleanSubmission, error) {
	errs := fieldErrors{}
	metrics := h.validateMetrics(raw, true, errs)
	contact := h.validateContact(raw, errs)

	consent, err := parseBool(raw[FieldMarketingConsent], "Marketing consent")
	if err != nil {
		errs.add(FieldMarketingConsent, err.Error())
	}

	if err := errs.err(); err != nil {
		h.logRejected("submit", errs)
		return nil, err
	}

	return &models.CleanSubmission{
		BusinessMetrics:  *metrics,
		ContactInfo:      *contact,
		MarketingConsent: consent,
	}, nil
}

func (h *Handler) validateMetrics(raw map[string]interface{}, requireEnums bool, errs fieldErrors) *models.BusinessMetrics {
	m := &models.BusinessMetrics{}

	if !present(raw, FieldMonthlyRevenue) {
		errs.add(FieldMonthlyRevenue, "Monthly revenue is required")
	} else if v, err := parseNumber(raw[FieldMonthlyRevenue], "Monthly revenue", false, h.config.MaxMonthlyRevenue); err != nil {
		errs.add(FieldMonthlyRevenue, err.Error())
	} else {
		m.MonthlyRevenue = v
	}

	// Enums first: the defaults below depend on them.
	industryForDefaults := models.IndustryOther
	if present(raw, FieldIndustry) {
		if s, ok := raw[FieldIndustry].(string); ok && validIndustries[models.Industry(strings.TrimSpace(s))] {
			m.Industry = models.Industry(strings.TrimSpace(s))
			industryForDefaults = m.Industry
		} else {
			errs.add(FieldIndustry, "Invalid Industry selection")
		}
	} else if requireEnums {
		errs.add(FieldIndustry, "Industry is required")
	}

	stageForDefaults := models.StageGrowth
	if present(raw, FieldBusinessStage) {
		if s, ok := raw[FieldBusinessStage].(string); ok && validStages[models.BusinessStage(strings.TrimSpace(s))] {
			m.BusinessStage = models.BusinessStage(strings.TrimSpace(s))
			stageForDefaults = m.BusinessStage
		} else {
			errs.add(FieldBusinessStage, "Invalid Business stage selection")
		}
	} else if requireEnums {
		errs.add(FieldBusinessStage, "Business stage is required")
	}

	if present(raw, FieldAverageOrderValue) {
		if v, err := parseNumber(raw[FieldAverageOrderValue], "Average order value", false, h.config.MaxAverageOrderValue); err != nil {
			errs.add(FieldAverageOrderValue, err.Error())
		} else {
			m.AverageOrderValue = v
		}
	} else {
		m.AverageOrderValue = defaultAverageOrderValue(industryForDefaults, m.MonthlyRevenue)
	}

	if present(raw, FieldMonthlyOrders) {
		if v, err := parseInteger(raw[FieldMonthlyOrders], "Monthly orders", h.config.MaxMonthlyOrders); err != nil {
			errs.add(FieldMonthlyOrders, err.Error())
		} else {
			m.MonthlyOrders = v
		}
	} else {
		m.MonthlyOrders = defaultMonthlyOrders(m.MonthlyRevenue, m.AverageOrderValue, h.config.MaxMonthlyOrders)
	}

	if present(raw, FieldManualHours) {
		if v, err := parseInteger(raw[FieldManualHours], "Manual hours per week", h.config.MaxManualHours); err != nil {
			errs.add(FieldManualHours, err.Error())
		} else {
			m.ManualHoursPerWeek = v
		}
	} else {
		m.ManualHoursPerWeek = defaultManualHours(stageForDefaults, m.MonthlyRevenue, h.config.MaxManualHours)
	}

	if present(raw, FieldConversionRate) {
		if v, err := parsePercentage(raw[FieldConversionRate], "Conversion rate"); err != nil {
			errs.add(FieldConversionRate, err.Error())
		} else {
			m.ConversionRate = v
		}
	} else {
		m.ConversionRate = defaultConversionRate(industryForDefaults)
	}

	if present(raw, FieldCartAbandonmentRate) {
		if v, err := parsePercentage(raw[FieldCartAbandonmentRate], "Cart abandonment rate"); err != nil {
			errs.add(FieldCartAbandonmentRate, err.Error())
		} else {
			m.CartAbandonmentRate = v
		}
	} else {
		m.CartAbandonmentRate = DefaultCartAbandonmentRate
	}

	if present(raw, FieldMonthlyAdSpend) {
		if v, err := parseNumber(raw[FieldMonthlyAdSpend], "Monthly ad spend", true, h.config.MaxMonthlyAdSpend); err != nil {
			errs.add(FieldMonthlyAdSpend, err.Error())
		} else {
			m.MonthlyAdSpend = &v
		}
	}

	challenges, err := decodeChallenges(raw[FieldChallenges])
	if err != nil {
		errs.add(FieldChallenges, err.Error())
	} else {
		m.Challenges = challenges
	}

	if present(raw, FieldChallengesOther) {
		if text, err := stringValue(raw[FieldChallengesOther], "Other challenge description"); err != nil {
			errs.add(FieldChallengesOther, err.Error())
		} else if len([]rune(text)) > h.config.MaxChallengesOtherLength {
			errs.add(FieldChallengesOther, fmt.Sprintf("Other challenge description must be %d characters or fewer", h.config.MaxChallengesOtherLength))
		} else {
			m.ChallengesOther = text
		}
	}

	return m
}

func (h *Handler) validateContact(raw map[string]interface{}, errs fieldErrors) *models.ContactInfo {
	c := &models.ContactInfo{}
	var err error

	if c.FirstName, err = validateName(raw, FieldFirstName, "First name"); err != nil {
		errs.add(FieldFirstName, err.Error())
	}
	if c.LastName, err = validateName(raw, FieldLastName, "Last name"); err != nil {
		errs.add(FieldLastName, err.Error())
	}
	if c.Email, err = validateEmail(raw); err != nil {
		errs.add(FieldEmail, err.Error())
	}

	nameField := FieldBusinessName
	if !present(raw, FieldBusinessName) && present(raw, FieldCompany) {
		nameField = FieldCompany
	}
	if !present(raw, nameField) {
		errs.add(FieldBusinessName, "Business name is required")
	} else if name, err := stringValue(raw[nameField], "Business name"); err != nil {
		errs.add(FieldBusinessName, err.Error())
	} else if len([]rune(name)) > h.config.MaxBusinessNameLength {
		errs.add(FieldBusinessName, fmt.Sprintf("Business name must be %d characters or fewer", h.config.MaxBusinessNameLength))
	} else {
		c.BusinessName = name
	}

	if raw[FieldWebsite] != nil {
		if website, err := normalizeWebsite(raw[FieldWebsite]); err == nil {
			c.Website = website
		} else if !errors.Is(err, errMissing) {
			errs.add(FieldWebsite, err.Error())
		}
	}

	if raw[FieldPhone] != nil {
		if phone, err := validatePhone(raw[FieldPhone]); err == nil {
			c.Phone = phone
		} else if !errors.Is(err, errMissing) {
			errs.add(FieldPhone, err.Error())
		}
	}

	return c
}

func (h *Handler) logRejected(operation string, errs fieldErrors) {
	fields := make([]string, 0, len(errs))
	for k := range errs {
		fields = append(fields, k)
	}
	h.logger.Info("validation rejected input", map[string]interface{}{
		"operation":  operation,
		"errorCount": len(errs),
		"fields":     fields,
	})
}
