// internal/workers/roi/validate-submission/models.go
package validatesubmission

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"lead-capture/internal/models"
)

// Input field names as they arrive from the form.
const (
	FieldMonthlyRevenue      = "monthly_revenue"
	FieldAverageOrderValue   = "average_order_value"
	FieldMonthlyOrders       = "monthly_orders"
	FieldIndustry            = "industry"
	FieldBusinessStage       = "business_stage"
	FieldConversionRate      = "conversion_rate"
	FieldCartAbandonmentRate = "cart_abandonment_rate"
	FieldManualHours         = "manual_hours_per_week"
	FieldMonthlyAdSpend      = "monthly_ad_spend"
	FieldChallenges          = "challenges"
	FieldChallengesOther     = "challenges_other"
	FieldFirstName           = "first_name"
	FieldLastName            = "last_name"
	FieldEmail               = "email"
	FieldBusinessName        = "business_name"
	FieldCompany             = "company"
	FieldWebsite             = "website"
	FieldPhone               = "phone"
	FieldMarketingConsent    = "marketing_consent"
)

const maxEmailLength = 254

var (
	emailRegex  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	nameRegex   = regexp.MustCompile(`^[a-zA-Z\s\-']+$`)
	domainRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?)*$`)
	phoneStrip  = regexp.MustCompile(`[\s\-()+.]`)
)

var (
	validIndustries = func() map[models.Industry]bool {
		m := make(map[models.Industry]bool, len(models.Industries))
		for _, i := range models.Industries {
			m[i] = true
		}
		return m
	}()
	validStages = func() map[models.BusinessStage]bool {
		m := make(map[models.BusinessStage]bool, len(models.BusinessStages))
		for _, s := range models.BusinessStages {
			m[s] = true
		}
		return m
	}()
	validChallenges = func() map[models.Challenge]bool {
		m := make(map[models.Challenge]bool, len(models.Challenges))
		for _, c := range models.Challenges {
			m[c] = true
		}
		return m
	}()
)

// ValidationError carries one human readable message per rejected field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// FieldErrors exposes the map to the HTTP error handler.
func (e *ValidationError) FieldErrors() map[string]string {
	return e.Fields
}

// fieldErrors collects the first failure for each field.
type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, exists := f[field]; !exists {
		f[field] = msg
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: map[string]string(f)}
}
