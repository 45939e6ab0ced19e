// internal/server/schemas.go
package server

import (
	"lead-capture/internal/common/validation"
	vs "lead-capture/internal/workers/roi/validate-submission"
)

type requestSchemas struct {
	calculate *validation.Validator
	submit    *validation.Validator
	gdpr      *validation.Validator
}

var (
	numeric  = validation.Types{"number", "string", "null"}
	text     = validation.Types{"string", "null"}
	flag     = validation.Types{"boolean", "string", "null"}
	maxEmail = 254
)

// businessProperties are the JSON types accepted for the business fields. Range
// and format rules live in the field validator.
func businessProperties() map[string]validation.Property {
	return map[string]validation.Property{
		vs.FieldMonthlyRevenue:      {Type: numeric, Description: "Monthly revenue"},
		vs.FieldAverageOrderValue:   {Type: numeric},
		vs.FieldMonthlyOrders:       {Type: numeric},
		vs.FieldIndustry:            {Type: text},
		vs.FieldBusinessStage:       {Type: text},
		vs.FieldConversionRate:      {Type: numeric},
		vs.FieldCartAbandonmentRate: {Type: numeric},
		vs.FieldManualHours:         {Type: numeric},
		vs.FieldMonthlyAdSpend:      {Type: numeric},
		vs.FieldChallenges: {
			Type:  validation.Types{"array", "string", "null"},
			Items: &validation.Property{Type: validation.Types{"string"}},
		},
		vs.FieldChallengesOther: {Type: text},
	}
}

func calculateSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:                 "object",
		Properties:           businessProperties(),
		Required:             []string{vs.FieldMonthlyRevenue},
		AdditionalProperties: true,
	}
}

func submitSchema() validation.JSONSchema {
	props := businessProperties()
	for _, f := range []string{vs.FieldFirstName, vs.FieldLastName, vs.FieldEmail, vs.FieldBusinessName, vs.FieldCompany, vs.FieldWebsite, vs.FieldPhone} {
		props[f] = validation.Property{Type: text}
	}
	props[vs.FieldMarketingConsent] = validation.Property{Type: flag}

	return validation.JSONSchema{
		Type:       "object",
		Properties: props,
		Required: []string{
			vs.FieldMonthlyRevenue, vs.FieldIndustry, vs.FieldBusinessStage,
			vs.FieldFirstName, vs.FieldLastName, vs.FieldEmail,
		},
		AdditionalProperties: true,
	}
}

func gdprSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			vs.FieldEmail: {Type: validation.Types{"string"}, MaxLength: &maxEmail},
		},
		Required:             []string{vs.FieldEmail},
		AdditionalProperties: false,
	}
}
