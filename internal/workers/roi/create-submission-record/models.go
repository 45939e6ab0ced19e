// internal/workers/roi/create-submission-record/models.go
package createsubmissionrecord

import "fmt"

// Column names of the submissions table.
const (
	colID               = "id"
	colContact          = "contact_enc"
	colEmailIndex       = "email_index"
	colMetrics          = "metrics"
	colMarketingConsent = "marketing_consent"
	colLeadScore        = "lead_score"
	colTier             = "tier"
	colScoreBreakdown   = "score_breakdown"
	colProjections      = "projections"
	colClientIP         = "client_ip"
	colEmailStatus      = "email_status"
	colCRMStatus        = "crm_status"
	colCRMContactID     = "crm_contact_id"
	colCRMDealID        = "crm_deal_id"
	colCreatedAt        = "created_at"
	colUpdatedAt        = "updated_at"
)

var selectColumns = []string{
	colID, colContact, colMetrics, colMarketingConsent, colScoreBreakdown, colProjections,
	colClientIP, colEmailStatus, colCRMStatus, colCRMContactID, colCRMDealID,
	colCreatedAt, colUpdatedAt,
}

func schemaStatements(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id                UUID PRIMARY KEY,
			contact_enc       BYTEA NOT NULL,
			email_index       TEXT NOT NULL,
			metrics           JSONB NOT NULL,
			marketing_consent BOOLEAN NOT NULL DEFAULT FALSE,
			lead_score        INTEGER NOT NULL,
			tier              TEXT NOT NULL,
			score_breakdown   JSONB NOT NULL,
			projections       JSONB NOT NULL,
			client_ip         TEXT NOT NULL DEFAULT '',
			email_status      TEXT NOT NULL DEFAULT 'pending',
			crm_status        TEXT NOT NULL DEFAULT 'pending',
			crm_contact_id    TEXT NOT NULL DEFAULT '',
			crm_deal_id       TEXT NOT NULL DEFAULT '',
			created_at        TIMESTAMPTZ NOT NULL,
			updated_at        TIMESTAMPTZ NOT NULL
		)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_email_index_idx ON %s (email_index)`, table, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_created_at_idx ON %s (created_at)`, table, table),
	}
}
