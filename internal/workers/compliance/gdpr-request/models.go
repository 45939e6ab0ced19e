// internal/workers/compliance/gdpr-request/models.go
package gdprrequest

import (
	"context"
	"time"

	"lead-capture/internal/models"
)

// Store is the slice of the submission store used for data subject requests.
type Store interface {
	FindByEmail(ctx context.Context, email string) ([]*models.SubmissionRecord, error)
	DeleteByEmail(ctx context.Context, email string) (int64, error)
}

// ExportedRecord is one stored submission in a data export, PII included.
type ExportedRecord struct {
	SubmissionID     string                 `json:"submission_id"`
	Submission       models.CleanSubmission `json:"submission"`
	MarketingConsent bool                   `json:"marketing_consent"`
	LeadScore        int                    `json:"lead_score"`
	Tier             models.Tier            `json:"tier"`
	EmailStatus      models.ChannelStatus   `json:"email_status"`
	CRMStatus        models.ChannelStatus   `json:"crm_status"`
	ClientIP         string                 `json:"client_ip,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}

type ExportOutput struct {
	Email      string           `json:"email"`
	Count      int              `json:"count"`
	Records    []ExportedRecord `json:"records"`
	ExportedAt time.Time        `json:"exported_at"`
}

type DeleteOutput struct {
	Email     string    `json:"email"`
	Deleted   int64     `json:"deleted"`
	DeletedAt time.Time `json:"deleted_at"`
}
