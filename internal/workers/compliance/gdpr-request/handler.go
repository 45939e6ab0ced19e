// internal/workers/compliance/gdpr-request/handler.go
package gdprrequest

import (
	"context"
	"fmt"
	"time"

	"lead-capture/internal/common/logger"
	validatesubmission "lead-capture/internal/workers/roi/validate-submission"
)

const (
	TaskType = "gdpr-request"
)

// Handler serves data subject export and erasure requests keyed by email.
type Handler struct {
	config *Config
	store  Store
	logger logger.Logger
	now    func() time.Time
}

func NewHandler(config *Config, store Store, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	return &Handler{
		config: config,
		store:  store,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Export returns every stored submission for email. An unknown email yields an
// empty export, not an error.
func (h *Handler) Export(ctx context.Context, email string) (*ExportOutput, error) {
	normalized, err := normalize(email)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	records, err := h.store.FindByEmail(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	out := &ExportOutput{
		Email:      normalized,
		Count:      len(records),
		Records:    make([]ExportedRecord, 0, len(records)),
		ExportedAt: h.now(),
	}
	for _, rec := range records {
		out.Records = append(out.Records, ExportedRecord{
			SubmissionID:     rec.ID,
			Submission:       rec.Submission,
			MarketingConsent: rec.Submission.MarketingConsent,
			LeadScore:        rec.Score.Total,
			Tier:             rec.Score.Tier,
			EmailStatus:      rec.Flags.EmailStatus,
			CRMStatus:        rec.Flags.CRMStatus,
			ClientIP:         rec.ClientIP,
			CreatedAt:        rec.CreatedAt,
		})
	}

	h.logger.Info("data export served", map[string]interface{}{
		"email":   logger.MaskEmail(normalized),
		"records": out.Count,
	})
	return out, nil
}

// Delete erases every stored submission for email. CRM and search copies are
// not touched.
func (h *Handler) Delete(ctx context.Context, email string) (*DeleteOutput, error) {
	normalized, err := normalize(email)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	n, err := h.store.DeleteByEmail(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("delete: %w", err)
	}

	h.logger.Info("data erased on request", map[string]interface{}{
		"email":   logger.MaskEmail(normalized),
		"deleted": n,
	})
	return &DeleteOutput{Email: normalized, Deleted: n, DeletedAt: h.now()}, nil
}

func normalize(email string) (string, error) {
	normalized, err := validatesubmission.NormalizeEmail(email)
	if err != nil {
		return "", &validatesubmission.ValidationError{
			Fields: map[string]string{validatesubmission.FieldEmail: err.Error()},
		}
	}
	return normalized, nil
}
