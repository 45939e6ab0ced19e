// internal/workers/compliance/gdpr-request/handler_test.go
package gdprrequest

import (
	"context"
	"errors"
	"testing"
	"time"

	"lead-capture/internal/common/logger"
	"lead-capture/internal/models"
	validatesubmission "lead-capture/internal/workers/roi/validate-submission"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	records   []*models.SubmissionRecord
	findErr   error
	deleteErr error
	deleted   int64
	lastEmail string
	deadline  bool
}

func (f *fakeStore) FindByEmail(ctx context.Context, email string) ([]*models.SubmissionRecord, error) {
	f.lastEmail = email
	_, f.deadline = ctx.Deadline()
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.records, nil
}

func (f *fakeStore) DeleteByEmail(ctx context.Context, email string) (int64, error) {
	f.lastEmail = email
	_, f.deadline = ctx.Deadline()
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	return f.deleted, nil
}

var fixedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T, store Store) *Handler {
	h := NewHandler(nil, store, logger.NewTestLogger(t))
	h.now = func() time.Time { return fixedNow }
	return h
}

func sampleRecord(id string, consent bool) *models.SubmissionRecord {
	return &models.SubmissionRecord{
		ID: id,
		Submission: models.CleanSubmission{
			ContactInfo: models.ContactInfo{
				FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", BusinessName: "Acme",
			},
			BusinessMetrics:  models.BusinessMetrics{MonthlyRevenue: 50000},
			MarketingConsent: consent,
		},
		Score:     models.ScoreBreakdown{Total: 72, Tier: models.TierWarm},
		Flags:     models.NotificationFlags{EmailStatus: models.ChannelSent, CRMStatus: models.ChannelFailed},
		ClientIP:  "203.0.113.7",
		CreatedAt: fixedNow.Add(-time.Hour),
	}
}

func TestHandler_Export(t *testing.T) {
	store := &fakeStore{records: []*models.SubmissionRecord{
		sampleRecord("a", true),
		sampleRecord("b", false),
	}}
	h := newTestHandler(t, store)

	out, err := h.Export(context.Background(), "  Jane@Example.com ")
	require.NoError(t, err)

	assert.Equal(t, "jane@example.com", store.lastEmail)
	assert.True(t, store.deadline)
	assert.Equal(t, "jane@example.com", out.Email)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, fixedNow, out.ExportedAt)

	first := out.Records[0]
	assert.Equal(t, "a", first.SubmissionID)
	assert.True(t, first.MarketingConsent)
	assert.Equal(t, 72, first.LeadScore)
	assert.Equal(t, models.TierWarm, first.Tier)
	assert.Equal(t, models.ChannelSent, first.EmailStatus)
	assert.Equal(t, models.ChannelFailed, first.CRMStatus)
	assert.Equal(t, "Acme", first.Submission.BusinessName)
	assert.False(t, out.Records[1].MarketingConsent)
}

func TestHandler_Export_NoRecords(t *testing.T) {
	h := newTestHandler(t, &fakeStore{})

	out, err := h.Export(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, out.Count)
	assert.NotNil(t, out.Records)
}

func TestHandler_Delete(t *testing.T) {
	store := &fakeStore{deleted: 3}
	h := newTestHandler(t, store)

	out, err := h.Delete(context.Background(), "JANE@example.com")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", store.lastEmail)
	assert.Equal(t, int64(3), out.Deleted)
	assert.Equal(t, fixedNow, out.DeletedAt)
}

func TestHandler_InvalidEmail(t *testing.T) {
	store := &fakeStore{}
	h := newTestHandler(t, store)

	_, err := h.Export(context.Background(), "not-an-email")
	var verr *validatesubmission.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Invalid email format", verr.Fields["email"])

	_, err = h.Delete(context.Background(), "")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Email is required", verr.Fields["email"])

	assert.Empty(t, store.lastEmail)
}

func TestHandler_StoreErrors(t *testing.T) {
	boom := errors.New("connection reset")
	h := newTestHandler(t, &fakeStore{findErr: boom, deleteErr: boom})

	_, err := h.Export(context.Background(), "jane@example.com")
	assert.ErrorIs(t, err, boom)

	_, err = h.Delete(context.Background(), "jane@example.com")
	assert.ErrorIs(t, err, boom)
}
