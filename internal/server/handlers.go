// internal/server/handlers.go
package server

import (
	"errors"
	"math"
	"net/http"
	"time"

	apperrors "lead-capture/internal/common/errors"
	"lead-capture/internal/common/logger"
	"lead-capture/internal/common/metrics"
	"lead-capture/internal/models"
	createsubmissionrecord "lead-capture/internal/workers/roi/create-submission-record"
	scorelead "lead-capture/internal/workers/roi/score-lead"

	"github.com/go-chi/chi/v5"
)

const submitMessage = "Your ROI analysis has been submitted successfully!"

type calculateResponse struct {
	Success          bool              `json:"success"`
	Projections      models.Projection `json:"projections"`
	ProcessingTimeMs float64           `json:"processing_time_ms"`
	Timestamp        string            `json:"timestamp"`
}

type submitResponse struct {
	Success          bool                  `json:"success"`
	Message          string                `json:"message"`
	SubmissionID     string                `json:"submission_id"`
	LeadScore        int                   `json:"lead_score"`
	Tier             models.Tier           `json:"tier"`
	ScoreBreakdown   models.ScoreBreakdown `json:"score_breakdown"`
	Projections      models.Projection     `json:"projections"`
	NextSteps        []string              `json:"next_steps"`
	ProcessingTimeMs float64               `json:"processing_time_ms"`
}

type statusResponse struct {
	SubmissionID string               `json:"submission_id"`
	Status       string               `json:"status"`
	LeadScore    int                  `json:"lead_score"`
	Tier         models.Tier          `json:"tier"`
	EmailSent    bool                 `json:"email_sent"`
	CRMSynced    bool                 `json:"crm_synced"`
	EmailStatus  models.ChannelStatus `json:"email_status"`
	CRMStatus    models.ChannelStatus `json:"crm_status"`
	CRMContactID string               `json:"crm_contact_id,omitempty"`
	CRMDealID    string               `json:"crm_deal_id,omitempty"`
	CreatedAt    string               `json:"created_at"`
}

// calculate serves the live preview. Only monthly_revenue is required.
func (s *Server) calculate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reqID := requestIDFrom(r.Context())

	raw, shapeErrors, err := s.readObject(w, r, s.schemas.calculate)
	if err != nil {
		s.errors.Handle(w, reqID, err)
		return
	}

	metricsIn, err := s.deps.Validator.ValidateCalculation(raw)
	if err = mergeFieldErrors(err, shapeErrors); err != nil {
		countValidationFailures("calculate", err)
		s.errors.Handle(w, reqID, err)
		return
	}

	projection := s.deps.Projector.Project(metricsIn.MonthlyRevenue)
	elapsed := time.Since(start)
	s.obs.RecordStage(r.Context(), "calculate", elapsed)

	s.errors.Respond(w, reqID, http.StatusOK, calculateResponse{
		Success:          true,
		Projections:      projection,
		ProcessingTimeMs: millis(elapsed),
		Timestamp:        s.now().Format(time.RFC3339),
	})
}

// submit validates, scores and stores a lead, then queues its notifications.
// Once the record is stored the caller gets success whatever happens to the
// notifications.
func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	reqID := requestIDFrom(ctx)

	raw, shapeErrors, err := s.readObject(w, r, s.schemas.submit)
	if err != nil {
		s.errors.Handle(w, reqID, err)
		return
	}

	clean, err := s.deps.Validator.ValidateSubmission(raw)
	if err = mergeFieldErrors(err, shapeErrors); err != nil {
		countValidationFailures("submit", err)
		s.errors.Handle(w, reqID, err)
		return
	}
	s.obs.RecordStage(ctx, "validate", time.Since(start))

	score := s.deps.Scorer.Score(clean)
	projection := s.deps.Projector.Project(clean.MonthlyRevenue)
	s.obs.RecordScore(ctx, score.Total, string(score.Tier))

	rec := &models.SubmissionRecord{
		Submission: *clean,
		Score:      score,
		Projection: projection,
		ClientIP:   clientIP(r),
	}
	storeStart := time.Now()
	id, err := s.deps.Store.Insert(ctx, rec)
	if err != nil {
		s.errors.Handle(w, reqID, storeError("", err))
		return
	}
	s.obs.RecordStage(ctx, "store", time.Since(storeStart))
	metrics.SubmissionsTotal.WithLabelValues(string(score.Tier)).Inc()

	job := &models.NotificationJob{
		SubmissionID: id,
		Submission:   *clean,
		Score:        score,
		Projection:   projection,
		CreatedAt:    rec.CreatedAt.Format(time.RFC3339),
	}
	if err := s.deps.Queue.Enqueue(job); err != nil {
		s.logger.Warn("Notifications not queued", map[string]interface{}{
			"requestId":    reqID,
			"submissionId": id,
			"error":        err.Error(),
		})
	}

	elapsed := time.Since(start)
	s.obs.RecordStage(ctx, "submit", elapsed)
	s.logger.Info("Submission accepted", map[string]interface{}{
		"requestId":    reqID,
		"submissionId": id,
		"email":        logger.MaskEmail(clean.Email),
		"leadScore":    score.Total,
		"tier":         string(score.Tier),
	})

	s.errors.Respond(w, reqID, http.StatusOK, submitResponse{
		Success:          true,
		Message:          submitMessage,
		SubmissionID:     id,
		LeadScore:        score.Total,
		Tier:             score.Tier,
		ScoreBreakdown:   score,
		Projections:      projection,
		NextSteps:        scorelead.NextSteps(score.Tier),
		ProcessingTimeMs: millis(elapsed),
	})
}

// status reports notification progress. A submission is completed once both
// flag-bearing channels have settled.
func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "submissionID")

	rec, err := s.deps.Store.Get(r.Context(), id)
	if err != nil {
		s.errors.Handle(w, requestIDFrom(r.Context()), storeError(id, err))
		return
	}

	state := "processing"
	if rec.Flags.EmailStatus.Terminal() && rec.Flags.CRMStatus.Terminal() {
		state = "completed"
	}

	s.errors.Respond(w, requestIDFrom(r.Context()), http.StatusOK, statusResponse{
		SubmissionID: rec.ID,
		Status:       state,
		LeadScore:    rec.Score.Total,
		Tier:         rec.Score.Tier,
		EmailSent:    rec.Flags.EmailSent(),
		CRMSynced:    rec.Flags.CRMSynced(),
		EmailStatus:  rec.Flags.EmailStatus,
		CRMStatus:    rec.Flags.CRMStatus,
		CRMContactID: rec.Flags.CRMContactID,
		CRMDealID:    rec.Flags.CRMDealID,
		CreatedAt:    rec.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// storeError maps submission store failures onto API errors.
func storeError(id string, err error) error {
	switch {
	case errors.Is(err, createsubmissionrecord.ErrNotFound):
		return apperrors.NewSubmissionNotFoundError(id)
	case errors.Is(err, createsubmissionrecord.ErrDatabaseInsertFailed):
		return apperrors.NewDatabaseInsertFailedError(err)
	case errors.Is(err, createsubmissionrecord.ErrDatabaseUpdateFailed):
		return apperrors.NewDatabaseUpdateFailedError(err)
	default:
		return apperrors.NewDatabaseQueryFailedError(err)
	}
}

func millis(d time.Duration) float64 {
	return math.Round(float64(d.Microseconds())/10) / 100
}
