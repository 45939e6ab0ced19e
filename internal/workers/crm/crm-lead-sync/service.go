package crmleadsync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	apperrors "lead-capture/internal/common/errors"
	"lead-capture/internal/common/hubspot"
	httpclient "lead-capture/internal/common/http"
	"lead-capture/internal/common/logger"
	"lead-capture/internal/models"
	scorelead "lead-capture/internal/workers/roi/score-lead"
)

var ErrCRMDisabled = errors.New("CRM_DISABLED")

type Service struct {
	config *Config
	logger logger.Logger
	client CRM
	now    func() time.Time
}

// NewService builds the HubSpot client from config unless deps supplies one.
// Without a token and without an injected client the service is disabled.
func NewService(deps ServiceDependencies, config *Config) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid crm config: %w", err)
	}

	var client CRM
	switch {
	case deps.Client != nil:
		client = deps.Client
	case config.Enabled():
		client = hubspot.NewCRMClient(hubspot.Options{
			BaseURL:           config.BaseURL,
			AccessToken:       config.AccessToken,
			Timeout:           config.Timeout,
			RequestsPerSecond: config.RequestsPerSecond,
			Burst:             config.Burst,
		})
	}

	return &Service{
		config: config,
		logger: deps.Logger.WithFields(map[string]interface{}{"channel": "crm"}),
		client: client,
		now:    time.Now,
	}, nil
}

func (s *Service) Enabled() bool {
	return s.client != nil
}

// Sync upserts the contact by email, then creates a deal tied to it and a
// follow-up task. A failed association or task is logged and does not fail the
// sync; a failed contact or deal call does. When only the deal fails, the
// returned Output still carries the contact ID alongside the error.
func (s *Service) Sync(ctx context.Context, job *models.NotificationJob) (*Output, error) {
	if s.client == nil {
		return nil, apperrors.NewCRMSyncFailedError("sync", ErrCRMDisabled, false)
	}

	sub := &job.Submission
	plan := scorelead.FollowUpFor(job.Score.Tier)
	log := s.logger.WithFields(map[string]interface{}{
		"submissionId": job.SubmissionID,
		"email":        logger.MaskEmail(sub.Email),
		"tier":         string(job.Score.Tier),
	})

	contactID, created, err := s.upsertContact(ctx, sub, job.Score, plan)
	if err != nil {
		return nil, err
	}

	dealID, err := s.client.CreateDeal(ctx, s.dealProperties(job))
	if err != nil {
		partial := &Output{ContactID: contactID, ContactCreated: created}
		return partial, apperrors.NewCRMSyncFailedError("deal create", err, isRetryable(err))
	}

	if err := s.client.Associate(ctx, "deals", dealID, "contacts", contactID, hubspot.AssocDealToContact); err != nil {
		log.Warn("Failed to associate deal with contact", map[string]interface{}{
			"dealId":    dealID,
			"contactId": contactID,
			"error":     err.Error(),
		})
	}

	taskID, err := s.createFollowUpTask(ctx, job, plan, contactID, dealID)
	if err != nil {
		log.Warn("Failed to create follow-up task", map[string]interface{}{
			"contactId": contactID,
			"error":     err.Error(),
		})
	}

	log.Info("CRM sync completed", map[string]interface{}{
		"contactId":      contactID,
		"contactCreated": created,
		"dealId":         dealID,
		"taskId":         taskID,
	})

	return &Output{
		ContactID:      contactID,
		DealID:         dealID,
		TaskID:         taskID,
		ContactCreated: created,
		SyncedAt:       s.now().UTC(),
	}, nil
}

func (s *Service) upsertContact(ctx context.Context, sub *models.CleanSubmission, score models.ScoreBreakdown, plan scorelead.FollowUp) (string, bool, error) {
	props := contactProperties(sub, score, plan)

	existing, err := s.client.SearchContactByEmail(ctx, sub.Email)
	if err != nil {
		return "", false, apperrors.NewCRMSyncFailedError("contact search", err, isRetryable(err))
	}

	if existing != nil && existing.ID != "" {
		if err := s.client.UpdateContact(ctx, existing.ID, props); err != nil {
			return "", false, apperrors.NewCRMSyncFailedError("contact update", err, isRetryable(err))
		}
		return existing.ID, false, nil
	}

	id, err := s.client.CreateContact(ctx, props)
	if err != nil {
		return "", false, apperrors.NewCRMSyncFailedError("contact create", err, isRetryable(err))
	}
	return id, true, nil
}

func contactProperties(sub *models.CleanSubmission, score models.ScoreBreakdown, plan scorelead.FollowUp) map[string]string {
	props := map[string]string{
		"email":                sub.Email,
		"firstname":            sub.FirstName,
		"lastname":             sub.LastName,
		"company":              sub.BusinessName,
		"industry":             string(sub.Industry),
		"business_stage":       stageValue(sub.BusinessStage),
		"monthly_revenue":      strconv.FormatFloat(sub.MonthlyRevenue, 'f', -1, 64),
		"roi_calculator_score": strconv.Itoa(score.Total),
		"roi_calculator_tier":  string(score.Tier),
		"lifecyclestage":       plan.LifecycleStage,
		"hs_lead_status":       plan.LeadStatus,
	}
	if sub.Website != "" {
		props["website"] = sub.Website
	}
	if sub.Phone != "" {
		props["phone"] = sub.Phone
	}
	if sub.MarketingConsent {
		props["hs_legal_basis"] = legalBasisConsent
	}
	return props
}

func (s *Service) dealProperties(job *models.NotificationJob) map[string]string {
	amount := job.Projection.Expected.AnnualBenefit * s.config.DealShare
	description := fmt.Sprintf("Lead score %d/%d (%s), %s, monthly revenue %.0f",
		job.Score.Total, scorelead.MaxTotal, job.Score.Tier, job.Submission.Industry, job.Submission.MonthlyRevenue)

	return map[string]string{
		"dealname":    job.Submission.BusinessName + " - ROI Automation",
		"amount":      strconv.FormatFloat(amount, 'f', 2, 64),
		"pipeline":    s.config.Pipeline,
		"dealstage":   s.config.DealStage,
		"closedate":   s.now().UTC().Add(s.config.CloseWithin).Format("2006-01-02"),
		"dealtype":    "newbusiness",
		"description": description,
	}
}

func (s *Service) createFollowUpTask(ctx context.Context, job *models.NotificationJob, plan scorelead.FollowUp, contactID, dealID string) (string, error) {
	sub := &job.Submission
	due := s.now().Add(plan.Within)

	taskID, err := s.client.CreateTask(ctx, map[string]string{
		"hs_task_subject":  fmt.Sprintf("ROI Calculator follow-up: %s (%s)", sub.BusinessName, job.Score.Tier),
		"hs_task_body":     fmt.Sprintf("Contact %s from %s. Lead score %d, expected annual benefit %.0f.", sub.FullName(), sub.BusinessName, job.Score.Total, job.Projection.Expected.AnnualBenefit),
		"hs_task_status":   "NOT_STARTED",
		"hs_task_priority": plan.TaskPriority,
		"hs_task_type":     plan.TaskType,
		"hs_timestamp":     strconv.FormatInt(due.UnixMilli(), 10),
	})
	if err != nil {
		return "", err
	}

	if err := s.client.Associate(ctx, "tasks", taskID, "contacts", contactID, hubspot.AssocTaskToContact); err != nil {
		return taskID, err
	}
	if err := s.client.Associate(ctx, "tasks", taskID, "deals", dealID, hubspot.AssocTaskToDeal); err != nil {
		return taskID, err
	}
	return taskID, nil
}

func stageValue(stage models.BusinessStage) string {
	if v, ok := stageValues[stage]; ok {
		return v
	}
	return stageValues[models.StageGrowth]
}

// isRetryable treats HTTP 429 and 5xx as transient, other statuses as
// permanent, and transport failures as transient.
func isRetryable(err error) bool {
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	return !errors.Is(err, context.Canceled)
}
