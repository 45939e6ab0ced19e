// internal/workers/notification/dispatch-notifications/handler.go
package dispatchnotifications

import (
	"context"
	"errors"
	"time"

	"lead-capture/internal/common/logger"
	"lead-capture/internal/common/metrics"
	"lead-capture/internal/common/observability"
	"lead-capture/internal/common/retry"
	"lead-capture/internal/models"
	emailsend "lead-capture/internal/workers/communication/email-send"
)

const (
	TaskType = "dispatch-notifications"

	flagWriteTimeout = 10 * time.Second
)

// Handler runs every notification channel for a stored submission. Channel
// failures are logged and recorded in the submission flags; they never
// propagate to the caller.
type Handler struct {
	config *Config
	deps   Dependencies
	obs    *observability.Observability
	logger logger.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewHandler(config *Config, deps Dependencies) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	obs := deps.Observability
	if obs == nil {
		obs = observability.NewNoop()
	}
	return &Handler{
		config: config,
		deps:   deps,
		obs:    obs,
		logger: deps.Logger.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Dispatch delivers job on every enabled channel. It returns once each channel
// has reached a final status.
func (h *Handler) Dispatch(ctx context.Context, job *models.NotificationJob) *Result {
	log := h.logger.WithFields(map[string]interface{}{
		"submissionId": job.SubmissionID,
		"tier":         string(job.Score.Tier),
	})
	started := time.Now()
	result := &Result{}

	result.Email = h.dispatchEmail(ctx, job, log)
	h.saveFlags(ctx, job.SubmissionID, models.FlagUpdate{EmailStatus: &result.Email}, log)

	result.SalesEmailed = h.dispatchSalesEmail(ctx, job, log)

	var crmOut crmRefs
	result.CRM, crmOut = h.dispatchCRM(ctx, job, log)
	result.CRMContactID, result.CRMDealID = crmOut.contactID, crmOut.dealID
	update := models.FlagUpdate{CRMStatus: &result.CRM}
	if crmOut.contactID != "" {
		update.CRMContactID = &crmOut.contactID
	}
	if crmOut.dealID != "" {
		update.CRMDealID = &crmOut.dealID
	}
	h.saveFlags(ctx, job.SubmissionID, update, log)

	result.SMSSent = h.dispatchSalesAlert(ctx, job, log)
	result.Indexed = h.dispatchIndex(ctx, job, log)

	h.obs.RecordStage(ctx, "notify", time.Since(started))
	log.Info("Notifications dispatched", map[string]interface{}{
		"email":        string(result.Email),
		"crm":          string(result.CRM),
		"salesEmailed": result.SalesEmailed,
		"smsSent":      result.SMSSent,
		"indexed":      result.Indexed,
		"durationMs":   time.Since(started).Milliseconds(),
	})
	return result
}

// Abandon marks both flag-bearing channels failed for a job that will never be
// delivered, e.g. because the queue was full.
func (h *Handler) Abandon(ctx context.Context, job *models.NotificationJob) {
	failed := models.ChannelFailed
	h.saveFlags(ctx, job.SubmissionID, models.FlagUpdate{EmailStatus: &failed, CRMStatus: &failed}, h.logger.WithFields(map[string]interface{}{
		"submissionId": job.SubmissionID,
	}))
	h.obs.RecordNotification(ctx, string(models.ChannelEmail), false)
	h.obs.RecordNotification(ctx, string(models.ChannelCRM), false)
}

func (h *Handler) dispatchEmail(ctx context.Context, job *models.NotificationJob, log logger.Logger) models.ChannelStatus {
	if !h.config.EmailEnabled || h.deps.Email == nil || !h.deps.Email.Enabled() {
		return models.ChannelDisabled
	}

	err := h.attempt(ctx, models.ChannelEmail, log, func(ctx context.Context) error {
		_, err := h.deps.Email.SendCustomerConfirmation(ctx, job)
		return err
	})
	return h.finalStatus(ctx, models.ChannelEmail, err, log)
}

// dispatchSalesEmail notifies the internal sales inbox. It carries no flag.
func (h *Handler) dispatchSalesEmail(ctx context.Context, job *models.NotificationJob, log logger.Logger) bool {
	if !h.config.EmailEnabled || h.deps.Email == nil || !h.deps.Email.Enabled() {
		return false
	}

	err := h.attempt(ctx, "sales_email", log, func(ctx context.Context) error {
		_, err := h.deps.Email.SendSalesNotification(ctx, job)
		return err
	})
	switch {
	case err == nil:
		return true
	case errors.Is(err, emailsend.ErrNoSalesRecipients):
		log.Debug("No sales recipients configured, skipping sales email", nil)
	default:
		log.Warn("Sales notification email failed", map[string]interface{}{"error": err.Error()})
	}
	return false
}

type crmRefs struct {
	contactID string
	dealID    string
}

func (h *Handler) dispatchCRM(ctx context.Context, job *models.NotificationJob, log logger.Logger) (models.ChannelStatus, crmRefs) {
	if !h.config.CRMEnabled || h.deps.CRM == nil || !h.deps.CRM.Enabled() {
		return models.ChannelDisabled, crmRefs{}
	}

	var refs crmRefs
	err := h.attempt(ctx, models.ChannelCRM, log, func(ctx context.Context) error {
		out, err := h.deps.CRM.Sync(ctx, job)
		if out != nil && out.ContactID != "" {
			refs.contactID = out.ContactID
		}
		if err != nil {
			return err
		}
		refs.dealID = out.DealID
		return nil
	})
	return h.finalStatus(ctx, models.ChannelCRM, err, log), refs
}

func (h *Handler) dispatchIndex(ctx context.Context, job *models.NotificationJob, log logger.Logger) bool {
	if !h.config.IndexEnabled || h.deps.Indexer == nil || !h.deps.Indexer.Enabled() {
		return false
	}

	err := h.attempt(ctx, models.ChannelIndex, log, func(ctx context.Context) error {
		return h.deps.Indexer.Index(ctx, job)
	})
	if err != nil {
		log.Warn("Lead indexing failed", map[string]interface{}{"error": err.Error()})
		return false
	}
	return true
}

// attempt runs op under the retry policy with a per-attempt timeout and counts
// every attempt by outcome.
func (h *Handler) attempt(ctx context.Context, channel models.Channel, log logger.Logger, op func(ctx context.Context) error) error {
	policy := retry.Policy{
		MaxAttempts: h.config.MaxAttempts,
		Backoff:     retry.Linear(h.config.RetryDelay),
		Sleep:       h.sleep,
	}
	channelLog := log.WithFields(map[string]interface{}{"channel": string(channel)})

	_, err := retry.Do(ctx, policy, channelLog, string(channel), func(ctx context.Context, attempt int) error {
		attemptCtx, cancel := context.WithTimeout(ctx, h.config.AttemptTimeout)
		defer cancel()

		err := op(attemptCtx)
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		metrics.NotificationAttempts.WithLabelValues(string(channel), outcome).Inc()
		channelLog.Debug("Notification attempt finished", map[string]interface{}{
			"attempt": attempt,
			"outcome": outcome,
		})
		return err
	})
	return err
}

func (h *Handler) finalStatus(ctx context.Context, channel models.Channel, err error, log logger.Logger) models.ChannelStatus {
	h.obs.RecordNotification(ctx, string(channel), err == nil)
	if err == nil {
		return models.ChannelSent
	}
	log.Error("Notification channel failed", map[string]interface{}{
		"channel": string(channel),
		"error":   err.Error(),
	})
	return models.ChannelFailed
}

// saveFlags writes update even when ctx has been cancelled, so a shutdown
// mid-dispatch still records the outcome reached.
func (h *Handler) saveFlags(ctx context.Context, id string, update models.FlagUpdate, log logger.Logger) {
	if h.deps.Store == nil || update.Empty() {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flagWriteTimeout)
	defer cancel()

	if err := h.deps.Store.UpdateFlags(ctx, id, update); err != nil {
		log.Error("Failed to record notification flags", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
