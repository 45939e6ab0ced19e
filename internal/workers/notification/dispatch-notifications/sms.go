// internal/workers/notification/dispatch-notifications/sms.go
package dispatchnotifications

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	apperrors "lead-capture/internal/common/errors"
	"lead-capture/internal/common/logger"
	"lead-capture/internal/models"
	scorelead "lead-capture/internal/workers/roi/score-lead"
)

// dispatchSalesAlert texts the sales phone about Hot leads only.
func (h *Handler) dispatchSalesAlert(ctx context.Context, job *models.NotificationJob, log logger.Logger) bool {
	if job.Score.Tier != models.TierHot {
		return false
	}
	if !h.config.SMSEnabled || h.deps.SNS == nil || h.config.SalesAlertPhone == "" {
		return false
	}

	var messageID string
	err := h.attempt(ctx, models.ChannelSMS, log, func(ctx context.Context) error {
		out, err := h.deps.SNS.Publish(ctx, h.alertInput(job))
		if err != nil {
			return apperrors.NewSMSSendFailedError(err)
		}
		messageID = aws.ToString(out.MessageId)
		return nil
	})
	h.obs.RecordNotification(ctx, string(models.ChannelSMS), err == nil)
	if err != nil {
		log.Warn("Sales SMS alert failed", map[string]interface{}{
			"error": err.Error(),
			"phone": logger.MaskPhone(h.config.SalesAlertPhone),
		})
		return false
	}

	log.Info("Sales SMS alert sent", map[string]interface{}{
		"messageId": messageID,
		"phone":     logger.MaskPhone(h.config.SalesAlertPhone),
	})
	return true
}

func (h *Handler) alertInput(job *models.NotificationJob) *sns.PublishInput {
	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    aws.String("String"),
			StringValue: aws.String("Transactional"),
		},
	}
	if h.config.SMSSenderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(h.config.SMSSenderID),
		}
	}

	return &sns.PublishInput{
		PhoneNumber:       aws.String(h.config.SalesAlertPhone),
		Message:           aws.String(alertMessage(job)),
		MessageAttributes: attrs,
	}
}

func alertMessage(job *models.NotificationJob) string {
	sub := job.Submission
	return fmt.Sprintf("HOT lead %d/%d: %s (%s, %s). Revenue $%.0f/mo. Call within %dh.",
		job.Score.Total, scorelead.MaxTotal, sub.BusinessName, sub.Industry, sub.BusinessStage,
		sub.MonthlyRevenue, int(scorelead.FollowUpFor(job.Score.Tier).Within.Hours()))
}
