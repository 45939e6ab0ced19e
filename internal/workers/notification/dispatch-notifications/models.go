// internal/workers/notification/dispatch-notifications/models.go
package dispatchnotifications

import (
	"context"

	awsclient "lead-capture/internal/common/aws"
	"lead-capture/internal/common/logger"
	"lead-capture/internal/common/observability"
	"lead-capture/internal/models"
	emailsend "lead-capture/internal/workers/communication/email-send"
	crmleadsync "lead-capture/internal/workers/crm/crm-lead-sync"
)

// FlagStore persists channel outcomes on the stored submission.
type FlagStore interface {
	UpdateFlags(ctx context.Context, id string, update models.FlagUpdate) error
}

type Emailer interface {
	Enabled() bool
	SendCustomerConfirmation(ctx context.Context, job *models.NotificationJob) (*emailsend.Output, error)
	SendSalesNotification(ctx context.Context, job *models.NotificationJob) (*emailsend.Output, error)
}

type CRMSyncer interface {
	Enabled() bool
	Sync(ctx context.Context, job *models.NotificationJob) (*crmleadsync.Output, error)
}

type LeadIndexer interface {
	Enabled() bool
	Index(ctx context.Context, job *models.NotificationJob) error
}

// Queue accepts jobs for background delivery. Enqueue never blocks.
type Queue interface {
	Enqueue(job *models.NotificationJob) error
}

type Dependencies struct {
	Logger        logger.Logger
	Store         FlagStore
	Email         Emailer
	CRM           CRMSyncer
	Indexer       LeadIndexer
	SNS           awsclient.SNSAPI
	Observability *observability.Observability
}

// Result is the outcome of one dispatch. Email and CRM are the flag-bearing
// channels; the others are best effort.
type Result struct {
	Email        models.ChannelStatus
	CRM          models.ChannelStatus
	CRMContactID string
	CRMDealID    string
	SalesEmailed bool
	SMSSent      bool
	Indexed      bool
}
