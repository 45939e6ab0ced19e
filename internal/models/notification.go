// internal/models/notification.go
package models

// ChannelStatus is the lifecycle of one notification channel for a submission.
// It moves from pending to sent or failed once.
type ChannelStatus string

const (
	ChannelPending  ChannelStatus = "pending"
	ChannelSent     ChannelStatus = "sent"
	ChannelFailed   ChannelStatus = "failed"
	ChannelDisabled ChannelStatus = "disabled"
)

// Terminal reports whether the status can no longer change.
func (s ChannelStatus) Terminal() bool {
	return s == ChannelSent || s == ChannelFailed || s == ChannelDisabled
}

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelCRM   Channel = "crm"
	ChannelSMS   Channel = "sms"
	ChannelIndex Channel = "index"
)

// NotificationFlags are the only submission fields mutated after insert.
type NotificationFlags struct {
	EmailStatus  ChannelStatus `json:"email_status"`
	CRMStatus    ChannelStatus `json:"crm_status"`
	CRMContactID string        `json:"crm_contact_id,omitempty"`
	CRMDealID    string        `json:"crm_deal_id,omitempty"`
}

func (f NotificationFlags) EmailSent() bool { return f.EmailStatus == ChannelSent }
func (f NotificationFlags) CRMSynced() bool { return f.CRMStatus == ChannelSent }

// FlagUpdate is a partial update; nil fields are left untouched.
type FlagUpdate struct {
	EmailStatus  *ChannelStatus
	CRMStatus    *ChannelStatus
	CRMContactID *string
	CRMDealID    *string
}

func (u FlagUpdate) Empty() bool {
	return u.EmailStatus == nil && u.CRMStatus == nil && u.CRMContactID == nil && u.CRMDealID == nil
}

// NotificationJob is queued once per stored submission.
type NotificationJob struct {
	SubmissionID string
	Submission   CleanSubmission
	Score        ScoreBreakdown
	Projection   Projection
	CreatedAt    string
}
