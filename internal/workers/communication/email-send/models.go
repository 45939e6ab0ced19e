package emailsend

import (
	"context"
	"time"

	awsclient "lead-capture/internal/common/aws"
	"lead-capture/internal/common/logger"
)

// Input is one outgoing message. Text is derived from HTML when empty.
type Input struct {
	To      []string          `json:"to"`
	ReplyTo string            `json:"replyTo,omitempty"`
	Subject string            `json:"subject"`
	HTML    string            `json:"html"`
	Text    string            `json:"text,omitempty"`
	Tags    map[string]string `json:"tags,omitempty"`
}

type Output struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	MessageID string    `json:"messageId,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	SentAt    time.Time `json:"sentAt,omitempty"`
}

// Mailer delivers a fully rendered message and returns the provider message id.
type Mailer interface {
	Send(ctx context.Context, from string, in *Input) (string, error)
	Name() string
}

type ServiceDependencies struct {
	Logger logger.Logger
	SES    awsclient.SESAPI
	Mailer Mailer
}
