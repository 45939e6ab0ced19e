package emailsend

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	apperrors "lead-capture/internal/common/errors"
	"lead-capture/internal/common/logger"
	"lead-capture/internal/models"
)

var (
	ErrEmailDisabled     = errors.New("EMAIL_DISABLED")
	ErrNoSalesRecipients = errors.New("NO_SALES_RECIPIENTS")
)

type Service struct {
	config   *Config
	logger   logger.Logger
	mailer   Mailer
	renderer *Renderer
}

// NewService picks the mailer from deps or, failing that, from config.Provider.
// A disabled provider yields a service whose sends return ErrEmailDisabled.
func NewService(deps ServiceDependencies, config *Config) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid email config: %w", err)
	}

	renderer, err := NewRenderer(config.CalendarURL)
	if err != nil {
		return nil, err
	}

	mailer := deps.Mailer
	if mailer == nil {
		switch config.Provider {
		case ProviderSES:
			if deps.SES == nil {
				return nil, fmt.Errorf("ses provider selected but no SES client supplied")
			}
			mailer = NewSESMailer(deps.SES)
		case ProviderSMTP:
			mailer = NewSMTPMailer(config)
		}
	}

	return &Service{
		config:   config,
		logger:   deps.Logger.WithFields(map[string]interface{}{"channel": "email"}),
		mailer:   mailer,
		renderer: renderer,
	}, nil
}

func (s *Service) Enabled() bool {
	return s.mailer != nil
}

func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	if s.mailer == nil {
		return nil, apperrors.NewEmailSendFailedError(ErrEmailDisabled, false)
	}

	if err := validateInput(input); err != nil {
		return nil, apperrors.NewEmailSendFailedError(err, false)
	}
	if input.Text == "" {
		text, err := htmlToText(input.HTML)
		if err != nil {
			return nil, apperrors.NewEmailSendFailedError(err, false)
		}
		input.Text = text
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	messageID, err := s.mailer.Send(ctx, s.from(), input)
	if err != nil {
		return nil, apperrors.NewEmailSendFailedError(err, isRetryable(err))
	}

	s.logger.Info("Email sent successfully", map[string]interface{}{
		"recipients": len(input.To),
		"subject":    input.Subject,
		"provider":   s.mailer.Name(),
		"messageId":  messageID,
	})

	return &Output{
		Success:   true,
		Message:   "Email sent successfully",
		MessageID: messageID,
		Provider:  s.mailer.Name(),
		SentAt:    time.Now().UTC(),
	}, nil
}

// SendCustomerConfirmation mails the projection to the lead. It is transactional
// and goes out regardless of marketing consent.
func (s *Service) SendCustomerConfirmation(ctx context.Context, job *models.NotificationJob) (*Output, error) {
	in, err := s.renderer.CustomerConfirmation(job)
	if err != nil {
		return nil, apperrors.NewEmailSendFailedError(err, false)
	}
	return s.Execute(ctx, in)
}

func (s *Service) SendSalesNotification(ctx context.Context, job *models.NotificationJob) (*Output, error) {
	if len(s.config.SalesRecipients) == 0 {
		return nil, apperrors.NewEmailSendFailedError(ErrNoSalesRecipients, false)
	}
	in, err := s.renderer.SalesNotification(job, s.config.SalesRecipients)
	if err != nil {
		return nil, apperrors.NewEmailSendFailedError(err, false)
	}
	return s.Execute(ctx, in)
}

func (s *Service) from() string {
	return (&mail.Address{Name: s.config.FromName, Address: s.config.FromEmail}).String()
}
