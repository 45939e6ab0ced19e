package emailsend

import (
	"bytes"
	"context"
	"errors"
	"net/smtp"
	"net/textproto"
	"testing"
	"time"

	apperrors "lead-capture/internal/common/errors"
	"lead-capture/internal/common/logger"
	"lead-capture/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/jhillyerd/enmime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fakes
// ==========================

type fakeMailer struct {
	sendFn func(ctx context.Context, from string, in *Input) (string, error)
	sent   []*Input
	from   []string
}

func (m *fakeMailer) Name() string { return "FAKE" }

func (m *fakeMailer) Send(ctx context.Context, from string, in *Input) (string, error) {
	m.sent = append(m.sent, in)
	m.from = append(m.from, from)
	if m.sendFn != nil {
		return m.sendFn(ctx, from, in)
	}
	return "msg-1", nil
}

type fakeSES struct {
	params *ses.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("ses-0001")}, nil
}

// ==========================
// Test Helpers
// ==========================

func createValidConfig() *Config {
	return &Config{
		Provider:        ProviderSMTP,
		Timeout:         5 * time.Second,
		FromEmail:       "hello@roi.example.com",
		FromName:        "ROI Calculator",
		SalesRecipients: []string{"sales@roi.example.com"},
		CalendarURL:     "https://cal.example.com/strategy",
		SMTPHost:        "smtp.example.com",
		SMTPPort:        587,
		UseTLS:          true,
	}
}

func createTestJob() *models.NotificationJob {
	spend := 500.0
	return &models.NotificationJob{
		SubmissionID: "3f2b9c1e-0000-4000-8000-000000000001",
		CreatedAt:    "2026-03-14T09:30:00Z",
		Submission: models.CleanSubmission{
			BusinessMetrics: models.BusinessMetrics{
				MonthlyRevenue:     50000,
				Industry:           models.IndustryFood,
				BusinessStage:      models.StageMature,
				ManualHoursPerWeek: 25,
				MonthlyAdSpend:     &spend,
				Challenges:         []models.Challenge{models.ChallengeManualProcesses, models.ChallengeCartAbandonment},
			},
			ContactInfo: models.ContactInfo{
				FirstName:    "Jane",
				LastName:     "Doe",
				Email:        "jane@example.com",
				BusinessName: "Peak Gear",
				Phone:        "(555) 123-4567",
			},
		},
		Score: models.ScoreBreakdown{Demographic: 60, Behavioral: 52, Fit: 28, Total: 140, Tier: models.TierHot},
		Projection: models.Projection{
			Conservative: models.Scenario{MonthlyRevenue: 55000, MonthlyIncrease: 5000, AnnualBenefit: 60000, ROIPercentage: 150, BreakEvenMonths: 6},
			Expected:     models.Scenario{MonthlyRevenue: 65000, MonthlyIncrease: 15000, AnnualBenefit: 180000, ROIPercentage: 400, BreakEvenMonths: 5},
			Optimistic:   models.Scenario{MonthlyRevenue: 75000, MonthlyIncrease: 25000, AnnualBenefit: 300000, ROIPercentage: 700, BreakEvenMonths: 4},
		},
	}
}

func newTestService(t *testing.T, mailer Mailer) *Service {
	svc, err := NewService(ServiceDependencies{Logger: logger.NewTestLogger(t), Mailer: mailer}, createValidConfig())
	require.NoError(t, err)
	return svc
}

// ==========================
// Config
// ==========================

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr string
	}{
		{"valid smtp", func(c *Config) {}, ""},
		{"valid ses", func(c *Config) { c.Provider = ProviderSES; c.SMTPHost = "" }, ""},
		{"disabled needs nothing", func(c *Config) { *c = Config{Provider: ProviderDisabled, Timeout: time.Second} }, ""},
		{"smtp without host", func(c *Config) { c.SMTPHost = "" }, "smtp_host is required"},
		{"bad port", func(c *Config) { c.SMTPPort = 70000 }, "smtp_port must be between 1 and 65535"},
		{"missing sender", func(c *Config) { c.FromEmail = "" }, "from_email is required"},
		{"unknown provider", func(c *Config) { c.Provider = "pigeon" }, `unknown email provider "pigeon"`},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := createValidConfig()
			tt.modify(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestNewService_Disabled(t *testing.T) {
	svc, err := NewService(ServiceDependencies{Logger: logger.NewTestLogger(t)}, DefaultConfig())
	require.NoError(t, err)
	assert.False(t, svc.Enabled())

	_, err = svc.SendCustomerConfirmation(context.Background(), createTestJob())
	assert.ErrorIs(t, err, ErrEmailDisabled)
}

func TestNewService_SESRequiresClient(t *testing.T) {
	cfg := createValidConfig()
	cfg.Provider = ProviderSES

	_, err := NewService(ServiceDependencies{Logger: logger.NewTestLogger(t)}, cfg)
	assert.Error(t, err)

	svc, err := NewService(ServiceDependencies{Logger: logger.NewTestLogger(t), SES: &fakeSES{}}, cfg)
	require.NoError(t, err)
	assert.True(t, svc.Enabled())
}

// ==========================
// Rendering
// ==========================

func TestService_SendCustomerConfirmation(t *testing.T) {
	mailer := &fakeMailer{}
	svc := newTestService(t, mailer)

	out, err := svc.SendCustomerConfirmation(context.Background(), createTestJob())

	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "msg-1", out.MessageID)
	assert.Equal(t, "FAKE", out.Provider)

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, []string{"jane@example.com"}, msg.To)
	assert.Equal(t, "Your ROI projection for Peak Gear", msg.Subject)
	assert.Equal(t, `"ROI Calculator" <hello@roi.example.com>`, mailer.from[0])
	assert.Contains(t, msg.HTML, "Hi Jane")
	assert.Contains(t, msg.HTML, "$180,000")
	assert.Contains(t, msg.HTML, "within the hour")
	assert.Contains(t, msg.Text, "Conservative | $55,000 | $5,000 | $60,000 | 150% | 6 months")
	assert.Contains(t, msg.Text, "Book your free strategy session (https://cal.example.com/strategy)")
	assert.NotContains(t, msg.Text, "<")
	assert.Equal(t, "customer_confirmation", msg.Tags["type"])
}

func TestService_SendSalesNotification(t *testing.T) {
	mailer := &fakeMailer{}
	svc := newTestService(t, mailer)

	_, err := svc.SendSalesNotification(context.Background(), createTestJob())
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "New ROI Calculator Lead - Hot Tier (140/150)", msg.Subject)
	assert.Equal(t, []string{"sales@roi.example.com"}, msg.To)
	assert.Equal(t, "jane@example.com", msg.ReplyTo)
	assert.Contains(t, msg.Text, "Follow up within 1 hour.")
	assert.Contains(t, msg.Text, "- Industry: Food & Beverage")
	assert.Contains(t, msg.Text, "- Challenges: Manual processes, High cart abandonment")
	assert.Contains(t, msg.Text, "60/60 | 52/52 | 28/38")
	assert.NotContains(t, msg.Text, "Website:")
}

func TestService_SendSalesNotification_NoRecipients(t *testing.T) {
	cfg := createValidConfig()
	cfg.SalesRecipients = nil
	svc, err := NewService(ServiceDependencies{Logger: logger.NewTestLogger(t), Mailer: &fakeMailer{}}, cfg)
	require.NoError(t, err)

	_, err = svc.SendSalesNotification(context.Background(), createTestJob())
	assert.ErrorIs(t, err, ErrNoSalesRecipients)
}

// ==========================
// Execute
// ==========================

func TestService_Execute_Errors(t *testing.T) {
	tests := []struct {
		name          string
		input         *Input
		sendErr       error
		wantRetryable bool
	}{
		{
			name:    "invalid recipient is permanent",
			input:   &Input{To: []string{"not-an-email"}, Subject: "s", HTML: "<p>x</p>"},
			sendErr: nil,
		},
		{
			name:    "smtp 550 is permanent",
			input:   &Input{To: []string{"a@example.com"}, Subject: "s", HTML: "<p>x</p>"},
			sendErr: &textproto.Error{Code: 550, Msg: "mailbox unavailable"},
		},
		{
			name:          "smtp 421 is transient",
			input:         &Input{To: []string{"a@example.com"}, Subject: "s", HTML: "<p>x</p>"},
			sendErr:       &textproto.Error{Code: 421, Msg: "try again later"},
			wantRetryable: true,
		},
		{
			name:          "network error is transient",
			input:         &Input{To: []string{"a@example.com"}, Subject: "s", Text: "x"},
			sendErr:       errors.New("dial tcp: i/o timeout"),
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := &fakeMailer{sendFn: func(context.Context, string, *Input) (string, error) {
				return "", tt.sendErr
			}}
			svc := newTestService(t, mailer)

			out, err := svc.Execute(context.Background(), tt.input)

			assert.Nil(t, out)
			stdErr, ok := apperrors.AsStandard(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.ErrCodeEmailSendFailed, stdErr.Code)
			assert.Equal(t, tt.wantRetryable, stdErr.Retryable)
			assert.Equal(t, tt.wantRetryable, apperrors.IsRetryable(err))
		})
	}
}

func TestService_Execute_DerivesText(t *testing.T) {
	mailer := &fakeMailer{}
	svc := newTestService(t, mailer)

	_, err := svc.Execute(context.Background(), &Input{
		To:      []string{"a@example.com"},
		Subject: "Hello",
		HTML:    "<h1>Title</h1><p>Body   text</p><ul><li>one</li></ul>",
	})

	require.NoError(t, err)
	assert.Equal(t, "Title\nBody text\n- one", mailer.sent[0].Text)
}

// ==========================
// Providers
// ==========================

func TestSESMailer_Send(t *testing.T) {
	client := &fakeSES{}
	m := NewSESMailer(client)

	id, err := m.Send(context.Background(), "ROI <hello@roi.example.com>", &Input{
		To:      []string{"jane@example.com"},
		ReplyTo: "sales@roi.example.com",
		Subject: "Subject",
		HTML:    "<p>hi</p>",
		Text:    "hi",
		Tags:    map[string]string{"type": "customer_confirmation", "tier": "Hot"},
	})

	require.NoError(t, err)
	assert.Equal(t, "ses-0001", id)
	require.NotNil(t, client.params)
	assert.Equal(t, "ROI <hello@roi.example.com>", aws.ToString(client.params.Source))
	assert.Equal(t, []string{"jane@example.com"}, client.params.Destination.ToAddresses)
	assert.Equal(t, []string{"sales@roi.example.com"}, client.params.ReplyToAddresses)
	assert.Equal(t, "Subject", aws.ToString(client.params.Message.Subject.Data))
	assert.Equal(t, "<p>hi</p>", aws.ToString(client.params.Message.Body.Html.Data))
	require.Len(t, client.params.Tags, 2)
	assert.Equal(t, "tier", aws.ToString(client.params.Tags[0].Name))
	assert.Equal(t, "type", aws.ToString(client.params.Tags[1].Name))
}

func TestSMTPMailer_BuildsMultipartMessage(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  []byte
	)
	m := NewSMTPMailer(createValidConfig()).(*smtpMailer)
	m.send = func(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	id, err := m.Send(context.Background(), `"ROI Calculator" <hello@roi.example.com>`, &Input{
		To:      []string{"jane@example.com"},
		Subject: "Your ROI projection for Peak Gear",
		HTML:    "<p>Hello <b>Jane</b></p>",
		Text:    "Hello Jane",
	})

	require.NoError(t, err)
	assert.Contains(t, id, "@roi.example.com>")
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "hello@roi.example.com", gotFrom)
	assert.Equal(t, []string{"jane@example.com"}, gotTo)

	env, err := enmime.ReadEnvelope(bytes.NewReader(gotMsg))
	require.NoError(t, err)
	assert.Equal(t, "Your ROI projection for Peak Gear", env.GetHeader("Subject"))
	assert.Contains(t, env.GetHeader("From"), "hello@roi.example.com")
	assert.Contains(t, env.Text, "Hello Jane")
	assert.Contains(t, env.HTML, "<b>Jane</b>")
}

func TestSMTPMailer_CancelledContext(t *testing.T) {
	m := NewSMTPMailer(createValidConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Send(ctx, "hello@roi.example.com", &Input{To: []string{"a@example.com"}, Subject: "s", Text: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

// ==========================
// Helpers
// ==========================

func TestHTMLToText(t *testing.T) {
	text, err := htmlToText(`<html><head><style>p{}</style></head><body>
		<h2>Lead</h2>
		<table><tr><th>A</th><th>B</th></tr><tr><td> 1 </td><td>2</td></tr></table>
		<p>See <a href="https://x.com/a">the report</a></p>
		<ul><li></li><li>kept</li></ul>
	</body></html>`)

	require.NoError(t, err)
	assert.Equal(t, "Lead\nA | B\n1 | 2\nSee the report (https://x.com/a)\n- kept", text)
}

func TestValidateInput(t *testing.T) {
	assert.NoError(t, validateInput(&Input{To: []string{"a@b.co"}, Subject: "s", Text: "x"}))
	assert.EqualError(t, validateInput(&Input{Subject: "s", Text: "x"}), "at least one recipient is required")
	assert.EqualError(t, validateInput(&Input{To: []string{"a@b.co"}, Text: "x"}), "subject is required")
	assert.EqualError(t, validateInput(&Input{To: []string{"a@b.co"}, Subject: "s"}), "body is required")
	assert.EqualError(t, validateInput(&Input{To: []string{"a@localhost"}, Subject: "s", Text: "x"}), "invalid 'to' email address: a@localhost")
	assert.EqualError(t, validateInput(&Input{To: []string{"a@b.co"}, ReplyTo: "nope", Subject: "s", Text: "x"}), "invalid 'replyTo' email address: nope")
}
