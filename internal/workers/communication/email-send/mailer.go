package emailsend

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"sort"
	"strings"
	"time"

	awsclient "lead-capture/internal/common/aws"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/jhillyerd/enmime"
)

// ==========================
// SES
// ==========================

type sesMailer struct {
	client awsclient.SESAPI
}

func NewSESMailer(client awsclient.SESAPI) Mailer {
	return &sesMailer{client: client}
}

func (m *sesMailer) Name() string { return "SES" }

func (m *sesMailer) Send(ctx context.Context, from string, in *Input) (string, error) {
	params := &ses.SendEmailInput{
		Source:      aws.String(from),
		Destination: &types.Destination{ToAddresses: in.To},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(in.Subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(in.HTML), Charset: aws.String("UTF-8")},
				Text: &types.Content{Data: aws.String(in.Text), Charset: aws.String("UTF-8")},
			},
		},
	}
	if in.ReplyTo != "" {
		params.ReplyToAddresses = []string{in.ReplyTo}
	}

	keys := make([]string, 0, len(in.Tags))
	for k := range in.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		params.Tags = append(params.Tags, types.MessageTag{Name: aws.String(k), Value: aws.String(in.Tags[k])})
	}

	out, err := m.client.SendEmail(ctx, params)
	if err != nil {
		return "", err
	}
	return aws.ToString(out.MessageId), nil
}

// ==========================
// SMTP
// ==========================

type sendFunc func(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error

type smtpMailer struct {
	config *Config
	send   sendFunc
	now    func() time.Time
}

func NewSMTPMailer(config *Config) Mailer {
	m := &smtpMailer{config: config, now: time.Now}
	m.send = m.deliver
	return m
}

func (m *smtpMailer) Name() string { return "SMTP" }

func (m *smtpMailer) Send(ctx context.Context, from string, in *Input) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context cancelled before sending email: %w", err)
	}

	sender, err := mail.ParseAddress(from)
	if err != nil {
		return "", fmt.Errorf("invalid sender %q: %w", from, err)
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.New().String(), domainOf(sender.Address))
	b := enmime.Builder().
		From(sender.Name, sender.Address).
		Subject(in.Subject).
		Date(m.now()).
		Header("Message-Id", messageID).
		Text([]byte(in.Text)).
		HTML([]byte(in.HTML))
	for _, to := range in.To {
		b = b.To("", to)
	}
	if in.ReplyTo != "" {
		b = b.ReplyTo("", in.ReplyTo)
	}

	part, err := b.Build()
	if err != nil {
		return "", fmt.Errorf("failed to build message: %w", err)
	}
	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return "", fmt.Errorf("failed to encode message: %w", err)
	}

	addr := net.JoinHostPort(m.config.SMTPHost, fmt.Sprint(m.config.SMTPPort))
	var auth smtp.Auth
	if m.config.SMTPUsername != "" && m.config.SMTPPassword != "" {
		auth = smtp.PlainAuth("", m.config.SMTPUsername, m.config.SMTPPassword, m.config.SMTPHost)
	}

	if err := m.send(ctx, addr, auth, sender.Address, in.To, buf.Bytes()); err != nil {
		return "", err
	}
	return messageID, nil
}

func (m *smtpMailer) deliver(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, m.config.SMTPHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open SMTP session: %w", err)
	}
	defer client.Close()

	if m.config.UseTLS {
		if err = client.StartTLS(&tls.Config{ServerName: m.config.SMTPHost}); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err = client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range to {
		if err = client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}

// ==========================
// Error classification
// ==========================

var permanentSESCodes = map[string]bool{
	"MessageRejected":                    true,
	"MailFromDomainNotVerifiedException": true,
	"ConfigurationSetDoesNotExist":       true,
	"InvalidParameterValue":              true,
}

// isRetryable treats 5xx SMTP replies and SES rejections as permanent; anything
// else (timeouts, 4xx replies, throttling) may succeed later.
func isRetryable(err error) bool {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code < 500
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return !permanentSESCodes[apiErr.ErrorCode()]
	}
	return true
}

func domainOf(address string) string {
	if i := strings.LastIndexByte(address, '@'); i >= 0 && i < len(address)-1 {
		return address[i+1:]
	}
	return "localhost"
}
