package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	portssvc "github.com/SscSPs/saas_starter_auth/internal/core/ports/services"
	"github.com/SscSPs/saas_starter_auth/internal/middleware"
	"github.com/SscSPs/saas_starter_auth/internal/platform/config"
	gomail "github.com/wneessen/go-mail"
)

// Message is a rendered plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

func verificationMessage(to, firstName, code string) Message {
	greeting := "Hi"
	if strings.TrimSpace(firstName) != "" {
		greeting = "Hi " + strings.TrimSpace(firstName)
	}
	return Message{
		To:      to,
		Subject: "Your verification code",
		Body: fmt.Sprintf("%s,\n\nYour verification code is %s.\n\nIf you did not create an account, you can ignore this email.\n",
			greeting, code),
	}
}

func resetMessage(to, resetLink string) Message {
	return Message{
		To:      to,
		Subject: "Reset your password",
		Body: fmt.Sprintf("Someone asked to reset the password for this account.\n\nOpen this link to choose a new password:\n%s\n\nIf it wasn't you, you can ignore this email.\n",
			resetLink),
	}
}

// LogMailer writes emails to the request logger. Used when SMTP is not configured.
type LogMailer struct{}

var _ portssvc.Mailer = LogMailer{}

// SendVerificationCode logs the code instead of mailing it.
func (LogMailer) SendVerificationCode(ctx context.Context, to, firstName, code string) error {
	middleware.GetLoggerFromCtx(ctx).InfoContext(ctx, "Verification email (not sent, SMTP disabled)",
		slog.String("to", to),
		slog.String("code", code))
	return nil
}

// SendPasswordReset logs the reset link instead of mailing it.
func (LogMailer) SendPasswordReset(ctx context.Context, to, resetLink string) error {
	middleware.GetLoggerFromCtx(ctx).InfoContext(ctx, "Password reset email (not sent, SMTP disabled)",
		slog.String("to", to),
		slog.String("link", resetLink))
	return nil
}

// smtpSender is the part of the go-mail client the mailer uses.
type smtpSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// SMTPMailer delivers emails through an SMTP relay with STARTTLS when offered.
type SMTPMailer struct {
	from    string
	timeout time.Duration
	client  smtpSender
}

var _ portssvc.Mailer = (*SMTPMailer)(nil)

const sendTimeout = 10 * time.Second

// NewSMTPMailer creates a mailer for the configured relay.
func NewSMTPMailer(cfg *config.Config) (*SMTPMailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.SMTPPort),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(sendTimeout),
	}
	if cfg.SMTPUsername != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.SMTPUsername),
			gomail.WithPassword(cfg.SMTPPassword))
	}
	client, err := gomail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}
	return &SMTPMailer{from: cfg.SMTPFrom, timeout: sendTimeout, client: client}, nil
}

// New picks the SMTP mailer when a host is configured and the log mailer otherwise.
func New(cfg *config.Config) (portssvc.Mailer, error) {
	if cfg.SMTPHost == "" {
		return LogMailer{}, nil
	}
	return NewSMTPMailer(cfg)
}

// SendVerificationCode mails the signup verification code.
func (m *SMTPMailer) SendVerificationCode(ctx context.Context, to, firstName, code string) error {
	return m.deliver(ctx, verificationMessage(to, firstName, code))
}

// SendPasswordReset mails the password reset link.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, resetLink string) error {
	return m.deliver(ctx, resetMessage(to, resetLink))
}

// deliver sends msg, giving up when ctx ends or the relay is slower than the
// mailer timeout.
func (m *SMTPMailer) deliver(ctx context.Context, msg Message) error {
	built, err := m.build(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := m.client.DialAndSendWithContext(ctx, built); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// build renders msg with encoded headers, a Date and a Message-ID.
func (m *SMTPMailer) build(msg Message) (*gomail.Msg, error) {
	built := gomail.NewMsg()
	if err := built.From(m.from); err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", m.from, err)
	}
	if err := built.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	built.Subject(msg.Subject)
	built.SetDate()
	built.SetMessageID()
	built.SetBodyString(gomail.TypeTextPlain, msg.Body)
	return built, nil
}
