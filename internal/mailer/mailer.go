// Package mailer delivers the generated meeting summary to attendees over
// SMTP, with plain text and HTML alternatives.
package mailer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Averytsai/meeting-ai-system/internal/models"
)

// Delivery modes tried against the SMTP server.
const (
	ModeSTARTTLS = "starttls"
	ModeSSL      = "ssl"
)

// Attempt describes one delivery attempt.
type Attempt struct {
	Mode string
	Host string
	Port int
}

// Email is a rendered message handed to the transport.
type Email struct {
	FromName string
	FromAddr string
	To       []string
	Subject  string
	Text     string
	HTML     string
}

// Transport performs a single SMTP delivery attempt.
type Transport interface {
	Send(ctx context.Context, a Attempt, email Email) error
}

// Config holds SMTP credentials and the display name on outgoing mail.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	FromName string
}

// Mailer sends summary emails. When credentials are absent it degrades to a
// logged no-op so development environments run the full pipeline without a
// mail server.
type Mailer struct {
	cfg       Config
	transport Transport
	logger    *zap.Logger
}

// Option configures the mailer.
type Option func(*Mailer)

// WithTransport overrides the SMTP transport (used in tests).
func WithTransport(t Transport) Option {
	return func(m *Mailer) {
		m.transport = t
	}
}

// New creates a mailer. App passwords are often copied with grouping spaces;
// those are stripped before use.
func New(cfg Config, logger *zap.Logger, opts ...Option) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Password = strings.ReplaceAll(cfg.Password, " ", "")
	m := &Mailer{
		cfg:    cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.transport == nil {
		m.transport = &goMailTransport{user: cfg.User, password: cfg.Password}
	}
	return m
}

// Configured reports whether SMTP credentials are present.
func (m *Mailer) Configured() bool {
	return m.cfg.User != "" && m.cfg.Password != ""
}

// SendSummary emails the summary to every attendee in a single message.
// Port 587 gets a STARTTLS attempt first and falls back to implicit TLS on
// 465; any other port is tried once with implicit TLS. The first successful
// attempt wins.
func (m *Mailer) SendSummary(ctx context.Context, meeting *models.Meeting, attendees []models.Attendee, summary string) error {
	logger := m.logger.With(zap.String("meeting_id", meeting.ID.String()))

	if !m.Configured() {
		logger.Info("smtp credentials not configured, skipping email dispatch")
		return nil
	}
	if len(attendees) == 0 {
		logger.Info("meeting has no attendees, nothing to send")
		return nil
	}

	to := make([]string, 0, len(attendees))
	for _, a := range attendees {
		to = append(to, a.Email)
	}

	email := Email{
		FromName: m.cfg.FromName,
		FromAddr: m.cfg.User,
		To:       to,
		Subject:  fmt.Sprintf("會議摘要 - %s (%s)", meeting.Room, meeting.StartTime.Format("2006-01-02 15:04")),
		Text:     summary,
		HTML:     RenderHTML(summary),
	}

	var errs []string
	for _, a := range m.attempts() {
		err := m.transport.Send(ctx, a, email)
		if err == nil {
			logger.Info("summary email sent",
				zap.Int("recipients", len(to)),
				zap.String("mode", a.Mode),
				zap.Int("port", a.Port))
			return nil
		}
		logger.Warn("smtp delivery attempt failed",
			zap.String("mode", a.Mode),
			zap.Int("port", a.Port),
			zap.Error(err))
		errs = append(errs, fmt.Sprintf("%s:%d (%s): %v", a.Host, a.Port, a.Mode, err))
	}
	return fmt.Errorf("all smtp delivery attempts failed: %s", strings.Join(errs, "; "))
}

func (m *Mailer) attempts() []Attempt {
	if m.cfg.Port == 587 {
		return []Attempt{
			{Mode: ModeSTARTTLS, Host: m.cfg.Host, Port: 587},
			{Mode: ModeSSL, Host: m.cfg.Host, Port: 465},
		}
	}
	return []Attempt{{Mode: ModeSSL, Host: m.cfg.Host, Port: m.cfg.Port}}
}
