package email

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/Dan9191/lease-service/internal/config"
	"github.com/Dan9191/lease-service/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// SendRunReport emails the outcome of a rent engine run to the configured report address.
// It does nothing when no report address is configured.
func (s *Sender) SendRunReport(summary *models.RunSummary) error {
	if s.cfg.ReportEmail == "" {
		return nil
	}

	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{s.cfg.ReportEmail}
	e.Subject = reportSubject(summary)
	e.Text = []byte(reportBody(summary))

	// Send email
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send run report to %s: %v", s.cfg.ReportEmail, err)
		return fmt.Errorf("failed to send run report: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", s.cfg.ReportEmail, e.Subject)
	return nil
}

func reportSubject(summary *models.RunSummary) string {
	switch {
	case !summary.Success:
		return fmt.Sprintf("Rent engine run FAILED (%s)", summary.AsOf)
	case len(summary.Failures) > 0:
		return fmt.Sprintf("Rent engine run completed with %d failure(s) (%s)", len(summary.Failures), summary.AsOf)
	default:
		return fmt.Sprintf("Rent engine run completed (%s)", summary.AsOf)
	}
}

func reportBody(summary *models.RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s\n", summary.RunID)
	fmt.Fprintf(&b, "As of: %s\n", summary.AsOf)
	fmt.Fprintf(&b, "Duration: %s\n\n", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond))
	if summary.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n\n", summary.Error)
	}
	fmt.Fprintf(&b, "Agreements processed: %d\n", summary.AgreementsProcessed)
	fmt.Fprintf(&b, "Agreements skipped: %d\n", summary.AgreementsSkipped)
	fmt.Fprintf(&b, "Schedules created: %d (historical: %d)\n", summary.SchedulesCreated, summary.HistoricalSchedulesCreated)
	fmt.Fprintf(&b, "Late fees processed: %d\n", summary.LateFeesProcessed)

	if len(summary.Failures) > 0 {
		b.WriteString("\nFailures:\n")
		for _, f := range summary.Failures {
			fmt.Fprintf(&b, "- %s %s %s: %s\n", f.AgreementNumber, f.Month, f.Operation, f.Message)
		}
	}
	b.WriteString("\nFleet Billing")
	return b.String()
}
