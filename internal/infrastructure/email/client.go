// Package email provides the alert email client for security incidents.
package email

import (
	"fmt"
	"time"

	"github.com/resendlabs/resend-go"

	"github.com/hutfut/joshbot-go/internal/infrastructure/observability/logging"
)

// Service defines the interface for sending alerts, allowing for mock
// implementations in tests.
type Service interface {
	SendLeakAlert(conversationID, marker string) error
}

// ResendClient is the concrete implementation of the alert Service using the
// Resend API.
type ResendClient struct {
	client    *resend.Client
	fromEmail string
	toEmail   string
	logger    *logging.ChanneledLogger
}

// NewService creates the alert email client. Returns nil when no API key or
// recipient is configured; callers treat a nil service as alerts disabled.
func NewService(apiKey, fromEmail, toEmail string, logger *logging.ChanneledLogger) Service {
	if apiKey == "" || toEmail == "" {
		logger.System().Info("Leak alert emails disabled, no API key or recipient configured")
		return nil
	}
	return &ResendClient{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		toEmail:   toEmail,
		logger:    logger,
	}
}

// SendLeakAlert notifies the operator that a response stream was stopped for
// leaking envelope text. The conversation id is masked; the transcript is
// never included.
func (c *ResendClient) SendLeakAlert(conversationID, marker string) error {
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("JoshBot Gateway <%s>", c.fromEmail),
		To:      []string{c.toEmail},
		Subject: "Leak guard stopped a response stream",
		Html: fmt.Sprintf(
			"<p>The output leak guard stopped a model response.</p>"+
				"<ul><li>Conversation: %s</li><li>Marker: %s</li><li>Time: %s</li></ul>"+
				"<p>The incident was recorded in the audit trail.</p>",
			logging.MaskID(conversationID), marker, time.Now().UTC().Format(time.RFC3339)),
	}

	if _, err := c.client.Emails.Send(params); err != nil {
		return fmt.Errorf("failed to send leak alert via Resend: %w", err)
	}
	return nil
}
