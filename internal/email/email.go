package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nfrund/parley/internal/domain"
)

const (
	resendEndpoint = "https://api.resend.com/emails"
	defaultSender  = "Parley <onboarding@resend.dev>"
)

// --- LogSender (for development) ---

// LogSender writes emails to the log instead of sending them.
type LogSender struct {
	senderAddress string
	logger        *slog.Logger
}

var _ domain.EmailSender = (*LogSender)(nil)

// NewLogSender creates a sender that only logs.
func NewLogSender(senderAddress string) *LogSender {
	return &LogSender{
		senderAddress: senderAddress,
		logger:        slog.Default().With("component", "email"),
	}
}

// Send logs the email content.
func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.InfoContext(ctx, "Email sent (logged)",
		"from", s.senderAddress,
		"to", to,
		"subject", subject,
		"body", body,
	)
	return nil
}

// --- ResendSender (for production) ---

// ResendSender sends emails using the Resend API.
type ResendSender struct {
	apiKey        string
	senderAddress string
	endpoint      string
	client        *http.Client
	logger        *slog.Logger
}

var _ domain.EmailSender = (*ResendSender)(nil)

// NewResendSender creates a Resend-backed sender.
func NewResendSender(apiKey, senderAddress string) *ResendSender {
	if senderAddress == "" {
		senderAddress = defaultSender
	}
	return &ResendSender{
		apiKey:        apiKey,
		senderAddress: senderAddress,
		endpoint:      resendEndpoint,
		client:        &http.Client{Timeout: 10 * time.Second},
		logger:        slog.Default().With("component", "email"),
	}
}

type resendPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Send dispatches an email using the Resend API.
func (s *ResendSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	body, err := json.Marshal(resendPayload{
		From:    s.senderAddress,
		To:      to,
		Subject: subject,
		HTML:    htmlBody,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal resend payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create resend request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrEmailDelivery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: resend returned status %d", domain.ErrEmailDelivery, resp.StatusCode)
	}

	s.logger.InfoContext(ctx, "Sent email via Resend", "to", to, "subject", subject)
	return nil
}
