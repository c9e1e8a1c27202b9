package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/purgo-board/apiserver/config"
)

const (
	defaultEndpoint = "https://api.sendgrid.com/v3/mail/send"
	senderName      = "Purgo Board"
)

// ErrNotConfigured is returned by Send when the API key or sender is unset.
var ErrNotConfigured = errors.New("mailer not configured")

// Message is one plain-text mail to a single recipient.
type Message struct {
	To       string
	ToName   string
	Subject  string
	Body     string
	Category string
}

// SendGridMailer sends mail through the SendGrid v3 mail send API.
type SendGridMailer struct {
	apiKey     string
	fromEmail  string
	endpoint   string
	httpClient *http.Client
}

func NewSendGridMailer(cfg config.MailConfig, httpClient *http.Client) *SendGridMailer {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &SendGridMailer{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		fromEmail:  strings.TrimSpace(cfg.FromEmail),
		endpoint:   endpoint,
		httpClient: httpClient,
	}
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type personalization struct {
	To      []emailAddress `json:"to"`
	Subject string         `json:"subject"`
}

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddress      `json:"from"`
	Content          []content         `json:"content"`
	Categories       []string          `json:"categories,omitempty"`
}

func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	if m == nil || m.apiKey == "" || m.fromEmail == "" {
		return ErrNotConfigured
	}
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return errors.New("mail recipient is required")
	}

	reqBody := sendRequest{
		Personalizations: []personalization{{
			To:      []emailAddress{{Email: to, Name: strings.TrimSpace(msg.ToName)}},
			Subject: msg.Subject,
		}},
		From:    emailAddress{Email: m.fromEmail, Name: senderName},
		Content: []content{{Type: "text/plain", Value: msg.Body}},
	}
	if msg.Category != "" {
		reqBody.Categories = []string{msg.Category}
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	// SendGrid answers 202 Accepted on success.
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("sendgrid mail send http %d", resp.StatusCode)
	}
	return nil
}
