package moderation

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/purgo-board/apiserver/config"
)

const (
	defaultIssuer   = "purgo-skfinal"
	defaultTokenTTL = 5 * time.Minute
	defaultTimeout  = 5 * time.Second
	maxResponseSize = 1 << 20

	headerAuthToken = "X-Auth-Token"
)

// Client calls the moderation proxy. Each request carries two credentials:
// the static API key identifying this application and a per-request token
// signed over the payload digest.
type Client struct {
	endpoint   string
	apiKey     string
	signingKey []byte
	issuer     string
	tokenTTL   time.Duration
	httpClient *http.Client
	now        func() time.Time
}

// NewClient constructs a Client from config. httpClient may be nil.
func NewClient(cfg config.ModerationConfig, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("moderation endpoint is required")
	}
	if cfg.SigningKey == "" {
		return nil, errors.New("moderation signing key is required")
	}

	issuer := cfg.Issuer
	if issuer == "" {
		issuer = defaultIssuer
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		signingKey: []byte(cfg.SigningKey),
		issuer:     issuer,
		tokenTTL:   ttl,
		httpClient: httpClient,
		now:        time.Now,
	}, nil
}

// Check submits text for moderation. Any failure to obtain a verdict,
// including timeouts and unrecognized decisions, is a *TransportError.
func (c *Client) Check(ctx context.Context, text string) (Verdict, error) {
	body, err := CanonicalJSON(map[string]string{"text": text})
	if err != nil {
		return Verdict{}, &TransportError{Op: "encode", Err: err}
	}

	token, err := SignPayload(body, c.issuer, c.signingKey, c.tokenTTL, c.now())
	if err != nil {
		return Verdict{}, &TransportError{Op: "sign", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Verdict{}, &TransportError{Op: "request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set(headerAuthToken, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Verdict{}, &TransportError{Op: "request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return Verdict{}, &TransportError{Op: "request", StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Verdict{}, &TransportError{Op: "read", Err: err}
	}
	return Classify(data)
}
