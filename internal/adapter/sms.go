package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"vendzz/internal/config"
	"vendzz/internal/models"
)

// MaxSMSLength is the single-segment SMS limit enforced before any network
// call is made.
const MaxSMSLength = 160

// SMSAdapter delivers via an HTTP SMS gateway (Twilio-compatible form POST).
type SMSAdapter struct {
	apiURL     string
	accountSID string
	authToken  string
	fromNumber string
	client     *http.Client
}

// NewSMSAdapter creates an SMS adapter from provider credentials
func NewSMSAdapter(cfg config.SMSProviderConfig) (*SMSAdapter, error) {
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("SMS_API_URL not set")
	}
	if cfg.AccountSID == "" {
		return nil, fmt.Errorf("SMS_ACCOUNT_SID not set")
	}
	if cfg.AuthToken == "" {
		return nil, fmt.Errorf("SMS_AUTH_TOKEN not set")
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("SMS_FROM_NUMBER not set")
	}

	return &SMSAdapter{
		apiURL:     cfg.APIURL,
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		fromNumber: cfg.FromNumber,
		client:     &http.Client{},
	}, nil
}

// Channel returns the channel this adapter serves
func (a *SMSAdapter) Channel() models.Channel {
	return models.ChannelSMS
}

// Send posts one rendered payload to the gateway. Payloads over 160
// characters are rejected up front, before any request goes out, and are
// never retried.
func (a *SMSAdapter) Send(ctx context.Context, identity, payload string) Outcome {
	if utf8.RuneCountInString(payload) > MaxSMSLength {
		return failed(fmt.Sprintf("message exceeds %d characters", MaxSMSLength), false)
	}

	formData := url.Values{}
	formData.Set("To", identity)
	formData.Set("From", a.fromNumber)
	formData.Set("Body", payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiURL,
		strings.NewReader(formData.Encode()))
	if err != nil {
		return failed(fmt.Sprintf("failed to build request: %v", err), false)
	}

	req.SetBasicAuth(a.accountSID, a.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return failed("timeout", true)
		}
		return failed(fmt.Sprintf("gateway request failed: %v", err), true)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 300:
		return sent()
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return configFailure(fmt.Sprintf("gateway rejected credentials: %s", resp.Status))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return failed(fmt.Sprintf("gateway unavailable: %s", resp.Status), true)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return failed(fmt.Sprintf("gateway error %s: %s", resp.Status, string(body)), false)
	}
}
