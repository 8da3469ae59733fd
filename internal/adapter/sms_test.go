package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"vendzz/internal/config"
	"vendzz/internal/models"
)

func newTestSMSAdapter(t *testing.T, apiURL string) *SMSAdapter {
	t.Helper()
	a, err := NewSMSAdapter(config.SMSProviderConfig{
		APIURL:     apiURL,
		AccountSID: "sid",
		AuthToken:  "token",
		FromNumber: "+15550000000",
	})
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}
	return a
}

func TestSMSAdapter_RequiresCredentials(t *testing.T) {
	_, err := NewSMSAdapter(config.SMSProviderConfig{})
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
}

func TestSMSSend_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "sid" || pass != "token" {
			t.Error("expected basic auth credentials")
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if r.Form.Get("To") != "+5511900000001" {
			t.Errorf("wrong To: %s", r.Form.Get("To"))
		}
		if r.Form.Get("Body") != "Oi Maria" {
			t.Errorf("wrong Body: %s", r.Form.Get("Body"))
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	a := newTestSMSAdapter(t, server.URL)
	outcome := a.Send(context.Background(), "+5511900000001", "Oi Maria")

	if outcome.Status != models.DeliveryStatusSent {
		t.Errorf("expected sent, got %s", outcome.Status)
	}
}

// Messages over the single-segment limit must be rejected before any request
// reaches the gateway.
func TestSMSSend_OverlongMessageNeverHitsGateway(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
	}))
	defer server.Close()

	a := newTestSMSAdapter(t, server.URL)
	outcome := a.Send(context.Background(), "+5511900000001", strings.Repeat("a", 161))

	if outcome.Status != models.DeliveryStatusFailed {
		t.Errorf("expected failed, got %s", outcome.Status)
	}
	if outcome.Retryable {
		t.Error("overlong message must not be retryable")
	}
	if atomic.LoadInt32(&requests) != 0 {
		t.Error("overlong message must not reach the gateway")
	}
}

func TestSMSSend_ExactlyAtLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	a := newTestSMSAdapter(t, server.URL)
	outcome := a.Send(context.Background(), "+5511900000001", strings.Repeat("a", 160))

	if outcome.Status != models.DeliveryStatusSent {
		t.Errorf("160-char message should be sent, got %s", outcome.Status)
	}
}

func TestSMSSend_StatusMapping(t *testing.T) {
	tests := []struct {
		name        string
		statusCode  int
		wantStatus  models.DeliveryStatus
		wantRetry   bool
		wantConfig  bool
	}{
		{"server error is retryable", http.StatusInternalServerError, models.DeliveryStatusFailed, true, false},
		{"rate limited is retryable", http.StatusTooManyRequests, models.DeliveryStatusFailed, true, false},
		{"bad request is permanent", http.StatusBadRequest, models.DeliveryStatusFailed, false, false},
		{"unauthorized is a config failure", http.StatusUnauthorized, models.DeliveryStatusFailed, false, true},
		{"forbidden is a config failure", http.StatusForbidden, models.DeliveryStatusFailed, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			a := newTestSMSAdapter(t, server.URL)
			outcome := a.Send(context.Background(), "+5511900000001", "Oi")

			if outcome.Status != tt.wantStatus {
				t.Errorf("expected status %s, got %s", tt.wantStatus, outcome.Status)
			}
			if outcome.Retryable != tt.wantRetry {
				t.Errorf("expected retryable=%v, got %v", tt.wantRetry, outcome.Retryable)
			}
			if outcome.ConfigError != tt.wantConfig {
				t.Errorf("expected configError=%v, got %v", tt.wantConfig, outcome.ConfigError)
			}
		})
	}
}

func TestWhatsAppAdapter_ReturnsPending(t *testing.T) {
	a := NewWhatsAppAdapter()

	outcome := a.Send(context.Background(), "+5511900000001", "Oi Maria")
	if outcome.Status != models.DeliveryStatusPending {
		t.Errorf("whatsapp sends must stay pending for the extension, got %s", outcome.Status)
	}
}
