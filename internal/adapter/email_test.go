package adapter

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"vendzz/internal/models"
)

func newTestEmailAdapter(t *testing.T, addr string) *EmailAdapter {
	t.Helper()
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("failed to split address: %v", err)
	}
	return &EmailAdapter{
		host:     host,
		port:     port,
		username: "user",
		password: "pass",
		from:     "noreply@vendzz.com",
	}
}

// fakeSMTPServer speaks just enough of the protocol for one plain-text
// delivery. It advertises neither AUTH nor STARTTLS, so the client skips both.
func fakeSMTPServer(t *testing.T, ln net.Listener) {
	t.Helper()
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)
	io.WriteString(conn, "220 fake ESMTP\r\n")
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		switch {
		case strings.HasPrefix(line, "EHLO"), strings.HasPrefix(line, "HELO"):
			io.WriteString(conn, "250 fake\r\n")
		case strings.HasPrefix(line, "MAIL"), strings.HasPrefix(line, "RCPT"):
			io.WriteString(conn, "250 OK\r\n")
		case strings.HasPrefix(line, "DATA"):
			io.WriteString(conn, "354 go ahead\r\n")
			for {
				dataLine, err := reader.ReadString('\n')
				if err != nil {
					return
				}
				if dataLine == ".\r\n" {
					break
				}
			}
			io.WriteString(conn, "250 accepted\r\n")
		case strings.HasPrefix(line, "QUIT"):
			io.WriteString(conn, "221 bye\r\n")
			return
		default:
			io.WriteString(conn, "250 OK\r\n")
		}
	}
}

func TestEmailSend_Success(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer ln.Close()
	go fakeSMTPServer(t, ln)

	a := newTestEmailAdapter(t, ln.Addr().String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	outcome := a.Send(ctx, "ana@example.com", "Oferta especial\nOi Ana")
	if outcome.Status != models.DeliveryStatusSent {
		t.Fatalf("expected sent, got %s (%s)", outcome.Status, outcome.ErrorDetail)
	}
}

// A peer that accepts the connection and never sends a greeting must not hold
// the worker past the context deadline.
func TestEmailSend_SilentServerTimesOut(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(io.Discard, conn)
	}()

	a := newTestEmailAdapter(t, ln.Addr().String())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	outcome := a.Send(ctx, "ana@example.com", "Oi Ana")
	elapsed := time.Since(start)

	if elapsed > 2*time.Second {
		t.Fatalf("send blocked %s past a 200ms deadline", elapsed)
	}
	if outcome.Status != models.DeliveryStatusFailed {
		t.Errorf("expected failed, got %s", outcome.Status)
	}
	if outcome.ErrorDetail != "timeout" {
		t.Errorf("expected timeout detail, got %q", outcome.ErrorDetail)
	}
	if !outcome.Retryable {
		t.Error("timeout must be retryable")
	}
}

func TestSMTPFailureMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantDetail string
		wantRetry  bool
	}{
		{"context deadline is a timeout", context.DeadlineExceeded, "timeout", true},
		{"4xx reply is transient", &textproto.Error{Code: 450, Msg: "mailbox busy"}, "", true},
		{"5xx reply is permanent", &textproto.Error{Code: 550, Msg: "no such user"}, "", false},
		{"plain transport error is transient", io.ErrUnexpectedEOF, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := smtpFailure("smtp send failed", tt.err)
			if outcome.Status != models.DeliveryStatusFailed {
				t.Errorf("expected failed, got %s", outcome.Status)
			}
			if outcome.Retryable != tt.wantRetry {
				t.Errorf("expected retryable=%v, got %v", tt.wantRetry, outcome.Retryable)
			}
			if tt.wantDetail != "" && outcome.ErrorDetail != tt.wantDetail {
				t.Errorf("expected detail %q, got %q", tt.wantDetail, outcome.ErrorDetail)
			}
		})
	}
}
