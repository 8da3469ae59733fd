package adapter

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"net/textproto"
	"time"

	"vendzz/internal/config"
	"vendzz/internal/models"
)

// defaultSMTPTimeout bounds the send when the caller's context carries no
// deadline of its own.
const defaultSMTPTimeout = 30 * time.Second

// EmailAdapter delivers via SMTP. Success means the downstream server
// accepted the message, not that it was delivered or opened.
type EmailAdapter struct {
	host     string
	port     string
	username string
	password string
	from     string
}

// NewEmailAdapter creates an email adapter from SMTP credentials
func NewEmailAdapter(cfg config.SMTPConfig) (*EmailAdapter, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP_HOST not set")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("SMTP_USER not set")
	}
	if cfg.Password == "" {
		return nil, fmt.Errorf("SMTP_PASS not set")
	}

	from := cfg.From
	if from == "" {
		from = cfg.User
	}

	return &EmailAdapter{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.User,
		password: cfg.Password,
		from:     from,
	}, nil
}

// Channel returns the channel this adapter serves
func (a *EmailAdapter) Channel() models.Channel {
	return models.ChannelEmail
}

// Send hands the rendered payload to the SMTP server. The dial and every
// command round-trip run under the context deadline; smtp.SendMail offers no
// way to set one, and a peer that accepts and goes silent would otherwise
// block the worker indefinitely. The first line of the payload becomes the
// subject when the payload spans multiple lines; single-line payloads get a
// generic subject.
func (a *EmailAdapter) Send(ctx context.Context, identity, payload string) Outcome {
	subject, body := splitSubject(payload)

	msg := []byte(
		"From: " + a.from + "\r\n" +
			"To: " + identity + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=UTF-8\r\n" +
			"\r\n" +
			body,
	)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultSMTPTimeout)
	}

	addr := net.JoinHostPort(a.host, a.port)
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return smtpFailure("smtp dial failed", err)
	}
	defer conn.Close()
	conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, a.host)
	if err != nil {
		return smtpFailure("smtp greeting failed", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: a.host}); err != nil {
			return smtpFailure("smtp starttls failed", err)
		}
	}

	if ok, _ := client.Extension("AUTH"); ok {
		auth := smtp.PlainAuth("", a.username, a.password, a.host)
		if err := client.Auth(auth); err != nil {
			return configFailure(fmt.Sprintf("smtp auth rejected: %v", err))
		}
	}

	if err := client.Mail(a.from); err != nil {
		return smtpFailure("smtp sender rejected", err)
	}
	if err := client.Rcpt(identity); err != nil {
		return smtpFailure("smtp recipient rejected", err)
	}

	writer, err := client.Data()
	if err != nil {
		return smtpFailure("smtp data command failed", err)
	}
	if _, err := writer.Write(msg); err != nil {
		return smtpFailure("smtp payload write failed", err)
	}
	if err := writer.Close(); err != nil {
		return smtpFailure("smtp message rejected", err)
	}

	client.Quit()
	return sent()
}

// smtpFailure maps a transport error to a delivery outcome. Deadline hits
// become the retryable "timeout" outcome; server replies follow the SMTP
// convention that 4xx is transient and 5xx permanent.
func smtpFailure(stage string, err error) Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return failed("timeout", true)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return failed("timeout", true)
	}
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return failed(fmt.Sprintf("%s: %v", stage, err), protoErr.Code < 500)
	}
	return failed(fmt.Sprintf("%s: %v", stage, err), true)
}

func splitSubject(payload string) (subject, body string) {
	for i := 0; i < len(payload); i++ {
		if payload[i] == '\n' {
			subject = payload[:i]
			if i > 0 && payload[i-1] == '\r' {
				subject = payload[:i-1]
			}
			return subject, payload[i+1:]
		}
	}
	return "Nova mensagem", payload
}
