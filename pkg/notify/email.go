package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/Gobusters/ectologger"
)

// EmailConfig holds SMTP channel configuration.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// EmailChannel sends call summaries over SMTP with STARTTLS.
type EmailChannel struct {
	config EmailConfig
	logger ectologger.Logger
}

// NewEmailChannel creates an email notification channel.
func NewEmailChannel(config EmailConfig, logger ectologger.Logger) *EmailChannel {
	return &EmailChannel{
		config: config,
		logger: logger,
	}
}

// Name implements Channel.
func (e *EmailChannel) Name() string {
	return "email"
}

// Send implements Channel.
func (e *EmailChannel) Send(ctx context.Context, notification *CallNotification) error {
	if e.config.Host == "" || len(e.config.To) == 0 {
		return fmt.Errorf("email channel not configured")
	}

	subject, body := e.buildMessage(notification)
	msg := e.buildMIME(subject, body)

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)

	done := make(chan error, 1)
	go func() {
		done <- e.send(addr, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// send speaks SMTP directly; net/smtp has no context support so the caller
// bounds it with a goroutine.
func (e *EmailChannel) send(addr string, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: e.config.Host}); err != nil {
			return err
		}
	}

	if e.config.Username != "" {
		auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.Mail(e.config.From); err != nil {
		return err
	}
	for _, to := range e.config.To {
		if err := client.Rcpt(to); err != nil {
			return err
		}
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return client.Quit()
}

func (e *EmailChannel) buildMessage(notification *CallNotification) (string, string) {
	call := notification.Call

	caller := "unknown caller"
	if call.CallerName != nil && *call.CallerName != "" {
		caller = *call.CallerName
	} else if call.CallerNumber != nil && *call.CallerNumber != "" {
		caller = *call.CallerNumber
	}

	subject := fmt.Sprintf("Call processed: %s (%s)", caller, call.Direction)

	var sb strings.Builder
	fmt.Fprintf(&sb, "A %s call with %s (%s) has been processed.\n\n", call.Direction, caller, formatDuration(call.DurationSeconds))

	if summary := notification.Summary; summary != nil {
		if summary.Summary != nil && *summary.Summary != "" {
			fmt.Fprintf(&sb, "Summary:\n%s\n\n", *summary.Summary)
		}
		if summary.Sentiment != nil {
			fmt.Fprintf(&sb, "Sentiment: %s\n", *summary.Sentiment)
		}
		if summary.UrgencyScore != nil {
			fmt.Fprintf(&sb, "Urgency: %d/5\n", *summary.UrgencyScore)
		}
		sb.WriteString("\n")
	}

	if len(notification.ActionItems) > 0 {
		sb.WriteString("Action items:\n")
		for i, item := range notification.ActionItems {
			fmt.Fprintf(&sb, "%d. %s (priority %d)\n", i+1, item.Description, item.Priority)
		}
		sb.WriteString("\n")
	}

	if notification.DashboardURL != "" {
		fmt.Fprintf(&sb, "Details: %s/calls/%s\n", notification.DashboardURL, call.ID)
	}

	return subject, sb.String()
}

func (e *EmailChannel) buildMIME(subject, body string) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", e.config.From)
	fmt.Fprintf(&sb, "To: %s\r\n", strings.Join(e.config.To, ", "))
	fmt.Fprintf(&sb, "Subject: %s\r\n", subject)
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	return []byte(sb.String())
}
