package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"karaoke-api-go/config"
	"karaoke-api-go/logcolors"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Notifier delivers one alert to an operator channel
type Notifier interface {
	Name() string
	Send(ctx context.Context, subject, message string) error
}

var defaultHTTPClient = &http.Client{Timeout: 10 * time.Second}

// =============================================================================
// EMAIL NOTIFIER
// =============================================================================

type EmailNotifier struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	ToEmail      string
}

func (e *EmailNotifier) Name() string { return "email" }

// Send delivers over SMTP. net/smtp takes no context, so ctx is only checked up front.
func (e *EmailNotifier) Send(ctx context.Context, subject, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	auth := smtp.PlainAuth("", e.SMTPUsername, e.SMTPPassword, e.SMTPHost)
	msg := []byte(fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", e.FromEmail, e.ToEmail, subject, message))

	addr := e.SMTPHost + ":" + e.SMTPPort
	if err := smtp.SendMail(addr, auth, e.FromEmail, []string{e.ToEmail}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Infof("%s Email notification sent to %s", logcolors.LogNotifier, e.ToEmail)
	return nil
}

// =============================================================================
// TELEGRAM NOTIFIER
// =============================================================================

type TelegramNotifier struct {
	BotToken string
	ChatID   string
	// APIBaseURL defaults to https://api.telegram.org
	APIBaseURL string
	HTTPClient *http.Client
}

func (t *TelegramNotifier) Name() string { return "telegram" }

func (t *TelegramNotifier) Send(ctx context.Context, subject, message string) error {
	base := t.APIBaseURL
	if base == "" {
		base = "https://api.telegram.org"
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(base, "/"), t.BotToken)

	payload, err := json.Marshal(map[string]interface{}{
		"chat_id":    t.ChatID,
		"text":       fmt.Sprintf("*%s*\n\n%s", subject, message),
		"parse_mode": "Markdown",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if err := doRequest(t.HTTPClient, req); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	log.Infof("%s Telegram notification sent to chat %s", logcolors.LogNotifier, t.ChatID)
	return nil
}

// =============================================================================
// NTFY.SH NOTIFIER (Simple Push Notifications)
// =============================================================================

type NtfyNotifier struct {
	Topic      string
	Server     string // Default: https://ntfy.sh
	HTTPClient *http.Client
}

func (n *NtfyNotifier) Name() string { return "ntfy" }

func (n *NtfyNotifier) Send(ctx context.Context, subject, message string) error {
	server := n.Server
	if server == "" {
		server = "https://ntfy.sh"
	}
	url := fmt.Sprintf("%s/%s", strings.TrimRight(server, "/"), n.Topic)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("failed to create ntfy request: %w", err)
	}
	req.Header.Set("Title", subject)
	req.Header.Set("Priority", "high")
	req.Header.Set("Tags", "warning")

	if err := doRequest(n.HTTPClient, req); err != nil {
		return fmt.Errorf("ntfy: %w", err)
	}
	log.Infof("%s Ntfy notification sent to topic %s", logcolors.LogNotifier, n.Topic)
	return nil
}

func doRequest(client *http.Client, req *http.Request) error {
	if client == nil {
		client = defaultHTTPClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("returned status %d", resp.StatusCode)
	}
	return nil
}

// FromConfig builds every notifier that has its settings filled in
func FromConfig() []Notifier {
	c := config.Get().Notifier
	var notifiers []Notifier

	if c.SMTPHost != "" {
		notifiers = append(notifiers, &EmailNotifier{
			SMTPHost:     c.SMTPHost,
			SMTPPort:     c.SMTPPort,
			SMTPUsername: c.SMTPUsername,
			SMTPPassword: c.SMTPPassword,
			FromEmail:    c.FromEmail,
			ToEmail:      c.ToEmail,
		})
	}
	if c.TelegramBotToken != "" {
		notifiers = append(notifiers, &TelegramNotifier{
			BotToken: c.TelegramBotToken,
			ChatID:   c.TelegramChatID,
		})
	}
	if c.NtfyTopic != "" {
		notifiers = append(notifiers, &NtfyNotifier{
			Topic:  c.NtfyTopic,
			Server: c.NtfyServer,
		})
	}

	for _, n := range notifiers {
		log.Infof("%s %s notifier enabled", logcolors.LogNotifier, n.Name())
	}
	return notifiers
}
