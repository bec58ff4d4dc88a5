package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/smtp"
	"net/url"
	"strings"
	"time"

	"github.com/Hazher89/oppdrag-app/pkg/config"
	"github.com/Hazher89/oppdrag-app/pkg/logger"
)

// EmailMessage is a plain-text email ready for delivery.
type EmailMessage struct {
	To      string
	Subject string
	Body    string
}

// SMSMessage is a text message ready for delivery.
type SMSMessage struct {
	To   string
	Body string
}

// Notifier delivers transactional email and SMS. When the channels are not
// configured it logs the message instead, which keeps local and demo
// environments working without credentials.
type Notifier struct {
	emailCfg config.EmailConfig
	smsCfg   config.SMSConfig
	logg     *logger.Logger
	client   *http.Client
}

// NewNotifier builds a notifier from the delivery configuration.
func NewNotifier(emailCfg config.EmailConfig, smsCfg config.SMSConfig, logg *logger.Logger) *Notifier {
	return &Notifier{
		emailCfg: emailCfg,
		smsCfg:   smsCfg,
		logg:     logg,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// SendEmail delivers the message over SMTP, or logs it in demo mode.
func (n *Notifier) SendEmail(ctx context.Context, msg EmailMessage) error {
	if n.emailCfg.Host == "" {
		ctx = n.logg.WithFields(ctx, map[string]any{
			"to":      msg.To,
			"subject": msg.Subject,
			"body":    msg.Body,
		})
		n.logg.Info(ctx, "demo mode: email not sent")
		return nil
	}

	addr := fmt.Sprintf("%s:%d", n.emailCfg.Host, n.emailCfg.Port)
	var auth smtp.Auth
	if n.emailCfg.Username != "" {
		auth = smtp.PlainAuth("", n.emailCfg.Username, n.emailCfg.Password, n.emailCfg.Host)
	}

	payload := strings.Join([]string{
		"From: " + n.emailCfg.From,
		"To: " + msg.To,
		"Subject: " + msg.Subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		msg.Body,
	}, "\r\n")

	if err := smtp.SendMail(addr, auth, n.emailCfg.From, []string{msg.To}, []byte(payload)); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}

// SendSMS delivers the message through the configured provider, or logs it in
// demo mode.
func (n *Notifier) SendSMS(ctx context.Context, msg SMSMessage) error {
	if n.smsCfg.AccountSID == "" {
		ctx = n.logg.WithFields(ctx, map[string]any{
			"to":   msg.To,
			"body": msg.Body,
		})
		n.logg.Info(ctx, "demo mode: sms not sent")
		return nil
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", strings.TrimRight(n.smsCfg.APIBaseURL, "/"), n.smsCfg.AccountSID)
	form := url.Values{}
	form.Set("From", n.smsCfg.FromNumber)
	form.Set("To", msg.To)
	form.Set("Body", msg.Body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building sms request: %w", err)
	}
	req.SetBasicAuth(n.smsCfg.AccountSID, n.smsCfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms provider returned status %d", resp.StatusCode)
	}
	return nil
}
