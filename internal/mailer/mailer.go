// Inventra | 2026
// mailer.go

package mailer

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/smtp"
	"net/url"
	"strings"

	"github.com/inventra/auth-service/internal/config"
)

// Mailer sends transactional auth emails over SMTP. When SMTP is
// disabled in config it logs the message instead of dialing, which is
// the mode used in development and in tests.
type Mailer struct {
	cfg     config.SMTPConfig
	baseURL string
	logger  *slog.Logger
}

func New(cfg config.SMTPConfig, baseURL string, logger *slog.Logger) *Mailer {
	return &Mailer{
		cfg:     cfg,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

func (m *Mailer) SendPasswordReset(
	ctx context.Context,
	email, name, token string,
) error {
	link := fmt.Sprintf(
		"%s/reset-password?token=%s",
		m.baseURL,
		url.QueryEscape(token),
	)

	subject := "Reset your password"
	body := buildResetBody(name, link)

	return m.send(ctx, email, subject, body)
}

func (m *Mailer) SendPasswordChanged(
	ctx context.Context,
	email, name string,
) error {
	subject := "Your password was changed"
	body := buildChangedBody(name)

	return m.send(ctx, email, subject, body)
}

func (m *Mailer) send(ctx context.Context, to, subject, body string) error {
	if !m.cfg.Enabled {
		m.logger.Info("smtp disabled, skipping email",
			"to", to,
			"subject", subject,
		)
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMessage(m.cfg.From, to, subject, body)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}

	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var sb strings.Builder

	sb.WriteString("From: " + from + "\r\n")
	sb.WriteString("To: " + to + "\r\n")
	sb.WriteString("Subject: " + subject + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)

	return []byte(sb.String())
}

func buildResetBody(name, link string) string {
	// The display name is user-controlled and lands in an HTML body.
	greeting := "Hello"
	if name != "" {
		greeting = "Hello " + html.EscapeString(name)
	}

	return fmt.Sprintf(`<html><body>
<p>%s,</p>
<p>We received a request to reset your password. Click the link below to choose a new one. The link expires in one hour and can only be used once.</p>
<p><a href="%s">Reset password</a></p>
<p>If you did not request this, you can ignore this email. Your password will not change.</p>
</body></html>`, greeting, link)
}

func buildChangedBody(name string) string {
	greeting := "Hello"
	if name != "" {
		greeting = "Hello " + html.EscapeString(name)
	}

	return fmt.Sprintf(`<html><body>
<p>%s,</p>
<p>Your password was just changed. If this was you, no action is needed.</p>
<p>If you did not change your password, contact your administrator immediately.</p>
</body></html>`, greeting)
}
