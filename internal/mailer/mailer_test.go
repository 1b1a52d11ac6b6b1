// Inventra | 2026
// mailer_test.go

package mailer

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/inventra/auth-service/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDisabledMailerSkipsSend(t *testing.T) {
	m := New(
		config.SMTPConfig{Enabled: false},
		"http://localhost:3000",
		discardLogger(),
	)

	if err := m.SendPasswordReset(context.Background(), "a@b.com", "A", "tok"); err != nil {
		t.Errorf("disabled mailer should no-op, got %v", err)
	}
	if err := m.SendPasswordChanged(context.Background(), "a@b.com", "A"); err != nil {
		t.Errorf("disabled mailer should no-op, got %v", err)
	}
}

func TestSendRespectsCancelledContext(t *testing.T) {
	m := New(
		config.SMTPConfig{Enabled: true, Host: "localhost", Port: 25, From: "x@y.z"},
		"http://localhost:3000",
		discardLogger(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.SendPasswordChanged(ctx, "a@b.com", "A"); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestResetBodyContainsEscapedToken(t *testing.T) {
	m := New(
		config.SMTPConfig{Enabled: false},
		"https://app.example.com/",
		discardLogger(),
	)

	if m.baseURL != "https://app.example.com" {
		t.Errorf("base url = %q, trailing slash should be trimmed", m.baseURL)
	}

	body := buildResetBody("Alice", "https://app.example.com/reset-password?token=ab%2Fcd")
	if !strings.Contains(body, "Hello Alice") {
		t.Error("greeting missing from body")
	}
	if !strings.Contains(body, "token=ab%2Fcd") {
		t.Error("reset link missing from body")
	}
}

func TestBuildMessageHeaders(t *testing.T) {
	msg := string(buildMessage(
		"no-reply@inventra.local",
		"alice@example.com",
		"Reset your password",
		"<html><body>hi</body></html>",
	))

	for _, want := range []string{
		"From: no-reply@inventra.local\r\n",
		"To: alice@example.com\r\n",
		"Subject: Reset your password\r\n",
		"Content-Type: text/html",
		"\r\n\r\n<html>",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestBodiesEscapeDisplayName(t *testing.T) {
	name := `<script>alert(1)</script>`

	bodies := map[string]string{
		"reset":   buildResetBody(name, "https://x/reset-password?token=t"),
		"changed": buildChangedBody(name),
	}

	for which, body := range bodies {
		if strings.Contains(body, "<script>") {
			t.Errorf("%s body carries raw markup from the display name", which)
		}
		if !strings.Contains(body, "&lt;script&gt;alert(1)&lt;/script&gt;") {
			t.Errorf("%s body is missing the escaped display name", which)
		}
	}
}

func TestBuildBodiesWithoutName(t *testing.T) {
	reset := buildResetBody("", "https://x/reset-password?token=t")
	if !strings.Contains(reset, "Hello,") {
		t.Error("anonymous greeting missing from reset body")
	}

	changed := buildChangedBody("")
	if !strings.Contains(changed, "Hello,") {
		t.Error("anonymous greeting missing from changed body")
	}
}
