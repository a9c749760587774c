package mail

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/peaberry/peaberry-api/internal/core/ports"
)

func TestBuildMessage(t *testing.T) {
	gm := buildMessage("Peaberry <no-reply@peaberry.test>", ports.MailMessage{
		To:       "alice@example.com",
		Subject:  "Reset your password",
		HTMLBody: "<p>hi</p>",
	})

	if got := gm.GetHeader("To"); len(got) != 1 || got[0] != "alice@example.com" {
		t.Fatalf("To = %v", got)
	}
	if got := gm.GetHeader("Subject"); len(got) != 1 || got[0] != "Reset your password" {
		t.Fatalf("Subject = %v", got)
	}

	var buf bytes.Buffer
	if _, err := gm.WriteTo(&buf); err != nil {
		t.Fatalf("write message: %v", err)
	}
	if !strings.Contains(buf.String(), "text/html") {
		t.Fatalf("expected html body, got:\n%s", buf.String())
	}
}

func TestSMTPMailer_CancelledContext(t *testing.T) {
	m := NewSMTPMailer(Config{Host: "localhost", Port: 2525})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.Send(ctx, ports.MailMessage{To: "a@b.com"}); err == nil {
		t.Fatal("expected context error")
	}
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := LogMailer{Log: zerolog.New(&buf)}

	if err := m.Send(context.Background(), ports.MailMessage{To: "a@b.com", Subject: "hello"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"to":"a@b.com"`) {
		t.Fatalf("expected recipient in log, got %s", buf.String())
	}
}
