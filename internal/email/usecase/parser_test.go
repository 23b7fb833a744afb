package usecase

import (
	"strings"
	"testing"
	"time"

	emaildomain "github.com/Photon3009/cisoinbox/internal/email/domain"
)

const plainMessage = "From: Alice <alice@example.com>\r\n" +
	"To: Bob <bob@example.com>\r\n" +
	"Subject: Quick question\r\n" +
	"Date: Mon, 02 Jan 2006 15:04:05 -0700\r\n" +
	"Message-ID: <abc123@example.com>\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Hello, are you available for a call?\r\n"

const multipartMessage = "From: carol@example.com\r\n" +
	"Subject: Mixed\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=xyz\r\n" +
	"\r\n" +
	"--xyz\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>html body</p>\r\n" +
	"--xyz\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"plain body\r\n" +
	"--xyz--\r\n"

const htmlOnlyMessage = "From: dave@example.com\r\n" +
	"Subject: HTML only\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>only html here</p>\r\n"

func TestParseRawMessagePlain(t *testing.T) {
	raw := &emaildomain.RawMessage{UID: 1, Raw: []byte(plainMessage)}
	parsed, err := ParseRawMessage(raw)
	if err != nil {
		t.Fatalf("ParseRawMessage() error: %v", err)
	}

	if parsed.Subject != "Quick question" {
		t.Errorf("subject = %q", parsed.Subject)
	}
	if !strings.Contains(parsed.From, "alice@example.com") {
		t.Errorf("from = %q", parsed.From)
	}
	if parsed.Body != "Hello, are you available for a call?" {
		t.Errorf("body = %q", parsed.Body)
	}
	if parsed.Date.IsZero() {
		t.Error("date not parsed")
	}
}

func TestParseRawMessagePrefersPlainPart(t *testing.T) {
	raw := &emaildomain.RawMessage{UID: 2, Raw: []byte(multipartMessage)}
	parsed, err := ParseRawMessage(raw)
	if err != nil {
		t.Fatalf("ParseRawMessage() error: %v", err)
	}
	if parsed.Body != "plain body" {
		t.Errorf("body = %q, want the text/plain part", parsed.Body)
	}
}

func TestParseRawMessageHTMLFallback(t *testing.T) {
	raw := &emaildomain.RawMessage{UID: 3, Raw: []byte(htmlOnlyMessage)}
	parsed, err := ParseRawMessage(raw)
	if err != nil {
		t.Fatalf("ParseRawMessage() error: %v", err)
	}
	if !strings.Contains(parsed.Body, "only html here") {
		t.Errorf("body = %q, want html content", parsed.Body)
	}
}

func TestParseRawMessageEnvelopeFallback(t *testing.T) {
	// A message without a Date header falls back to envelope data.
	msg := "From: eve@example.com\r\n" +
		"Subject: No date\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"body\r\n"
	envDate := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	raw := &emaildomain.RawMessage{UID: 4, Raw: []byte(msg), Date: envDate, MessageID: "env-id"}

	parsed, err := ParseRawMessage(raw)
	if err != nil {
		t.Fatalf("ParseRawMessage() error: %v", err)
	}
	if !parsed.Date.Equal(envDate) {
		t.Errorf("date = %v, want envelope date %v", parsed.Date, envDate)
	}
	if parsed.MessageID != "env-id" {
		t.Errorf("message id = %q, want envelope fallback", parsed.MessageID)
	}
}

func TestParseRawMessageEmpty(t *testing.T) {
	if _, err := ParseRawMessage(&emaildomain.RawMessage{UID: 5}); err == nil {
		t.Fatal("expected error for empty message")
	}
}
