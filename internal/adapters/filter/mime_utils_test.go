package filter

import (
	"strings"
	"testing"
)

func TestSplitMessage(t *testing.T) {
	head, body, ok := splitMessage([]byte("Subject: a\r\nFrom: b\r\n\r\nbody\r\n"))
	if !ok || string(head) != "Subject: a\r\nFrom: b" || string(body) != "body\r\n" {
		t.Errorf("CRLF split = %q, %q, %v", head, body, ok)
	}

	head, body, ok = splitMessage([]byte("Subject: a\n\nbody"))
	if !ok || string(head) != "Subject: a" || string(body) != "body" {
		t.Errorf("LF split = %q, %q, %v", head, body, ok)
	}

	_, _, ok = splitMessage([]byte("Subject: a"))
	if ok {
		t.Error("message without separator should not report a body")
	}
}

func TestHeaderValue(t *testing.T) {
	head := []byte("From: a@b.com\r\nSubject: first part\r\n\tsecond part\r\nTo: c@d.com")

	if got := headerValue(head, "subject"); got != "first part second part" {
		t.Errorf("headerValue(subject) = %q", got)
	}
	if got := headerValue(head, "To"); got != "c@d.com" {
		t.Errorf("headerValue(To) = %q", got)
	}
	if got := headerValue(head, "Cc"); got != "" {
		t.Errorf("headerValue(Cc) = %q, want empty", got)
	}
}

func TestRewriteMessage(t *testing.T) {
	raw := "X-Phish-Status: false\r\n" +
		"From: a@b.com\r\n" +
		"Subject: hello\r\n" +
		" world\r\n" +
		"To: c@d.com\r\n" +
		"\r\n" +
		"line one\r\nline two\r\n"

	out := string(rewriteMessage([]byte(raw), []header{
		{"X-Phish-Status", "true"},
		{"Subject", "[PHISHING] hello world"},
	}, []string{"x-phish-status", "Subject"}))

	want := "X-Phish-Status: true\r\n" +
		"Subject: [PHISHING] hello world\r\n" +
		"From: a@b.com\r\n" +
		"To: c@d.com\r\n" +
		"\r\n" +
		"line one\r\nline two\r\n"
	if out != want {
		t.Errorf("rewriteMessage() =\n%q\nwant\n%q", out, want)
	}
}

func TestDecodeEncodedHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain subject", "plain subject"},
		{"=?UTF-8?B?VXJnZW50OiB2w6lyaWZ5?=", "Urgent: vérify"},
		{"=?ISO-8859-1?Q?caf=E9?=", "café"},
		{"=?windows-1252?Q?price_=80?=", "price €"},
	}
	for _, tt := range tests {
		got, err := decodeEncodedHeader(tt.in)
		if err != nil {
			t.Errorf("decodeEncodedHeader(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("decodeEncodedHeader(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEncodeHeaderValue(t *testing.T) {
	if got := encodeHeaderValue("line one\r\n line two"); got != "line one line two" {
		t.Errorf("ASCII value = %q", got)
	}

	got := encodeHeaderValue("[PHISHING] café")
	if !strings.HasPrefix(got, "=?utf-8?q?") {
		t.Errorf("non-ASCII value should be Q-encoded, got %q", got)
	}
	decoded, err := decodeEncodedHeader(got)
	if err != nil || decoded != "[PHISHING] café" {
		t.Errorf("round trip = %q, %v", decoded, err)
	}
}
