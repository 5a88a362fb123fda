package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"gopkg.in/yaml.v3"

	"github.com/mikey/llm-phish-filter/internal/config"
	"github.com/mikey/llm-phish-filter/internal/core"
)

const phishingMessage = "From: Boss <boss@company.com>\r\n" +
	"Subject: Urgent: verify account\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Please click here to update your password: http://company-secure.ru/login\r\n"

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PHISH_FILTER_SETTINGS_PATH", filepath.Join(t.TempDir(), "settings.yaml"))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		flags.APIKey, flags.Endpoint, flags.Model, flags.Threshold = "", "", "", 0
		scanOutput, scanFailOnPhishing = FormatText, false
	})

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeMessage(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "message.eml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestScanCommand_JSON(t *testing.T) {
	out, err := runCLI(t, "scan", writeMessage(t, phishingMessage), "--output", "json")
	if err != nil {
		t.Fatalf("scan failed: %v\n%s", err, out)
	}

	var result core.ScanResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if !result.IsPhishing || result.Source != core.SourceLocal {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestScanCommand_FailOnPhishing(t *testing.T) {
	_, err := runCLI(t, "scan", writeMessage(t, phishingMessage), "--output", "yaml", "--fail-on-phishing")
	if err != ErrPhishingDetected {
		t.Errorf("err = %v, want ErrPhishingDetected", err)
	}
}

func TestScanCommand_EmptyMessage(t *testing.T) {
	_, err := runCLI(t, "scan", writeMessage(t, "  \n"))
	if err == nil || !strings.Contains(err.Error(), "no message to scan") {
		t.Errorf("err = %v", err)
	}
}

func TestScanCommand_BadFormat(t *testing.T) {
	_, err := runCLI(t, "scan", "--output", "xml", writeMessage(t, phishingMessage))
	if err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "phish-detector ") {
		t.Errorf("version output = %q", out)
	}
}

func TestWriteResult(t *testing.T) {
	result := &core.ScanResult{
		IsPhishing:     true,
		Confidence:     80,
		Indicators:     []string{"a", "b"},
		Recommendation: "Delete it.",
		Source:         core.SourceRemote,
	}

	var text bytes.Buffer
	if err := writeResult(&text, FormatText, result); err != nil {
		t.Fatal(err)
	}
	want := "PHISHING (80%, remote)\nDelete it.\n  - a\n  - b\n"
	if text.String() != want {
		t.Errorf("text output = %q, want %q", text.String(), want)
	}

	var out bytes.Buffer
	if err := writeResult(&out, FormatYAML, result); err != nil {
		t.Fatal(err)
	}
	var decoded core.ScanResult
	if err := yaml.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if decoded.Confidence != 80 || decoded.Source != core.SourceRemote {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestRedact(t *testing.T) {
	tests := map[string]string{
		"":            "",
		"abc":         "***",
		"sk-12345678": "*******5678",
	}
	for in, want := range tests {
		if got := redact(in); got != want {
			t.Errorf("redact(%q) = %q, want %q", in, got, want)
		}
	}
}

type sequenceSource struct {
	mu     sync.Mutex
	emails []*core.EmailData
	calls  int
	done   func()
}

func (s *sequenceSource) ExtractCurrent(ctx context.Context) (*core.EmailData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls >= len(s.emails) {
		s.done()
		return nil, nil
	}
	email := s.emails[s.calls]
	s.calls++
	if email == nil {
		return nil, nil
	}
	copied := *email
	return &copied, nil
}

func TestWatchLoop_ReportsEachNewEmailOnce(t *testing.T) {
	logger := zaptest.NewLogger(t)
	service := core.NewPhishingAnalysisService(nil, core.NewLocalScanner(core.DefaultLocalThreshold),
		core.NewReconciler(logger), nil, nil, logger, core.ServiceOptions{})

	first := &core.EmailData{Subject: "one", Body: "hello"}
	second := &core.EmailData{Subject: "two", Body: "urgent gift card"}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	source := &sequenceSource{
		emails: []*core.EmailData{first, first, nil, second, second},
		done:   cancel,
	}
	session := core.NewScanSession(source, config.NewMemorySettingsStore(core.Settings{}), service, logger)

	var reported []*core.ScanResult
	err := watchLoop(ctx, session, time.Millisecond, func(result *core.ScanResult) error {
		reported = append(reported, result)
		return nil
	}, logger)
	if err != nil {
		t.Fatalf("watchLoop() error: %v", err)
	}

	if len(reported) != 2 {
		t.Fatalf("reported %d results, want 2", len(reported))
	}
	if reported[0].IsPhishing || reported[1].Confidence != 30 {
		t.Errorf("unexpected results: %+v, %+v", reported[0], reported[1])
	}
}
