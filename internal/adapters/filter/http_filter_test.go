package filter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mikey/llm-phish-filter/internal/adapters/history"
	"github.com/mikey/llm-phish-filter/internal/config"
	"github.com/mikey/llm-phish-filter/internal/core"
	"go.uber.org/zap/zaptest"
)

func newTestHTTPFilter(t *testing.T, settings core.Settings) (*httptest.Server, *config.MemorySettingsStore) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	repo := history.NewMemoryHistory(logger, time.Hour, time.Hour)
	t.Cleanup(repo.Stop)

	service := core.NewPhishingAnalysisService(nil, core.NewLocalScanner(core.DefaultLocalThreshold),
		core.NewReconciler(logger), repo, nil, logger, core.ServiceOptions{})
	store := config.NewMemorySettingsStore(settings)

	f := NewHTTPFilter(service, store, repo, logger, "127.0.0.1:0")
	server := httptest.NewServer(f.Handler())
	t.Cleanup(server.Close)
	return server, store
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
	}
	return resp, decoded
}

func TestHTTPFilter_Healthz(t *testing.T) {
	server, _ := newTestHTTPFilter(t, core.Settings{})
	resp, body := doJSON(t, http.MethodGet, server.URL+"/healthz", "")
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Errorf("healthz = %d %v", resp.StatusCode, body)
	}
}

func TestHTTPFilter_AnalyzeAndHistory(t *testing.T) {
	server, _ := newTestHTTPFilter(t, core.Settings{})

	resp, _ := doJSON(t, http.MethodGet, server.URL+"/v1/history/latest", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("empty history status = %d, want 404", resp.StatusCode)
	}

	payload := `{"emailData": {"from": "boss@company.com", "subject": "Urgent: verify account",
		"body": "click here to update your password", "links": ["http://company-secure.ru/login"], "emailId": "abc123"}}`
	resp, body := doJSON(t, http.MethodPost, server.URL+"/v1/analyze", payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("analyze status = %d: %v", resp.StatusCode, body)
	}
	if body["success"] != true {
		t.Fatalf("success = %v", body["success"])
	}
	result := body["result"].(map[string]any)
	if result["isPhishing"] != true || result["confidence"].(float64) != 99 || result["source"] != "local" {
		t.Errorf("unexpected result: %v", result)
	}

	resp, body = doJSON(t, http.MethodGet, server.URL+"/v1/history/abc123", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history status = %d", resp.StatusCode)
	}
	if body["emailId"] != "abc123" || body["model"] != "local" {
		t.Errorf("unexpected history entry: %v", body)
	}

	resp, body = doJSON(t, http.MethodGet, server.URL+"/v1/history/latest", "")
	if resp.StatusCode != http.StatusOK || body["emailId"] != "abc123" {
		t.Errorf("latest = %d %v", resp.StatusCode, body)
	}

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/v1/history/unknown", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", resp.StatusCode)
	}
}

func TestHTTPFilter_AnalyzeBadRequests(t *testing.T) {
	server, _ := newTestHTTPFilter(t, core.Settings{})

	for name, payload := range map[string]string{
		"invalid json":      `{"emailData": `,
		"missing emailData": `{}`,
	} {
		t.Run(name, func(t *testing.T) {
			resp, body := doJSON(t, http.MethodPost, server.URL+"/v1/analyze", payload)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			if body["success"] != false || body["error"] == "" {
				t.Errorf("unexpected body: %v", body)
			}
		})
	}
}

func TestHTTPFilter_Settings(t *testing.T) {
	server, store := newTestHTTPFilter(t, core.Settings{APIKey: "sk-secret", Threshold: 70})

	resp, body := doJSON(t, http.MethodGet, server.URL+"/v1/settings", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	if body["or_api_key"] != RedactedAPIKey {
		t.Errorf("api key not redacted: %v", body["or_api_key"])
	}
	if body["user_threshold"].(float64) != 70 {
		t.Errorf("threshold = %v", body["user_threshold"])
	}

	resp, _ = doJSON(t, http.MethodPut, server.URL+"/v1/settings",
		`{"or_api_key": "********", "or_model": "openai/gpt-4o", "user_threshold": 80}`)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("put status = %d", resp.StatusCode)
	}
	saved, _ := store.Load(context.Background())
	if saved.APIKey != "sk-secret" || saved.Model != "openai/gpt-4o" || saved.Threshold != 80 {
		t.Errorf("unexpected saved settings: %+v", saved)
	}

	resp, body = doJSON(t, http.MethodPut, server.URL+"/v1/settings",
		`{"firebaseEnabled": true, "userEmail": "not-an-address"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid settings status = %d, want 400", resp.StatusCode)
	}
	if !strings.Contains(body["error"].(string), "userEmail") {
		t.Errorf("error = %v", body["error"])
	}
}
