package filter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mikey/llm-phish-filter/internal/config"
	"github.com/mikey/llm-phish-filter/internal/core"
	"go.uber.org/zap"
)

// RedactedAPIKey replaces the API key in settings responses
const RedactedAPIKey = "********"

const maxRequestBytes = 2 << 20

// HTTPFilter exposes the engine as a JSON API for browser extensions and scripts
type HTTPFilter struct {
	analyzer
	history core.HistoryRepository
	addr    string
	router  chi.Router
	server  *http.Server
}

type analyzeRequest struct {
	EmailData *core.EmailData `json:"emailData"`
}

type analyzeResponse struct {
	Success bool             `json:"success"`
	Result  *core.ScanResult `json:"result,omitempty"`
	Error   string           `json:"error,omitempty"`
}

type historyResponse struct {
	ID         string          `json:"id"`
	EmailID    string          `json:"emailId"`
	From       string          `json:"from"`
	Subject    string          `json:"subject"`
	Result     core.ScanResult `json:"result"`
	Model      string          `json:"model"`
	Threshold  int             `json:"threshold"`
	AnalyzedAt time.Time       `json:"analyzedAt"`
}

// NewHTTPFilter creates the HTTP front door. history may be nil.
func NewHTTPFilter(
	service *core.PhishingAnalysisService,
	settings core.SettingsStore,
	history core.HistoryRepository,
	logger *zap.Logger,
	addr string,
) *HTTPFilter {
	f := &HTTPFilter{
		analyzer: analyzer{service: service, settings: settings, logger: logger},
		history:  history,
		addr:     addr,
		router:   chi.NewRouter(),
	}
	f.routes()
	return f
}

func (f *HTTPFilter) routes() {
	r := f.router

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(f.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/analyze", f.handleAnalyze)
		r.Get("/history/latest", f.handleLatest)
		r.Get("/history/{emailID}", f.handleHistory)
		r.Get("/settings", f.handleGetSettings)
		r.Put("/settings", f.handlePutSettings)
	})
}

// Handler returns the HTTP handler of the filter
func (f *HTTPFilter) Handler() http.Handler {
	return f.router
}

// Start starts the HTTP server
func (f *HTTPFilter) Start() error {
	f.server = &http.Server{
		Addr:              f.addr,
		Handler:           f.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	f.logger.Info("HTTP filter starting", zap.String("address", f.addr))

	go func() {
		if err := f.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop gracefully stops the HTTP server
func (f *HTTPFilter) Stop() error {
	if f.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return f.server.Shutdown(ctx)
}

// ProcessEmail analyzes an email without going through HTTP
func (f *HTTPFilter) ProcessEmail(ctx context.Context, email *core.EmailData) (*core.ScanResult, error) {
	result := f.analyze(ctx, email)
	return &result, nil
}

func (f *HTTPFilter) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, analyzeResponse{Error: err.Error()})
		return
	}
	if req.EmailData == nil {
		writeJSON(w, http.StatusBadRequest, analyzeResponse{Error: "emailData is required"})
		return
	}

	result := f.analyze(r.Context(), req.EmailData)
	writeJSON(w, http.StatusOK, analyzeResponse{Success: true, Result: &result})
}

func (f *HTTPFilter) handleLatest(w http.ResponseWriter, r *http.Request) {
	if f.history == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return
	}
	entry, err := f.history.Latest(r.Context())
	f.writeEntry(w, entry, err)
}

func (f *HTTPFilter) handleHistory(w http.ResponseWriter, r *http.Request) {
	if f.history == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return
	}
	entry, err := f.history.Get(r.Context(), chi.URLParam(r, "emailID"))
	f.writeEntry(w, entry, err)
}

func (f *HTTPFilter) writeEntry(w http.ResponseWriter, entry *core.HistoryEntry, err error) {
	if errors.Is(err, core.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no analysis found")
		return
	}
	if err != nil {
		f.logger.Error("Failed to read history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{
		ID:         entry.ID,
		EmailID:    entry.EmailID,
		From:       entry.From,
		Subject:    entry.Subject,
		Result:     entry.Result,
		Model:      entry.Model,
		Threshold:  entry.Threshold,
		AnalyzedAt: entry.AnalyzedAt,
	})
}

func (f *HTTPFilter) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := f.settings.Load(r.Context())
	if err != nil {
		f.logger.Error("Failed to load settings", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	if settings.APIKey != "" {
		settings.APIKey = RedactedAPIKey
	}
	writeJSON(w, http.StatusOK, settings)
}

func (f *HTTPFilter) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var settings core.Settings
	if err := decodeJSON(w, r, &settings); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if settings.APIKey == RedactedAPIKey {
		current, err := f.settings.Load(r.Context())
		if err != nil {
			f.logger.Error("Failed to load settings", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load settings")
			return
		}
		settings.APIKey = current.APIKey
	}

	if err := f.settings.Save(r.Context(), settings); err != nil {
		if errors.Is(err, config.ErrInvalidSettings) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.logger.Error("Failed to save settings", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}

	f.logger.Info("Settings updated",
		zap.String("model", settings.Model),
		zap.Int("threshold", settings.Threshold),
		zap.Bool("dashboard", settings.DashboardEnabled))
	w.WriteHeader(http.StatusNoContent)
}

func (f *HTTPFilter) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		f.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, analyzeResponse{Error: msg})
}
