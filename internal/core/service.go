package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PhishingAnalysisService routes emails to the remote scorer or the local scanner
type PhishingAnalysisService struct {
	remote           RemoteScorer
	scanner          *LocalScanner
	reconciler       *Reconciler
	history          HistoryRepository
	telemetry        TelemetrySink
	logger           *zap.Logger
	remoteTimeout    time.Duration
	historyTTL       time.Duration
	telemetryTimeout time.Duration
	inflight         sync.WaitGroup
}

// ServiceOptions holds the tunables of the analysis service
type ServiceOptions struct {
	RemoteTimeout    time.Duration
	HistoryTTL       time.Duration
	TelemetryTimeout time.Duration
}

// NewPhishingAnalysisService creates a new analysis service. remote, history and
// telemetry may be nil.
func NewPhishingAnalysisService(
	remote RemoteScorer,
	scanner *LocalScanner,
	reconciler *Reconciler,
	history HistoryRepository,
	telemetry TelemetrySink,
	logger *zap.Logger,
	opts ServiceOptions,
) *PhishingAnalysisService {
	if opts.RemoteTimeout <= 0 {
		opts.RemoteTimeout = 30 * time.Second
	}
	if opts.HistoryTTL <= 0 {
		opts.HistoryTTL = 24 * time.Hour
	}
	if opts.TelemetryTimeout <= 0 {
		opts.TelemetryTimeout = 10 * time.Second
	}
	return &PhishingAnalysisService{
		remote:           remote,
		scanner:          scanner,
		reconciler:       reconciler,
		history:          history,
		telemetry:        telemetry,
		logger:           logger,
		remoteTimeout:    opts.RemoteTimeout,
		historyTTL:       opts.HistoryTTL,
		telemetryTimeout: opts.TelemetryTimeout,
	}
}

// Route analyzes an email and always returns a result. Remote failures of any
// kind turn into a local fallback scan. The settings threshold is clamped to
// [1,100] and an unset threshold takes the default.
func (s *PhishingAnalysisService) Route(ctx context.Context, email EmailData, settings Settings) ScanResult {
	settings.Threshold = settings.EffectiveThreshold()
	if email.EmailID == "" {
		email.EmailID = EmailID(EmailKey(&email))
	}

	var result ScanResult
	modelUsed := "local"

	if !settings.HasAPIKey() {
		s.logger.Debug("No API key configured, running local scan",
			zap.String("email_id", email.EmailID))
		result = s.scanner.Scan(email, false)
	} else {
		remoteResult, err := s.analyzeRemote(ctx, &email, settings)
		if err != nil {
			s.logger.Error("Remote analysis failed, falling back to local scan",
				zap.Error(err),
				zap.String("email_id", email.EmailID),
				zap.String("model", settings.Model),
				zap.String("failure", failureKind(err)))
			result = s.scanner.Scan(email, true)
		} else {
			result = remoteResult
			modelUsed = settings.Model
		}
	}

	s.logger.Info("Analyzed email",
		zap.String("email_id", email.EmailID),
		zap.String("from", email.From),
		zap.Bool("is_phishing", result.IsPhishing),
		zap.Int("confidence", result.Confidence),
		zap.String("source", string(result.Source)))

	s.record(ctx, &email, settings, result, modelUsed)
	s.publish(&email, settings, result)

	return result
}

// analyzeRemote calls the remote scorer and reconciles its answer
func (s *PhishingAnalysisService) analyzeRemote(ctx context.Context, email *EmailData, settings Settings) (ScanResult, error) {
	if s.remote == nil {
		return ScanResult{}, &TransportError{Provider: "remote", Err: errors.New("no remote scorer configured")}
	}

	ctx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
	defer cancel()

	raw, err := s.remote.Score(ctx, email, settings)
	if err != nil {
		return ScanResult{}, err
	}

	return s.reconciler.Reconcile(raw, settings.Threshold)
}

// record stores the result in the history repository
func (s *PhishingAnalysisService) record(ctx context.Context, email *EmailData, settings Settings, result ScanResult, modelUsed string) {
	if s.history == nil {
		return
	}

	now := time.Now()
	entry := &HistoryEntry{
		ID:         uuid.NewString(),
		EmailID:    email.EmailID,
		From:       email.From,
		Subject:    email.Subject,
		Result:     result,
		Model:      modelUsed,
		Threshold:  settings.Threshold,
		AnalyzedAt: now,
		ExpiresAt:  now.Add(s.historyTTL),
	}
	if err := s.history.Save(ctx, entry); err != nil {
		s.logger.Error("Failed to store analysis history", zap.Error(err), zap.String("email_id", email.EmailID))
	}
}

// publish hands the result to the telemetry sink without blocking the caller
func (s *PhishingAnalysisService) publish(email *EmailData, settings Settings, result ScanResult) {
	if s.telemetry == nil || !settings.DashboardEnabled || settings.UserEmail == "" {
		return
	}

	event := NewTelemetryEvent(email, settings.UserEmail, result, time.Now())

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.telemetryTimeout)
		defer cancel()

		if err := s.telemetry.Publish(ctx, event); err != nil {
			s.logger.Warn("Dashboard sync failed", zap.Error(&TelemetryError{Err: err}))
			return
		}
		s.logger.Debug("Sent analysis to dashboard", zap.String("email_id", email.EmailID))
	}()
}

// Close waits for pending telemetry hand-offs
func (s *PhishingAnalysisService) Close() error {
	s.inflight.Wait()
	return nil
}

// LocalThreshold returns the threshold of the local scanner
func (s *PhishingAnalysisService) LocalThreshold() int {
	return s.scanner.Threshold()
}

// NewTelemetryEvent builds the dashboard event for a result
func NewTelemetryEvent(email *EmailData, user string, result ScanResult, at time.Time) *TelemetryEvent {
	from := email.From
	if from == "" {
		from = "Unknown"
	}
	subject := email.Subject
	if subject == "" {
		subject = "No Subject"
	}
	reasons := result.Indicators
	if reasons == nil {
		reasons = []string{}
	}
	return &TelemetryEvent{
		Timestamp:      at,
		User:           user,
		From:           from,
		Subject:        subject,
		Score:          result.Confidence,
		IsPhishing:     result.IsPhishing,
		Reasons:        reasons,
		Recommendation: result.Recommendation,
	}
}

func failureKind(err error) string {
	var formatErr *FormatError
	var transportErr *TransportError
	switch {
	case errors.As(err, &formatErr):
		return "format"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &transportErr):
		return "transport"
	default:
		return "unknown"
	}
}
