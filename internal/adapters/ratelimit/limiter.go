package ratelimit

import (
	"context"
	"sync"

	"github.com/mikey/llm-phish-filter/internal/core"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Scorer is a RemoteScorer decorator that enforces a request budget per API key.
// Requests over budget fail fast with core.ErrRateLimited.
type Scorer struct {
	next   core.RemoteScorer
	limit  rate.Limit
	burst  int
	logger *zap.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewScorer wraps next with a limiter allowing requestsPerSecond with the given burst
func NewScorer(next core.RemoteScorer, requestsPerSecond float64, burst int, logger *zap.Logger) *Scorer {
	if burst < 1 {
		burst = 1
	}
	return &Scorer{
		next:     next,
		limit:    rate.Limit(requestsPerSecond),
		burst:    burst,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Score forwards the request when the key still has budget
func (s *Scorer) Score(ctx context.Context, email *core.EmailData, settings core.Settings) (string, error) {
	if !s.limiter(settings.APIKey).Allow() {
		s.logger.Warn("Remote scorer request budget exhausted", zap.String("model", settings.Model))
		return "", core.ErrRateLimited
	}
	return s.next.Score(ctx, email, settings)
}

func (s *Scorer) limiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.limiters[key]
	if !ok {
		l = rate.NewLimiter(s.limit, s.burst)
		s.limiters[key] = l
	}
	return l
}

// Close closes the wrapped scorer when it holds resources
func (s *Scorer) Close() error {
	if closer, ok := s.next.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
