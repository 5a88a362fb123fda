package filter

import (
	"context"
	"strings"

	"github.com/mikey/llm-phish-filter/internal/core"
	"go.uber.org/zap"
)

// analyzer loads the current settings and routes an email through the service
type analyzer struct {
	service  *core.PhishingAnalysisService
	settings core.SettingsStore
	logger   *zap.Logger
}

func (a *analyzer) analyze(ctx context.Context, email *core.EmailData) core.ScanResult {
	settings, err := a.settings.Load(ctx)
	if err != nil {
		a.logger.Warn("Failed to load settings, scanning locally", zap.Error(err))
		settings = core.Settings{}
	}
	return a.service.Route(ctx, *email, settings)
}

// reason renders a result as a single line for headers and logs
func reason(result core.ScanResult) string {
	if len(result.Indicators) == 0 {
		return result.Recommendation
	}
	return result.Recommendation + " Indicators: " + strings.Join(result.Indicators, "; ")
}
