package core

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// MinIndicatedConfidence is the floor applied when a model lists indicators
const MinIndicatedConfidence = 50

var codeFencePattern = regexp.MustCompile("```(?:json)?\\s*")

// remoteVerdict is the validated shape of a model answer
type remoteVerdict struct {
	IsPhishing     bool
	Confidence     float64
	Indicators     []string
	Recommendation string
}

// Reconciler validates remote model output and corrects it into a ScanResult
type Reconciler struct {
	logger *zap.Logger
}

// NewReconciler creates a new reconciler
func NewReconciler(logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{logger: logger}
}

// Reconcile parses raw model output and applies the consistency and threshold
// overrides. Both overrides compare the confidence as the model reported it;
// only the returned value is rounded. It is not clamped to 100.
func (r *Reconciler) Reconcile(raw string, threshold int) (ScanResult, error) {
	verdict, err := parseRemoteVerdict(raw)
	if err != nil {
		return ScanResult{}, err
	}

	isPhishing := verdict.IsPhishing
	confidence := verdict.Confidence
	recommendation := verdict.Recommendation

	if len(verdict.Indicators) > 0 {
		if !isPhishing || confidence < MinIndicatedConfidence {
			r.logger.Warn("Model output was inconsistent, forcing phishing verdict",
				zap.Bool("claimed_phishing", isPhishing),
				zap.Float64("claimed_confidence", confidence),
				zap.Int("indicator_count", len(verdict.Indicators)))
		}
		isPhishing = true
		if confidence < MinIndicatedConfidence {
			confidence = MinIndicatedConfidence
		}
	}

	if confidence >= float64(threshold) && !isPhishing {
		isPhishing = true
		recommendation = fmt.Sprintf("Flagged due to high confidence (%s%%) exceeding threshold (%d%%). %s",
			strconv.FormatFloat(confidence, 'f', -1, 64), threshold, recommendation)
	}

	return ScanResult{
		IsPhishing:     isPhishing,
		Confidence:     roundConfidence(confidence),
		Indicators:     verdict.Indicators,
		Recommendation: recommendation,
		Source:         SourceRemote,
	}, nil
}

// parseRemoteVerdict strips code fences, decodes the text between the first
// "{" and the last "}" as one JSON object and checks every field's type
// without coercion.
func parseRemoteVerdict(raw string) (*remoteVerdict, error) {
	text := codeFencePattern.ReplaceAllString(strings.TrimSpace(raw), "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, &FormatError{Reason: "expected JSON object"}
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &fields); err != nil {
		return nil, &FormatError{Reason: "malformed JSON object", Err: err}
	}

	verdict := &remoteVerdict{}

	isPhishing, ok := fields["isPhishing"].(bool)
	if !ok {
		return nil, fieldError("isPhishing", "boolean", fields["isPhishing"])
	}
	verdict.IsPhishing = isPhishing

	confidence, ok := fields["confidence"].(float64)
	if !ok {
		return nil, fieldError("confidence", "number", fields["confidence"])
	}
	verdict.Confidence = confidence

	items, ok := fields["indicators"].([]any)
	if !ok {
		return nil, fieldError("indicators", "array", fields["indicators"])
	}
	verdict.Indicators = make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fieldError(fmt.Sprintf("indicators[%d]", i), "string", item)
		}
		verdict.Indicators = append(verdict.Indicators, s)
	}

	recommendation, ok := fields["recommendation"].(string)
	if !ok {
		return nil, fieldError("recommendation", "string", fields["recommendation"])
	}
	verdict.Recommendation = recommendation

	return verdict, nil
}

// roundConfidence rounds to the nearest integer, saturating at the int32 range
func roundConfidence(c float64) int {
	switch {
	case c >= math.MaxInt32:
		return math.MaxInt32
	case c <= math.MinInt32:
		return math.MinInt32
	}
	return int(math.Round(c))
}

func fieldError(field, want string, got any) *FormatError {
	if got == nil {
		return &FormatError{Reason: fmt.Sprintf("field %s is missing or null, expected %s", field, want)}
	}
	return &FormatError{Reason: fmt.Sprintf("field %s has type %T, expected %s", field, got, want)}
}
