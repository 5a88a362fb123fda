package core

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestReconcile_ValidPayloads(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		threshold int
		want      ScanResult
	}{
		{
			name:      "plain json",
			raw:       `{"isPhishing": false, "confidence": 10, "indicators": [], "recommendation": "Looks fine."}`,
			threshold: 70,
			want:      ScanResult{IsPhishing: false, Confidence: 10, Indicators: []string{}, Recommendation: "Looks fine.", Source: SourceRemote},
		},
		{
			name:      "code fence",
			raw:       "```json\n{\"isPhishing\": true, \"confidence\": 88, \"indicators\": [\"spoofed sender\"], \"recommendation\": \"Delete it.\"}\n```",
			threshold: 70,
			want:      ScanResult{IsPhishing: true, Confidence: 88, Indicators: []string{"spoofed sender"}, Recommendation: "Delete it.", Source: SourceRemote},
		},
		{
			name:      "prose around object",
			raw:       "Here is my analysis:\n{\"isPhishing\": true, \"confidence\": 100, \"indicators\": [\"a\", \"b\"], \"recommendation\": \"r\"}\nStay safe!",
			threshold: 70,
			want:      ScanResult{IsPhishing: true, Confidence: 100, Indicators: []string{"a", "b"}, Recommendation: "r", Source: SourceRemote},
		},
		{
			name:      "fractional confidence is rounded",
			raw:       `{"isPhishing": false, "confidence": 12.6, "indicators": [], "recommendation": "ok"}`,
			threshold: 70,
			want:      ScanResult{IsPhishing: false, Confidence: 13, Indicators: []string{}, Recommendation: "ok", Source: SourceRemote},
		},
		{
			name:      "confidence is not clamped",
			raw:       `{"isPhishing": true, "confidence": 120, "indicators": ["x"], "recommendation": "r"}`,
			threshold: 70,
			want:      ScanResult{IsPhishing: true, Confidence: 120, Indicators: []string{"x"}, Recommendation: "r", Source: SourceRemote},
		},
		{
			name:      "below threshold stays safe",
			raw:       `{"isPhishing": false, "confidence": 60, "indicators": [], "recommendation": "ok"}`,
			threshold: 70,
			want:      ScanResult{IsPhishing: false, Confidence: 60, Indicators: []string{}, Recommendation: "ok", Source: SourceRemote},
		},
	}

	r := NewReconciler(zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Reconcile(tt.raw, tt.threshold)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Reconcile() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestReconcile_IndicatorsForcePhishing(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := NewReconciler(zap.New(core))

	raw := `{"isPhishing": false, "confidence": 20, "indicators": ["link to unrelated domain"], "recommendation": "Probably fine."}`
	got, err := r.Reconcile(raw, 90)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsPhishing {
		t.Error("indicators should force a phishing verdict")
	}
	if got.Confidence != MinIndicatedConfidence {
		t.Errorf("Confidence = %d, want %d", got.Confidence, MinIndicatedConfidence)
	}
	if got.Recommendation != "Probably fine." {
		t.Errorf("Recommendation = %q, the consistency override must not rewrite it", got.Recommendation)
	}
	if logs.Len() != 1 {
		t.Errorf("expected one diagnostic, got %d", logs.Len())
	}
}

func TestReconcile_IndicatorsKeepHigherConfidence(t *testing.T) {
	r := NewReconciler(nil)
	got, err := r.Reconcile(`{"isPhishing": false, "confidence": 65, "indicators": ["x"], "recommendation": "r"}`, 90)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsPhishing || got.Confidence != 65 {
		t.Errorf("got %+v, want phishing with confidence 65", got)
	}
}

func TestReconcile_ThresholdOverride(t *testing.T) {
	r := NewReconciler(nil)
	got, err := r.Reconcile(`{"isPhishing": false, "confidence": 75, "indicators": [], "recommendation": "Seems okay."}`, 70)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsPhishing {
		t.Error("confidence above threshold should force phishing")
	}
	want := "Flagged due to high confidence (75%) exceeding threshold (70%). Seems okay."
	if got.Recommendation != want {
		t.Errorf("Recommendation = %q, want %q", got.Recommendation, want)
	}
}

func TestReconcile_ThresholdOverrideAfterConsistencyIsNoop(t *testing.T) {
	r := NewReconciler(nil)
	got, err := r.Reconcile(`{"isPhishing": false, "confidence": 10, "indicators": ["x"], "recommendation": "r"}`, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Recommendation != "r" {
		t.Errorf("already phishing after consistency override, recommendation should be untouched: %q", got.Recommendation)
	}
}

func TestReconcile_FormatErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"not json", "I think this email is phishing."},
		{"broken json", `{"isPhishing": true, "confidence": `},
		{"missing isPhishing", `{"confidence": 10, "indicators": [], "recommendation": "r"}`},
		{"missing recommendation", `{"isPhishing": true, "confidence": 10, "indicators": []}`},
		{"string boolean", `{"isPhishing": "true", "confidence": 10, "indicators": [], "recommendation": "r"}`},
		{"string confidence", `{"isPhishing": true, "confidence": "80", "indicators": [], "recommendation": "r"}`},
		{"null indicators", `{"isPhishing": true, "confidence": 80, "indicators": null, "recommendation": "r"}`},
		{"indicators object", `{"isPhishing": true, "confidence": 80, "indicators": {"a": 1}, "recommendation": "r"}`},
		{"non-string indicator", `{"isPhishing": true, "confidence": 80, "indicators": [1], "recommendation": "r"}`},
		{"numeric recommendation", `{"isPhishing": true, "confidence": 80, "indicators": [], "recommendation": 5}`},
		{"trailing object", `{"isPhishing": true, "confidence": 80, "indicators": [], "recommendation": "r"} see {note}`},
		{"out of range number", `{"isPhishing": false, "confidence": 1e400, "indicators": [], "recommendation": "r"}`},
	}

	r := NewReconciler(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Reconcile(tt.raw, 70)
			if err == nil {
				t.Fatal("expected error")
			}
			var formatErr *FormatError
			if !errors.As(err, &formatErr) {
				t.Errorf("expected *FormatError, got %T: %v", err, err)
			}
		})
	}
}

func TestReconcile_ThresholdComparesUnroundedConfidence(t *testing.T) {
	r := NewReconciler(nil)

	got, err := r.Reconcile(`{"isPhishing": false, "confidence": 69.6, "indicators": [], "recommendation": "ok"}`, 70)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.IsPhishing || got.Recommendation != "ok" {
		t.Errorf("69.6 is below a threshold of 70, got %+v", got)
	}
	if got.Confidence != 70 {
		t.Errorf("Confidence = %d, want 70", got.Confidence)
	}

	got, err = r.Reconcile(`{"isPhishing": false, "confidence": 70.4, "indicators": [], "recommendation": "ok"}`, 70)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Flagged due to high confidence (70.4%) exceeding threshold (70%). ok"
	if !got.IsPhishing || got.Recommendation != want {
		t.Errorf("got %+v, want phishing with %q", got, want)
	}
}

func TestReconcile_HugeConfidenceSaturates(t *testing.T) {
	r := NewReconciler(nil)

	got, err := r.Reconcile(`{"isPhishing": false, "confidence": 1e30, "indicators": [], "recommendation": "ok"}`, 70)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsPhishing {
		t.Error("a confidence above the threshold must force a phishing verdict")
	}
	if got.Confidence != math.MaxInt32 {
		t.Errorf("Confidence = %d, want %d", got.Confidence, math.MaxInt32)
	}
	if !strings.HasPrefix(got.Recommendation, "Flagged due to high confidence") {
		t.Errorf("Recommendation = %q", got.Recommendation)
	}

	got, err = r.Reconcile(`{"isPhishing": false, "confidence": -1e30, "indicators": [], "recommendation": "ok"}`, 70)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.IsPhishing || got.Confidence != math.MinInt32 {
		t.Errorf("got %+v, want safe with confidence %d", got, math.MinInt32)
	}
}

func TestRoundConfidence(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{12.4, 12},
		{12.5, 13},
		{-0.4, 0},
		{120, 120},
		{math.MaxInt32 + 10.0, math.MaxInt32},
		{math.MinInt32 - 10.0, math.MinInt32},
	}
	for _, tt := range tests {
		if got := roundConfidence(tt.in); got != tt.want {
			t.Errorf("roundConfidence(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
