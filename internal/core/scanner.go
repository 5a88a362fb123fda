package core

import (
	"fmt"
	"strings"
)

const (
	// DefaultLocalThreshold is the confidence at which a local scan flags phishing
	DefaultLocalThreshold = 45
	// LocalConfidenceCap is the highest confidence a local scan reports
	LocalConfidenceCap = 99

	KeywordScore      = 15
	ExternalLinkScore = 8
)

// Recommendation texts for local scans
const (
	RecommendationPhishing = "Potential Phishing Detected via Local Scan. Use extreme caution and manually verify the sender and links."
	RecommendationCaution  = "Email appears safe based on basic local checks, but minor indicators were found. Use caution for complex or novel threats."
	RecommendationSafe     = "Email appears safe based on basic local checks."
	FallbackPrefix         = "API Scan failed due to error/limit. "
)

// PhishingKeywords are matched as lowercase substrings of the subject and body
var PhishingKeywords = []string{
	"urgent", "account suspended", "verify account", "click here to update",
	"password expired", "payment failed", "unauthorized access", "invoice attached",
	"confirm password", "verify identity", "bank account", "update billing",
	"reset your password", "security alert", "wire transfer", "gift card",
}

// LocalScanner is the network-free heuristic scanner
type LocalScanner struct {
	threshold int
}

// NewLocalScanner creates a scanner; a threshold outside [1,100] falls back to the default
func NewLocalScanner(threshold int) *LocalScanner {
	if threshold < 1 || threshold > 100 {
		threshold = DefaultLocalThreshold
	}
	return &LocalScanner{threshold: threshold}
}

// Threshold returns the local phishing threshold
func (s *LocalScanner) Threshold() int {
	return s.threshold
}

// Scan scores an email with keyword and link heuristics. isFallback marks a scan
// standing in for a failed remote call.
func (s *LocalScanner) Scan(email EmailData, isFallback bool) ScanResult {
	body := strings.ToLower(email.Body)
	subject := strings.ToLower(email.Subject)
	emailText := subject + " " + body
	senderDomain := ExtractSenderDomain(email.From)

	indicators := make([]string, 0)
	confidence := 0

	for _, kw := range PhishingKeywords {
		if strings.Contains(body, kw) || strings.Contains(subject, kw) {
			indicators = append(indicators, fmt.Sprintf("Keyword detected: %q", kw))
			confidence += KeywordScore
		}
	}

	if len(email.Links) > 0 {
		indicators = append(indicators, fmt.Sprintf("Contains %d external link(s).", len(email.Links)))
		confidence += ExternalLinkScore

		outcome := AnalyzeLinks(email.Links, emailText, senderDomain)
		indicators = append(indicators, outcome.Indicators...)
		confidence += outcome.ScoreDelta
	}

	if confidence > LocalConfidenceCap {
		confidence = LocalConfidenceCap
	}
	isPhishing := confidence >= s.threshold

	var recommendation string
	switch {
	case isPhishing:
		recommendation = RecommendationPhishing
	case confidence > 0:
		recommendation = RecommendationCaution
	default:
		recommendation = RecommendationSafe
	}

	source := SourceLocal
	if isFallback {
		recommendation = FallbackPrefix + recommendation
		source = SourceFallback
	}

	return ScanResult{
		IsPhishing:     isPhishing,
		Confidence:     confidence,
		Indicators:     indicators,
		Recommendation: recommendation,
		Source:         source,
	}
}
