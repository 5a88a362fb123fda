package filter

import (
	"context"
	"strconv"
	"strings"

	"github.com/mikey/llm-phish-filter/internal/adapters/source"
	"github.com/mikey/llm-phish-filter/internal/core"
	"github.com/mikey/llm-phish-filter/internal/whitelist"
	"go.uber.org/zap"
)

// Default verdict header names and subject prefix
const (
	DefaultSubjectPrefix = "[PHISHING] "
	DefaultStatusHeader = "X-Phish-Status"
	DefaultScoreHeader  = "X-Phish-Score"
	DefaultReasonHeader = "X-Phish-Reason"
)

// inspection is the outcome of filtering one raw message
type inspection struct {
	email  *core.EmailData
	result core.ScanResult
	// skipped messages are passed through untouched
	skipped bool
	reject  bool
	add     []header
	drop    []string
}

// messageInspector routes raw messages of the mail pipeline front doors and
// decides how they are marked
type messageInspector struct {
	analyzer
	whitelist     *whitelist.Checker
	blockPhishing bool
	statusHeader  string
	scoreHeader   string
	reasonHeader  string
	subjectPrefix string
	modifySubject bool
}

func newMessageInspector(
	service *core.PhishingAnalysisService,
	settings core.SettingsStore,
	checker *whitelist.Checker,
	logger *zap.Logger,
	blockPhishing bool,
	statusHeader, scoreHeader, reasonHeader string,
	subjectPrefix string,
	modifySubject bool,
) messageInspector {
	if subjectPrefix == "" && modifySubject {
		subjectPrefix = DefaultSubjectPrefix
	}
	if statusHeader == "" {
		statusHeader = DefaultStatusHeader
	}
	if scoreHeader == "" {
		scoreHeader = DefaultScoreHeader
	}
	if reasonHeader == "" {
		reasonHeader = DefaultReasonHeader
	}
	if checker == nil {
		checker = whitelist.NewChecker(nil, logger)
	}
	return messageInspector{
		analyzer:      analyzer{service: service, settings: settings, logger: logger},
		whitelist:     checker,
		blockPhishing: blockPhishing,
		statusHeader:  statusHeader,
		scoreHeader:   scoreHeader,
		reasonHeader:  reasonHeader,
		subjectPrefix: subjectPrefix,
		modifySubject: modifySubject,
	}
}

// inspect parses and analyzes a raw message. Unparseable messages and
// whitelisted senders are skipped. Phishing verdicts of a successful analysis
// are rejected when blocking is enabled; every other message gets the verdict
// headers, replacing any copies already present.
func (i *messageInspector) inspect(ctx context.Context, sender string, raw []byte) inspection {
	email, err := source.ParseMessage(raw)
	if err != nil {
		i.logger.Warn("Failed to parse message, passing it through", zap.Error(err), zap.String("sender", sender))
		return inspection{skipped: true}
	}
	if email.From == "" {
		email.From = sender
	}

	if i.whitelist.IsWhitelisted(email.From) || i.whitelist.IsWhitelisted(sender) {
		i.logger.Info("Skipping whitelisted sender", zap.String("from", email.From))
		return inspection{email: email, skipped: true}
	}

	result := i.analyze(ctx, email)
	out := inspection{email: email, result: result}

	if result.IsPhishing && i.blockPhishing && result.Source != core.SourceFallback {
		i.logger.Info("Rejecting phishing email",
			zap.String("from", email.From),
			zap.Int("confidence", result.Confidence),
			zap.String("source", string(result.Source)),
			zap.String("reason", result.Recommendation))
		out.reject = true
		return out
	}

	out.add = []header{
		{i.statusHeader, strconv.FormatBool(result.IsPhishing)},
		{i.scoreHeader, strconv.Itoa(result.Confidence)},
		{i.reasonHeader, encodeHeaderValue(reason(result))},
	}
	out.drop = []string{i.statusHeader, i.scoreHeader, i.reasonHeader}

	if result.IsPhishing && i.modifySubject && i.subjectPrefix != "" {
		head, _, _ := splitMessage(raw)
		original := headerValue(head, "Subject")
		decoded, err := decodeEncodedHeader(original)
		if err != nil {
			decoded = original
		}
		if !strings.HasPrefix(decoded, i.subjectPrefix) {
			out.add = append(out.add, header{"Subject", encodeHeaderValue(i.subjectPrefix + decoded)})
			out.drop = append(out.drop, "Subject")
		}
	}

	i.logger.Info("Processed email",
		zap.String("from", email.From),
		zap.Bool("is_phishing", result.IsPhishing),
		zap.Int("confidence", result.Confidence),
		zap.String("source", string(result.Source)))

	return out
}
