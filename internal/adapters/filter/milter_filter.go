package filter

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/emersion/go-milter"
	"github.com/mikey/llm-phish-filter/internal/core"
	"github.com/mikey/llm-phish-filter/internal/whitelist"
	"go.uber.org/zap"
)

// MilterOptions holds the settings of the milter
type MilterOptions struct {
	ListenAddr    string
	BlockPhishing bool
	StatusHeader  string
	ScoreHeader   string
	ReasonHeader  string
	SubjectPrefix string
	ModifySubject bool
	Timeout       time.Duration
}

// MilterFilter implements a milter for phishing detection
type MilterFilter struct {
	messageInspector
	opts    MilterOptions
	server  *milter.Server
	stopped atomic.Bool
}

// NewMilterFilter creates a new milter
func NewMilterFilter(
	service *core.PhishingAnalysisService,
	settings core.SettingsStore,
	checker *whitelist.Checker,
	logger *zap.Logger,
	opts MilterOptions,
) *MilterFilter {
	if opts.Timeout <= 0 {
		opts.Timeout = time.Minute
	}

	return &MilterFilter{
		messageInspector: newMessageInspector(service, settings, checker, logger,
			opts.BlockPhishing, opts.StatusHeader, opts.ScoreHeader, opts.ReasonHeader,
			opts.SubjectPrefix, opts.ModifySubject),
		opts: opts,
	}
}

// Start starts the milter service
func (f *MilterFilter) Start() error {
	ln, err := net.Listen("tcp", f.opts.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.opts.ListenAddr, err)
	}

	f.server = &milter.Server{
		NewMilter: func() milter.Milter { return &milterSession{filter: f} },
		Actions:   milter.OptAddHeader | milter.OptChangeHeader,
	}

	f.logger.Info("Milter filter started", zap.String("address", ln.Addr().String()))

	go func() {
		if err := f.server.Serve(ln); err != nil && !f.stopped.Load() {
			f.logger.Error("Milter server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the milter service
func (f *MilterFilter) Stop() error {
	f.stopped.Store(true)
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessEmail analyzes an email without going through the milter protocol
func (f *MilterFilter) ProcessEmail(ctx context.Context, email *core.EmailData) (*core.ScanResult, error) {
	result := f.analyze(ctx, email)
	return &result, nil
}

// headerAction is one header modification sent back to the MTA. An action
// with a zero index appends a header; otherwise it replaces the index-th
// occurrence (1-based) of the name, and an empty value deletes it.
type headerAction struct {
	index int
	name  string
	value string
}

func (a headerAction) apply(m *milter.Modifier) error {
	if a.index == 0 {
		return m.AddHeader(a.name, a.value)
	}
	return m.ChangeHeader(a.index, a.name, a.value)
}

// decide analyzes a message collected by the milter and returns the response
// and the header modifications to apply
func (f *MilterFilter) decide(ctx context.Context, sender string, headers []header, body []byte) (milter.Response, []headerAction) {
	verdict := f.inspect(ctx, sender, assembleMessage(headers, body))
	switch {
	case verdict.skipped:
		return milter.RespAccept, nil
	case verdict.reject:
		return milter.RespReject, nil
	}

	var actions []headerAction
	for _, name := range verdict.drop {
		for n := countHeader(headers, name); n > 0; n-- {
			actions = append(actions, headerAction{index: n, name: name})
		}
	}
	for _, h := range verdict.add {
		actions = append(actions, headerAction{name: h.name, value: h.value})
	}
	return milter.RespAccept, actions
}

// assembleMessage rebuilds a raw message from the headers and body a milter receives
func assembleMessage(headers []header, body []byte) []byte {
	var buf bytes.Buffer
	for _, h := range headers {
		buf.WriteString(h.name)
		buf.WriteString(": ")
		buf.WriteString(h.value)
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")
	buf.Write(body)
	return buf.Bytes()
}

func countHeader(headers []header, name string) int {
	n := 0
	for _, h := range headers {
		if strings.EqualFold(h.name, name) {
			n++
		}
	}
	return n
}

// milterSession collects the messages of one milter connection
type milterSession struct {
	milter.NoOpMilter
	filter  *MilterFilter
	sender  string
	headers []header
	body    bytes.Buffer
}

func (s *milterSession) reset() {
	s.sender = ""
	s.headers = nil
	s.body.Reset()
}

// MailFrom starts a new message
func (s *milterSession) MailFrom(from string, _ *milter.Modifier) (milter.Response, error) {
	s.reset()
	s.sender = strings.Trim(from, "<>")
	return milter.RespContinue, nil
}

// Header records a header of the message
func (s *milterSession) Header(name string, value string, _ *milter.Modifier) (milter.Response, error) {
	s.headers = append(s.headers, header{name, value})
	return milter.RespContinue, nil
}

// BodyChunk records a chunk of the message body
func (s *milterSession) BodyChunk(chunk []byte, _ *milter.Modifier) (milter.Response, error) {
	s.body.Write(chunk)
	return milter.RespContinue, nil
}

// Body analyzes the complete message and applies the verdict
func (s *milterSession) Body(m *milter.Modifier) (milter.Response, error) {
	defer s.reset()

	ctx, cancel := context.WithTimeout(context.Background(), s.filter.opts.Timeout)
	defer cancel()

	resp, actions := s.filter.decide(ctx, s.sender, s.headers, s.body.Bytes())
	for _, action := range actions {
		if err := action.apply(m); err != nil {
			s.filter.logger.Error("Failed to modify message headers",
				zap.Error(err),
				zap.String("sender", s.sender),
				zap.String("header", action.name))
			return nil, err
		}
	}
	return resp, nil
}

// Abort discards the current message
func (s *milterSession) Abort(_ *milter.Modifier) error {
	s.reset()
	return nil
}
