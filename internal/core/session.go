package core

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

const (
	emailKeyBodyPrefix = 100
	emailIDLength      = 20
)

// EmailKey builds the identity key of an email from its subject, sender and the
// start of its body.
func EmailKey(email *EmailData) string {
	body := []rune(email.Body)
	if len(body) > emailKeyBodyPrefix {
		body = body[:emailKeyBodyPrefix]
	}
	return fmt.Sprintf("%s_%s_%s", email.Subject, email.From, string(body))
}

// EmailID derives the short stable id of an email key
func EmailID(key string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(key))
	if len(encoded) > emailIDLength {
		encoded = encoded[:emailIDLength]
	}
	return encoded
}

// ScanSession tracks the email shown in one mail client view and scans it when it changes
type ScanSession struct {
	source   EmailSource
	settings SettingsStore
	service  *PhishingAnalysisService
	logger   *zap.Logger

	mu         sync.Mutex
	lastKey    string
	lastResult *ScanResult
}

// NewScanSession creates a session bound to one email source
func NewScanSession(source EmailSource, settings SettingsStore, service *PhishingAnalysisService, logger *zap.Logger) *ScanSession {
	return &ScanSession{
		source:   source,
		settings: settings,
		service:  service,
		logger:   logger,
	}
}

// Refresh scans the current email if it differs from the last one scanned.
// It returns nil when no email is open.
func (s *ScanSession) Refresh(ctx context.Context) (*ScanResult, error) {
	return s.scan(ctx, false)
}

// Rescan scans the current email even if it was already scanned
func (s *ScanSession) Rescan(ctx context.Context) (*ScanResult, error) {
	return s.scan(ctx, true)
}

// Last returns the most recent result of the session
func (s *ScanSession) Last() *ScanResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult
}

func (s *ScanSession) scan(ctx context.Context, force bool) (*ScanResult, error) {
	email, err := s.source.ExtractCurrent(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to extract email: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if email == nil {
		if s.lastKey != "" {
			s.logger.Debug("Navigated away from email, resetting session")
		}
		s.lastKey = ""
		s.lastResult = nil
		return nil, nil
	}

	key := EmailKey(email)
	if !force && key == s.lastKey && s.lastResult != nil {
		return s.lastResult, nil
	}

	if email.EmailID == "" {
		email.EmailID = EmailID(key)
	}

	settings, err := s.settings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	s.logger.Info("Scanning email", zap.String("subject", email.Subject), zap.Bool("forced", force))
	result := s.service.Route(ctx, *email, settings)

	s.lastKey = key
	s.lastResult = &result
	return &result, nil
}
