package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
	"github.com/mikey/llm-phish-filter/internal/core"
	"go.uber.org/zap"
)

// Supported webmail services
const (
	ServiceGmail   = "gmail"
	ServiceOutlook = "outlook"
)

var serviceURLs = map[string]string{
	ServiceGmail:   "https://mail.google.com/mail/u/0/",
	ServiceOutlook: "https://outlook.live.com/mail/0/",
}

// extraction scripts return empty subject and body when no message is open
const gmailScript = `(() => {
  const text = el => el ? (el.innerText || el.textContent || '') : '';
  const subjectEl = document.querySelector('h2.hP') || document.querySelector('.hP');
  const bodyEl = document.querySelector('.a3s.aiL') || document.querySelector("div[role='main'] .a3s");
  const fromEl = document.querySelector('.gD') || document.querySelector('[email]');
  const subject = text(subjectEl).trim();
  const body = text(bodyEl).trim();
  const from = fromEl ? (fromEl.getAttribute('email') || text(fromEl).trim()) : '';
  if (!subject && !body) return { subject: '', body: '', from: '', links: [] };
  const links = Array.from(document.querySelectorAll('.a3s.aiL a, [data-message-id] a'))
    .map(a => a.href).filter(href => href && href.startsWith('http'));
  return { subject, body, from, links };
})()`

const outlookScript = `(() => {
  const text = el => el ? (el.innerText || el.textContent || '') : '';
  const subjectEl = document.querySelector("div[role='heading'][aria-level='1']") || document.querySelector('div._3W2');
  const bodyEl = document.querySelector("div[aria-label='Message body']") || document.querySelector("div[role='main'] div[dir='auto']");
  const fromEl = document.querySelector("div[role='article'] span[role='link']") || document.querySelector('div._3t0 span');
  const subject = text(subjectEl).trim();
  const body = text(bodyEl).trim();
  const from = text(fromEl).trim();
  if (!subject && !body) return { subject: '', body: '', from: '', links: [] };
  const links = Array.from(document.querySelectorAll("div[aria-label='Message body'] a, div[role='main'] a"))
    .map(a => a.href).filter(href => href && href.startsWith('http'));
  return { subject, body, from, links };
})()`

// DetectService maps a webmail host name to its service, or "" when unsupported
func DetectService(host string) string {
	switch {
	case strings.Contains(host, "mail.google.com"):
		return ServiceGmail
	case strings.Contains(host, "outlook.live.com"), strings.Contains(host, "outlook.office.com"):
		return ServiceOutlook
	default:
		return ""
	}
}

func extractionScript(service string) (string, error) {
	switch service {
	case ServiceGmail:
		return gmailScript, nil
	case ServiceOutlook:
		return outlookScript, nil
	default:
		return "", fmt.Errorf("unsupported webmail service: %s", service)
	}
}

type webmailEmail struct {
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	From    string   `json:"from"`
	Links   []string `json:"links"`
}

// WebmailSource reads the message open in a browser tab driven through chromedp
type WebmailSource struct {
	service     string
	script      string
	tabCtx      context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	logger      *zap.Logger
}

// NewWebmailSource attaches to the browser at browserURL (a DevTools websocket URL),
// or launches a visible local browser when browserURL is empty
func NewWebmailSource(ctx context.Context, service, browserURL string, logger *zap.Logger) (*WebmailSource, error) {
	script, err := extractionScript(service)
	if err != nil {
		return nil, err
	}

	var allocCtx context.Context
	var cancelAlloc context.CancelFunc
	if browserURL != "" {
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(ctx, browserURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", false))
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(ctx, opts...)
	}
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	return &WebmailSource{
		service:     service,
		script:      script,
		tabCtx:      tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		logger:      logger,
	}, nil
}

// Open navigates the tab to the webmail inbox
func (s *WebmailSource) Open() error {
	if err := chromedp.Run(s.tabCtx, chromedp.Navigate(serviceURLs[s.service])); err != nil {
		return fmt.Errorf("failed to open %s: %w", s.service, err)
	}
	s.logger.Info("Opened webmail tab", zap.String("service", s.service))
	return nil
}

// ExtractCurrent reads the open message, or returns nil when the inbox is shown
func (s *WebmailSource) ExtractCurrent(ctx context.Context) (*core.EmailData, error) {
	runCtx := s.tabCtx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(s.tabCtx, deadline)
		defer cancel()
	}

	var data webmailEmail
	if err := chromedp.Run(runCtx, chromedp.Evaluate(s.script, &data)); err != nil {
		return nil, fmt.Errorf("failed to extract %s message: %w", s.service, err)
	}
	if data.Subject == "" && data.Body == "" {
		return nil, nil
	}
	if data.Links == nil {
		data.Links = []string{}
	}
	return &core.EmailData{
		From:    data.From,
		Subject: data.Subject,
		Body:    data.Body,
		Links:   data.Links,
		Service: s.service,
	}, nil
}

// Close closes the tab and releases the browser
func (s *WebmailSource) Close() {
	s.cancelTab()
	s.cancelAlloc()
}
