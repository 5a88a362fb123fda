package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jaytaylor/html2text"
	"github.com/jhillyerd/enmime"
	"github.com/mikey/llm-phish-filter/internal/core"
)

// ServiceMIME tags emails parsed from raw messages
const ServiceMIME = "mime"

var bareURLPattern = regexp.MustCompile(`https?://[^\s<>"'()\[\]]+`)

// ReadMessage parses a raw RFC 5322 message into the engine's email shape
func ReadMessage(r io.Reader) (*core.EmailData, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	body := strings.TrimSpace(env.Text)
	if body == "" && env.HTML != "" {
		text, err := html2text.FromString(env.HTML, html2text.Options{OmitLinks: true})
		if err != nil {
			return nil, fmt.Errorf("failed to convert HTML body: %w", err)
		}
		body = strings.TrimSpace(text)
	}

	links, err := extractLinks(env.HTML, env.Text)
	if err != nil {
		return nil, err
	}

	return &core.EmailData{
		From:    env.GetHeader("From"),
		Subject: env.GetHeader("Subject"),
		Body:    body,
		Links:   links,
		Service: ServiceMIME,
	}, nil
}

// ParseMessage parses a raw message held in memory
func ParseMessage(raw []byte) (*core.EmailData, error) {
	return ReadMessage(bytes.NewReader(raw))
}

// extractLinks collects http(s) anchors of the HTML part followed by bare URLs
// of the text part, keeping the first occurrence of each
func extractLinks(html, text string) ([]string, error) {
	seen := make(map[string]bool)
	links := []string{}
	add := func(href string) {
		href = strings.TrimSpace(href)
		if !strings.HasPrefix(href, "http") || seen[href] {
			return
		}
		seen[href] = true
		links = append(links, href)
	}

	if html != "" {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return nil, fmt.Errorf("failed to parse HTML body: %w", err)
		}
		doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			add(href)
		})
	}

	for _, href := range bareURLPattern.FindAllString(text, -1) {
		add(strings.TrimRight(href, ".,;:!?"))
	}

	return links, nil
}

// MessageSource is an EmailSource over a raw message
type MessageSource struct {
	load func() ([]byte, error)
}

// NewFileSource creates a source that reads the message at path on every extraction
func NewFileSource(path string) *MessageSource {
	return &MessageSource{load: func() ([]byte, error) {
		return os.ReadFile(path)
	}}
}

// NewBytesSource creates a source over a message held in memory
func NewBytesSource(raw []byte) *MessageSource {
	return &MessageSource{load: func() ([]byte, error) {
		return raw, nil
	}}
}

// ExtractCurrent parses the message. An empty message means no email is open.
func (s *MessageSource) ExtractCurrent(ctx context.Context) (*core.EmailData, error) {
	raw, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	return ParseMessage(raw)
}
