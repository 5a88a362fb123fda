// Package prompt renders the instruction sent to remote phishing scorers.
package prompt

import (
	"fmt"
	"strings"

	"github.com/mikey/llm-phish-filter/internal/core"
	"github.com/mikey/llm-phish-filter/internal/utils"
)

const (
	// DefaultMaxBodyChars is the number of body characters included in the prompt
	DefaultMaxBodyChars = 2000
	// DefaultMaxLinks is the number of links included in the prompt
	DefaultMaxLinks = 10
)

// SystemMessage is the system role message sent with every prompt
const SystemMessage = "You are a cybersecurity expert specializing in phishing detection. Respond ONLY with valid JSON."

const promptFormat = `Analyze this email for phishing indicators. Respond ONLY with a valid JSON object in this exact format (no markdown, no backticks):
{
  "isPhishing": true or false,
  "confidence": number between 0-100,
  "indicators": ["list", "of", "suspicious", "things"],
  "recommendation": "brief recommendation text"
}

Email Details:
From: %s
Subject: %s
Body: %s
Links: %s

IMPORTANT: Be conservative in flagging legitimate emails. Only flag as phishing if there are MULTIPLE strong indicators.
Always cross-check link domains against the sender's domain and the email content. Raise confidence when links go to unrelated domains, use non-HTTPS protocols, or request credentials/logins.`

// Builder renders prompts with fixed body and link limits
type Builder struct {
	textProcessor *utils.TextProcessor
	maxBodyChars  int
	maxLinks      int
}

// NewBuilder creates a new prompt builder
func NewBuilder(textProcessor *utils.TextProcessor, maxBodyChars, maxLinks int) *Builder {
	if textProcessor == nil {
		textProcessor = utils.NewTextProcessor(nil)
	}
	if maxBodyChars <= 0 {
		maxBodyChars = DefaultMaxBodyChars
	}
	if maxLinks <= 0 {
		maxLinks = DefaultMaxLinks
	}
	return &Builder{
		textProcessor: textProcessor,
		maxBodyChars:  maxBodyChars,
		maxLinks:      maxLinks,
	}
}

// Build renders the user prompt for an email
func (b *Builder) Build(email *core.EmailData) string {
	links := email.Links
	if len(links) > b.maxLinks {
		links = links[:b.maxLinks]
	}

	return fmt.Sprintf(promptFormat,
		b.textProcessor.SanitizeUTF8(email.From),
		b.textProcessor.SanitizeUTF8(email.Subject),
		b.textProcessor.ProcessText(email.Body, b.maxBodyChars),
		strings.Join(links, ", "))
}

// Build renders the user prompt with the given limits
func Build(email *core.EmailData, maxBodyChars, maxLinks int) string {
	return NewBuilder(nil, maxBodyChars, maxLinks).Build(email)
}
