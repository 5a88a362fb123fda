package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/mikey/llm-phish-filter/internal/core"
)

func TestBuild_IncludesEmailDetails(t *testing.T) {
	email := &core.EmailData{
		From:    "boss@company.com",
		Subject: "Urgent",
		Body:    "click here",
		Links:   []string{"https://a.com", "http://b.ru"},
	}
	got := Build(email, DefaultMaxBodyChars, DefaultMaxLinks)

	for _, want := range []string{
		"From: boss@company.com\n",
		"Subject: Urgent\n",
		"Body: click here\n",
		"Links: https://a.com, http://b.ru\n",
		`"isPhishing": true or false`,
		"Only flag as phishing if there are MULTIPLE strong indicators.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuild_AppliesLimits(t *testing.T) {
	links := make([]string, 15)
	for i := range links {
		links[i] = fmt.Sprintf("https://l%d.com", i)
	}
	email := &core.EmailData{Body: strings.Repeat("é", 2500), Links: links}
	got := Build(email, 2000, 10)

	if !strings.Contains(got, "Body: "+strings.Repeat("é", 2000)+"\n") {
		t.Error("body should be cut to 2000 characters")
	}
	if strings.Contains(got, "https://l10.com") {
		t.Error("only the first 10 links should be included")
	}
	if !strings.Contains(got, "https://l9.com\n") {
		t.Error("tenth link missing")
	}
}

func TestBuild_NoLinks(t *testing.T) {
	got := Build(&core.EmailData{}, 0, 0)
	if !strings.Contains(got, "Links: \n") {
		t.Error("empty link list should render as an empty line")
	}
}
