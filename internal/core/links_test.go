package core

import (
	"reflect"
	"strings"
	"testing"
)

func TestAnalyzeLinks_MalformedLinksNeverAbort(t *testing.T) {
	links := []string{"not a url", "http://", "https://example.com/ok", "https://[::1"}
	outcome := AnalyzeLinks(links, "see example.com", "")

	malformed := 0
	for _, ind := range outcome.Indicators {
		if ind == "Malformed link detected (unable to parse)" {
			malformed++
		}
	}
	if malformed != 3 {
		t.Fatalf("expected 3 malformed indicators, got %d: %v", malformed, outcome.Indicators)
	}
	if len(outcome.Indicators) != 3 {
		t.Errorf("valid mentioned https link should add nothing, got %v", outcome.Indicators)
	}
	if outcome.ScoreDelta != 3*MalformedLinkScore {
		t.Errorf("ScoreDelta = %d, want %d", outcome.ScoreDelta, 3*MalformedLinkScore)
	}
}

func TestAnalyzeLinks_RawIPIsAdditive(t *testing.T) {
	outcome := AnalyzeLinks([]string{"http://198.51.100.7/login"}, "hello", "b.com")

	want := []string{
		"Unsecured link detected (http://198.51.100.7/login)",
		"Link domain 198.51.100.7 not referenced in the email body/subject",
		"Link domain 198.51.100.7 differs from sender domain b.com",
		"Link uses raw IP address (198.51.100.7)",
	}
	if !reflect.DeepEqual(outcome.Indicators, want) {
		t.Errorf("Indicators = %#v, want %#v", outcome.Indicators, want)
	}
	if outcome.ScoreDelta != 15+10+20+25 {
		t.Errorf("ScoreDelta = %d, want 70", outcome.ScoreDelta)
	}
}

func TestAnalyzeLinks_Rules(t *testing.T) {
	tests := []struct {
		name      string
		link      string
		text      string
		sender    string
		wantScore int
		wantParts []string
	}{
		{
			name:      "clean link on sender domain",
			link:      "https://www.company.com/account",
			text:      "visit company.com",
			sender:    "company.com",
			wantScore: 0,
		},
		{
			name:      "subdomain of sender",
			link:      "https://mail.company.com/",
			text:      "mail.company.com",
			sender:    "company.com",
			wantScore: 0,
		},
		{
			name:      "suffix match is not a boundary match",
			link:      "https://evilcompany.com/",
			text:      "evilcompany.com",
			sender:    "company.com",
			wantScore: 0,
		},
		{
			name:      "unknown sender skips mismatch",
			link:      "https://other.org/",
			text:      "other.org",
			sender:    "",
			wantScore: 0,
		},
		{
			name:      "not mentioned",
			link:      "https://other.org/",
			text:      "nothing here",
			sender:    "",
			wantScore: UnreferencedHostScore,
			wantParts: []string{"not referenced"},
		},
		{
			name:      "high risk tld and mismatch",
			link:      "https://company-secure.xyz/login",
			text:      "company-secure.xyz",
			sender:    "company.com",
			wantScore: SenderMismatchScore + HighRiskTLDScore,
			wantParts: []string{"differs from sender domain company.com", "high-risk TLD .xyz"},
		},
		{
			name:      "punycode host",
			link:      "https://xn--pple-43d.com/",
			text:      "xn--pple-43d.com",
			sender:    "",
			wantScore: PunycodeHostScore,
			wantParts: []string{"punycode/obfuscated"},
		},
		{
			name:      "unicode host is converted to punycode",
			link:      "https://bücher.example/",
			text:      "xn--bcher-kva.example",
			sender:    "",
			wantScore: PunycodeHostScore,
			wantParts: []string{"xn--bcher-kva.example"},
		},
		{
			name:      "plain http",
			link:      "http://company.com/",
			text:      "company.com",
			sender:    "company.com",
			wantScore: UnsecuredLinkScore,
			wantParts: []string{"Unsecured link detected"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := AnalyzeLinks([]string{tt.link}, tt.text, tt.sender)
			if outcome.ScoreDelta != tt.wantScore {
				t.Errorf("ScoreDelta = %d, want %d (indicators %v)", outcome.ScoreDelta, tt.wantScore, outcome.Indicators)
			}
			joined := strings.Join(outcome.Indicators, "\n")
			for _, part := range tt.wantParts {
				if !strings.Contains(joined, part) {
					t.Errorf("indicators %v missing %q", outcome.Indicators, part)
				}
			}
		})
	}
}

func TestAnalyzeLinks_OrderFollowsLinksThenRules(t *testing.T) {
	outcome := AnalyzeLinks([]string{"bad link", "http://x.ru/"}, "", "")

	want := []string{
		"Malformed link detected (unable to parse)",
		"Unsecured link detected (http://x.ru/)",
		"Link domain x.ru not referenced in the email body/subject",
		"Link uses high-risk TLD .ru",
	}
	if !reflect.DeepEqual(outcome.Indicators, want) {
		t.Errorf("Indicators = %#v, want %#v", outcome.Indicators, want)
	}
}

func TestAnalyzeLinks_Empty(t *testing.T) {
	outcome := AnalyzeLinks(nil, "anything", "a.com")
	if outcome.ScoreDelta != 0 || len(outcome.Indicators) != 0 {
		t.Errorf("expected empty outcome, got %+v", outcome)
	}
}

func TestAnalyzeLinks_BrowserStyleHosts(t *testing.T) {
	outcome := AnalyzeLinks([]string{"http://example.com:99999/"}, "example.com", "")
	if outcome.ScoreDelta != MalformedLinkScore {
		t.Errorf("out of range port: ScoreDelta = %d, want %d (%v)", outcome.ScoreDelta, MalformedLinkScore, outcome.Indicators)
	}

	for _, link := range []string{"http://0x7f.0.0.1/", "http://1.2.3.4./"} {
		outcome := AnalyzeLinks([]string{link}, "", "")
		found := false
		for _, ind := range outcome.Indicators {
			if strings.HasPrefix(ind, "Link uses raw IP address") {
				found = true
			}
		}
		if !found {
			t.Errorf("%s: expected raw IP indicator, got %v", link, outcome.Indicators)
		}
	}
}
