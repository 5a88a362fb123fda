package core

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Per-rule link scores.
const (
	MalformedLinkScore    = 10
	UnsecuredLinkScore    = 15
	UnreferencedHostScore = 10
	SenderMismatchScore   = 20
	PunycodeHostScore     = 15
	HighRiskTLDScore      = 15
	RawIPHostScore        = 25
)

// SuspiciousTLDs are top-level domains treated as high risk
var SuspiciousTLDs = map[string]struct{}{
	"ru": {}, "su": {}, "cn": {}, "info": {}, "xyz": {}, "club": {},
	"support": {}, "top": {}, "click": {}, "zip": {}, "kim": {},
}

var ipv4HostPattern = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}$`)

// AnalyzeLinks scores a list of links against the lowercased email text and the
// sender domain ("" when unknown). A link that fails to parse costs a fixed score
// and never aborts the batch.
func AnalyzeLinks(links []string, emailText string, senderDomain string) LinkAnalysisOutcome {
	outcome := LinkAnalysisOutcome{Indicators: make([]string, 0)}

	for _, link := range links {
		u, err := parseLink(link)
		if err != nil {
			outcome.add("Malformed link detected (unable to parse)", MalformedLinkScore)
			continue
		}

		host := strings.ToLower(u.Hostname())
		normalizedHost := strings.TrimPrefix(host, "www.")
		hostMentioned := strings.Contains(emailText, normalizedHost)
		tld := host[strings.LastIndex(host, ".")+1:]

		if u.Scheme != "https" {
			outcome.add(fmt.Sprintf("Unsecured link detected (%s)", u.String()), UnsecuredLinkScore)
		}

		if !hostMentioned {
			outcome.add(fmt.Sprintf("Link domain %s not referenced in the email body/subject", host), UnreferencedHostScore)
		}

		if senderDomain != "" && !strings.HasSuffix(normalizedHost, senderDomain) {
			outcome.add(fmt.Sprintf("Link domain %s differs from sender domain %s", host, senderDomain), SenderMismatchScore)
		}

		if strings.Contains(host, "xn--") {
			outcome.add(fmt.Sprintf("Link uses punycode/obfuscated domain (%s)", host), PunycodeHostScore)
		}

		if _, ok := SuspiciousTLDs[tld]; ok {
			outcome.add(fmt.Sprintf("Link uses high-risk TLD .%s", tld), HighRiskTLDScore)
		}

		if ipv4HostPattern.MatchString(host) {
			outcome.add(fmt.Sprintf("Link uses raw IP address (%s)", host), RawIPHostScore)
		}
	}

	return outcome
}

func (o *LinkAnalysisOutcome) add(indicator string, score int) {
	o.Indicators = append(o.Indicators, indicator)
	o.ScoreDelta += score
}

func parseLink(link string) (*url.URL, error) {
	u, err := parseAbsoluteURL(link)
	if err != nil {
		return nil, &MalformedLinkError{Link: link, Err: err}
	}
	return u, nil
}
