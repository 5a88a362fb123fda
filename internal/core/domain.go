package core

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

var senderAddressPattern = regexp.MustCompile(`(?i)@([a-z0-9.-]+\.[a-z]{2,})`)

var (
	errNotAbsolute = errors.New("missing scheme")
	errMissingHost = errors.New("missing host")
	errInvalidPort = errors.New("invalid port")
	errInvalidIPv4 = errors.New("invalid IPv4 address")
)

// ExtractSenderDomain returns the lowercased domain of a free-form From field,
// or "" when no domain can be found.
func ExtractSenderDomain(from string) string {
	if m := senderAddressPattern.FindStringSubmatch(from); m != nil {
		return strings.ToLower(m[1])
	}

	u, err := parseAbsoluteURL(from)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// specialSchemes have a host and tolerate missing or extra slashes after the colon
var specialSchemes = map[string]struct{}{
	"http": {}, "https": {}, "ftp": {}, "ws": {}, "wss": {},
}

// parseAbsoluteURL parses raw into an absolute URL. A scheme is required, http(s)
// URLs need a host, ports must fit in 16 bits, numeric hosts are normalized to
// dotted IPv4 and internationalized hosts are converted to punycode.
func parseAbsoluteURL(raw string) (*url.URL, error) {
	u, err := url.Parse(withAuthoritySlashes(strings.TrimSpace(raw)))
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" {
		return nil, errNotAbsolute
	}
	u.Scheme = strings.ToLower(u.Scheme)

	host := strings.ToLower(u.Hostname())
	if host == "" {
		if u.Scheme == "http" || u.Scheme == "https" {
			return nil, errMissingHost
		}
		return u, nil
	}

	port := u.Port()
	if port != "" {
		if n, err := strconv.Atoi(port); err != nil || n > 65535 {
			return nil, errInvalidPort
		}
	}

	if !isASCII(host) {
		puny, err := idna.Lookup.ToASCII(host)
		if err != nil {
			return nil, err
		}
		host = puny
	}
	if _, special := specialSchemes[u.Scheme]; special && !strings.Contains(host, ":") {
		if ip, ok, err := parseIPv4Host(host); err != nil {
			return nil, err
		} else if ok {
			host = ip
		}
	}

	switch {
	case port != "":
		u.Host = net.JoinHostPort(host, port)
	case strings.Contains(host, ":"):
		u.Host = "[" + host + "]"
	default:
		u.Host = host
	}
	return u, nil
}

// withAuthoritySlashes rewrites "http:host", "http:/host" and "http:///host" to
// "http://host" for special schemes.
func withAuthoritySlashes(raw string) string {
	i := strings.Index(raw, ":")
	if i <= 0 {
		return raw
	}
	if _, ok := specialSchemes[strings.ToLower(raw[:i])]; !ok {
		return raw
	}
	return raw[:i] + "://" + strings.TrimLeft(raw[i+1:], `/\`)
}

// parseIPv4Host reports whether host is a numeric IPv4 host and returns it in
// dotted decimal form. Hex, octal and shortened forms are accepted and a single
// trailing dot is ignored. A host whose last label is numeric but which is not a
// valid address is an error.
func parseIPv4Host(host string) (string, bool, error) {
	parts := strings.Split(host, ".")
	if parts[len(parts)-1] == "" && len(parts) > 1 {
		parts = parts[:len(parts)-1]
	}
	if lastLabel := parts[len(parts)-1]; !isDigits(lastLabel) {
		if _, err := parseIPv4Number(lastLabel); err != nil {
			return "", false, nil
		}
	}
	if len(parts) > 4 {
		return "", false, errInvalidIPv4
	}

	numbers := make([]uint64, len(parts))
	for i, part := range parts {
		n, err := parseIPv4Number(part)
		if err != nil {
			return "", false, errInvalidIPv4
		}
		if i < len(parts)-1 && n > 255 {
			return "", false, errInvalidIPv4
		}
		numbers[i] = n
	}

	last := numbers[len(numbers)-1]
	if last >= 1<<(8*(5-len(numbers))) {
		return "", false, errInvalidIPv4
	}
	addr := last
	for i, n := range numbers[:len(numbers)-1] {
		addr += n << (8 * (3 - i))
	}
	return fmt.Sprintf("%d.%d.%d.%d", addr>>24, addr>>16&0xff, addr>>8&0xff, addr&0xff), true, nil
}

// parseIPv4Number parses one IPv4 label as decimal, 0x-prefixed hex or 0-prefixed octal
func parseIPv4Number(label string) (uint64, error) {
	if label == "" {
		return 0, errInvalidIPv4
	}
	base := 10
	switch {
	case len(label) >= 2 && (label[:2] == "0x" || label[:2] == "0X"):
		label, base = label[2:], 16
		if label == "" {
			return 0, nil
		}
	case len(label) >= 2 && label[0] == '0':
		label, base = label[1:], 8
	}
	return strconv.ParseUint(label, base, 32)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
