package filter

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// header is a single header field to prepend to a message
type header struct {
	name  string
	value string
}

var headerDecoder = &mime.WordDecoder{
	CharsetReader: func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
		}
		return enc.NewDecoder().Reader(input), nil
	},
}

// decodeEncodedHeader decodes RFC 2047 encoded words in a header value
func decodeEncodedHeader(value string) (string, error) {
	return headerDecoder.DecodeHeader(value)
}

// encodeHeaderValue folds a value onto one line and encodes it when it is not ASCII
func encodeHeaderValue(value string) string {
	value = strings.Join(strings.Fields(value), " ")
	return mime.QEncoding.Encode("utf-8", value)
}

// splitMessage separates the raw header block from the body. ok is false when
// the message has no header/body separator.
func splitMessage(raw []byte) (head, body []byte, ok bool) {
	if idx := bytes.Index(raw, []byte("\r\n\r\n")); idx != -1 {
		return raw[:idx], raw[idx+4:], true
	}
	if idx := bytes.Index(raw, []byte("\n\n")); idx != -1 {
		return raw[:idx], raw[idx+2:], true
	}
	return raw, nil, false
}

// headerValue returns the unfolded value of the first header named name
func headerValue(head []byte, name string) string {
	var value strings.Builder
	found := false
	for _, line := range headerLines(head) {
		if isContinuation(line) {
			if found {
				value.WriteString(" ")
				value.WriteString(strings.TrimSpace(line))
			}
			continue
		}
		if found {
			break
		}
		key, rest, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(key), name) {
			found = true
			value.WriteString(strings.TrimSpace(rest))
		}
	}
	return value.String()
}

// rewriteMessage prepends headers to a message and removes every existing field
// named in drop, continuation lines included. The body is kept byte for byte.
func rewriteMessage(raw []byte, prepend []header, drop []string) []byte {
	head, body, ok := splitMessage(raw)

	var out bytes.Buffer
	out.Grow(len(raw) + 256)
	for _, h := range prepend {
		fmt.Fprintf(&out, "%s: %s\r\n", h.name, h.value)
	}

	skipping := false
	for _, line := range headerLines(head) {
		if !isContinuation(line) {
			key, _, _ := strings.Cut(line, ":")
			skipping = containsFold(drop, strings.TrimSpace(key))
		}
		if skipping {
			continue
		}
		out.WriteString(line)
		out.WriteString("\r\n")
	}

	out.WriteString("\r\n")
	if ok {
		out.Write(body)
	}
	return out.Bytes()
}

func headerLines(head []byte) []string {
	if len(head) == 0 {
		return nil
	}
	lines := strings.Split(string(head), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

func isContinuation(line string) bool {
	return len(line) > 0 && (line[0] == ' ' || line[0] == '\t')
}

func containsFold(names []string, name string) bool {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}
