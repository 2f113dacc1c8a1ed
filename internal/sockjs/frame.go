package sockjs

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Protocol frames which carry no payload are fixed literals.
const (
	frameOpen      = "o"
	frameHeartbeat = "h"
)

// closeFrame encodes a close frame with numeric code and reason.
func closeFrame(code uint32, reason string) string {
	quoted, _ := json.Marshal(reason)
	return fmt.Sprintf("c[%d,%s]", code, quoted)
}

// encodeMessageFrame encodes messages into a single message-array frame:
// "a" followed by a JSON array. On top of standard JSON string escaping
// every code point known to be mangled by some browser transport bridge
// is escaped as \uXXXX so the frame survives JSONP and iframe transports.
func encodeMessageFrame(messages ...string) string {
	var sb strings.Builder
	sb.WriteString("a[")
	for i, message := range messages {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(quote(message))
	}
	sb.WriteByte(']')
	return sb.String()
}

// quote produces a JSON string literal with SockJS-specific extra escaping.
func quote(s string) string {
	b := make([]byte, 0, len(s)+2)
	b = append(b, '"')
	for _, r := range s {
		switch r {
		case '"':
			b = append(b, '\\', '"')
		case '\\':
			b = append(b, '\\', '\\')
		default:
			if needsEscape(r) {
				b = fmt.Appendf(b, "\\u%04x", r)
			} else {
				b = utf8.AppendRune(b, r)
			}
		}
	}
	b = append(b, '"')
	return string(b)
}

// needsEscape reports whether a rune must be \uXXXX-escaped in frames.
// The set mirrors the escaping table of the reference SockJS servers.
func needsEscape(r rune) bool {
	switch {
	case r < 0x20:
		return true
	case r >= 0x7f && r <= 0x9f:
		return true
	case r == 0xad:
		return true
	case r >= 0x600 && r <= 0x604:
		return true
	case r == 0x70f, r == 0x17b4, r == 0x17b5:
		return true
	case r >= 0x200c && r <= 0x200f:
		return true
	case r >= 0x2028 && r <= 0x202f:
		return true
	case r >= 0x2060 && r <= 0x206f:
		return true
	case r == 0xfeff:
		return true
	case r >= 0xfff0 && r <= 0xffff:
		return true
	}
	return false
}

// decodeMessageArray parses a request body expected to hold a JSON array
// of strings. An empty body yields nil without error, the caller decides
// how to report it.
func decodeMessageArray(body []byte) ([]string, error) {
	if len(body) == 0 {
		return nil, nil
	}
	var messages []string
	if err := json.Unmarshal(body, &messages); err != nil {
		return nil, fmt.Errorf("broken JSON encoding: %w", err)
	}
	return messages, nil
}

// decodeWebsocketPayload parses an inbound websocket text message which
// may be either a JSON array of strings or a single JSON string. Empty
// payloads are ignored and yield nil.
func decodeWebsocketPayload(payload []byte) ([]string, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	if payload[0] == '[' {
		return decodeMessageArray(payload)
	}
	var message string
	if err := json.Unmarshal(payload, &message); err != nil {
		return nil, fmt.Errorf("broken JSON encoding: %w", err)
	}
	return []string{message}, nil
}
