// Package structured decodes JSON produced by language models. Model output
// often wraps JSON in prose or code fences, uses typographic quotes, or is
// cut off mid-object when the token budget runs out; Decode handles all three
// before giving up.
package structured

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/Iron-Ham/scribe/internal/errors"
)

var quoteReplacer = strings.NewReplacer(
	"“", `"`,
	"”", `"`,
	"„", `"`,
	"‟", `"`,
	"‘", `'`,
	"’", `'`,
	"‚", `'`,
	"‛", `'`,
	"＂", `"`,
)

var codeFencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\n?(.*?)\n?```")

// Extract isolates the JSON object in raw: typographic quotes are
// straightened, a fenced block is unwrapped, and surrounding prose before the
// first '{' and after the last '}' is dropped.
func Extract(raw string) string {
	content := quoteReplacer.Replace(raw)

	if m := codeFencePattern.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	} else if i := strings.Index(content, "```"); i != -1 {
		// Unterminated fence.
		content = content[i+3:]
		content = strings.TrimPrefix(strings.TrimPrefix(content, "json"), "JSON")
	}

	content = strings.TrimSpace(content)
	if start := strings.Index(content, "{"); start > 0 {
		content = content[start:]
	}
	if end := strings.LastIndex(content, "}"); end != -1 && end < len(content)-1 {
		// Keep a truncated tail so Repair can close it.
		if !truncatedAfter(content[end+1:]) {
			content = content[:end+1]
		}
	}
	return strings.TrimSpace(content)
}

// truncatedAfter reports whether the text after the last '}' still looks like
// JSON that was cut off rather than trailing prose.
func truncatedAfter(tail string) bool {
	tail = strings.TrimSpace(tail)
	if tail == "" {
		return false
	}
	switch tail[0] {
	case ',', ']', '"':
		return true
	}
	return false
}

// Repair closes unterminated strings, arrays and objects and drops a dangling
// trailing comma or key. It makes one pass and never reorders content.
func Repair(s string) string {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var b strings.Builder
	b.WriteString(s)
	if inString {
		if escaped {
			b.WriteByte('\\')
		}
		b.WriteByte('"')
	}
	out := trimDangling(b.String())
	for i := len(stack) - 1; i >= 0; i-- {
		out += string(stack[i])
	}
	return out
}

// trimDangling removes a trailing comma, colon, or a key with no value.
func trimDangling(s string) string {
	for {
		t := strings.TrimRight(s, " \t\r\n")
		switch {
		case strings.HasSuffix(t, ","):
			s = t[:len(t)-1]
		case strings.HasSuffix(t, ":"):
			// Drop the orphaned key as well.
			t = strings.TrimRight(t[:len(t)-1], " \t\r\n")
			if strings.HasSuffix(t, `"`) {
				if open := strings.LastIndex(t[:len(t)-1], `"`); open != -1 {
					t = t[:open]
				}
			}
			s = t
		default:
			return t
		}
	}
}

// Decode parses model output into T. It tries the extracted JSON as-is, then
// a single Repair pass. The error, when non-nil, is an *errors.ParseError.
func Decode[T any](what, raw string) (T, error) {
	var v T
	content := Extract(raw)
	if content == "" {
		return v, errors.NewParseError(what, raw, errors.ErrEmptyResponse)
	}

	err := json.Unmarshal([]byte(content), &v)
	if err == nil {
		return v, nil
	}

	var repaired T
	if rerr := json.Unmarshal([]byte(Repair(content)), &repaired); rerr == nil {
		return repaired, nil
	}
	return v, errors.NewParseError(what, raw, err)
}

// DecodeOr is Decode with a caller-supplied default used on failure. ok
// reports whether the output decoded.
func DecodeOr[T any](what, raw string, fallback T) (value T, ok bool, err error) {
	v, err := Decode[T](what, raw)
	if err != nil {
		return fallback, false, err
	}
	return v, true, nil
}
