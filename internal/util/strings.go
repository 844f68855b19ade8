// Package util provides small text helpers shared by the CLI, the TUI and
// error reporting.
package util

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// TruncateString truncates a string to maxLen runes, adding "..." if truncated.
// It does not account for ANSI escape codes; use TruncateANSI for styled text.
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(runes[:maxLen-3]) + "..."
}

// TruncateANSI truncates a string to maxWidth visual columns, adding "..." if
// truncated. Escape codes and wide characters are measured correctly.
func TruncateANSI(s string, maxWidth int) string {
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return "..."
	}
	// ansi.Truncate includes the tail in the final width calculation
	return ansi.Truncate(s, maxWidth, "...")
}

var slugRegex = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases s and joins its ASCII letter and digit runs with hyphens.
// Results longer than maxLen are cut back to the last whole word. Titles
// without ASCII letters or digits yield "".
func Slug(s string, maxLen int) string {
	slug := strings.Trim(slugRegex.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if maxLen > 0 && len(slug) > maxLen {
		slug = slug[:maxLen]
		if i := strings.LastIndex(slug, "-"); i > 0 {
			slug = slug[:i]
		}
		slug = strings.TrimRight(slug, "-")
	}
	return slug
}
