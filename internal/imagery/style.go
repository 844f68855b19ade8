package imagery

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// categoryStyle is the generation prompt template for a family of document
// categories.
type categoryStyle struct {
	pattern glob.Glob
	style   string
}

var categoryStyles = []categoryStyle{
	{glob.MustCompile("{business*,startup*,pitch*,사업*,창업*}"), "clean corporate infographic, flat design, blue and white palette"},
	{glob.MustCompile("{tech*,architecture*,기술*}"), "technical diagram, blueprint style, labeled components"},
	{glob.MustCompile("{research*,*proposal*,연구*}"), "academic figure, minimal, neutral colors, clear labels"},
	{glob.MustCompile("{marketing*,brand*,campaign*,마케팅*}"), "vibrant marketing visual, bold typography, modern layout"},
}

const defaultStyle = "professional illustration, minimal, high contrast"

// StyledPrompt applies the category template to a generation prompt.
func StyledPrompt(category, kind, prompt string) string {
	style := defaultStyle
	c := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(category), " ", "_"))
	for _, cs := range categoryStyles {
		if cs.pattern.Match(c) {
			style = cs.style
			break
		}
	}
	return fmt.Sprintf("%s (%s). Style: %s. No text artifacts.", strings.TrimSpace(prompt), kind, style)
}
