package planner

import (
	"fmt"
	"strings"

	"github.com/Iron-Ham/scribe/internal/document"
)

const systemPrompt = `You are a document architect. You design the outline of long-form
professional documents. Respond with a single JSON object and nothing else.`

const outlineFormat = `Return JSON in exactly this shape:
{
  "title": "document title",
  "sections": [
    {
      "title": "top-level heading",
      "priority": "critical|high|medium|low",
      "subsections": [
        {"title": "heading", "estimated_words": 600, "requirements": "what this part must cover", "priority": "high"}
      ]
    }
  ]
}
Use at most %d top-level sections and at most %d writable leaf sections in total.`

func buildPrompt(brief document.Brief, tmpl *Template) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document title: %s\n", brief.Title)
	if brief.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", brief.Category)
	}
	fmt.Fprintf(&b, "\nIdea:\n%s\n", strings.TrimSpace(brief.Idea))
	if brief.Context != "" {
		fmt.Fprintf(&b, "\nResearch notes:\n%s\n", strings.TrimSpace(brief.Context))
	}
	if tmpl != nil {
		fmt.Fprintf(&b, "\nFollow this structure (%s). %s\n", tmpl.Name, strings.TrimSpace(tmpl.Guidance))
		for i, heading := range tmpl.Structure {
			fmt.Fprintf(&b, "%d. %s\n", i+1, heading)
		}
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, outlineFormat, MaxTopLevel, MaxLeaves)
	return b.String()
}
