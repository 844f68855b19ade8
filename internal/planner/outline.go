package planner

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Iron-Ham/scribe/internal/document"
	"github.com/Iron-Ham/scribe/internal/router"
)

// Outline limits. Over-long outlines are trimmed from the tail.
const (
	MaxTopLevel  = 10
	MaxLeaves    = 30
	MaxDepth     = 3
	DefaultWords = 1000
	MinWords     = 200
)

// flexInt accepts a JSON number or a numeric string ("800", "800 words").
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*f = 0
		return nil
	}
	fields := strings.Fields(strings.ReplaceAll(s, ",", ""))
	if len(fields) > 0 {
		if v, err := strconv.Atoi(fields[0]); err == nil {
			*f = flexInt(v)
			return nil
		}
	}
	*f = 0
	return nil
}

// rawNode accepts the field names models commonly use for outline nodes.
type rawNode struct {
	Title          string    `json:"title"`
	Heading        string    `json:"heading"`
	EstimatedWords flexInt   `json:"estimated_words"`
	WordCount      flexInt   `json:"word_count"`
	Requirements   string    `json:"requirements"`
	Description    string    `json:"description"`
	KeyPoints      []string  `json:"key_points"`
	Priority       string    `json:"priority"`
	Importance     string    `json:"importance"`
	Subsections    []rawNode `json:"subsections"`
	Children       []rawNode `json:"children"`
}

type rawOutline struct {
	Title    string    `json:"title"`
	Sections []rawNode `json:"sections"`
	Outline  *struct {
		Title    string    `json:"title"`
		Sections []rawNode `json:"sections"`
	} `json:"outline"`
}

// toOutline converts the decoded model output, unwrapping {"outline": {...}}.
func (r rawOutline) toOutline() *document.Outline {
	title, sections := r.Title, r.Sections
	if len(sections) == 0 && r.Outline != nil {
		title, sections = r.Outline.Title, r.Outline.Sections
		if title == "" {
			title = r.Title
		}
	}

	o := &document.Outline{Title: strings.TrimSpace(title)}
	for _, rn := range sections {
		if node := rn.toNode(1); node != nil {
			o.Sections = append(o.Sections, node)
		}
	}
	return o
}

func (rn rawNode) toNode(depth int) *document.OutlineNode {
	title := strings.TrimSpace(rn.Title)
	if title == "" {
		title = strings.TrimSpace(rn.Heading)
	}
	if title == "" {
		return nil
	}

	words := int(rn.EstimatedWords)
	if words == 0 {
		words = int(rn.WordCount)
	}
	req := strings.TrimSpace(rn.Requirements)
	if req == "" {
		req = strings.TrimSpace(rn.Description)
	}
	if len(rn.KeyPoints) > 0 {
		req = joinNonEmpty(req, "Key points: "+strings.Join(rn.KeyPoints, "; "))
	}
	priority := rn.Priority
	if priority == "" {
		priority = rn.Importance
	}

	node := &document.OutlineNode{
		Title:          title,
		EstimatedWords: words,
		Requirements:   req,
		Priority:       document.Priority(strings.ToLower(strings.TrimSpace(priority))),
	}

	children := rn.Subsections
	if len(children) == 0 {
		children = rn.Children
	}
	if depth >= MaxDepth {
		// Too deep to write separately; fold the headings into the leaf.
		var titles []string
		for _, c := range children {
			if t := strings.TrimSpace(c.Title + c.Heading); t != "" {
				titles = append(titles, t)
			}
		}
		if len(titles) > 0 {
			node.Requirements = joinNonEmpty(node.Requirements, "Cover: "+strings.Join(titles, ", "))
		}
		return node
	}
	for _, c := range children {
		if child := c.toNode(depth + 1); child != nil {
			node.Children = append(node.Children, child)
		}
	}
	return node
}

func joinNonEmpty(a, b string) string {
	if a == "" {
		return b
	}
	return a + "\n" + b
}

// Normalize enforces the outline limits in place: at most MaxTopLevel
// top-level sections, at most MaxLeaves leaves counted in document order,
// and a word target on every leaf.
func Normalize(o *document.Outline) {
	if len(o.Sections) > MaxTopLevel {
		o.Sections = o.Sections[:MaxTopLevel]
	}
	remaining := MaxLeaves
	o.Sections = trimLeaves(o.Sections, &remaining)
	backfillWords(o.Sections)
}

// trimLeaves keeps leaves while remaining allows and drops branches left
// without children.
func trimLeaves(nodes []*document.OutlineNode, remaining *int) []*document.OutlineNode {
	var kept []*document.OutlineNode
	for _, n := range nodes {
		if *remaining == 0 {
			break
		}
		if n.IsLeaf() {
			kept = append(kept, n)
			*remaining--
			continue
		}
		n.Children = trimLeaves(n.Children, remaining)
		if len(n.Children) > 0 {
			kept = append(kept, n)
		}
	}
	return kept
}

func backfillWords(nodes []*document.OutlineNode) {
	for _, n := range nodes {
		if n.IsLeaf() {
			if n.EstimatedWords < MinWords {
				n.EstimatedWords = DefaultWords
			}
			continue
		}
		backfillWords(n.Children)
	}
}

// FallbackOutline is the single-section outline used when planning output
// cannot be decoded.
func FallbackOutline(brief document.Brief) *document.Outline {
	title := strings.TrimSpace(brief.Title)
	if title == "" {
		title = "Document"
	}
	return &document.Outline{
		Title: title,
		Sections: []*document.OutlineNode{{
			Title:          title,
			EstimatedWords: DefaultWords,
			Requirements:   strings.TrimSpace(brief.Idea),
		}},
		Fallback: true,
	}
}

// Flatten returns the outline leaves as tasks in document order. IDs are
// dotted positions ("2.1.3").
func Flatten(o *document.Outline) []document.SectionTask {
	var tasks []document.SectionTask
	var walk func(nodes []*document.OutlineNode, prefix string, level int, parent string)
	walk = func(nodes []*document.OutlineNode, prefix string, level int, parent string) {
		for i, n := range nodes {
			id := strconv.Itoa(i + 1)
			if prefix != "" {
				id = prefix + "." + id
			}
			if !n.IsLeaf() {
				walk(n.Children, id, level+1, id)
				continue
			}
			tasks = append(tasks, document.SectionTask{
				ID:             id,
				Title:          n.Title,
				Level:          level,
				Parent:         parent,
				Priority:       n.Priority,
				EstimatedWords: n.EstimatedWords,
				Requirements:   n.Requirements,
			})
		}
	}
	walk(o.Sections, "", 1, "")
	return tasks
}

// Route fills importance, tier and budget on every task.
func Route(tasks []document.SectionTask, proMode bool) {
	for i := range tasks {
		r := router.Decide(tasks[i].Title, i, len(tasks), proMode)
		tasks[i].Importance = r.Importance
		tasks[i].Tier = r.Tier
		tasks[i].Budget = r.Budget
	}
}

// Describe renders the outline as an indented list for logs and prompts.
func Describe(o *document.Outline) string {
	var b strings.Builder
	var walk func(nodes []*document.OutlineNode, depth int)
	walk = func(nodes []*document.OutlineNode, depth int) {
		for _, n := range nodes {
			fmt.Fprintf(&b, "%s- %s\n", strings.Repeat("  ", depth), n.Title)
			walk(n.Children, depth+1)
		}
	}
	walk(o.Sections, 0)
	return b.String()
}
