// Package document holds the data model shared by every generation stage and
// assembles the final bundle into markdown, HTML or JSON.
package document

import (
	"time"

	"github.com/Iron-Ham/scribe/internal/router"
	"github.com/Iron-Ham/scribe/internal/usage"
)

// Brief is the immutable input to a generation run.
type Brief struct {
	Title         string `json:"title" yaml:"title"`
	Idea          string `json:"idea" yaml:"idea"`
	Category      string `json:"category,omitempty" yaml:"category"`
	CorrelationID string `json:"correlation_id,omitempty" yaml:"correlation_id"`
	// Context is extra material attached by research enrichment.
	Context string `json:"context,omitempty" yaml:"-"`
}

// Priority is the planner's own judgment of how much a section matters.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// IsHigh reports whether p is high or critical.
func (p Priority) IsHigh() bool {
	return p == PriorityHigh || p == PriorityCritical
}

// OutlineNode is one heading in the outline. Nodes without children are the
// writable leaves.
type OutlineNode struct {
	Title          string         `json:"title"`
	EstimatedWords int            `json:"estimated_words,omitempty"`
	Requirements   string         `json:"requirements,omitempty"`
	Priority       Priority       `json:"priority,omitempty"`
	Children       []*OutlineNode `json:"children,omitempty"`
}

// IsLeaf reports whether the node has no children.
func (n *OutlineNode) IsLeaf() bool { return len(n.Children) == 0 }

// Outline is the planned structure of a document.
type Outline struct {
	Title    string         `json:"title"`
	Sections []*OutlineNode `json:"sections"`
	Fallback bool           `json:"fallback,omitempty"`
}

// LeafCount returns the number of writable sections in the outline.
func (o *Outline) LeafCount() int {
	var count func(nodes []*OutlineNode) int
	count = func(nodes []*OutlineNode) int {
		n := 0
		for _, node := range nodes {
			if node.IsLeaf() {
				n++
			} else {
				n += count(node.Children)
			}
		}
		return n
	}
	return count(o.Sections)
}

// SectionTask is one unit of writer work. Importance, Tier and Budget are
// filled by the routing pass before writing starts.
type SectionTask struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Level          int               `json:"level"`
	Parent         string            `json:"parent,omitempty"`
	Priority       Priority          `json:"priority,omitempty"`
	Importance     router.Importance `json:"importance"`
	EstimatedWords int               `json:"estimated_words"`
	Requirements   string            `json:"requirements,omitempty"`
	Tier           router.Tier       `json:"tier"`
	Budget         router.Budget     `json:"budget"`
}

// SectionResult is the writer output for the task at the same index.
type SectionResult struct {
	SectionID string        `json:"section_id"`
	Title     string        `json:"title"`
	Content   string        `json:"content"`
	WordCount int           `json:"word_count"`
	Tier      router.Tier   `json:"tier"`
	Model     string        `json:"model,omitempty"`
	Usage     usage.Totals  `json:"usage"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
	Revision  int           `json:"revision"`
}

// Verdict is the reviewer's decision for a section.
type Verdict string

const (
	VerdictPass   Verdict = "pass"
	VerdictRevise Verdict = "revise"
	VerdictFail   Verdict = "fail"
)

// SubScores are the reviewer's per-dimension scores.
type SubScores struct {
	Structure int `json:"structure"`
	Style     int `json:"style"`
	Content   int `json:"content"`
	Emphasis  int `json:"emphasis"`
}

// Sum returns the total of all dimensions.
func (s SubScores) Sum() int { return s.Structure + s.Style + s.Content + s.Emphasis }

// ReviewRecord is the reviewer's assessment of one section.
type ReviewRecord struct {
	SectionID    string    `json:"section_id"`
	Title        string    `json:"title"`
	Index        int       `json:"index"`
	Pass         int       `json:"pass"`
	Scores       SubScores `json:"scores"`
	Overall      int       `json:"overall"`
	Verdict      Verdict   `json:"verdict"`
	Weaknesses   []string  `json:"weaknesses,omitempty"`
	Improvements []string  `json:"improvements,omitempty"`
}

// ReviewSummary reports what the quality gate did.
type ReviewSummary struct {
	Passes     int            `json:"passes"`
	Rewrites   int            `json:"rewrites"`
	Sampled    []int          `json:"sampled"`
	BestScore  float64        `json:"best_score"`
	FinalScore float64        `json:"final_score"`
	Restored   bool           `json:"restored"`
	Records    []ReviewRecord `json:"records"`
}

// Image kinds.
const (
	ImagePhoto        = "photo"
	ImageArchitecture = "architecture"
	ImageFlowchart    = "flowchart"
	ImageChart        = "chart"
	ImageWorkflow     = "workflow"
)

// Acquisition methods.
const (
	MethodSearch   = "search"
	MethodGenerate = "generate"
)

// Placements.
const (
	PlacementTop    = "top"
	PlacementMiddle = "middle"
	PlacementBottom = "bottom"
)

// Provenance tags.
const (
	SourceSearch      = "search"
	SourceGenerated   = "generated"
	SourcePlaceholder = "fallback-placeholder"
)

// ImageRecord is one image attached to a section.
type ImageRecord struct {
	Type      string   `json:"type"`
	Method    string   `json:"method"`
	Placement string   `json:"placement"`
	URL       string   `json:"url"`
	Source    string   `json:"source"`
	Caption   string   `json:"caption,omitempty"`
	Credit    string   `json:"credit,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
}

// SectionImages is the image list for the section at the same index.
type SectionImages struct {
	SectionID string        `json:"section_id"`
	Images    []ImageRecord `json:"images"`
}

// ResearchReport is the output of research enrichment.
type ResearchReport struct {
	Summary    string   `json:"summary"`
	KeyFacts   []string `json:"key_facts,omitempty"`
	MarketData []string `json:"market_data,omitempty"`
	Sources    []string `json:"sources,omitempty"`
}

// Slide is one planned presentation slide.
type Slide struct {
	Title     string   `json:"title"`
	Bullets   []string `json:"bullets,omitempty"`
	Visual    string   `json:"visual,omitempty"`
	SectionID string   `json:"section_id,omitempty"`
}

// StageStatus records how an auxiliary stage ended.
type StageStatus string

const (
	StageCompleted StageStatus = "completed"
	StageSkipped   StageStatus = "skipped"
	StageDisabled  StageStatus = "disabled"
	StageTimedOut  StageStatus = "timed_out"
)

// Metadata describes the run that produced a bundle.
type Metadata struct {
	RunID         string                   `json:"run_id"`
	CorrelationID string                   `json:"correlation_id,omitempty"`
	Category      string                   `json:"category,omitempty"`
	ProMode       bool                     `json:"pro_mode"`
	StartedAt     time.Time                `json:"started_at"`
	Elapsed       time.Duration            `json:"elapsed"`
	Stages        map[string]StageStatus   `json:"stages"`
	Usage         usage.Summary            `json:"usage"`
	Optimization  usage.OptimizationReport `json:"optimization"`
}

// Bundle is the complete output of a generation run.
type Bundle struct {
	Brief    Brief           `json:"brief"`
	Outline  *Outline        `json:"outline"`
	Tasks    []SectionTask   `json:"tasks"`
	Sections []SectionResult `json:"sections"`
	Images   []SectionImages `json:"images"`
	Reviews  ReviewSummary   `json:"reviews"`
	Research *ResearchReport `json:"research,omitempty"`
	Slides   []Slide         `json:"slides,omitempty"`
	Metadata Metadata        `json:"metadata"`
}
