// Package usage keeps the token and cost ledger for a single generation run.
package usage

import (
	"sort"
	"sync"
	"time"

	"github.com/Iron-Ham/scribe/internal/router"
)

// Agent names recorded in the ledger.
const (
	AgentArchitect     = "architect"
	AgentWriter        = "writer"
	AgentReviewer      = "reviewer"
	AgentImageAnalyzer = "image-analyzer"
	AgentResearch      = "research"
	AgentSlidePlanner  = "slide-planner"
)

// Entry is one recorded provider call.
type Entry struct {
	Agent        string      `json:"agent"`
	SectionTitle string      `json:"section_title,omitempty"`
	Tier         router.Tier `json:"tier"`
	InputTokens  int64       `json:"input_tokens"`
	OutputTokens int64       `json:"output_tokens"`
	Cost         float64     `json:"cost"`
}

// Totals aggregates calls, tokens and cost.
type Totals struct {
	Calls        int     `json:"calls"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	Cost         float64 `json:"cost"`
}

// TotalTokens returns input plus output tokens.
func (t Totals) TotalTokens() int64 { return t.InputTokens + t.OutputTokens }

func (t *Totals) add(e Entry) {
	t.Calls++
	t.InputTokens += e.InputTokens
	t.OutputTokens += e.OutputTokens
	t.Cost += e.Cost
}

// agentTotals is the running total for a non-writer agent.
type agentTotals struct {
	Totals
	tiers map[router.Tier]bool
}

// Recorder accepts usage entries. Tracker implements it.
type Recorder interface {
	Record(agent string, e Entry) Entry
}

// Discard is a Recorder that only derives cost.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(agent string, e Entry) Entry {
	e.Agent = agent
	if e.Cost == 0 {
		e.Cost = router.EstimateCost(e.Tier, e.InputTokens, e.OutputTokens)
	}
	return e
}

// Tracker is the run-scoped usage ledger. Writer calls are kept as separate
// entries so cost can be attributed per section; every other agent keeps a
// running total. Tracker is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	start   time.Time
	now     func() time.Time
	writers []Entry
	agents  map[string]*agentTotals
	order   []string
	total   Totals
}

var _ Recorder = (*Tracker)(nil)

// NewTracker creates an empty ledger whose elapsed clock starts now.
func NewTracker() *Tracker {
	return NewTrackerWithClock(time.Now)
}

// NewTrackerWithClock creates a ledger using now as its clock.
func NewTrackerWithClock(now func() time.Time) *Tracker {
	return &Tracker{
		start:  now(),
		now:    now,
		agents: make(map[string]*agentTotals),
	}
}

// Record adds one call to the ledger. Cost is derived from the tier when the
// entry does not carry one. The stored entry is returned.
func (t *Tracker) Record(agent string, e Entry) Entry {
	e.Agent = agent
	if e.Cost == 0 {
		e.Cost = router.EstimateCost(e.Tier, e.InputTokens, e.OutputTokens)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if agent == AgentWriter {
		t.writers = append(t.writers, e)
	} else {
		at, ok := t.agents[agent]
		if !ok {
			at = &agentTotals{tiers: make(map[router.Tier]bool)}
			t.agents[agent] = at
			t.order = append(t.order, agent)
		}
		at.add(e)
		at.tiers[e.Tier] = true
	}
	t.total.add(e)
	return e
}

// WriterEntries returns a copy of the per-section writer ledger.
func (t *Tracker) WriterEntries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.writers))
	copy(out, t.writers)
	return out
}

// AgentSummary is the total for one agent.
type AgentSummary struct {
	Agent string        `json:"agent"`
	Tiers []router.Tier `json:"tiers"`
	Totals
}

// WriterSummary breaks down writer usage. Sections counts distinct section
// titles, so a rewrite adds a call but not a section.
type WriterSummary struct {
	Sections int           `json:"sections"`
	Tiers    []router.Tier `json:"tiers"`
	Totals
}

// Summary is a point-in-time snapshot of the ledger.
type Summary struct {
	Elapsed time.Duration  `json:"elapsed"`
	Agents  []AgentSummary `json:"agents"`
	Writer  WriterSummary  `json:"writer"`
	Total   Totals         `json:"total"`
}

// Summary returns elapsed time, per-agent totals, the writer breakdown and
// the grand total. Agents appear in first-recorded order with the writer
// last.
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Summary{
		Elapsed: t.now().Sub(t.start),
		Total:   t.total,
	}

	for _, name := range t.order {
		at := t.agents[name]
		s.Agents = append(s.Agents, AgentSummary{
			Agent:  name,
			Tiers:  sortedTiers(at.tiers),
			Totals: at.Totals,
		})
	}

	writerTiers := make(map[router.Tier]bool)
	titles := make(map[string]bool)
	for _, e := range t.writers {
		s.Writer.add(e)
		writerTiers[e.Tier] = true
		if e.SectionTitle == "" || !titles[e.SectionTitle] {
			s.Writer.Sections++
			titles[e.SectionTitle] = true
		}
	}
	s.Writer.Tiers = sortedTiers(writerTiers)
	if len(t.writers) > 0 {
		s.Agents = append(s.Agents, AgentSummary{
			Agent:  AgentWriter,
			Tiers:  s.Writer.Tiers,
			Totals: s.Writer.Totals,
		})
	}
	return s
}

// sortedTiers orders tiers most expensive first.
func sortedTiers(set map[router.Tier]bool) []router.Tier {
	rank := make(map[router.Tier]int)
	for i, tier := range router.Tiers() {
		rank[tier] = i
	}
	out := make([]router.Tier, 0, len(set))
	for tier := range set {
		out = append(out, tier)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, iok := rank[out[i]]
		rj, jok := rank[out[j]]
		if iok != jok {
			return iok
		}
		if ri != rj {
			return ri < rj
		}
		return out[i] < out[j]
	})
	return out
}
