package usage

import (
	"fmt"

	"github.com/Iron-Ham/scribe/internal/router"
)

const (
	// OutputTokenCeiling flags writer calls that produced more than this.
	OutputTokenCeiling = 2500
	// TargetRunCost is the per-run cost goal in USD.
	TargetRunCost = 0.20
)

// Status values for the cost check.
const (
	StatusOK      = "ok"
	StatusWarning = "warning"
)

// TierSpend counts writer calls and their cost for a class of tiers.
type TierSpend struct {
	Calls int     `json:"calls"`
	Cost  float64 `json:"cost"`
}

// OptimizationReport holds advisory cost signals derived from the ledger.
// Nothing in the pipeline reads it back.
type OptimizationReport struct {
	OverBudget     []Entry   `json:"over_budget,omitempty"`
	Premium        TierSpend `json:"premium"`
	Standard       TierSpend `json:"standard"`
	Suggestions    []string  `json:"suggestions,omitempty"`
	TotalCost      float64   `json:"total_cost"`
	TargetCost     float64   `json:"target_cost"`
	CostStatus     string    `json:"cost_status"`
	CostStatusNote string    `json:"cost_status_note"`
}

// OptimizationReport derives the advisory report from the current ledger.
func (t *Tracker) OptimizationReport() OptimizationReport {
	t.mu.Lock()
	defer t.mu.Unlock()

	r := OptimizationReport{
		TotalCost:  t.total.Cost,
		TargetCost: TargetRunCost,
	}

	for _, e := range t.writers {
		if e.OutputTokens > OutputTokenCeiling {
			r.OverBudget = append(r.OverBudget, e)
		}
		switch {
		case e.Tier.IsPremium():
			r.Premium.Calls++
			r.Premium.Cost += e.Cost
		case e.Tier == router.TierStandard:
			r.Standard.Calls++
			r.Standard.Cost += e.Cost
		}
	}

	if len(r.OverBudget) > 0 {
		r.Suggestions = append(r.Suggestions,
			fmt.Sprintf("%d writer call(s) exceeded %d output tokens; tighten their token budgets", len(r.OverBudget), OutputTokenCeiling))
	}

	if at, ok := t.agents[AgentImageAnalyzer]; ok {
		for tier := range at.tiers {
			if tier != router.TierEconomy {
				r.Suggestions = append(r.Suggestions,
					"image analysis ran above the economy tier; downgrade it to "+string(router.TierEconomy))
				break
			}
		}
	}

	if r.TotalCost > TargetRunCost {
		r.CostStatus = StatusWarning
		r.CostStatusNote = fmt.Sprintf("run cost %s exceeds target %s",
			router.FormatCost(r.TotalCost), router.FormatCost(TargetRunCost))
	} else {
		r.CostStatus = StatusOK
		r.CostStatusNote = fmt.Sprintf("run cost %s within target %s",
			router.FormatCost(r.TotalCost), router.FormatCost(TargetRunCost))
	}
	return r
}
