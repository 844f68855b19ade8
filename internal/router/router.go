// Package router decides which model tier and token budget each agent call
// uses. Everything here is a pure function of its inputs.
package router

import "strings"

// Importance classifies a section by how much it matters to the reader.
type Importance string

const (
	ImportanceCore     Importance = "core"
	ImportanceStandard Importance = "standard"
	ImportanceSimple   Importance = "simple"
)

// Tier names a model class. The concrete model behind each tier comes from
// configuration.
type Tier string

const (
	TierPremiumPro Tier = "premium-pro"
	TierPremium    Tier = "premium"
	TierStandard   Tier = "standard"
	TierEconomy    Tier = "economy"
)

// Tiers returns every tier, most expensive first.
func Tiers() []Tier {
	return []Tier{TierPremiumPro, TierPremium, TierStandard, TierEconomy}
}

// IsPremium reports whether t is one of the premium tiers.
func (t Tier) IsPremium() bool {
	return t == TierPremium || t == TierPremiumPro
}

// Budget is the generation limit handed to a writer.
type Budget struct {
	MaxOutputTokens int `json:"max_output_tokens"`
	TargetChars     int `json:"target_chars"`
}

// Route is the full routing decision for one section.
type Route struct {
	Importance Importance `json:"importance"`
	Tier       Tier       `json:"tier"`
	Budget     Budget     `json:"budget"`
}

// keywordRule pairs an importance with the title fragments that select it.
// Rules are evaluated in slice order and the first hit wins.
type keywordRule struct {
	importance Importance
	keywords   []string
}

var importanceRules = []keywordRule{
	{
		importance: ImportanceCore,
		keywords: []string{
			"시장 분석", "사업 전략", "재무", "수익 모델", "경쟁", "투자", "핵심", "가치 제안", "사업 개요",
			"market analysis", "executive summary", "strategy", "financial", "revenue",
			"competitive", "competition", "investment", "value proposition", "business model",
		},
	},
	{
		importance: ImportanceSimple,
		keywords: []string{
			"목차", "부록", "참고", "연락처", "용어", "표지", "회사 소개", "감사의 글",
			"table of contents", "appendix", "references", "bibliography", "contact",
			"glossary", "cover page", "about us", "acknowledg",
		},
	},
}

// ClassifyImportance maps a section title to an importance. The core list is
// checked before the simple list, so a title matching both is core.
func ClassifyImportance(title string) Importance {
	lower := strings.ToLower(title)
	for _, rule := range importanceRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.importance
			}
		}
	}
	return ImportanceStandard
}

// SelectWriterModel picks the writer tier for the section at index out of
// total. Simple sections always get the standard tier. Core sections and the
// first three and last two positions get premium, or premium-pro in pro mode.
func SelectWriterModel(title string, index, total int, proMode bool) Tier {
	return selectTier(ClassifyImportance(title), index, total, proMode)
}

func selectTier(imp Importance, index, total int, proMode bool) Tier {
	if imp == ImportanceSimple {
		return TierStandard
	}
	if imp == ImportanceCore || index < 3 || index >= total-2 {
		if proMode {
			return TierPremiumPro
		}
		return TierPremium
	}
	return TierStandard
}

// SelectTokenBudget returns the writer budget for a title.
func SelectTokenBudget(title string) Budget {
	return BudgetFor(ClassifyImportance(title))
}

// BudgetFor returns the writer budget for an importance.
func BudgetFor(imp Importance) Budget {
	switch imp {
	case ImportanceCore:
		return Budget{MaxOutputTokens: 2000, TargetChars: 1000}
	case ImportanceSimple:
		return Budget{MaxOutputTokens: 600, TargetChars: 300}
	default:
		return Budget{MaxOutputTokens: 1200, TargetChars: 600}
	}
}

// Decide bundles the importance, tier and budget for one section.
func Decide(title string, index, total int, proMode bool) Route {
	imp := ClassifyImportance(title)
	return Route{
		Importance: imp,
		Tier:       selectTier(imp, index, total, proMode),
		Budget:     BudgetFor(imp),
	}
}

// ArchitectModel is the tier used for outline planning.
func ArchitectModel() Tier { return TierStandard }

// ReviewerModel is the tier used by the quality gate.
func ReviewerModel() Tier { return TierStandard }

// ImageAnalyzerModel is the tier used to decide per-section imagery.
func ImageAnalyzerModel() Tier { return TierEconomy }

// ResearchModel is the tier used for research enrichment.
func ResearchModel() Tier { return TierStandard }

// SlidePlannerModel is the tier used for slide planning.
func SlidePlannerModel() Tier { return TierEconomy }
