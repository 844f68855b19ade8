package router

import "strconv"

// Rate is a per-million-token price pair in USD.
type Rate struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

var tierRates = map[Tier]Rate{
	TierPremiumPro: {InputPerMillion: 5.00, OutputPerMillion: 20.00},
	TierPremium:    {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	TierStandard:   {InputPerMillion: 0.15, OutputPerMillion: 0.60},
	TierEconomy:    {InputPerMillion: 0.10, OutputPerMillion: 0.40},
}

// RateFor returns the price of a tier. Unknown tiers are billed at standard.
func RateFor(tier Tier) Rate {
	if r, ok := tierRates[tier]; ok {
		return r
	}
	return tierRates[TierStandard]
}

// EstimateCost returns the USD cost of a call on tier.
func EstimateCost(tier Tier, inputTokens, outputTokens int64) float64 {
	r := RateFor(tier)
	return float64(inputTokens)*r.InputPerMillion/1_000_000 +
		float64(outputTokens)*r.OutputPerMillion/1_000_000
}

// FormatTokens formats a token count for display (e.g., "45.2K")
func FormatTokens(tokens int64) string {
	if tokens >= 1000000 {
		return strconv.FormatFloat(float64(tokens)/1000000.0, 'f', 1, 64) + "M"
	}
	if tokens >= 1000 {
		return strconv.FormatFloat(float64(tokens)/1000.0, 'f', 1, 64) + "K"
	}
	return strconv.FormatInt(tokens, 10)
}

// FormatCost formats a cost with four decimals; run costs are usually cents.
func FormatCost(cost float64) string {
	return "$" + strconv.FormatFloat(cost, 'f', 4, 64)
}
