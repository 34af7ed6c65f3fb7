package rules

import (
	"fmt"
	"strings"

	"github.com/newthinker/scorecard/internal/core"
	"github.com/newthinker/scorecard/internal/finmath"
)

// Tier is the label attached to a normalized score.
type Tier string

// Tiers from best to worst. TierUnrated is used when no rule applied.
const (
	TierElite       Tier = "ELITE"
	TierBullish     Tier = "BULLISH"
	TierSolid       Tier = "SOLID"
	TierMixed       Tier = "MIXED"
	TierSpeculative Tier = "SPECULATIVE"
	TierDanger      Tier = "DANGER"
	TierUnrated     Tier = "N/A"
)

// Minimum normalized score for each tier; anything below
// SpeculativeThreshold is DANGER.
const (
	EliteThreshold       = 90.0
	BullishThreshold     = 75.0
	SolidThreshold       = 60.0
	MixedThreshold       = 45.0
	SpeculativeThreshold = 25.0
)

// Tiers lists the rated tiers in descending order.
func Tiers() []Tier {
	return []Tier{TierElite, TierBullish, TierSolid, TierMixed, TierSpeculative, TierDanger}
}

// ParseTier accepts a tier label in any case.
func ParseTier(s string) (Tier, bool) {
	for _, t := range append(Tiers(), TierUnrated) {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, true
		}
	}
	return "", false
}

// GetScoreBand maps a normalized 0-100 score to its tier.
func GetScoreBand(score float64) Tier {
	switch {
	case score >= EliteThreshold:
		return TierElite
	case score >= BullishThreshold:
		return TierBullish
	case score >= SolidThreshold:
		return TierSolid
	case score >= MixedThreshold:
		return TierMixed
	case score >= SpeculativeThreshold:
		return TierSpeculative
	default:
		return TierDanger
	}
}

// BandOf is GetScoreBand for an optional score.
func BandOf(score *float64) Tier {
	if score == nil {
		return TierUnrated
	}
	return GetScoreBand(*score)
}

// Breakpoint maps a weighted-sum ratio (weighted sum over maximum
// achievable sum, in [-1, 1]) to a normalized score.
type Breakpoint struct {
	Ratio float64 `json:"ratio" mapstructure:"ratio"`
	Score float64 `json:"score" mapstructure:"score"`
}

// Policy is a piecewise-linear normalization. Ratios outside the first
// and last breakpoints take the end scores.
type Policy struct {
	Breakpoints []Breakpoint `json:"breakpoints"`
}

// DefaultPolicy puts a neutral aggregate (ratio 0) at 40 and a perfect one
// at 100; anything at or below half the worst case is 0.
func DefaultPolicy() Policy {
	return Policy{Breakpoints: []Breakpoint{
		{Ratio: -0.5, Score: 0},
		{Ratio: 0, Score: 40},
		{Ratio: 0.5, Score: 75},
		{Ratio: 1, Score: 100},
	}}
}

// Validate requires at least two breakpoints with strictly increasing
// ratios and non-decreasing scores inside [0, 100], which keeps the
// transform monotonic.
func (p Policy) Validate() error {
	if len(p.Breakpoints) < 2 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("normalization needs at least 2 breakpoints, got %d", len(p.Breakpoints)))
	}
	for i, bp := range p.Breakpoints {
		if bp.Score < 0 || bp.Score > 100 {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("breakpoint %d: score %.2f outside [0, 100]", i, bp.Score))
		}
		if i == 0 {
			continue
		}
		prev := p.Breakpoints[i-1]
		if bp.Ratio <= prev.Ratio {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("breakpoint %d: ratio %.3f not above %.3f", i, bp.Ratio, prev.Ratio))
		}
		if bp.Score < prev.Score {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("breakpoint %d: score %.2f below %.2f", i, bp.Score, prev.Score))
		}
	}
	return nil
}

// Normalize maps a weighted sum onto [0, 100]. It returns nil when
// maxWeightedSum is not positive, i.e. no rule was applicable. An invalid
// policy falls back to DefaultPolicy.
func (p Policy) Normalize(weightedSum, maxWeightedSum float64) *float64 {
	if maxWeightedSum <= 0 {
		return nil
	}
	if p.Validate() != nil {
		p = DefaultPolicy()
	}

	ratio := weightedSum / maxWeightedSum
	bps := p.Breakpoints
	last := len(bps) - 1

	var score float64
	switch {
	case ratio <= bps[0].Ratio:
		score = bps[0].Score
	case ratio >= bps[last].Ratio:
		score = bps[last].Score
	default:
		for i := 1; i <= last; i++ {
			if ratio <= bps[i].Ratio {
				lo, hi := bps[i-1], bps[i]
				t := (ratio - lo.Ratio) / (hi.Ratio - lo.Ratio)
				score = lo.Score + t*(hi.Score-lo.Score)
				break
			}
		}
	}
	return finmath.Ptr(finmath.Clamp(score, 0, 100))
}

// NormalizeRuleScore normalizes with DefaultPolicy.
func NormalizeRuleScore(weightedSum, maxWeightedSum float64) *float64 {
	return DefaultPolicy().Normalize(weightedSum, maxWeightedSum)
}
