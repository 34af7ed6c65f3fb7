package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/scorecard/internal/core"
)

func TestGetScoreBand(t *testing.T) {
	tests := []struct {
		score float64
		want  Tier
	}{
		{100, TierElite},
		{EliteThreshold, TierElite},
		{EliteThreshold - 0.01, TierBullish},
		{BullishThreshold, TierBullish},
		{SolidThreshold, TierSolid},
		{SolidThreshold - 0.01, TierMixed},
		{MixedThreshold, TierMixed},
		{SpeculativeThreshold, TierSpeculative},
		{SpeculativeThreshold - 0.01, TierDanger},
		{0, TierDanger},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GetScoreBand(tt.score), "score %.2f", tt.score)
	}
}

func TestThresholdsDescend(t *testing.T) {
	thresholds := []float64{EliteThreshold, BullishThreshold, SolidThreshold, MixedThreshold, SpeculativeThreshold}
	for i := 1; i < len(thresholds); i++ {
		assert.Greater(t, thresholds[i-1], thresholds[i])
	}
	assert.Len(t, Tiers(), 6)
}

func TestBandOf(t *testing.T) {
	assert.Equal(t, TierUnrated, BandOf(nil))
	v := 76.0
	assert.Equal(t, TierBullish, BandOf(&v))
}

func TestParseTier(t *testing.T) {
	tier, ok := ParseTier(" elite ")
	assert.True(t, ok)
	assert.Equal(t, TierElite, tier)

	tier, ok = ParseTier("n/a")
	assert.True(t, ok)
	assert.Equal(t, TierUnrated, tier)

	_, ok = ParseTier("great")
	assert.False(t, ok)
}

// Characterization of the default breakpoints.
func TestNormalizeRuleScore(t *testing.T) {
	tests := []struct {
		name     string
		sum, max float64
		want     float64
	}{
		{"perfect", 100, 100, 100},
		{"neutral", 0, 100, 40},
		{"half", 50, 100, 75},
		{"quarter", 25, 100, 57.5},
		{"three quarters", 75, 100, 87.5},
		{"mildly negative", -25, 100, 20},
		{"half negative", -50, 100, 0},
		{"worst", -100, 100, 0},
		{"above max clamps", 150, 100, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeRuleScore(tt.sum, tt.max)
			require.NotNil(t, got)
			assert.InDelta(t, tt.want, *got, 1e-9)
		})
	}
}

func TestNormalizeRuleScore_NothingApplicable(t *testing.T) {
	assert.Nil(t, NormalizeRuleScore(0, 0))
	assert.Nil(t, NormalizeRuleScore(5, -1))
}

func TestPolicy_Validate(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())

	tests := []struct {
		name string
		bps  []Breakpoint
	}{
		{"too few", []Breakpoint{{Ratio: 0, Score: 50}}},
		{"ratios not increasing", []Breakpoint{{Ratio: 0, Score: 0}, {Ratio: 0, Score: 100}}},
		{"scores decreasing", []Breakpoint{{Ratio: -1, Score: 60}, {Ratio: 1, Score: 40}}},
		{"score above 100", []Breakpoint{{Ratio: -1, Score: 0}, {Ratio: 1, Score: 120}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Policy{Breakpoints: tt.bps}.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrConfigInvalid))
		})
	}
}

func TestPolicy_InvalidFallsBackToDefault(t *testing.T) {
	bad := Policy{Breakpoints: []Breakpoint{{Ratio: 1, Score: 100}}}
	got := bad.Normalize(0, 10)
	require.NotNil(t, got)
	assert.Equal(t, 40.0, *got)
}

func TestPolicy_Monotonic(t *testing.T) {
	p := Policy{Breakpoints: []Breakpoint{
		{Ratio: -0.8, Score: 5},
		{Ratio: -0.2, Score: 30},
		{Ratio: 0.1, Score: 30},
		{Ratio: 0.9, Score: 95},
	}}
	require.NoError(t, p.Validate())

	prev := -1.0
	for sum := -120.0; sum <= 120; sum += 3 {
		got := p.Normalize(sum, 100)
		require.NotNil(t, got)
		assert.GreaterOrEqual(t, *got, prev)
		prev = *got
	}
}
