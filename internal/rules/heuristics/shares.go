package heuristics

import (
	"github.com/newthinker/scorecard/internal/core"
	"github.com/newthinker/scorecard/internal/rules"
)

// ShareDilution rewards shrinking share counts. A change suppressed by the
// split guard is not scored.
type ShareDilution struct {
	base
}

func NewShareDilution() *ShareDilution {
	return &ShareDilution{base{
		name:        "share_dilution",
		description: "Year-over-year change in shares outstanding",
		weight:      6,
		ladder:      lower(-10, step{-2, 10}, step{0, 6}, step{2, 2}, step{5, -4}),
	}}
}

func (r *ShareDilution) Evaluate(s core.Stock) rules.Result {
	st := s.ShareStats
	if st.ChangeYoYSuppressed() {
		sig := st.SplitSignal
		kind := "split"
		if sig.RatioType == core.SplitReverse {
			kind = "reverse split"
		}
		return rules.NotApplicable("likely %.0f:1 %s, share change not comparable", sig.SharesRatio, kind)
	}
	if st.ShareChangeYoY == nil {
		return rules.Missing("share count change unavailable")
	}
	return rules.Scored(r.ladder.score(*st.ShareChangeYoY), "shares outstanding %+.1f%% YoY", *st.ShareChangeYoY)
}
