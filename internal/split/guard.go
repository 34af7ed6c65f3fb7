package split

import (
	"github.com/newthinker/scorecard/internal/core"
	"github.com/newthinker/scorecard/internal/finmath"
)

// YoYLag is the number of quarters between a period and its year-ago
// counterpart.
const YoYLag = 4

// GuardedChangeResult is a share-count change that has been checked for
// split artifacts. RawYoY is always the unguarded change when computable;
// ChangeYoY is nil whenever SplitSignal is set.
type GuardedChangeResult struct {
	RawYoY      *float64          `json:"rawYoY"`
	ChangeYoY   *float64          `json:"changeYoY"`
	SplitSignal *core.SplitSignal `json:"splitSignal"`
}

// ComputeShareChangeWithSplitGuard compares periods[0] against periods[4]
// (quarterly cadence). Fewer than five periods is insufficient data and
// yields an empty result.
func ComputeShareChangeWithSplitGuard(periods []core.Period, opts ...Option) GuardedChangeResult {
	return ComputeShareChange(periods, YoYLag, opts...)
}

// ComputeShareChange compares periods[0] against periods[lag] and runs both
// detectors over every supplied period, since the split may sit in any
// intervening pair. Callers that only want the lookback window scanned
// pass periods[:lag+1].
func ComputeShareChange(periods []core.Period, lag int, opts ...Option) GuardedChangeResult {
	if lag < 1 || len(periods) < lag+1 {
		return GuardedChangeResult{}
	}

	raw := finmath.PctChange(periods[0].SharesOutstanding, periods[lag].SharesOutstanding)
	result := GuardedChangeResult{RawYoY: raw, ChangeYoY: raw}

	o := resolve(opts)
	sig := detect(periods, core.SplitForward, o)
	if sig == nil {
		sig = detect(periods, core.SplitReverse, o)
	}
	if sig != nil {
		result.ChangeYoY = nil
		result.SplitSignal = sig
	}
	return result
}
