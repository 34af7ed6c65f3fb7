// Package split recognizes stock splits and reverse splits in a series of
// reporting periods, so share-count growth metrics are not corrupted by
// non-economic share-count jumps.
//
// Periods are always newest first. Detection never mutates its input.
package split

import (
	"math"

	"github.com/newthinker/scorecard/internal/core"
	"github.com/newthinker/scorecard/internal/finmath"
)

const (
	// DefaultTolerance is the relative band around a whole split factor
	// (and around the expected EPS ratio) that still counts as a match.
	DefaultTolerance = 0.1

	// DefaultNetIncomeBand is the largest relative net-income change
	// between the two periods for the pair to be trusted as a pure split.
	DefaultNetIncomeBand = 0.35

	minSplitFactor = 2
)

// Options tunes detection.
type Options struct {
	Tolerance     float64
	NetIncomeBand float64
}

// Option mutates Options.
type Option func(*Options)

// WithTolerance overrides DefaultTolerance. Non-positive values are ignored.
func WithTolerance(tol float64) Option {
	return func(o *Options) {
		if tol > 0 {
			o.Tolerance = tol
		}
	}
}

// WithNetIncomeBand overrides DefaultNetIncomeBand. Non-positive values are
// ignored.
func WithNetIncomeBand(band float64) Option {
	return func(o *Options) {
		if band > 0 {
			o.NetIncomeBand = band
		}
	}
}

// WithOptions applies a whole Options value, keeping defaults for zero fields.
func WithOptions(opts Options) Option {
	return func(o *Options) {
		WithTolerance(opts.Tolerance)(o)
		WithNetIncomeBand(opts.NetIncomeBand)(o)
	}
}

func resolve(opts []Option) Options {
	o := Options{Tolerance: DefaultTolerance, NetIncomeBand: DefaultNetIncomeBand}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// DetectLikelySplit scans adjacent period pairs, newest first, and returns
// the first forward split it finds, or nil.
func DetectLikelySplit(periods []core.Period, opts ...Option) *core.SplitSignal {
	return detect(periods, core.SplitForward, resolve(opts))
}

// DetectLikelyReverseSplit is the mirror of DetectLikelySplit: N old shares
// consolidated into one new share.
func DetectLikelyReverseSplit(periods []core.Period, opts ...Option) *core.SplitSignal {
	return detect(periods, core.SplitReverse, resolve(opts))
}

func detect(periods []core.Period, kind core.SplitKind, o Options) *core.SplitSignal {
	if len(periods) < 2 {
		return nil
	}
	for i := 0; i+1 < len(periods); i++ {
		if sig := evaluatePair(periods[i], periods[i+1], kind, o); sig != nil {
			return sig
		}
	}
	return nil
}

// evaluatePair checks one (newer, older) pair. A pair qualifies when the
// share ratio sits near a whole factor >= 2, EPS moved by the matching
// inverse and net income stayed inside the stability band.
func evaluatePair(cur, prev core.Period, kind core.SplitKind, o Options) *core.SplitSignal {
	var ratio *float64
	if kind == core.SplitReverse {
		ratio = finmath.SafeDiv(prev.SharesOutstanding, cur.SharesOutstanding)
	} else {
		ratio = finmath.SafeDiv(cur.SharesOutstanding, prev.SharesOutstanding)
	}
	if ratio == nil || *ratio <= 0 {
		return nil
	}

	factor := math.Round(*ratio)
	if factor < minSplitFactor || !within(*ratio, factor, o.Tolerance) {
		return nil
	}

	epsRatio := finmath.SafeDiv(cur.EPSBasic, prev.EPSBasic)
	if epsRatio == nil {
		return nil
	}
	expected := 1 / factor
	if kind == core.SplitReverse {
		expected = factor
	}
	if !within(*epsRatio, expected, o.Tolerance) {
		return nil
	}

	// Unknown or unstable earnings: do not trust the jump as a split.
	niRatio := finmath.SafeDiv(cur.NetIncome, prev.NetIncome)
	if niRatio == nil || math.Abs(*niRatio-1) >= o.NetIncomeBand {
		return nil
	}

	return &core.SplitSignal{
		Flagged:     true,
		SharesRatio: factor,
		RatioType:   kind,
		PeriodEnd:   cur.PeriodEnd,
	}
}

// within reports whether v is inside the relative band tol around target.
func within(v, target, tol float64) bool {
	if target == 0 {
		return false
	}
	return math.Abs(v/target-1) <= tol
}
