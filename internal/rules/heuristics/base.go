// Package heuristics holds the default scoring rules. Each rule reads one
// or two fields of core.Stock and maps them through a ladder of bounds to a
// score in [-10, 10].
package heuristics

import (
	"fmt"

	"github.com/newthinker/scorecard/internal/core"
	"github.com/newthinker/scorecard/internal/rules"
)

// step awards score when the metric reaches bound.
type step struct {
	bound float64
	score float64
}

// ladder scores a value against steps ordered best first. When
// higherIsBetter is false a value reaches a bound by being at or below it.
type ladder struct {
	steps          []step
	floor          float64
	higherIsBetter bool
}

func higher(floor float64, steps ...step) ladder {
	return ladder{steps: steps, floor: floor, higherIsBetter: true}
}

func lower(floor float64, steps ...step) ladder {
	return ladder{steps: steps, floor: floor}
}

func (l ladder) score(v float64) float64 {
	for _, s := range l.steps {
		if l.higherIsBetter && v >= s.bound || !l.higherIsBetter && v <= s.bound {
			return s.score
		}
	}
	return l.floor
}

func (l ladder) Bounds() []float64 {
	out := make([]float64, len(l.steps))
	for i, s := range l.steps {
		out[i] = s.bound
	}
	return out
}

// withBounds returns a copy of l with new bounds, keeping the scores. The
// bounds must keep the ladder's direction.
func (l ladder) withBounds(bounds []float64) (ladder, error) {
	if len(bounds) != len(l.steps) {
		return l, fmt.Errorf("expected %d bounds, got %d", len(l.steps), len(bounds))
	}
	for i := 1; i < len(bounds); i++ {
		if l.higherIsBetter && bounds[i] >= bounds[i-1] {
			return l, fmt.Errorf("bounds must be strictly decreasing, got %v", bounds)
		}
		if !l.higherIsBetter && bounds[i] <= bounds[i-1] {
			return l, fmt.Errorf("bounds must be strictly increasing, got %v", bounds)
		}
	}
	steps := make([]step, len(l.steps))
	for i, s := range l.steps {
		steps[i] = step{bound: bounds[i], score: s.score}
	}
	return ladder{steps: steps, floor: l.floor, higherIsBetter: l.higherIsBetter}, nil
}

// base carries the identity, weight and ladder shared by every rule.
type base struct {
	name        string
	description string
	weight      int
	ladder      ladder
}

func (b *base) Name() string        { return b.name }
func (b *base) Description() string { return b.description }
func (b *base) Weight() int         { return b.weight }

// Bounds reports the ladder bounds, best first.
func (b *base) Bounds() []float64 { return b.ladder.Bounds() }

// Init applies a weight override and a "bounds" param.
func (b *base) Init(cfg rules.Config) error {
	if cfg.Weight != 0 {
		if err := rules.ValidateWeight(cfg.Weight); err != nil {
			return fmt.Errorf("%s: %w", b.name, err)
		}
		b.weight = cfg.Weight
	}
	l, err := ladderParam(cfg.Params, "bounds", b.ladder)
	if err != nil {
		return fmt.Errorf("%s: %w", b.name, err)
	}
	b.ladder = l
	return nil
}

func ladderParam(params map[string]any, key string, l ladder) (ladder, error) {
	raw, ok := params[key]
	if !ok {
		return l, nil
	}
	bounds, err := floatSlice(raw)
	if err != nil {
		return l, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("param %s: %w", key, err))
	}
	out, err := l.withBounds(bounds)
	if err != nil {
		return l, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("param %s: %w", key, err))
	}
	return out, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func floatSlice(raw any) ([]float64, error) {
	switch vs := raw.(type) {
	case []float64:
		return vs, nil
	case []any:
		out := make([]float64, len(vs))
		for i, v := range vs {
			f, ok := toFloat(v)
			if !ok {
				return nil, fmt.Errorf("element %d is %T, want number", i, v)
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, fmt.Errorf("got %T, want list of numbers", raw)
	}
}

func intParam(params map[string]any, key string, def int) (int, error) {
	raw, ok := params[key]
	if !ok {
		return def, nil
	}
	f, ok := toFloat(raw)
	if !ok || f != float64(int(f)) {
		return def, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("param %s: got %v, want integer", key, raw))
	}
	return int(f), nil
}

// exemptFinancials marks balance-sheet and cash-flow rules not applicable
// to banks and insurers. Fintechs are scored like technology companies.
func exemptFinancials(s core.Stock, what string) (rules.Result, bool) {
	if s.SectorBucket == core.SectorFinancials && !s.IsFintech {
		return rules.NotApplicable("%s is not meaningful for financials", what), true
	}
	return rules.Result{}, false
}

type unit int

const (
	unitPercent unit = iota
	unitMultiple
	unitYears
	unitDays
)

func format(v float64, u unit) string {
	switch u {
	case unitPercent:
		return fmt.Sprintf("%.1f%%", v)
	case unitMultiple:
		return fmt.Sprintf("%.1fx", v)
	case unitYears:
		return fmt.Sprintf("%.1f years", v)
	default:
		return fmt.Sprintf("%.0f days", v)
	}
}

// MetricRule scores a single optional metric through a ladder.
type MetricRule struct {
	base
	label  string
	unit   unit
	metric func(core.Stock) *float64
	gate   func(core.Stock) (rules.Result, bool)
}

// Evaluate implements rules.Rule.
func (r *MetricRule) Evaluate(s core.Stock) rules.Result {
	if r.gate != nil {
		if res, stop := r.gate(s); stop {
			return res
		}
	}
	v := r.metric(s)
	if v == nil {
		return rules.Missing("%s unavailable", r.label)
	}
	return rules.Scored(r.ladder.score(*v), "%s %s", r.label, format(*v, r.unit))
}

func financialsGate(what string) func(core.Stock) (rules.Result, bool) {
	return func(s core.Stock) (rules.Result, bool) {
		return exemptFinancials(s, what)
	}
}
