package rules

import (
	"fmt"

	"github.com/newthinker/scorecard/internal/core"
)

// Rule weights are bounded to [MinWeight, MaxWeight].
const (
	MinWeight = 1
	MaxWeight = 10
)

// Rule scores are bounded to [MinRuleScore, MaxRuleScore]. The maximum
// achievable aggregate is the sum of weight x MaxRuleScore over the rules
// that were applicable.
const (
	MinRuleScore = -10.0
	MaxRuleScore = 10.0
)

// Config holds per-rule configuration.
type Config struct {
	Enabled bool
	Weight  int
	Params  map[string]any
}

// Result is the outcome of one rule against one stock. A Missing or
// NotApplicable result always carries a zero score.
type Result struct {
	Score         float64 `json:"score"`
	Message       string  `json:"message"`
	Missing       bool    `json:"missing,omitempty"`
	NotApplicable bool    `json:"notApplicable,omitempty"`
}

// Rule scores one aspect of a stock. Evaluate must be pure; the engine
// treats a panic as missing data.
type Rule interface {
	Name() string
	Description() string
	Weight() int
	Init(cfg Config) error
	Evaluate(stock core.Stock) Result
}

// SectorWeighted is implemented by rules whose weight depends on the
// stock, typically its sector bucket.
type SectorWeighted interface {
	WeightFor(stock core.Stock) int
}

// Scored builds a result with a score.
func Scored(score float64, format string, args ...any) Result {
	return Result{Score: score, Message: fmt.Sprintf(format, args...)}
}

// Missing builds a result for a stock that lacks the data the rule needs.
func Missing(format string, args ...any) Result {
	return Result{Message: fmt.Sprintf(format, args...), Missing: true}
}

// NotApplicable builds a result for a rule that does not apply to the stock.
func NotApplicable(format string, args ...any) Result {
	return Result{Message: fmt.Sprintf(format, args...), NotApplicable: true}
}

// Excluded reports whether the result is left out of the aggregate.
func (r Result) Excluded() bool {
	return r.Missing || r.NotApplicable
}

// ValidateWeight checks a configured weight.
func ValidateWeight(w int) error {
	if w < MinWeight || w > MaxWeight {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("rule weight %d outside [%d, %d]", w, MinWeight, MaxWeight))
	}
	return nil
}

func clampWeight(w int) int {
	if w < MinWeight {
		return MinWeight
	}
	if w > MaxWeight {
		return MaxWeight
	}
	return w
}
