package rules

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/newthinker/scorecard/internal/core"
	"github.com/newthinker/scorecard/internal/finmath"
)

// Outcome is one rule's result with the rule identity and the weight it
// was evaluated with.
type Outcome struct {
	Rule   string `json:"rule"`
	Weight int    `json:"weight"`
	Result
}

// Scorecard is the aggregate of all rule outcomes for one stock.
type Scorecard struct {
	Score          *float64  `json:"score"`
	Tier           Tier      `json:"tier"`
	Results        []Outcome `json:"results"`
	WeightedSum    float64   `json:"weightedSum"`
	MaxWeightedSum float64   `json:"maxWeightedSum"`
	Applicable     int       `json:"applicable"`
}

// Engine evaluates an ordered set of rules.
type Engine struct {
	mu     sync.RWMutex
	rules  []Rule
	policy Policy
	logger *zap.Logger
}

// NewEngine creates an engine with the default normalization policy.
func NewEngine(logger ...*zap.Logger) *Engine {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Engine{
		policy: DefaultPolicy(),
		logger: l,
	}
}

// SetPolicy replaces the normalization policy.
func (e *Engine) SetPolicy(p Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.policy = p
	return nil
}

// Policy returns the normalization policy in use.
func (e *Engine) Policy() Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.policy
}

// Register appends a rule. A rule with the same name is replaced in place,
// keeping its position.
func (e *Engine) Register(r Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, existing := range e.rules {
		if existing.Name() == r.Name() {
			e.rules[i] = r
			return
		}
	}
	e.rules = append(e.rules, r)
}

// Get retrieves a rule by name.
func (e *Engine) Get(name string) (Rule, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, r := range e.rules {
		if r.Name() == name {
			return r, true
		}
	}
	return nil, false
}

// Rules returns the registered rules in evaluation order.
func (e *Engine) Rules() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Rule(nil), e.rules...)
}

// Evaluate scores a stock against every registered rule.
func (e *Engine) Evaluate(stock core.Stock) Scorecard {
	e.mu.RLock()
	rules := append([]Rule(nil), e.rules...)
	policy := e.policy
	e.mu.RUnlock()

	return evaluate(stock, rules, policy, e.logger)
}

// EvaluateRules scores a stock against the given rules with the default
// policy.
func EvaluateRules(stock core.Stock, rules []Rule) Scorecard {
	return evaluate(stock, rules, DefaultPolicy(), zap.NewNop())
}

func evaluate(stock core.Stock, rules []Rule, policy Policy, logger *zap.Logger) Scorecard {
	card := Scorecard{Results: make([]Outcome, 0, len(rules))}

	for _, r := range rules {
		out := Outcome{Rule: r.Name(), Weight: weightOf(r, stock)}
		out.Result = safeEvaluate(r, stock, logger)
		card.Results = append(card.Results, out)

		if out.Excluded() {
			continue
		}
		card.Applicable++
		card.WeightedSum += out.Score * float64(out.Weight)
		card.MaxWeightedSum += MaxRuleScore * float64(out.Weight)
	}

	card.Score = policy.Normalize(card.WeightedSum, card.MaxWeightedSum)
	card.Tier = BandOf(card.Score)
	return card
}

func weightOf(r Rule, stock core.Stock) int {
	if sw, ok := r.(SectorWeighted); ok {
		return clampWeight(sw.WeightFor(stock))
	}
	return clampWeight(r.Weight())
}

// safeEvaluate runs one rule, turning a panic or an out-of-range score
// into a well-formed result.
func safeEvaluate(r Rule, stock core.Stock, logger *zap.Logger) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			logger.Warn("rule evaluation panicked",
				zap.String("rule", r.Name()),
				zap.String("ticker", stock.Ticker),
				zap.Any("panic", p),
			)
			res = Missing("could not evaluate: %v", p)
		}
	}()

	res = r.Evaluate(stock)
	if res.Excluded() || finmath.Ptr(res.Score) == nil {
		if !res.Excluded() {
			res = Missing("%s: score is not a number", r.Name())
		}
		res.Score = 0
		return res
	}
	res.Score = finmath.Clamp(res.Score, MinRuleScore, MaxRuleScore)
	return res
}

// String renders a one-line summary.
func (c Scorecard) String() string {
	if c.Score == nil {
		return fmt.Sprintf("%s (no applicable rules)", c.Tier)
	}
	return fmt.Sprintf("%.1f %s (%d/%d rules)", *c.Score, c.Tier, c.Applicable, len(c.Results))
}
