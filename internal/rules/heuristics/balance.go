package heuristics

import (
	"fmt"

	"github.com/newthinker/scorecard/internal/core"
	"github.com/newthinker/scorecard/internal/rules"
)

// DebtToEquity penalizes leverage. Not applicable to financials unless the
// company is a fintech.
type DebtToEquity struct {
	base
}

func NewDebtToEquity() *DebtToEquity {
	return &DebtToEquity{base{
		name:        "debt_to_equity",
		description: "Total debt over shareholders' equity",
		weight:      6,
		ladder:      lower(-10, step{0.3, 10}, step{0.7, 5}, step{1.5, 0}, step{3, -5}),
	}}
}

func (r *DebtToEquity) Evaluate(s core.Stock) rules.Result {
	if res, stop := exemptFinancials(s, "debt to equity"); stop {
		return res
	}
	fp := s.FinancialPosition
	if fp.DebtToEquity == nil {
		if fp.TotalEquity != nil && *fp.TotalEquity <= 0 && fp.TotalDebt != nil && *fp.TotalDebt > 0 {
			return rules.Scored(rules.MinRuleScore, "negative equity with outstanding debt")
		}
		return rules.Missing("debt to equity unavailable")
	}
	return rules.Scored(r.ladder.score(*fp.DebtToEquity), "debt to equity %s", format(*fp.DebtToEquity, unitMultiple))
}

// NetDebtToFCF measures how many years of free cash flow would repay net
// debt.
type NetDebtToFCF struct {
	base
}

func NewNetDebtToFCF() *NetDebtToFCF {
	return &NetDebtToFCF{base{
		name:        "net_debt_to_fcf",
		description: "Years of free cash flow needed to repay net debt",
		weight:      6,
		ladder:      lower(-6, step{1, 8}, step{3, 4}, step{5, 0}),
	}}
}

func (r *NetDebtToFCF) Evaluate(s core.Stock) rules.Result {
	if res, stop := exemptFinancials(s, "net debt to FCF"); stop {
		return res
	}
	fp := s.FinancialPosition
	if fp.NetDebt == nil {
		return rules.Missing("net debt unavailable")
	}
	if *fp.NetDebt <= 0 {
		return rules.Scored(rules.MaxRuleScore, "net cash position")
	}
	if fp.NetDebtToFCFYears == nil {
		if s.Cash.FreeCashFlow == nil {
			return rules.Missing("free cash flow unavailable")
		}
		return rules.Scored(rules.MinRuleScore, "net debt with no positive free cash flow")
	}
	return rules.Scored(r.ladder.score(*fp.NetDebtToFCFYears), "net debt is %s of FCF", format(*fp.NetDebtToFCFYears, unitYears))
}

// CashRunway scores how long cash lasts at the current burn. Cash-burning
// biotechs live or die by it, so the rule weighs more for them.
type CashRunway struct {
	base
	biotechWeight int
}

func NewCashRunway() *CashRunway {
	return &CashRunway{
		base: base{
			name:        "cash_runway",
			description: "Years of cash at the current free cash flow burn",
			weight:      5,
			ladder:      higher(-10, step{3, 6}, step{2, 2}, step{1, -4}),
		},
		biotechWeight: rules.MaxWeight,
	}
}

// Init also accepts a "biotech_weight" param.
func (r *CashRunway) Init(cfg rules.Config) error {
	if err := r.base.Init(cfg); err != nil {
		return err
	}
	w, err := intParam(cfg.Params, "biotech_weight", r.biotechWeight)
	if err != nil {
		return fmt.Errorf("%s: %w", r.name, err)
	}
	if err := rules.ValidateWeight(w); err != nil {
		return fmt.Errorf("%s: %w", r.name, err)
	}
	r.biotechWeight = w
	return nil
}

// WeightFor implements rules.SectorWeighted.
func (r *CashRunway) WeightFor(s core.Stock) int {
	if s.SectorBucket == core.SectorBiotechPharma {
		return r.biotechWeight
	}
	return r.weight
}

func (r *CashRunway) Evaluate(s core.Stock) rules.Result {
	fcf := s.Cash.FreeCashFlow
	if fcf == nil {
		return rules.Missing("free cash flow unavailable")
	}
	if *fcf >= 0 {
		return rules.Scored(rules.MaxRuleScore, "self-funding: free cash flow is positive")
	}
	runway := s.FinancialPosition.RunwayYears
	if runway == nil {
		return rules.Missing("cash balance unavailable")
	}
	return rules.Scored(r.ladder.score(*runway), "cash runway %s", format(*runway, unitYears))
}
