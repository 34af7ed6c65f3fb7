package heuristics

import (
	"fmt"

	"github.com/newthinker/scorecard/internal/core"
	"github.com/newthinker/scorecard/internal/rules"
)

// growthSectors trade on higher sales multiples.
var growthSectors = map[string]bool{
	core.SectorTechInternet:  true,
	core.SectorBiotechPharma: true,
}

// PriceToSales scores the sales multiple against sector-aware bands.
type PriceToSales struct {
	base
	growth ladder
}

func NewPriceToSales() *PriceToSales {
	return &PriceToSales{
		base: base{
			name:        "price_to_sales",
			description: "Market cap over trailing revenue, banded by sector",
			weight:      4,
			ladder:      lower(-10, step{1, 10}, step{3, 5}, step{6, 0}, step{10, -5}),
		},
		growth: lower(-10, step{4, 10}, step{8, 5}, step{15, 0}, step{25, -5}),
	}
}

// Init also accepts "growth_bounds" for technology and biotech stocks.
func (r *PriceToSales) Init(cfg rules.Config) error {
	if err := r.base.Init(cfg); err != nil {
		return err
	}
	l, err := ladderParam(cfg.Params, "growth_bounds", r.growth)
	if err != nil {
		return fmt.Errorf("%s: %w", r.name, err)
	}
	r.growth = l
	return nil
}

func (r *PriceToSales) Evaluate(s core.Stock) rules.Result {
	if res, stop := exemptFinancials(s, "price to sales"); stop {
		return res
	}
	ps := s.ValuationRatios.PS
	if ps == nil {
		return rules.Missing("P/S unavailable")
	}
	l := r.ladder
	if growthSectors[s.SectorBucket] || s.IsFintech {
		l = r.growth
	}
	return rules.Scored(l.score(*ps), "P/S %s", format(*ps, unitMultiple))
}

// PriceToEarnings scores the earnings multiple. Loss makers have no P/E and
// are penalized rather than skipped.
type PriceToEarnings struct {
	base
	lossScore float64
}

func NewPriceToEarnings() *PriceToEarnings {
	return &PriceToEarnings{
		base: base{
			name:        "price_to_earnings",
			description: "Market cap over trailing net income",
			weight:      4,
			ladder:      lower(-10, step{15, 10}, step{25, 5}, step{40, 0}, step{60, -5}),
		},
		lossScore: -6,
	}
}

func (r *PriceToEarnings) Evaluate(s core.Stock) rules.Result {
	pe := s.ValuationRatios.PE
	if pe == nil {
		if nm := s.ProfitMargins.NetIncome; nm != nil && *nm < 0 {
			return rules.Scored(r.lossScore, "no P/E: net margin %s", format(*nm, unitPercent))
		}
		return rules.Missing("P/E unavailable")
	}
	return rules.Scored(r.ladder.score(*pe), "P/E %s", format(*pe, unitMultiple))
}

// DividendCoverage checks that dividends are paid out of free cash flow.
type DividendCoverage struct {
	base
}

func NewDividendCoverage() *DividendCoverage {
	return &DividendCoverage{base{
		name:        "dividend_coverage",
		description: "Dividends paid as a share of free cash flow",
		weight:      3,
		ladder:      lower(-8, step{50, 10}, step{75, 5}, step{100, 0}),
	}}
}

func (r *DividendCoverage) Evaluate(s core.Stock) rules.Result {
	if y := s.Dividends.Yield; y == nil || *y <= 0 {
		return rules.NotApplicable("no dividend")
	}
	payout := s.Dividends.PayoutToFCF
	if payout == nil {
		if fcf := s.Cash.FreeCashFlow; fcf != nil && *fcf <= 0 {
			return rules.Scored(rules.MinRuleScore, "dividend paid without positive free cash flow")
		}
		return rules.Missing("dividend payout unavailable")
	}
	return rules.Scored(r.ladder.score(*payout), "dividends are %s of FCF", format(*payout, unitPercent))
}
