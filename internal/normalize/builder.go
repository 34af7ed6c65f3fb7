// Package normalize turns a raw collector view-model into the canonical
// core.Stock consumed by the rules engine.
//
// Every derived value degrades to nil when an input is missing or a
// division is undefined; nothing here returns an error or panics on
// partial data.
package normalize

import (
	"math"
	"strings"
	"time"

	"github.com/newthinker/scorecard/internal/core"
	"github.com/newthinker/scorecard/internal/finmath"
	"github.com/newthinker/scorecard/internal/split"
)

const (
	quarterlyYoYLag  = 4
	quarterlyCAGRLag = 12
	annualYoYLag     = 1
	annualCAGRLag    = 3
	cagrYears        = 3

	// taxRate approximates NOPAT for ROIC.
	taxRate = 0.21
)

// Options tunes normalization.
type Options struct {
	Split           split.Options
	FreshnessWindow time.Duration
}

// Option configures BuildStockForRules.
type Option func(*Options)

// WithSplitOptions sets the split detector policy used by the share guard.
func WithSplitOptions(o split.Options) Option {
	return func(opts *Options) {
		opts.Split = o
	}
}

// WithFreshnessWindow overrides DefaultFreshnessWindow.
func WithFreshnessWindow(d time.Duration) Option {
	return func(opts *Options) {
		if d > 0 {
			opts.FreshnessWindow = d
		}
	}
}

// flows are the income and cash-flow figures for one basis.
type flows struct {
	revenue, grossProfit, operatingIncome, netIncome *float64
	operatingCashFlow, capex, freeCashFlow          *float64
	dividendsPaid, shareRepurchase, eps             *float64
}

func flowsFromTTM(t *TTM) flows {
	return flows{
		revenue:           t.Revenue,
		grossProfit:       t.GrossProfit,
		operatingIncome:   t.OperatingIncome,
		netIncome:         t.NetIncome,
		operatingCashFlow: t.OperatingCashFlow,
		capex:             t.Capex,
		freeCashFlow:      firstFCF(t.FreeCashFlow, t.OperatingCashFlow, t.Capex),
		dividendsPaid:     t.DividendsPaid,
		shareRepurchase:   t.ShareRepurchase,
		eps:               t.EPS,
	}
}

func flowsFromPeriod(p core.Period) flows {
	return flows{
		revenue:           p.Revenue,
		grossProfit:       p.GrossProfit,
		operatingIncome:   p.OperatingIncome,
		netIncome:         p.NetIncome,
		operatingCashFlow: p.OperatingCashFlow,
		capex:             p.Capex,
		freeCashFlow:      firstFCF(nil, p.OperatingCashFlow, p.Capex),
		dividendsPaid:     p.DividendsPaid,
		shareRepurchase:   p.ShareRepurchase,
		eps:               p.EPSBasic,
	}
}

// flowsFromQuarters sums the four newest quarters field by field. A field
// missing from any of the four stays nil.
func flowsFromQuarters(qs []core.Period) flows {
	if len(qs) < 4 {
		return flows{}
	}
	qs = qs[:4]
	sum := func(get func(core.Period) *float64) *float64 {
		vals := make([]*float64, len(qs))
		for i, q := range qs {
			vals[i] = get(q)
		}
		return finmath.Sum(vals...)
	}
	f := flows{
		revenue:           sum(func(p core.Period) *float64 { return p.Revenue }),
		grossProfit:       sum(func(p core.Period) *float64 { return p.GrossProfit }),
		operatingIncome:   sum(func(p core.Period) *float64 { return p.OperatingIncome }),
		netIncome:         sum(func(p core.Period) *float64 { return p.NetIncome }),
		operatingCashFlow: sum(func(p core.Period) *float64 { return p.OperatingCashFlow }),
		capex:             sum(func(p core.Period) *float64 { return p.Capex }),
		dividendsPaid:     sum(func(p core.Period) *float64 { return p.DividendsPaid }),
		shareRepurchase:   sum(func(p core.Period) *float64 { return p.ShareRepurchase }),
		eps:               sum(func(p core.Period) *float64 { return p.EPSBasic }),
	}
	f.freeCashFlow = firstFCF(nil, f.operatingCashFlow, f.capex)
	return f
}

// merge fills the nil fields of f from g.
func (f flows) merge(g flows) flows {
	return flows{
		revenue:           finmath.First(f.revenue, g.revenue),
		grossProfit:       finmath.First(f.grossProfit, g.grossProfit),
		operatingIncome:   finmath.First(f.operatingIncome, g.operatingIncome),
		netIncome:         finmath.First(f.netIncome, g.netIncome),
		operatingCashFlow: finmath.First(f.operatingCashFlow, g.operatingCashFlow),
		capex:             finmath.First(f.capex, g.capex),
		freeCashFlow:      finmath.First(f.freeCashFlow, g.freeCashFlow),
		dividendsPaid:     finmath.First(f.dividendsPaid, g.dividendsPaid),
		shareRepurchase:   finmath.First(f.shareRepurchase, g.shareRepurchase),
		eps:               finmath.First(f.eps, g.eps),
	}
}

// firstFCF prefers a reported free cash flow, else OCF less capex. Capex
// is reported with either sign depending on the source.
func firstFCF(reported, ocf, capex *float64) *float64 {
	if reported != nil {
		return reported
	}
	return finmath.Sub(ocf, finmath.Abs(capex))
}

// input is the resolved view of a ViewModel for one build.
type input struct {
	series  []core.Period
	latest  *core.Period
	yoyLag  int
	cagrLag int
	basis   core.Basis

	// margin is the basis for margins; annual is a twelve-month view used
	// for valuation, returns and cash ratios.
	margin flows
	annual flows

	snap Snapshot
}

func resolveInput(vm ViewModel) input {
	in := input{basis: core.BasisNone}
	if vm.Snapshot != nil {
		in.snap = *vm.Snapshot
	}

	if vm.AnnualMode {
		in.series = vm.AnnualSeries
		in.yoyLag, in.cagrLag = annualYoYLag, annualCAGRLag
		if len(in.series) > 0 {
			in.basis = core.BasisAnnual
			in.margin = flowsFromPeriod(in.series[0])
			in.annual = in.margin
		}
	} else {
		in.series = vm.QuarterlySeries
		in.yoyLag, in.cagrLag = quarterlyYoYLag, quarterlyCAGRLag
		summed := flowsFromQuarters(in.series)
		switch {
		case vm.TTM != nil:
			in.basis = core.BasisTTM
			in.margin = flowsFromTTM(vm.TTM)
			in.annual = in.margin.merge(summed)
		case len(in.series) > 0:
			in.basis = core.BasisQuarterly
			in.margin = flowsFromPeriod(in.series[0])
			in.annual = summed
		}
	}

	if len(in.series) > 0 {
		in.latest = &in.series[0]
	}
	return in
}

// lagged returns the period lag steps back, or nil when the series is too
// short.
func (in input) lagged(lag int) *core.Period {
	if lag < 1 || len(in.series) <= lag {
		return nil
	}
	return &in.series[lag]
}

// field reads an optional field from an optional period.
func field(p *core.Period, get func(core.Period) *float64) *float64 {
	if p == nil {
		return nil
	}
	return get(*p)
}

func window(series []core.Period, n int) []core.Period {
	if len(series) > n {
		return series[:n]
	}
	return series
}

func pct(p *float64) *float64 { return finmath.Scale(p, 100) }

// BuildStockForRules maps a view-model onto the canonical Stock. It is a
// pure function of its arguments: the series are only read, and the same
// inputs always yield the same Stock.
func BuildStockForRules(vm ViewModel, opts ...Option) core.Stock {
	o := Options{FreshnessWindow: DefaultFreshnessWindow}
	for _, opt := range opts {
		opt(&o)
	}

	in := resolveInput(vm)
	s := core.Stock{
		Ticker:       strings.ToUpper(strings.TrimSpace(vm.Ticker)),
		CompanyName:  strings.TrimSpace(vm.CompanyName),
		Sector:       strings.TrimSpace(vm.Sector),
		SectorBucket: ResolveSectorBucket(vm.Sector),
		IsFintech:    IsFintech(vm.Ticker, vm.CompanyName),
	}

	s.FinancialPosition = buildPosition(in)
	s.ShareStats = buildShares(in, o)
	s.MarketCap = marketCap(in, s.ShareStats.SharesOutstanding)
	s.ProfitMargins = buildMargins(in)
	s.Growth = buildGrowth(in)
	s.ValuationRatios = buildValuation(in, s.MarketCap)
	s.Returns = buildReturns(in)
	s.Cash = core.CashFlow{
		CapexToRevenue:    finmath.CalcMargin(finmath.Abs(in.annual.capex), in.annual.revenue),
		OperatingCashFlow: in.annual.operatingCashFlow,
		FreeCashFlow:      in.annual.freeCashFlow,
	}
	s.Dividends = buildDividends(in, s.MarketCap)
	s.ShareStats.BuybackRatio, s.ShareStats.ShareholderReturnRatio = shareholderReturns(in, s.MarketCap)
	s.DataQuality = buildQuality(in, vm.AsOf, o.FreshnessWindow)

	return s
}

func buildMargins(in input) core.ProfitMargins {
	m := in.margin
	pm := core.ProfitMargins{
		GrossMargin:     finmath.CalcMargin(m.grossProfit, m.revenue),
		OperatingMargin: finmath.CalcMargin(m.operatingIncome, m.revenue),
		NetIncome:       finmath.CalcMargin(m.netIncome, m.revenue),
		FCFMargin:       finmath.CalcMargin(m.freeCashFlow, m.revenue),
	}

	prev := in.lagged(in.yoyLag)
	if in.latest != nil && prev != nil {
		opChg := finmath.PctChange(in.latest.OperatingIncome, prev.OperatingIncome)
		revChg := finmath.PctChange(in.latest.Revenue, prev.Revenue)
		pm.OperatingLeverage = finmath.SafeDiv(opChg, revChg)
	}
	return pm
}

func buildGrowth(in input) core.Growth {
	var g core.Growth

	revenue := func(p core.Period) *float64 { return p.Revenue }
	eps := func(p core.Period) *float64 { return p.EPSBasic }

	yoy := finmath.PctChange(field(in.latest, revenue), field(in.lagged(in.yoyLag), revenue))
	if yoy == nil {
		yoy = in.snap.RevenueYoYPct
	}
	g.RevenueGrowthYoY = yoy
	g.RevenueGrowthTTM = yoy

	start := in.lagged(in.cagrLag)
	g.RevenueCAGR3Y = finmath.CalcCagr(field(in.latest, revenue), field(start, revenue), cagrYears)
	g.EPSCAGR3Y = finmath.CalcCagr(field(in.latest, eps), field(start, eps), cagrYears)
	return g
}

// totalDebt is the reported total, else the sum of whichever of the long
// and short term components are reported.
func totalDebt(p *core.Period) *float64 {
	if p == nil {
		return nil
	}
	if p.TotalDebt != nil {
		return p.TotalDebt
	}
	if p.LongTermDebt == nil && p.ShortTermDebt == nil {
		return nil
	}
	return finmath.Ptr(finmath.Or(p.LongTermDebt, 0) + finmath.Or(p.ShortTermDebt, 0))
}

func buildPosition(in input) core.FinancialPosition {
	if in.latest == nil {
		return core.FinancialPosition{}
	}
	p := in.latest
	debt := totalDebt(p)

	fp := core.FinancialPosition{
		TotalDebt:     debt,
		LongTermDebt:  p.LongTermDebt,
		ShortTermDebt: p.ShortTermDebt,
		TotalAssets:   p.TotalAssets,
		TotalEquity:   p.TotalEquity,
		DebtToEquity:  finmath.DivPositive(debt, p.TotalEquity),
	}

	// Unreported debt counts as none; unreported cash leaves net debt unknown.
	if p.Cash != nil {
		fp.NetDebt = finmath.Ptr(finmath.Or(debt, 0) - *p.Cash)
	}

	fcf := in.annual.freeCashFlow
	fp.NetDebtToFCFYears = finmath.DivPositive(fp.NetDebt, fcf)
	if fcf != nil && *fcf < 0 && p.Cash != nil {
		fp.RunwayYears = finmath.Ptr(math.Max(*p.Cash, 0) / -*fcf)
	}
	return fp
}

func buildShares(in input, o Options) core.ShareStats {
	shares := func(p core.Period) *float64 { return p.SharesOutstanding }
	st := core.ShareStats{
		SharesOutstanding: finmath.First(field(in.latest, shares), in.snap.SharesOutstanding),
	}

	yoy := split.ComputeShareChange(window(in.series, in.yoyLag+1), in.yoyLag, split.WithOptions(o.Split))
	st.RawShareChangeYoY = yoy.RawYoY
	st.ShareChangeYoY = yoy.ChangeYoY
	st.SplitSignal = yoy.SplitSignal
	if yoy.RawYoY == nil && yoy.SplitSignal == nil {
		st.ShareChangeYoY = in.snap.ShareChangeYoYPct
	}

	if in.basis != core.BasisAnnual {
		qoq := split.ComputeShareChange(window(in.series, 2), 1, split.WithOptions(o.Split))
		st.ShareChangeQoQ = qoq.ChangeYoY
	}
	return st
}

func marketCap(in input, shares *float64) *float64 {
	if in.snap.MarketCap != nil {
		return in.snap.MarketCap
	}
	if in.snap.Price == nil || shares == nil {
		return nil
	}
	return finmath.Ptr(*in.snap.Price * *shares)
}

func buildValuation(in input, mcap *float64) core.ValuationRatios {
	var equity *float64
	if in.latest != nil {
		equity = in.latest.TotalEquity
	}
	a := in.annual
	return core.ValuationRatios{
		PS:   finmath.First(finmath.DivPositive(mcap, a.revenue), in.snap.PS),
		PE:   finmath.First(finmath.DivPositive(mcap, a.netIncome), in.snap.PE),
		PB:   finmath.First(finmath.DivPositive(mcap, equity), in.snap.PB),
		PFCF: finmath.First(finmath.DivPositive(mcap, a.freeCashFlow), in.snap.PFCF),
	}
}

func buildReturns(in input) core.Returns {
	r := core.Returns{ROE: in.snap.ROE, ROA: in.snap.ROA, ROIC: in.snap.ROIC}
	if in.latest == nil {
		return r
	}
	p := in.latest
	a := in.annual

	r.ROE = finmath.First(pct(finmath.DivPositive(a.netIncome, p.TotalEquity)), r.ROE)
	r.ROA = finmath.First(pct(finmath.DivPositive(a.netIncome, p.TotalAssets)), r.ROA)

	if p.TotalEquity != nil {
		invested := finmath.Ptr(finmath.Or(totalDebt(p), 0) + *p.TotalEquity - finmath.Or(p.Cash, 0))
		nopat := finmath.Scale(a.operatingIncome, 1-taxRate)
		r.ROIC = finmath.First(pct(finmath.DivPositive(nopat, invested)), r.ROIC)
	}
	return r
}

func buildDividends(in input, mcap *float64) core.Dividends {
	paid := finmath.Abs(in.annual.dividendsPaid)
	return core.Dividends{
		Yield:       finmath.First(pct(finmath.DivPositive(paid, mcap)), in.snap.DividendYield),
		PayoutToFCF: pct(finmath.DivPositive(paid, in.annual.freeCashFlow)),
	}
}

// shareholderReturns expresses buybacks, and buybacks plus dividends, as a
// percentage of market cap.
func shareholderReturns(in input, mcap *float64) (buyback, total *float64) {
	bb := finmath.Abs(in.annual.shareRepurchase)
	div := finmath.Abs(in.annual.dividendsPaid)
	buyback = pct(finmath.DivPositive(bb, mcap))
	if bb == nil && div == nil {
		return buyback, nil
	}
	returned := finmath.Ptr(finmath.Or(bb, 0) + finmath.Or(div, 0))
	return buyback, pct(finmath.DivPositive(returned, mcap))
}

func buildQuality(in input, asOf time.Time, freshness time.Duration) core.DataQuality {
	dq := core.DataQuality{
		QuarterCount: len(in.series),
		Basis:        in.basis,
	}

	var reported time.Time
	if in.latest != nil {
		end := in.latest.PeriodEnd
		dq.LatestPeriodEnd = &end
		reported = in.latest.ReportDate()
	}
	if asOf.IsZero() {
		return dq
	}
	if !reported.IsZero() {
		days := daysBetween(reported, asOf)
		dq.DaysSinceFiling = &days
	}
	dq.IsStale = IsDateStale(reported, asOf, freshness)
	return dq
}
