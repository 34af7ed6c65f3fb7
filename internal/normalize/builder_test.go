package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/scorecard/internal/core"
	"github.com/newthinker/scorecard/internal/split"
)

func f(v float64) *float64 { return &v }

var q0 = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

// quarters builds n newest-first quarterly periods with revenue rev[i]
// (or 100 when rev is short) and steady share counts.
func quarters(n int, rev ...float64) []core.Period {
	out := make([]core.Period, n)
	for i := range out {
		r := 100.0
		if i < len(rev) {
			r = rev[i]
		}
		out[i] = core.Period{
			PeriodEnd:         q0.AddDate(0, -3*i, 0),
			Revenue:           f(r),
			SharesOutstanding: f(1000),
			EPSBasic:          f(1),
			NetIncome:         f(1000),
		}
	}
	return out
}

func TestBuildStockForRules_TTMMargins(t *testing.T) {
	vm := ViewModel{
		Ticker: "acme",
		TTM: &TTM{
			Revenue:      f(100),
			NetIncome:    f(15),
			GrossProfit:  f(60),
			FreeCashFlow: f(20),
		},
	}

	s := BuildStockForRules(vm)
	assert.Equal(t, "ACME", s.Ticker)
	require.NotNil(t, s.ProfitMargins.NetIncome)
	assert.InDelta(t, 15.0, *s.ProfitMargins.NetIncome, 1e-9)
	require.NotNil(t, s.ProfitMargins.FCFMargin)
	assert.InDelta(t, 20.0, *s.ProfitMargins.FCFMargin, 1e-9)
	require.NotNil(t, s.ProfitMargins.GrossMargin)
	assert.InDelta(t, 60.0, *s.ProfitMargins.GrossMargin, 1e-9)
	assert.Nil(t, s.ProfitMargins.OperatingMargin)
	assert.Equal(t, core.BasisTTM, s.DataQuality.Basis)
}

func TestBuildStockForRules_FCFFromCashFlowAndCapex(t *testing.T) {
	vm := ViewModel{
		TTM: &TTM{Revenue: f(200), OperatingCashFlow: f(50), Capex: f(-10)},
	}

	s := BuildStockForRules(vm)
	require.NotNil(t, s.ProfitMargins.FCFMargin)
	assert.InDelta(t, 20.0, *s.ProfitMargins.FCFMargin, 1e-9)
	require.NotNil(t, s.Cash.CapexToRevenue)
	assert.InDelta(t, 5.0, *s.Cash.CapexToRevenue, 1e-9)
}

func TestBuildStockForRules_MarginsFallBackToLatestQuarter(t *testing.T) {
	qs := quarters(2)
	qs[0].OperatingIncome = f(30)

	s := BuildStockForRules(ViewModel{QuarterlySeries: qs})
	require.NotNil(t, s.ProfitMargins.OperatingMargin)
	assert.InDelta(t, 30.0, *s.ProfitMargins.OperatingMargin, 1e-9)
	assert.Equal(t, core.BasisQuarterly, s.DataQuality.Basis)
}

func TestBuildStockForRules_RevenueGrowthFromQuarters(t *testing.T) {
	vm := ViewModel{QuarterlySeries: quarters(5, 25, 24, 22, 21, 20)}

	s := BuildStockForRules(vm)
	require.NotNil(t, s.Growth.RevenueGrowthTTM)
	assert.InDelta(t, 25.0, *s.Growth.RevenueGrowthTTM, 1e-9)
	require.NotNil(t, s.Growth.RevenueGrowthYoY)
	assert.InDelta(t, 25.0, *s.Growth.RevenueGrowthYoY, 1e-9)
}

func TestBuildStockForRules_RevenueGrowthFallsBackToSnapshot(t *testing.T) {
	vm := ViewModel{
		QuarterlySeries: quarters(3),
		Snapshot:        &Snapshot{RevenueYoYPct: f(7.5)},
	}

	s := BuildStockForRules(vm)
	require.NotNil(t, s.Growth.RevenueGrowthTTM)
	assert.Equal(t, 7.5, *s.Growth.RevenueGrowthTTM)
}

func TestBuildStockForRules_LocalGrowthBeatsSnapshot(t *testing.T) {
	vm := ViewModel{
		QuarterlySeries: quarters(5, 25, 24, 22, 21, 20),
		Snapshot:        &Snapshot{RevenueYoYPct: f(99)},
	}

	s := BuildStockForRules(vm)
	require.NotNil(t, s.Growth.RevenueGrowthTTM)
	assert.InDelta(t, 25.0, *s.Growth.RevenueGrowthTTM, 1e-9)
}

func TestBuildStockForRules_CAGR(t *testing.T) {
	annual := []core.Period{
		{PeriodEnd: q0, Revenue: f(800), EPSBasic: f(8)},
		{PeriodEnd: q0.AddDate(-1, 0, 0), Revenue: f(400), EPSBasic: f(4)},
		{PeriodEnd: q0.AddDate(-2, 0, 0), Revenue: f(200), EPSBasic: f(2)},
		{PeriodEnd: q0.AddDate(-3, 0, 0), Revenue: f(100), EPSBasic: f(-1)},
	}

	s := BuildStockForRules(ViewModel{AnnualMode: true, AnnualSeries: annual})
	require.NotNil(t, s.Growth.RevenueCAGR3Y)
	assert.InDelta(t, 100.0, *s.Growth.RevenueCAGR3Y, 1e-9)
	assert.Nil(t, s.Growth.EPSCAGR3Y, "negative starting EPS has no CAGR")
	require.NotNil(t, s.Growth.RevenueGrowthYoY)
	assert.InDelta(t, 100.0, *s.Growth.RevenueGrowthYoY, 1e-9)
}

func TestBuildStockForRules_FinancialPosition(t *testing.T) {
	tests := []struct {
		name    string
		period  core.Period
		netDebt *float64
		de      *float64
		debt    *float64
	}{
		{
			name:    "debt and cash",
			period:  core.Period{TotalDebt: f(50), Cash: f(10)},
			netDebt: f(40),
			debt:    f(50),
		},
		{
			name:    "debt and equity",
			period:  core.Period{TotalDebt: f(50), TotalEquity: f(200), Cash: f(0)},
			netDebt: f(50),
			de:      f(0.25),
			debt:    f(50),
		},
		{
			name:    "debt absent counts as zero",
			period:  core.Period{Cash: f(5)},
			netDebt: f(-5),
		},
		{
			name:   "negative equity has no ratio",
			period: core.Period{TotalDebt: f(50), TotalEquity: f(-10)},
			debt:   f(50),
		},
		{
			name:    "debt from components",
			period:  core.Period{LongTermDebt: f(30), ShortTermDebt: f(5), Cash: f(15), TotalEquity: f(70)},
			netDebt: f(20),
			de:      f(0.5),
			debt:    f(35),
		},
		{
			name:   "nothing reported",
			period: core.Period{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.period.PeriodEnd = q0
			s := BuildStockForRules(ViewModel{QuarterlySeries: []core.Period{tt.period}})
			fp := s.FinancialPosition
			assertOptional(t, tt.netDebt, fp.NetDebt, "netDebt")
			assertOptional(t, tt.de, fp.DebtToEquity, "debtToEquity")
			assertOptional(t, tt.debt, fp.TotalDebt, "totalDebt")
		})
	}
}

func TestBuildStockForRules_RunwayAndLeverageYears(t *testing.T) {
	burner := core.Period{PeriodEnd: q0, Cash: f(300), OperatingCashFlow: f(-80), Capex: f(20)}
	s := BuildStockForRules(ViewModel{AnnualMode: true, AnnualSeries: []core.Period{burner}})
	require.NotNil(t, s.FinancialPosition.RunwayYears)
	assert.InDelta(t, 3.0, *s.FinancialPosition.RunwayYears, 1e-9)
	assert.Nil(t, s.FinancialPosition.NetDebtToFCFYears)

	earner := core.Period{PeriodEnd: q0, TotalDebt: f(500), Cash: f(100), OperatingCashFlow: f(120), Capex: f(-20)}
	s = BuildStockForRules(ViewModel{AnnualMode: true, AnnualSeries: []core.Period{earner}})
	assert.Nil(t, s.FinancialPosition.RunwayYears)
	require.NotNil(t, s.FinancialPosition.NetDebtToFCFYears)
	assert.InDelta(t, 4.0, *s.FinancialPosition.NetDebtToFCFYears, 1e-9)
}

func TestBuildStockForRules_AnnualSinglePeriodNoTTM(t *testing.T) {
	vm := ViewModel{
		AnnualMode: true,
		AnnualSeries: []core.Period{{
			PeriodEnd:       q0,
			Revenue:         f(1000),
			GrossProfit:     f(400),
			OperatingIncome: f(150),
			NetIncome:       f(100),
		}},
	}

	s := BuildStockForRules(vm)
	pm := s.ProfitMargins
	require.NotNil(t, pm.GrossMargin)
	require.NotNil(t, pm.OperatingMargin)
	require.NotNil(t, pm.NetIncome)
	assert.InDelta(t, 40.0, *pm.GrossMargin, 1e-9)
	assert.InDelta(t, 15.0, *pm.OperatingMargin, 1e-9)
	assert.InDelta(t, 10.0, *pm.NetIncome, 1e-9)
	assert.Nil(t, s.Growth.RevenueGrowthYoY)
	assert.Equal(t, core.BasisAnnual, s.DataQuality.Basis)
	assert.Equal(t, 1, s.DataQuality.QuarterCount)
}

func TestBuildStockForRules_AnnualModeIgnoresTTM(t *testing.T) {
	vm := ViewModel{
		AnnualMode:   true,
		AnnualSeries: []core.Period{{PeriodEnd: q0, Revenue: f(100), NetIncome: f(5)}},
		TTM:          &TTM{Revenue: f(100), NetIncome: f(50)},
	}

	s := BuildStockForRules(vm)
	require.NotNil(t, s.ProfitMargins.NetIncome)
	assert.InDelta(t, 5.0, *s.ProfitMargins.NetIncome, 1e-9)
}

func TestBuildStockForRules_EmptyViewModel(t *testing.T) {
	var s core.Stock
	require.NotPanics(t, func() { s = BuildStockForRules(ViewModel{}) })

	assert.Equal(t, core.SectorOther, s.SectorBucket)
	assert.Equal(t, core.BasisNone, s.DataQuality.Basis)
	assert.Nil(t, s.MarketCap)
	assert.Nil(t, s.ProfitMargins.NetIncome)
	assert.Nil(t, s.ShareStats.ShareChangeYoY)
	assert.Nil(t, s.DataQuality.LatestPeriodEnd)
	assert.False(t, s.DataQuality.IsStale, "no reference date, no staleness verdict")
}

func TestBuildStockForRules_ZeroRevenueYieldsNilMargins(t *testing.T) {
	s := BuildStockForRules(ViewModel{TTM: &TTM{Revenue: f(0), NetIncome: f(10)}})
	assert.Nil(t, s.ProfitMargins.NetIncome)
	assert.Nil(t, s.ValuationRatios.PS)
}

func TestBuildStockForRules_ShareChange(t *testing.T) {
	qs := quarters(5)
	for i, shares := range []float64{1100, 1075, 1050, 1025, 1000} {
		qs[i].SharesOutstanding = f(shares)
	}

	s := BuildStockForRules(ViewModel{QuarterlySeries: qs})
	require.NotNil(t, s.ShareStats.ShareChangeYoY)
	assert.InDelta(t, 10.0, *s.ShareStats.ShareChangeYoY, 1e-9)
	require.NotNil(t, s.ShareStats.ShareChangeQoQ)
	assert.InDelta(t, 100*25.0/1075, *s.ShareStats.ShareChangeQoQ, 1e-9)
	assert.Nil(t, s.ShareStats.SplitSignal)
}

func TestBuildStockForRules_SplitSuppressesOnlyShareChange(t *testing.T) {
	qs := quarters(5, 25, 24, 22, 21, 20)
	qs[0].SharesOutstanding = f(2000)
	qs[0].EPSBasic = f(0.5)

	vm := ViewModel{
		QuarterlySeries: qs,
		Snapshot:        &Snapshot{ShareChangeYoYPct: f(3)},
	}
	s := BuildStockForRules(vm)

	assert.Nil(t, s.ShareStats.ShareChangeYoY, "suppressed change is not back-filled")
	require.NotNil(t, s.ShareStats.RawShareChangeYoY)
	assert.InDelta(t, 100.0, *s.ShareStats.RawShareChangeYoY, 1e-9)
	require.NotNil(t, s.ShareStats.SplitSignal)
	assert.Equal(t, core.SplitForward, s.ShareStats.SplitSignal.RatioType)

	require.NotNil(t, s.Growth.RevenueGrowthTTM)
	assert.InDelta(t, 25.0, *s.Growth.RevenueGrowthTTM, 1e-9)
	require.NotNil(t, s.ShareStats.SharesOutstanding)
	assert.Equal(t, 2000.0, *s.ShareStats.SharesOutstanding)
}

func TestBuildStockForRules_ShareChangeFallsBackToSnapshot(t *testing.T) {
	vm := ViewModel{
		QuarterlySeries: quarters(2),
		Snapshot:        &Snapshot{ShareChangeYoYPct: f(-2)},
	}

	s := BuildStockForRules(vm)
	require.NotNil(t, s.ShareStats.ShareChangeYoY)
	assert.Equal(t, -2.0, *s.ShareStats.ShareChangeYoY)
	assert.Nil(t, s.ShareStats.RawShareChangeYoY)
}

func TestBuildStockForRules_SplitPolicyOption(t *testing.T) {
	qs := quarters(5)
	qs[0].SharesOutstanding = f(2300)
	qs[0].EPSBasic = f(0.45)

	s := BuildStockForRules(ViewModel{QuarterlySeries: qs})
	assert.Nil(t, s.ShareStats.SplitSignal)

	s = BuildStockForRules(ViewModel{QuarterlySeries: qs}, WithSplitOptions(split.Options{Tolerance: 0.2}))
	require.NotNil(t, s.ShareStats.SplitSignal)
	assert.Equal(t, 2.0, s.ShareStats.SplitSignal.SharesRatio)
}

func TestBuildStockForRules_ValuationFromMarketCap(t *testing.T) {
	qs := quarters(4)
	for i := range qs {
		qs[i].Revenue = f(250)
		qs[i].NetIncome = f(50)
		qs[i].OperatingCashFlow = f(60)
		qs[i].Capex = f(-10)
	}
	qs[0].TotalEquity = f(2000)
	qs[0].TotalAssets = f(4000)
	qs[0].TotalDebt = f(500)
	qs[0].Cash = f(500)

	vm := ViewModel{
		QuarterlySeries: qs,
		Snapshot:        &Snapshot{Price: f(10), PE: f(999), PB: f(3)},
	}
	s := BuildStockForRules(vm)

	require.NotNil(t, s.MarketCap)
	assert.InDelta(t, 10000.0, *s.MarketCap, 1e-9)

	v := s.ValuationRatios
	require.NotNil(t, v.PS)
	require.NotNil(t, v.PE)
	require.NotNil(t, v.PB)
	require.NotNil(t, v.PFCF)
	assert.InDelta(t, 10.0, *v.PS, 1e-9)
	assert.InDelta(t, 50.0, *v.PE, 1e-9, "local value wins over snapshot")
	assert.InDelta(t, 5.0, *v.PB, 1e-9)
	assert.InDelta(t, 50.0, *v.PFCF, 1e-9)

	r := s.Returns
	require.NotNil(t, r.ROE)
	require.NotNil(t, r.ROA)
	assert.InDelta(t, 10.0, *r.ROE, 1e-9)
	assert.InDelta(t, 5.0, *r.ROA, 1e-9)
}

func TestBuildStockForRules_SnapshotFillsGaps(t *testing.T) {
	vm := ViewModel{
		Snapshot: &Snapshot{
			MarketCap:     f(5e9),
			PE:            f(22),
			PS:            f(4),
			DividendYield: f(1.5),
			ROE:           f(18),
		},
	}

	s := BuildStockForRules(vm)
	assert.Equal(t, 5e9, *s.MarketCap)
	assert.Equal(t, 22.0, *s.ValuationRatios.PE)
	assert.Equal(t, 4.0, *s.ValuationRatios.PS)
	assert.Equal(t, 1.5, *s.Dividends.Yield)
	assert.Equal(t, 18.0, *s.Returns.ROE)
}

func TestBuildStockForRules_NegativeEarningsHaveNoPE(t *testing.T) {
	s := BuildStockForRules(ViewModel{
		TTM:      &TTM{Revenue: f(100), NetIncome: f(-5)},
		Snapshot: &Snapshot{MarketCap: f(1000)},
	})
	assert.Nil(t, s.ValuationRatios.PE)
	require.NotNil(t, s.ValuationRatios.PS)
	assert.InDelta(t, 10.0, *s.ValuationRatios.PS, 1e-9)
}

func TestBuildStockForRules_ROIC(t *testing.T) {
	p := core.Period{
		PeriodEnd:       q0,
		OperatingIncome: f(100),
		TotalDebt:       f(200),
		TotalEquity:     f(900),
		Cash:            f(100),
	}

	s := BuildStockForRules(ViewModel{AnnualMode: true, AnnualSeries: []core.Period{p}})
	require.NotNil(t, s.Returns.ROIC)
	assert.InDelta(t, 7.9, *s.Returns.ROIC, 1e-9)
}

func TestBuildStockForRules_DividendsAndBuybacks(t *testing.T) {
	vm := ViewModel{
		TTM: &TTM{
			Revenue:         f(1000),
			FreeCashFlow:    f(200),
			DividendsPaid:   f(-50),
			ShareRepurchase: f(-100),
		},
		Snapshot: &Snapshot{MarketCap: f(5000)},
	}

	s := BuildStockForRules(vm)
	require.NotNil(t, s.Dividends.Yield)
	assert.InDelta(t, 1.0, *s.Dividends.Yield, 1e-9)
	require.NotNil(t, s.Dividends.PayoutToFCF)
	assert.InDelta(t, 25.0, *s.Dividends.PayoutToFCF, 1e-9)
	require.NotNil(t, s.ShareStats.BuybackRatio)
	assert.InDelta(t, 2.0, *s.ShareStats.BuybackRatio, 1e-9)
	require.NotNil(t, s.ShareStats.ShareholderReturnRatio)
	assert.InDelta(t, 3.0, *s.ShareStats.ShareholderReturnRatio, 1e-9)
}

func TestBuildStockForRules_SectorAndFintech(t *testing.T) {
	s := BuildStockForRules(ViewModel{Ticker: "pypl", CompanyName: "PayPal Holdings", Sector: " Financial Services "})
	assert.Equal(t, "Financial Services", s.Sector)
	assert.Equal(t, core.SectorFinancials, s.SectorBucket)
	assert.True(t, s.IsFintech)
}

func TestBuildStockForRules_DataQuality(t *testing.T) {
	filed := q0.AddDate(0, 1, 10)
	qs := quarters(6)
	qs[0].FiledAt = &filed

	fresh := BuildStockForRules(ViewModel{QuarterlySeries: qs, AsOf: filed.AddDate(0, 0, 30)})
	dq := fresh.DataQuality
	assert.Equal(t, 6, dq.QuarterCount)
	require.NotNil(t, dq.LatestPeriodEnd)
	assert.Equal(t, q0, *dq.LatestPeriodEnd)
	require.NotNil(t, dq.DaysSinceFiling)
	assert.Equal(t, 30, *dq.DaysSinceFiling)
	assert.False(t, dq.IsStale)

	old := BuildStockForRules(ViewModel{QuarterlySeries: qs, AsOf: filed.AddDate(1, 0, 0)})
	assert.True(t, old.DataQuality.IsStale)

	wide := BuildStockForRules(ViewModel{QuarterlySeries: qs, AsOf: filed.AddDate(1, 0, 0)}, WithFreshnessWindow(400*24*time.Hour))
	assert.False(t, wide.DataQuality.IsStale)

	none := BuildStockForRules(ViewModel{AsOf: filed})
	assert.True(t, none.DataQuality.IsStale, "no filings at all is stale")
	assert.Nil(t, none.DataQuality.DaysSinceFiling)
}

func TestBuildStockForRules_DoesNotMutateInput(t *testing.T) {
	qs := quarters(5, 25, 24, 22, 21, 20)
	qs[0].SharesOutstanding = f(2000)
	qs[0].EPSBasic = f(0.5)
	before := clonePeriods(qs)

	BuildStockForRules(ViewModel{QuarterlySeries: qs, TTM: &TTM{Revenue: f(92)}})
	assert.Equal(t, before, qs)
}

func TestBuildStockForRules_Deterministic(t *testing.T) {
	vm := ViewModel{
		Ticker:          "ACME",
		Sector:          "Software",
		QuarterlySeries: quarters(13, 30, 29, 28, 27, 26, 25, 24, 23, 22, 21, 20, 19, 15),
		Snapshot:        &Snapshot{Price: f(12)},
		AsOf:            q0.AddDate(0, 2, 0),
	}

	assert.Equal(t, BuildStockForRules(vm), BuildStockForRules(vm))
}

func clonePeriods(in []core.Period) []core.Period {
	cp := func(p *float64) *float64 {
		if p == nil {
			return nil
		}
		v := *p
		return &v
	}
	out := make([]core.Period, len(in))
	for i, p := range in {
		out[i] = p
		out[i].Revenue = cp(p.Revenue)
		out[i].SharesOutstanding = cp(p.SharesOutstanding)
		out[i].EPSBasic = cp(p.EPSBasic)
		out[i].NetIncome = cp(p.NetIncome)
	}
	return out
}

func assertOptional(t *testing.T, want, got *float64, name string) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got, name)
		return
	}
	require.NotNil(t, got, name)
	assert.InDelta(t, *want, *got, 1e-9, name)
}
