package heuristics

import (
	"github.com/newthinker/scorecard/internal/core"
)

// NewGrossMargin scores gross margin. Banks report no gross profit.
func NewGrossMargin() *MetricRule {
	return &MetricRule{
		base: base{
			name:        "gross_margin",
			description: "Gross margin rewards pricing power",
			weight:      5,
			ladder:      higher(-8, step{60, 10}, step{45, 6}, step{30, 2}, step{15, -3}),
		},
		label:  "gross margin",
		unit:   unitPercent,
		metric: func(s core.Stock) *float64 { return s.ProfitMargins.GrossMargin },
		gate:   financialsGate("gross margin"),
	}
}

func NewOperatingMargin() *MetricRule {
	return &MetricRule{
		base: base{
			name:        "operating_margin",
			description: "Operating margin after operating expenses",
			weight:      6,
			ladder:      higher(-8, step{30, 10}, step{20, 6}, step{10, 2}, step{0, -3}),
		},
		label:  "operating margin",
		unit:   unitPercent,
		metric: func(s core.Stock) *float64 { return s.ProfitMargins.OperatingMargin },
	}
}

func NewNetMargin() *MetricRule {
	return &MetricRule{
		base: base{
			name:        "net_margin",
			description: "Net income as a share of revenue",
			weight:      6,
			ladder:      higher(-8, step{20, 10}, step{10, 6}, step{5, 2}, step{0, -3}),
		},
		label:  "net margin",
		unit:   unitPercent,
		metric: func(s core.Stock) *float64 { return s.ProfitMargins.NetIncome },
	}
}

func NewFCFMargin() *MetricRule {
	return &MetricRule{
		base: base{
			name:        "fcf_margin",
			description: "Free cash flow as a share of revenue",
			weight:      7,
			ladder:      higher(-8, step{20, 10}, step{10, 6}, step{3, 2}, step{0, -3}),
		},
		label:  "FCF margin",
		unit:   unitPercent,
		metric: func(s core.Stock) *float64 { return s.ProfitMargins.FCFMargin },
		gate:   financialsGate("free cash flow"),
	}
}

// NewRevenueGrowth scores year-over-year revenue growth.
func NewRevenueGrowth() *MetricRule {
	return &MetricRule{
		base: base{
			name:        "revenue_growth",
			description: "Year-over-year revenue growth",
			weight:      8,
			ladder:      higher(-8, step{30, 10}, step{15, 6}, step{5, 2}, step{0, -3}),
		},
		label:  "revenue growth",
		unit:   unitPercent,
		metric: func(s core.Stock) *float64 { return s.Growth.RevenueGrowthTTM },
	}
}

func NewRevenueCAGR() *MetricRule {
	return &MetricRule{
		base: base{
			name:        "revenue_cagr",
			description: "Three-year revenue CAGR",
			weight:      5,
			ladder:      higher(-8, step{20, 10}, step{10, 6}, step{5, 2}, step{0, -3}),
		},
		label:  "3y revenue CAGR",
		unit:   unitPercent,
		metric: func(s core.Stock) *float64 { return s.Growth.RevenueCAGR3Y },
	}
}

func NewEPSCAGR() *MetricRule {
	return &MetricRule{
		base: base{
			name:        "eps_cagr",
			description: "Three-year EPS CAGR",
			weight:      4,
			ladder:      higher(-8, step{20, 10}, step{10, 6}, step{5, 2}, step{0, -3}),
		},
		label:  "3y EPS CAGR",
		unit:   unitPercent,
		metric: func(s core.Stock) *float64 { return s.Growth.EPSCAGR3Y },
	}
}

func NewReturnOnEquity() *MetricRule {
	return &MetricRule{
		base: base{
			name:        "return_on_equity",
			description: "Net income over shareholders' equity",
			weight:      5,
			ladder:      higher(-8, step{20, 10}, step{15, 6}, step{10, 2}, step{0, -3}),
		},
		label:  "ROE",
		unit:   unitPercent,
		metric: func(s core.Stock) *float64 { return s.Returns.ROE },
	}
}

// NewReturnOnInvestedCapital scores after-tax operating return on debt
// plus equity. Not meaningful where debt is the raw material.
func NewReturnOnInvestedCapital() *MetricRule {
	return &MetricRule{
		base: base{
			name:        "return_on_invested_capital",
			description: "NOPAT over invested capital",
			weight:      5,
			ladder:      higher(-8, step{15, 10}, step{10, 6}, step{6, 2}, step{0, -3}),
		},
		label:  "ROIC",
		unit:   unitPercent,
		metric: func(s core.Stock) *float64 { return s.Returns.ROIC },
		gate:   financialsGate("ROIC"),
	}
}
