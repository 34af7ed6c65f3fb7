package core

import "time"

// Period is one reporting interval from a filing. Every numeric field is
// optional: nil means the source did not report it.
type Period struct {
	PeriodEnd time.Time  `json:"periodEnd"`
	FiledAt   *time.Time `json:"filedAt,omitempty"`

	SharesOutstanding *float64 `json:"sharesOutstanding,omitempty"`
	EPSBasic          *float64 `json:"epsBasic,omitempty"`
	NetIncome         *float64 `json:"netIncome,omitempty"`
	Revenue           *float64 `json:"revenue,omitempty"`
	GrossProfit       *float64 `json:"grossProfit,omitempty"`
	OperatingIncome   *float64 `json:"operatingIncome,omitempty"`
	OperatingCashFlow *float64 `json:"operatingCashFlow,omitempty"`
	Capex             *float64 `json:"capex,omitempty"`
	TotalDebt         *float64 `json:"totalDebt,omitempty"`
	LongTermDebt      *float64 `json:"longTermDebt,omitempty"`
	ShortTermDebt     *float64 `json:"shortTermDebt,omitempty"`
	Cash              *float64 `json:"cash,omitempty"`
	TotalEquity       *float64 `json:"totalEquity,omitempty"`
	TotalAssets       *float64 `json:"totalAssets,omitempty"`
	DividendsPaid     *float64 `json:"dividendsPaid,omitempty"`
	ShareRepurchase   *float64 `json:"shareRepurchase,omitempty"`
}

// ReportDate is the filing date when known, otherwise the period end.
func (p Period) ReportDate() time.Time {
	if p.FiledAt != nil && !p.FiledAt.IsZero() {
		return *p.FiledAt
	}
	return p.PeriodEnd
}

// SplitKind distinguishes forward from reverse splits.
type SplitKind string

const (
	SplitForward SplitKind = "split"
	SplitReverse SplitKind = "reverse_split"
)

// SplitSignal describes a probable share-count discontinuity between two
// adjacent periods.
type SplitSignal struct {
	Flagged     bool      `json:"flagged"`
	SharesRatio float64   `json:"sharesRatio"`
	RatioType   SplitKind `json:"ratioType"`
	PeriodEnd   time.Time `json:"periodEnd"`
}

// Sector buckets. A sector string that matches none of the known aliases
// keeps its own name as its bucket.
const (
	SectorBiotechPharma      = "Biotech/Pharma"
	SectorTechInternet       = "Tech/Internet"
	SectorFinancials         = "Financials"
	SectorRealEstate         = "Real Estate"
	SectorRetail             = "Retail"
	SectorIndustrialCyclical = "Industrial/Cyclical"
	SectorEnergyMaterials    = "Energy/Materials"
	SectorOther              = "Other"
)

// Basis records which figures the margins were computed from.
type Basis string

const (
	BasisTTM       Basis = "ttm"
	BasisQuarterly Basis = "quarterly"
	BasisAnnual    Basis = "annual"
	BasisNone      Basis = "none"
)

// Stock is the canonical scoring input.
type Stock struct {
	Ticker       string   `json:"ticker"`
	CompanyName  string   `json:"companyName"`
	Sector       string   `json:"sector"`
	SectorBucket string   `json:"sectorBucket"`
	IsFintech    bool     `json:"isFintech"`
	MarketCap    *float64 `json:"marketCap"`

	ProfitMargins     ProfitMargins     `json:"profitMargins"`
	Growth            Growth            `json:"growth"`
	FinancialPosition FinancialPosition `json:"financialPosition"`
	ShareStats        ShareStats        `json:"shareStats"`
	ValuationRatios   ValuationRatios   `json:"valuationRatios"`
	Returns           Returns           `json:"returns"`
	Cash              CashFlow          `json:"cash"`
	Dividends         Dividends         `json:"dividends"`
	DataQuality       DataQuality       `json:"dataQuality"`
}

// ProfitMargins are percentages of revenue. NetIncome is the net margin.
type ProfitMargins struct {
	GrossMargin       *float64 `json:"grossMargin"`
	OperatingMargin   *float64 `json:"operatingMargin"`
	NetIncome         *float64 `json:"netIncome"`
	FCFMargin         *float64 `json:"fcfMargin"`
	OperatingLeverage *float64 `json:"operatingLeverage"`
}

type Growth struct {
	RevenueGrowthYoY *float64 `json:"revenueGrowthYoY"`
	RevenueGrowthTTM *float64 `json:"revenueGrowthTTM"`
	RevenueCAGR3Y    *float64 `json:"revenueCagr3y"`
	EPSCAGR3Y        *float64 `json:"epsCagr3y"`
}

type FinancialPosition struct {
	TotalDebt         *float64 `json:"totalDebt"`
	NetDebt           *float64 `json:"netDebt"`
	LongTermDebt      *float64 `json:"longTermDebt"`
	ShortTermDebt     *float64 `json:"shortTermDebt"`
	DebtToEquity      *float64 `json:"debtToEquity"`
	NetDebtToFCFYears *float64 `json:"netDebtToFcfYears"`
	RunwayYears       *float64 `json:"runwayYears"`
	TotalAssets       *float64 `json:"totalAssets"`
	TotalEquity       *float64 `json:"totalEquity"`
}

// ShareStats holds share-count changes. ShareChangeYoY is nil when a split
// was detected in the window; RawShareChangeYoY keeps the unguarded value.
type ShareStats struct {
	SharesOutstanding      *float64     `json:"sharesOutstanding"`
	ShareChangeQoQ         *float64     `json:"shareChangeQoQ"`
	ShareChangeYoY         *float64     `json:"shareChangeYoY"`
	RawShareChangeYoY      *float64     `json:"rawShareChangeYoY"`
	SplitSignal            *SplitSignal `json:"splitSignal,omitempty"`
	BuybackRatio           *float64     `json:"buybackRatio"`
	ShareholderReturnRatio *float64     `json:"shareholderReturnRatio"`
}

// ChangeYoYSuppressed reports whether a detected split withheld the YoY
// share change.
func (s ShareStats) ChangeYoYSuppressed() bool {
	return s.SplitSignal != nil && s.SplitSignal.Flagged && s.ShareChangeYoY == nil
}

type ValuationRatios struct {
	PS   *float64 `json:"ps"`
	PE   *float64 `json:"pe"`
	PB   *float64 `json:"pb"`
	PFCF *float64 `json:"pfcf"`
}

type Returns struct {
	ROE  *float64 `json:"roe"`
	ROIC *float64 `json:"roic"`
	ROA  *float64 `json:"roa"`
}

type CashFlow struct {
	CapexToRevenue    *float64 `json:"capexToRevenue"`
	OperatingCashFlow *float64 `json:"operatingCashFlow"`
	FreeCashFlow      *float64 `json:"freeCashFlow"`
}

type Dividends struct {
	Yield       *float64 `json:"yield"`
	PayoutToFCF *float64 `json:"payoutToFcf"`
}

type DataQuality struct {
	QuarterCount    int        `json:"quarterCount"`
	Basis           Basis      `json:"basis"`
	LatestPeriodEnd *time.Time `json:"latestPeriodEnd,omitempty"`
	DaysSinceFiling *int       `json:"daysSinceFiling,omitempty"`
	IsStale         bool       `json:"isStale"`
}
