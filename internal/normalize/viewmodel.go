package normalize

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/newthinker/scorecard/internal/core"
	"github.com/newthinker/scorecard/internal/finmath"
)

// ViewModel is the raw, partially-populated input handed over by the
// filing and quote collectors.
type ViewModel struct {
	Ticker          string        `json:"ticker"`
	CompanyName     string        `json:"companyName"`
	Sector          string        `json:"sector"`
	Snapshot        *Snapshot     `json:"snapshot,omitempty"`
	TTM             *TTM          `json:"ttm,omitempty"`
	QuarterlySeries []core.Period `json:"quarterlySeries,omitempty"`
	AnnualMode      bool          `json:"annualMode"`
	AnnualSeries    []core.Period `json:"annualSeries,omitempty"`

	// AsOf is the reference date for staleness. Zero disables the check.
	AsOf time.Time `json:"asOf"`
}

// TTM carries trailing-twelve-month aggregates.
type TTM struct {
	Revenue           *float64 `json:"revenue,omitempty"`
	GrossProfit       *float64 `json:"grossProfit,omitempty"`
	OperatingIncome   *float64 `json:"operatingIncome,omitempty"`
	NetIncome         *float64 `json:"netIncome,omitempty"`
	OperatingCashFlow *float64 `json:"operatingCashFlow,omitempty"`
	Capex             *float64 `json:"capex,omitempty"`
	FreeCashFlow      *float64 `json:"freeCashFlow,omitempty"`
	DividendsPaid     *float64 `json:"dividendsPaid,omitempty"`
	ShareRepurchase   *float64 `json:"shareRepurchase,omitempty"`
	EPS               *float64 `json:"eps,omitempty"`
}

// Snapshot is a precomputed market view. Its values only fill gaps the
// filings cannot answer.
type Snapshot struct {
	Price             *float64 `json:"price,omitempty"`
	MarketCap         *float64 `json:"marketCap,omitempty"`
	SharesOutstanding *float64 `json:"sharesOutstanding,omitempty"`
	PE                *float64 `json:"pe,omitempty"`
	PS                *float64 `json:"ps,omitempty"`
	PB                *float64 `json:"pb,omitempty"`
	PFCF              *float64 `json:"pfcf,omitempty"`
	DividendYield     *float64 `json:"dividendYield,omitempty"`
	RevenueYoYPct     *float64 `json:"revenueYoYPct,omitempty"`
	ShareChangeYoYPct *float64 `json:"shareChangeYoYPct,omitempty"`
	ROE               *float64 `json:"roe,omitempty"`
	ROA               *float64 `json:"roa,omitempty"`
	ROIC              *float64 `json:"roic,omitempty"`
}

var snapshotFields = []struct {
	key   string
	field func(*Snapshot) **float64
}{
	{"price", func(s *Snapshot) **float64 { return &s.Price }},
	{"marketCap", func(s *Snapshot) **float64 { return &s.MarketCap }},
	{"sharesOutstanding", func(s *Snapshot) **float64 { return &s.SharesOutstanding }},
	{"pe", func(s *Snapshot) **float64 { return &s.PE }},
	{"ps", func(s *Snapshot) **float64 { return &s.PS }},
	{"pb", func(s *Snapshot) **float64 { return &s.PB }},
	{"pfcf", func(s *Snapshot) **float64 { return &s.PFCF }},
	{"dividendYield", func(s *Snapshot) **float64 { return &s.DividendYield }},
	{"revenueYoYPct", func(s *Snapshot) **float64 { return &s.RevenueYoYPct }},
	{"shareChangeYoYPct", func(s *Snapshot) **float64 { return &s.ShareChangeYoYPct }},
	{"roe", func(s *Snapshot) **float64 { return &s.ROE }},
	{"roa", func(s *Snapshot) **float64 { return &s.ROA }},
	{"roic", func(s *Snapshot) **float64 { return &s.ROIC }},
}

// UnmarshalJSON accepts each field either as a JSON number or as a
// display string ("$1.2B", "3.4%"); strings go through
// finmath.ParseNumber and anything unparseable is left nil.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("snapshot: invalid json")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return fmt.Errorf("snapshot: expected object, got %s", doc.Type)
	}

	*s = Snapshot{}
	for _, fd := range snapshotFields {
		*fd.field(s) = flexNumber(doc.Get(fd.key))
	}
	return nil
}

func flexNumber(r gjson.Result) *float64 {
	switch r.Type {
	case gjson.Number:
		return finmath.Ptr(r.Num)
	case gjson.String:
		return finmath.ParseNumber(r.Str)
	default:
		return nil
	}
}
