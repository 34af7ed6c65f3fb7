package edgar

import (
	"sort"
	"time"

	"github.com/tidwall/gjson"

	"github.com/newthinker/scorecard/internal/core"
)

type factKind int

const (
	// flow facts are additive over time; quarters missing from a filing
	// are derived from year-to-date differences.
	flow factKind = iota
	// ratio facts cover a duration but are not additive (EPS, averages).
	ratio
	// point facts are balance sheet instants at the period end.
	point
	// cover facts are instants dated at the filing cover page, up to
	// coverLag after the period end.
	cover
)

const (
	dateLayout  = "2006-01-02"
	coverLag    = 100 * 24 * time.Hour
	maxQuarters = 20
	maxYears    = 10

	// maxQuarterGap is the widest spacing between adjacent quarter ends;
	// 52/53-week years stay under it.
	maxQuarterGap = 100 * 24 * time.Hour
	maxYearGap    = 380 * 24 * time.Hour
)

type concept struct {
	taxonomy string
	name     string
	unit     string
	kind     factKind
}

func gaap(name, unit string, kind factKind) concept {
	return concept{taxonomy: "us-gaap", name: name, unit: unit, kind: kind}
}

// field lists the concepts that can fill one Period field, in priority
// order. The first concept with a value for a period wins.
type field struct {
	concepts []concept
	set      func(p *core.Period, v float64)
}

var fields = []field{
	{[]concept{
		gaap("Revenues", "USD", flow),
		gaap("RevenueFromContractWithCustomerExcludingAssessedTax", "USD", flow),
		gaap("RevenueFromContractWithCustomerIncludingAssessedTax", "USD", flow),
		gaap("SalesRevenueNet", "USD", flow),
	}, func(p *core.Period, v float64) { p.Revenue = &v }},
	{[]concept{gaap("GrossProfit", "USD", flow)},
		func(p *core.Period, v float64) { p.GrossProfit = &v }},
	{[]concept{gaap("OperatingIncomeLoss", "USD", flow)},
		func(p *core.Period, v float64) { p.OperatingIncome = &v }},
	{[]concept{
		gaap("NetIncomeLoss", "USD", flow),
		gaap("ProfitLoss", "USD", flow),
	}, func(p *core.Period, v float64) { p.NetIncome = &v }},
	{[]concept{
		gaap("NetCashProvidedByUsedInOperatingActivities", "USD", flow),
		gaap("NetCashProvidedByUsedInOperatingActivitiesContinuingOperations", "USD", flow),
	}, func(p *core.Period, v float64) { p.OperatingCashFlow = &v }},
	{[]concept{
		gaap("PaymentsToAcquirePropertyPlantAndEquipment", "USD", flow),
		gaap("PaymentsToAcquireProductiveAssets", "USD", flow),
	}, func(p *core.Period, v float64) { p.Capex = &v }},
	{[]concept{
		gaap("PaymentsOfDividends", "USD", flow),
		gaap("PaymentsOfDividendsCommonStock", "USD", flow),
	}, func(p *core.Period, v float64) { p.DividendsPaid = &v }},
	{[]concept{gaap("PaymentsForRepurchaseOfCommonStock", "USD", flow)},
		func(p *core.Period, v float64) { p.ShareRepurchase = &v }},
	{[]concept{gaap("EarningsPerShareBasic", "USD/shares", ratio)},
		func(p *core.Period, v float64) { p.EPSBasic = &v }},
	{[]concept{
		gaap("CommonStockSharesOutstanding", "shares", point),
		{taxonomy: "dei", name: "EntityCommonStockSharesOutstanding", unit: "shares", kind: cover},
		gaap("WeightedAverageNumberOfSharesOutstandingBasic", "shares", ratio),
	}, func(p *core.Period, v float64) { p.SharesOutstanding = &v }},
	{[]concept{gaap("DebtInstrumentCarryingAmount", "USD", point)},
		func(p *core.Period, v float64) { p.TotalDebt = &v }},
	{[]concept{
		gaap("LongTermDebtNoncurrent", "USD", point),
		gaap("LongTermDebt", "USD", point),
	}, func(p *core.Period, v float64) { p.LongTermDebt = &v }},
	{[]concept{
		gaap("LongTermDebtCurrent", "USD", point),
		gaap("ShortTermBorrowings", "USD", point),
		gaap("DebtCurrent", "USD", point),
	}, func(p *core.Period, v float64) { p.ShortTermDebt = &v }},
	{[]concept{
		gaap("CashAndCashEquivalentsAtCarryingValue", "USD", point),
		gaap("CashCashEquivalentsRestrictedCashAndRestrictedCashEquivalents", "USD", point),
	}, func(p *core.Period, v float64) { p.Cash = &v }},
	{[]concept{
		gaap("StockholdersEquity", "USD", point),
		gaap("StockholdersEquityIncludingPortionAttributableToNoncontrollingInterest", "USD", point),
	}, func(p *core.Period, v float64) { p.TotalEquity = &v }},
	{[]concept{gaap("Assets", "USD", point)},
		func(p *core.Period, v float64) { p.TotalAssets = &v }},
}

// anchors are the concepts whose durations define which periods exist.
var anchors = []concept{
	gaap("Revenues", "USD", flow),
	gaap("RevenueFromContractWithCustomerExcludingAssessedTax", "USD", flow),
	gaap("RevenueFromContractWithCustomerIncludingAssessedTax", "USD", flow),
	gaap("SalesRevenueNet", "USD", flow),
	gaap("NetIncomeLoss", "USD", flow),
	gaap("EarningsPerShareBasic", "USD/shares", ratio),
}

var reportForms = map[string]bool{
	"10-Q": true, "10-Q/A": true,
	"10-K": true, "10-K/A": true,
	"20-F": true, "20-F/A": true,
	"40-F": true, "40-F/A": true,
}

type fact struct {
	start time.Time // zero for instants
	end   time.Time
	val   float64
	filed time.Time // first filing of this value
	last  time.Time // latest filing, whose value is kept
}

func (f fact) days() int {
	return int(f.end.Sub(f.start).Hours()/24 + 0.5)
}

func isQuarter(days int) bool { return days >= 80 && days <= 100 }
func isYear(days int) bool    { return days >= 350 && days <= 380 }

// value is a resolved figure for one period end.
type value struct {
	val   float64
	filed time.Time
}

// facts is the parsed companyfacts document.
type facts struct {
	doc   gjson.Result
	cache map[concept][]fact
}

func parseFacts(body []byte) *facts {
	return &facts{doc: gjson.ParseBytes(body), cache: make(map[concept][]fact)}
}

func (fs *facts) entityName() string {
	return fs.doc.Get("entityName").String()
}

// load returns the deduplicated facts for c. When a value was restated the
// latest filing's value is kept along with the first filing date.
func (fs *facts) load(c concept) []fact {
	if cached, ok := fs.cache[c]; ok {
		return cached
	}

	type key struct{ start, end string }
	byKey := make(map[key]*fact)
	var order []key

	path := "facts." + c.taxonomy + "." + c.name + ".units." + c.unit
	fs.doc.Get(path).ForEach(func(_, v gjson.Result) bool {
		if !reportForms[v.Get("form").String()] {
			return true
		}
		end, err := time.Parse(dateLayout, v.Get("end").String())
		if err != nil {
			return true
		}
		var start time.Time
		if s := v.Get("start").String(); s != "" {
			if start, err = time.Parse(dateLayout, s); err != nil {
				return true
			}
		}
		filed, _ := time.Parse(dateLayout, v.Get("filed").String())

		k := key{v.Get("start").String(), v.Get("end").String()}
		existing, ok := byKey[k]
		if !ok {
			byKey[k] = &fact{start: start, end: end, val: v.Get("val").Float(), filed: filed, last: filed}
			order = append(order, k)
			return true
		}
		if filed.Before(existing.filed) {
			existing.filed = filed
		}
		if !filed.Before(existing.last) {
			existing.last = filed
			existing.val = v.Get("val").Float()
		}
		return true
	})

	out := make([]fact, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	fs.cache[c] = out
	return out
}

// quarterly resolves c to quarter values keyed by period end.
func (fs *facts) quarterly(c concept) map[time.Time]value {
	out := make(map[time.Time]value)
	all := fs.load(c)

	switch c.kind {
	case point, cover:
		for _, f := range all {
			if f.start.IsZero() {
				out[f.end] = value{f.val, f.filed}
			}
		}
		return out
	}

	for _, f := range all {
		if !f.start.IsZero() && isQuarter(f.days()) {
			out[f.end] = value{f.val, f.filed}
		}
	}
	if c.kind != flow {
		return out
	}

	// Year-to-date chains share a start date: Q2 = 6M - 3M, Q4 = 12M - 9M.
	// Starts are walked in order so overlapping chains resolve the same
	// way on every fetch.
	byStart := make(map[time.Time][]fact)
	var starts []time.Time
	for _, f := range all {
		if f.start.IsZero() {
			continue
		}
		if _, ok := byStart[f.start]; !ok {
			starts = append(starts, f.start)
		}
		byStart[f.start] = append(byStart[f.start], f)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	for _, start := range starts {
		chain := byStart[start]
		sort.Slice(chain, func(i, j int) bool { return chain[i].end.Before(chain[j].end) })
		for i := 1; i < len(chain); i++ {
			prev, cur := chain[i-1], chain[i]
			if _, ok := out[cur.end]; ok {
				continue
			}
			if isQuarter(cur.days() - prev.days()) {
				out[cur.end] = value{cur.val - prev.val, cur.filed}
			}
		}
	}

	// Filers that tag only discrete quarters leave Q4 = FY - (Q1+Q2+Q3).
	for _, f := range all {
		if f.start.IsZero() || !isYear(f.days()) {
			continue
		}
		if _, ok := out[f.end]; ok {
			continue
		}
		if q4, ok := fourthQuarter(out, f); ok {
			out[f.end] = q4
		}
	}
	return out
}

// fourthQuarter derives the last quarter of fiscal year fy from exactly
// three resolved quarters ending inside it.
func fourthQuarter(quarters map[time.Time]value, fy fact) (value, bool) {
	var (
		sum    float64
		n      int
		lastQ3 time.Time
	)
	for end, v := range quarters {
		if !end.After(fy.start) || !end.Before(fy.end) {
			continue
		}
		sum += v.val
		n++
		if end.After(lastQ3) {
			lastQ3 = end
		}
	}
	if n != 3 || !isQuarter(int(fy.end.Sub(lastQ3).Hours()/24+0.5)) {
		return value{}, false
	}
	return value{fy.val - sum, fy.filed}, true
}

// annual resolves c to fiscal-year values keyed by period end.
func (fs *facts) annual(c concept) map[time.Time]value {
	out := make(map[time.Time]value)
	for _, f := range fs.load(c) {
		switch {
		case c.kind == point || c.kind == cover:
			if f.start.IsZero() {
				out[f.end] = value{f.val, f.filed}
			}
		case !f.start.IsZero() && isYear(f.days()):
			out[f.end] = value{f.val, f.filed}
		}
	}
	return out
}

// lookup finds the value for end, allowing cover facts to trail it.
func lookup(values map[time.Time]value, kind factKind, end time.Time) (value, bool) {
	if v, ok := values[end]; ok {
		return v, true
	}
	if kind != cover {
		return value{}, false
	}
	var best value
	var bestAt time.Time
	found := false
	for at, v := range values {
		if at.After(end) && at.Sub(end) <= coverLag && (!found || at.Before(bestAt)) {
			best, bestAt, found = v, at, true
		}
	}
	return best, found
}

// Quarters builds newest-first quarterly periods.
func (fs *facts) Quarters() []core.Period {
	return fs.series(fs.quarterly, maxQuarters, maxQuarterGap)
}

// Years builds newest-first fiscal-year periods.
func (fs *facts) Years() []core.Period {
	return fs.series(fs.annual, maxYears, maxYearGap)
}

// series lists the resolved periods newest first. It stops at the first
// missing period so index n is always n periods back.
func (fs *facts) series(resolve func(concept) map[time.Time]value, limit int, maxGap time.Duration) []core.Period {
	ends := make(map[time.Time]time.Time) // end -> first filed
	for _, c := range anchors {
		for end, v := range resolve(c) {
			if first, ok := ends[end]; !ok || (!v.filed.IsZero() && v.filed.Before(first)) {
				ends[end] = v.filed
			}
		}
	}

	sorted := make([]time.Time, 0, len(ends))
	for end := range ends {
		sorted = append(sorted, end)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].After(sorted[j]) })
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Sub(sorted[i]) > maxGap {
			sorted = sorted[:i]
			break
		}
	}
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	resolved := make(map[concept]map[time.Time]value)
	periods := make([]core.Period, len(sorted))
	for i, end := range sorted {
		p := core.Period{PeriodEnd: end}
		if filed := ends[end]; !filed.IsZero() {
			p.FiledAt = &filed
		}
		for _, fld := range fields {
			for _, c := range fld.concepts {
				values, ok := resolved[c]
				if !ok {
					values = resolve(c)
					resolved[c] = values
				}
				if v, ok := lookup(values, c.kind, end); ok {
					fld.set(&p, v.val)
					break
				}
			}
		}
		periods[i] = p
	}
	return periods
}
