package heuristics

import (
	"github.com/newthinker/scorecard/internal/core"
	"github.com/newthinker/scorecard/internal/rules"
)

// DataFreshness discounts scores built on old filings.
type DataFreshness struct {
	base
}

func NewDataFreshness() *DataFreshness {
	return &DataFreshness{base{
		name:        "data_freshness",
		description: "Age of the latest filing",
		weight:      3,
		ladder:      lower(2, step{100, 10}, step{140, 6}),
	}}
}

func (r *DataFreshness) Evaluate(s core.Stock) rules.Result {
	dq := s.DataQuality
	if dq.LatestPeriodEnd == nil {
		return rules.Missing("no filings")
	}
	if dq.DaysSinceFiling == nil {
		return rules.NotApplicable("no reference date for staleness")
	}
	age := float64(*dq.DaysSinceFiling)
	if dq.IsStale {
		return rules.Scored(rules.MinRuleScore, "stale: latest filing %s old", format(age, unitDays))
	}
	return rules.Scored(r.ladder.score(age), "latest filing %s old", format(age, unitDays))
}
