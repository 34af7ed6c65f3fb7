// Package notifier delivers tier-change events for scored tickers.
package notifier

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/newthinker/scorecard/internal/rules"
)

// Event reports that a ticker's tier changed between two scorings.
type Event struct {
	Ticker        string     `json:"ticker"`
	CompanyName   string     `json:"company_name,omitempty"`
	PreviousTier  rules.Tier `json:"previous_tier"`
	Tier          rules.Tier `json:"tier"`
	PreviousScore *float64   `json:"previous_score"`
	Score         *float64   `json:"score"`
	AsOf          time.Time  `json:"as_of"`
}

// Direction is "upgrade", "downgrade" or "unrated".
func (e Event) Direction() string {
	prev, cur := rank(e.PreviousTier), rank(e.Tier)
	switch {
	case cur < 0 || prev < 0:
		return "unrated"
	case cur < prev:
		return "upgrade"
	default:
		return "downgrade"
	}
}

// String renders a one-line summary.
func (e Event) String() string {
	return fmt.Sprintf("%s %s: %s -> %s (%s -> %s)",
		e.Ticker, e.Direction(), e.PreviousTier, e.Tier, fmtScore(e.PreviousScore), fmtScore(e.Score))
}

// rank is the position in rules.Tiers, best first; -1 when unrated.
func rank(t rules.Tier) int {
	return slices.Index(rules.Tiers(), t)
}

func fmtScore(s *float64) string {
	if s == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *s)
}

// Notifier defines the interface for tier-change notification
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Send delivers a single event
	Send(ctx context.Context, event Event) error

	// SendBatch delivers multiple events at once
	SendBatch(ctx context.Context, events []Event) error
}
