package collector

import (
	"context"
	"time"

	"github.com/newthinker/scorecard/internal/normalize"
)

// FilingSource produces the raw scoring input for a ticker from periodic
// filings.
type FilingSource interface {
	Name() string
	FetchViewModel(ctx context.Context, ticker string) (*normalize.ViewModel, error)
}

// Quote is a point-in-time market price.
type Quote struct {
	Ticker    string    `json:"ticker"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency,omitempty"`
	MarketCap *float64  `json:"marketCap,omitempty"`
	Time      time.Time `json:"time"`
	Source    string    `json:"source"`
}

// QuoteSource fetches the latest price for a ticker.
type QuoteSource interface {
	Name() string
	FetchQuote(ctx context.Context, ticker string) (*Quote, error)
}

// ApplyQuote fills the view-model snapshot's price and market cap from q,
// keeping any values already present.
func ApplyQuote(vm *normalize.ViewModel, q *Quote) {
	if vm == nil || q == nil || q.Price <= 0 {
		return
	}
	if vm.Snapshot == nil {
		vm.Snapshot = &normalize.Snapshot{}
	}
	if vm.Snapshot.Price == nil {
		price := q.Price
		vm.Snapshot.Price = &price
	}
	if vm.Snapshot.MarketCap == nil && q.MarketCap != nil {
		mc := *q.MarketCap
		vm.Snapshot.MarketCap = &mc
	}
}
