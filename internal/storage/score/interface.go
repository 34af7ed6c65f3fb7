package score

import (
	"context"
	"time"

	"github.com/newthinker/scorecard/internal/rules"
)

// Record is one persisted scorecard for a ticker.
type Record struct {
	ID          string          `json:"id"`
	Ticker      string          `json:"ticker"`
	CompanyName string          `json:"companyName,omitempty"`
	Sector      string          `json:"sector,omitempty"`
	Score       *float64        `json:"score"`
	Tier        rules.Tier      `json:"tier"`
	Results     []rules.Outcome `json:"results,omitempty"`
	AsOf        time.Time       `json:"asOf"`
	ScoredAt    time.Time       `json:"scoredAt"`
}

// Store defines the interface for score persistence.
type Store interface {
	// Save persists a record and assigns an ID when it has none.
	Save(ctx context.Context, rec *Record) error

	// GetByID retrieves a record by its ID.
	GetByID(ctx context.Context, id string) (*Record, error)

	// Latest returns the most recently scored record for ticker.
	Latest(ctx context.Context, ticker string) (*Record, error)

	// List retrieves records matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]Record, error)

	// Count returns the number of records matching the filter.
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// ListFilter defines criteria for listing records. From and To bound
// ScoredAt, inclusive.
type ListFilter struct {
	Ticker string
	Tier   rules.Tier
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}
