package score

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/newthinker/scorecard/internal/core"
)

// MemoryStore is an in-memory score store. When full, the oldest record
// is evicted.
type MemoryStore struct {
	records []Record
	maxSize int
	mu      sync.RWMutex
	now     func() time.Time
}

// NewMemoryStore creates a new in-memory store with max capacity.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &MemoryStore{
		records: make([]Record, 0, min(maxSize, 1024)),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Save adds a record to the store. ID and ScoredAt are filled in when
// empty and written back to rec.
func (m *MemoryStore) Save(ctx context.Context, rec *Record) error {
	if rec == nil || strings.TrimSpace(rec.Ticker) == "" {
		return core.WrapError(core.ErrInvalidInput, fmt.Errorf("score record needs a ticker"))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec.Ticker = strings.ToUpper(strings.TrimSpace(rec.Ticker))
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.ScoredAt.IsZero() {
		rec.ScoredAt = m.now().UTC()
	}

	m.records = append(m.records, *rec)

	// Trim if over capacity (remove oldest)
	if len(m.records) > m.maxSize {
		m.records = append([]Record(nil), m.records[len(m.records)-m.maxSize:]...)
	}

	return nil
}

// GetByID retrieves a record by ID.
func (m *MemoryStore) GetByID(ctx context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.records {
		if m.records[i].ID == id {
			rec := m.records[i]
			return &rec, nil
		}
	}
	return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("score %s", id))
}

// Latest returns the newest record for ticker.
func (m *MemoryStore) Latest(ctx context.Context, ticker string) (*Record, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].Ticker == ticker {
			rec := m.records[i]
			return &rec, nil
		}
	}
	return nil, core.WrapError(core.ErrTickerNotFound, fmt.Errorf("no score for %s", ticker))
}

// List returns records matching the filter, newest first.
func (m *MemoryStore) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []Record{}
	for i := len(m.records) - 1; i >= 0; i-- {
		if matches(m.records[i], filter) {
			result = append(result, m.records[i])
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ScoredAt.After(result[j].ScoredAt)
	})

	// Apply offset and limit
	if filter.Offset >= len(result) {
		return []Record{}, nil
	}
	if filter.Offset > 0 {
		result = result[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

// Count returns the count of matching records.
func (m *MemoryStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, rec := range m.records {
		if matches(rec, filter) {
			count++
		}
	}
	return count, nil
}

func matches(rec Record, filter ListFilter) bool {
	if filter.Ticker != "" && !strings.EqualFold(rec.Ticker, filter.Ticker) {
		return false
	}
	if filter.Tier != "" && rec.Tier != filter.Tier {
		return false
	}
	if !filter.From.IsZero() && rec.ScoredAt.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && rec.ScoredAt.After(filter.To) {
		return false
	}
	return true
}
