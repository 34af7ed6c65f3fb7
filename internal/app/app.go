package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/newthinker/scorecard/internal/config"
	"github.com/newthinker/scorecard/internal/core"
	"github.com/newthinker/scorecard/internal/metrics"
	"github.com/newthinker/scorecard/internal/scoring"
)

// WatchlistItem is a ticker that is rescored on every scheduled run.
type WatchlistItem struct {
	Ticker  string    `json:"ticker"`
	Name    string    `json:"name,omitempty"`
	AddedAt time.Time `json:"addedAt"`
}

// RunSummary describes the last watchlist run.
type RunSummary struct {
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	Scored    int           `json:"scored"`
	Failed    int           `json:"failed"`
}

// App owns the watchlist and rescores it on the configured schedule.
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *scoring.Service
	metrics *metrics.Registry

	watchlistItems []WatchlistItem
	watchlistSet   map[string]struct{}

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	cron    *cron.Cron
	entry   cron.EntryID
	lastRun *RunSummary
}

// New creates an App seeded with the configured watchlist.
func New(cfg *config.Config, service *scoring.Service, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.Defaults()
	}

	a := &App{
		cfg:            cfg,
		logger:         logger,
		service:        service,
		watchlistItems: []WatchlistItem{},
		watchlistSet:   make(map[string]struct{}),
	}
	for _, item := range cfg.Watchlist {
		a.AddToWatchlist(item.Ticker, item.Name)
	}
	return a
}

// SetMetrics enables the watchlist size gauge.
func (a *App) SetMetrics(m *metrics.Registry) {
	a.mu.Lock()
	a.metrics = m
	a.mu.Unlock()
	a.publishSize()
}

// Service returns the scoring service.
func (a *App) Service() *scoring.Service {
	return a.service
}

// Start rescores the watchlist on the configured cron schedule until ctx
// is cancelled or Stop is called. A run still in progress when the next
// one is due is skipped.
func (a *App) Start(ctx context.Context) error {
	sched, err := cron.ParseStandard(a.cfg.Schedule.Cron)
	if err != nil {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("schedule cron: %w", err))
	}

	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	cl := cronLogger{a.logger.Sugar()}
	a.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	a.entry = a.cron.Schedule(sched, cron.FuncJob(func() { a.RunOnce(ctx) }))
	a.cron.Start()
	watchlist := len(a.watchlistItems)
	a.mu.Unlock()

	a.logger.Info("scorecard scheduler starting",
		zap.Int("watchlist_count", watchlist),
		zap.String("cron", a.cfg.Schedule.Cron),
	)

	<-ctx.Done()
	a.logger.Info("scorecard scheduler shutting down")

	// Wait for a run in flight; it sees the cancelled context.
	<-a.cron.Stop().Done()

	a.mu.Lock()
	a.running = false
	a.cron = nil
	a.mu.Unlock()
	return ctx.Err()
}

// Stop stops the scheduler loop.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

// RunOnce scores every watchlist ticker and returns the results.
func (a *App) RunOnce(ctx context.Context) []scoring.Result {
	tickers := a.GetWatchlist()
	if len(tickers) == 0 {
		a.logger.Debug("no tickers in watchlist")
		return nil
	}
	if a.service == nil {
		a.logger.Warn("no scoring service configured")
		return nil
	}

	start := time.Now()
	a.logger.Debug("starting watchlist run", zap.Int("tickers", len(tickers)))
	results := a.service.ScoreMany(ctx, tickers, nil)

	summary := &RunSummary{StartedAt: start, Duration: time.Since(start)}
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
		} else {
			summary.Scored++
		}
	}

	a.mu.Lock()
	a.lastRun = summary
	a.mu.Unlock()

	a.logger.Info("watchlist run complete",
		zap.Int("scored", summary.Scored),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Duration),
	)
	return results
}

// GetStats returns application statistics.
func (a *App) GetStats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := map[string]any{
		"running":   a.running,
		"watchlist": len(a.watchlistItems),
		"schedule":  a.cfg.Schedule.Cron,
	}
	if a.service != nil {
		stats["rules"] = len(a.service.Engine().Rules())
		if r := a.service.Router(); r.Enabled() {
			stats["notify"] = r.GetStats()
		}
	}
	if a.cron != nil {
		if next := a.cron.Entry(a.entry).Next; !next.IsZero() {
			stats["next_run"] = next
		}
	}
	if a.lastRun != nil {
		stats["last_run"] = *a.lastRun
	}
	return stats
}

// SetWatchlist replaces the watchlist.
func (a *App) SetWatchlist(tickers []string) {
	a.mu.Lock()
	a.watchlistItems = make([]WatchlistItem, 0, len(tickers))
	a.watchlistSet = make(map[string]struct{}, len(tickers))
	now := time.Now().UTC()
	for _, t := range tickers {
		t = normalizeTicker(t)
		if _, exists := a.watchlistSet[t]; t == "" || exists {
			continue
		}
		a.watchlistSet[t] = struct{}{}
		a.watchlistItems = append(a.watchlistItems, WatchlistItem{Ticker: t, AddedAt: now})
	}
	a.mu.Unlock()
	a.publishSize()
}

// GetWatchlist returns the current watchlist tickers.
func (a *App) GetWatchlist() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	result := make([]string, len(a.watchlistItems))
	for i, item := range a.watchlistItems {
		result[i] = item.Ticker
	}
	return result
}

// GetWatchlistItems returns the full watchlist items.
func (a *App) GetWatchlistItems() []WatchlistItem {
	a.mu.RLock()
	defer a.mu.RUnlock()
	result := make([]WatchlistItem, len(a.watchlistItems))
	copy(result, a.watchlistItems)
	return result
}

// AddToWatchlist adds ticker and reports whether it was new.
func (a *App) AddToWatchlist(ticker, name string) bool {
	ticker = normalizeTicker(ticker)
	if ticker == "" {
		return false
	}

	a.mu.Lock()
	if _, exists := a.watchlistSet[ticker]; exists {
		a.mu.Unlock()
		return false
	}
	a.watchlistSet[ticker] = struct{}{}
	a.watchlistItems = append(a.watchlistItems, WatchlistItem{
		Ticker:  ticker,
		Name:    strings.TrimSpace(name),
		AddedAt: time.Now().UTC(),
	})
	a.mu.Unlock()

	a.publishSize()
	return true
}

// RemoveFromWatchlist removes ticker and reports whether it was present.
func (a *App) RemoveFromWatchlist(ticker string) bool {
	ticker = normalizeTicker(ticker)

	a.mu.Lock()
	if _, exists := a.watchlistSet[ticker]; !exists {
		a.mu.Unlock()
		return false
	}
	delete(a.watchlistSet, ticker)
	for i, item := range a.watchlistItems {
		if item.Ticker == ticker {
			a.watchlistItems = append(a.watchlistItems[:i], a.watchlistItems[i+1:]...)
			break
		}
	}
	a.mu.Unlock()

	a.publishSize()
	return true
}

func (a *App) publishSize() {
	a.mu.RLock()
	m, n := a.metrics, len(a.watchlistItems)
	a.mu.RUnlock()
	if m != nil {
		m.SetWatchlistSize(n)
	}
}

func normalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

// cronLogger routes scheduler events to zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
