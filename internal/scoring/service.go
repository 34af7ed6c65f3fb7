// Package scoring runs the fetch, normalize and evaluate pipeline for a
// ticker and records the outcome.
package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/newthinker/scorecard/internal/collector"
	"github.com/newthinker/scorecard/internal/core"
	"github.com/newthinker/scorecard/internal/metrics"
	"github.com/newthinker/scorecard/internal/normalize"
	"github.com/newthinker/scorecard/internal/notifier"
	"github.com/newthinker/scorecard/internal/router"
	"github.com/newthinker/scorecard/internal/rules"
	"github.com/newthinker/scorecard/internal/storage/archive"
	"github.com/newthinker/scorecard/internal/storage/score"
)

// Report is the full outcome of scoring one ticker.
type Report struct {
	RecordID  string          `json:"recordId,omitempty"`
	Ticker    string          `json:"ticker"`
	AsOf      time.Time       `json:"asOf"`
	Stock     core.Stock      `json:"stock"`
	Scorecard rules.Scorecard `json:"scorecard"`
	// TierChange is set when the tier differs from the previously stored
	// record and a router is configured.
	TierChange *notifier.Event `json:"tierChange,omitempty"`
}

// Result pairs a ticker with its report or error in batch runs.
type Result struct {
	Ticker string  `json:"ticker"`
	Report *Report `json:"report,omitempty"`
	Err    error   `json:"-"`
}

// Service wires a filing source, the rule engine and the outputs.
type Service struct {
	filings     collector.FilingSource
	quotes      collector.QuoteSource
	engine      *rules.Engine
	store       score.Store
	archive     archive.Storage
	metrics     *metrics.Registry
	router      *router.Router
	logger      *zap.Logger
	normalize   []normalize.Option
	concurrency int
	now         func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithQuotes fills missing prices from a quote source.
func WithQuotes(q collector.QuoteSource) Option {
	return func(s *Service) { s.quotes = q }
}

// WithStore persists a record for every scorecard.
func WithStore(st score.Store) Option {
	return func(s *Service) { s.store = st }
}

// WithArchive writes every report as JSON to cold storage.
func WithArchive(a archive.Storage) Option {
	return func(s *Service) { s.archive = a }
}

// WithMetrics records scoring metrics.
func WithMetrics(m *metrics.Registry) Option {
	return func(s *Service) { s.metrics = m }
}

// WithRouter announces tier changes against the previously stored
// record. It has no effect without a store.
func WithRouter(r *router.Router) Option {
	return func(s *Service) { s.router = r }
}

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithNormalizeOptions passes split and freshness policy to the normalizer.
func WithNormalizeOptions(opts ...normalize.Option) Option {
	return func(s *Service) { s.normalize = append(s.normalize, opts...) }
}

// WithConcurrency bounds ScoreMany fan-out.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewService creates a scoring service. filings may be nil when only
// caller-supplied view-models are scored.
func NewService(filings collector.FilingSource, engine *rules.Engine, opts ...Option) *Service {
	s := &Service{
		filings:     filings,
		engine:      engine,
		logger:      zap.NewNop(),
		concurrency: 4,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the rule engine.
func (s *Service) Engine() *rules.Engine {
	return s.engine
}

// Router returns the tier-change router, or nil.
func (s *Service) Router() *router.Router {
	return s.router
}

// ScoreViewModel normalizes vm, evaluates it and records the result.
// Persistence failures are returned; archive failures are only logged.
func (s *Service) ScoreViewModel(ctx context.Context, vm normalize.ViewModel) (*Report, error) {
	report, err := s.scoreViewModel(ctx, vm)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, report)
	return report, nil
}

func (s *Service) scoreViewModel(ctx context.Context, vm normalize.ViewModel) (*Report, error) {
	if strings.TrimSpace(vm.Ticker) == "" {
		return nil, core.WrapError(core.ErrInvalidInput, fmt.Errorf("view-model has no ticker"))
	}
	start := time.Now()

	// Staleness is measured against AsOf, so undated input is scored as of now.
	if vm.AsOf.IsZero() {
		vm.AsOf = s.now()
	}
	stock := normalize.BuildStockForRules(vm, s.normalize...)
	card := s.engine.Evaluate(stock)

	report := &Report{
		Ticker:    stock.Ticker,
		AsOf:      vm.AsOf.UTC(),
		Stock:     stock,
		Scorecard: card,
	}

	var previous *score.Record
	if s.store != nil {
		if s.router.Enabled() {
			previous, _ = s.store.Latest(ctx, stock.Ticker)
		}
		rec := &score.Record{
			Ticker:      stock.Ticker,
			CompanyName: stock.CompanyName,
			Sector:      stock.SectorBucket,
			Score:       card.Score,
			Tier:        card.Tier,
			Results:     card.Results,
			AsOf:        report.AsOf,
		}
		if err := s.store.Save(ctx, rec); err != nil {
			return nil, fmt.Errorf("saving score for %s: %w", stock.Ticker, err)
		}
		report.RecordID = rec.ID
	}

	s.archiveReport(ctx, report)
	s.record(report, time.Since(start))
	if previous != nil && previous.Tier != card.Tier {
		report.TierChange = &notifier.Event{
			Ticker:        report.Ticker,
			CompanyName:   stock.CompanyName,
			PreviousTier:  previous.Tier,
			Tier:          card.Tier,
			PreviousScore: previous.Score,
			Score:         card.Score,
			AsOf:          report.AsOf,
		}
	}

	fields := []zap.Field{
		zap.String("ticker", report.Ticker),
		zap.String("tier", string(card.Tier)),
		zap.Int("applicable", card.Applicable),
		zap.String("basis", string(stock.DataQuality.Basis)),
	}
	if card.Score != nil {
		fields = append(fields, zap.Float64("score", *card.Score))
	}
	s.logger.Info("scored", fields...)

	return report, nil
}

// ScoreTicker fetches filings for ticker and scores them. A failed quote
// lookup only leaves valuation rules without a price.
func (s *Service) ScoreTicker(ctx context.Context, ticker string) (*Report, error) {
	report, err := s.scoreTicker(ctx, ticker)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, report)
	return report, nil
}

func (s *Service) scoreTicker(ctx context.Context, ticker string) (*Report, error) {
	if s.filings == nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("no filing source configured"))
	}
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	vm, err := s.filings.FetchViewModel(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("fetching %s from %s: %w", ticker, s.filings.Name(), err)
	}

	if s.quotes != nil {
		q, err := s.quotes.FetchQuote(ctx, ticker)
		if err != nil {
			s.logger.Warn("quote unavailable",
				zap.String("ticker", ticker),
				zap.String("source", s.quotes.Name()),
				zap.Error(err),
			)
		} else {
			collector.ApplyQuote(vm, q)
		}
	}

	return s.scoreViewModel(ctx, *vm)
}

// announce routes a single report's tier change.
func (s *Service) announce(ctx context.Context, report *Report) {
	if report.TierChange != nil {
		s.router.Route(ctx, *report.TierChange)
	}
}

// ScoreMany scores tickers with bounded concurrency. Results keep the
// input order with duplicates removed; per-ticker failures are reported
// in Result.Err. progress, when set, is called after each ticker. Tier
// changes are routed together once every ticker is done.
func (s *Service) ScoreMany(ctx context.Context, tickers []string, progress func(done, total int)) []Result {
	results := make([]Result, 0, len(tickers))
	seen := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		results = append(results, Result{Ticker: t})
	}

	var (
		g    errgroup.Group
		done = make(chan struct{}, len(results))
	)
	g.SetLimit(s.concurrency)

	for i := range results {
		g.Go(func() error {
			defer func() { done <- struct{}{} }()
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			report, err := s.scoreTicker(ctx, results[i].Ticker)
			results[i].Report, results[i].Err = report, err
			if err != nil {
				s.logger.Warn("scoring failed", zap.String("ticker", results[i].Ticker), zap.Error(err))
			}
			return nil
		})
	}

	go func() {
		g.Wait()
		close(done)
	}()

	n := 0
	for range done {
		n++
		if progress != nil {
			progress(n, len(results))
		}
	}

	var changes []notifier.Event
	for _, r := range results {
		if r.Report != nil && r.Report.TierChange != nil {
			changes = append(changes, *r.Report.TierChange)
		}
	}
	if len(changes) > 0 {
		s.router.RouteBatch(ctx, changes)
	}
	return results
}

func (s *Service) archiveReport(ctx context.Context, report *Report) {
	if s.archive == nil {
		return
	}
	data, err := json.Marshal(report)
	if err == nil {
		err = s.archive.Write(ctx, archive.ScoreKey(report.Ticker, report.AsOf), data)
	}
	if err != nil {
		s.logger.Warn("archiving report failed", zap.String("ticker", report.Ticker), zap.Error(err))
	}
}

func (s *Service) record(report *Report, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordScore(string(report.Scorecard.Tier), elapsed.Seconds())
	for _, o := range report.Scorecard.Results {
		s.metrics.RecordRuleOutcome(o.Rule, outcomeStatus(o))
	}
	if sig := report.Stock.ShareStats.SplitSignal; sig != nil && sig.Flagged {
		s.metrics.RecordSplitSignal(string(sig.RatioType))
	}
}

func outcomeStatus(o rules.Outcome) string {
	switch {
	case o.NotApplicable:
		return "not_applicable"
	case o.Missing:
		return "missing"
	default:
		return "scored"
	}
}

// Errors joins the failures of a batch run, or returns nil.
func Errors(results []Result) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Ticker, r.Err))
		}
	}
	return errors.Join(errs...)
}
