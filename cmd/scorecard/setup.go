package main

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/scorecard/internal/collector"
	"github.com/newthinker/scorecard/internal/collector/edgar"
	"github.com/newthinker/scorecard/internal/collector/yahoo"
	"github.com/newthinker/scorecard/internal/config"
	"github.com/newthinker/scorecard/internal/logger"
	"github.com/newthinker/scorecard/internal/metrics"
	"github.com/newthinker/scorecard/internal/normalize"
	"github.com/newthinker/scorecard/internal/notifier"
	"github.com/newthinker/scorecard/internal/notifier/webhook"
	"github.com/newthinker/scorecard/internal/router"
	"github.com/newthinker/scorecard/internal/rules"
	"github.com/newthinker/scorecard/internal/rules/heuristics"
	"github.com/newthinker/scorecard/internal/scoring"
	"github.com/newthinker/scorecard/internal/storage/archive"
	"github.com/newthinker/scorecard/internal/storage/score"
)

// components are the wired pieces shared by the commands.
type components struct {
	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Registry
	engine  *rules.Engine
	filings collector.FilingSource
	quotes  collector.QuoteSource
	store   *score.MemoryStore
	archive archive.Storage
	router  *router.Router
	service *scoring.Service
}

// loadConfig reads and validates the config file, falling back to
// defaults when none is given.
func loadConfig() (*config.Config, bool, error) {
	if cfgFile == "" {
		return config.Defaults(), false, nil
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, false, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, true, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	opts := logger.Options{
		Development: debug || cfg.Log.Development,
		Level:       cfg.Log.Level,
	}
	if debug {
		opts.Level = "debug"
	}
	return logger.New(opts)
}

// newEngine registers the configured rules and normalization policy.
func newEngine(cfg *config.Config, log *zap.Logger) (*rules.Engine, error) {
	engine := rules.NewEngine(log.Named("rules"))
	if err := engine.SetPolicy(cfg.Scoring.Policy()); err != nil {
		return nil, err
	}
	if err := heuristics.Register(engine, cfg.RuleConfigs()); err != nil {
		return nil, err
	}
	return engine, nil
}

// setup wires every component from the config.
func setup() (*components, error) {
	cfg, fromFile, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	if !fromFile {
		log.Debug("no config file specified, using defaults")
	}

	c := &components{cfg: cfg, log: log, metrics: metrics.NewRegistry()}

	if c.engine, err = newEngine(cfg, log); err != nil {
		return nil, err
	}

	client, err := edgar.NewClient(cfg.Edgar.UserAgent,
		edgar.WithBaseURL(cfg.Edgar.BaseURL),
		edgar.WithTickersURL(cfg.Edgar.TickersURL),
		edgar.WithTimeout(cfg.Edgar.Timeout),
		edgar.WithRateLimit(cfg.Edgar.RequestsPerSecond),
		edgar.WithLogger(log.Named("edgar")),
		edgar.WithRequestObserver(c.metrics.RecordEdgarRequest),
	)
	if err != nil {
		return nil, err
	}
	c.filings = edgar.New(client, log.Named("edgar"))

	if cfg.Quotes.Enabled {
		c.quotes = yahoo.New(cfg.Quotes.BaseURL, cfg.Quotes.Timeout)
	}

	c.store = score.NewMemoryStore(cfg.Storage.Scores.MaxRecords)

	a := cfg.Storage.Archive
	c.archive, err = archive.New(archive.Options{
		Type: a.Type,
		Path: a.Path,
		S3: archive.S3Config{
			Bucket:    a.S3.Bucket,
			Endpoint:  a.S3.Endpoint,
			Region:    a.S3.Region,
			AccessKey: a.S3.AccessKey,
			SecretKey: a.S3.SecretKey,
			Prefix:    a.S3.Prefix,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	notifiers := notifier.NewRegistry()
	if hook := cfg.Notify.Webhook; hook.URL != "" {
		w, err := webhook.New(hook.URL, hook.Headers)
		if err != nil {
			return nil, err
		}
		if err := notifiers.Register(w); err != nil {
			return nil, err
		}
	}
	c.router = router.New(router.Config{
		MinSteps:         cfg.Notify.MinSteps,
		CooldownDuration: cfg.Notify.Cooldown,
		Directions:       cfg.Notify.Directions,
	}, notifiers, log.Named("router"))

	opts := []scoring.Option{
		scoring.WithStore(c.store),
		scoring.WithMetrics(c.metrics),
		scoring.WithRouter(c.router),
		scoring.WithLogger(log.Named("scoring")),
		scoring.WithConcurrency(cfg.Schedule.Concurrency),
		scoring.WithNormalizeOptions(
			normalize.WithSplitOptions(cfg.Scoring.SplitOptions()),
			normalize.WithFreshnessWindow(cfg.Scoring.FreshnessWindow()),
		),
	}
	if c.quotes != nil {
		opts = append(opts, scoring.WithQuotes(c.quotes))
	}
	if c.archive != nil {
		opts = append(opts, scoring.WithArchive(c.archive))
	}
	c.service = scoring.NewService(c.filings, c.engine, opts...)

	log.Debug("components ready",
		zap.Int("rules", len(c.engine.Rules())),
		zap.String("archive", a.Type),
		zap.Bool("quotes", c.quotes != nil),
		zap.Int("notifiers", notifiers.Len()),
		zap.Duration("edgar_timeout", cfg.Edgar.Timeout.Round(time.Second)),
	)
	return c, nil
}
