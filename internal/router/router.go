// Package router filters tier-change events before they reach notifiers.
package router

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/scorecard/internal/notifier"
	"github.com/newthinker/scorecard/internal/rules"
)

// Config holds router configuration
type Config struct {
	// MinSteps is how many tiers a ticker must move to be announced.
	// Moves to or from unrated always count.
	MinSteps         int           `mapstructure:"min_steps"`
	CooldownDuration time.Duration `mapstructure:"cooldown"`
	// Directions limits events to "upgrade", "downgrade" or "unrated".
	// Empty allows all.
	Directions []string `mapstructure:"directions"`
}

// DefaultConfig returns default router configuration
func DefaultConfig() Config {
	return Config{
		MinSteps:         1,
		CooldownDuration: 24 * time.Hour,
	}
}

// Router routes tier changes to notifiers with filtering
type Router struct {
	cfg       Config
	registry  *notifier.Registry
	logger    *zap.Logger
	cooldowns map[string]time.Time // ticker -> last event time
	mu        sync.RWMutex
	now       func() time.Time
}

// New creates a new router
func New(cfg Config, registry *notifier.Registry, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		cfg:       cfg,
		registry:  registry,
		logger:    logger,
		cooldowns: make(map[string]time.Time),
		now:       time.Now,
	}
}

// Enabled reports whether any notifier would receive events.
func (r *Router) Enabled() bool {
	return r != nil && r.registry != nil && r.registry.Len() > 0
}

// Route sends event to every notifier if it passes the filters. It
// reports whether the event was sent; notifier failures are logged.
func (r *Router) Route(ctx context.Context, event notifier.Event) bool {
	if !r.passesFilters(event) {
		r.logger.Debug("tier change filtered out",
			zap.String("ticker", event.Ticker),
			zap.String("direction", event.Direction()),
		)
		return false
	}

	r.mu.Lock()
	r.cooldowns[event.Ticker] = r.now()
	r.mu.Unlock()

	if r.registry == nil {
		return true
	}
	errors := r.registry.NotifyAll(ctx, event)
	for name, err := range errors {
		r.logger.Warn("notifier failed",
			zap.String("ticker", event.Ticker),
			zap.String("notifier", name),
			zap.Error(err),
		)
	}

	r.logger.Info("tier change routed",
		zap.String("ticker", event.Ticker),
		zap.String("from", string(event.PreviousTier)),
		zap.String("to", string(event.Tier)),
		zap.Int("notifiers", r.registry.Len()),
		zap.Int("errors", len(errors)),
	)
	return true
}

// RouteBatch filters events and sends the survivors as one batch. It
// returns how many were sent.
func (r *Router) RouteBatch(ctx context.Context, events []notifier.Event) int {
	var filtered []notifier.Event

	for _, event := range events {
		if r.passesFilters(event) {
			filtered = append(filtered, event)

			r.mu.Lock()
			r.cooldowns[event.Ticker] = r.now()
			r.mu.Unlock()
		}
	}

	if len(filtered) == 0 || r.registry == nil {
		return len(filtered)
	}

	errors := r.registry.NotifyAllBatch(ctx, filtered)
	for name, err := range errors {
		r.logger.Warn("notifier failed on batch",
			zap.String("notifier", name),
			zap.Error(err),
		)
	}

	r.logger.Info("batch routed",
		zap.Int("total", len(events)),
		zap.Int("filtered", len(filtered)),
		zap.Int("errors", len(errors)),
	)
	return len(filtered)
}

// passesFilters checks if an event passes all configured filters
func (r *Router) passesFilters(event notifier.Event) bool {
	if event.PreviousTier == event.Tier {
		return false
	}

	direction := event.Direction()
	if len(r.cfg.Directions) > 0 && !slices.Contains(r.cfg.Directions, direction) {
		return false
	}

	if direction != "unrated" && steps(event.PreviousTier, event.Tier) < r.cfg.MinSteps {
		return false
	}

	r.mu.RLock()
	last, exists := r.cooldowns[event.Ticker]
	r.mu.RUnlock()

	if exists && r.now().Sub(last) < r.cfg.CooldownDuration {
		return false
	}

	return true
}

func steps(from, to rules.Tier) int {
	tiers := rules.Tiers()
	d := slices.Index(tiers, from) - slices.Index(tiers, to)
	if d < 0 {
		return -d
	}
	return d
}

// CleanupExpiredCooldowns removes cooldown entries older than 2x the cooldown duration.
func (r *Router) CleanupExpiredCooldowns() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	expiry := r.cfg.CooldownDuration * 2
	removed := 0

	for ticker, last := range r.cooldowns {
		if now.Sub(last) > expiry {
			delete(r.cooldowns, ticker)
			removed++
		}
	}

	return removed
}

// StartCleanupRoutine periodically drops expired cooldowns until ctx ends.
func (r *Router) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := r.CleanupExpiredCooldowns(); removed > 0 {
					r.logger.Debug("cleaned up expired cooldowns", zap.Int("removed", removed))
				}
			}
		}
	}()
}

// GetStats returns router statistics
func (r *Router) GetStats() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	notifiers := 0
	if r.registry != nil {
		notifiers = r.registry.Len()
	}
	return map[string]any{
		"notifiers":        notifiers,
		"cooldowns_active": len(r.cooldowns),
		"min_steps":        r.cfg.MinSteps,
		"cooldown_seconds": r.cfg.CooldownDuration.Seconds(),
		"directions":       r.cfg.Directions,
	}
}
