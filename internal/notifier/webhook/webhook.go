// Package webhook implements an HTTP webhook notifier
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/scorecard/internal/core"
	"github.com/newthinker/scorecard/internal/notifier"
)

// Webhook implements the Notifier interface for HTTP webhooks
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// New creates a new Webhook notifier
func New(url string, headers map[string]string) (*Webhook, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("webhook: url must be http(s), got %q", url))
	}
	return &Webhook{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Send(ctx context.Context, event notifier.Event) error {
	return w.post(ctx, eventPayload(event))
}

func (w *Webhook) SendBatch(ctx context.Context, events []notifier.Event) error {
	if len(events) == 0 {
		return nil
	}

	payloads := make([]map[string]any, len(events))
	for i, e := range events {
		payloads[i] = eventPayload(e)
	}

	return w.post(ctx, map[string]any{
		"type":   "batch",
		"count":  len(events),
		"events": payloads,
	})
}

func eventPayload(e notifier.Event) map[string]any {
	return map[string]any{
		"type":           "tier_change",
		"ticker":         e.Ticker,
		"company_name":   e.CompanyName,
		"direction":      e.Direction(),
		"previous_tier":  e.PreviousTier,
		"tier":           e.Tier,
		"previous_score": e.PreviousScore,
		"score":          e.Score,
		"summary":        e.String(),
		"as_of":          e.AsOf.Format(time.DateOnly),
	}
}

func (w *Webhook) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: server returned %d", resp.StatusCode)
	}

	return nil
}
