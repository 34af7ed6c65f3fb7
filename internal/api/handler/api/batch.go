package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/scorecard/internal/api/job"
	"github.com/newthinker/scorecard/internal/api/response"
	"github.com/newthinker/scorecard/internal/core"
	"github.com/newthinker/scorecard/internal/metrics"
	"github.com/newthinker/scorecard/internal/rules"
	"github.com/newthinker/scorecard/internal/scoring"
)

const (
	batchTimeout    = 10 * time.Minute
	maxBatchTickers = 200
)

// BatchRequest is the request body for starting a batch. Watchlist
// scores the current watchlist instead of Tickers.
type BatchRequest struct {
	Tickers   []string `json:"tickers"`
	Watchlist bool     `json:"watchlist,omitempty"`
}

// BatchItem is the per-ticker outcome stored in a finished job.
type BatchItem struct {
	Ticker   string     `json:"ticker"`
	RecordID string     `json:"recordId,omitempty"`
	Score    *float64   `json:"score,omitempty"`
	Tier     rules.Tier `json:"tier,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// BatchHandler runs batch scoring jobs in the background.
type BatchHandler struct {
	jobStore  *job.Store
	service   *scoring.Service
	watchlist WatchlistApp
	metrics   *metrics.Registry
	logger    *zap.Logger
}

// NewBatchHandler creates a new batch handler. watchlist and m may be nil.
func NewBatchHandler(
	jobStore *job.Store,
	service *scoring.Service,
	watchlist WatchlistApp,
	m *metrics.Registry,
	logger *zap.Logger,
) *BatchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchHandler{
		jobStore:  jobStore,
		service:   service,
		watchlist: watchlist,
		metrics:   m,
		logger:    logger,
	}
}

// Create starts a new batch job.
func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrInvalidInput, err))
		return
	}

	tickers := req.Tickers
	if req.Watchlist && h.watchlist != nil {
		tickers = h.watchlist.GetWatchlist()
	}
	if len(tickers) == 0 {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrInvalidInput, fmt.Errorf("no tickers to score")))
		return
	}
	if len(tickers) > maxBatchTickers {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrInvalidInput,
				fmt.Errorf("at most %d tickers per batch, got %d", maxBatchTickers, len(tickers))))
		return
	}

	j := h.jobStore.Create("batch")
	h.publishActive()

	// Copy values before starting goroutine to avoid race
	jobID := j.ID
	status := j.Status

	go h.run(jobID, tickers)

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id":  jobID,
		"status":  status,
		"tickers": len(tickers),
	})
}

// run scores the batch and updates job status.
func (h *BatchHandler) run(jobID string, tickers []string) {
	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	results := h.service.ScoreMany(ctx, tickers, func(done, total int) {
		h.jobStore.Update(jobID, func(j *job.Job) {
			j.Progress = done * 100 / total
		})
	})

	items := make([]BatchItem, len(results))
	failed := 0
	for i, res := range results {
		items[i] = BatchItem{Ticker: res.Ticker}
		if res.Err != nil {
			items[i].Error = res.Err.Error()
			failed++
			continue
		}
		items[i].RecordID = res.Report.RecordID
		items[i].Score = res.Report.Scorecard.Score
		items[i].Tier = res.Report.Scorecard.Tier
	}

	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Progress = 100
		j.Result = items
		if len(results) > 0 && failed == len(results) {
			j.Status = job.StatusFailed
			j.Error = core.WrapError(core.ErrCollectorFailed, scoring.Errors(results))
			return
		}
		j.Status = job.StatusComplete
	})
	h.publishActive()

	h.logger.Info("batch finished",
		zap.String("job_id", jobID),
		zap.Int("tickers", len(results)),
		zap.Int("failed", failed),
	)
}

// GetStatus returns the status of a batch job.
func (h *BatchHandler) GetStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	j, err := h.jobStore.Get(jobID)
	if err != nil {
		response.Error(w, http.StatusNotFound, err)
		return
	}

	resp := map[string]any{
		"job_id":   j.ID,
		"status":   j.Status,
		"progress": j.Progress,
	}

	if j.Status.Finished() {
		resp["result"] = j.Result
	}
	if j.Status == job.StatusFailed && j.Error != nil {
		resp["error"] = map[string]string{
			"code":    j.Error.Code,
			"message": j.Error.Message,
		}
	}

	response.JSON(w, http.StatusOK, resp)
}

func (h *BatchHandler) publishActive() {
	if h.metrics != nil {
		h.metrics.SetJobsActive(h.jobStore.Active())
	}
}
