package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/scorecard/internal/api/response"
	"github.com/newthinker/scorecard/internal/core"
	"github.com/newthinker/scorecard/internal/normalize"
	"github.com/newthinker/scorecard/internal/rules"
	"github.com/newthinker/scorecard/internal/scoring"
	"github.com/newthinker/scorecard/internal/storage/score"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	maxBodyBytes     = 4 << 20
)

// ScoreHandler handles scoring API requests.
type ScoreHandler struct {
	service *scoring.Service
	store   score.Store
}

// NewScoreHandler creates a new score handler. store may be nil.
func NewScoreHandler(service *scoring.Service, store score.Store) *ScoreHandler {
	return &ScoreHandler{service: service, store: store}
}

// Score evaluates a caller-supplied view-model.
func (h *ScoreHandler) Score(w http.ResponseWriter, r *http.Request) {
	var vm normalize.ViewModel
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&vm); err != nil {
		response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrInvalidInput, err))
		return
	}

	report, err := h.service.ScoreViewModel(r.Context(), vm)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, report)
}

// Get returns the latest stored scorecard for a ticker. With
// refresh=true, or when nothing is stored, the ticker is scored live.
func (h *ScoreHandler) Get(w http.ResponseWriter, r *http.Request, ticker string) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrInvalidInput, fmt.Errorf("ticker is required")))
		return
	}

	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	if !refresh && h.store != nil {
		rec, err := h.store.Latest(r.Context(), ticker)
		if err == nil {
			response.JSON(w, http.StatusOK, map[string]any{
				"source": "store",
				"record": rec,
			})
			return
		}
		if !errors.Is(err, core.ErrTickerNotFound) {
			response.FromError(w, err)
			return
		}
	}

	report, err := h.service.ScoreTicker(r.Context(), ticker)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"source": "live",
		"report": report,
	})
}

// List returns stored scorecards matching query parameters.
func (h *ScoreHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		response.Error(w, http.StatusServiceUnavailable,
			core.WrapError(core.ErrConfigMissing, fmt.Errorf("score store disabled")))
		return
	}

	filter, err := parseListFilter(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrInvalidInput, err))
		return
	}

	records, err := h.store.List(r.Context(), filter)
	if err != nil {
		response.FromError(w, err)
		return
	}
	total, err := h.store.Count(r.Context(), filter)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Page(w, records, total)
}

func parseListFilter(r *http.Request) (score.ListFilter, error) {
	q := r.URL.Query()
	filter := score.ListFilter{
		Ticker: strings.ToUpper(strings.TrimSpace(q.Get("ticker"))),
		Limit:  defaultListLimit,
	}

	if tier := q.Get("tier"); tier != "" {
		t, ok := rules.ParseTier(tier)
		if !ok {
			return filter, fmt.Errorf("unknown tier %q", tier)
		}
		filter.Tier = t
	}

	var err error
	if filter.From, err = parseTime(q.Get("from")); err != nil {
		return filter, fmt.Errorf("from: %w", err)
	}
	if filter.To, err = parseTime(q.Get("to")); err != nil {
		return filter, fmt.Errorf("to: %w", err)
	}

	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			return filter, fmt.Errorf("limit must be a positive integer")
		}
		filter.Limit = min(n, maxListLimit)
	}
	if offset := q.Get("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("offset must be a non-negative integer")
		}
		filter.Offset = n
	}
	return filter, nil
}

// parseTime accepts RFC 3339 or a bare date.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}
