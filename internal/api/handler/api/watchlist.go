package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/newthinker/scorecard/internal/api/response"
	"github.com/newthinker/scorecard/internal/app"
	"github.com/newthinker/scorecard/internal/core"
)

// WatchlistApp defines the interface needed from app.App.
type WatchlistApp interface {
	GetWatchlist() []string
	GetWatchlistItems() []app.WatchlistItem
	AddToWatchlist(ticker, name string) bool
	RemoveFromWatchlist(ticker string) bool
}

// WatchlistHandler handles watchlist API requests.
type WatchlistHandler struct {
	app WatchlistApp
}

// NewWatchlistHandler creates a new watchlist handler.
func NewWatchlistHandler(app WatchlistApp) *WatchlistHandler {
	return &WatchlistHandler{app: app}
}

// AddRequest is the request body for adding a ticker.
type AddRequest struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name,omitempty"`
}

// List returns all tickers in the watchlist.
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	items := h.app.GetWatchlistItems()
	response.JSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

// Add adds a ticker to the watchlist.
func (h *WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrInvalidInput, err))
		return
	}

	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrInvalidInput, fmt.Errorf("ticker is required")))
		return
	}

	added := h.app.AddToWatchlist(ticker, req.Name)

	status := http.StatusCreated
	if !added {
		status = http.StatusOK
	}
	response.JSON(w, status, map[string]any{
		"ticker": ticker,
		"added":  added,
	})
}

// Remove removes a ticker from the watchlist.
func (h *WatchlistHandler) Remove(w http.ResponseWriter, r *http.Request, ticker string) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if !h.app.RemoveFromWatchlist(ticker) {
		response.Error(w, http.StatusNotFound, core.ErrTickerNotFound)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"ticker":  ticker,
		"removed": true,
	})
}
