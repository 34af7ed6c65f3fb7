// internal/api/handler/api/watchlist_test.go
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/scorecard/internal/api/response"
	"github.com/newthinker/scorecard/internal/app"
	"github.com/newthinker/scorecard/internal/config"
	"go.uber.org/zap"
)

func TestWatchlistHandler_List(t *testing.T) {
	a := app.New(config.Defaults(), nil, zap.NewNop())
	a.SetWatchlist([]string{"AAPL", "GOOG"})

	handler := NewWatchlistHandler(a)

	req := httptest.NewRequest("GET", "/api/v1/watchlist", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var resp response.SuccessResponse
	json.Unmarshal(w.Body.Bytes(), &resp)

	data := resp.Data.(map[string]any)
	items := data["items"].([]any)
	if len(items) != 2 {
		t.Errorf("expected 2 items, got %d", len(items))
	}
	first := items[0].(map[string]any)
	if first["ticker"] != "AAPL" {
		t.Errorf("expected AAPL first, got %v", first["ticker"])
	}
}

func TestWatchlistHandler_Add(t *testing.T) {
	a := app.New(config.Defaults(), nil, zap.NewNop())
	handler := NewWatchlistHandler(a)

	body := bytes.NewBufferString(`{"ticker": "aapl", "name": "Apple"}`)
	req := httptest.NewRequest("POST", "/api/v1/watchlist", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Add(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}

	watchlist := a.GetWatchlist()
	if len(watchlist) != 1 || watchlist[0] != "AAPL" {
		t.Errorf("expected AAPL in watchlist, got %v", watchlist)
	}
}

func TestWatchlistHandler_Add_Duplicate(t *testing.T) {
	a := app.New(config.Defaults(), nil, zap.NewNop())
	a.SetWatchlist([]string{"AAPL"})
	handler := NewWatchlistHandler(a)

	req := httptest.NewRequest("POST", "/api/v1/watchlist", bytes.NewBufferString(`{"ticker": "AAPL"}`))
	w := httptest.NewRecorder()

	handler.Add(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for existing ticker, got %d", w.Code)
	}
	if len(a.GetWatchlist()) != 1 {
		t.Errorf("expected 1 ticker, got %v", a.GetWatchlist())
	}
}

func TestWatchlistHandler_Add_InvalidJSON(t *testing.T) {
	a := app.New(config.Defaults(), nil, zap.NewNop())
	handler := NewWatchlistHandler(a)

	body := bytes.NewBufferString(`{invalid json}`)
	req := httptest.NewRequest("POST", "/api/v1/watchlist", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Add(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestWatchlistHandler_Add_EmptyTicker(t *testing.T) {
	a := app.New(config.Defaults(), nil, zap.NewNop())
	handler := NewWatchlistHandler(a)

	body := bytes.NewBufferString(`{"ticker": " "}`)
	req := httptest.NewRequest("POST", "/api/v1/watchlist", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Add(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestWatchlistHandler_Remove(t *testing.T) {
	a := app.New(config.Defaults(), nil, zap.NewNop())
	a.SetWatchlist([]string{"AAPL", "GOOG"})
	handler := NewWatchlistHandler(a)

	req := httptest.NewRequest("DELETE", "/api/v1/watchlist/AAPL", nil)
	w := httptest.NewRecorder()

	handler.Remove(w, req, "aapl")

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	watchlist := a.GetWatchlist()
	if len(watchlist) != 1 || watchlist[0] != "GOOG" {
		t.Errorf("expected only GOOG in watchlist, got %v", watchlist)
	}
}

func TestWatchlistHandler_Remove_NotFound(t *testing.T) {
	a := app.New(config.Defaults(), nil, zap.NewNop())
	handler := NewWatchlistHandler(a)

	req := httptest.NewRequest("DELETE", "/api/v1/watchlist/AAPL", nil)
	w := httptest.NewRecorder()

	handler.Remove(w, req, "AAPL")

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
