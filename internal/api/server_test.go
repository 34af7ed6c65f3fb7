package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/newthinker/scorecard/internal/app"
	"github.com/newthinker/scorecard/internal/config"
	"github.com/newthinker/scorecard/internal/core"
	"github.com/newthinker/scorecard/internal/metrics"
	"github.com/newthinker/scorecard/internal/normalize"
	"github.com/newthinker/scorecard/internal/rules"
	"github.com/newthinker/scorecard/internal/rules/heuristics"
	"github.com/newthinker/scorecard/internal/scoring"
	"github.com/newthinker/scorecard/internal/storage/score"
)

type stubFilings struct{}

func (stubFilings) Name() string { return "stub" }

func (stubFilings) FetchViewModel(ctx context.Context, ticker string) (*normalize.ViewModel, error) {
	if ticker == "ZZZZ" {
		return nil, core.ErrTickerNotFound
	}
	return &normalize.ViewModel{Ticker: ticker}, nil
}

func testDeps(t *testing.T) Dependencies {
	t.Helper()
	engine := rules.NewEngine()
	if err := heuristics.Register(engine, nil); err != nil {
		t.Fatal(err)
	}
	store := score.NewMemoryStore(100)
	reg := metrics.NewRegistry()
	svc := scoring.NewService(stubFilings{}, engine, scoring.WithStore(store), scoring.WithMetrics(reg))
	return Dependencies{
		App:        app.New(config.Defaults(), svc, zap.NewNop()),
		Service:    svc,
		ScoreStore: store,
		Metrics:    reg,
	}
}

func newTestServer(t *testing.T, cfg Config) (*Server, Dependencies) {
	t.Helper()
	deps := testDeps(t)
	srv, err := NewServer(cfg, deps, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv, deps
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t, Config{Host: "localhost", Port: 0})

	w := serve(srv, httptest.NewRequest("GET", "/api/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
	if w.Header().Get(metrics.RequestIDHeader) == "" {
		t.Error("expected request id header")
	}
}

func TestServer_RequiresService(t *testing.T) {
	if _, err := NewServer(Config{}, Dependencies{}, nil); err == nil {
		t.Error("expected error without scoring service")
	}
}

func TestServer_APIAuth_Required(t *testing.T) {
	srv, _ := newTestServer(t, Config{APIKey: "test-key"})

	w := serve(srv, httptest.NewRequest("GET", "/api/v1/rules", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", w.Code)
	}

	w = serve(srv, httptest.NewRequest("GET", "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health must not require a key, got %d", w.Code)
	}
}

func TestServer_APIAuth_ValidKey(t *testing.T) {
	srv, _ := newTestServer(t, Config{APIKey: "test-key"})

	req := httptest.NewRequest("GET", "/api/v1/rules", nil)
	req.Header.Set("X-API-Key", "test-key")
	w := serve(srv, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with key, got %d", w.Code)
	}
}

func TestServer_APIAuth_Disabled(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	w := serve(srv, httptest.NewRequest("GET", "/api/v1/scores", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with disabled auth, got %d", w.Code)
	}
}

func TestServer_ScoreRoutes(t *testing.T) {
	srv, deps := newTestServer(t, Config{})

	w := serve(srv, httptest.NewRequest("GET", "/api/v1/score/aapl", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if _, err := deps.ScoreStore.Latest(context.Background(), "AAPL"); err != nil {
		t.Errorf("expected stored record: %v", err)
	}

	w = serve(srv, httptest.NewRequest("GET", "/api/v1/score/ZZZZ", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}

	w = serve(srv, httptest.NewRequest("POST", "/api/v1/score", bytes.NewBufferString(`{"ticker":"NEW"}`)))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	w = serve(srv, httptest.NewRequest("DELETE", "/api/v1/score/AAPL", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestServer_Watchlist(t *testing.T) {
	srv, deps := newTestServer(t, Config{})
	deps.App.SetWatchlist([]string{"AAPL"})

	w := serve(srv, httptest.NewRequest("GET", "/api/v1/watchlist", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	w = serve(srv, httptest.NewRequest("POST", "/api/v1/watchlist", bytes.NewBufferString(`{"ticker":"msft"}`)))
	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}

	w = serve(srv, httptest.NewRequest("DELETE", "/api/v1/watchlist/aapl", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if got := deps.App.GetWatchlist(); len(got) != 1 || got[0] != "MSFT" {
		t.Errorf("unexpected watchlist %v", got)
	}

	w = serve(srv, httptest.NewRequest("GET", "/api/v1/status", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestServer_Metrics(t *testing.T) {
	srv, _ := newTestServer(t, Config{MetricsPath: "/metrics"})

	serve(srv, httptest.NewRequest("GET", "/api/v1/score/AAPL", nil))
	w := serve(srv, httptest.NewRequest("GET", "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body, _ := io.ReadAll(w.Body)
	for _, want := range []string{
		"scorecard_stocks_scored_total",
		`path="/api/v1/score/{ticker}"`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected %s in metrics output", want)
		}
	}
}

func TestServer_MetricsDisabled(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	w := serve(srv, httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 when metrics path unset, got %d", w.Code)
	}
}
