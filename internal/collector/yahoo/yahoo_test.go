package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newthinker/scorecard/internal/core"
)

func TestYahoo_Name(t *testing.T) {
	y := New("", 0)
	if y.Name() != "yahoo" {
		t.Errorf("expected 'yahoo', got '%s'", y.Name())
	}
	if y.baseURL != DefaultBaseURL {
		t.Errorf("expected default base url, got %s", y.baseURL)
	}
}

func TestToYahooSymbol(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"AAPL", "AAPL"},
		{"brk.b", "BRK-B"},
		{"BF-B", "BF-B"},
	}

	for _, tc := range tests {
		got := toYahooSymbol(tc.input)
		if got != tc.expected {
			t.Errorf("toYahooSymbol(%s) = %s, want %s", tc.input, got, tc.expected)
		}
	}
}

func TestValidateSymbol(t *testing.T) {
	for _, ok := range []string{"AAPL", "BRK.B", "BF-B", "T"} {
		if err := validateSymbol(ok); err != nil {
			t.Errorf("validateSymbol(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"", "AAPL/../x", "TOOLONGTICKER1", "A B"} {
		if err := validateSymbol(bad); !errors.Is(err, core.ErrInvalidInput) {
			t.Errorf("validateSymbol(%q) = %v, want invalid input", bad, err)
		}
	}
}

func TestYahoo_FetchQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/BRK-B" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"chart":{"result":[{"meta":{"symbol":"BRK-B","currency":"USD",` +
			`"regularMarketPrice":412.5,"regularMarketTime":1735689600}}],"error":null}}`))
	}))
	defer srv.Close()

	y := New(srv.URL, time.Second)
	q, err := y.FetchQuote(context.Background(), "brk.b")
	if err != nil {
		t.Fatalf("FetchQuote: %v", err)
	}
	if q.Price != 412.5 || q.Currency != "USD" || q.Ticker != "BRK.B" {
		t.Errorf("unexpected quote %+v", q)
	}
	if !q.Time.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected time %s", q.Time)
	}

	_, err = y.FetchQuote(context.Background(), "ZZZZ")
	if !errors.Is(err, core.ErrTickerNotFound) {
		t.Errorf("expected ticker not found, got %v", err)
	}
}

func TestYahoo_FetchQuote_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
		want *core.Error
	}{
		{"api error", `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`, 200, core.ErrCollectorFailed},
		{"empty result", `{"chart":{"result":[],"error":null}}`, 200, core.ErrNoData},
		{"server error", `oops`, 502, core.ErrCollectorFailed},
		{"bad json", `{`, 200, core.ErrCollectorFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, time.Second).FetchQuote(context.Background(), "AAPL")
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %s", err, tt.want.Code)
			}
		})
	}
}
