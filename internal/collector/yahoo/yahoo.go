package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/newthinker/scorecard/internal/collector"
	"github.com/newthinker/scorecard/internal/core"
)

const (
	// DefaultBaseURL is the Yahoo Finance query host.
	DefaultBaseURL = "https://query1.finance.yahoo.com"
	chartPath      = "/v8/finance/chart/"
)

// validSymbol matches US tickers, optionally with a class suffix: AAPL, BRK.B, BF-B
var validSymbol = regexp.MustCompile(`^[A-Za-z0-9]{1,10}([.\-][A-Za-z]{1,4})?$`)

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return core.WrapError(core.ErrInvalidInput, fmt.Errorf("symbol cannot be empty"))
	}
	if !validSymbol.MatchString(symbol) {
		return core.WrapError(core.ErrInvalidInput, fmt.Errorf("invalid symbol format: %s", symbol))
	}
	return nil
}

var _ collector.QuoteSource = (*Yahoo)(nil)

// Yahoo fetches last prices from the Yahoo Finance chart API.
type Yahoo struct {
	client  *http.Client
	baseURL string
}

// New creates a new Yahoo quote source. An empty baseURL uses the default.
func New(baseURL string, timeout time.Duration) *Yahoo {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Yahoo{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// toYahooSymbol converts class share notation: BRK.B -> BRK-B
func toYahooSymbol(symbol string) string {
	return strings.ReplaceAll(strings.ToUpper(symbol), ".", "-")
}

// FetchQuote fetches the latest regular market price.
func (y *Yahoo) FetchQuote(ctx context.Context, ticker string) (*collector.Quote, error) {
	ticker = strings.TrimSpace(ticker)
	if err := validateSymbol(ticker); err != nil {
		return nil, err
	}
	reqURL := fmt.Sprintf("%s%s%s?interval=1d&range=1d", y.baseURL, chartPath, url.PathEscape(toYahooSymbol(ticker)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; scorecard)")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("fetching quote: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, core.WrapError(core.ErrTickerNotFound, fmt.Errorf("yahoo has no chart for %s", ticker))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("decoding response: %w", err))
	}

	if result.Chart.Error != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description))
	}

	if len(result.Chart.Result) == 0 || result.Chart.Result[0].Meta.RegularMarketPrice <= 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no price for symbol: %s", ticker))
	}

	meta := result.Chart.Result[0].Meta
	return &collector.Quote{
		Ticker:   strings.ToUpper(ticker),
		Price:    meta.RegularMarketPrice,
		Currency: meta.Currency,
		Time:     time.Unix(meta.RegularMarketTime, 0).UTC(),
		Source:   "yahoo",
	}, nil
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta chartMeta `json:"meta"`
}

type chartMeta struct {
	Symbol             string  `json:"symbol"`
	Currency           string  `json:"currency"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
	RegularMarketTime  int64   `json:"regularMarketTime"`
}
