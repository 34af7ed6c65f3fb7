// Package edgar reads company filings from the SEC EDGAR JSON APIs and
// turns them into scoring view-models.
package edgar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/newthinker/scorecard/internal/core"
)

const (
	// DefaultBaseURL serves submissions and companyfacts.
	DefaultBaseURL = "https://data.sec.gov"

	// DefaultTickersURL maps tickers to CIKs.
	DefaultTickersURL = "https://www.sec.gov/files/company_tickers.json"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit stays under SEC's 10 requests/second fair access cap.
	DefaultRateLimit = 8.0

	maxBodyBytes = 64 << 20
)

// Client is an SEC EDGAR API client, safe for concurrent use. The ticker
// map is loaded on first lookup and retried until a load succeeds.
type Client struct {
	baseURL    string
	tickersURL string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	observe    func(status string)

	tickersMu sync.Mutex
	tickers   map[string]tickerEntry
}

type tickerEntry struct {
	CIK   string
	Title string
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL for submissions and companyfacts.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithTickersURL sets a custom ticker map URL.
func WithTickersURL(u string) ClientOption {
	return func(c *Client) {
		c.tickersURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit sets the request rate. Non-positive values keep the default.
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			burst := max(int(requestsPerSecond), 1)
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
		}
	}
}

// WithLogger sets a logger.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRequestObserver is called after every request with the HTTP status
// class, or "error" when no response arrived.
func WithRequestObserver(fn func(status string)) ClientOption {
	return func(c *Client) {
		c.observe = fn
	}
}

// NewClient creates a new EDGAR client. SEC rejects requests without a
// descriptive User-Agent naming a contact.
func NewClient(userAgent string, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(userAgent) == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("edgar user agent is required"))
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		tickersURL: DefaultTickersURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), int(DefaultRateLimit)),
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// get performs a rate-limited GET and returns the body.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, core.WrapError(core.ErrCollectorTimeout, fmt.Errorf("waiting for rate limiter: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record("error")
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, core.WrapError(core.ErrCollectorTimeout, fmt.Errorf("GET %s: %w", url, err))
		}
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("GET %s: %w", url, err))
	}
	defer resp.Body.Close()
	c.record(statusClass(resp.StatusCode))

	c.logger.Debug("edgar request",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, core.WrapError(core.ErrCollectorFailed,
			fmt.Errorf("GET %s: HTTP %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body))))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("reading %s: %w", url, err))
	}
	if !gjson.ValidBytes(body) {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("GET %s: response is not JSON", url))
	}
	return body, nil
}

var errNotFound = errors.New("not found")

func (c *Client) record(status string) {
	if c.observe != nil {
		c.observe(status)
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// LookupCIK resolves a ticker to its zero-padded 10 digit CIK. Class
// shares may be written with a dot or a dash (BRK.B, BRK-B).
func (c *Client) LookupCIK(ctx context.Context, ticker string) (string, string, error) {
	c.tickersMu.Lock()
	if c.tickers == nil {
		loaded, err := c.loadTickers(ctx)
		if err != nil {
			c.tickersMu.Unlock()
			return "", "", err
		}
		c.tickers = loaded
	}
	entry, ok := c.tickers[normalizeTicker(ticker)]
	c.tickersMu.Unlock()

	if !ok {
		return "", "", core.WrapError(core.ErrTickerNotFound, fmt.Errorf("%s is not in the SEC ticker map", ticker))
	}
	return entry.CIK, entry.Title, nil
}

// loadTickers parses company_tickers.json:
// {"0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."}, ...}
func (c *Client) loadTickers(ctx context.Context) (map[string]tickerEntry, error) {
	body, err := c.get(ctx, c.tickersURL)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("ticker map not found at %s", c.tickersURL))
		}
		return nil, fmt.Errorf("loading ticker map: %w", err)
	}

	out := make(map[string]tickerEntry)
	gjson.ParseBytes(body).ForEach(func(_, v gjson.Result) bool {
		t := normalizeTicker(v.Get("ticker").String())
		cik := v.Get("cik_str").Int()
		if t == "" || cik <= 0 {
			return true
		}
		// The first listing wins when a ticker repeats.
		if _, dup := out[t]; !dup {
			out[t] = tickerEntry{CIK: fmt.Sprintf("%010d", cik), Title: v.Get("title").String()}
		}
		return true
	})

	c.logger.Info("loaded SEC ticker map", zap.Int("tickers", len(out)))
	return out, nil
}

func normalizeTicker(t string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(t)), ".", "-")
}

// Company is the submissions header for a registrant.
type Company struct {
	CIK            string
	Name           string
	SIC            string
	SICDescription string
	Tickers        []string
}

// Submissions fetches the registrant header for cik.
func (c *Client) Submissions(ctx context.Context, cik string) (*Company, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/submissions/CIK%s.json", c.baseURL, cik))
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, core.WrapError(core.ErrTickerNotFound, fmt.Errorf("no submissions for CIK %s", cik))
		}
		return nil, err
	}

	doc := gjson.ParseBytes(body)
	company := &Company{
		CIK:            cik,
		Name:           doc.Get("name").String(),
		SIC:            doc.Get("sic").String(),
		SICDescription: doc.Get("sicDescription").String(),
	}
	for _, t := range doc.Get("tickers").Array() {
		company.Tickers = append(company.Tickers, t.String())
	}
	return company, nil
}

// CompanyFacts fetches the raw XBRL companyfacts document for cik.
func (c *Client) CompanyFacts(ctx context.Context, cik string) ([]byte, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/api/xbrl/companyfacts/CIK%s.json", c.baseURL, cik))
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no XBRL facts for CIK %s", cik))
		}
		return nil, err
	}
	return body, nil
}
