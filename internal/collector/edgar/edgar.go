package edgar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/scorecard/internal/collector"
	"github.com/newthinker/scorecard/internal/core"
	"github.com/newthinker/scorecard/internal/normalize"
)

// minQuarters is the shortest quarterly history that still yields a
// year-over-year comparison; shorter histories fall back to annual mode.
const minQuarters = 5

var _ collector.FilingSource = (*Collector)(nil)

// Collector builds view-models from EDGAR filings.
type Collector struct {
	client *Client
	logger *zap.Logger
	now    func() time.Time
}

// New creates an EDGAR filing source on top of client.
func New(client *Client, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{client: client, logger: logger, now: time.Now}
}

func (c *Collector) Name() string {
	return "edgar"
}

// FetchViewModel resolves ticker, downloads its submissions header and
// companyfacts, and assembles quarterly and annual series.
func (c *Collector) FetchViewModel(ctx context.Context, ticker string) (*normalize.ViewModel, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, core.WrapError(core.ErrInvalidInput, fmt.Errorf("ticker is empty"))
	}

	cik, title, err := c.client.LookupCIK(ctx, ticker)
	if err != nil {
		return nil, err
	}

	company, err := c.client.Submissions(ctx, cik)
	if err != nil {
		return nil, err
	}

	body, err := c.client.CompanyFacts(ctx, cik)
	if err != nil {
		return nil, err
	}

	vm := buildViewModel(ticker, company, parseFacts(body), c.now())
	if vm.CompanyName == "" {
		vm.CompanyName = title
	}
	if len(vm.QuarterlySeries) == 0 && len(vm.AnnualSeries) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no usable us-gaap periods for %s", ticker))
	}

	c.logger.Info("fetched filings",
		zap.String("ticker", ticker),
		zap.String("cik", cik),
		zap.Int("quarters", len(vm.QuarterlySeries)),
		zap.Int("years", len(vm.AnnualSeries)),
		zap.Bool("annual_mode", vm.AnnualMode),
	)
	return vm, nil
}

func buildViewModel(ticker string, company *Company, fs *facts, asOf time.Time) *normalize.ViewModel {
	vm := &normalize.ViewModel{
		Ticker:          ticker,
		QuarterlySeries: fs.Quarters(),
		AnnualSeries:    fs.Years(),
		AsOf:            asOf,
	}
	if company != nil {
		vm.CompanyName = company.Name
		vm.Sector = sectorFromSIC(company.SIC, company.SICDescription)
	}
	if vm.CompanyName == "" {
		vm.CompanyName = fs.entityName()
	}
	vm.AnnualMode = len(vm.QuarterlySeries) < minQuarters && len(vm.AnnualSeries) > 0
	return vm
}
