package heuristics

import (
	"fmt"
	"sort"

	"github.com/newthinker/scorecard/internal/core"
	"github.com/newthinker/scorecard/internal/rules"
)

// Defaults returns fresh instances of every rule in evaluation order.
func Defaults() []rules.Rule {
	return []rules.Rule{
		NewGrossMargin(),
		NewOperatingMargin(),
		NewNetMargin(),
		NewFCFMargin(),
		NewRevenueGrowth(),
		NewRevenueCAGR(),
		NewEPSCAGR(),
		NewDebtToEquity(),
		NewNetDebtToFCF(),
		NewCashRunway(),
		NewShareDilution(),
		NewPriceToSales(),
		NewPriceToEarnings(),
		NewReturnOnEquity(),
		NewReturnOnInvestedCapital(),
		NewDividendCoverage(),
		NewDataFreshness(),
	}
}

// Names lists the default rule names in evaluation order.
func Names() []string {
	defaults := Defaults()
	names := make([]string, len(defaults))
	for i, r := range defaults {
		names[i] = r.Name()
	}
	return names
}

// Build returns the default rules with cfgs applied. Rules absent from
// cfgs keep their defaults; disabled rules are dropped. Unknown names are
// a configuration error.
func Build(cfgs map[string]rules.Config) ([]rules.Rule, error) {
	defaults := Defaults()
	known := make(map[string]bool, len(defaults))
	for _, r := range defaults {
		known[r.Name()] = true
	}

	var unknown []string
	for name := range cfgs {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown rules: %v", unknown))
	}

	out := make([]rules.Rule, 0, len(defaults))
	for _, r := range defaults {
		cfg, ok := cfgs[r.Name()]
		if !ok {
			out = append(out, r)
			continue
		}
		if !cfg.Enabled {
			continue
		}
		if err := r.Init(cfg); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Register builds the configured rules into engine.
func Register(engine *rules.Engine, cfgs map[string]rules.Config) error {
	built, err := Build(cfgs)
	if err != nil {
		return err
	}
	for _, r := range built {
		engine.Register(r)
	}
	return nil
}
