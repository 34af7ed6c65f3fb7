package normalize

import (
	"strings"

	"github.com/newthinker/scorecard/internal/core"
)

// sectorAliases maps lower-cased sector strings, as reported by data
// vendors and SEC SIC descriptions, to a bucket.
var sectorAliases = map[string]string{
	"biotech/pharma":                core.SectorBiotechPharma,
	"biotech":                       core.SectorBiotechPharma,
	"biotechnology":                 core.SectorBiotechPharma,
	"pharma":                        core.SectorBiotechPharma,
	"pharmaceuticals":               core.SectorBiotechPharma,
	"pharmaceutical preparations":   core.SectorBiotechPharma,
	"healthcare":                    core.SectorBiotechPharma,
	"health care":                   core.SectorBiotechPharma,
	"life sciences":                 core.SectorBiotechPharma,
	"medical devices":               core.SectorBiotechPharma,
	"tech/internet":                 core.SectorTechInternet,
	"technology":                    core.SectorTechInternet,
	"information technology":        core.SectorTechInternet,
	"tech":                          core.SectorTechInternet,
	"software":                      core.SectorTechInternet,
	"internet":                      core.SectorTechInternet,
	"semiconductors":                core.SectorTechInternet,
	"communication services":        core.SectorTechInternet,
	"communications":                core.SectorTechInternet,
	"services-prepackaged software": core.SectorTechInternet,
	"financials":                    core.SectorFinancials,
	"financial":                     core.SectorFinancials,
	"financial services":            core.SectorFinancials,
	"banks":                         core.SectorFinancials,
	"banking":                       core.SectorFinancials,
	"insurance":                     core.SectorFinancials,
	"national commercial banks":     core.SectorFinancials,
	"real estate":                   core.SectorRealEstate,
	"reit":                          core.SectorRealEstate,
	"reits":                         core.SectorRealEstate,
	"real estate investment trusts": core.SectorRealEstate,
	"retail":                        core.SectorRetail,
	"consumer discretionary":        core.SectorRetail,
	"consumer cyclical":             core.SectorRetail,
	"consumer defensive":            core.SectorRetail,
	"consumer staples":              core.SectorRetail,
	"industrial/cyclical":           core.SectorIndustrialCyclical,
	"industrials":                   core.SectorIndustrialCyclical,
	"industrial":                    core.SectorIndustrialCyclical,
	"aerospace & defense":           core.SectorIndustrialCyclical,
	"automotive":                    core.SectorIndustrialCyclical,
	"transportation":                core.SectorIndustrialCyclical,
	"energy/materials":              core.SectorEnergyMaterials,
	"energy":                        core.SectorEnergyMaterials,
	"materials":                     core.SectorEnergyMaterials,
	"basic materials":               core.SectorEnergyMaterials,
	"utilities":                     core.SectorEnergyMaterials,
	"oil & gas":                     core.SectorEnergyMaterials,
	"mining":                        core.SectorEnergyMaterials,
	"crude petroleum & natural gas": core.SectorEnergyMaterials,
	"other":                         core.SectorOther,
}

// fintechTickers are listed payment, lending and brokerage platforms that
// report as Financials but behave like technology companies.
var fintechTickers = map[string]struct{}{
	"PYPL": {}, "SQ": {}, "XYZ": {}, "AFRM": {}, "SOFI": {}, "UPST": {},
	"HOOD": {}, "COIN": {}, "NU": {}, "TOST": {}, "LC": {}, "MQ": {},
	"FOUR": {}, "DAVE": {}, "PAYO": {}, "FLYW": {}, "RELY": {}, "BILL": {},
}

var fintechKeywords = []string{
	"fintech",
	"payments",
	"paypal",
	"crypto",
	"blockchain",
	"coinbase",
	"robinhood",
	"affirm",
	"sofi",
	"upstart",
	"lendingclub",
	"neobank",
	"remittance",
}

// ResolveSectorBucket maps a free-text sector onto a bucket. Unknown
// non-empty sectors are returned trimmed, as their own bucket.
func ResolveSectorBucket(sector string) string {
	s := strings.TrimSpace(sector)
	if s == "" {
		return core.SectorOther
	}
	if bucket, ok := sectorAliases[strings.ToLower(s)]; ok {
		return bucket
	}
	return s
}

// IsFintech reports whether the ticker is on the fintech allowlist or the
// company name carries a fintech keyword.
func IsFintech(ticker, companyName string) bool {
	if _, ok := fintechTickers[strings.ToUpper(strings.TrimSpace(ticker))]; ok {
		return true
	}
	name := strings.ToLower(companyName)
	if name == "" {
		return false
	}
	for _, kw := range fintechKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}
