package edgar

import "strconv"

type sicRange struct {
	lo, hi int
	sector string
}

// sicSectors buckets SEC SIC codes into the sector names the normalizer
// understands. Narrow ranges come first.
var sicSectors = []sicRange{
	{2833, 2836, "Biotechnology"},
	{3841, 3851, "Medical Devices"},
	{8000, 8099, "Healthcare"},
	{8731, 8731, "Biotechnology"},
	{3570, 3579, "Technology"},
	{3600, 3699, "Technology"},
	{7370, 7379, "Software"},
	{4800, 4899, "Communications"},
	{6798, 6798, "REIT"},
	{6500, 6553, "Real Estate"},
	{6000, 6411, "Financials"},
	{6700, 6799, "Financials"},
	{5200, 5999, "Retail"},
	{2000, 2399, "Consumer Staples"},
	{1000, 1499, "Energy"},
	{2900, 2999, "Energy"},
	{4900, 4999, "Utilities"},
	{2800, 2899, "Materials"},
	{3300, 3399, "Materials"},
	{3400, 3569, "Industrials"},
	{3580, 3599, "Industrials"},
	{3700, 3799, "Industrials"},
	{4000, 4799, "Transportation"},
}

// sectorFromSIC maps a SIC code to a sector name, falling back to the SIC
// description.
func sectorFromSIC(sic, description string) string {
	code, err := strconv.Atoi(sic)
	if err != nil {
		return description
	}
	for _, r := range sicSectors {
		if code >= r.lo && code <= r.hi {
			return r.sector
		}
	}
	return description
}
