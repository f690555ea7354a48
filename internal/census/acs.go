package census

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/civiclab/splitrate/internal/fetcher"
	"github.com/civiclab/splitrate/internal/model"
)

// acsBaseURL is the ACS 5-year estimates endpoint, parameterized by year.
const acsBaseURL = "https://api.census.gov/data/%d/acs/acs5"

// ACS table variables for the demographic profile.
const (
	varMedianIncome = "B19013_001E"
	varTotalPop     = "B01003_001E"
	varWhitePop     = "B03002_003E"
	varBlackPop     = "B03002_004E"
	varHispanicPop  = "B03002_012E"
)

// ACSClient fetches block-group demographics from the Census ACS API.
type ACSClient struct {
	fetcher *fetcher.HTTPFetcher
	apiKey  string
	year    int
	baseURL string
}

// NewACSClient creates an ACS client. An API key is required; the public
// endpoint rejects keyless block-group queries.
func NewACSClient(f *fetcher.HTTPFetcher, apiKey string, year int) (*ACSClient, error) {
	if apiKey == "" {
		return nil, eris.New("census: acs api key is required")
	}
	if year == 0 {
		year = 2022
	}
	return &ACSClient{
		fetcher: f,
		apiKey:  apiKey,
		year:    year,
		baseURL: fmt.Sprintf(acsBaseURL, year),
	}, nil
}

// FetchBlockGroups returns demographics for every block group in the county
// named by the 5-digit FIPS code. Percentages are rounded to two decimals,
// matching the published profile tables.
func (c *ACSClient) FetchBlockGroups(ctx context.Context, fips string) ([]model.Demographics, error) {
	state, county, err := SplitFIPS(fips)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"get": {fmt.Sprintf("NAME,%s,%s,%s,%s,%s",
			varMedianIncome, varTotalPop, varWhitePop, varBlackPop, varHispanicPop)},
		"for": {"block group:*"},
		"in":  {fmt.Sprintf("state:%s county:%s", state, county)},
		"key": {c.apiKey},
	}

	// The ACS API returns a JSON array of arrays: a header row of column
	// names followed by one row per block group.
	var rows [][]string
	if err := c.fetcher.GetJSON(ctx, c.baseURL, params, &rows); err != nil {
		return nil, eris.Wrapf(err, "census: acs query for county %s", fips)
	}
	if len(rows) < 2 {
		return nil, eris.Errorf("census: acs returned no block groups for county %s", fips)
	}

	cols := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		cols[name] = i
	}
	for _, required := range []string{varMedianIncome, varTotalPop, varWhitePop,
		varBlackPop, varHispanicPop, "state", "county", "tract", "block group"} {
		if _, ok := cols[required]; !ok {
			return nil, eris.Errorf("census: acs response missing column %q", required)
		}
	}

	out := make([]model.Demographics, 0, len(rows)-1)
	for _, row := range rows[1:] {
		d, err := parseACSRow(row, cols)
		if err != nil {
			zap.L().Warn("census: skipping unparseable acs row", zap.Error(err))
			continue
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, eris.Errorf("census: every acs row failed to parse for county %s", fips)
	}

	zap.L().Info("census: fetched acs demographics",
		zap.String("county", fips),
		zap.Int("year", c.year),
		zap.Int("block_groups", len(out)),
	)
	return out, nil
}

func parseACSRow(row []string, cols map[string]int) (model.Demographics, error) {
	get := func(name string) string {
		i := cols[name]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	medianIncome, err := strconv.ParseFloat(get(varMedianIncome), 64)
	if err != nil {
		return model.Demographics{}, eris.Wrap(err, "census: parse median income")
	}
	totalPop, err := strconv.Atoi(get(varTotalPop))
	if err != nil {
		return model.Demographics{}, eris.Wrap(err, "census: parse total population")
	}
	whitePop, err := strconv.Atoi(get(varWhitePop))
	if err != nil {
		return model.Demographics{}, eris.Wrap(err, "census: parse white population")
	}
	blackPop, err := strconv.Atoi(get(varBlackPop))
	if err != nil {
		return model.Demographics{}, eris.Wrap(err, "census: parse black population")
	}
	hispanicPop, err := strconv.Atoi(get(varHispanicPop))
	if err != nil {
		return model.Demographics{}, eris.Wrap(err, "census: parse hispanic population")
	}

	d := model.Demographics{
		GEOID:        get("state") + get("county") + get("tract") + get("block group"),
		MedianIncome: medianIncome,
		TotalPop:     totalPop,
		WhitePop:     whitePop,
		BlackPop:     blackPop,
		HispanicPop:  hispanicPop,
	}
	if totalPop > 0 {
		d.MinorityPct = round2(float64(totalPop-whitePop) / float64(totalPop) * 100)
		d.BlackPct = round2(float64(blackPop) / float64(totalPop) * 100)
	}
	return d, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
