package census

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/civiclab/splitrate/internal/fetcher"
)

// TIGERweb Tracts_Blocks layers: 8 is current tracts, 2 is current block
// groups.
const (
	tigerwebTractsURL      = "https://tigerweb.geo.census.gov/arcgis/rest/services/TIGERweb/Tracts_Blocks/MapServer/8/query"
	tigerwebBlockGroupsURL = "https://tigerweb.geo.census.gov/arcgis/rest/services/TIGERweb/Tracts_Blocks/MapServer/2/query"
)

// chunkConcurrency bounds parallel per-tract boundary requests.
const chunkConcurrency = 4

// largeCounties are counties whose block-group layer is too large for a
// single TIGERweb response; these always use the per-tract chunked path.
var largeCounties = map[string]bool{
	"17031": true, // Cook, IL
	"06037": true, // Los Angeles, CA
	"48201": true, // Harris, TX
	"04013": true, // Maricopa, AZ
	"06073": true, // San Diego, CA
	"06059": true, // Orange, CA
	"36081": true, // Queens, NY
	"36047": true, // Kings, NY
	"12086": true, // Miami-Dade, FL
	"53033": true, // King, WA
}

// BoundaryClient fetches block-group boundaries from TIGERweb.
type BoundaryClient struct {
	fetcher  *fetcher.HTTPFetcher
	bgURL    string
	tractURL string
}

// NewBoundaryClient creates a TIGERweb boundary client.
func NewBoundaryClient(f *fetcher.HTTPFetcher) *BoundaryClient {
	return &BoundaryClient{
		fetcher:  f,
		bgURL:    tigerwebBlockGroupsURL,
		tractURL: tigerwebTractsURL,
	}
}

// FetchBlockGroups returns the block-group boundaries for a county. Counties
// known to exceed the single-response limit, and any county whose direct
// request comes back unparseable (TIGERweb signals rejection with an HTML
// error page), fall back to fetching tract by tract.
func (c *BoundaryClient) FetchBlockGroups(ctx context.Context, fips string) ([]BlockGroup, error) {
	state, county, err := SplitFIPS(fips)
	if err != nil {
		return nil, err
	}

	if largeCounties[fips] {
		zap.L().Info("census: using chunked boundary fetch for large county", zap.String("county", fips))
		return c.fetchChunked(ctx, state, county)
	}

	bgs, err := c.fetchDirect(ctx, state, county)
	if err != nil {
		zap.L().Warn("census: direct boundary fetch failed, falling back to chunked",
			zap.String("county", fips),
			zap.Error(err),
		)
		return c.fetchChunked(ctx, state, county)
	}
	return bgs, nil
}

func (c *BoundaryClient) fetchDirect(ctx context.Context, state, county string) ([]BlockGroup, error) {
	params := url.Values{
		"where":          {fmt.Sprintf("STATE='%s' AND COUNTY='%s'", state, county)},
		"outFields":      {"*"},
		"returnGeometry": {"true"},
		"outSR":          {"4326"},
		"f":              {"geojson"},
	}
	bgs, err := c.queryGeoJSON(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(bgs) == 0 {
		return nil, eris.Errorf("census: no block groups for state %s county %s", state, county)
	}
	return bgs, nil
}

// fetchChunked lists the county's tracts, then fetches each tract's block
// groups concurrently.
func (c *BoundaryClient) fetchChunked(ctx context.Context, state, county string) ([]BlockGroup, error) {
	tractParams := url.Values{
		"where":          {fmt.Sprintf("STATE='%s' AND COUNTY='%s'", state, county)},
		"outFields":      {"TRACT"},
		"returnGeometry": {"false"},
		"f":              {"json"},
	}
	var tractResp struct {
		Features []struct {
			Attributes struct {
				Tract string `json:"TRACT"`
			} `json:"attributes"`
		} `json:"features"`
	}
	if err := c.fetcher.GetJSON(ctx, c.tractURL, tractParams, &tractResp); err != nil {
		return nil, eris.Wrap(err, "census: list tracts")
	}
	if len(tractResp.Features) == 0 {
		return nil, eris.Errorf("census: no tracts for state %s county %s", state, county)
	}

	var mu sync.Mutex
	var all []BlockGroup
	var failed int

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(chunkConcurrency)
	for _, f := range tractResp.Features {
		tract := f.Attributes.Tract
		g.Go(func() error {
			params := url.Values{
				"where": {fmt.Sprintf("STATE='%s' AND COUNTY='%s' AND TRACT='%s'",
					state, county, tract)},
				"outFields":      {"*"},
				"returnGeometry": {"true"},
				"outSR":          {"4326"},
				"f":              {"geojson"},
			}
			bgs, err := c.queryGeoJSON(ctx, params)
			if err != nil {
				// One unreadable tract does not sink the county.
				zap.L().Warn("census: skipping tract after failed boundary fetch",
					zap.String("tract", tract),
					zap.Error(err),
				)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			all = append(all, bgs...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "census: chunked boundary fetch")
	}

	if len(all) == 0 {
		return nil, eris.Errorf("census: no block groups fetched for state %s county %s", state, county)
	}
	if failed > 0 {
		zap.L().Warn("census: chunked fetch skipped tracts", zap.Int("failed", failed))
	}
	return all, nil
}

func (c *BoundaryClient) queryGeoJSON(ctx context.Context, params url.Values) ([]BlockGroup, error) {
	u, err := url.Parse(c.bgURL)
	if err != nil {
		return nil, eris.Wrap(err, "census: parse boundary url")
	}
	u.RawQuery = params.Encode()

	body, err := c.fetcher.Download(ctx, u.String())
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrap(err, "census: read boundary response")
	}
	return parseBlockGroupGeoJSON(data)
}

type geoFeature struct {
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

// parseBlockGroupGeoJSON decodes a TIGERweb GeoJSON feature collection into
// block groups. Any non-JSON payload (HTML rejection pages included) fails
// here, which triggers the caller's fallback.
func parseBlockGroupGeoJSON(data []byte) ([]BlockGroup, error) {
	var fc struct {
		Features []geoFeature `json:"features"`
	}
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "census: decode boundary geojson")
	}

	out := make([]BlockGroup, 0, len(fc.Features))
	for i := range fc.Features {
		f := &fc.Features[i]
		geoid := featureGEOID(f.Properties)
		if geoid == "" {
			zap.L().Warn("census: skipping boundary feature without geoid")
			continue
		}
		polys, err := polygonsFromGeoJSON(f.Geometry)
		if err != nil || len(polys) == 0 {
			zap.L().Warn("census: skipping boundary feature with bad geometry",
				zap.String("geoid", geoid),
				zap.Error(err),
			)
			continue
		}
		out = append(out, BlockGroup{GEOID: geoid, Polygons: polys})
	}
	return out, nil
}

// featureGEOID prefers the layer's GEOID attribute and falls back to
// composing it from the FIPS parts.
func featureGEOID(props map[string]any) string {
	if g, ok := props["GEOID"].(string); ok && g != "" {
		return g
	}
	part := func(key string) string {
		s, _ := props[key].(string)
		return s
	}
	state, county := part("STATE"), part("COUNTY")
	tract, bg := part("TRACT"), part("BLKGRP")
	if state == "" || county == "" || tract == "" || bg == "" {
		return ""
	}
	return state + county + tract + bg
}

func polygonsFromGeoJSON(raw json.RawMessage) ([]*geom.Polygon, error) {
	if len(raw) == 0 {
		return nil, eris.New("census: feature has no geometry")
	}
	var g geom.T
	if err := geojson.Unmarshal(raw, &g); err != nil {
		return nil, eris.Wrap(err, "census: decode geometry")
	}
	switch s := g.(type) {
	case *geom.Polygon:
		return []*geom.Polygon{s}, nil
	case *geom.MultiPolygon:
		polys := make([]*geom.Polygon, 0, s.NumPolygons())
		for i := range s.NumPolygons() {
			polys = append(polys, s.Polygon(i))
		}
		return polys, nil
	default:
		return nil, eris.Errorf("census: unexpected geometry type %T", g)
	}
}
