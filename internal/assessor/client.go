// Package assessor pulls the parcel roll from a county assessor's ArcGIS
// REST endpoint (FeatureServer or MapServer layer) and maps feature
// attributes onto parcels.
package assessor

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/civiclab/splitrate/internal/fetcher"
	"github.com/civiclab/splitrate/internal/model"
)

// pageSize is the record cap most ArcGIS servers enforce per query.
const pageSize = 2000

// FieldMap names the layer attributes that carry each parcel field. ID,
// LandValue, and ImprovementValue are required; the rest are optional.
type FieldMap struct {
	ID               string `mapstructure:"id"`
	LandValue        string `mapstructure:"land_value"`
	ImprovementValue string `mapstructure:"improvement_value"`
	ExemptionAmount  string `mapstructure:"exemption_amount"`
	FullyExempt      string `mapstructure:"fully_exempt"`
	PropertyUse      string `mapstructure:"property_use"`
	TaxDistrict      string `mapstructure:"tax_district"`
	Township         string `mapstructure:"township"`
	Owner            string `mapstructure:"owner"`
}

func (fm FieldMap) validate() error {
	if fm.ID == "" || fm.LandValue == "" || fm.ImprovementValue == "" {
		return eris.Wrap(model.ErrMalformedInput,
			"assessor: field map must name id, land_value, and improvement_value attributes")
	}
	return nil
}

// Options configures the assessor client.
type Options struct {
	// LayerURL is the full layer endpoint, e.g.
	// https://host/arcgis/rest/services/Parcels/FeatureServer/0
	LayerURL string
	// Where filters the layer; defaults to "1=1".
	Where  string
	Fields FieldMap
}

// Client pages parcel features out of an ArcGIS layer.
type Client struct {
	fetcher *fetcher.HTTPFetcher
	opts    Options
}

// NewClient creates an assessor client. The layer URL and field map are
// validated up front so a misconfigured run fails before any requests.
func NewClient(f *fetcher.HTTPFetcher, opts Options) (*Client, error) {
	if opts.LayerURL == "" {
		return nil, eris.New("assessor: layer url is required")
	}
	if err := opts.Fields.validate(); err != nil {
		return nil, err
	}
	if opts.Where == "" {
		opts.Where = "1=1"
	}
	opts.LayerURL = strings.TrimRight(opts.LayerURL, "/")
	return &Client{fetcher: f, opts: opts}, nil
}

type countResponse struct {
	Count int `json:"count"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type queryResponse struct {
	Features []feature `json:"features"`
	Error    *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type feature struct {
	Attributes map[string]any `json:"attributes"`
	Geometry   *esriGeometry  `json:"geometry"`
}

type esriGeometry struct {
	X     *float64      `json:"x"`
	Y     *float64      `json:"y"`
	Rings [][][]float64 `json:"rings"`
}

// Count returns the number of features matching the where clause.
func (c *Client) Count(ctx context.Context) (int, error) {
	params := url.Values{
		"where":           {c.opts.Where},
		"returnCountOnly": {"true"},
		"f":               {"json"},
	}
	var resp countResponse
	if err := c.fetcher.GetJSON(ctx, c.opts.LayerURL+"/query", params, &resp); err != nil {
		return 0, eris.Wrap(err, "assessor: count query")
	}
	if resp.Error != nil {
		return 0, eris.Errorf("assessor: server error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	return resp.Count, nil
}

// FetchParcels pages through the layer and returns the mapped parcel roll.
// Features that cannot be mapped are skipped with a warning rather than
// failing the whole pull.
func (c *Client) FetchParcels(ctx context.Context) ([]model.Parcel, error) {
	total, err := c.Count(ctx)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, eris.Errorf("assessor: no features match %q", c.opts.Where)
	}
	zap.L().Info("assessor: fetching parcel roll",
		zap.String("layer", c.opts.LayerURL),
		zap.Int("features", total),
	)

	parcels := make([]model.Parcel, 0, total)
	var skipped int
	for offset := 0; offset < total; offset += pageSize {
		params := url.Values{
			"where":             {c.opts.Where},
			"outFields":         {"*"},
			"returnGeometry":    {"true"},
			"outSR":             {"4326"},
			"resultOffset":      {fmt.Sprint(offset)},
			"resultRecordCount": {fmt.Sprint(pageSize)},
			"f":                 {"json"},
		}
		var resp queryResponse
		if err := c.fetcher.GetJSON(ctx, c.opts.LayerURL+"/query", params, &resp); err != nil {
			return nil, eris.Wrapf(err, "assessor: query page at offset %d", offset)
		}
		if resp.Error != nil {
			return nil, eris.Errorf("assessor: server error %d: %s", resp.Error.Code, resp.Error.Message)
		}

		for i := range resp.Features {
			p, err := c.mapFeature(&resp.Features[i])
			if err != nil {
				skipped++
				zap.L().Warn("assessor: skipping malformed feature",
					zap.Int("offset", offset+i),
					zap.Error(err),
				)
				continue
			}
			parcels = append(parcels, p)
		}
	}

	if skipped > 0 {
		zap.L().Warn("assessor: skipped malformed features", zap.Int("skipped", skipped))
	}
	if len(parcels) == 0 {
		return nil, eris.Wrap(model.ErrMalformedInput, "assessor: every feature failed to map")
	}
	return parcels, nil
}

// mapFeature converts one ArcGIS feature into a parcel using the field map.
func (c *Client) mapFeature(f *feature) (model.Parcel, error) {
	fm := c.opts.Fields
	attrs := f.Attributes

	id, err := attrString(attrs, fm.ID)
	if err != nil || id == "" {
		return model.Parcel{}, eris.Wrapf(model.ErrMalformedInput, "assessor: missing id attribute %q", fm.ID)
	}
	land, err := attrFloat(attrs, fm.LandValue)
	if err != nil {
		return model.Parcel{}, eris.Wrapf(err, "assessor: parcel %s land value", id)
	}
	impr, err := attrFloat(attrs, fm.ImprovementValue)
	if err != nil {
		return model.Parcel{}, eris.Wrapf(err, "assessor: parcel %s improvement value", id)
	}

	p := model.Parcel{
		ID:               id,
		LandValue:        land,
		ImprovementValue: impr,
	}
	if fm.ExemptionAmount != "" {
		if v, err := attrFloat(attrs, fm.ExemptionAmount); err == nil {
			p.ExemptionAmount = v
		}
	}
	if fm.FullyExempt != "" {
		p.FullyExempt = attrBool(attrs, fm.FullyExempt)
	}
	if fm.PropertyUse != "" {
		p.PropertyUse, _ = attrString(attrs, fm.PropertyUse)
	}
	if fm.TaxDistrict != "" {
		p.TaxDistrict, _ = attrString(attrs, fm.TaxDistrict)
	}
	if fm.Township != "" {
		p.Township, _ = attrString(attrs, fm.Township)
	}
	if fm.Owner != "" {
		p.Owner, _ = attrString(attrs, fm.Owner)
	}

	if lon, lat, ok := featureCentroid(f.Geometry); ok {
		p.Longitude = lon
		p.Latitude = lat
	}

	return p, nil
}

func attrString(attrs map[string]any, key string) (string, error) {
	v, ok := attrs[key]
	if !ok || v == nil {
		return "", eris.Errorf("attribute %q absent", key)
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s), nil
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", s), "0"), "."), nil
	default:
		return fmt.Sprint(v), nil
	}
}

func attrFloat(attrs map[string]any, key string) (float64, error) {
	v, ok := attrs[key]
	if !ok || v == nil {
		return 0, eris.Wrapf(model.ErrMalformedInput, "attribute %q absent", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		var parsed float64
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%f", &parsed); err != nil {
			return 0, eris.Wrapf(model.ErrMalformedInput, "attribute %q is not numeric: %q", key, n)
		}
		return parsed, nil
	default:
		return 0, eris.Wrapf(model.ErrMalformedInput, "attribute %q has type %T", key, v)
	}
}

// attrBool treats Y, YES, TRUE, T, and nonzero numbers as true.
func attrBool(attrs map[string]any, key string) bool {
	v, ok := attrs[key]
	if !ok || v == nil {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b != 0
	case string:
		switch strings.ToUpper(strings.TrimSpace(b)) {
		case "Y", "YES", "TRUE", "T", "1":
			return true
		}
	}
	return false
}
