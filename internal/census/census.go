// Package census fetches block-group demographics from the ACS API and
// block-group boundaries from TIGERweb, with a TIGER/Line shapefile fallback
// for counties the boundary API cannot serve in one response.
package census

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/civiclab/splitrate/internal/model"
)

// BlockGroup is one census block group boundary. The GEOID is the 12-digit
// state+county+tract+blockgroup code; polygons are WGS84.
type BlockGroup struct {
	GEOID    string
	Polygons []*geom.Polygon
}

// SplitFIPS validates a 5-digit county FIPS code and splits it into state
// and county parts.
func SplitFIPS(fips string) (state, county string, err error) {
	if len(fips) != 5 {
		return "", "", eris.Wrapf(model.ErrMalformedInput,
			"census: fips code must be 5 digits (state + county), got %q", fips)
	}
	for _, r := range fips {
		if r < '0' || r > '9' {
			return "", "", eris.Wrapf(model.ErrMalformedInput,
				"census: fips code must be numeric, got %q", fips)
		}
	}
	return fips[:2], fips[2:], nil
}
