// Package geomatch joins census block-group demographics onto parcels by
// point-in-polygon containment of the parcel centroid.
package geomatch

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/civiclab/splitrate/internal/census"
	"github.com/civiclab/splitrate/internal/model"
)

// Stats reports the outcome of a demographic join.
type Stats struct {
	Matched        int `json:"matched"`
	NoCentroid     int `json:"no_centroid"`
	NoBoundary     int `json:"no_boundary"`
	NoDemographics int `json:"no_demographics"`
}

// indexedBoundary caches each polygon's bounds for the containment prefilter.
type indexedBoundary struct {
	geoid  string
	bounds []*geom.Bounds
	polys  []*geom.Polygon
}

// Join attaches demographics to every parcel whose centroid falls inside a
// block group that has demographic data. It is a left join: parcels without
// geometry, outside every boundary, or in a block group with no ACS row keep
// a nil Demographics and stay in tax aggregations.
func Join(parcels []model.Parcel, boundaries []census.BlockGroup, demos []model.Demographics) Stats {
	byGEOID := make(map[string]*model.Demographics, len(demos))
	for i := range demos {
		byGEOID[demos[i].GEOID] = &demos[i]
	}

	indexed := make([]indexedBoundary, 0, len(boundaries))
	for _, bg := range boundaries {
		ib := indexedBoundary{geoid: bg.GEOID, polys: bg.Polygons}
		for _, p := range bg.Polygons {
			ib.bounds = append(ib.bounds, p.Bounds())
		}
		indexed = append(indexed, ib)
	}

	var stats Stats
	for i := range parcels {
		p := &parcels[i]
		if p.Longitude == 0 && p.Latitude == 0 {
			stats.NoCentroid++
			continue
		}

		geoid := findBlockGroup(indexed, p.Longitude, p.Latitude)
		if geoid == "" {
			stats.NoBoundary++
			continue
		}

		d, ok := byGEOID[geoid]
		if !ok {
			stats.NoDemographics++
			continue
		}
		demo := *d
		p.Demographics = &demo
		stats.Matched++
	}

	zap.L().Info("geomatch: demographic join complete",
		zap.Int("parcels", len(parcels)),
		zap.Int("matched", stats.Matched),
		zap.Int("no_centroid", stats.NoCentroid),
		zap.Int("no_boundary", stats.NoBoundary),
		zap.Int("no_demographics", stats.NoDemographics),
	)
	return stats
}

// findBlockGroup returns the GEOID of the first block group containing the
// point, or empty when none does.
func findBlockGroup(boundaries []indexedBoundary, lon, lat float64) string {
	pt := geom.Coord{lon, lat}
	for i := range boundaries {
		b := &boundaries[i]
		for j, poly := range b.polys {
			if !b.bounds[j].OverlapsPoint(geom.XY, pt) {
				continue
			}
			if polygonContains(poly, pt) {
				return b.geoid
			}
		}
	}
	return ""
}

// polygonContains tests containment in the exterior ring minus any holes.
func polygonContains(poly *geom.Polygon, pt geom.Coord) bool {
	if poly.NumLinearRings() == 0 {
		return false
	}
	if !xy.IsPointInRing(poly.Layout(), pt, poly.LinearRing(0).FlatCoords()) {
		return false
	}
	for i := 1; i < poly.NumLinearRings(); i++ {
		if xy.IsPointInRing(poly.Layout(), pt, poly.LinearRing(i).FlatCoords()) {
			return false
		}
	}
	return true
}
