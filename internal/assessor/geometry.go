package assessor

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"
)

// featureCentroid returns the lon/lat centroid of an ESRI geometry. Point
// geometries return their coordinates directly; polygon geometries use the
// area centroid of the first valid ring.
func featureCentroid(g *esriGeometry) (lon, lat float64, ok bool) {
	if g == nil {
		return 0, 0, false
	}
	if g.X != nil && g.Y != nil {
		return *g.X, *g.Y, true
	}
	if len(g.Rings) == 0 {
		return 0, 0, false
	}

	poly := geom.NewPolygon(geom.XY)
	for i, ringPts := range g.Rings {
		flat := make([]float64, 0, len(ringPts)*2)
		for _, pt := range ringPts {
			if len(pt) < 2 {
				continue
			}
			flat = append(flat, pt[0], pt[1])
		}
		// A linear ring needs at least four points with matching endpoints.
		if len(flat) < 8 {
			continue
		}
		if flat[0] != flat[len(flat)-2] || flat[1] != flat[len(flat)-1] {
			flat = append(flat, flat[0], flat[1])
		}
		ring := geom.NewLinearRingFlat(geom.XY, flat)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("assessor: skipping malformed ring", zap.Int("ring", i), zap.Error(err))
			continue
		}
	}
	if poly.NumLinearRings() == 0 {
		return 0, 0, false
	}

	c, err := xy.Centroid(poly)
	if err != nil {
		zap.L().Debug("assessor: centroid failed", zap.Error(err))
		return 0, 0, false
	}
	return c[0], c[1], true
}
