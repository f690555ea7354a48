package census

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/civiclab/splitrate/internal/fetcher"
)

// TIGER/Line block-group archives are published per state. The HTTPS mirror
// is primary; the FTP mirror covers outages.
const (
	tigerHTTPSFormat = "https://www2.census.gov/geo/tiger/TIGER%d/BG/tl_%d_%s_bg.zip"
	tigerFTPFormat   = "ftp://ftp2.census.gov/geo/tiger/TIGER%d/BG/tl_%d_%s_bg.zip"
)

// ShapefileClient downloads the state TIGER/Line block-group archive and
// filters it to one county. It is the fallback boundary source for counties
// TIGERweb cannot serve.
type ShapefileClient struct {
	http     fetcher.Fetcher
	ftp      fetcher.Fetcher
	year     int
	cacheDir string
}

// NewShapefileClient creates a shapefile client. ftpFetcher may be nil to
// disable the FTP fallback. Downloads are cached under cacheDir keyed by
// archive name.
func NewShapefileClient(httpFetcher, ftpFetcher fetcher.Fetcher, year int, cacheDir string) *ShapefileClient {
	if year == 0 {
		year = 2022
	}
	return &ShapefileClient{http: httpFetcher, ftp: ftpFetcher, year: year, cacheDir: cacheDir}
}

// FetchBlockGroups downloads (or reuses) the state archive and returns the
// county's block groups.
func (c *ShapefileClient) FetchBlockGroups(ctx context.Context, fips string) ([]BlockGroup, error) {
	state, county, err := SplitFIPS(fips)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(c.cacheDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "census: create cache dir")
	}

	zipName := fmt.Sprintf("tl_%d_%s_bg.zip", c.year, state)
	zipPath := filepath.Join(c.cacheDir, zipName)

	if info, err := os.Stat(zipPath); err != nil || info.Size() == 0 {
		if err := c.download(ctx, state, zipPath); err != nil {
			return nil, err
		}
	} else {
		zap.L().Debug("census: reusing cached tiger archive", zap.String("path", zipPath))
	}

	extractDir := filepath.Join(c.cacheDir, strings.TrimSuffix(zipName, ".zip"))
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "census: create extract dir")
	}
	if _, err := fetcher.ExtractZIP(zipPath, extractDir); err != nil {
		return nil, eris.Wrap(err, "census: extract tiger archive")
	}

	shpPath, err := findFileByExt(extractDir, ".shp")
	if err != nil {
		return nil, eris.Wrap(err, "census: find .shp file")
	}

	return ParseBlockGroupShapefile(shpPath, county)
}

func (c *ShapefileClient) download(ctx context.Context, state, zipPath string) error {
	httpsURL := fmt.Sprintf(tigerHTTPSFormat, c.year, c.year, state)
	zap.L().Info("census: downloading tiger block groups",
		zap.String("state", state),
		zap.String("url", httpsURL),
	)
	if _, err := c.http.DownloadToFile(ctx, httpsURL, zipPath); err == nil {
		return nil
	} else if c.ftp == nil {
		return eris.Wrap(err, "census: https download failed")
	}

	ftpURL := fmt.Sprintf(tigerFTPFormat, c.year, c.year, state)
	zap.L().Warn("census: https download failed, trying ftp mirror", zap.String("url", ftpURL))
	if _, err := c.ftp.DownloadToFile(ctx, ftpURL, zipPath); err != nil {
		return eris.Wrap(err, "census: ftp download failed")
	}
	return nil
}

// ParseBlockGroupShapefile reads a TIGER/Line block-group shapefile and
// returns the block groups whose COUNTYFP matches countyFIPS.
func ParseBlockGroupShapefile(shpPath, countyFIPS string) ([]BlockGroup, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrap(err, "census: open shapefile")
	}
	defer func() { _ = reader.Close() }()

	stateIdx := fieldIndex(reader, "STATEFP")
	countyIdx := fieldIndex(reader, "COUNTYFP")
	tractIdx := fieldIndex(reader, "TRACTCE")
	bgIdx := fieldIndex(reader, "BLKGRPCE")
	geoidIdx := fieldIndex(reader, "GEOID")
	if countyIdx < 0 || (geoidIdx < 0 && (stateIdx < 0 || tractIdx < 0 || bgIdx < 0)) {
		return nil, eris.New("census: shapefile missing STATEFP/COUNTYFP/TRACTCE/BLKGRPCE fields")
	}

	var out []BlockGroup
	for reader.Next() {
		_, shape := reader.Shape()
		if shape == nil {
			continue
		}
		if strings.TrimSpace(reader.Attribute(countyIdx)) != countyFIPS {
			continue
		}

		var geoid string
		if geoidIdx >= 0 {
			geoid = strings.TrimSpace(reader.Attribute(geoidIdx))
		}
		if geoid == "" {
			// Composing needs all component fields, which may be absent
			// when only a blank GEOID column exists.
			if stateIdx < 0 || tractIdx < 0 || bgIdx < 0 {
				zap.L().Warn("census: skipping record with blank GEOID and no component fields")
				continue
			}
			geoid = strings.TrimSpace(reader.Attribute(stateIdx)) +
				strings.TrimSpace(reader.Attribute(countyIdx)) +
				strings.TrimSpace(reader.Attribute(tractIdx)) +
				strings.TrimSpace(reader.Attribute(bgIdx))
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			zap.L().Debug("census: skipping non-polygon shape", zap.String("geoid", geoid))
			continue
		}
		polys := shpPolygons(poly)
		if len(polys) == 0 {
			continue
		}
		out = append(out, BlockGroup{GEOID: geoid, Polygons: polys})
	}

	if len(out) == 0 {
		return nil, eris.Errorf("census: no block groups for county %s in %s", countyFIPS, filepath.Base(shpPath))
	}
	zap.L().Info("census: parsed block groups from shapefile",
		zap.String("county", countyFIPS),
		zap.Int("block_groups", len(out)),
	)
	return out, nil
}

// shpPolygons converts a shapefile polygon into one geom.Polygon per part.
func shpPolygons(p *shp.Polygon) []*geom.Polygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	polys := make([]*geom.Polygon, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		if len(flat) < 8 {
			continue
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("census: skipping malformed shapefile ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		polys = append(polys, poly)
	}
	return polys
}

// findFileByExt finds the first file with the given extension in a directory.
func findFileByExt(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrap(err, "census: read directory")
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", eris.Errorf("census: no %s file found in %s", ext, dir)
}

// fieldIndex returns the index of a named field in the shapefile, or -1.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}
