package census

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civiclab/splitrate/internal/fetcher"
)

func bgFeatureJSON(geoid string) string {
	return fmt.Sprintf(`{
		"type": "Feature",
		"properties": {"GEOID": %q},
		"geometry": {
			"type": "Polygon",
			"coordinates": [[[0,0],[0,1],[1,1],[1,0],[0,0]]]
		}
	}`, geoid)
}

func featureCollection(features ...string) string {
	return fmt.Sprintf(`{"type":"FeatureCollection","features":[%s]}`, strings.Join(features, ","))
}

func newBoundaryTestClient(bgURL, tractURL string) *BoundaryClient {
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: 5 * time.Second})
	c := NewBoundaryClient(f)
	c.bgURL = bgURL
	c.tractURL = tractURL
	return c
}

func TestFetchBlockGroupsDirect(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		where := r.URL.Query().Get("where")
		assert.Contains(t, where, "STATE='42'")
		assert.Contains(t, where, "COUNTY='101'")
		w.Write([]byte(featureCollection(
			bgFeatureJSON("421010001001"),
			bgFeatureJSON("421010001002"),
		)))
	}))
	defer srv.Close()

	c := newBoundaryTestClient(srv.URL, srv.URL)
	bgs, err := c.FetchBlockGroups(context.Background(), "42101")
	require.NoError(t, err)
	require.Len(t, bgs, 2)
	assert.Equal(t, "421010001001", bgs[0].GEOID)
	require.Len(t, bgs[0].Polygons, 1)
}

func TestFetchBlockGroupsHTMLFallsBackToChunked(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/bg", func(w http.ResponseWriter, r *http.Request) {
		where := r.URL.Query().Get("where")
		if !strings.Contains(where, "TRACT=") {
			// Direct request rejected with an HTML error page.
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html><body>Request rejected</body></html>"))
			return
		}
		w.Write([]byte(featureCollection(bgFeatureJSON("421010001001"))))
	})
	mux.HandleFunc("/tracts", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"features":[{"attributes":{"TRACT":"000100"}}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newBoundaryTestClient(srv.URL+"/bg", srv.URL+"/tracts")
	bgs, err := c.FetchBlockGroups(context.Background(), "42101")
	require.NoError(t, err)
	require.Len(t, bgs, 1)
	assert.Equal(t, "421010001001", bgs[0].GEOID)
}

func TestFetchBlockGroupsLargeCountyUsesChunked(t *testing.T) {
	t.Parallel()

	var directHits, tractHits int
	mux := http.NewServeMux()
	mux.HandleFunc("/bg", func(w http.ResponseWriter, r *http.Request) {
		where := r.URL.Query().Get("where")
		if !strings.Contains(where, "TRACT=") {
			directHits++
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(featureCollection(bgFeatureJSON("170310001001"))))
	})
	mux.HandleFunc("/tracts", func(w http.ResponseWriter, r *http.Request) {
		tractHits++
		w.Write([]byte(`{"features":[{"attributes":{"TRACT":"000100"}},{"attributes":{"TRACT":"000200"}}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	// Cook County is on the large-county list and must never try the
	// single-shot request.
	c := newBoundaryTestClient(srv.URL+"/bg", srv.URL+"/tracts")
	bgs, err := c.FetchBlockGroups(context.Background(), "17031")
	require.NoError(t, err)
	assert.Len(t, bgs, 2)
	assert.Zero(t, directHits)
	assert.Equal(t, 1, tractHits)
}

func TestParseBlockGroupGeoJSON(t *testing.T) {
	t.Parallel()

	t.Run("multipolygon split into parts", func(t *testing.T) {
		t.Parallel()
		data := featureCollection(`{
			"type": "Feature",
			"properties": {"STATE":"42","COUNTY":"101","TRACT":"000100","BLKGRP":"1"},
			"geometry": {
				"type": "MultiPolygon",
				"coordinates": [
					[[[0,0],[0,1],[1,1],[1,0],[0,0]]],
					[[[2,2],[2,3],[3,3],[3,2],[2,2]]]
				]
			}
		}`)
		bgs, err := parseBlockGroupGeoJSON([]byte(data))
		require.NoError(t, err)
		require.Len(t, bgs, 1)
		assert.Equal(t, "421010001001", bgs[0].GEOID)
		assert.Len(t, bgs[0].Polygons, 2)
	})

	t.Run("feature without geoid skipped", func(t *testing.T) {
		t.Parallel()
		data := featureCollection(`{
			"type": "Feature",
			"properties": {},
			"geometry": {"type":"Polygon","coordinates":[[[0,0],[0,1],[1,1],[1,0],[0,0]]]}
		}`)
		bgs, err := parseBlockGroupGeoJSON([]byte(data))
		require.NoError(t, err)
		assert.Empty(t, bgs)
	})

	t.Run("html payload fails", func(t *testing.T) {
		t.Parallel()
		_, err := parseBlockGroupGeoJSON([]byte("<html>rejected</html>"))
		assert.Error(t, err)
	})
}
