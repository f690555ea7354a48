package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civiclab/splitrate/internal/config"
	"github.com/civiclab/splitrate/internal/model"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.Scenario.CurrentMillage = 12
	c.Scenario.Ratio = 2
	return c
}

func serveTestParcels() []model.Parcel {
	return []model.Parcel{
		{ID: "a", LandValue: 50000, ImprovementValue: 150000, PropertyUse: "Single Family", TaxDistrict: "D1"},
		{ID: "b", LandValue: 80000, ImprovementValue: 0, PropertyUse: "Vacant Land", TaxDistrict: "D1"},
		{ID: "c", LandValue: 60000, ImprovementValue: 240000, PropertyUse: "Office", TaxDistrict: "D2"},
	}
}

func TestServeHealth(t *testing.T) {
	cfg = testConfig()
	srv := httptest.NewServer(newRouter(serveTestParcels()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestServeScenario(t *testing.T) {
	cfg = testConfig()
	srv := httptest.NewServer(newRouter(serveTestParcels()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/scenario?ratio=3")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Scenario model.Scenario `json:"scenario"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.InDelta(t, 3.0, body.Scenario.Ratio, 1e-9)
	assert.InDelta(t, body.Scenario.CurrentRevenue, body.Scenario.NewRevenue, 1e-6*body.Scenario.CurrentRevenue)
	assert.Greater(t, body.Scenario.LandMillage, body.Scenario.BuildingMillage)
}

func TestServeScenarioDefaultRatio(t *testing.T) {
	cfg = testConfig()
	srv := httptest.NewServer(newRouter(serveTestParcels()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/scenario")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Scenario model.Scenario `json:"scenario"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.InDelta(t, 2.0, body.Scenario.Ratio, 1e-9)
}

func TestServeScenarioBadRatio(t *testing.T) {
	cfg = testConfig()
	srv := httptest.NewServer(newRouter(serveTestParcels()))
	defer srv.Close()

	for _, q := range []string{"ratio=abc", "ratio=-1", "ratio=0"} {
		resp, err := http.Get(srv.URL + "/api/scenario?" + q)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestServeImpact(t *testing.T) {
	cfg = testConfig()
	srv := httptest.NewServer(newRouter(serveTestParcels()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/impact")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Tables []struct {
			Name  string `json:"Name"`
			Stats []struct {
				Group string `json:"group"`
				Count int    `json:"count"`
			} `json:"Stats"`
		} `json:"tables"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Tables)
	assert.Equal(t, "By Category", body.Tables[0].Name)
	assert.NotEmpty(t, body.Tables[0].Stats)
}
