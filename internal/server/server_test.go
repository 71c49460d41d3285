package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/molattice/internal/logging"
	"github.com/meenmo/molattice/internal/metrics"
	"github.com/meenmo/molattice/internal/server"
	"github.com/meenmo/molattice/pricing"
)

const americanPut = `{"id":"p1","instrument":"american","option_type":"PUT","spot":100,"strike":100,"maturity":1,"rate":5,"vol":20,"steps":200}`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	collector := metrics.New()
	svc := pricing.NewService(pricing.WithObserver(collector))
	ts := httptest.NewServer(server.NewHandler(svc, collector.Handler(), logging.Nop()))
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, body string) (int, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	return resp.StatusCode, out
}

func TestPrice(t *testing.T) {
	t.Parallel()

	ts := newServer(t)
	status, body := post(t, ts.URL+"/v1/price", americanPut)
	require.Equal(t, http.StatusOK, status, string(body))

	var res pricing.Result
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, "p1", res.ID)
	assert.Equal(t, "tree", res.Engine)
	assert.InDelta(t, 6.09, res.NPV.InexactFloat64(), 0.05)
}

func TestPrice_Errors(t *testing.T) {
	t.Parallel()

	ts := newServer(t)
	cases := []struct {
		name   string
		body   string
		status int
		substr string
	}{
		{name: "malformed", body: `{"instrument":`, status: http.StatusBadRequest, substr: "invalid JSON input"},
		{name: "unknown field", body: `{"instrument":"american","colour":"red"}`, status: http.StatusBadRequest, substr: "colour"},
		{name: "trailing data", body: americanPut + `{}`, status: http.StatusBadRequest, substr: "trailing"},
		{name: "unknown instrument", body: `{"instrument":"asian"}`, status: http.StatusNotFound, substr: "unknown instrument"},
		{name: "too many steps", body: strings.Replace(americanPut, `"steps":200`, `"steps":100000`, 1), status: http.StatusUnprocessableEntity, substr: "above limit"},
		{name: "invalid contract", body: `{"instrument":"european","option_type":"CALL","spot":100,"strike":100,"maturity":1}`, status: http.StatusUnprocessableEntity, substr: "vol"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			status, body := post(t, ts.URL+"/v1/price", tc.body)
			assert.Equal(t, tc.status, status)

			var out map[string]string
			require.NoError(t, json.Unmarshal(body, &out))
			assert.Contains(t, out["error"], tc.substr)
		})
	}
}

func TestPriceBatch(t *testing.T) {
	t.Parallel()

	ts := newServer(t)
	status, body := post(t, ts.URL+"/v1/price/batch", `[`+americanPut+`,{"instrument":"asian"}]`)
	require.Equal(t, http.StatusOK, status, string(body))

	var out pricing.BatchResult
	require.NoError(t, json.Unmarshal(body, &out))
	assert.NotEmpty(t, out.BatchID)
	require.Len(t, out.Results, 2)
	assert.Empty(t, out.Results[0].Error)
	assert.Contains(t, out.Results[1].Error, "unknown instrument")

	status, _ = post(t, ts.URL+"/v1/price/batch", `[]`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	ts := newServer(t)
	status, _ := post(t, ts.URL+"/v1/price", americanPut)
	require.Equal(t, http.StatusOK, status)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `lattice_valuations_total{engine="tree",instrument="american"} 1`)

	resp, err = http.Post(ts.URL+"/healthz", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	svc := pricing.NewService()
	ts := httptest.NewServer(server.NewHandler(svc, nil, logging.Nop(), server.WithRateLimit(0.001, 1)))
	t.Cleanup(ts.Close)

	status, _ := post(t, ts.URL+"/v1/price", americanPut)
	assert.Equal(t, http.StatusOK, status)
	status, body := post(t, ts.URL+"/v1/price", americanPut)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Contains(t, string(body), "rate limit")

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
