package cmd_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-arrower/ipquery"
	"github.com/go-arrower/ipquery/cmd"
	"github.com/go-arrower/ipquery/store"
)

// newLookupServer imitates api.ipquery.io, resolving every IP to Erfurt.
func newLookupServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := strings.TrimPrefix(r.URL.Path, "/")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ipquery.Record{
			IP:       ip,
			Location: ipquery.Location{City: "Erfurt", CountryCode: "DE"},
		})
	}))
	t.Cleanup(srv.Close)

	return srv
}

func testConfig(t *testing.T, endpoint string) cmd.Config {
	t.Helper()

	vip := cmd.DefaultViper()
	vip.Set("endpoint", endpoint+"/")
	vip.Set("environment", "prod")

	conf, err := cmd.LoadConfig(vip)
	require.NoError(t, err)

	return conf
}

func TestNewApp(t *testing.T) {
	t.Parallel()

	t.Run("lookup and store every visit", func(t *testing.T) {
		t.Parallel()

		lookup := newLookupServer(t)

		app, err := cmd.NewApp(context.Background(), testConfig(t, lookup.URL))
		require.NoError(t, err)

		t.Cleanup(func() { _ = app.Shutdown(context.Background()) })

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.7:54321"
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "your visit has been recorded")
		assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

		memory, ok := app.Store.(*store.Memory)
		require.True(t, ok)
		assert.Len(t, memory.Records(), 1)

		// read the lookup back, this route is not looked up itself
		req = httptest.NewRequest(http.MethodGet, "/lookups/203.0.113.7", nil)
		rec = httptest.NewRecorder()
		app.Router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var record ipquery.Record

		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&record))
		assert.Equal(t, "203.0.113.7", record.IP)
		assert.Equal(t, "Erfurt", record.Location.City)
		assert.Len(t, memory.Records(), 1)
	})

	t.Run("unknown lookup", func(t *testing.T) {
		t.Parallel()

		app, err := cmd.NewApp(context.Background(), testConfig(t, newLookupServer(t).URL))
		require.NoError(t, err)

		t.Cleanup(func() { _ = app.Shutdown(context.Background()) })

		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lookups/192.0.2.99", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("failing lookup service", func(t *testing.T) {
		t.Parallel()

		lookup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		t.Cleanup(lookup.Close)

		app, err := cmd.NewApp(context.Background(), testConfig(t, lookup.URL))
		require.NoError(t, err)

		t.Cleanup(func() { _ = app.Shutdown(context.Background()) })

		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "your visit has been recorded")

		// health checks are not affected
		rec = httptest.NewRecorder()
		app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("log store can not read lookups", func(t *testing.T) {
		t.Parallel()

		conf := testConfig(t, newLookupServer(t).URL)
		conf.Store.Kind = cmd.StoreLog

		app, err := cmd.NewApp(context.Background(), conf)
		require.NoError(t, err)

		t.Cleanup(func() { _ = app.Shutdown(context.Background()) })

		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lookups/203.0.113.7", nil))

		assert.Equal(t, http.StatusNotImplemented, rec.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		t.Parallel()

		app, err := cmd.NewApp(context.Background(), testConfig(t, newLookupServer(t).URL))
		require.NoError(t, err)

		t.Cleanup(func() { _ = app.Shutdown(context.Background()) })

		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		count, err := testutil.GatherAndCount(app.Registry, "ipquery_requests_total", "ipquery_stages_total")
		assert.NoError(t, err)
		assert.Equal(t, 3, count, "one request and two stages")
	})

	t.Run("offline resolver with missing database", func(t *testing.T) {
		t.Parallel()

		conf := testConfig(t, "https://mock.local")
		conf.Resolver = cmd.Resolver{Kind: cmd.ResolverMaxMind, DBPath: "testdata/non-existing.mmdb"}

		app, err := cmd.NewApp(context.Background(), conf)
		assert.Error(t, err)
		assert.Nil(t, app)
	})
}
