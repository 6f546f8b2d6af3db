package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	tripfinder "github.com/mnrtools/tripfinder"
	"github.com/mnrtools/tripfinder/metrics"
	"github.com/mnrtools/tripfinder/storage"
	"github.com/mnrtools/tripfinder/testutil"
)

const testStaticURL = "http://example.com/gtfs.zip"

func testServer(t *testing.T, loaded bool) *Server {
	t.Helper()

	dl := &testutil.StubDownloader{
		Responses: map[string][]byte{
			testStaticURL: testutil.BuildZip(t, testutil.ValidFeed()),
		},
	}

	store := tripfinder.NewStore(tripfinder.StoreConfig{
		StaticURL: testStaticURL,
		Location:  time.UTC,
	}, storage.NewMemoryStorage(), dl, zap.NewNop())

	if loaded {
		require.NoError(t, store.Load(context.Background()))
	}

	return New(Config{
		ListenAddr: ":0",
		Location:   time.UTC,
	}, store, dl, zap.NewNop(), metrics.NewCollector())
}

func get(srv *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHome(t *testing.T) {
	srv := testServer(t, true)

	w := get(srv, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "find-trips")
}

func TestHealth(t *testing.T) {
	srv := testServer(t, true)
	w := get(srv, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)

	srv = testServer(t, false)
	w = get(srv, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestFindTripsMissingParameters(t *testing.T) {
	srv := testServer(t, true)

	for _, path := range []string{
		"/find-trips",
		"/find-trips?origin=Stamford",
		"/find-trips?destination=Grand%20Central",
	} {
		w := get(srv, path)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Both origin and destination parameters are required.", body["error"])
	}
}

func TestFindTripsInvalidDate(t *testing.T) {
	srv := testServer(t, true)

	w := get(srv, "/find-trips?origin=Stamford&destination=Grand%20Central&date=06-03-2097")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Invalid date, expected YYYY-MM-DD.", body["error"])
}

func TestFindTripsUnknownStation(t *testing.T) {
	srv := testServer(t, true)

	w := get(srv, "/find-trips?origin=Narnia&destination=Grand%20Central&date=2097-06-03")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Invalid station names.", body["error"])
}

func TestFindTripsNoSnapshot(t *testing.T) {
	srv := testServer(t, false)

	w := get(srv, "/find-trips?origin=Stamford&destination=Grand%20Central")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestFindTrips(t *testing.T) {
	srv := testServer(t, true)

	// A date far in the future, so no departure counts as already
	// gone.
	w := get(srv, "/find-trips?origin=stamford&destination=GRAND%20CENTRAL&date=2097-06-03")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body struct {
		Trips []map[string]interface{} `json:"trips"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Trips, 2)

	first := body.Trips[0]
	assert.Equal(t, "6501", first["trip_short_name"])
	assert.Equal(t, "Stamford", first["origin"])
	assert.Equal(t, "Grand Central", first["destination"])
	assert.Equal(t, "08:15 AM", first["scheduled_departure_time"])
	assert.Equal(t, "09:10 AM", first["scheduled_arrival_time"])
	assert.Equal(t, float64(55), first["duration_minutes"])
	assert.Equal(t, "5", first["track"])
	assert.Equal(t, float64(3), first["stop_count"])
	assert.Equal(t, "Grand Central", first["last_stop"])

	// No realtime overlay configured: the status fields are omitted.
	_, ok := first["departure_status"]
	assert.False(t, ok)
}

func TestFindTripsOverlayFailureIsNotFatal(t *testing.T) {
	dl := &testutil.StubDownloader{
		Responses: map[string][]byte{
			testStaticURL: testutil.BuildZip(t, testutil.ValidFeed()),
		},
	}

	store := tripfinder.NewStore(tripfinder.StoreConfig{
		StaticURL: testStaticURL,
		Location:  time.UTC,
	}, storage.NewMemoryStorage(), dl, zap.NewNop())
	require.NoError(t, store.Load(context.Background()))

	// The realtime URL is configured but unreachable.
	dl.Err = fmt.Errorf("connection refused")

	srv := New(Config{
		ListenAddr:  ":0",
		RealtimeURL: "http://example.com/rt",
		Location:    time.UTC,
	}, store, dl, zap.NewNop(), metrics.NewCollector())

	w := get(srv, "/find-trips?origin=Stamford&destination=Grand%20Central&date=2097-06-03")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Trips []map[string]interface{} `json:"trips"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Trips, 2)
}
