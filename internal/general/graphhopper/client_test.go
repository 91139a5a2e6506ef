package graphhopper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const routeBody = `{
	"paths": [{
		"distance": 3210.5,
		"time": 420000,
		"points": {
			"type": "LineString",
			"coordinates": [[2.35, 48.85], [2.36, 48.86], [2.37, 48.87]]
		}
	}]
}`

func TestClientRoute(t *testing.T) {
	var gotReq RouteRequest
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/route", r.URL.Path)
		gotKey = r.URL.Query().Get("key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(routeBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-key", 2*time.Second)
	resp, err := c.Route(context.Background(), RouteRequest{
		Profile:       "car",
		Points:        [][]float64{{2.35, 48.85}, {2.37, 48.87}},
		CHDisable:     true,
		PointsEncoded: false,
	})
	require.NoError(t, err)

	assert.Equal(t, "secret-key", gotKey)
	assert.Equal(t, "car", gotReq.Profile)
	assert.True(t, gotReq.CHDisable)

	require.Len(t, resp.Paths, 1)
	assert.Equal(t, 3210.5, resp.Paths[0].DistanceMeters)
	assert.Equal(t, int64(420000), resp.Paths[0].TimeMs)
	assert.Len(t, resp.Paths[0].Points.Coordinates, 3)
	assert.JSONEq(t, routeBody, string(resp.Raw))
}

func TestClientRouteEngineError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Cannot find point 0"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.Route(context.Background(), RouteRequest{Profile: "car"})
	require.Error(t, err)

	var ee *EngineError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, http.StatusBadRequest, ee.StatusCode)
	assert.Equal(t, "Cannot find point 0", ee.Message)
	assert.False(t, ee.Retryable(), "client errors are terminal")
}

func TestClientRouteRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"message":"API limit reached"}`))
			return
		}
		_, _ = w.Write([]byte(routeBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)
	resp, err := c.Route(context.Background(), RouteRequest{Profile: "car"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Len(t, resp.Paths, 1)
}

func TestClientRouteGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)
	_, err := c.Route(context.Background(), RouteRequest{Profile: "car"})
	require.Error(t, err)
	assert.Equal(t, int32(maxAttempts), calls.Load())

	var ee *EngineError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, http.StatusServiceUnavailable, ee.StatusCode)
}

func TestClientRouteEmptyPaths(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"paths":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.Route(context.Background(), RouteRequest{Profile: "car"})
	require.Error(t, err)

	var ee *EngineError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "no paths in response", ee.Message)
}

func TestClientRouteHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.Route(ctx, RouteRequest{Profile: "car"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}