package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"live-nav/internal/domain/geo"
	"live-nav/internal/domain/incident"
	"live-nav/internal/domain/route"
	"live-nav/internal/domain/user"
	"live-nav/internal/general/contracts"
	"live-nav/internal/general/graphhopper"
	"live-nav/internal/general/logger"
	"live-nav/internal/general/websocket"
)

// ----- fakes -----

type fakeUow struct{}

func (fakeUow) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeIncidents struct {
	recent    []incident.Incident
	near      []incident.Incident
	recentErr error
	nearErr   error
}

func (f *fakeIncidents) ListRecent(_ context.Context, _ time.Time, _ int) ([]incident.Incident, error) {
	return f.recent, f.recentErr
}

func (f *fakeIncidents) ListNear(_ context.Context, _, _, _ float64) ([]incident.Incident, error) {
	return f.near, f.nearErr
}

type fakeEngine struct {
	resp    *graphhopper.RouteResponse
	err     error
	calls   int
	lastReq graphhopper.RouteRequest
}

func (f *fakeEngine) Route(_ context.Context, req graphhopper.RouteRequest) (*graphhopper.RouteResponse, error) {
	f.calls++
	f.lastReq = req
	return f.resp, f.err
}

type published struct {
	exchange, key string
	body          []byte
}

type fakePublisher struct {
	events []published
}

func (f *fakePublisher) Publish(exchange, routingKey string, body []byte) error {
	f.events = append(f.events, published{exchange, routingKey, body})
	return nil
}

// ----- helpers -----

var testPath = []geo.Point{
	{Lat: 48.85, Lon: 2.35},
	{Lat: 48.86, Lon: 2.36},
	{Lat: 48.87, Lon: 2.37},
}

func newTestSession() *websocket.Session {
	adm := &websocket.Admission{
		User:        &user.User{ID: 1, Role: user.RoleUser},
		Route:       &route.Route{ID: 2, UserID: 1},
		PathIndex:   0,
		InitialPath: testPath,
	}
	return websocket.NewSession("sess-1", adm, nil)
}

func newTestService(incidents *fakeIncidents, engine *fakeEngine, pub *fakePublisher) *NavigationService {
	return NewNavigationService(logger.New("test"), fakeUow{}, incidents, engine, pub, nil, "en")
}

// ----- tests -----

func TestHandleLocationOnRoute(t *testing.T) {
	near := []incident.Incident{{ID: 9, Type: incident.TypeAccident, Latitude: 48.851, Longitude: 2.351, ReportedBy: 3}}
	incidents := &fakeIncidents{near: near}
	engine := &fakeEngine{}
	svc := newTestService(incidents, engine, &fakePublisher{})
	sess := newTestSession()

	// about 3 m off the second vertex, well inside tolerance
	msg := contracts.LocationMessage{Location: []float64{2.36, 48.860027}}
	update, err := svc.HandleLocation(context.Background(), sess, msg)
	require.NoError(t, err)

	assert.Equal(t, contracts.FrameNavigationUpdate, update.Type)
	assert.Nil(t, update.GraphHopperResponse)
	assert.Equal(t, near, update.NearIncidents)
	assert.Equal(t, 0, engine.calls, "no reroute while on route")
	assert.Equal(t, testPath, sess.CurrentPath(), "path unchanged while on route")
}

func TestHandleLocationOnRouteIsIdempotent(t *testing.T) {
	incidents := &fakeIncidents{}
	engine := &fakeEngine{}
	svc := newTestService(incidents, engine, &fakePublisher{})
	sess := newTestSession()

	msg := contracts.LocationMessage{Location: []float64{2.36, 48.86}}
	for i := 0; i < 3; i++ {
		update, err := svc.HandleLocation(context.Background(), sess, msg)
		require.NoError(t, err)
		assert.Nil(t, update.GraphHopperResponse)
		assert.NotNil(t, update.NearIncidents)
		assert.Empty(t, update.NearIncidents)
	}
	assert.Equal(t, 0, engine.calls)
}

func TestHandleLocationDeviationTriggersReroute(t *testing.T) {
	raw := json.RawMessage(`{"paths":[{"distance":1234.5}]}`)
	engine := &fakeEngine{
		resp: &graphhopper.RouteResponse{
			Paths: []graphhopper.EnginePath{{
				DistanceMeters: 1234.5,
				TimeMs:         60000,
				Points: graphhopper.LineString{
					Type: "LineString",
					Coordinates: [][]float64{
						{2.40, 48.895},
						{2.41, 48.90},
						{2.37, 48.87},
					},
				},
			}},
			Raw: raw,
		},
	}
	incidents := &fakeIncidents{
		recent: []incident.Incident{{ID: 4, Type: incident.TypeRoadClosed, Latitude: 48.88, Longitude: 2.39, ReportedBy: 3}},
	}
	pub := &fakePublisher{}
	svc := newTestService(incidents, engine, pub)
	sess := newTestSession()

	// kilometers away from every segment
	msg := contracts.LocationMessage{Location: []float64{2.40, 48.895}, Profile: "car"}
	update, err := svc.HandleLocation(context.Background(), sess, msg)
	require.NoError(t, err)

	require.Equal(t, 1, engine.calls)
	req := engine.lastReq
	assert.Equal(t, "car", req.Profile)
	assert.True(t, req.CHDisable)
	assert.False(t, req.PointsEncoded)
	require.Len(t, req.Points, 2)
	assert.Equal(t, []float64{2.40, 48.895}, req.Points[0], "origin is the reported location, (lon, lat)")
	assert.Equal(t, []float64{2.37, 48.87}, req.Points[1], "destination is the end of the original path")
	require.NotNil(t, req.CustomModel)
	require.Len(t, req.CustomModel.Speed, 1)
	assert.Equal(t, "in_incident_4", req.CustomModel.Speed[0].If)

	// engine body forwarded untouched
	assert.Equal(t, raw, update.GraphHopperResponse)
	assert.NotNil(t, update.NearIncidents)

	// engine coordinates (lon, lat) installed as the new path in (lat, lon)
	want := []geo.Point{{Lat: 48.895, Lon: 2.40}, {Lat: 48.90, Lon: 2.41}, {Lat: 48.87, Lon: 2.37}}
	assert.Equal(t, want, sess.CurrentPath())

	// deviation and reroute telemetry on the topic exchange
	keys := make([]string, 0, len(pub.events))
	for _, e := range pub.events {
		assert.Equal(t, contracts.ExchangeNavTopic, e.exchange)
		keys = append(keys, e.key)
	}
	assert.Contains(t, keys, contracts.RouteDeviation)
	assert.Contains(t, keys, contracts.RouteRerouted)
}

func TestHandleLocationRerouteWithoutIncidents(t *testing.T) {
	engine := &fakeEngine{
		resp: &graphhopper.RouteResponse{
			Paths: []graphhopper.EnginePath{{
				Points: graphhopper.LineString{
					Type:        "LineString",
					Coordinates: [][]float64{{2.40, 48.895}, {2.37, 48.87}},
				},
			}},
			Raw: json.RawMessage(`{"paths":[]}`),
		},
	}
	svc := newTestService(&fakeIncidents{}, engine, &fakePublisher{})
	sess := newTestSession()

	msg := contracts.LocationMessage{Location: []float64{2.40, 48.895}}
	update, err := svc.HandleLocation(context.Background(), sess, msg)
	require.NoError(t, err)

	require.Equal(t, 1, engine.calls)
	assert.Nil(t, engine.lastReq.CustomModel, "no avoidance model without incidents")
	assert.True(t, engine.lastReq.CHDisable)
	assert.NotNil(t, update.GraphHopperResponse)

	// the two engine coordinates, reordered to (lat, lon), replace the path
	want := []geo.Point{{Lat: 48.895, Lon: 2.40}, {Lat: 48.87, Lon: 2.37}}
	assert.Equal(t, want, sess.CurrentPath())
}

func TestHandleLocationEngineFailure(t *testing.T) {
	engine := &fakeEngine{err: errors.New("boom")}
	svc := newTestService(&fakeIncidents{}, engine, &fakePublisher{})
	sess := newTestSession()

	msg := contracts.LocationMessage{Location: []float64{2.40, 48.895}}
	_, err := svc.HandleLocation(context.Background(), sess, msg)
	require.Error(t, err)

	assert.Equal(t, testPath, sess.CurrentPath(), "failed reroute keeps the previous path")
}

func TestHandleLocationRejectsBadCoordinates(t *testing.T) {
	svc := newTestService(&fakeIncidents{}, &fakeEngine{}, &fakePublisher{})
	sess := newTestSession()

	cases := [][]float64{
		nil,
		{2.35},
		{2.35, 48.85, 1.0},
		{200.0, 48.85},
		{2.35, 95.0},
	}
	for _, loc := range cases {
		_, err := svc.HandleLocation(context.Background(), sess, contracts.LocationMessage{Location: loc})
		require.Error(t, err, "location %v", loc)
		assert.ErrorIs(t, err, websocket.ErrBadMessage, "location %v", loc)
	}
}

func TestSessionLifecycleEvents(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(&fakeIncidents{}, &fakeEngine{}, pub)
	sess := newTestSession()

	svc.SessionStarted(context.Background(), sess)
	sess.SetLastLocation(geo.Point{Lat: 48.85, Lon: 2.35})
	svc.SessionClosed(context.Background(), sess)

	require.Len(t, pub.events, 2)
	assert.Equal(t, contracts.RouteSessionStarted, pub.events[0].key)
	assert.Equal(t, contracts.RouteSessionClosed, pub.events[1].key)

	var evt contracts.SessionEvent
	require.NoError(t, json.Unmarshal(pub.events[1].body, &evt))
	assert.Equal(t, "sess-1", evt.SessionID)
	assert.Equal(t, int64(1), evt.UserID)
	require.NotNil(t, evt.Location)
	assert.Equal(t, 48.85, evt.Location.Lat)
}
