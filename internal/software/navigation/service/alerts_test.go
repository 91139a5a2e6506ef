package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	gorilla "github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"live-nav/internal/domain/geo"
	"live-nav/internal/domain/incident"
	"live-nav/internal/domain/route"
	"live-nav/internal/domain/user"
	"live-nav/internal/general/cache"
	"live-nav/internal/general/contracts"
	"live-nav/internal/general/logger"
	"live-nav/internal/general/websocket"
)

var alertsUpgrader = gorilla.Upgrader{}

// liveSession dials one connection against a throwaway upgrade server,
// registers the server side as a live session at the given point, and
// returns the client side for reading pushed frames.
func liveSession(t *testing.T, registry *websocket.Registry, id string, at geo.Point) *gorilla.Conn {
	t.Helper()

	accepted := make(chan *gorilla.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := alertsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Error(err)
			return
		}
		accepted <- c
	}))
	t.Cleanup(srv.Close)

	client, resp, err := gorilla.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { _ = client.Close() })

	serverConn := <-accepted
	t.Cleanup(func() { _ = serverConn.Close() })

	adm := &websocket.Admission{
		User:        &user.User{ID: 1, Role: user.RoleUser},
		Route:       &route.Route{ID: 2, UserID: 1},
		InitialPath: testPath,
	}
	sess := websocket.NewSession(id, adm, serverConn)
	sess.SetLastLocation(at)
	registry.Add(sess)
	return client
}

func encodeIncidentEvent(t *testing.T, inc incident.Incident) []byte {
	t.Helper()
	body, err := json.Marshal(contracts.IncidentReportedEvent{
		Incident: inc,
		Envelope: contracts.NewEnvelope("incident-management"),
	})
	require.NoError(t, err)
	return body
}

func TestIncidentAlertFanout(t *testing.T) {
	svc := newTestService(&fakeIncidents{}, &fakeEngine{}, &fakePublisher{})
	registry := websocket.NewRegistry()

	inc := incident.Incident{
		ID:         7,
		Type:       incident.TypeAccident,
		Latitude:   48.85,
		Longitude:  2.35,
		ReportedBy: 3,
	}

	nearLoc := geo.Point{Lat: 48.852, Lon: 2.35} // a few hundred meters out
	farLoc := geo.Point{Lat: 48.90, Lon: 2.35}   // several kilometers out
	nearConn := liveSession(t, registry, "sess-near", nearLoc)
	farConn := liveSession(t, registry, "sess-far", farLoc)

	// a session that has not reported a location yet is skipped entirely
	registry.Add(websocket.NewSession("sess-fresh", &websocket.Admission{
		User:        &user.User{ID: 1, Role: user.RoleUser},
		Route:       &route.Route{ID: 2, UserID: 1},
		InitialPath: testPath,
	}, nil))

	err := svc.handleIncidentReported(context.Background(), registry, encodeIncidentEvent(t, inc))
	require.NoError(t, err)

	var alert contracts.IncidentAlert
	require.NoError(t, nearConn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, nearConn.ReadJSON(&alert))
	assert.Equal(t, contracts.FrameIncidentAlert, alert.Type)
	assert.Equal(t, int64(7), alert.Incident.ID)
	assert.InDelta(t, geo.Haversine(inc.Location(), nearLoc), alert.DistanceMeters, 0.5)

	// the out-of-range session gets nothing
	require.NoError(t, farConn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var stray json.RawMessage
	assert.Error(t, farConn.ReadJSON(&stray), "no alert beyond the push radius")
}

func TestIncidentAlertRejectsBadEvents(t *testing.T) {
	svc := newTestService(&fakeIncidents{}, &fakeEngine{}, &fakePublisher{})
	registry := websocket.NewRegistry()

	err := svc.handleIncidentReported(context.Background(), registry, []byte("{not json"))
	require.Error(t, err)

	// decodable envelope, invalid incident
	bad := incident.Incident{ID: 0, Type: incident.TypeAccident, ReportedBy: 3}
	err = svc.handleIncidentReported(context.Background(), registry, encodeIncidentEvent(t, bad))
	require.Error(t, err)
	assert.ErrorIs(t, err, incident.ErrInvalidID)
}

func TestIncidentAlertInvalidatesRecentCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	inner := &fakeIncidents{recent: []incident.Incident{{
		ID: 1, Type: incident.TypeTrafficJam, Latitude: 48.86, Longitude: 2.36, ReportedBy: 3,
	}}}
	ic := cache.NewIncidentCache(inner, rdb, 15*time.Second, logger.New("test"))
	svc := NewNavigationService(logger.New("test"), fakeUow{}, ic, &fakeEngine{}, &fakePublisher{}, ic, "en")

	_, err := ic.ListRecent(context.Background(), time.Now().UTC().Add(-recentIncidentWindow), recentIncidentCap)
	require.NoError(t, err)
	require.NotEmpty(t, mr.Keys(), "recent window cached after first read")

	inc := incident.Incident{ID: 9, Type: incident.TypeRoadClosed, Latitude: 48.85, Longitude: 2.35, ReportedBy: 3}
	require.NoError(t, svc.handleIncidentReported(context.Background(), websocket.NewRegistry(), encodeIncidentEvent(t, inc)))
	assert.Empty(t, mr.Keys(), "fresh incident drops the cached window")
}
