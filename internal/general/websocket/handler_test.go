package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"live-nav/internal/domain/incident"
	"live-nav/internal/domain/user"
	"live-nav/internal/general/contracts"
	"live-nav/internal/general/logger"
)

type stubNavigator struct {
	handleErr   error
	rejectFirst error
	started     atomic.Int32
	closed      atomic.Int32
	handled     atomic.Int32
}

func (n *stubNavigator) HandleLocation(_ context.Context, _ *Session, _ contracts.LocationMessage) (*contracts.NavigationUpdate, error) {
	if n.handled.Add(1) == 1 && n.rejectFirst != nil {
		return nil, n.rejectFirst
	}
	if n.handleErr != nil {
		return nil, n.handleErr
	}
	return &contracts.NavigationUpdate{
		Type:          contracts.FrameNavigationUpdate,
		NearIncidents: []incident.Incident{},
	}, nil
}

func (n *stubNavigator) SessionStarted(context.Context, *Session) { n.started.Add(1) }
func (n *stubNavigator) SessionClosed(context.Context, *Session)  { n.closed.Add(1) }

func newTestServer(t *testing.T, nav Navigator) (*httptest.Server, *Registry, string) {
	t.Helper()

	auth, mgr := testAuthorizer(t)
	registry := NewRegistry()
	ws := NewWebSocket(logger.New("test"), auth, nav, registry)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/{user_id}/routes/{route_id}/navigate", ws.Navigate)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	token, _, err := mgr.IssueUserToken(1, user.RoleUser)
	require.NoError(t, err)

	return srv, registry, token
}

func dial(t *testing.T, srv *httptest.Server, token string) *gorilla.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/users/1/routes/10/navigate?pathIndex=0"
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := gorilla.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestNavigateSessionRoundTrip(t *testing.T) {
	nav := &stubNavigator{}
	srv, registry, token := newTestServer(t, nav)

	conn := dial(t, srv, token)

	require.Eventually(t, func() bool { return registry.Count() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), nav.started.Load())

	require.NoError(t, conn.WriteJSON(contracts.LocationMessage{Location: []float64{2.35, 48.85}}))

	var update contracts.NavigationUpdate
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, contracts.FrameNavigationUpdate, update.Type)
	assert.NotNil(t, update.NearIncidents)

	require.NoError(t, conn.WriteMessage(gorilla.CloseMessage,
		gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, "")))

	require.Eventually(t, func() bool { return registry.Count() == 0 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), nav.closed.Load())
}

func TestNavigateSendsErrorFrameOnFailure(t *testing.T) {
	nav := &stubNavigator{handleErr: errors.New("engine unavailable")}
	srv, _, token := newTestServer(t, nav)

	conn := dial(t, srv, token)
	require.NoError(t, conn.WriteJSON(contracts.LocationMessage{Location: []float64{2.35, 48.85}}))

	var frame contracts.ErrorFrame
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, contracts.FrameError, frame.Type)
	assert.NotEmpty(t, frame.Error)

	// connection survives the failed message
	require.NoError(t, conn.WriteJSON(contracts.LocationMessage{Location: []float64{2.35, 48.85}}))
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, contracts.FrameError, frame.Type)
}

func TestNavigateIgnoresMalformedFrames(t *testing.T) {
	nav := &stubNavigator{}
	srv, _, token := newTestServer(t, nav)

	conn := dial(t, srv, token)

	// garbage produces no reply at all
	require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte("not json {")))

	// the next valid frame is answered normally
	require.NoError(t, conn.WriteJSON(contracts.LocationMessage{Location: []float64{2.35, 48.85}}))

	var update contracts.NavigationUpdate
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, contracts.FrameNavigationUpdate, update.Type)
	assert.Equal(t, int32(1), nav.handled.Load(), "malformed frame never reaches the navigator")
}

func TestNavigateDropsInvalidLocationSilently(t *testing.T) {
	nav := &stubNavigator{rejectFirst: fmt.Errorf("parse location: %w", ErrBadMessage)}
	srv, _, token := newTestServer(t, nav)

	conn := dial(t, srv, token)

	// a decodable frame with an invalid location gets no reply, not even
	// an error frame
	require.NoError(t, conn.WriteJSON(contracts.LocationMessage{Location: []float64{200.0, 48.85}}))
	require.NoError(t, conn.WriteJSON(contracts.LocationMessage{Location: []float64{2.35, 48.85}}))

	var update contracts.NavigationUpdate
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, contracts.FrameNavigationUpdate, update.Type, "first reply answers the valid frame")
	assert.Equal(t, int32(2), nav.handled.Load())
}

func TestNavigateRefusesWithoutDestroyingOthers(t *testing.T) {
	nav := &stubNavigator{}
	srv, registry, _ := newTestServer(t, nav)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/users/1/routes/10/navigate?pathIndex=0"
	conn, resp, err := gorilla.DefaultDialer.Dial(url, nil)
	require.Error(t, err, "upgrade without a token is refused")
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if conn != nil {
		conn.Close()
	}

	assert.Equal(t, 0, registry.Count())
	assert.Equal(t, int32(0), nav.started.Load())
}
