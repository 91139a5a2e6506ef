package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"live-nav/internal/general/contracts"
	"live-nav/internal/general/logger"
)

const (
	wsReadTimeout    = 60 * time.Second
	wsPingInterval   = 30 * time.Second
	ctrlTimeout      = 5 * time.Second
	messageTimeout   = 30 * time.Second
	maxFrameBytes    = 1 << 20 // 1 MiB
	wsCloseAckWindow = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ErrBadMessage marks a frame whose content could not be understood, a
// decoded payload with out-of-range or missing fields. Such frames are
// treated like undecodable ones: logged, no response.
var ErrBadMessage = errors.New("bad message")

// Navigator processes frames for an admitted session. Implemented by the
// navigation service; the handler owns transport, the Navigator owns meaning.
type Navigator interface {
	HandleLocation(ctx context.Context, sess *Session, msg contracts.LocationMessage) (*contracts.NavigationUpdate, error)
	SessionStarted(ctx context.Context, sess *Session)
	SessionClosed(ctx context.Context, sess *Session)
}

// WebSocket handles live-navigation connections.
type WebSocket struct {
	logger   *logger.Logger
	auth     *Authorizer
	nav      Navigator
	registry *Registry
}

// NewWebSocket creates the live-navigation WebSocket handler.
func NewWebSocket(logger *logger.Logger, auth *Authorizer, nav Navigator, registry *Registry) *WebSocket {
	return &WebSocket{
		logger:   logger,
		auth:     auth,
		nav:      nav,
		registry: registry,
	}
}

// Navigate handles GET /users/{user_id}/routes/{route_id}/navigate.
//
// Authorization happens against the raw upgrade request, before the protocol
// switch. A refused admission destroys the underlying transport without a
// response body: an unauthenticated caller learns nothing about why.
func (ws *WebSocket) Navigate(w http.ResponseWriter, r *http.Request) {
	// 1) Admission handshake
	adm, err := ws.auth.Authorize(r.Context(), r)
	if err != nil {
		ws.logger.Info(r.Context(), "admission_refused", "Refused live-session upgrade", map[string]any{
			"target": r.URL.Path,
			"reason": err.Error(),
		})
		destroyTransport(w)
		return
	}

	// 2) Upgrade HTTP -> WS
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Error(r.Context(), "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}
	defer conn.Close()

	// 3) Create and register the session; exactly one per admission
	sess := NewSession(uuid.NewString(), adm, conn)
	ws.registry.Add(sess)
	defer ws.registry.Remove(sess.ID)

	ctx := ws.logger.WithSessionID(r.Context(), sess.ID)
	ws.logger.Info(ctx, "session_admitted", "Live navigation session admitted", map[string]any{
		"user_id":    sess.UserID,
		"route_id":   sess.RouteID,
		"path_index": sess.PathIndex,
		"points":     len(adm.InitialPath),
	})

	ws.nav.SessionStarted(ctx, sess)
	defer ws.nav.SessionClosed(ctx, sess)

	// 4) Read limits and liveness
	conn.SetReadLimit(maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(_ string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	// 5) Ping loop; closing the socket unblocks the reader below
	pingDone := make(chan struct{})
	defer close(pingDone)
	go ws.pingLoop(ctx, sess, pingDone)

	// 6) Message loop: strictly sequential per connection. No new frame is
	// read until the previous one is fully handled, which keeps the current
	// path mutation race-free.
	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				ws.logger.Error(ctx, "ws_unexpected_close", "Session connection closed unexpectedly", err, nil)
				ws.writeClose(sess, websocket.CloseInternalServerErr, "internal error")
			} else {
				ws.logger.Info(ctx, "ws_connection_closed", "Session connection closed normally", nil)
				ws.writeClose(sess, websocket.CloseNormalClosure, "bye")
			}
			return
		}

		ws.handleFrame(ctx, sess, payload)
	}
}

// handleFrame runs one inbound frame through the Navigator and emits at most
// one response.
func (ws *WebSocket) handleFrame(ctx context.Context, sess *Session, payload []byte) {
	// malformed input is not fatal: log, no response, connection stays open
	var msg contracts.LocationMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		ws.logger.Error(ctx, "ws_bad_payload", "Failed to decode location frame", err, map[string]any{
			"frame_bytes": len(payload),
		})
		return
	}

	msgCtx, cancel := context.WithTimeout(ctx, messageTimeout)
	defer cancel()

	update, err := ws.nav.HandleLocation(msgCtx, sess, msg)
	if err != nil {
		if errors.Is(err, ErrBadMessage) {
			ws.logger.Error(ctx, "ws_bad_payload", "Discarded invalid location frame", err, nil)
			return
		}
		ws.logger.Error(ctx, "navigation_update_failed", "Failed to handle location message", err, nil)
		if werr := sess.WriteJSON(contracts.NewErrorFrame("failed to process location update")); werr != nil {
			ws.logger.Error(ctx, "ws_write_failed", "Failed to send error frame", werr, nil)
		}
		return
	}

	if err := sess.WriteJSON(update); err != nil {
		ws.logger.Error(ctx, "ws_write_failed", "Failed to send navigation update", err, nil)
	}
}

// pingLoop keeps the connection alive until the session ends.
func (ws *WebSocket) pingLoop(ctx context.Context, sess *Session, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(ctrlTimeout)
			if err := sess.writeControl(websocket.PingMessage, nil, deadline); err != nil {
				// Close socket to unblock reader; goroutine exits.
				_ = sess.conn.Close()
				ws.logger.Error(ctx, "ws_ping_failed", "Failed to send ping", err, nil)
				return
			}
		}
	}
}

// writeClose sends a close control frame with the given code and reason.
func (ws *WebSocket) writeClose(sess *Session, code int, reason string) {
	deadline := time.Now().Add(wsCloseAckWindow)
	_ = sess.writeControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
}

// destroyTransport terminates the underlying connection of a refused upgrade
// without writing a response.
func destroyTransport(w http.ResponseWriter) {
	if hj, ok := w.(http.Hijacker); ok {
		if conn, _, err := hj.Hijack(); err == nil {
			_ = conn.Close()
			return
		}
	}
	// non-hijackable writer (tests): abort without emitting a body
	panic(http.ErrAbortHandler)
}
