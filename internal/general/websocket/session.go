package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"live-nav/internal/domain/geo"
)

// Session is the per-connection mutable state of one live navigation. It is
// created at admission, owned by the connection's handler goroutine, and
// destroyed when the connection closes. The current path is only replaced by
// the session's own message handling; the alert broadcaster reads state from
// other goroutines, hence the lock.
type Session struct {
	ID        string
	UserID    int64
	RouteID   int64
	PathIndex int

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu           sync.RWMutex
	currentPath  []geo.Point
	lastLocation *geo.Point
}

const sessionWriteTimeout = 5 * time.Second

// NewSession binds an admitted connection to its initial path.
func NewSession(id string, adm *Admission, conn *websocket.Conn) *Session {
	return &Session{
		ID:          id,
		UserID:      adm.User.ID,
		RouteID:     adm.Route.ID,
		PathIndex:   adm.PathIndex,
		conn:        conn,
		currentPath: adm.InitialPath,
	}
}

// CurrentPath returns a snapshot of the path being followed.
func (s *Session) CurrentPath() []geo.Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]geo.Point, len(s.currentPath))
	copy(out, s.currentPath)
	return out
}

// ReplacePath installs a new current path wholesale after a reroute.
func (s *Session) ReplacePath(points []geo.Point) {
	s.mu.Lock()
	s.currentPath = points
	s.mu.Unlock()
}

// LastPathPoint returns the final point of the current path, the fixed
// destination waypoint of every reroute request.
func (s *Session) LastPathPoint() (geo.Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.currentPath) == 0 {
		return geo.Point{}, false
	}
	return s.currentPath[len(s.currentPath)-1], true
}

// SetLastLocation records the traveler's most recent reported location.
func (s *Session) SetLastLocation(p geo.Point) {
	s.mu.Lock()
	s.lastLocation = &p
	s.mu.Unlock()
}

// LastLocation returns the most recent reported location, if any.
func (s *Session) LastLocation() (geo.Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastLocation == nil {
		return geo.Point{}, false
	}
	return *s.lastLocation, true
}

// WriteJSON marshals v and writes a single text frame under the
// per-connection writer lock with a short deadline.
func (s *Session) WriteJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(sessionWriteTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// writeControl sends a control frame under the writer lock.
func (s *Session) writeControl(messageType int, data []byte, deadline time.Time) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = s.conn.SetWriteDeadline(deadline)
	return s.conn.WriteControl(messageType, data, deadline)
}
