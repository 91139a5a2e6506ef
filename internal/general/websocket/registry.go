package websocket

import "sync"

// Registry tracks live sessions by session ID. It exists for outbound pushes
// (incident alerts) that originate outside a session's own message loop.
type Registry struct {
	sessions sync.Map // key: sessionID(string) -> *Session
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a session at admission time.
func (reg *Registry) Add(s *Session) {
	reg.sessions.Store(s.ID, s)
}

// Remove forgets a session; idempotent.
func (reg *Registry) Remove(sessionID string) {
	reg.sessions.Delete(sessionID)
}

// Range calls fn for every live session until fn returns false.
func (reg *Registry) Range(fn func(s *Session) bool) {
	reg.sessions.Range(func(_, v any) bool {
		s, ok := v.(*Session)
		if !ok {
			return true
		}
		return fn(s)
	})
}

// Count returns the number of live sessions.
func (reg *Registry) Count() int {
	n := 0
	reg.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
