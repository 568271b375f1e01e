package route

import (
	"sync"

	"fleetroute/internal/model"
)

// Session states.
const (
	StateIdle       = "idle"
	StateRequesting = "requesting"
	StateSucceeded  = "succeeded"
	StateFailed     = "failed"
)

// Session serializes an interactive caller's successive optimization
// requests. Requests get monotonically increasing sequence numbers; a
// completion is applied only when its number is the highest issued so far and
// newer than anything already applied (last-request-wins, not
// last-arrival-wins). Superseded computations are not aborted, their results
// are simply dropped.
type Session struct {
	mu      sync.Mutex
	issued  uint64
	applied uint64
	state   string
	result  *model.OptimizedRoute
	err     error
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{state: StateIdle}
}

// Begin registers a new request and returns its sequence number.
func (s *Session) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	s.state = StateRequesting
	return s.issued
}

// Apply records the outcome of request seq. It returns true when the outcome
// became the session state, false when the response was superseded and
// discarded.
func (s *Session) Apply(seq uint64, rt *model.OptimizedRoute, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Only the newest issued request may win, and never twice.
	if seq != s.issued || seq <= s.applied {
		return false
	}
	s.applied = seq
	s.result = rt
	s.err = err
	if err != nil {
		s.state = StateFailed
	} else {
		s.state = StateSucceeded
	}
	return true
}

// Latest returns the current state, the sequence number it reflects, and the
// applied outcome. The route pointer is the caller's to read, never mutate.
func (s *Session) Latest() (state string, seq uint64, rt *model.OptimizedRoute, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.applied, s.result, s.err
}
