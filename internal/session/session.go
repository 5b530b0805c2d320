package session

import (
	"sync"

	"courier/internal/services"
	"courier/internal/transport"
)

// Mode is the lifecycle state of an upload session.
type Mode string

const (
	ModeIdle       Mode = "idle"
	ModeCollecting Mode = "collecting"
)

type uploadSession struct {
	mode Mode
	refs []transport.ItemRef
	// pendingToken remembers a share token the principal tried to retrieve
	// before passing the gate, so the attempt can be replayed afterwards.
	pendingToken string
}

// Store owns every upload session, keyed by principal. All state is explicit
// and process-local; nothing outside this store mutates a session.
type Store struct {
	mu       sync.RWMutex
	sessions map[transport.PrincipalID]*uploadSession
}

// NewStore constructs an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[transport.PrincipalID]*uploadSession)}
}

// Begin resets any existing session for the principal and enters collecting
// mode. Idempotent.
func (s *Store) Begin(principal transport.PrincipalID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.session(principal)
	sess.mode = ModeCollecting
	sess.refs = nil
}

// Mode reports the principal's current session mode.
func (s *Store) Mode(principal transport.PrincipalID) Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[principal]; ok {
		return sess.mode
	}
	return ModeIdle
}

// Accept appends relayed refs to the principal's session in the given order.
// Fails with ErrInvalidState unless the session is collecting.
func (s *Store) Accept(principal transport.PrincipalID, refs ...transport.ItemRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[principal]
	if !ok || sess.mode != ModeCollecting {
		return services.Wrap(services.ErrInvalidState, "session", "accept", "no collecting session", nil)
	}
	sess.refs = append(sess.refs, refs...)
	return nil
}

// Count returns the number of refs accumulated so far.
func (s *Store) Count(principal transport.PrincipalID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[principal]; ok {
		return len(sess.refs)
	}
	return 0
}

// Drain returns the accumulated refs in append order and resets the session
// to idle. Used by finish.
func (s *Store) Drain(principal transport.PrincipalID) ([]transport.ItemRef, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[principal]
	if !ok {
		return nil, 0
	}
	refs := sess.refs
	sess.refs = nil
	sess.mode = ModeIdle
	return refs, len(refs)
}

// Restore puts drained refs back and re-enters collecting mode. Used when the
// registry write fails after a drain so finish can be retried without losing
// already-relayed items.
func (s *Store) Restore(principal transport.PrincipalID, refs []transport.ItemRef) {
	if len(refs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.session(principal)
	sess.mode = ModeCollecting
	sess.refs = append(refs, sess.refs...)
}

// Abandon discards the session without producing a share.
func (s *Store) Abandon(principal transport.PrincipalID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[principal]; ok {
		sess.mode = ModeIdle
		sess.refs = nil
	}
}

// SetPendingToken records a retrieval the principal attempted before passing
// the gate.
func (s *Store) SetPendingToken(principal transport.PrincipalID, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session(principal).pendingToken = token
}

// TakePendingToken returns and clears the remembered retrieval token.
func (s *Store) TakePendingToken(principal transport.PrincipalID) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[principal]
	if !ok || sess.pendingToken == "" {
		return "", false
	}
	token := sess.pendingToken
	sess.pendingToken = ""
	return token, true
}

func (s *Store) session(principal transport.PrincipalID) *uploadSession {
	sess, ok := s.sessions[principal]
	if !ok {
		sess = &uploadSession{mode: ModeIdle}
		s.sessions[principal] = sess
	}
	return sess
}
