// Package presence tracks which identities are online across their live
// connections. Presence is derived state: an identity is online exactly
// while it has at least one live session.
package presence

import (
	"sort"

	"github.com/nullgrid/nullgrid/internal/models"
)

// Session ties one live connection to an authenticated identity. The
// Outbox is the connection's outbound event path: the fan-out router is
// its only sender and closes it to disconnect the session.
type Session struct {
	ID       string
	Identity string
	Role     models.Role
	Outbox   chan []byte

	channels map[string]struct{}
	dead     bool
}

// Dead reports whether the session was cut off by the router (outbound
// queue overflow). A dead session is skipped by further publishes until
// its connection handler cleans it up.
func (s *Session) Dead() bool { return s.dead }

// Tracker owns all live sessions. It is not goroutine-safe: every call
// must come from the mutation coordinator's goroutine, which makes
// presence transitions atomic with the session changes that cause them.
type Tracker struct {
	sessions   map[string]*Session            // session id -> session
	byIdentity map[string]map[string]*Session // identity -> session id -> session
	queueCap   int
}

// NewTracker creates a tracker whose sessions carry outbound queues of
// the given capacity.
func NewTracker(queueCap int) *Tracker {
	if queueCap <= 0 {
		queueCap = 64
	}
	return &Tracker{
		sessions:   make(map[string]*Session),
		byIdentity: make(map[string]map[string]*Session),
		queueCap:   queueCap,
	}
}

// Open registers a live connection for identity and returns its session
// plus whether the identity just came online (first session). Re-using a
// session id replaces the previous entry rather than duplicating it; the
// replaced outbox is closed.
func (t *Tracker) Open(sessionID, identity string, role models.Role) (*Session, bool) {
	if old, ok := t.sessions[sessionID]; ok {
		t.remove(old)
	}
	s := &Session{
		ID:       sessionID,
		Identity: identity,
		Role:     role,
		Outbox:   make(chan []byte, t.queueCap),
		channels: make(map[string]struct{}),
	}
	set, ok := t.byIdentity[identity]
	if !ok {
		set = make(map[string]*Session)
		t.byIdentity[identity] = set
	}
	cameOnline := len(set) == 0
	set[sessionID] = s
	t.sessions[sessionID] = s
	return s, cameOnline
}

// Close destroys a session. It returns the identity and whether that
// identity just went offline (last session gone). Closing an unknown
// session is a no-op.
func (t *Tracker) Close(sessionID string) (identity string, wentOffline bool) {
	s, ok := t.sessions[sessionID]
	if !ok {
		return "", false
	}
	t.remove(s)
	return s.Identity, !t.IsOnline(s.Identity)
}

// CloseAll destroys every session of an identity (used when an account is
// banned mid-session). Returns how many sessions were cut.
func (t *Tracker) CloseAll(identity string) int {
	set := t.byIdentity[identity]
	n := len(set)
	for _, s := range set {
		t.remove(s)
	}
	return n
}

// MarkDead flags a session whose outbound queue overflowed and closes its
// outbox. The session stays registered until its connection handler
// observes the closed outbox and calls Close.
func (t *Tracker) MarkDead(s *Session) {
	if s.dead {
		return
	}
	s.dead = true
	close(s.Outbox)
}

// Tune subscribes a session to a radio channel.
func (t *Tracker) Tune(sessionID, channel string) {
	if s, ok := t.sessions[sessionID]; ok {
		s.channels[channel] = struct{}{}
	}
}

// Detune unsubscribes a session from a radio channel.
func (t *Tracker) Detune(sessionID, channel string) {
	if s, ok := t.sessions[sessionID]; ok {
		delete(s.channels, channel)
	}
}

// IsOnline reports whether identity has at least one live session.
func (t *Tracker) IsOnline(identity string) bool {
	return len(t.byIdentity[identity]) > 0
}

// Online returns the sorted set of identities with at least one live
// session.
func (t *Tracker) Online() []string {
	out := make([]string, 0, len(t.byIdentity))
	for identity, set := range t.byIdentity {
		if len(set) > 0 {
			out = append(out, identity)
		}
	}
	sort.Strings(out)
	return out
}

// SessionsFor returns the session ids for identity.
func (t *Tracker) SessionsFor(identity string) []string {
	set := t.byIdentity[identity]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// All returns every live session.
func (t *Tracker) All() []*Session {
	out := make([]*Session, 0, len(t.sessions))
	for _, s := range t.sessions {
		out = append(out, s)
	}
	return out
}

// ByRole returns every live session carrying the given role.
func (t *Tracker) ByRole(role models.Role) []*Session {
	var out []*Session
	for _, s := range t.sessions {
		if s.Role == role {
			out = append(out, s)
		}
	}
	return out
}

// ByIdentities returns every live session of any of the given identities.
// Duplicate identities in the list do not duplicate sessions: delivery is
// at most once per session.
func (t *Tracker) ByIdentities(identities []string) []*Session {
	var out []*Session
	seen := make(map[string]struct{}, len(identities))
	for _, identity := range identities {
		if _, ok := seen[identity]; ok {
			continue
		}
		seen[identity] = struct{}{}
		for _, s := range t.byIdentity[identity] {
			out = append(out, s)
		}
	}
	return out
}

// ByChannel returns every live session tuned to the named channel.
func (t *Tracker) ByChannel(channel string) []*Session {
	var out []*Session
	for _, s := range t.sessions {
		if _, ok := s.channels[channel]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (t *Tracker) remove(s *Session) {
	delete(t.sessions, s.ID)
	if set, ok := t.byIdentity[s.Identity]; ok {
		delete(set, s.ID)
		if len(set) == 0 {
			delete(t.byIdentity, s.Identity)
		}
	}
	if !s.dead {
		s.dead = true
		close(s.Outbox)
	}
}
