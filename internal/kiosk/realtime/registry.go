package realtime

import (
	"log/slog"
	"sync"
	"time"
)

// Session is the registry's record of one live device connection.
type Session struct {
	ConnID      string
	DeviceID    string
	StoreID     string
	Sequence    int
	ConnectedAt time.Time
}

// Sender delivers an eviction notice to a connection and closes it. The
// delivery is best-effort: a slow or dead connection must never block the
// caller, because eviction runs inside the token-issuance path.
type Sender interface {
	Evict(connID, reason string)
}

// Registry tracks at most one live session per device. Registration
// overwrites silently; the interesting coordination happens in Evict
// (token issuance killing the previous session) and Unregister (a closing
// connection removing only its own entry, never a successor's).
type Registry struct {
	sessions sync.Map // device id -> Session
	sender   Sender
	log      *slog.Logger
}

func NewRegistry(sender Sender, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{sender: sender, log: log}
}

// Register installs the session as the device's current one, returning the
// session it displaced, if any. The caller decides what to do with the old
// connection.
func (r *Registry) Register(s Session) (Session, bool) {
	prev, loaded := r.sessions.Swap(s.DeviceID, s)
	if loaded {
		old := prev.(Session)
		r.log.Info("realtime session replaced",
			"device", s.DeviceID, "old_conn", old.ConnID, "new_conn", s.ConnID)
		return old, true
	}
	return Session{}, false
}

// Unregister removes the device's session only when it is still the given
// connection. A connection that was already replaced must not tear down its
// successor's registration.
func (r *Registry) Unregister(deviceID, connID string) bool {
	current, ok := r.sessions.Load(deviceID)
	if !ok || current.(Session).ConnID != connID {
		return false
	}
	return r.sessions.CompareAndDelete(deviceID, current)
}

// Evict removes the device's session, if any, after sending it a directed
// disconnect notice. The removal is unconditional even when the notice
// cannot be delivered.
func (r *Registry) Evict(deviceID, reason string) bool {
	current, ok := r.sessions.LoadAndDelete(deviceID)
	if !ok {
		return false
	}
	s := current.(Session)
	if r.sender != nil {
		r.sender.Evict(s.ConnID, reason)
	}
	r.log.Info("realtime session evicted", "device", deviceID, "conn", s.ConnID, "reason", reason)
	return true
}

// Get returns the device's current session.
func (r *Registry) Get(deviceID string) (Session, bool) {
	v, ok := r.sessions.Load(deviceID)
	if !ok {
		return Session{}, false
	}
	return v.(Session), true
}

// IsActive reports whether the device has a live session.
func (r *Registry) IsActive(deviceID string) bool {
	_, ok := r.sessions.Load(deviceID)
	return ok
}

// Size returns the number of live sessions.
func (r *Registry) Size() int {
	n := 0
	r.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Snapshot returns the live sessions in no particular order.
func (r *Registry) Snapshot() []Session {
	var out []Session
	r.sessions.Range(func(_, v any) bool {
		out = append(out, v.(Session))
		return true
	})
	return out
}
