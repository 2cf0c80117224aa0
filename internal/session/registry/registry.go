// Package registry keeps the in-memory map of known sessions. Every mutation publishes a new
// immutable snapshot; readers never observe a partially applied change.
package registry

import (
	"sort"
	"sync"
	"sync/atomic"

	"device-inspector/backend/internal/session/domain"
)

type snapshot map[string]*domain.DeviceSession

// Registry maps session id to descriptor.
type Registry struct {
	mu   sync.Mutex // serialises writers
	snap atomic.Pointer[snapshot]
}

// New returns an empty registry.
func New() *Registry {
	r := &Registry{}
	empty := snapshot{}
	r.snap.Store(&empty)
	return r
}

func (r *Registry) load() snapshot {
	return *r.snap.Load()
}

// publish installs a copy of the current snapshot after applying fn to it. Must hold mu.
func (r *Registry) publish(fn func(next snapshot)) {
	cur := r.load()
	next := make(snapshot, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	fn(next)
	r.snap.Store(&next)
}

// Get returns a copy of the session for id.
func (r *Registry) Get(id string) (*domain.DeviceSession, bool) {
	s, ok := r.load()[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// List returns copies of all sessions, newest start first.
func (r *Registry) List() []*domain.DeviceSession {
	cur := r.load()
	out := make([]*domain.DeviceSession, 0, len(cur))
	for _, s := range cur {
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime > out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of sessions.
func (r *Registry) Len() int {
	return len(r.load())
}

// Upsert stores a copy of s. A session already in a terminal state is not reopened:
// an active descriptor for a terminal session is ignored and false is returned.
// While the session stays active its event count never goes down.
func (r *Registry) Upsert(s *domain.DeviceSession) bool {
	if s == nil || s.ID == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.load()[s.ID]
	if ok && prev.Status.Terminal() && !s.Status.Terminal() {
		return false
	}
	c := s.Clone()
	if ok && prev.Active() && c.Active() {
		c.EventCount = max(c.EventCount, prev.EventCount)
	}
	r.publish(func(next snapshot) { next[c.ID] = c })
	return true
}

// End moves the session to status at endTime and returns the updated copy.
func (r *Registry) End(id string, status domain.Status, endTime int64) (*domain.DeviceSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.load()[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	ended, err := cur.Ended(status, endTime)
	if err != nil {
		return nil, err
	}
	r.publish(func(next snapshot) { next[id] = ended })
	return ended.Clone(), nil
}

// AddEvents raises the event count of an active session by n. Counts never decrease and
// terminal sessions are left unchanged.
func (r *Registry) AddEvents(id string, n int) {
	if n <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.load()[id]
	if !ok || !cur.Active() {
		return
	}
	c := cur.Clone()
	c.EventCount += n
	r.publish(func(next snapshot) { next[id] = c })
}

// Remove deletes the session for id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.load()[id]; !ok {
		return
	}
	r.publish(func(next snapshot) { delete(next, id) })
}
