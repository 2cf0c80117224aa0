// Package eventstore is the session-scoped telemetry store. A Store owns the live ring buffer,
// the page cache and the visible window for one active session at a time, merges live events
// with pages read from the persistence Backend, and discards Backend results that arrive after
// the active session or filter changed.
//
// All in-memory state is guarded by one mutex that is never held across a Backend call.
// The visible event list is rebuilt rather than mutated, so a View can be handed out without copying.
package eventstore

import (
	"context"
	"sync"

	"device-inspector/backend/internal/buffers"
	eventdomain "device-inspector/backend/internal/event/domain"
	"device-inspector/backend/internal/event/filter"
	"device-inspector/backend/internal/hub"
	"device-inspector/backend/internal/ingest"
	"device-inspector/backend/internal/pagecache"
	"device-inspector/backend/internal/session/registry"
	"device-inspector/backend/internal/timeline"
)

// Store is the unified event store. Create with New; release with Close.
type Store struct {
	backend  Backend
	opts     Options
	sessions *registry.Registry
	timeline *timeline.Service

	mu       sync.Mutex
	closed   bool
	gen      uint64 // bumped on session or filter change
	winSeq   uint64 // bumped on every window fetch
	active   string
	ring     *buffers.RingBuffer[eventdomain.UnifiedEvent]
	cache    *pagecache.Cache
	facets   filter.Facets
	win      window
	events   []eventdomain.UnifiedEvent
	total    int
	hasMore  bool
	inflight int
	lastErr  string

	subs hub.Group
}

// View is an immutable snapshot of the store's presentation state.
type View struct {
	SessionID string                     `json:"sessionId"`
	Events    []eventdomain.UnifiedEvent `json:"events"`
	Total     int                        `json:"total"`
	HasMore   bool                       `json:"hasMore"`

	VisibleStart int64 `json:"visibleStart"`
	VisibleEnd   int64 `json:"visibleEnd"`
	LoadedStart  int64 `json:"loadedStart"`
	LoadedEnd    int64 `json:"loadedEnd"`
	Loaded       bool  `json:"loaded"`
	TailMode     bool  `json:"tailMode"`

	Loading   bool          `json:"loading"`
	LastError string        `json:"lastError,omitempty"`
	Filter    filter.Facets `json:"filter"`
}

// New returns a Store reading through backend. No session is active until Open,
// SetActiveSession, LoadSession or StartSession.
func New(backend Backend, opts Options) *Store {
	opts = opts.withDefaults()
	return &Store{
		backend:  backend,
		opts:     opts,
		sessions: registry.New(),
		timeline: timeline.NewService(backend),
		ring:     buffers.NewRingBuffer[eventdomain.UnifiedEvent](opts.RingCapacity),
		cache:    pagecache.New(opts.PageCacheSize),
		win:      defaultWindow(),
	}
}

// Attach subscribes the store to producer output on bus. Close detaches it.
func (s *Store) Attach(bus *ingest.Bus) {
	g := bus.Attach(s)
	s.mu.Lock()
	s.subs = append(s.subs, g...)
	s.mu.Unlock()
}

// Close detaches the store from every bus, stops timeline loads and drops all state.
// In-flight Backend calls complete but their results are discarded.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := s.subs
	s.subs = nil
	s.resetLocked("")
	s.mu.Unlock()

	subs.Close()
	s.timeline.Close()
}

func (s *Store) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// View returns the current presentation snapshot.
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		SessionID:    s.active,
		Events:       s.events,
		Total:        s.total,
		HasMore:      s.hasMore,
		VisibleStart: s.win.start,
		VisibleEnd:   s.win.end,
		LoadedStart:  s.win.loadedStart,
		LoadedEnd:    s.win.loadedEnd,
		Loaded:       s.win.loaded,
		TailMode:     s.win.tail,
		Loading:      s.inflight > 0,
		LastError:    s.lastErr,
		Filter:       s.facets.Clone(),
	}
}

// ActiveSessionID returns the id of the active session, or "".
func (s *Store) ActiveSessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Timeline returns the time index and bookmark state of the active session.
func (s *Store) Timeline() timeline.State {
	return s.timeline.State()
}

// WaitTimeline blocks until pending time index and bookmark loads finish.
func (s *Store) WaitTimeline() {
	s.timeline.Wait()
}

// DismissError clears the last load error shown on the view.
func (s *Store) DismissError() {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
}

// SetActiveSession makes id the active session. Switching clears the ring buffer and page
// cache, resets the window to its default and invalidates in-flight loads. Setting the
// session that is already active does nothing. An empty id leaves no session active.
func (s *Store) SetActiveSession(id string) {
	s.mu.Lock()
	if s.closed || id == s.active {
		s.mu.Unlock()
		return
	}
	s.resetLocked(id)
	if sess, ok := s.sessions.Get(id); ok {
		s.win.tail = sess.Active()
	}
	s.mu.Unlock()

	if id == "" {
		s.timeline.Reset()
		return
	}
	s.timeline.Load(id)
}

// Open loads sessionID and makes it the active session.
func (s *Store) Open(ctx context.Context, sessionID string) error {
	return s.LoadSession(ctx, sessionID)
}

// resetLocked switches to id with empty live and view state. Must hold mu.
func (s *Store) resetLocked(id string) {
	s.gen++
	s.active = id
	s.ring.Clear()
	s.cache.Clear()
	s.win = defaultWindow()
	s.events = nil
	s.total = 0
	s.hasMore = false
	s.inflight = 0
	s.lastErr = ""
	s.opts.Metrics.VisibleEvents(0)
}
