package eventstore

import (
	"context"
	"fmt"
	"log"
	"time"

	eventdomain "device-inspector/backend/internal/event/domain"
	"device-inspector/backend/internal/event/filter"
	"device-inspector/backend/internal/pagecache"
)

// window is the visible range [start, end) and the range [loadedStart, loadedEnd) the current
// event list was fetched for, both in relative milliseconds. A stale window holds an event list
// fetched under a previous filter.
type window struct {
	start, end             int64
	loadedStart, loadedEnd int64
	loaded                 bool
	stale                  bool
	tail                   bool
}

func defaultWindow() window {
	return window{start: 0, end: DefaultWindowEnd}
}

// covers reports whether the loaded range contains [start, end) allowing slack on each side.
func (w window) covers(start, end, slack int64) bool {
	return w.loaded && start >= w.loadedStart-slack && end <= w.loadedEnd+slack
}

// expandRange widens [start, end) by by on each side, clamping the start at 0.
func expandRange(start, end, by int64) (int64, int64) {
	return max(0, start-by), end + by
}

// centered returns a width-wide range around t, shifted right if it would start before 0.
func centered(t, width int64) (int64, int64) {
	start := max(0, t-width/2)
	return start, start + width
}

// follow advances the visible range so it ends at latest+lead, keeping its width.
// The range never moves backwards.
func (w window) follow(latest, lead int64) window {
	end := latest + lead
	if end <= w.end {
		return w
	}
	width := w.end - w.start
	w.end = end
	w.start = max(0, end-width)
	if w.loaded && w.end > w.loadedEnd {
		w.loadedEnd = w.end
	}
	return w
}

func validRange(start, end int64) error {
	if start < 0 || end <= start {
		return fmt.Errorf("%w: window [%d, %d)", ErrInvalidQuery, start, end)
	}
	return nil
}

// LoadEventsInRange makes [start, end) the visible range and fetches it unless the loaded range
// already covers it within the slack margin. A fetch requests the range widened by the expand
// margin and merges the result with matching live events.
func (s *Store) LoadEventsInRange(ctx context.Context, start, end int64) error {
	if err := validRange(start, end); err != nil {
		return err
	}
	return s.fetchWindow(ctx, "load_range", start, end, false)
}

// SetVisibleRange is a manual range selection: it leaves tail mode and loads [start, end).
func (s *Store) SetVisibleRange(ctx context.Context, start, end int64) error {
	if err := validRange(start, end); err != nil {
		return err
	}
	s.setTail(false)
	return s.fetchWindow(ctx, "set_range", start, end, false)
}

// JumpToTime centres the jump window on relative time t and leaves tail mode.
func (s *Store) JumpToTime(ctx context.Context, t int64) error {
	if t < 0 {
		return fmt.Errorf("%w: negative time %d", ErrInvalidQuery, t)
	}
	s.setTail(false)
	start, end := centered(t, s.opts.JumpWindow)
	return s.fetchWindow(ctx, "jump_time", start, end, false)
}

// JumpToEvent centres the jump window on the event with eventID. An unknown id, or an event of
// another session, is a no-op reported as false.
func (s *Store) JumpToEvent(ctx context.Context, eventID string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	e, ok := s.findLocal(eventID)
	if !ok {
		stored, err := s.backend.GetStoredEvent(ctx, eventID)
		if err != nil {
			return false, fmt.Errorf("eventstore: get event %s: %w", eventID, err)
		}
		if stored == nil {
			return false, nil
		}
		e = *stored
	}
	if e.SessionID != s.ActiveSessionID() {
		return false, nil
	}
	return true, s.JumpToTime(ctx, e.RelativeTime)
}

// findLocal looks eventID up in the visible list and the ring buffer.
func (s *Store) findLocal(eventID string) (eventdomain.UnifiedEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == eventID {
			return s.events[i], true
		}
	}
	live := s.ring.All()
	for i := len(live) - 1; i >= 0; i-- {
		if live[i].ID == eventID {
			return live[i], true
		}
	}
	return eventdomain.UnifiedEvent{}, false
}

// SetTailMode turns auto-follow on or off. Turning it on moves the window to the newest live event.
func (s *Store) SetTailMode(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.win.tail = on
	if !on {
		return
	}
	if recent := s.ring.Recent(1); len(recent) == 1 {
		s.win = s.win.follow(recent[0].RelativeTime, s.opts.TailLead)
	}
}

func (s *Store) setTail(on bool) {
	s.mu.Lock()
	s.win.tail = on
	s.mu.Unlock()
}

// reload refetches the visible range bypassing the slack check.
func (s *Store) reload(ctx context.Context, op string) error {
	s.mu.Lock()
	start, end := s.win.start, s.win.end
	s.mu.Unlock()
	return s.fetchWindow(ctx, op, start, end, true)
}

// fetchWindow is the query orchestrator for time windows. The mutex is released around the
// Backend call; on return the result is applied only if neither the session nor the filter
// changed and no newer window fetch was issued meanwhile.
func (s *Store) fetchWindow(ctx context.Context, op string, start, end int64, force bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.active == "" {
		s.mu.Unlock()
		return ErrNoActiveSession
	}
	s.win.start, s.win.end = start, end
	if !force && s.win.covers(start, end, s.opts.WindowSlack) {
		s.mu.Unlock()
		return nil
	}

	fetchStart, fetchEnd := expandRange(start, end, s.opts.WindowExpand)
	gen, sessionID := s.gen, s.active
	s.winSeq++
	seq := s.winSeq
	key := pagecache.RangeKey(sessionID, fetchStart, fetchEnd, s.facets.Signature())
	if page, ok := s.cache.Get(key); ok {
		s.opts.Metrics.CacheLookup(true)
		s.applyWindowLocked(page, fetchStart, fetchEnd)
		s.mu.Unlock()
		return nil
	}
	s.opts.Metrics.CacheLookup(false)
	q := s.facets.Query(sessionID)
	q.StartTime, q.EndTime = &fetchStart, &fetchEnd
	q.Limit = s.opts.QueryLimit
	s.inflight++
	s.mu.Unlock()

	began := time.Now()
	res, err := s.backend.QuerySessionEvents(ctx, q)
	s.opts.Metrics.BackendQuery(op, time.Since(began), err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.opts.Metrics.StaleResult(op)
		return ErrStaleResult
	}
	s.inflight--
	if err != nil {
		s.lastErr = err.Error()
		log.Printf("eventstore: %s for session %s: %v", op, sessionID, err)
		return fmt.Errorf("eventstore: %s: %w", op, err)
	}
	page := pagecache.Page{Events: res.Events, Total: res.Total, HasMore: res.HasMore}
	s.cache.Set(key, page)
	if seq != s.winSeq {
		// a newer window request owns the view
		return nil
	}
	s.applyWindowLocked(page, fetchStart, fetchEnd)
	return nil
}

// applyWindowLocked replaces the visible list with page merged with the live events in
// [start, end). Must hold mu.
func (s *Store) applyWindowLocked(page pagecache.Page, start, end int64) {
	q := s.facets.Query(s.active)
	q.StartTime, q.EndTime = &start, &end
	live := filter.Apply(s.ring.All(), &q)
	s.events = mergeLive(page.Events, live, s.opts.DisplayCap)
	s.total = max(page.Total, len(s.events))
	s.hasMore = page.HasMore
	s.win.loadedStart, s.win.loadedEnd, s.win.loaded = start, end, true
	s.win.stale = false
	s.lastErr = ""
	s.opts.Metrics.VisibleEvents(len(s.events))
}
