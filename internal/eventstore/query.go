package eventstore

import (
	"context"
	"fmt"
	"time"

	eventdomain "device-inspector/backend/internal/event/domain"
	"device-inspector/backend/internal/event/filter"
	"device-inspector/backend/internal/pagecache"
)

// LoadPage returns page number page (from 0) of the active session's durable events under the
// current filter. Pages are cached; the visible window is not changed.
func (s *Store) LoadPage(ctx context.Context, page, pageSize int) (*eventdomain.QueryResult, error) {
	if page < 0 || pageSize <= 0 {
		return nil, fmt.Errorf("%w: page %d size %d", ErrInvalidQuery, page, pageSize)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.active == "" {
		s.mu.Unlock()
		return nil, ErrNoActiveSession
	}
	gen, sessionID := s.gen, s.active
	key := pagecache.PageKey(sessionID, page, pageSize, s.facets.Signature())
	if cached, ok := s.cache.Get(key); ok {
		s.mu.Unlock()
		s.opts.Metrics.CacheLookup(true)
		return &eventdomain.QueryResult{Events: cached.Events, Total: cached.Total, HasMore: cached.HasMore}, nil
	}
	q := s.facets.Query(sessionID)
	q.Limit = pageSize
	q.Offset = page * pageSize
	s.mu.Unlock()
	s.opts.Metrics.CacheLookup(false)

	began := time.Now()
	res, err := s.backend.QuerySessionEvents(ctx, q)
	s.opts.Metrics.BackendQuery("load_page", time.Since(began), err)
	if err != nil {
		return nil, fmt.Errorf("eventstore: load page: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.opts.Metrics.StaleResult("load_page")
		return nil, ErrStaleResult
	}
	s.cache.Set(key, pagecache.Page{Events: res.Events, Total: res.Total, HasMore: res.HasMore})
	return res, nil
}

// SetFilter applies patch to the current filter. A change clears the page cache, invalidates
// in-flight loads and re-merges the visible range.
func (s *Store) SetFilter(ctx context.Context, patch filter.Patch) error {
	s.mu.Lock()
	next := s.facets.With(patch)
	s.mu.Unlock()
	return s.setFacets(ctx, next)
}

// ClearFilter removes every facet.
func (s *Store) ClearFilter(ctx context.Context) error {
	return s.setFacets(ctx, filter.Facets{})
}

// SearchEvents sets the free-text facet, matched against title and summary.
func (s *Store) SearchEvents(ctx context.Context, text string) error {
	return s.SetFilter(ctx, filter.Patch{SearchText: &text})
}

func (s *Store) setFacets(ctx context.Context, next filter.Facets) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if next.Signature() == s.facets.Signature() {
		s.mu.Unlock()
		return nil
	}
	s.facets = next
	s.gen++
	s.inflight = 0
	s.cache.Clear()
	// the visible list no longer reflects the filter until a reload succeeds
	s.win.loaded, s.win.stale = false, true
	active := s.active
	s.mu.Unlock()

	if active == "" {
		return nil
	}
	return s.reload(ctx, "filter")
}
