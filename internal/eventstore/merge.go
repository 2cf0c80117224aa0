package eventstore

import (
	"sort"

	eventdomain "device-inspector/backend/internal/event/domain"
)

// identity indexes a list by event id and correlation key.
type identity struct {
	byID  map[string]int
	byKey map[string]int
}

func newIdentity(n int) identity {
	return identity{byID: make(map[string]int, n), byKey: make(map[string]int)}
}

func (x identity) find(e *eventdomain.UnifiedEvent) (int, bool) {
	if i, ok := x.byID[e.ID]; ok {
		return i, true
	}
	if k := e.CorrelationKey(); k != "" {
		if i, ok := x.byKey[k]; ok {
			return i, true
		}
	}
	return 0, false
}

func (x identity) add(e *eventdomain.UnifiedEvent, pos int) {
	x.byID[e.ID] = pos
	if k := e.CorrelationKey(); k != "" {
		x.byKey[k] = pos
	}
}

func (x identity) has(e *eventdomain.UnifiedEvent) bool {
	_, ok := x.find(e)
	return ok
}

// collapse returns events with re-deliveries folded onto the first occurrence: a later event
// with the same id or correlation key replaces the earlier one at its position.
func collapse(events []eventdomain.UnifiedEvent) ([]eventdomain.UnifiedEvent, identity) {
	out := make([]eventdomain.UnifiedEvent, 0, len(events))
	idx := newIdentity(len(events))
	for i := range events {
		e := &events[i]
		if pos, ok := idx.find(e); ok {
			out[pos] = *e
			idx.add(e, pos)
			continue
		}
		idx.add(e, len(out))
		out = append(out, *e)
	}
	return out, idx
}

// mergeLive combines a durable page with the matching live events. Live events already present
// in the durable set (by id or correlation key) are dropped, the union is ordered by
// RelativeTime and only the newest limit events are kept.
func mergeLive(durable, live []eventdomain.UnifiedEvent, limit int) []eventdomain.UnifiedEvent {
	merged, idx := collapse(durable)
	pending, _ := collapse(live)
	for i := range pending {
		if !idx.has(&pending[i]) {
			merged = append(merged, pending[i])
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].RelativeTime < merged[j].RelativeTime
	})
	return capFront(merged, limit)
}

// appendIncremental returns a new list with incoming applied to visible. An incoming event that
// matches a visible one by id or correlation key replaces it in place; others are inserted in
// RelativeTime order. visible is not modified.
func appendIncremental(visible, incoming []eventdomain.UnifiedEvent, limit int) []eventdomain.UnifiedEvent {
	out := make([]eventdomain.UnifiedEvent, len(visible), len(visible)+len(incoming))
	copy(out, visible)
	idx := newIdentity(len(out) + len(incoming))
	for i := range out {
		idx.add(&out[i], i)
	}
	for i := range incoming {
		e := incoming[i]
		if pos, ok := idx.find(&e); ok {
			out[pos] = e
			idx.add(&e, pos)
			continue
		}
		pos := len(out)
		if pos > 0 && out[pos-1].RelativeTime > e.RelativeTime {
			pos = sort.Search(len(out), func(j int) bool { return out[j].RelativeTime > e.RelativeTime })
			out = append(out, eventdomain.UnifiedEvent{})
			copy(out[pos+1:], out[pos:])
			out[pos] = e
			// positions after the insert shifted by one
			idx = newIdentity(len(out))
			for j := range out {
				idx.add(&out[j], j)
			}
			continue
		}
		out = append(out, e)
		idx.add(&e, pos)
	}
	return capFront(out, limit)
}

// capFront keeps the last limit events.
func capFront(events []eventdomain.UnifiedEvent, limit int) []eventdomain.UnifiedEvent {
	if limit <= 0 || len(events) <= limit {
		return events
	}
	return events[len(events)-limit:]
}
