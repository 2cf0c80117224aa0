package ingest

import (
	"github.com/google/uuid"

	eventdomain "device-inspector/backend/internal/event/domain"
	sessiondomain "device-inspector/backend/internal/session/domain"
)

// Normalize fills envelope fields a producer may leave empty and enforces
// RelativeTime = Timestamp − session.StartTime. Events with an unknown source or stamped
// before the session started are dropped.
// It returns a new slice; events is not modified. dropped is the number of rejected events.
func Normalize(s *sessiondomain.DeviceSession, events []eventdomain.UnifiedEvent) (out []eventdomain.UnifiedEvent, dropped int) {
	out = make([]eventdomain.UnifiedEvent, 0, len(events))
	for _, e := range events {
		if !e.Source.Valid() || (e.Timestamp > 0 && e.Timestamp < s.StartTime) {
			dropped++
			continue
		}
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		e.SessionID = s.ID
		if e.DeviceID == "" {
			e.DeviceID = s.DeviceID
		}
		switch {
		case e.Timestamp > 0:
			e.RelativeTime = e.Timestamp - s.StartTime
		case e.RelativeTime > 0:
			e.Timestamp = s.StartTime + e.RelativeTime
		default:
			e.Timestamp = s.StartTime
			e.RelativeTime = 0
		}
		if e.Category == "" {
			e.Category = eventdomain.CategoryForType(e.Type)
		}
		if e.Level == "" {
			e.Level = eventdomain.LevelInfo
		}
		out = append(out, e)
	}
	return out, dropped
}
