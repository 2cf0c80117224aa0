package ingest

import (
	"encoding/json"
	"errors"
	"fmt"

	eventdomain "device-inspector/backend/internal/event/domain"
	sessiondomain "device-inspector/backend/internal/session/domain"
)

// Kind tags a Message.
type Kind string

const (
	KindBatch          Kind = "batch"
	KindSessionStarted Kind = "session_started"
	KindSessionEnded   Kind = "session_ended"
)

// Message is the JSON envelope written to and read from the events topic.
// Exactly one of Events (KindBatch) or Session (lifecycle kinds) is set.
type Message struct {
	Kind      Kind                         `json:"kind"`
	SessionID string                       `json:"sessionId"`
	Events    []eventdomain.UnifiedEvent   `json:"events,omitempty"`
	Session   *sessiondomain.DeviceSession `json:"session,omitempty"`
}

// ErrMalformedMessage is returned by DecodeMessage for envelopes that fail validation.
var ErrMalformedMessage = errors.New("ingest: malformed message")

// DecodeMessage parses and validates a Message.
func DecodeMessage(raw []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	switch m.Kind {
	case KindBatch:
		if m.SessionID == "" {
			return nil, fmt.Errorf("%w: batch without sessionId", ErrMalformedMessage)
		}
	case KindSessionStarted, KindSessionEnded:
		if m.Session == nil || m.Session.ID == "" {
			return nil, fmt.Errorf("%w: %s without session", ErrMalformedMessage, m.Kind)
		}
		m.SessionID = m.Session.ID
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedMessage, m.Kind)
	}
	return &m, nil
}

// Dispatch delivers m to the bus.
func (b *Bus) Dispatch(m *Message) {
	switch m.Kind {
	case KindBatch:
		b.PublishBatch(m.SessionID, m.Events)
	case KindSessionStarted:
		b.PublishStarted(m.Session)
	case KindSessionEnded:
		b.PublishEnded(m.Session)
	}
}
