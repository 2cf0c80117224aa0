package domain

import "encoding/json"

// Source identifies the producer family an event came from.
type Source string

const (
	SourceLogcat    Source = "logcat"
	SourceNetwork   Source = "network"
	SourceDevice    Source = "device"
	SourceApp       Source = "app"
	SourceUI        Source = "ui"
	SourceTouch     Source = "touch"
	SourceWorkflow  Source = "workflow"
	SourcePerf      Source = "perf"
	SourceSystem    Source = "system"
	SourceAssertion Source = "assertion"
)

// Sources lists every known Source in declaration order.
var Sources = []Source{
	SourceLogcat, SourceNetwork, SourceDevice, SourceApp, SourceUI,
	SourceTouch, SourceWorkflow, SourcePerf, SourceSystem, SourceAssertion,
}

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	for _, k := range Sources {
		if s == k {
			return true
		}
	}
	return false
}

// Category is the coarse grouping used by the timeline tabs.
type Category string

const (
	CategoryLog         Category = "log"
	CategoryNetwork     Category = "network"
	CategoryState       Category = "state"
	CategoryInteraction Category = "interaction"
	CategoryAutomation  Category = "automation"
	CategoryDiagnostic  Category = "diagnostic"
)

// Level is the event severity. Levels are ordered; see Severity.
type Level string

const (
	LevelVerbose Level = "verbose"
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
	LevelFatal   Level = "fatal"
)

// Severity returns the ordinal of l (verbose=0 .. fatal=5), or -1 for an unknown level.
func (l Level) Severity() int {
	switch l {
	case LevelVerbose:
		return 0
	case LevelDebug:
		return 1
	case LevelInfo:
		return 2
	case LevelWarn:
		return 3
	case LevelError:
		return 4
	case LevelFatal:
		return 5
	default:
		return -1
	}
}

// IsError reports whether l is error or fatal.
func (l Level) IsError() bool {
	return l.Severity() >= LevelError.Severity()
}

// UnifiedEvent is the single envelope every producer emits.
// ID is immutable; a re-delivery with the same ID replaces the earlier record.
type UnifiedEvent struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
	DeviceID  string `json:"deviceId"`

	// Timestamp is unix milliseconds; RelativeTime is milliseconds since the session started.
	Timestamp    int64 `json:"timestamp"`
	RelativeTime int64 `json:"relativeTime"`
	Duration     int64 `json:"duration,omitempty"`

	Source   Source   `json:"source"`
	Category Category `json:"category"`
	Type     string   `json:"type"`
	Level    Level    `json:"level"`

	Title   string          `json:"title"`
	Summary string          `json:"summary,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`

	ParentID string `json:"parentId,omitempty"`
	StepID   string `json:"stepId,omitempty"`
	TraceID  string `json:"traceId,omitempty"`

	AggregateCount int   `json:"aggregateCount,omitempty"`
	AggregateFirst int64 `json:"aggregateFirst,omitempty"`
	AggregateLast  int64 `json:"aggregateLast,omitempty"`
}

// IsAggregate reports whether the event stands in for several collapsed raw events.
func (e *UnifiedEvent) IsAggregate() bool {
	return e.AggregateCount > 1
}

// CorrelationKey returns the payload-embedded identity of a revisable event, or "" when the
// event is only identified by its ID. Network transactions are keyed by their request id so a
// "pending" and a "completed" delivery collapse onto one record.
func (e *UnifiedEvent) CorrelationKey() string {
	if e.Source != SourceNetwork || len(e.Data) == 0 {
		return ""
	}
	var probe struct {
		RequestID string `json:"requestId"`
	}
	if err := json.Unmarshal(e.Data, &probe); err != nil || probe.RequestID == "" {
		return ""
	}
	return "net:" + e.SessionID + ":" + probe.RequestID
}
