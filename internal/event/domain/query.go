package domain

// EventQuery is a read request against a session's events.
// Empty sets and nil bounds mean "no constraint" for that facet.
type EventQuery struct {
	SessionID string `json:"sessionId,omitempty"`
	DeviceID  string `json:"deviceId,omitempty"`

	Sources    []Source   `json:"sources,omitempty"`
	Categories []Category `json:"categories,omitempty"`
	Types      []string   `json:"types,omitempty"`
	Levels     []Level    `json:"levels,omitempty"`

	// StartTime and EndTime bound RelativeTime as a half-open window [StartTime, EndTime).
	StartTime *int64 `json:"startTime,omitempty"`
	EndTime   *int64 `json:"endTime,omitempty"`

	SearchText string `json:"searchText,omitempty"`
	ParentID   string `json:"parentId,omitempty"`
	StepID     string `json:"stepId,omitempty"`
	TraceID    string `json:"traceId,omitempty"`

	Limit     int  `json:"limit,omitempty"`
	Offset    int  `json:"offset,omitempty"`
	OrderDesc bool `json:"orderDesc,omitempty"`
}

// QueryResult is one page of a query.
type QueryResult struct {
	Events  []UnifiedEvent `json:"events"`
	Total   int            `json:"total"`
	HasMore bool           `json:"hasMore"`
}

// TimeIndexEntry is a one-second activity bucket used for the minimap.
type TimeIndexEntry struct {
	Second       int    `json:"second"`
	EventCount   int    `json:"eventCount"`
	FirstEventID string `json:"firstEventId"`
	HasError     bool   `json:"hasError"`
}

// BookmarkType classifies a bookmark.
type BookmarkType string

const (
	BookmarkUser          BookmarkType = "user"
	BookmarkError         BookmarkType = "error"
	BookmarkMilestone     BookmarkType = "milestone"
	BookmarkAssertionFail BookmarkType = "assertion_fail"
)

// Valid reports whether t is a known bookmark type.
func (t BookmarkType) Valid() bool {
	switch t {
	case BookmarkUser, BookmarkError, BookmarkMilestone, BookmarkAssertionFail:
		return true
	}
	return false
}

// Bookmark is a labelled point on a session's relative timeline.
type Bookmark struct {
	ID           string       `json:"id"`
	SessionID    string       `json:"sessionId"`
	RelativeTime int64        `json:"relativeTime"`
	Label        string       `json:"label"`
	Color        string       `json:"color,omitempty"`
	Type         BookmarkType `json:"type"`
	CreatedAt    int64        `json:"createdAt"`
}
