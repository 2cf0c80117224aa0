// Package filter evaluates EventQuery facets against events in memory and produces the
// canonical filter signature used in page cache keys.
package filter

import (
	"encoding/json"
	"slices"
	"strings"

	"device-inspector/backend/internal/event/domain"
)

// Matches reports whether e passes every facet set on q. Unset facets do not constrain.
func Matches(e *domain.UnifiedEvent, q *domain.EventQuery) bool {
	if e == nil {
		return false
	}
	if q == nil {
		return true
	}
	if q.SessionID != "" && e.SessionID != q.SessionID {
		return false
	}
	if q.DeviceID != "" && e.DeviceID != q.DeviceID {
		return false
	}
	if len(q.Sources) > 0 && !slices.Contains(q.Sources, e.Source) {
		return false
	}
	if len(q.Categories) > 0 && !slices.Contains(q.Categories, e.Category) {
		return false
	}
	if len(q.Levels) > 0 && !slices.Contains(q.Levels, e.Level) {
		return false
	}
	if len(q.Types) > 0 && !slices.Contains(q.Types, e.Type) {
		return false
	}
	if q.StartTime != nil && e.RelativeTime < *q.StartTime {
		return false
	}
	if q.EndTime != nil && e.RelativeTime >= *q.EndTime {
		return false
	}
	if q.StepID != "" && e.StepID != q.StepID {
		return false
	}
	if q.ParentID != "" && e.ParentID != q.ParentID {
		return false
	}
	if q.TraceID != "" && e.TraceID != q.TraceID {
		return false
	}
	if q.SearchText != "" {
		needle := strings.ToLower(q.SearchText)
		if !strings.Contains(strings.ToLower(e.Title), needle) &&
			!strings.Contains(strings.ToLower(e.Summary), needle) {
			return false
		}
	}
	return true
}

// Apply returns the events in src that match q, preserving order. src is not modified.
func Apply(src []domain.UnifiedEvent, q *domain.EventQuery) []domain.UnifiedEvent {
	out := make([]domain.UnifiedEvent, 0, len(src))
	for i := range src {
		if Matches(&src[i], q) {
			out = append(out, src[i])
		}
	}
	return out
}

// Facets is the user-editable part of a query: everything except scope, window and paging.
type Facets struct {
	Sources    []domain.Source   `json:"sources,omitempty"`
	Categories []domain.Category `json:"categories,omitempty"`
	Types      []string          `json:"types,omitempty"`
	Levels     []domain.Level    `json:"levels,omitempty"`
	SearchText string            `json:"searchText,omitempty"`
	ParentID   string            `json:"parentId,omitempty"`
	StepID     string            `json:"stepId,omitempty"`
	TraceID    string            `json:"traceId,omitempty"`
}

// Patch is a partial update to Facets; nil fields are left unchanged.
type Patch struct {
	Sources    *[]domain.Source   `json:"sources,omitempty"`
	Categories *[]domain.Category `json:"categories,omitempty"`
	Types      *[]string          `json:"types,omitempty"`
	Levels     *[]domain.Level    `json:"levels,omitempty"`
	SearchText *string            `json:"searchText,omitempty"`
	ParentID   *string            `json:"parentId,omitempty"`
	StepID     *string            `json:"stepId,omitempty"`
	TraceID    *string            `json:"traceId,omitempty"`
}

// With returns a copy of f with p applied.
func (f Facets) With(p Patch) Facets {
	out := f.Clone()
	if p.Sources != nil {
		out.Sources = slices.Clone(*p.Sources)
	}
	if p.Categories != nil {
		out.Categories = slices.Clone(*p.Categories)
	}
	if p.Types != nil {
		out.Types = slices.Clone(*p.Types)
	}
	if p.Levels != nil {
		out.Levels = slices.Clone(*p.Levels)
	}
	if p.SearchText != nil {
		out.SearchText = *p.SearchText
	}
	if p.ParentID != nil {
		out.ParentID = *p.ParentID
	}
	if p.StepID != nil {
		out.StepID = *p.StepID
	}
	if p.TraceID != nil {
		out.TraceID = *p.TraceID
	}
	return out
}

// Clone returns a deep copy of f.
func (f Facets) Clone() Facets {
	f.Sources = slices.Clone(f.Sources)
	f.Categories = slices.Clone(f.Categories)
	f.Types = slices.Clone(f.Types)
	f.Levels = slices.Clone(f.Levels)
	return f
}

// IsZero reports whether no facet is set.
func (f Facets) IsZero() bool {
	return len(f.Sources) == 0 && len(f.Categories) == 0 && len(f.Types) == 0 &&
		len(f.Levels) == 0 && f.SearchText == "" && f.ParentID == "" && f.StepID == "" && f.TraceID == ""
}

// Query builds an EventQuery for sessionID carrying these facets.
func (f Facets) Query(sessionID string) domain.EventQuery {
	c := f.Clone()
	return domain.EventQuery{
		SessionID:  sessionID,
		Sources:    c.Sources,
		Categories: c.Categories,
		Types:      c.Types,
		Levels:     c.Levels,
		SearchText: c.SearchText,
		ParentID:   c.ParentID,
		StepID:     c.StepID,
		TraceID:    c.TraceID,
	}
}

// Signature serialises f canonically: set facets are sorted so equal filters produce equal keys.
func (f Facets) Signature() string {
	c := f.Clone()
	slices.Sort(c.Sources)
	slices.Sort(c.Categories)
	slices.Sort(c.Types)
	slices.Sort(c.Levels)
	c.SearchText = strings.ToLower(c.SearchText)
	b, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return string(b)
}
