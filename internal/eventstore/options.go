package eventstore

import (
	"time"

	"device-inspector/backend/internal/buffers"
	"device-inspector/backend/internal/pagecache"
)

// Default tuning values.
const (
	DefaultDisplayCap    = 2000
	DefaultQueryLimit    = 1000
	DefaultWindowSlack   = 10_000
	DefaultWindowExpand  = 30_000
	DefaultJumpWindow    = 30_000
	DefaultTailLead      = 5_000
	DefaultWindowEnd     = 60_000
	DefaultSessionsLimit = 100
)

// Options tunes a Store. Zero fields take the defaults above.
type Options struct {
	RingCapacity  int
	PageCacheSize int
	DisplayCap    int
	QueryLimit    int

	// Window values are milliseconds of relative time.
	WindowSlack  int64
	WindowExpand int64
	JumpWindow   int64
	TailLead     int64

	Metrics Metrics
	// Now returns unix milliseconds. Defaults to the wall clock.
	Now func() int64
}

func (o Options) withDefaults() Options {
	if o.RingCapacity <= 0 {
		o.RingCapacity = buffers.DefaultCapacity
	}
	if o.PageCacheSize <= 0 {
		o.PageCacheSize = pagecache.DefaultCapacity
	}
	if o.DisplayCap <= 0 {
		o.DisplayCap = DefaultDisplayCap
	}
	if o.QueryLimit <= 0 {
		o.QueryLimit = DefaultQueryLimit
	}
	if o.WindowSlack < 0 {
		o.WindowSlack = 0
	} else if o.WindowSlack == 0 {
		o.WindowSlack = DefaultWindowSlack
	}
	if o.WindowExpand <= 0 {
		o.WindowExpand = DefaultWindowExpand
	}
	if o.JumpWindow <= 0 {
		o.JumpWindow = DefaultJumpWindow
	}
	if o.TailLead <= 0 {
		o.TailLead = DefaultTailLead
	}
	if o.Metrics == nil {
		o.Metrics = NopMetrics{}
	}
	if o.Now == nil {
		o.Now = func() int64 { return time.Now().UnixMilli() }
	}
	return o
}

// Metrics receives store counters. Implementations must be safe for concurrent use.
type Metrics interface {
	EventsIngested(n int)
	EventsDropped(reason string, n int)
	StaleResult(op string)
	CacheLookup(hit bool)
	BackendQuery(op string, d time.Duration, err error)
	VisibleEvents(n int)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) EventsIngested(int) {}
func (NopMetrics) EventsDropped(string, int) {}
func (NopMetrics) StaleResult(string) {}
func (NopMetrics) CacheLookup(bool) {}
func (NopMetrics) BackendQuery(string, time.Duration, error) {}
func (NopMetrics) VisibleEvents(int) {}
