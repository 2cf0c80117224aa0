package eventstore

import "errors"

var (
	// ErrInvalidQuery is returned for malformed windows, pages and cleanup ages.
	ErrInvalidQuery = errors.New("eventstore: invalid query")
	// ErrNoActiveSession is returned by window operations when no session is open.
	ErrNoActiveSession = errors.New("eventstore: no active session")
	// ErrStaleResult is returned when a persistence result arrived after the active session
	// or filter changed. The result was discarded.
	ErrStaleResult = errors.New("eventstore: stale result discarded")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("eventstore: closed")
)
