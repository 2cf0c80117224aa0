package domain

import "time"

// Record is one operational event about the store itself (session lifecycle, discarded
// batches, RPC calls). It is distinct from the device events the store holds.
type Record struct {
	Name      string
	SessionID string
	DeviceID  string
	Source    string
	// Attributes are extra string key/values; Body is an optional JSON payload.
	Attributes map[string]string
	Body       []byte
	Time       time.Time
}

// Record names emitted by the server and worker.
const (
	RecordSessionStarted = "session_started"
	RecordSessionEnded   = "session_ended"
	RecordSessionIdle    = "session_idle_failed"
	RecordBatchDropped   = "batch_dropped"
	RecordGRPCRequest    = "grpc_request"
	RecordCleanup        = "session_cleanup"
)
