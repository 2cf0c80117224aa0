package domain

import "time"

// AuditLog records one mutating call against the store.
type AuditLog struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId,omitempty"`
	DeviceID  string    `json:"deviceId,omitempty"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	IP        string    `json:"ip"`
	Status    string    `json:"status"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Filter narrows a listing; empty fields match everything.
type Filter struct {
	SessionID string
	Action    string
	Resource  string
}
