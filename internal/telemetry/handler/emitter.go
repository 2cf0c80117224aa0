package handler

import (
	"device-inspector/backend/internal/telemetry"
)

// EventEmitter is the interface for emitting operational records. See telemetry.EventEmitter.
type EventEmitter = telemetry.EventEmitter
