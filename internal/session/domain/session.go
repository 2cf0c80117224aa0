package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidStateTransition is returned when a lifecycle call would leave a terminal state
// or otherwise violate the session state machine.
var ErrInvalidStateTransition = errors.New("session: invalid state transition")

// ErrSessionNotFound is returned when a lifecycle call names an unknown session.
var ErrSessionNotFound = errors.New("session: not found")

// Status is the session lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s.Terminal()
}

// Type is how the session was started.
type Type string

const (
	TypeManual    Type = "manual"
	TypeWorkflow  Type = "workflow"
	TypeRecording Type = "recording"
	TypeDebug     Type = "debug"
	TypeAuto      Type = "auto"
)

// Valid reports whether t is a known session type.
func (t Type) Valid() bool {
	switch t {
	case TypeManual, TypeWorkflow, TypeRecording, TypeDebug, TypeAuto:
		return true
	}
	return false
}

// Transition validates moving from one status to another.
// Only active → {completed, failed, cancelled} is allowed.
func Transition(from, to Status) error {
	if !to.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, from, to)
	}
	if from != StatusActive {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, from, to)
	}
	return nil
}

// Config records which producers are enabled for the session.
type Config struct {
	Logcat    LogcatConfig    `json:"logcat"`
	Recording RecordingConfig `json:"recording"`
	Proxy     ProxyConfig     `json:"proxy"`
	Monitor   MonitorConfig   `json:"monitor"`
}

type LogcatConfig struct {
	Enabled       bool   `json:"enabled"`
	PackageName   string `json:"packageName,omitempty"`
	PreFilter     string `json:"preFilter,omitempty"`
	ExcludeFilter string `json:"excludeFilter,omitempty"`
}

type RecordingConfig struct {
	Enabled bool   `json:"enabled"`
	Quality string `json:"quality,omitempty"`
}

type ProxyConfig struct {
	Enabled     bool `json:"enabled"`
	Port        int  `json:"port,omitempty"`
	MitmEnabled bool `json:"mitmEnabled,omitempty"`
}

type MonitorConfig struct {
	Enabled bool `json:"enabled"`
}

// DeviceSession is one bounded observation window on one device.
// EndTime is 0 while the session is active.
type DeviceSession struct {
	ID         string `json:"id"`
	DeviceID   string `json:"deviceId"`
	Type       Type   `json:"type"`
	Name       string `json:"name"`
	StartTime  int64  `json:"startTime"`
	EndTime    int64  `json:"endTime"`
	Status     Status `json:"status"`
	EventCount int    `json:"eventCount"`

	Config Config `json:"config"`

	VideoPath     string `json:"videoPath,omitempty"`
	VideoDuration int64  `json:"videoDuration,omitempty"`
	VideoOffset   int64  `json:"videoOffset,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// Active reports whether the session is still running.
func (s *DeviceSession) Active() bool {
	return s.Status == StatusActive
}

// Clone returns a copy of s that shares no mutable state.
func (s *DeviceSession) Clone() *DeviceSession {
	if s == nil {
		return nil
	}
	c := *s
	if s.Metadata != nil {
		c.Metadata = make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// Ended returns a copy of s moved to the terminal status at endTime.
// It returns ErrInvalidStateTransition if s is not active or status is not terminal.
func (s *DeviceSession) Ended(status Status, endTime int64) (*DeviceSession, error) {
	if err := Transition(s.Status, status); err != nil {
		return nil, err
	}
	c := s.Clone()
	c.Status = status
	c.EndTime = endTime
	return c, nil
}

// Duration returns the session length in milliseconds; for an active session, up to now.
func (s *DeviceSession) Duration(now int64) int64 {
	end := s.EndTime
	if end == 0 {
		end = now
	}
	if end < s.StartTime {
		return 0
	}
	return end - s.StartTime
}
