// Package supervisor runs the background session jobs: ending sessions whose producer went
// quiet and removing sessions past the retention age.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"device-inspector/backend/internal/audit"
	sessiondomain "device-inspector/backend/internal/session/domain"
	"device-inspector/backend/internal/telemetry"
	"device-inspector/backend/internal/telemetry/domain"
)

// Defaults for zero Config fields.
const (
	DefaultInterval        = time.Minute
	DefaultCleanupInterval = 24 * time.Hour
)

// IdleLister finds active sessions with no activity since before (unix ms).
type IdleLister interface {
	ListIdleSessions(ctx context.Context, before int64) ([]*sessiondomain.DeviceSession, error)
}

// Store ends and removes sessions. *eventstore.Store satisfies it.
type Store interface {
	EndSession(ctx context.Context, sessionID string, status sessiondomain.Status) (*sessiondomain.DeviceSession, error)
	Cleanup(ctx context.Context, maxAgeDays int) (int, error)
}

// Config tunes the supervisor. A zero IdleTimeout disables idle detection; a zero
// CleanupMaxAgeDays disables cleanup.
type Config struct {
	IdleTimeout       time.Duration
	CleanupMaxAgeDays int
	Interval          time.Duration
	CleanupInterval   time.Duration
}

// Supervisor periodically ends idle sessions as failed and runs retention cleanup.
type Supervisor struct {
	idle    IdleLister
	store   Store
	emitter telemetry.EventEmitter
	audit   audit.AuditLogger
	cfg     Config
	now     func() time.Time
}

// New returns a supervisor. emitter and auditLogger may be nil.
func New(idle IdleLister, store Store, emitter telemetry.EventEmitter, auditLogger audit.AuditLogger, cfg Config) *Supervisor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	return &Supervisor{idle: idle, store: store, emitter: emitter, audit: auditLogger, cfg: cfg, now: time.Now}
}

// Run blocks until ctx is cancelled. Cleanup runs once at start and then every CleanupInterval.
func (s *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	cleanup := time.NewTicker(s.cfg.CleanupInterval)
	defer cleanup.Stop()

	s.runCleanup(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.EndIdle(ctx); err != nil && ctx.Err() == nil {
				log.Printf("supervisor: %v", err)
			}
		case <-cleanup.C:
			s.runCleanup(ctx)
		}
	}
}

func (s *Supervisor) runCleanup(ctx context.Context) {
	if _, err := s.Cleanup(ctx); err != nil && ctx.Err() == nil {
		log.Printf("supervisor: %v", err)
	}
}

// EndIdle ends every active session idle for longer than IdleTimeout with status failed and
// returns how many it ended. Sessions ended concurrently are skipped.
func (s *Supervisor) EndIdle(ctx context.Context) (int, error) {
	if s.cfg.IdleTimeout <= 0 {
		return 0, nil
	}
	before := s.now().Add(-s.cfg.IdleTimeout).UnixMilli()
	idle, err := s.idle.ListIdleSessions(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("list idle sessions: %w", err)
	}
	ended := 0
	for _, sess := range idle {
		out, err := s.store.EndSession(ctx, sess.ID, sessiondomain.StatusFailed)
		if errors.Is(err, sessiondomain.ErrInvalidStateTransition) || errors.Is(err, sessiondomain.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			log.Printf("supervisor: end idle session %s: %v", sess.ID, err)
			continue
		}
		ended++
		telemetry.EmitAsync(s.emitter, &domain.Record{
			Name:       domain.RecordSessionIdle,
			SessionID:  out.ID,
			DeviceID:   out.DeviceID,
			Source:     "supervisor",
			Attributes: map[string]string{"idle_timeout": s.cfg.IdleTimeout.String()},
		})
		if s.audit != nil {
			s.audit.LogEvent(ctx, out.ID, out.DeviceID, "end", "session", `{"reason":"idle"}`)
		}
	}
	if ended > 0 {
		log.Printf("supervisor: ended %d idle session(s)", ended)
	}
	return ended, nil
}

// Cleanup removes sessions older than CleanupMaxAgeDays and returns how many were removed.
func (s *Supervisor) Cleanup(ctx context.Context) (int, error) {
	if s.cfg.CleanupMaxAgeDays <= 0 {
		return 0, nil
	}
	removed, err := s.store.Cleanup(ctx, s.cfg.CleanupMaxAgeDays)
	if err != nil {
		return 0, fmt.Errorf("cleanup: %w", err)
	}
	days := strconv.Itoa(s.cfg.CleanupMaxAgeDays)
	telemetry.EmitAsync(s.emitter, &domain.Record{
		Name:       domain.RecordCleanup,
		Source:     "supervisor",
		Attributes: map[string]string{"max_age_days": days, "removed": strconv.Itoa(removed)},
	})
	if s.audit != nil && removed > 0 {
		s.audit.LogEvent(ctx, "", "", "cleanup", "session", `{"max_age_days":`+days+`,"removed":`+strconv.Itoa(removed)+`}`)
	}
	return removed, nil
}
