package handler

import (
	"context"
	"log"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	ingestv1 "device-inspector/backend/api/ingest/v1"
	eventdomain "device-inspector/backend/internal/event/domain"
	"device-inspector/backend/internal/ingest"
	"device-inspector/backend/internal/policy/engine"
	sessiondomain "device-inspector/backend/internal/session/domain"
	"device-inspector/backend/internal/telemetry"
	"device-inspector/backend/internal/telemetry/domain"
	"device-inspector/backend/internal/telemetry/producer"
)

// maxBatchSize bounds the events accepted in one PushEvents call.
const maxBatchSize = 5000

// Writer persists producer output directly. Used for session lifecycle notices and for event
// batches when no producer is configured or publishing fails.
type Writer interface {
	GetStoredSession(ctx context.Context, sessionID string) (*sessiondomain.DeviceSession, error)
	WriteBatch(ctx context.Context, sessionID string, events []eventdomain.UnifiedEvent) (int, error)
	RecordSessionStarted(ctx context.Context, s *sessiondomain.DeviceSession) error
	RecordSessionEnded(ctx context.Context, s *sessiondomain.DeviceSession) error
}

// Server implements IngestService for device-side producers.
// API: api/ingest/v1 → internal/telemetry/handler.
type Server struct {
	writer   Writer
	producer producer.Producer
	bus      *ingest.Bus
	emitter  EventEmitter
	policy   engine.Evaluator
}

var _ ingestv1.IngestServiceServer = (*Server)(nil)

// NewServer returns an IngestService server. producer, bus and emitter may be nil; without a
// producer batches are written straight through writer.
func NewServer(writer Writer, p producer.Producer, bus *ingest.Bus, emitter EventEmitter) *Server {
	return &Server{writer: writer, producer: p, bus: bus, emitter: emitter}
}

// WithAdmission makes PushEvents drop the events policy rejects. Policy failures admit the batch.
func (s *Server) WithAdmission(policy engine.Evaluator) *Server {
	s.policy = policy
	return s
}

// PushEvents normalises a batch against its session, hands it to durable storage and feeds it
// to the live store. Events with an unknown source are dropped and counted.
func (s *Server) PushEvents(ctx context.Context, req *ingestv1.PushEventsRequest) (*ingestv1.PushEventsResponse, error) {
	if req.SessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	if len(req.Events) > maxBatchSize {
		return nil, status.Errorf(codes.InvalidArgument, "batch of %d events exceeds %d", len(req.Events), maxBatchSize)
	}
	sess, err := s.writer.GetStoredSession(ctx, req.SessionID)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	if sess == nil {
		return nil, status.Error(codes.NotFound, "session not found")
	}
	if !sess.Active() {
		return nil, status.Errorf(codes.FailedPrecondition, "session is %s", sess.Status)
	}
	events, dropped := ingest.Normalize(sess, req.Events)
	s.recordDropped(sess, "invalid", dropped)
	if s.policy != nil && len(events) > 0 {
		kept, rejected, err := s.policy.Admit(ctx, sess, events)
		if err != nil {
			log.Printf("telemetry: admission policy for %s: %v", sess.ID, err)
		} else {
			events = kept
			dropped += rejected
			s.recordDropped(sess, "policy", rejected)
		}
	}
	if len(events) == 0 {
		return &ingestv1.PushEventsResponse{Dropped: dropped}, nil
	}
	if err := s.persist(ctx, sess.ID, events); err != nil {
		return nil, status.Error(codes.Unavailable, err.Error())
	}
	if s.bus != nil {
		s.bus.PublishBatch(sess.ID, events)
	}
	return &ingestv1.PushEventsResponse{Accepted: len(events), Dropped: dropped}, nil
}

func (s *Server) recordDropped(sess *sessiondomain.DeviceSession, reason string, n int) {
	if n == 0 {
		return
	}
	telemetry.EmitAsync(s.emitter, &domain.Record{
		Name:      domain.RecordBatchDropped,
		SessionID: sess.ID,
		DeviceID:  sess.DeviceID,
		Source:    "ingest_service",
		Attributes: map[string]string{
			"reason": reason,
			"count":  strconv.Itoa(n),
		},
	})
}

// persist publishes the batch to the events topic, falling back to a direct write.
func (s *Server) persist(ctx context.Context, sessionID string, events []eventdomain.UnifiedEvent) error {
	if s.producer != nil {
		err := s.producer.Publish(ctx, &ingest.Message{Kind: ingest.KindBatch, SessionID: sessionID, Events: events})
		if err == nil {
			return nil
		}
		log.Printf("telemetry: publish batch for %s failed, writing directly: %v", sessionID, err)
	}
	_, err := s.writer.WriteBatch(ctx, sessionID, events)
	return err
}

// AnnounceSessionStarted records a session the producer opened on its own and notifies the
// live store. Announcing a known session is a no-op that returns the stored copy.
func (s *Server) AnnounceSessionStarted(ctx context.Context, req *ingestv1.AnnounceSessionRequest) (*ingestv1.AnnounceSessionResponse, error) {
	if req.Session == nil || req.Session.ID == "" || req.Session.DeviceID == "" {
		return nil, status.Error(codes.InvalidArgument, "session id and device_id are required")
	}
	if err := s.writer.RecordSessionStarted(ctx, req.Session); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	stored, err := s.writer.GetStoredSession(ctx, req.Session.ID)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	if stored == nil {
		return nil, status.Error(codes.Internal, "session not stored")
	}
	if s.bus != nil {
		s.bus.PublishStarted(stored)
	}
	telemetry.EmitAsync(s.emitter, &domain.Record{
		Name:       domain.RecordSessionStarted,
		SessionID:  stored.ID,
		DeviceID:   stored.DeviceID,
		Source:     "ingest_service",
		Attributes: map[string]string{"type": string(stored.Type)},
	})
	return &ingestv1.AnnounceSessionResponse{Session: stored}, nil
}

// AnnounceSessionEnded applies the producer's end-of-session notice. A non-terminal status
// means completed.
func (s *Server) AnnounceSessionEnded(ctx context.Context, req *ingestv1.AnnounceSessionRequest) (*ingestv1.AnnounceSessionResponse, error) {
	if req.Session == nil || req.Session.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "session id is required")
	}
	stored, err := s.writer.GetStoredSession(ctx, req.Session.ID)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	if stored == nil {
		return nil, status.Error(codes.NotFound, "session not found")
	}
	if !stored.Active() {
		return nil, status.Errorf(codes.FailedPrecondition, "session already %s", stored.Status)
	}
	if err := s.writer.RecordSessionEnded(ctx, req.Session); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	if ended, err := s.writer.GetStoredSession(ctx, req.Session.ID); err == nil && ended != nil {
		stored = ended
	}
	if s.bus != nil {
		s.bus.PublishEnded(stored)
	}
	telemetry.EmitAsync(s.emitter, &domain.Record{
		Name:       domain.RecordSessionEnded,
		SessionID:  stored.ID,
		DeviceID:   stored.DeviceID,
		Source:     "ingest_service",
		Attributes: map[string]string{"status": string(stored.Status), "event_count": strconv.Itoa(stored.EventCount)},
	})
	return &ingestv1.AnnounceSessionResponse{Session: stored}, nil
}
