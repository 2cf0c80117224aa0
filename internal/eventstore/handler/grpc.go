package handler

import (
	"context"
	"errors"
	"log"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	storev1 "device-inspector/backend/api/store/v1"
	"device-inspector/backend/internal/eventstore"
	sessiondomain "device-inspector/backend/internal/session/domain"
	"device-inspector/backend/internal/telemetry"
	"device-inspector/backend/internal/telemetry/domain"
	"device-inspector/backend/internal/timeline"
)

// recordSource tags records emitted by this service.
const recordSource = "store_service"

// Server implements StoreService on top of one eventstore.Store.
// API: api/store/v1 → internal/eventstore/handler.
type Server struct {
	store   *eventstore.Store
	emitter telemetry.EventEmitter
}

var _ storev1.StoreServiceServer = (*Server)(nil)

// NewServer returns a StoreService server. emitter may be nil.
func NewServer(store *eventstore.Store, emitter telemetry.EventEmitter) *Server {
	return &Server{store: store, emitter: emitter}
}

func (s *Server) view() *storev1.ViewResponse {
	return &storev1.ViewResponse{View: s.store.View()}
}

// LoadSession makes the session active and loads its default window.
func (s *Server) LoadSession(ctx context.Context, req *storev1.SessionRequest) (*storev1.ViewResponse, error) {
	if req.SessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	if err := s.store.LoadSession(ctx, req.SessionID); err != nil {
		return nil, toStatus(err)
	}
	return s.view(), nil
}

// SetActiveSession switches the active session without loading it. An empty id clears it.
func (s *Server) SetActiveSession(ctx context.Context, req *storev1.SessionRequest) (*storev1.ViewResponse, error) {
	s.store.SetActiveSession(req.SessionID)
	return s.view(), nil
}

// StartSession starts a session on the device and makes it active in tail mode.
func (s *Server) StartSession(ctx context.Context, req *storev1.StartSessionRequest) (*storev1.SessionResponse, error) {
	if req.DeviceID == "" {
		return nil, status.Error(codes.InvalidArgument, "device_id is required")
	}
	sess, err := s.store.StartSession(ctx, req.DeviceID, req.Type, req.Name)
	if err != nil {
		return nil, toStatus(err)
	}
	telemetry.EmitAsync(s.emitter, &domain.Record{
		Name:       domain.RecordSessionStarted,
		SessionID:  sess.ID,
		DeviceID:   sess.DeviceID,
		Source:     recordSource,
		Attributes: map[string]string{"type": string(sess.Type)},
	})
	return &storev1.SessionResponse{Session: sess}, nil
}

// EndSession moves the session to a terminal status (completed when unset).
func (s *Server) EndSession(ctx context.Context, req *storev1.EndSessionRequest) (*storev1.SessionResponse, error) {
	if req.SessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	st := req.Status
	if st == "" {
		st = sessiondomain.StatusCompleted
	}
	if !st.Terminal() {
		return nil, status.Errorf(codes.InvalidArgument, "status %q is not terminal", st)
	}
	sess, err := s.store.EndSession(ctx, req.SessionID, st)
	if err != nil {
		return nil, toStatus(err)
	}
	telemetry.EmitAsync(s.emitter, &domain.Record{
		Name:       domain.RecordSessionEnded,
		SessionID:  sess.ID,
		DeviceID:   sess.DeviceID,
		Source:     recordSource,
		Attributes: map[string]string{"status": string(sess.Status), "event_count": strconv.Itoa(sess.EventCount)},
	})
	return &storev1.SessionResponse{Session: sess}, nil
}

// DeleteSession removes the session with its events and bookmarks.
func (s *Server) DeleteSession(ctx context.Context, req *storev1.SessionRequest) (*storev1.Empty, error) {
	if req.SessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	if err := s.store.DeleteSession(ctx, req.SessionID); err != nil {
		return nil, toStatus(err)
	}
	return &storev1.Empty{}, nil
}

// GetSession returns one session.
func (s *Server) GetSession(ctx context.Context, req *storev1.SessionRequest) (*storev1.SessionResponse, error) {
	sess, err := s.store.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	if sess == nil {
		return nil, status.Error(codes.NotFound, "session not found")
	}
	return &storev1.SessionResponse{Session: sess}, nil
}

// ListSessions returns stored sessions, newest first, optionally for one device.
func (s *Server) ListSessions(ctx context.Context, req *storev1.ListSessionsRequest) (*storev1.ListSessionsResponse, error) {
	if req.Limit < 0 {
		return nil, status.Error(codes.InvalidArgument, "limit must not be negative")
	}
	list, err := s.store.ListSessions(ctx, req.DeviceID, req.Limit)
	if err != nil {
		return nil, toStatus(err)
	}
	return &storev1.ListSessionsResponse{Sessions: list}, nil
}

// GetEvent returns one event; Event is empty when the id is unknown.
func (s *Server) GetEvent(ctx context.Context, req *storev1.EventRequest) (*storev1.EventResponse, error) {
	e, err := s.store.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &storev1.EventResponse{Event: e}, nil
}

// GetView returns the current presentation snapshot.
func (s *Server) GetView(ctx context.Context, _ *storev1.Empty) (*storev1.ViewResponse, error) {
	return s.view(), nil
}

func (s *Server) LoadEventsInRange(ctx context.Context, req *storev1.RangeRequest) (*storev1.ViewResponse, error) {
	if err := s.store.LoadEventsInRange(ctx, req.Start, req.End); err != nil {
		return nil, toStatus(err)
	}
	return s.view(), nil
}

func (s *Server) SetVisibleRange(ctx context.Context, req *storev1.RangeRequest) (*storev1.ViewResponse, error) {
	if err := s.store.SetVisibleRange(ctx, req.Start, req.End); err != nil {
		return nil, toStatus(err)
	}
	return s.view(), nil
}

func (s *Server) LoadPage(ctx context.Context, req *storev1.LoadPageRequest) (*storev1.LoadPageResponse, error) {
	res, err := s.store.LoadPage(ctx, req.Page, req.PageSize)
	if err != nil {
		return nil, toStatus(err)
	}
	return &storev1.LoadPageResponse{Result: res}, nil
}

func (s *Server) SearchEvents(ctx context.Context, req *storev1.SearchRequest) (*storev1.ViewResponse, error) {
	if err := s.store.SearchEvents(ctx, req.Text); err != nil {
		return nil, toStatus(err)
	}
	return s.view(), nil
}

func (s *Server) SetFilter(ctx context.Context, req *storev1.SetFilterRequest) (*storev1.ViewResponse, error) {
	if err := s.store.SetFilter(ctx, req.Patch); err != nil {
		return nil, toStatus(err)
	}
	return s.view(), nil
}

func (s *Server) ClearFilter(ctx context.Context, _ *storev1.Empty) (*storev1.ViewResponse, error) {
	if err := s.store.ClearFilter(ctx); err != nil {
		return nil, toStatus(err)
	}
	return s.view(), nil
}

func (s *Server) JumpToTime(ctx context.Context, req *storev1.JumpToTimeRequest) (*storev1.ViewResponse, error) {
	if err := s.store.JumpToTime(ctx, req.Time); err != nil {
		return nil, toStatus(err)
	}
	return s.view(), nil
}

// JumpToEvent centres the window on the event. Found is false for unknown ids.
func (s *Server) JumpToEvent(ctx context.Context, req *storev1.EventRequest) (*storev1.JumpToEventResponse, error) {
	found, err := s.store.JumpToEvent(ctx, req.EventID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &storev1.JumpToEventResponse{Found: found, View: s.store.View()}, nil
}

func (s *Server) SetTailMode(ctx context.Context, req *storev1.SetTailModeRequest) (*storev1.ViewResponse, error) {
	s.store.SetTailMode(req.Enabled)
	return s.view(), nil
}

func (s *Server) DismissError(ctx context.Context, _ *storev1.Empty) (*storev1.ViewResponse, error) {
	s.store.DismissError()
	return s.view(), nil
}

// GetTimeline returns the time index and bookmark state of the active session.
func (s *Server) GetTimeline(ctx context.Context, _ *storev1.Empty) (*storev1.TimelineResponse, error) {
	return &storev1.TimelineResponse{Timeline: s.store.Timeline()}, nil
}

func (s *Server) ReloadTimeline(ctx context.Context, _ *storev1.Empty) (*storev1.Empty, error) {
	s.store.ReloadTimeline()
	return &storev1.Empty{}, nil
}

func (s *Server) CreateBookmark(ctx context.Context, req *storev1.CreateBookmarkRequest) (*storev1.CreateBookmarkResponse, error) {
	id, err := s.store.CreateBookmark(ctx, req.SessionID, req.RelativeTime, req.Label, req.Color, req.Type)
	if err != nil {
		return nil, toStatus(err)
	}
	return &storev1.CreateBookmarkResponse{BookmarkID: id}, nil
}

func (s *Server) DeleteBookmark(ctx context.Context, req *storev1.DeleteBookmarkRequest) (*storev1.Empty, error) {
	if req.BookmarkID == "" {
		return nil, status.Error(codes.InvalidArgument, "bookmark_id is required")
	}
	if err := s.store.DeleteBookmark(ctx, req.BookmarkID); err != nil {
		return nil, toStatus(err)
	}
	return &storev1.Empty{}, nil
}

func (s *Server) ListBookmarks(ctx context.Context, req *storev1.SessionRequest) (*storev1.ListBookmarksResponse, error) {
	id := req.SessionID
	if id == "" {
		id = s.store.ActiveSessionID()
	}
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	list, err := s.store.ListBookmarks(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return &storev1.ListBookmarksResponse{Bookmarks: list}, nil
}

func (s *Server) GetSessionStats(ctx context.Context, req *storev1.SessionRequest) (*storev1.SessionStatsResponse, error) {
	stats, err := s.store.GetSessionStats(ctx, req.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &storev1.SessionStatsResponse{Stats: stats}, nil
}

// Cleanup removes sessions older than MaxAgeDays.
func (s *Server) Cleanup(ctx context.Context, req *storev1.CleanupRequest) (*storev1.CleanupResponse, error) {
	removed, err := s.store.Cleanup(ctx, req.MaxAgeDays)
	if err != nil {
		return nil, toStatus(err)
	}
	telemetry.EmitAsync(s.emitter, &domain.Record{
		Name:   domain.RecordCleanup,
		Source: recordSource,
		Attributes: map[string]string{
			"max_age_days": strconv.Itoa(req.MaxAgeDays),
			"removed":      strconv.Itoa(removed),
		},
	})
	return &storev1.CleanupResponse{Removed: removed}, nil
}

// toStatus maps store errors to gRPC status codes. Unexpected errors are logged and returned as Internal.
func toStatus(err error) error {
	switch {
	case errors.Is(err, eventstore.ErrInvalidQuery), errors.Is(err, timeline.ErrInvalidBookmark):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, sessiondomain.ErrSessionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, sessiondomain.ErrInvalidStateTransition), errors.Is(err, eventstore.ErrNoActiveSession):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, eventstore.ErrStaleResult):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, eventstore.ErrClosed):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	log.Printf("store: %v", err)
	return status.Error(codes.Internal, err.Error())
}
