// Package storev1 declares the StoreService wire messages and service descriptor.
// Messages travel as JSON (see internal/rpc).
package storev1

import (
	"context"

	"google.golang.org/grpc"

	eventdomain "device-inspector/backend/internal/event/domain"
	"device-inspector/backend/internal/event/filter"
	"device-inspector/backend/internal/eventstore"
	"device-inspector/backend/internal/rpc"
	sessiondomain "device-inspector/backend/internal/session/domain"
	"device-inspector/backend/internal/timeline"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "inspector.store.v1.StoreService"

type Empty struct{}

type SessionRequest struct {
	SessionID string `json:"sessionId"`
}

func (r *SessionRequest) GetSessionID() string { return r.SessionID }

type StartSessionRequest struct {
	DeviceID string             `json:"deviceId"`
	Type     sessiondomain.Type `json:"type,omitempty"`
	Name     string             `json:"name,omitempty"`
}

func (r *StartSessionRequest) GetDeviceID() string { return r.DeviceID }

type EndSessionRequest struct {
	SessionID string               `json:"sessionId"`
	Status    sessiondomain.Status `json:"status,omitempty"`
}

func (r *EndSessionRequest) GetSessionID() string { return r.SessionID }

type SessionResponse struct {
	Session *sessiondomain.DeviceSession `json:"session"`
}

func (r *SessionResponse) GetSessionID() string {
	if r == nil || r.Session == nil {
		return ""
	}
	return r.Session.ID
}

func (r *SessionResponse) GetDeviceID() string {
	if r == nil || r.Session == nil {
		return ""
	}
	return r.Session.DeviceID
}

type ListSessionsRequest struct {
	DeviceID string `json:"deviceId,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

type ListSessionsResponse struct {
	Sessions []*sessiondomain.DeviceSession `json:"sessions"`
}

type RangeRequest struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

type LoadPageRequest struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize,omitempty"`
}

type LoadPageResponse struct {
	Result *eventdomain.QueryResult `json:"result"`
}

type SearchRequest struct {
	Text string `json:"text"`
}

type SetFilterRequest struct {
	Patch filter.Patch `json:"patch"`
}

type JumpToTimeRequest struct {
	Time int64 `json:"time"`
}

type EventRequest struct {
	EventID string `json:"eventId"`
}

type EventResponse struct {
	Event *eventdomain.UnifiedEvent `json:"event,omitempty"`
}

type JumpToEventResponse struct {
	Found bool            `json:"found"`
	View  eventstore.View `json:"view"`
}

type SetTailModeRequest struct {
	Enabled bool `json:"enabled"`
}

type ViewResponse struct {
	View eventstore.View `json:"view"`
}

type TimelineResponse struct {
	Timeline timeline.State `json:"timeline"`
}

type CreateBookmarkRequest struct {
	SessionID    string                   `json:"sessionId,omitempty"`
	RelativeTime int64                    `json:"relativeTime"`
	Label        string                   `json:"label"`
	Color        string                   `json:"color,omitempty"`
	Type         eventdomain.BookmarkType `json:"type,omitempty"`
}

func (r *CreateBookmarkRequest) GetSessionID() string { return r.SessionID }

type CreateBookmarkResponse struct {
	BookmarkID string `json:"bookmarkId"`
}

type DeleteBookmarkRequest struct {
	BookmarkID string `json:"bookmarkId"`
}

type ListBookmarksResponse struct {
	Bookmarks []eventdomain.Bookmark `json:"bookmarks"`
}

type SessionStatsResponse struct {
	Stats *eventstore.SessionStats `json:"stats"`
}

type CleanupRequest struct {
	MaxAgeDays int `json:"maxAgeDays"`
}

type CleanupResponse struct {
	Removed int `json:"removed"`
}

// StoreServiceServer is the server API for StoreService.
type StoreServiceServer interface {
	LoadSession(context.Context, *SessionRequest) (*ViewResponse, error)
	SetActiveSession(context.Context, *SessionRequest) (*ViewResponse, error)
	StartSession(context.Context, *StartSessionRequest) (*SessionResponse, error)
	EndSession(context.Context, *EndSessionRequest) (*SessionResponse, error)
	DeleteSession(context.Context, *SessionRequest) (*Empty, error)
	GetSession(context.Context, *SessionRequest) (*SessionResponse, error)
	ListSessions(context.Context, *ListSessionsRequest) (*ListSessionsResponse, error)
	GetEvent(context.Context, *EventRequest) (*EventResponse, error)

	GetView(context.Context, *Empty) (*ViewResponse, error)
	LoadEventsInRange(context.Context, *RangeRequest) (*ViewResponse, error)
	SetVisibleRange(context.Context, *RangeRequest) (*ViewResponse, error)
	LoadPage(context.Context, *LoadPageRequest) (*LoadPageResponse, error)
	SearchEvents(context.Context, *SearchRequest) (*ViewResponse, error)
	SetFilter(context.Context, *SetFilterRequest) (*ViewResponse, error)
	ClearFilter(context.Context, *Empty) (*ViewResponse, error)
	JumpToTime(context.Context, *JumpToTimeRequest) (*ViewResponse, error)
	JumpToEvent(context.Context, *EventRequest) (*JumpToEventResponse, error)
	SetTailMode(context.Context, *SetTailModeRequest) (*ViewResponse, error)
	DismissError(context.Context, *Empty) (*ViewResponse, error)

	GetTimeline(context.Context, *Empty) (*TimelineResponse, error)
	ReloadTimeline(context.Context, *Empty) (*Empty, error)
	CreateBookmark(context.Context, *CreateBookmarkRequest) (*CreateBookmarkResponse, error)
	DeleteBookmark(context.Context, *DeleteBookmarkRequest) (*Empty, error)
	ListBookmarks(context.Context, *SessionRequest) (*ListBookmarksResponse, error)

	GetSessionStats(context.Context, *SessionRequest) (*SessionStatsResponse, error)
	Cleanup(context.Context, *CleanupRequest) (*CleanupResponse, error)
}

// ReadOnlyMethods lists the full method names that do not change stored data.
var ReadOnlyMethods = []string{
	rpc.FullMethod(ServiceName, "GetSession"),
	rpc.FullMethod(ServiceName, "ListSessions"),
	rpc.FullMethod(ServiceName, "GetEvent"),
	rpc.FullMethod(ServiceName, "GetView"),
	rpc.FullMethod(ServiceName, "LoadEventsInRange"),
	rpc.FullMethod(ServiceName, "SetVisibleRange"),
	rpc.FullMethod(ServiceName, "LoadPage"),
	rpc.FullMethod(ServiceName, "SearchEvents"),
	rpc.FullMethod(ServiceName, "SetFilter"),
	rpc.FullMethod(ServiceName, "ClearFilter"),
	rpc.FullMethod(ServiceName, "JumpToTime"),
	rpc.FullMethod(ServiceName, "JumpToEvent"),
	rpc.FullMethod(ServiceName, "SetTailMode"),
	rpc.FullMethod(ServiceName, "DismissError"),
	rpc.FullMethod(ServiceName, "GetTimeline"),
	rpc.FullMethod(ServiceName, "ReloadTimeline"),
	rpc.FullMethod(ServiceName, "ListBookmarks"),
	rpc.FullMethod(ServiceName, "GetSessionStats"),
}

// ServiceDesc is the grpc.ServiceDesc for StoreService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StoreServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "LoadSession", StoreServiceServer.LoadSession),
		rpc.Unary(ServiceName, "SetActiveSession", StoreServiceServer.SetActiveSession),
		rpc.Unary(ServiceName, "StartSession", StoreServiceServer.StartSession),
		rpc.Unary(ServiceName, "EndSession", StoreServiceServer.EndSession),
		rpc.Unary(ServiceName, "DeleteSession", StoreServiceServer.DeleteSession),
		rpc.Unary(ServiceName, "GetSession", StoreServiceServer.GetSession),
		rpc.Unary(ServiceName, "ListSessions", StoreServiceServer.ListSessions),
		rpc.Unary(ServiceName, "GetEvent", StoreServiceServer.GetEvent),
		rpc.Unary(ServiceName, "GetView", StoreServiceServer.GetView),
		rpc.Unary(ServiceName, "LoadEventsInRange", StoreServiceServer.LoadEventsInRange),
		rpc.Unary(ServiceName, "SetVisibleRange", StoreServiceServer.SetVisibleRange),
		rpc.Unary(ServiceName, "LoadPage", StoreServiceServer.LoadPage),
		rpc.Unary(ServiceName, "SearchEvents", StoreServiceServer.SearchEvents),
		rpc.Unary(ServiceName, "SetFilter", StoreServiceServer.SetFilter),
		rpc.Unary(ServiceName, "ClearFilter", StoreServiceServer.ClearFilter),
		rpc.Unary(ServiceName, "JumpToTime", StoreServiceServer.JumpToTime),
		rpc.Unary(ServiceName, "JumpToEvent", StoreServiceServer.JumpToEvent),
		rpc.Unary(ServiceName, "SetTailMode", StoreServiceServer.SetTailMode),
		rpc.Unary(ServiceName, "DismissError", StoreServiceServer.DismissError),
		rpc.Unary(ServiceName, "GetTimeline", StoreServiceServer.GetTimeline),
		rpc.Unary(ServiceName, "ReloadTimeline", StoreServiceServer.ReloadTimeline),
		rpc.Unary(ServiceName, "CreateBookmark", StoreServiceServer.CreateBookmark),
		rpc.Unary(ServiceName, "DeleteBookmark", StoreServiceServer.DeleteBookmark),
		rpc.Unary(ServiceName, "ListBookmarks", StoreServiceServer.ListBookmarks),
		rpc.Unary(ServiceName, "GetSessionStats", StoreServiceServer.GetSessionStats),
		rpc.Unary(ServiceName, "Cleanup", StoreServiceServer.Cleanup),
	},
	Metadata: "store/v1/store",
}

// RegisterStoreServiceServer registers srv on s.
func RegisterStoreServiceServer(s grpc.ServiceRegistrar, srv StoreServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// StoreServiceClient calls a subset of StoreService used by tools and tests.
type StoreServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewStoreServiceClient(cc grpc.ClientConnInterface) *StoreServiceClient {
	return &StoreServiceClient{cc: cc}
}

func (c *StoreServiceClient) StartSession(ctx context.Context, in *StartSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return rpc.Invoke[StartSessionRequest, SessionResponse](ctx, c.cc, ServiceName, "StartSession", in, opts...)
}

func (c *StoreServiceClient) EndSession(ctx context.Context, in *EndSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return rpc.Invoke[EndSessionRequest, SessionResponse](ctx, c.cc, ServiceName, "EndSession", in, opts...)
}

func (c *StoreServiceClient) LoadSession(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*ViewResponse, error) {
	return rpc.Invoke[SessionRequest, ViewResponse](ctx, c.cc, ServiceName, "LoadSession", in, opts...)
}

func (c *StoreServiceClient) GetView(ctx context.Context, opts ...grpc.CallOption) (*ViewResponse, error) {
	return rpc.Invoke[Empty, ViewResponse](ctx, c.cc, ServiceName, "GetView", &Empty{}, opts...)
}

func (c *StoreServiceClient) LoadEventsInRange(ctx context.Context, in *RangeRequest, opts ...grpc.CallOption) (*ViewResponse, error) {
	return rpc.Invoke[RangeRequest, ViewResponse](ctx, c.cc, ServiceName, "LoadEventsInRange", in, opts...)
}

func (c *StoreServiceClient) ListSessions(ctx context.Context, in *ListSessionsRequest, opts ...grpc.CallOption) (*ListSessionsResponse, error) {
	return rpc.Invoke[ListSessionsRequest, ListSessionsResponse](ctx, c.cc, ServiceName, "ListSessions", in, opts...)
}

func (c *StoreServiceClient) Cleanup(ctx context.Context, in *CleanupRequest, opts ...grpc.CallOption) (*CleanupResponse, error) {
	return rpc.Invoke[CleanupRequest, CleanupResponse](ctx, c.cc, ServiceName, "Cleanup", in, opts...)
}
