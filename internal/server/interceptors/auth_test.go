package interceptors

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"device-inspector/backend/internal/security"
)

const protectedMethod = "/test.Ingest/Push"

type deviceRequest struct{ device string }

func (r deviceRequest) GetDeviceID() string { return r.device }

func issueToken(t *testing.T, deviceID string) (*security.TokenProvider, string) {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	token, _, err := tokens.Issue("agent-1", deviceID, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return tokens, token
}

func withAuthorization(value string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", value))
}

func TestProducerAuthUnary(t *testing.T) {
	tokens, pinned := issueToken(t, "dev-1")
	_, unpinned := issueToken(t, "")

	tests := []struct {
		name     string
		ctx      context.Context
		method   string
		req      interface{}
		wantCode codes.Code
		wantID   string
	}{
		{"unprotected method", context.Background(), "/test.Store/Get", "req", codes.OK, ""},
		{"missing token", context.Background(), protectedMethod, "req", codes.Unauthenticated, ""},
		{"not bearer", withAuthorization("Basic abc"), protectedMethod, "req", codes.Unauthenticated, ""},
		{"invalid token", withAuthorization("Bearer nope"), protectedMethod, "req", codes.Unauthenticated, ""},
		{"valid token", withAuthorization("Bearer " + pinned), protectedMethod, deviceRequest{"dev-1"}, codes.OK, "agent-1"},
		{"case-insensitive prefix", withAuthorization("bearer " + unpinned), protectedMethod, deviceRequest{"dev-9"}, codes.OK, "agent-1"},
		{"other device", withAuthorization("Bearer " + pinned), protectedMethod, deviceRequest{"dev-2"}, codes.PermissionDenied, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			interceptor := ProducerAuthUnary(tokens, map[string]bool{protectedMethod: true})
			var gotID string
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				gotID = ProducerID(ctx)
				return "ok", nil
			}
			_, err := interceptor(tt.ctx, tt.req, &grpc.UnaryServerInfo{FullMethod: tt.method}, handler)
			if got := status.Code(err); got != tt.wantCode {
				t.Fatalf("code = %v, want %v (%v)", got, tt.wantCode, err)
			}
			if gotID != tt.wantID {
				t.Errorf("producer id = %q, want %q", gotID, tt.wantID)
			}
		})
	}
}

func TestProducerAuthUnary_NilVerifier(t *testing.T) {
	interceptor := ProducerAuthUnary(nil, map[string]bool{protectedMethod: true})
	handler := func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil }
	if _, err := interceptor(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: protectedMethod}, handler); err != nil {
		t.Errorf("disabled auth should pass, got %v", err)
	}
}

func TestProducerFromContext_Empty(t *testing.T) {
	if _, ok := ProducerFromContext(context.Background()); ok {
		t.Error("empty context should carry no producer")
	}
	if id := ProducerID(context.Background()); id != "" {
		t.Errorf("ProducerID = %q", id)
	}
}
