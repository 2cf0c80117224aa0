package audit

import "testing"

func TestParseFullMethod(t *testing.T) {
	tests := []struct {
		method   string
		action   string
		resource string
	}{
		{"/inspector.store.v1.StoreService/StartSession", "start", "session"},
		{"/inspector.store.v1.StoreService/EndSession", "end", "session"},
		{"/inspector.store.v1.StoreService/DeleteSession", "delete", "session"},
		{"/inspector.store.v1.StoreService/CreateBookmark", "create", "bookmark"},
		{"/inspector.store.v1.StoreService/ListBookmarks", "list", "bookmark"},
		{"/inspector.store.v1.StoreService/JumpToEvent", "jump", "event"},
		{"/inspector.store.v1.StoreService/LoadEventsInRange", "load", "events_in_range"},
		{"/inspector.store.v1.StoreService/SetFilter", "set", "filter"},
		{"/inspector.store.v1.StoreService/PushEvents", "emit", "event"},
		{"/inspector.store.v1.StoreService/Cleanup", "cleanup", "session"},
		{"/inspector.audit.v1.AuditService/ListAuditLogs", "list", "audit_log"},
		{"/inspector.health.v1.HealthService/Check", "check", "health"},
		{"/inspector.store.v1.StoreService/View", "view", "store"},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			got := ParseFullMethod(tt.method)
			if got.Action != tt.action || got.Resource != tt.resource {
				t.Errorf("ParseFullMethod(%q) = %s/%s, want %s/%s", tt.method, got.Action, got.Resource, tt.action, tt.resource)
			}
		})
	}
}

func TestParseFullMethod_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		action   string
		resource string
	}{
		{"no slash", "StoreService.StartSession", "unknown", "unknown"},
		{"no package", "/StartSession", "startsession", "unknown"},
		{"empty method", "/inspector.store.v1.StoreService/", "unknown", "store"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFullMethod(tt.method)
			if got.Action != tt.action || got.Resource != tt.resource {
				t.Errorf("ParseFullMethod(%q) = %s/%s, want %s/%s", tt.method, got.Action, got.Resource, tt.action, tt.resource)
			}
		})
	}
}
