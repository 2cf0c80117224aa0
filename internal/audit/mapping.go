package audit

import (
	"strings"
	"unicode"
)

// ActionResource holds action and resource derived from a gRPC full method name.
type ActionResource struct {
	Action   string
	Resource string
}

// Store methods whose names do not split into verb + noun cleanly.
var methodOverrides = map[string]ActionResource{
	"PushEvents":      {Action: "emit", Resource: "event"},
	"Cleanup":         {Action: "cleanup", Resource: "session"},
	"DismissError":    {Action: "dismiss", Resource: "error"},
	"SetTailMode":     {Action: "set", Resource: "tail_mode"},
	"LoadPage":        {Action: "load", Resource: "page"},
	"ReloadTimeline":  {Action: "reload", Resource: "timeline"},
	"GetSessionStats": {Action: "get", Resource: "session"},
}

// ParseFullMethod returns action and resource for a gRPC full method
// (e.g. /inspector.store.v1.StoreService/DeleteSession -> delete, session).
// Action is the leading verb of the method name in lower case; resource is the rest in
// snake_case with plural "s" dropped. Methods without a noun fall back to the service name
// (e.g. HealthService -> health).
func ParseFullMethod(fullMethod string) ActionResource {
	slash := strings.LastIndex(fullMethod, "/")
	if slash < 0 {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	method := fullMethod[slash+1:]
	if ar, ok := methodOverrides[method]; ok {
		return ar
	}
	beforeSlash := fullMethod[:slash]
	dot := strings.LastIndex(beforeSlash, ".")
	if dot < 0 {
		return ActionResource{Action: strings.ToLower(method), Resource: "unknown"}
	}
	words := splitCamel(method)
	if len(words) == 0 {
		return ActionResource{Action: "unknown", Resource: serviceToResource(beforeSlash[dot+1:])}
	}
	action := words[0]
	rest := words[1:]
	if len(rest) > 0 && rest[0] == "to" {
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return ActionResource{Action: action, Resource: serviceToResource(beforeSlash[dot+1:])}
	}
	resource := strings.Join(rest, "_")
	if len(resource) > 1 && strings.HasSuffix(resource, "s") && !strings.HasSuffix(resource, "ss") {
		resource = strings.TrimSuffix(resource, "s")
	}
	return ActionResource{Action: action, Resource: resource}
}

func serviceToResource(serviceName string) string {
	// StoreService -> store, HealthService -> health
	s := strings.TrimSuffix(serviceName, "Service")
	if s == "" {
		return "unknown"
	}
	return strings.ToLower(s[0:1]) + s[1:]
}

// splitCamel splits "JumpToEvent" into ["jump", "to", "event"].
func splitCamel(s string) []string {
	var (
		words []string
		cur   []rune
	)
	for _, r := range s {
		if unicode.IsUpper(r) && len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		words = append(words, strings.ToLower(string(cur)))
	}
	return words
}
