package domain

// TypeInfo describes a well-known event type.
type TypeInfo struct {
	Type        string
	Source      Source
	Category    Category
	Description string
}

// Registry maps known event types to their source and category.
var Registry = map[string]TypeInfo{
	"logcat":            {"logcat", SourceLogcat, CategoryLog, "Device log output"},
	"logcat_aggregated": {"logcat_aggregated", SourceLogcat, CategoryLog, "Aggregated log entries"},

	"http_request":      {"http_request", SourceNetwork, CategoryNetwork, "HTTP/HTTPS request"},
	"websocket_message": {"websocket_message", SourceNetwork, CategoryNetwork, "WebSocket message"},

	"battery_change": {"battery_change", SourceDevice, CategoryState, "Battery level or status change"},
	"network_change": {"network_change", SourceDevice, CategoryState, "Network connectivity change"},
	"screen_change":  {"screen_change", SourceDevice, CategoryState, "Screen state change"},

	"app_start":      {"app_start", SourceApp, CategoryState, "Application started"},
	"app_stop":       {"app_stop", SourceApp, CategoryState, "Application stopped"},
	"activity_start": {"activity_start", SourceApp, CategoryState, "Activity started"},
	"activity_stop":  {"activity_stop", SourceApp, CategoryState, "Activity stopped"},
	"app_crash":      {"app_crash", SourceApp, CategoryState, "Application crash"},
	"app_anr":        {"app_anr", SourceApp, CategoryState, "Application not responding"},

	"ui_change": {"ui_change", SourceUI, CategoryState, "UI hierarchy or focus change"},

	"touch":   {"touch", SourceTouch, CategoryInteraction, "Touch event"},
	"gesture": {"gesture", SourceTouch, CategoryInteraction, "Recognised gesture"},

	"workflow_start":      {"workflow_start", SourceWorkflow, CategoryAutomation, "Workflow execution started"},
	"workflow_step_start": {"workflow_step_start", SourceWorkflow, CategoryAutomation, "Workflow step started"},
	"workflow_step_end":   {"workflow_step_end", SourceWorkflow, CategoryAutomation, "Workflow step completed"},
	"workflow_complete":   {"workflow_complete", SourceWorkflow, CategoryAutomation, "Workflow execution completed"},
	"workflow_error":      {"workflow_error", SourceWorkflow, CategoryAutomation, "Workflow execution error"},

	"perf_sample": {"perf_sample", SourcePerf, CategoryDiagnostic, "Performance metric sample"},

	"assertion_result": {"assertion_result", SourceAssertion, CategoryAutomation, "Assertion evaluation result"},

	"session_start":   {"session_start", SourceSystem, CategoryState, "Session started"},
	"session_end":     {"session_end", SourceSystem, CategoryState, "Session ended"},
	"recording_start": {"recording_start", SourceSystem, CategoryState, "Screen recording started"},
	"recording_end":   {"recording_end", SourceSystem, CategoryState, "Screen recording ended"},
}

// CategoryForType returns the registered category for eventType, or CategoryDiagnostic.
func CategoryForType(eventType string) Category {
	if info, ok := Registry[eventType]; ok {
		return info.Category
	}
	return CategoryDiagnostic
}
