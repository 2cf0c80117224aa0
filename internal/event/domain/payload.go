package domain

import (
	"encoding/json"
	"fmt"
)

// Payload is the typed body carried in UnifiedEvent.Data. Each Source has exactly one
// payload shape (logcat has two, selected by Type); see DecodePayload.
type Payload interface {
	PayloadSource() Source
}

// LogcatData is a single device log line.
type LogcatData struct {
	Tag          string `json:"tag"`
	Message      string `json:"message"`
	AndroidLevel string `json:"androidLevel"`
	PID          int    `json:"pid,omitempty"`
	TID          int    `json:"tid,omitempty"`
	PackageName  string `json:"packageName,omitempty"`
	Raw          string `json:"raw,omitempty"`
}

// LogcatAggregatedData is the body of a "logcat_aggregated" event.
type LogcatAggregatedData struct {
	Entries []LogcatData `json:"entries"`
	Tag     string       `json:"tag"`
	Count   int          `json:"count"`
}

// NetworkRequestData describes one HTTP(S) or WebSocket transaction.
// RequestID is the correlation id shared by the pending and completed deliveries.
type NetworkRequestData struct {
	RequestID        string            `json:"requestId"`
	Method           string            `json:"method"`
	URL              string            `json:"url"`
	Host             string            `json:"host,omitempty"`
	Path             string            `json:"path,omitempty"`
	StatusCode       int               `json:"statusCode"`
	ContentType      string            `json:"contentType,omitempty"`
	RequestHeaders   map[string]string `json:"requestHeaders,omitempty"`
	RequestBodySize  int64             `json:"requestBodySize,omitempty"`
	ResponseHeaders  map[string]string `json:"responseHeaders,omitempty"`
	ResponseBodySize int64             `json:"responseBodySize,omitempty"`
	StartTime        int64             `json:"startTime,omitempty"`
	EndTime          int64             `json:"endTime,omitempty"`
	IsHTTPS          bool              `json:"isHttps"`
	IsWS             bool              `json:"isWs"`
	Error            string            `json:"error,omitempty"`
}

// Pending reports whether the transaction has not completed yet.
func (n *NetworkRequestData) Pending() bool {
	return n.StatusCode == 0 && n.Error == ""
}

// DeviceStateData is a battery/network/screen/memory state change.
type DeviceStateData struct {
	StateType      string `json:"stateType"`
	BatteryLevel   int    `json:"batteryLevel,omitempty"`
	BatteryStatus  string `json:"batteryStatus,omitempty"`
	NetworkType    string `json:"networkType,omitempty"`
	SignalStrength int    `json:"signalStrength,omitempty"`
	ScreenState    string `json:"screenState,omitempty"`
	Orientation    string `json:"orientation,omitempty"`
	MemoryTotal    int64  `json:"memoryTotal,omitempty"`
	MemoryAvail    int64  `json:"memoryAvail,omitempty"`
}

// AppLifecycleData is an application or activity lifecycle transition, including crashes and ANRs.
type AppLifecycleData struct {
	PackageName  string `json:"packageName"`
	ActivityName string `json:"activityName,omitempty"`
	Action       string `json:"action"`
	PID          int    `json:"pid,omitempty"`
	CrashType    string `json:"crashType,omitempty"`
	CrashMessage string `json:"crashMessage,omitempty"`
	StackTrace   string `json:"stackTrace,omitempty"`
}

// UIStateData is a UI hierarchy or focus change.
type UIStateData struct {
	Activity string `json:"activity,omitempty"`
	Window   string `json:"window,omitempty"`
	Change   string `json:"change"`
}

// TouchEventData is a raw touch or recognised gesture.
type TouchEventData struct {
	Action      string  `json:"action"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	PointerID   int     `json:"pointerId,omitempty"`
	GestureType string  `json:"gestureType,omitempty"`
	SwipeDir    string  `json:"swipeDir,omitempty"`
}

// WorkflowEventData is an automation workflow or step transition.
type WorkflowEventData struct {
	WorkflowID   string `json:"workflowId"`
	WorkflowName string `json:"workflowName"`
	StepID       string `json:"stepId,omitempty"`
	StepName     string `json:"stepName,omitempty"`
	StepType     string `json:"stepType,omitempty"`
	Action       string `json:"action"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// PerfData is a single performance sample.
type PerfData struct {
	MetricType string  `json:"metricType"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
	CPUUsage   float64 `json:"cpuUsage,omitempty"`
	MemoryRSS  int64   `json:"memoryRss,omitempty"`
	FPS        float64 `json:"fps,omitempty"`
	JankCount  int     `json:"jankCount,omitempty"`
}

// AssertionData is the outcome of an assertion evaluated against the session.
type AssertionData struct {
	AssertionID   string          `json:"assertionId"`
	AssertionType string          `json:"assertionType"`
	Expression    string          `json:"expression"`
	Passed        bool            `json:"passed"`
	ActualValue   json.RawMessage `json:"actualValue,omitempty"`
	ExpectedValue json.RawMessage `json:"expectedValue,omitempty"`
	ErrorMessage  string          `json:"errorMessage,omitempty"`
	MatchedEvents []string        `json:"matchedEvents,omitempty"`
}

// SystemData is the body of session and recording markers.
type SystemData struct {
	Action string `json:"action"`
	Detail string `json:"detail,omitempty"`
}

func (LogcatData) PayloadSource() Source           { return SourceLogcat }
func (LogcatAggregatedData) PayloadSource() Source { return SourceLogcat }
func (NetworkRequestData) PayloadSource() Source   { return SourceNetwork }
func (DeviceStateData) PayloadSource() Source      { return SourceDevice }
func (AppLifecycleData) PayloadSource() Source     { return SourceApp }
func (UIStateData) PayloadSource() Source          { return SourceUI }
func (TouchEventData) PayloadSource() Source       { return SourceTouch }
func (WorkflowEventData) PayloadSource() Source    { return SourceWorkflow }
func (PerfData) PayloadSource() Source             { return SourcePerf }
func (AssertionData) PayloadSource() Source        { return SourceAssertion }
func (SystemData) PayloadSource() Source           { return SourceSystem }

// DecodePayload resolves e.Data into the payload shape for e.Source.
// It returns (nil, nil) when the event carries no data.
func DecodePayload(e *UnifiedEvent) (Payload, error) {
	if e == nil || len(e.Data) == 0 {
		return nil, nil
	}
	var p Payload
	switch e.Source {
	case SourceLogcat:
		if e.Type == "logcat_aggregated" {
			p = &LogcatAggregatedData{}
		} else {
			p = &LogcatData{}
		}
	case SourceNetwork:
		p = &NetworkRequestData{}
	case SourceDevice:
		p = &DeviceStateData{}
	case SourceApp:
		p = &AppLifecycleData{}
	case SourceUI:
		p = &UIStateData{}
	case SourceTouch:
		p = &TouchEventData{}
	case SourceWorkflow:
		p = &WorkflowEventData{}
	case SourcePerf:
		p = &PerfData{}
	case SourceAssertion:
		p = &AssertionData{}
	case SourceSystem:
		p = &SystemData{}
	default:
		return nil, fmt.Errorf("event %s: unknown source %q", e.ID, e.Source)
	}
	if err := json.Unmarshal(e.Data, p); err != nil {
		return nil, fmt.Errorf("event %s: decode %s payload: %w", e.ID, e.Source, err)
	}
	return p, nil
}

// EncodePayload marshals p into e.Data. The payload's source must match e.Source.
func EncodePayload(e *UnifiedEvent, p Payload) error {
	if p.PayloadSource() != e.Source {
		return fmt.Errorf("event %s: %s payload on %s event", e.ID, p.PayloadSource(), e.Source)
	}
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	e.Data = b
	return nil
}
