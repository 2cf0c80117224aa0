// Package loki provides a client to push device log and error events to Grafana Loki.
package loki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	eventdomain "device-inspector/backend/internal/event/domain"
)

// Job is the job label on every pushed stream.
const Job = "device-inspector"

// PushRequest is the Loki push API request body (v1).
type PushRequest struct {
	Streams []Stream `json:"streams"`
}

// Stream is a single stream with labels and log entries.
type Stream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"` // each entry is [timestamp_ns, log_line]
}

// labelSanitize replaces characters that are invalid in Loki label names/values.
// Loki labels: name must match [a-zA-Z_:][a-zA-Z0-9_:]*, value can be any string but we avoid problematic chars.
var labelSanitize = regexp.MustCompile(`[^a-zA-Z0-9_\-:]`)

// Client pushes entries to one Loki instance.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for baseURL (e.g. http://localhost:3100). Returns nil when baseURL is empty.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		return nil
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Mirrored reports whether e is pushed by PushEvents: logcat lines and anything at error or above.
func Mirrored(e *eventdomain.UnifiedEvent) bool {
	return e.Source == eventdomain.SourceLogcat || e.Level.IsError()
}

// PushEvents sends the mirrored subset of events, one stream per (session, source, level).
// Events that are not mirrored are skipped; an empty subset sends nothing.
func (c *Client) PushEvents(ctx context.Context, events []eventdomain.UnifiedEvent) error {
	if c == nil {
		return nil
	}
	streams := map[string]*Stream{}
	var keys []string
	for i := range events {
		e := &events[i]
		if !Mirrored(e) {
			continue
		}
		labels := sanitizeLabels(map[string]string{
			"session_id": e.SessionID,
			"device_id":  e.DeviceID,
			"source":     string(e.Source),
			"level":      string(e.Level),
		})
		key := labels["session_id"] + "|" + labels["source"] + "|" + labels["level"]
		s, ok := streams[key]
		if !ok {
			s = &Stream{Stream: labels}
			streams[key] = s
			keys = append(keys, key)
		}
		line, err := json.Marshal(e)
		if err != nil {
			return err
		}
		ns := time.UnixMilli(e.Timestamp).UnixNano()
		s.Values = append(s.Values, []string{strconv.FormatInt(ns, 10), string(line)})
	}
	if len(streams) == 0 {
		return nil
	}
	sort.Strings(keys)
	body := PushRequest{Streams: make([]Stream, 0, len(keys))}
	for _, k := range keys {
		body.Streams = append(body.Streams, *streams[k])
	}
	return c.push(ctx, body)
}

// PushLine sends a single log line with extra labels (e.g. a session lifecycle notice).
func (c *Client) PushLine(ctx context.Context, timestamp time.Time, line string, labels map[string]string) error {
	if c == nil {
		return nil
	}
	return c.push(ctx, PushRequest{Streams: []Stream{{
		Stream: sanitizeLabels(labels),
		Values: [][]string{{strconv.FormatInt(timestamp.UnixNano(), 10), line}},
	}}})
}

func sanitizeLabels(labels map[string]string) map[string]string {
	out := make(map[string]string, len(labels)+1)
	out["job"] = Job
	for k, v := range labels {
		sanitized := labelSanitize.ReplaceAllString(strings.TrimSpace(v), "_")
		if sanitized != "" {
			out[k] = sanitized
		}
	}
	return out
}

// push posts body and returns an error if the request fails or Loki returns non-2xx.
func (c *Client) push(ctx context.Context, body PushRequest) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/loki/api/v1/push", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("loki: push returned %s", resp.Status)
	}
	return nil
}
