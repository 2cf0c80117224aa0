package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/open-policy-agent/opa/v1/rego"

	eventdomain "device-inspector/backend/internal/event/domain"
	sessiondomain "device-inspector/backend/internal/session/domain"
)

// DropQuery is the rule the policy must define: a set of indexes into input.events.
const DropQuery = "data.inspector.ingest.drop"

// ExamplePolicy drops verbose and debug logcat lines and touch events of recording sessions.
const ExamplePolicy = `package inspector.ingest

drop contains i if {
	some i
	e := input.events[i]
	e.source == "logcat"
	e.level in {"verbose", "debug"}
}

drop contains i if {
	some i
	e := input.events[i]
	input.session.type == "recording"
	e.source == "touch"
}
`

// OPAEvaluator evaluates a compiled Rego admission policy.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

var _ Evaluator = (*OPAEvaluator)(nil)

// LoadModule returns src when it is inline Rego (starts with "package") and otherwise reads the
// file at path src.
func LoadModule(src string) (string, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return "", errors.New("policy: empty module")
	}
	if strings.HasPrefix(src, "package ") {
		return src, nil
	}
	b, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("policy: %w", err)
	}
	return string(b), nil
}

// NewOPAEvaluator compiles module and prepares DropQuery.
func NewOPAEvaluator(ctx context.Context, module string) (*OPAEvaluator, error) {
	q, err := rego.New(
		rego.Query(DropQuery),
		rego.Module("ingest_policy.rego", module),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("policy: compile: %w", err)
	}
	return &OPAEvaluator{query: q}, nil
}

// HealthCheck evaluates the policy against an empty batch.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	_, err := e.drop(ctx, &sessiondomain.DeviceSession{}, nil)
	return err
}

// Admit removes the events whose index is in the policy's drop set. A policy that defines no
// drop rule for the input admits everything.
func (e *OPAEvaluator) Admit(ctx context.Context, sess *sessiondomain.DeviceSession, events []eventdomain.UnifiedEvent) ([]eventdomain.UnifiedEvent, int, error) {
	if len(events) == 0 {
		return events, 0, nil
	}
	drop, err := e.drop(ctx, sess, events)
	if err != nil {
		return events, 0, err
	}
	if len(drop) == 0 {
		return events, 0, nil
	}
	kept := make([]eventdomain.UnifiedEvent, 0, len(events)-len(drop))
	for i := range events {
		if !drop[i] {
			kept = append(kept, events[i])
		}
	}
	return kept, len(events) - len(kept), nil
}

func (e *OPAEvaluator) drop(ctx context.Context, sess *sessiondomain.DeviceSession, events []eventdomain.UnifiedEvent) (map[int]bool, error) {
	if events == nil {
		events = []eventdomain.UnifiedEvent{}
	}
	input := map[string]interface{}{"session": sess, "events": events}
	rs, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("policy: eval: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return nil, nil
	}
	values, ok := rs[0].Expressions[0].Value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("policy: %s is %T, want a set of indexes", DropQuery, rs[0].Expressions[0].Value)
	}
	drop := make(map[int]bool, len(values))
	for _, v := range values {
		i, err := index(v)
		if err != nil {
			return nil, err
		}
		if i >= 0 && i < len(events) {
			drop[i] = true
		}
	}
	return drop, nil
}

func index(v interface{}) (int, error) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("policy: drop index %s: %w", n, err)
		}
		return int(i), nil
	case float64:
		return int(n), nil
	case int:
		return n, nil
	}
	return 0, fmt.Errorf("policy: drop index %v is %T", v, v)
}
