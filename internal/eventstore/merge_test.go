package eventstore

import (
	"fmt"
	"testing"

	eventdomain "device-inspector/backend/internal/event/domain"
)

func ids(events []eventdomain.UnifiedEvent) []string {
	out := make([]string, len(events))
	for i := range events {
		out[i] = events[i].ID
	}
	return out
}

func sameIDs(got []eventdomain.UnifiedEvent, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i].ID != want[i] {
			return false
		}
	}
	return true
}

func TestMergeLive_DurableWinsOverLiveCopy(t *testing.T) {
	completed := ev("E1", "s1", 500)
	completed.Title = "completed"
	pending := ev("E1", "s1", 500)
	pending.Title = "pending"

	durable := []eventdomain.UnifiedEvent{ev("E0", "s1", 100), completed}
	live := []eventdomain.UnifiedEvent{pending, ev("E2", "s1", 700)}

	got := mergeLive(durable, live, 2000)
	if !sameIDs(got, "E0", "E1", "E2") {
		t.Fatalf("merge = %v, want [E0 E1 E2]", ids(got))
	}
	if got[1].Title != "completed" {
		t.Errorf("E1 title = %q, want the durable (completed) copy", got[1].Title)
	}
}

func TestMergeLive_CorrelationKeyDedup(t *testing.T) {
	durable := []eventdomain.UnifiedEvent{netEv("n-durable", "s1", "req-1", 300, "completed")}
	live := []eventdomain.UnifiedEvent{netEv("n-live", "s1", "req-1", 300, "pending"), ev("L", "s1", 50)}

	got := mergeLive(durable, live, 10)
	if !sameIDs(got, "L", "n-durable") {
		t.Errorf("merge = %v, want [L n-durable]", ids(got))
	}
}

func TestMergeLive_SortsByRelativeTime(t *testing.T) {
	durable := []eventdomain.UnifiedEvent{ev("d3", "s1", 300), ev("d1", "s1", 100)}
	live := []eventdomain.UnifiedEvent{ev("l2", "s1", 200), ev("l0", "s1", 0)}
	got := mergeLive(durable, live, 10)
	if !sameIDs(got, "l0", "d1", "l2", "d3") {
		t.Errorf("merge = %v", ids(got))
	}
}

func TestMergeLive_DisplayCapKeepsMostRecent(t *testing.T) {
	var durable, live []eventdomain.UnifiedEvent
	for i := 0; i < 2500; i++ {
		e := ev(fmt.Sprintf("e%d", i), "s1", int64(i))
		if i%2 == 0 {
			durable = append(durable, e)
		} else {
			live = append(live, e)
		}
	}
	got := mergeLive(durable, live, 2000)
	if len(got) != 2000 {
		t.Fatalf("len = %d, want 2000", len(got))
	}
	if got[0].RelativeTime != 500 || got[1999].RelativeTime != 2499 {
		t.Errorf("range = [%d, %d], want [500, 2499]", got[0].RelativeTime, got[1999].RelativeTime)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].RelativeTime > got[i].RelativeTime {
			t.Fatalf("not ascending at %d", i)
		}
	}
}

func TestAppendIncremental(t *testing.T) {
	visible := []eventdomain.UnifiedEvent{
		ev("a", "s1", 100),
		netEv("n1", "s1", "req-1", 200, "pending"),
		ev("b", "s1", 300),
	}

	tests := []struct {
		name     string
		incoming []eventdomain.UnifiedEvent
		limit    int
		want     []string
	}{
		{"append in order", []eventdomain.UnifiedEvent{ev("c", "s1", 400)}, 10, []string{"a", "n1", "b", "c"}},
		{"replace by id", []eventdomain.UnifiedEvent{netEv("n1", "s1", "req-1", 200, "completed")}, 10, []string{"a", "n1", "b"}},
		{"replace by correlation key", []eventdomain.UnifiedEvent{netEv("n1-done", "s1", "req-1", 250, "completed")}, 10, []string{"a", "n1-done", "b"}},
		{"late event inserted in order", []eventdomain.UnifiedEvent{ev("early", "s1", 150)}, 10, []string{"a", "early", "n1", "b"}},
		{"cap trims from front", []eventdomain.UnifiedEvent{ev("c", "s1", 400), ev("d", "s1", 500)}, 3, []string{"b", "c", "d"}},
		{"duplicate within batch", []eventdomain.UnifiedEvent{ev("c", "s1", 400), ev("c", "s1", 400)}, 10, []string{"a", "n1", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := appendIncremental(visible, tt.incoming, tt.limit)
			if !sameIDs(got, tt.want...) {
				t.Errorf("got %v, want %v", ids(got), tt.want)
			}
		})
	}
	if !sameIDs(visible, "a", "n1", "b") || visible[1].Title != "pending" {
		t.Error("appendIncremental modified its input")
	}
}

func TestAppendIncremental_ReplacementKeepsPosition(t *testing.T) {
	visible := []eventdomain.UnifiedEvent{netEv("n1", "s1", "req-1", 200, "pending"), ev("b", "s1", 300)}
	got := appendIncremental(visible, []eventdomain.UnifiedEvent{netEv("n1", "s1", "req-1", 200, "completed")}, 10)
	if got[0].ID != "n1" || got[0].Title != "completed" || len(got) != 2 {
		t.Errorf("got %+v", got)
	}
}
