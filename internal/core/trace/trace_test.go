package trace

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Ning0612/drivesync/internal/domain"
)

func dir(path, sum string) *domain.DirectoryVersion {
	return &domain.DirectoryVersion{Path: path, Checksum: sum}
}

func TestCompute(t *testing.T) {
	remove := domain.NewAction(domain.ActionRemove, dir("/old", "h1"), nil, nil)
	create := domain.NewAction(domain.ActionSync, nil, dir("/new", "h1"), nil)
	ack := domain.NewAction(domain.ActionAcknowledge, dir("/old", "h1"), dir("/old", "h1"), nil)

	before := domain.DirectoryPlan{
		ForServer: []domain.Action[domain.DirectoryVersion]{remove, create},
		ForClient: []domain.Action[domain.DirectoryVersion]{ack},
	}

	edit := remove
	edit.Kind = domain.ActionEdit
	edit.NewVersion = dir("/new", "h1")
	ackOld := ack
	ackOld.NewVersion = nil
	after := domain.DirectoryPlan{
		ForServer: []domain.Action[domain.DirectoryVersion]{edit},
		ForClient: []domain.Action[domain.DirectoryVersion]{ackOld, create},
	}

	d := Compute("directories", "rename-detect", before, after, 0)

	if d.ServerBefore != 2 || d.ServerAfter != 1 {
		t.Errorf("Expected server 2->1, got %d->%d", d.ServerBefore, d.ServerAfter)
	}
	if d.ClientBefore != 1 || d.ClientAfter != 2 {
		t.Errorf("Expected client 1->2, got %d->%d", d.ClientBefore, d.ClientAfter)
	}
	if len(d.Added) != 1 || !strings.HasPrefix(d.Added[0], "client: sync") {
		t.Errorf("Expected one added client sync, got %v", d.Added)
	}
	if len(d.Removed) != 1 || !strings.HasPrefix(d.Removed[0], "server: sync") {
		t.Errorf("Expected one removed server sync, got %v", d.Removed)
	}
	if len(d.Changed) != 2 {
		t.Errorf("Expected 2 changed actions, got %v", d.Changed)
	}
	if d.IsNoop() {
		t.Error("Expected delta not to be a no-op")
	}
}

func TestCompute_Noop(t *testing.T) {
	plan := domain.DirectoryPlan{
		ForServer: []domain.Action[domain.DirectoryVersion]{
			domain.NewAction(domain.ActionRemove, dir("/a", "h"), nil, nil),
		},
	}
	d := Compute("directories", "order", plan, plan.Clone(), 0)
	if !d.IsNoop() {
		t.Errorf("Expected no-op delta, got %s", d)
	}
	if got := Summary([]Delta{d}); got != "" {
		t.Errorf("Expected empty summary for no-ops, got %q", got)
	}
}

func TestCallbackTracer(t *testing.T) {
	var (
		mu     sync.Mutex
		events []Event
	)
	tracer := NewCallbackTracer(func(e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})

	tracer.PassStarted("files", "order", 3)
	tracer.PassFinished(Delta{Entity: "files", Pass: "order"})
	tracer.PassFailed("files", "copy-detect", errors.New("boom"))

	mu.Lock()
	defer mu.Unlock()

	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}
	if events[0].Type != EventStarted || events[0].Actions != 3 {
		t.Errorf("Expected started event with 3 actions, got %+v", events[0])
	}
	if events[1].Type != EventFinished || events[1].Passes != 1 {
		t.Errorf("Expected finished event as pass 1, got %+v", events[1])
	}
	if events[2].Type != EventFailed || events[2].Err == nil || events[2].Passes != 2 {
		t.Errorf("Expected failed event as pass 2, got %+v", events[2])
	}
}

func TestCallbackTracer_NilCallback(t *testing.T) {
	tracer := NewCallbackTracer(nil)
	tracer.PassStarted("files", "order", 1)
	tracer.PassFinished(Delta{})
	tracer.PassFailed("files", "order", nil)
}

func TestRecorderAndMulti(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	m := Multi{a, b, NullTracer{}, NewLogTracer(nil, true)}

	m.PassStarted("files", "order", 0)
	m.PassFinished(Delta{Entity: "files", Pass: "order", Added: []string{"client: x"}})
	m.PassFailed("files", "inline-metadata", errors.New("boom"))

	for _, r := range []*Recorder{a, b} {
		if len(r.Deltas()) != 1 {
			t.Errorf("Expected 1 delta, got %d", len(r.Deltas()))
		}
		if failed := r.Failed(); len(failed) != 1 || failed[0] != "files/inline-metadata" {
			t.Errorf("Expected files/inline-metadata failure, got %v", failed)
		}
	}
}

func TestFormatDelta(t *testing.T) {
	d := Delta{
		Added:   []string{"client: a"},
		Removed: []string{"server: b"},
		Changed: []string{"server: c => d"},
	}
	lines := FormatDelta(d)
	want := []string{"- server: b", "+ client: a", "~ server: c => d"}
	if len(lines) != len(want) {
		t.Fatalf("Expected %d lines, got %v", len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("Line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
}
