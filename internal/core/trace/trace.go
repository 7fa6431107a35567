package trace

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Ning0612/drivesync/internal/domain"
	"github.com/Ning0612/drivesync/internal/logger"
)

// Tracer observes the optimizer pipeline pass by pass
type Tracer interface {
	// PassStarted is called before a pass runs
	PassStarted(entity, pass string, actions int)
	// PassFinished reports the difference between a pass's input and output
	PassFinished(delta Delta)
	// PassFailed reports a pass that panicked; its input plan was kept
	PassFailed(entity, pass string, err error)
}

// Delta describes what one pass changed in a plan
type Delta struct {
	Entity string
	Pass   string

	ServerBefore int
	ServerAfter  int
	ClientBefore int
	ClientAfter  int

	// Added, Removed and Changed hold "side: action" descriptions
	Added   []string
	Removed []string
	Changed []string

	Duration time.Duration
}

// IsNoop reports whether the pass left the plan untouched
func (d Delta) IsNoop() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// String renders a one-line summary, e.g. "directories/order server 3->2 client 2->2 (+1 -2 ~0)"
func (d Delta) String() string {
	return fmt.Sprintf("%s/%s server %d->%d client %d->%d (+%d -%d ~%d)",
		d.Entity, d.Pass, d.ServerBefore, d.ServerAfter, d.ClientBefore, d.ClientAfter,
		len(d.Added), len(d.Removed), len(d.Changed))
}

// Compute builds the delta between two plans by comparing action IDs
func Compute[V domain.Version](entity, pass string, before, after domain.Plan[V], elapsed time.Duration) Delta {
	d := Delta{
		Entity:       entity,
		Pass:         pass,
		ServerBefore: len(before.ForServer),
		ServerAfter:  len(after.ForServer),
		ClientBefore: len(before.ForClient),
		ClientAfter:  len(after.ForClient),
		Duration:     elapsed,
	}
	diffSide(&d, "server", before.ForServer, after.ForServer)
	diffSide(&d, "client", before.ForClient, after.ForClient)
	return d
}

func diffSide[V domain.Version](d *Delta, side string, before, after []domain.Action[V]) {
	old := make(map[string]domain.Action[V], len(before))
	for _, a := range before {
		old[a.ID.String()] = a
	}
	seen := make(map[string]bool, len(after))
	for _, a := range after {
		id := a.ID.String()
		seen[id] = true
		prev, ok := old[id]
		switch {
		case !ok:
			d.Added = append(d.Added, side+": "+a.String())
		case prev.String() != a.String() || prev.DependsOn != a.DependsOn:
			d.Changed = append(d.Changed, side+": "+prev.String()+" => "+a.String())
		}
	}
	for _, a := range before {
		if !seen[a.ID.String()] {
			d.Removed = append(d.Removed, side+": "+a.String())
		}
	}
}

// Event is one notification delivered to a Callback
type Event struct {
	Type   EventType
	Entity string
	Pass   string

	// Actions is the input size for EventStarted
	Actions int

	// Delta is set for EventFinished
	Delta Delta

	// Passes counts the passes finished (or failed) so far
	Passes int

	Err error
}

// EventType indicates the kind of event
type EventType int

const (
	EventStarted EventType = iota
	EventFinished
	EventFailed
)

// Callback is a function that receives tracing events
type Callback func(event Event)

// CallbackTracer implements Tracer with a callback function
type CallbackTracer struct {
	callback Callback
	mu       sync.Mutex
	passes   int
}

// NewCallbackTracer creates a new CallbackTracer
func NewCallbackTracer(callback Callback) *CallbackTracer {
	return &CallbackTracer{callback: callback}
}

// PassStarted implements Tracer
func (t *CallbackTracer) PassStarted(entity, pass string, actions int) {
	t.mu.Lock()
	event := Event{Type: EventStarted, Entity: entity, Pass: pass, Actions: actions, Passes: t.passes}
	callback := t.callback
	t.mu.Unlock()

	// Call callback outside lock to prevent deadlock
	if callback != nil {
		callback(event)
	}
}

// PassFinished implements Tracer
func (t *CallbackTracer) PassFinished(delta Delta) {
	t.mu.Lock()
	t.passes++
	event := Event{Type: EventFinished, Entity: delta.Entity, Pass: delta.Pass, Delta: delta, Passes: t.passes}
	callback := t.callback
	t.mu.Unlock()

	if callback != nil {
		callback(event)
	}
}

// PassFailed implements Tracer
func (t *CallbackTracer) PassFailed(entity, pass string, err error) {
	t.mu.Lock()
	t.passes++
	event := Event{Type: EventFailed, Entity: entity, Pass: pass, Err: err, Passes: t.passes}
	callback := t.callback
	t.mu.Unlock()

	if callback != nil {
		callback(event)
	}
}

// Recorder keeps every delta it sees, in order
type Recorder struct {
	mu     sync.Mutex
	deltas []Delta
	failed []string
}

// PassStarted implements Tracer
func (r *Recorder) PassStarted(entity, pass string, actions int) {}

// PassFinished implements Tracer
func (r *Recorder) PassFinished(delta Delta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deltas = append(r.deltas, delta)
}

// PassFailed implements Tracer
func (r *Recorder) PassFailed(entity, pass string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, entity+"/"+pass)
}

// Deltas returns a copy of the recorded deltas
func (r *Recorder) Deltas() []Delta {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Delta(nil), r.deltas...)
}

// Failed returns the "entity/pass" names of failed passes
func (r *Recorder) Failed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.failed...)
}

// LogTracer writes pass deltas to a logger
type LogTracer struct {
	log logger.Logger

	// Verbose also logs every added/removed/changed action at debug level
	Verbose bool
}

// NewLogTracer creates a tracer that logs through log
func NewLogTracer(log logger.Logger, verbose bool) *LogTracer {
	if log == nil {
		log = &logger.NullLogger{}
	}
	return &LogTracer{log: log, Verbose: verbose}
}

// PassStarted implements Tracer
func (t *LogTracer) PassStarted(entity, pass string, actions int) {
	t.log.Debug("pass started", "entity", entity, "pass", pass, "actions", actions)
}

// PassFinished implements Tracer
func (t *LogTracer) PassFinished(delta Delta) {
	if delta.IsNoop() {
		t.log.Debug("pass finished", "entity", delta.Entity, "pass", delta.Pass, "changes", 0)
		return
	}
	t.log.Info("pass finished",
		"entity", delta.Entity,
		"pass", delta.Pass,
		"server", fmt.Sprintf("%d->%d", delta.ServerBefore, delta.ServerAfter),
		"client", fmt.Sprintf("%d->%d", delta.ClientBefore, delta.ClientAfter),
		"duration", delta.Duration)
	if t.Verbose {
		for _, line := range FormatDelta(delta) {
			t.log.Debug(line, "entity", delta.Entity, "pass", delta.Pass)
		}
	}
}

// PassFailed implements Tracer
func (t *LogTracer) PassFailed(entity, pass string, err error) {
	t.log.Error("pass failed, keeping its input", "entity", entity, "pass", pass, "error", err)
}

// NullTracer is a no-op tracer
type NullTracer struct{}

func (NullTracer) PassStarted(entity, pass string, actions int) {}
func (NullTracer) PassFinished(delta Delta)                     {}
func (NullTracer) PassFailed(entity, pass string, err error)    {}

// Multi fans out every call to all tracers
type Multi []Tracer

func (m Multi) PassStarted(entity, pass string, actions int) {
	for _, t := range m {
		t.PassStarted(entity, pass, actions)
	}
}

func (m Multi) PassFinished(delta Delta) {
	for _, t := range m {
		t.PassFinished(delta)
	}
}

func (m Multi) PassFailed(entity, pass string, err error) {
	for _, t := range m {
		t.PassFailed(entity, pass, err)
	}
}

// FormatDelta renders the delta as "+ ", "- " and "~ " prefixed lines
func FormatDelta(d Delta) []string {
	lines := make([]string, 0, len(d.Added)+len(d.Removed)+len(d.Changed))
	for _, s := range d.Removed {
		lines = append(lines, "- "+s)
	}
	for _, s := range d.Added {
		lines = append(lines, "+ "+s)
	}
	for _, s := range d.Changed {
		lines = append(lines, "~ "+s)
	}
	return lines
}

// Summary joins the one-line summaries of several deltas, skipping no-ops
func Summary(deltas []Delta) string {
	var b strings.Builder
	for _, d := range deltas {
		if d.IsNoop() {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("; ")
		}
		b.WriteString(d.String())
	}
	return b.String()
}
