package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Tsinling0525/journeyflow/model"
	"github.com/Tsinling0525/journeyflow/plugin"
)

// 2024-03-04 is a Monday.
var monday10 = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func f64(v float64) *float64 { return &v }

func intp(v int) *int { return &v }

func waitJourney() *model.Journey {
	return &model.Journey{
		ID:   "rollover",
		Name: "Rollover",
		Nodes: []*model.Node{
			{ID: "in", Kind: model.KindEntry, Label: "Signup", Config: model.EntryConfig{}},
			{ID: "w", Kind: model.KindWait, Label: "Next morning", Config: model.WaitConfig{WaitDays: intp(1), WaitUntilTime: "09:00"}},
			{ID: "done", Kind: model.KindEnd, Label: "Done", Config: model.EndConfig{}},
		},
		Edges: []*model.Edge{
			{ID: "e1", Source: "in", Target: "w"},
			{ID: "e2", Source: "w", Target: "done"},
		},
	}
}

func emailJourney() *model.Journey {
	return &model.Journey{
		ID: "promo",
		Nodes: []*model.Node{
			{ID: "in", Kind: model.KindEntry, Label: "Segment", Config: model.EntryConfig{}},
			{ID: "mail", Kind: model.KindEmail, Label: "Promo", Config: model.EmailConfig{
				BranchType: model.BranchOpen,
				Timeout:    f64(24),
				Simulation: model.EmailSimulation{OpenRate: f64(30), FixedDropRate: f64(5)},
			}},
			{ID: "opened", Kind: model.KindEnd, Label: "Opened", Config: model.EndConfig{IsGoal: true}},
			{ID: "ignored", Kind: model.KindEnd, Label: "Ignored", Config: model.EndConfig{}},
			{ID: "bounced", Kind: model.KindEnd, Label: "Bounced", Config: model.EndConfig{}},
		},
		Edges: []*model.Edge{
			{ID: "e1", Source: "in", Target: "mail"},
			{ID: "eo", Source: "mail", Target: "opened", Outcome: model.OutcomeOpen},
			{ID: "ed", Source: "mail", Target: "ignored", Outcome: model.OutcomeDefault},
			{ID: "eb", Source: "mail", Target: "bounced", Outcome: model.OutcomeDrop},
		},
	}
}

func findNode(t *testing.T, j *model.Journey, id model.ID) *model.Node {
	t.Helper()
	for _, n := range j.Nodes {
		if n.ID == id {
			return n
		}
	}
	t.Fatalf("node %s not found", id)
	return nil
}

func findEdge(t *testing.T, j *model.Journey, id model.ID) *model.Edge {
	t.Helper()
	for _, e := range j.Edges {
		if e.ID == id {
			return e
		}
	}
	t.Fatalf("edge %s not found", id)
	return nil
}

type recordedEvent struct {
	name   string
	fields map[string]any
}

type fakeBus struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *fakeBus) Emit(_ context.Context, event string, fields map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{name: event, fields: fields})
	return nil
}

func (b *fakeBus) count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.name == name {
			n++
		}
	}
	return n
}

type fakeArchive struct {
	mu    sync.Mutex
	runs  []plugin.RunInfo
	ticks map[string]int
	ended map[string]uint64
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{ticks: map[string]int{}, ended: map[string]uint64{}}
}

func (a *fakeArchive) BeginRun(_ context.Context, run plugin.RunInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runs = append(a.runs, run)
	return nil
}

func (a *fakeArchive) RecordTick(_ context.Context, runID string, _ uint64, _ time.Time, _ *model.Journey) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ticks[runID]++
	return nil
}

func (a *fakeArchive) EndRun(_ context.Context, runID string, ticks uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ended[runID] = ticks
	return nil
}
