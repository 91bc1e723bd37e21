package infra

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Tsinling0525/journeyflow/engine"
	"github.com/Tsinling0525/journeyflow/infra/archive"
	"github.com/Tsinling0525/journeyflow/infra/events"
	"github.com/Tsinling0525/journeyflow/model"
	"github.com/Tsinling0525/journeyflow/plugin"
)

func testJourney(id model.ID) *model.Journey {
	return &model.Journey{
		ID:   id,
		Name: "Test " + string(id),
		Nodes: []*model.Node{
			{ID: "in", Kind: model.KindEntry, Label: "In", Config: model.EntryConfig{}},
			{ID: "out", Kind: model.KindEnd, Label: "Out", Config: model.EndConfig{}},
		},
		Edges: []*model.Edge{{ID: "e", Source: "in", Target: "out"}},
	}
}

func TestInstanceManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	mem := archive.NewMem()
	m := NewInstanceManager(plugin.Deps{Bus: events.NullBus{}, Archive: mem}, InstanceOptions{
		Simulation: engine.Options{StartTime: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC), Seed: 1},
	})
	defer m.Close()

	a, err := m.Create(testJourney("a"), "")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	b, err := m.Create(testJourney("b"), "custom")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if a.ID == b.ID {
		t.Fatal("Expected distinct instance ids")
	}
	if a.Name != "Test a" || b.Name != "custom" {
		t.Errorf("Unexpected names %q %q", a.Name, b.Name)
	}
	if got := len(m.List()); got != 2 {
		t.Errorf("Expected 2 instances, got %d", got)
	}

	if _, err := a.Scheduler.Step(ctx, 2); err != nil {
		t.Fatalf("Step() error: %v", err)
	}
	st, err := a.Scheduler.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	last, ok := mem.Last(st.RunID)
	if !ok || last.Nodes[1].Stats.Processed != 100 {
		t.Errorf("Expected archived tick with 100 done, got %+v", last)
	}
	logs, err := m.Logs(a.ID)
	if err != nil || len(logs) == 0 {
		t.Errorf("Expected run log entries, got %v %v", logs, err)
	}

	if err := m.Remove(a.ID); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if _, ok := m.Get(a.ID); ok {
		t.Error("Expected removed instance to be gone")
	}
	if err := m.Remove(a.ID); !errors.Is(err, ErrInstanceNotFound) {
		t.Errorf("Expected ErrInstanceNotFound, got %v", err)
	}
	if _, err := a.Scheduler.Status(ctx); !errors.Is(err, engine.ErrSchedulerClosed) {
		t.Errorf("Expected closed scheduler after remove, got %v", err)
	}
	runs, _ := mem.Runs(ctx, 0)
	if len(runs) != 1 || runs[0].EndedAt.IsZero() {
		t.Errorf("Expected the run to be closed on remove, got %+v", runs)
	}
}

func TestLocalJourneys(t *testing.T) {
	ctx := context.Background()
	store := NewLocalJourneys(NewPaths(t.TempDir()))

	if list, err := store.List(ctx); err != nil || len(list) != 0 {
		t.Fatalf("Expected empty list, got %v %v", list, err)
	}
	for _, id := range []model.ID{"b", "a"} {
		if err := store.Save(ctx, testJourney(id)); err != nil {
			t.Fatalf("Save(%s) error: %v", id, err)
		}
	}
	list, err := store.List(ctx)
	if err != nil || len(list) != 2 || list[0].ID != "a" {
		t.Fatalf("Expected a,b, got %v %v", list, err)
	}
	j, err := store.Load(ctx, "b")
	if err != nil || j.Name != "Test b" {
		t.Errorf("Load() = %v, %v", j, err)
	}
	if err := store.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := store.Load(ctx, "b"); err == nil {
		t.Error("Expected error loading a deleted journey")
	}
	if err := store.Save(ctx, testJourney("..")); err == nil {
		t.Error("Expected invalid id to be rejected")
	}
}

func TestCreateFromPath(t *testing.T) {
	m := NewInstanceManager(plugin.Deps{}, InstanceOptions{})
	defer m.Close()
	if _, err := m.CreateFromPath(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Expected error for a missing file")
	}
}
