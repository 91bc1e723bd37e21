package infra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Tsinling0525/journeyflow/engine"
	"github.com/Tsinling0525/journeyflow/format/journey"
	"github.com/Tsinling0525/journeyflow/idgen"
	"github.com/Tsinling0525/journeyflow/logging"
	"github.com/Tsinling0525/journeyflow/model"
	"github.com/Tsinling0525/journeyflow/plugin"
)

var ErrInstanceNotFound = errors.New("instance not found")

// Instance is one hosted simulation with its own scheduler goroutine.
type Instance struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	JourneyID   model.ID  `json:"journeyId"`
	JourneyPath string    `json:"journeyPath,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`

	Scheduler *engine.Scheduler `json:"-"`

	cancel context.CancelFunc
	done   chan struct{}
}

// InstanceOptions are applied to every instance a manager creates.
type InstanceOptions struct {
	Simulation engine.Options
	Scheduler  engine.SchedulerOptions
}

type InstanceManager struct {
	mu    sync.Mutex
	items map[string]*Instance
	deps  plugin.Deps
	opts  InstanceOptions
	log   *slog.Logger
	newID func() (string, error)
}

// NewInstanceManager hosts simulations reporting through deps. Nil deps
// fields are left unset; the scheduler skips them.
func NewInstanceManager(deps plugin.Deps, opts InstanceOptions) *InstanceManager {
	log := opts.Simulation.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &InstanceManager{
		items: make(map[string]*Instance),
		deps:  deps,
		opts:  opts,
		log:   log,
		newID: idgen.Instance,
	}
}

func (m *InstanceManager) List() []*Instance {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Instance, 0, len(m.items))
	for _, v := range m.items {
		out = append(out, v)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].ID < out[b].ID
		}
		return out[a].CreatedAt.Before(out[b].CreatedAt)
	})
	return out
}

func (m *InstanceManager) Get(id string) (*Instance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[id]
	return v, ok
}

// Create hosts a new simulation of j. The instance starts stopped; its
// scheduler goroutine runs until Remove or Close.
func (m *InstanceManager) Create(j *model.Journey, name string) (*Instance, error) {
	id, err := m.newID()
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = j.Name
	}
	if name == "" {
		name = string(j.ID)
	}

	simOpts := m.opts.Simulation
	simOpts.Logger = m.log.With("instance", id)
	schedOpts := m.opts.Scheduler
	schedOpts.InstanceID = id
	schedOpts.Deps = m.deps
	schedOpts.Logger = simOpts.Logger

	inst := &Instance{
		ID:        id,
		Name:      name,
		JourneyID: j.ID,
		CreatedAt: time.Now(),
		Scheduler: engine.NewScheduler(engine.NewSimulation(j, simOpts), schedOpts),
		done:      make(chan struct{}),
	}
	ctx, cancel := context.WithCancel(context.Background())
	inst.cancel = cancel
	go func() {
		defer close(inst.done)
		m.log.Info("instance started", "instance", inst.ID, "journey", inst.JourneyID)
		_ = inst.Scheduler.Run(ctx)
		m.log.Info("instance removed", "instance", inst.ID)
	}()

	m.mu.Lock()
	m.items[inst.ID] = inst
	m.mu.Unlock()
	return inst, nil
}

// CreateFromPath loads a journey document and hosts it.
func (m *InstanceManager) CreateFromPath(path string) (*Instance, error) {
	j, err := journey.ReadFile(path)
	if err != nil {
		return nil, err
	}
	inst, err := m.Create(j, "")
	if err != nil {
		return nil, err
	}
	inst.JourneyPath = path
	return inst, nil
}

// Remove stops the instance's scheduler and forgets it.
func (m *InstanceManager) Remove(id string) error {
	m.mu.Lock()
	inst, ok := m.items[id]
	delete(m.items, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
	}
	inst.cancel()
	<-inst.done
	return nil
}

// Close removes every instance.
func (m *InstanceManager) Close() {
	for _, inst := range m.List() {
		_ = m.Remove(inst.ID)
	}
}

// Logs returns the run log of an instance.
func (m *InstanceManager) Logs(id string) ([]engine.LogEntry, error) {
	inst, ok := m.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
	}
	return inst.Scheduler.Logs(), nil
}
