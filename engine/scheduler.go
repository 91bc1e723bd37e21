package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Tsinling0525/journeyflow/idgen"
	"github.com/Tsinling0525/journeyflow/logging"
	"github.com/Tsinling0525/journeyflow/plugin"
)

type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

const (
	DefaultBaseInterval = time.Second
	DefaultMinInterval  = 10 * time.Millisecond
)

// SpeedPresets are the multipliers offered by the control surfaces.
var SpeedPresets = []float64{1, 2, 5, 100}

var ErrSchedulerClosed = errors.New("scheduler is closed")

// Event names published on the bus.
const (
	EventStarted       = "simulation.started"
	EventResumed       = "simulation.resumed"
	EventPaused        = "simulation.paused"
	EventStopped       = "simulation.stopped"
	EventTickCompleted = "tick.completed"
)

type SchedulerOptions struct {
	BaseInterval time.Duration
	MinInterval  time.Duration
	Speed        float64
	// InstanceID tags published events and archived runs.
	InstanceID string
	Deps       plugin.Deps
	Logger     *slog.Logger
}

func (o SchedulerOptions) normalized() SchedulerOptions {
	q := o
	if q.BaseInterval <= 0 {
		q.BaseInterval = DefaultBaseInterval
	}
	if q.MinInterval <= 0 {
		q.MinInterval = DefaultMinInterval
	}
	if q.Speed <= 0 {
		q.Speed = 1
	}
	if q.Logger == nil {
		q.Logger = logging.Discard()
	}
	return q
}

// IntervalFor is the wall-clock delay between ticks at speed m.
func IntervalFor(base, min time.Duration, m float64) time.Duration {
	d := time.Duration(float64(base) / m)
	if d < min {
		d = min
	}
	return d
}

// Status is what observers see of a scheduler.
type Status struct {
	State      State   `json:"state"`
	Speed      float64 `json:"speed"`
	IntervalMS int64   `json:"intervalMs"`
	RunID      string  `json:"runId,omitempty"`
	Snapshot
}

// Scheduler drives a Simulation in real time. Run owns the simulation;
// every control call is a closure executed on the Run goroutine between
// ticks, and the timer is only re-armed once a tick has finished.
type Scheduler struct {
	sim  *Simulation
	opts SchedulerOptions

	cmds   chan func()
	closed chan struct{}

	// owned by the Run goroutine
	ctx      context.Context
	state    State
	speed    float64
	interval time.Duration
	runID    string
	timer    *time.Timer
	armed    bool
}

func NewScheduler(sim *Simulation, opts SchedulerOptions) *Scheduler {
	opts = opts.normalized()
	return &Scheduler{
		sim:      sim,
		opts:     opts,
		cmds:     make(chan func()),
		closed:   make(chan struct{}),
		state:    StateStopped,
		speed:    opts.Speed,
		interval: IntervalFor(opts.BaseInterval, opts.MinInterval, opts.Speed),
	}
}

// Run processes control calls and timer ticks until ctx is done. A run in
// progress is closed in the archive on the way out.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.timer = time.NewTimer(s.interval)
	s.timer.Stop()
	defer close(s.closed)
	defer s.timer.Stop()

	for {
		var tc <-chan time.Time
		if s.armed {
			tc = s.timer.C
		}
		select {
		case <-ctx.Done():
			s.ctx = context.WithoutCancel(ctx)
			if s.state != StateStopped {
				s.stop()
			}
			return ctx.Err()
		case fn := <-s.cmds:
			fn()
			s.rearm()
		case <-tc:
			s.armed = false
			if _, err := s.tick(); err != nil {
				s.opts.Logger.Error("tick failed", "instance", s.opts.InstanceID, "err", err)
			}
			s.rearm()
		}
	}
}

func (s *Scheduler) rearm() {
	if s.state != StateRunning {
		if s.armed {
			s.timer.Stop()
			s.armed = false
		}
		return
	}
	if !s.armed {
		s.timer.Reset(s.interval)
		s.armed = true
	}
}

func (s *Scheduler) call(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	select {
	case s.cmds <- func() { errc <- fn() }:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.closed:
		return ErrSchedulerClosed
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start begins a fresh run when stopped, or resumes a paused one.
func (s *Scheduler) Start(ctx context.Context) error {
	return s.call(ctx, s.start)
}

func (s *Scheduler) start() error {
	switch s.state {
	case StateRunning:
		return nil
	case StatePaused:
		s.state = StateRunning
		s.emit(EventResumed, nil)
		return nil
	}
	if err := s.sim.Start(); err != nil {
		return err
	}
	s.state = StateRunning
	s.beginRun()
	s.emit(EventStarted, map[string]any{"seed": s.sim.Seed()})
	return nil
}

// Pause suspends automatic ticking. Pausing a stopped scheduler fails with
// ErrNotRunning.
func (s *Scheduler) Pause(ctx context.Context) error {
	return s.call(ctx, func() error {
		switch s.state {
		case StateStopped:
			return ErrNotRunning
		case StateRunning:
			s.state = StatePaused
			s.emit(EventPaused, nil)
		}
		return nil
	})
}

// Stop ends the run and wipes the population. Stats stay readable.
func (s *Scheduler) Stop(ctx context.Context) error {
	return s.call(ctx, func() error {
		if s.state != StateStopped {
			s.stop()
		}
		return nil
	})
}

func (s *Scheduler) stop() {
	ticks := s.sim.Clock().Tick
	s.sim.Stop()
	s.state = StateStopped
	s.endRun(ticks)
	s.emit(EventStopped, map[string]any{"ticks": ticks})
}

// SetSpeed changes the tick rate to BaseInterval/m, floored at MinInterval.
func (s *Scheduler) SetSpeed(ctx context.Context, m float64) error {
	if m <= 0 {
		return fmt.Errorf("speed must be positive, got %v", m)
	}
	return s.call(ctx, func() error {
		s.speed = m
		s.interval = IntervalFor(s.opts.BaseInterval, s.opts.MinInterval, m)
		if s.armed {
			s.timer.Reset(s.interval)
		}
		return nil
	})
}

// Step runs n ticks back to back. A stopped scheduler is started first and
// left paused, so repeated steps advance a run by hand.
func (s *Scheduler) Step(ctx context.Context, n int) (TickSummary, error) {
	if n < 1 {
		return TickSummary{}, fmt.Errorf("step count must be at least 1, got %d", n)
	}
	var sum TickSummary
	err := s.call(ctx, func() error {
		if s.state == StateStopped {
			if err := s.start(); err != nil {
				return err
			}
			s.state = StatePaused
		}
		for i := 0; i < n; i++ {
			var err error
			if sum, err = s.tick(); err != nil {
				return err
			}
		}
		return nil
	})
	return sum, err
}

// Status returns a copy of the scheduler and simulation state.
func (s *Scheduler) Status(ctx context.Context) (Status, error) {
	var st Status
	err := s.call(ctx, func() error {
		st = Status{
			State:      s.state,
			Speed:      s.speed,
			IntervalMS: s.interval.Milliseconds(),
			RunID:      s.runID,
			Snapshot:   s.sim.Snapshot(),
		}
		return nil
	})
	return st, err
}

// Logs returns the current run log.
func (s *Scheduler) Logs() []LogEntry { return s.sim.Log().Entries() }

func (s *Scheduler) tick() (TickSummary, error) {
	sum, err := s.sim.Tick()
	if err != nil {
		return sum, err
	}
	s.emit(EventTickCompleted, map[string]any{
		"tick":      sum.Tick,
		"now":       sum.Now,
		"released":  sum.Released,
		"generated": sum.Generated,
		"active":    sum.Active,
		"waiting":   sum.Waiting,
	})
	if a := s.opts.Deps.Archive; a != nil && s.runID != "" {
		if err := a.RecordTick(s.ctx, s.runID, sum.Tick, sum.Now, s.sim.journey); err != nil {
			s.opts.Logger.Warn("archive tick failed", "run", s.runID, "tick", sum.Tick, "err", err)
		}
	}
	return sum, nil
}

func (s *Scheduler) beginRun() {
	s.runID = ""
	a := s.opts.Deps.Archive
	if a == nil {
		return
	}
	id, err := idgen.Run()
	if err != nil {
		s.opts.Logger.Warn("run id", "err", err)
		return
	}
	run := plugin.RunInfo{
		ID:          id,
		InstanceID:  s.opts.InstanceID,
		JourneyID:   s.sim.journey.ID,
		JourneyName: s.sim.journey.Name,
		Seed:        s.sim.Seed(),
		VirtualFrom: s.sim.Clock().Now,
		StartedAt:   time.Now().UTC(),
	}
	if err := a.BeginRun(s.ctx, run); err != nil {
		s.opts.Logger.Warn("archive begin failed", "run", id, "err", err)
		return
	}
	s.runID = id
}

func (s *Scheduler) endRun(ticks uint64) {
	a := s.opts.Deps.Archive
	if a == nil || s.runID == "" {
		return
	}
	if err := a.EndRun(s.ctx, s.runID, ticks); err != nil {
		s.opts.Logger.Warn("archive end failed", "run", s.runID, "err", err)
	}
}

func (s *Scheduler) emit(event string, fields map[string]any) {
	bus := s.opts.Deps.Bus
	if bus == nil {
		return
	}
	if fields == nil {
		fields = map[string]any{}
	}
	fields["instance"] = s.opts.InstanceID
	if s.runID != "" {
		fields["run"] = s.runID
	}
	if err := bus.Emit(s.ctx, event, fields); err != nil {
		s.opts.Logger.Warn("emit failed", "event", event, "err", err)
	}
}
