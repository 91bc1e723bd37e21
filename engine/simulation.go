package engine

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/Tsinling0525/journeyflow/ledger"
	"github.com/Tsinling0525/journeyflow/logging"
	"github.com/Tsinling0525/journeyflow/model"
	"github.com/Tsinling0525/journeyflow/nodes"
)

var ErrNotRunning = errors.New("simulation is not running")

const DefaultTickDuration = time.Hour

// Options configures a Simulation. Zero values fall back to defaults.
type Options struct {
	TickDuration time.Duration
	// StartTime is the virtual time at tick 0; zero means wall-clock now
	// at each start.
	StartTime time.Time
	// Seed fixes the random source; zero draws a fresh seed per start.
	Seed          int64
	Settings      nodes.Settings
	MaxLogEntries int
	Logger        *slog.Logger
}

func (o Options) normalized() Options {
	q := o
	if q.TickDuration <= 0 {
		q.TickDuration = DefaultTickDuration
	}
	def := nodes.DefaultSettings()
	if q.Settings == (nodes.Settings{}) {
		q.Settings = def
	}
	if q.Settings.ScheduleBatch == 0 {
		q.Settings.ScheduleBatch = def.ScheduleBatch
	}
	if q.Settings.APIBatchMax <= 0 {
		q.Settings.APIBatchMax = def.APIBatchMax
	}
	if q.MaxLogEntries < 0 {
		q.MaxLogEntries = 0
	}
	if q.Logger == nil {
		q.Logger = logging.Discard()
	}
	return q
}

// TickSummary describes what one tick pass did.
type TickSummary struct {
	Tick      uint64    `json:"tick"`
	Now       time.Time `json:"now"`
	Released  uint64    `json:"released"`
	Generated uint64    `json:"generated"`
	Active    uint64    `json:"active"`
	Waiting   uint64    `json:"waiting"`
}

// Snapshot is a copy of the simulation state safe to hand to observers.
type Snapshot struct {
	Running      bool                `json:"running"`
	Tick         uint64              `json:"tick"`
	Now          time.Time           `json:"now"`
	Seed         int64               `json:"seed"`
	TotalActive  uint64              `json:"totalActive"`
	TotalWaiting uint64              `json:"totalWaiting"`
	Active       map[model.ID]uint64 `json:"active"`
	Journey      *model.Journey      `json:"-"`
}

// Simulation runs tick passes over one journey. It is not safe for
// concurrent use; Scheduler serializes access to it.
type Simulation struct {
	opts    Options
	journey *model.Journey
	graph   *model.Graph
	order   []*model.Node
	ledger  *ledger.Ledger
	clock   Clock
	rng     *rand.Rand
	seed    int64
	log     *RunLog
	running bool
}

// NewSimulation takes a private copy of j; stats are written to the copy.
func NewSimulation(j *model.Journey, opts Options) *Simulation {
	opts = opts.normalized()
	journey := j.Clone()
	graph := model.NewGraph(journey)
	return &Simulation{
		opts:    opts,
		journey: journey,
		graph:   graph,
		order:   processOrder(graph),
		ledger:  ledger.New(),
		log:     NewRunLog(opts.MaxLogEntries, opts.Logger),
	}
}

func (s *Simulation) Running() bool { return s.running }

func (s *Simulation) Clock() Clock { return s.clock }

func (s *Simulation) Seed() int64 { return s.seed }

func (s *Simulation) Log() *RunLog { return s.log }

// Start validates the journey and begins a fresh run. An invalid journey
// leaves every stat untouched and returns a *ValidationError. Starting a
// running simulation is a no-op.
func (s *Simulation) Start() error {
	if s.running {
		return nil
	}
	res := Validate(s.journey)
	if !res.IsValid {
		return &ValidationError{Errors: res.Errors}
	}

	s.journey.ResetStats()
	s.ledger.Reset()
	s.log.Reset()

	start := s.opts.StartTime
	if start.IsZero() {
		start = time.Now()
	}
	s.clock = Clock{Now: start}

	s.seed = s.opts.Seed
	if s.seed == 0 {
		s.seed = randomSeed()
	}
	s.rng = rand.New(rand.NewSource(s.seed))
	s.running = true

	s.opts.Logger.Info("simulation started",
		"journey", s.journey.ID, "nodes", len(s.journey.Nodes), "start", start.Format(time.RFC3339), "seed", s.seed)
	return nil
}

// Stop ends the run. Populations, queues, the clock and the log are wiped;
// the stats of the last tick stay readable until the next Start.
func (s *Simulation) Stop() {
	if !s.running {
		return
	}
	s.opts.Logger.Info("simulation stopped", "journey", s.journey.ID, "tick", s.clock.Tick)
	s.ledger.Reset()
	s.log.Reset()
	s.clock = Clock{}
	s.running = false
}

// Tick runs one full pass: advance the clock, release due batches, fire
// entry triggers, process the tick-start populations, refresh completion
// rates and commit the next populations.
func (s *Simulation) Tick() (TickSummary, error) {
	if !s.running {
		return TickSummary{}, ErrNotRunning
	}
	s.clock.Advance(s.opts.TickDuration)
	s.log.setTick(s.clock.Tick)

	c := &nodes.Context{
		Graph:    s.graph,
		Ledger:   s.ledger,
		Tick:     s.clock.Tick,
		Now:      s.clock.Now,
		Rand:     s.rng,
		Settings: s.opts.Settings,
		Log:      s.log,
	}
	active := s.ledger.ActiveCounts()
	sum := TickSummary{Tick: s.clock.Tick, Now: s.clock.Now}

	for _, n := range s.order {
		sum.Released += nodes.Release(c, n)
	}
	for _, n := range s.order {
		if n.Kind == model.KindEntry {
			sum.Generated += nodes.Generate(c, n)
		}
	}
	for _, n := range s.order {
		if count := active[n.ID]; count > 0 {
			nodes.Process(c, n, count)
		}
	}
	nodes.UpdateCompletionRates(s.graph)
	s.ledger.Commit()

	sum.Active = s.ledger.TotalActive()
	sum.Waiting = s.ledger.TotalWaiting()
	s.opts.Logger.Debug("tick completed", "tick", sum.Tick, "now", sum.Now.Format(time.DateTime),
		"released", sum.Released, "generated", sum.Generated, "active", sum.Active, "waiting", sum.Waiting)
	return sum, nil
}

// Step runs n tick passes back to back and returns the last summary.
func (s *Simulation) Step(n int) (TickSummary, error) {
	var sum TickSummary
	for i := 0; i < n; i++ {
		var err error
		if sum, err = s.Tick(); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func (s *Simulation) Snapshot() Snapshot {
	return Snapshot{
		Running:      s.running,
		Tick:         s.clock.Tick,
		Now:          s.clock.Now,
		Seed:         s.seed,
		TotalActive:  s.ledger.TotalActive(),
		TotalWaiting: s.ledger.TotalWaiting(),
		Active:       s.ledger.ActiveCounts(),
		Journey:      s.journey.Clone(),
	}
}

func randomSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]) &^ (1 << 63))
}
