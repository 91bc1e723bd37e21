package archive

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Tsinling0525/journeyflow/model"
	"github.com/Tsinling0525/journeyflow/plugin"
)

var ErrRunNotFound = errors.New("run not found")

// Mem is an in-memory archive used by tests and the HTTP server when no
// archive file is configured. It keeps only the latest tick of each run.
type Mem struct {
	mu    sync.RWMutex
	runs  map[string]plugin.RunInfo
	order []string
	last  map[string]*model.Journey
}

func NewMem() *Mem {
	return &Mem{runs: map[string]plugin.RunInfo{}, last: map[string]*model.Journey{}}
}

func (m *Mem) BeginRun(_ context.Context, run plugin.RunInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.ID]; !ok {
		m.order = append(m.order, run.ID)
	}
	m.runs[run.ID] = run
	return nil
}

func (m *Mem) RecordTick(_ context.Context, runID string, tick uint64, _ time.Time, j *model.Journey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return ErrRunNotFound
	}
	run.Ticks = tick
	m.runs[runID] = run
	m.last[runID] = j.Clone()
	return nil
}

func (m *Mem) EndRun(_ context.Context, runID string, ticks uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return ErrRunNotFound
	}
	run.Ticks = ticks
	run.EndedAt = time.Now().UTC()
	m.runs[runID] = run
	return nil
}

// Runs lists runs, newest first.
func (m *Mem) Runs(_ context.Context, limit int) ([]plugin.RunInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []plugin.RunInfo
	for i := len(m.order) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, m.runs[m.order[i]])
	}
	return out, nil
}

// Last returns a copy of the journey stats at the latest recorded tick.
func (m *Mem) Last(runID string) (*model.Journey, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.last[runID]
	if !ok {
		return nil, false
	}
	return j.Clone(), true
}

var _ plugin.RunArchive = (*Mem)(nil)
