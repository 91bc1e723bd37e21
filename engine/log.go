package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Tsinling0525/journeyflow/logging"
	"github.com/Tsinling0525/journeyflow/model"
)

// LogEntry is one diagnostic line produced while processing a tick.
type LogEntry struct {
	Tick    uint64   `json:"tick"`
	NodeID  model.ID `json:"nodeId"`
	Message string   `json:"message"`
}

// RunLog is the append-only log of a simulation run. When max is positive
// the oldest entries are trimmed once the log grows past it.
type RunLog struct {
	mu      sync.Mutex
	entries []LogEntry
	max     int
	tick    uint64
	logger  *slog.Logger
}

func NewRunLog(max int, logger *slog.Logger) *RunLog {
	return &RunLog{max: max, logger: logger}
}

func (l *RunLog) setTick(tick uint64) {
	l.mu.Lock()
	l.tick = tick
	l.mu.Unlock()
}

// Record implements nodes.Recorder.
func (l *RunLog) Record(node model.ID, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.entries == nil {
		l.entries = make([]LogEntry, 0, 256)
	}
	l.entries = append(l.entries, LogEntry{Tick: l.tick, NodeID: node, Message: msg})
	if l.max > 0 && len(l.entries) > l.max {
		// trim oldest
		l.entries = l.entries[len(l.entries)-l.max:]
	}
	if l.logger != nil {
		l.logger.Log(context.Background(), logging.LevelTrace, msg, "tick", l.tick, "node", node)
	}
}

// Entries returns a copy of the log in append order.
func (l *RunLog) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *RunLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *RunLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.tick = 0
}
