package plugin

import (
	"context"
	"time"

	"github.com/Tsinling0525/journeyflow/model"
)

// Deps are the outlets a running simulation reports through. Either may
// be nil.
type Deps struct {
	Bus     EventBus
	Archive RunArchive
}

type EventBus interface {
	Emit(ctx context.Context, event string, fields map[string]any) error
}

// RunInfo identifies one archived run.
type RunInfo struct {
	ID          string    `json:"id"`
	InstanceID  string    `json:"instanceId,omitempty"`
	JourneyID   model.ID  `json:"journeyId"`
	JourneyName string    `json:"journeyName,omitempty"`
	Seed        int64     `json:"seed"`
	VirtualFrom time.Time `json:"virtualFrom"`
	StartedAt   time.Time `json:"startedAt"`
	EndedAt     time.Time `json:"endedAt,omitempty"`
	Ticks       uint64    `json:"ticks"`
}

// RunArchive keeps a write-only history of runs for reporting. It is never
// read back to resume a simulation.
type RunArchive interface {
	BeginRun(ctx context.Context, run RunInfo) error
	RecordTick(ctx context.Context, runID string, tick uint64, now time.Time, j *model.Journey) error
	EndRun(ctx context.Context, runID string, ticks uint64) error
}
