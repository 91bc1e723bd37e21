package nodes

import (
	"math/rand"
	"testing"
	"time"

	"github.com/Tsinling0525/journeyflow/ledger"
	"github.com/Tsinling0525/journeyflow/model"
)

type memRecorder struct{ lines []string }

func (r *memRecorder) Record(node model.ID, msg string) {
	r.lines = append(r.lines, string(node)+": "+msg)
}

func newContext(t *testing.T, j *model.Journey, now time.Time) *Context {
	t.Helper()
	return &Context{
		Graph:    model.NewGraph(j),
		Ledger:   ledger.New(),
		Tick:     1,
		Now:      now,
		Rand:     rand.New(rand.NewSource(42)),
		Settings: DefaultSettings(),
		Log:      &memRecorder{},
	}
}

func node(t *testing.T, c *Context, id model.ID) *model.Node {
	t.Helper()
	n, ok := c.Graph.Node(id)
	if !ok {
		t.Fatalf("node %s not found", id)
	}
	return n
}

func edge(t *testing.T, c *Context, id model.ID) *model.Edge {
	t.Helper()
	for _, e := range c.Graph.Journey.Edges {
		if e.ID == id {
			return e
		}
	}
	t.Fatalf("edge %s not found", id)
	return nil
}

func f64(v float64) *float64 { return &v }

func intp(v int) *int { return &v }
