// Package nodes holds the per-kind transition rules of a journey tick.
//
// Every processor reads the tick-start active counts from the ledger and
// writes only into the ledger's next map or its waiting queues, so the order
// in which nodes are visited never changes the counts a tick produces. The
// next map starts empty every tick, so a node's active batch is consumed
// simply by not carrying it over.
package nodes

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/Tsinling0525/journeyflow/ledger"
	"github.com/Tsinling0525/journeyflow/model"
)

// Recorder receives the per-node diagnostic messages of a tick.
type Recorder interface {
	Record(node model.ID, msg string)
}

// Settings are the entry generator parameters.
type Settings struct {
	ScheduleBatch  uint64
	APIProbability float64
	APIBatchMax    int
}

func DefaultSettings() Settings {
	return Settings{ScheduleBatch: 100, APIProbability: 0.2, APIBatchMax: 20}
}

// Context is the state one tick pass runs against. Now is read once per
// tick and shared by every phase.
type Context struct {
	Graph    *model.Graph
	Ledger   *ledger.Ledger
	Tick     uint64
	Now      time.Time
	Rand     *rand.Rand
	Settings Settings
	Log      Recorder
}

func (c *Context) logf(id model.ID, format string, a ...any) {
	if c.Log == nil {
		return
	}
	c.Log.Record(id, fmt.Sprintf(format, a...))
}

// transfer moves n users along e into the target's next-tick count.
func (c *Context) transfer(e *model.Edge, n uint64) {
	if n == 0 {
		return
	}
	target, ok := c.Graph.Node(e.Target)
	if !ok {
		c.discard(e.Source, n, fmt.Sprintf("edge %s points at unknown node %s", e.ID, e.Target))
		return
	}
	c.Ledger.Add(target.ID, n)
	target.Stats.Processed += n
	RecordEdgeFlow(c.Graph, e, n)
}

// route sends n users down the outgoing edge of src matching o. Outcome
// classes without a wired edge are discarded onto the source's Dropped stat.
func (c *Context) route(src *model.Node, o model.Outcome, n uint64) {
	if n == 0 {
		return
	}
	e, ok := c.Graph.EdgeFor(src.ID, o)
	if !ok {
		name := string(o)
		if o.IsDefault() {
			name = string(model.OutcomeDefault)
		}
		c.discard(src.ID, n, "no "+name+" edge")
		return
	}
	c.transfer(e, n)
}

// broadcast sends the full count to every outgoing edge.
func (c *Context) broadcast(src *model.Node, n uint64) {
	if n == 0 {
		return
	}
	out := c.Graph.Outgoing(src.ID)
	if len(out) == 0 {
		c.discard(src.ID, n, "no outgoing edge")
		return
	}
	for _, e := range out {
		c.transfer(e, n)
	}
}

func (c *Context) discard(id model.ID, n uint64, reason string) {
	if node, ok := c.Graph.Node(id); ok {
		node.Stats.Dropped += n
	}
	c.logf(id, "Discarded %d users: %s", n, reason)
}
