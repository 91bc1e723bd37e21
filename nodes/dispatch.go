package nodes

import "github.com/Tsinling0525/journeyflow/model"

// Process consumes the count users active on n at tick start.
func Process(c *Context, n *model.Node, count uint64) {
	if count == 0 {
		return
	}
	switch cfg := n.Config.(type) {
	case model.EmailConfig:
		processEmail(c, n, cfg, count)
	case model.WaitConfig:
		processWait(c, n, cfg, count)
	case model.SplitConfig:
		processSplit(c, n, count)
	case model.EndConfig:
		// arrivals were counted on transfer
	case model.EntryConfig:
		c.broadcast(n, count)
	default:
		c.broadcast(n, count)
	}
}

// Release forwards every batch on n's queue that is due at c.Now. Wait
// batches follow every outgoing edge; Email batches follow their outcome.
func Release(c *Context, n *model.Node) uint64 {
	due := c.Ledger.Release(n.ID, c.Now)
	if len(due) == 0 {
		return 0
	}
	var total uint64
	for _, e := range due {
		total += e.Count
		outcome := e.Outcome
		if outcome == model.OutcomeNone {
			outcome = model.OutcomeDefault
		}
		c.logf(n.ID, "Released %d users (Outcome: %s)", e.Count, outcome)
		switch n.Config.(type) {
		case model.WaitConfig:
			c.broadcast(n, e.Count)
		default:
			c.route(n, e.Outcome, e.Count)
		}
	}
	refreshWaiting(c, n)
	return total
}
