package nodes

import (
	"math"
	"time"

	"github.com/Tsinling0525/journeyflow/model"
)

func processEmail(c *Context, n *model.Node, cfg model.EmailConfig, count uint64) {
	if cfg.Scheduled() {
		release := ScheduledSend(c.Now, cfg.SendTimeOrDefault())
		c.Ledger.AddWaiting(n.ID, count, release, model.OutcomeNone)
		c.logf(n.ID, "Holding %d users until %s", count, cfg.SendTimeOrDefault())
		refreshWaiting(c, n)
		return
	}
	branchEmail(c, n, cfg, count)
}

// branchEmail splits off the bounce fraction to the drop edge and routes
// the rest according to the branch type.
func branchEmail(c *Context, n *model.Node, cfg model.EmailConfig, count uint64) {
	n.Stats.OpenRate = cfg.OpenRate()
	n.Stats.ClickRate = cfg.ClickRate()

	bounce, pool := Portion(count, cfg.FixedDropRate())
	c.route(n, model.OutcomeDrop, bounce)
	if pool == 0 {
		return
	}

	var rate float64
	var hit model.Outcome
	switch cfg.Branch() {
	case model.BranchOpen:
		rate, hit = cfg.OpenRate(), model.OutcomeOpen
	case model.BranchClick:
		rate, hit = cfg.ClickRate(), model.OutcomeClick
	default:
		c.route(n, model.OutcomeDefault, pool)
		return
	}

	timeout := cfg.TimeoutDuration()
	hits, rest := Portion(pool, rate)
	if hits > 0 {
		delay := time.Duration(c.Rand.Int63n(int64(timeout) + 1))
		c.Ledger.AddWaiting(n.ID, hits, c.Now.Add(delay), hit)
	}
	c.Ledger.AddWaiting(n.ID, rest, c.Now.Add(timeout), model.OutcomeDefault)
	c.logf(n.ID, "Waiting: %d to %s, %d to else (timeout)", hits, hit, rest)
	refreshWaiting(c, n)
}

// Portion splits count into round(count*pct/100) and the exact remainder.
func Portion(count uint64, pct float64) (part, rest uint64) {
	part = uint64(math.Round(float64(count) * pct / 100))
	if part > count {
		part = count
	}
	return part, count - part
}
