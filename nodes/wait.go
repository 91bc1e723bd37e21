package nodes

import (
	"time"

	"github.com/Tsinling0525/journeyflow/model"
)

func processWait(c *Context, n *model.Node, cfg model.WaitConfig, count uint64) {
	release := WaitRelease(c.Now, cfg)
	c.Ledger.AddWaiting(n.ID, count, release, model.OutcomeNone)
	c.logf(n.ID, "Holding %d users until %s", count, release.Format(time.DateTime))
	refreshWaiting(c, n)
}

// refreshWaiting recomputes the waiting stats of n from its live queue.
func refreshWaiting(c *Context, n *model.Node) {
	q := c.Ledger.Queue(n.ID)
	var total uint64
	var next time.Time
	var buckets []model.WaitingBucket
	index := map[string]int{}
	for _, e := range q {
		total += e.Count
		if next.IsZero() || e.ReleaseTime.Before(next) {
			next = e.ReleaseTime
		}
		if n.Kind != model.KindWait {
			continue
		}
		label := e.ReleaseTime.Format("Jan 2")
		if i, ok := index[label]; ok {
			buckets[i].Count += e.Count
			continue
		}
		index[label] = len(buckets)
		buckets = append(buckets, model.WaitingBucket{Label: label, Count: e.Count})
	}
	n.Stats.Waiting = total
	n.Stats.WaitingBreakdown = buckets
	n.Stats.NextReleaseTime = 0
	if !next.IsZero() {
		n.Stats.NextReleaseTime = next.UnixMilli()
	}
}
