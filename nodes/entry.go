package nodes

import "github.com/Tsinling0525/journeyflow/model"

// Generate runs an Entry node's trigger for the current tick. Generated
// users land in the node's next-tick count.
func Generate(c *Context, n *model.Node) uint64 {
	cfg, ok := n.Config.(model.EntryConfig)
	if !ok {
		return 0
	}
	var created uint64
	var source string
	switch cfg.Trigger() {
	case model.TriggerAPI:
		if c.Rand.Float64() >= c.Settings.APIProbability {
			return 0
		}
		max := c.Settings.APIBatchMax
		if max < 1 {
			max = 1
		}
		created = uint64(c.Rand.Intn(max) + 1)
		source = "API Trigger"
	default:
		if c.Tick != 1 {
			return 0
		}
		created = c.Settings.ScheduleBatch
		source = "Schedule"
	}
	if created == 0 {
		return 0
	}
	c.Ledger.Add(n.ID, created)
	n.Stats.Processed += created
	c.logf(n.ID, "Generated %d users (%s)", created, source)
	return created
}
