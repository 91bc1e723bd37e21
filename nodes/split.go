package nodes

import "github.com/Tsinling0525/journeyflow/model"

// Distribute partitions count evenly over n slots. Every slot gets
// floor(count/n) and the remainder is spread one user at a time over the
// last slots, so the parts sum to count and differ by at most one.
func Distribute(count uint64, n int) []uint64 {
	if n <= 0 {
		return nil
	}
	parts := make([]uint64, n)
	each := count / uint64(n)
	rem := int(count % uint64(n))
	for i := range parts {
		parts[i] = each
		if i >= n-rem {
			parts[i]++
		}
	}
	return parts
}

func processSplit(c *Context, n *model.Node, count uint64) {
	out := c.Graph.Outgoing(n.ID)
	if len(out) == 0 {
		c.discard(n.ID, count, "no outgoing edge")
		return
	}
	for i, part := range Distribute(count, len(out)) {
		c.transfer(out[i], part)
	}
}
