package engine

import "github.com/Tsinling0525/journeyflow/model"

// processOrder returns the journey's nodes upstream first (Kahn). Nodes
// left over because they sit on a cycle are appended in declaration order.
// Counts do not depend on this order; it only fixes the sequence in which
// the random source is consumed, so seeded runs repeat exactly.
func processOrder(g *model.Graph) []*model.Node {
	indeg := map[model.ID]int{}
	for _, n := range g.Nodes() {
		indeg[n.ID] = 0
	}
	for _, e := range g.Journey.Edges {
		if _, ok := indeg[e.Target]; ok {
			indeg[e.Target]++
		}
	}

	var q []model.ID
	for _, n := range g.Nodes() {
		if indeg[n.ID] == 0 {
			q = append(q, n.ID)
		}
	}
	seen := map[model.ID]bool{}
	var order []*model.Node
	for len(q) > 0 {
		v := q[0]
		q = q[1:]
		n, _ := g.Node(v)
		order = append(order, n)
		seen[v] = true
		for _, e := range g.Outgoing(v) {
			if _, ok := indeg[e.Target]; !ok {
				continue
			}
			indeg[e.Target]--
			if indeg[e.Target] == 0 {
				q = append(q, e.Target)
			}
		}
	}
	for _, n := range g.Nodes() {
		if !seen[n.ID] {
			order = append(order, n)
		}
	}
	return order
}
