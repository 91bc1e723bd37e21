package nodes

import "github.com/Tsinling0525/journeyflow/model"

// UpdateCompletionRates sets each End node's share of all End arrivals.
func UpdateCompletionRates(g *model.Graph) {
	ends := g.OfKind(model.KindEnd)
	var total uint64
	for _, n := range ends {
		total += n.Stats.Processed
	}
	for _, n := range ends {
		n.Stats.CompletionRate = Percent(n.Stats.Processed, total)
	}
}
