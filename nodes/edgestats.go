package nodes

import (
	"math"

	"github.com/Tsinling0525/journeyflow/model"
)

// RecordEdgeFlow adds n to e's cumulative flow. Edges leaving Email and
// Split nodes also carry their share of the source's lifetime arrivals.
func RecordEdgeFlow(g *model.Graph, e *model.Edge, n uint64) {
	e.Stats.Processed += n
	src, ok := g.Node(e.Source)
	if !ok || (src.Kind != model.KindEmail && src.Kind != model.KindSplit) {
		return
	}
	pct := Percent(e.Stats.Processed, src.Stats.Processed)
	e.Stats.Percentage = &pct
}

// Percent is round(part/whole × 100), 0 when whole is 0. The product is
// taken before dividing so exact halves round up.
func Percent(part, whole uint64) uint64 {
	if whole == 0 {
		return 0
	}
	return uint64(math.Round(float64(part*100) / float64(whole)))
}
