package model

// Graph indexes a Journey for lookups during a run. It shares the Journey's
// node and edge pointers, so stats written through it land on the Journey.
type Graph struct {
	Journey *Journey

	nodes map[ID]*Node
	out   map[ID][]*Edge
	in    map[ID][]*Edge
}

func NewGraph(j *Journey) *Graph {
	g := &Graph{
		Journey: j,
		nodes:   make(map[ID]*Node, len(j.Nodes)),
		out:     map[ID][]*Edge{},
		in:      map[ID][]*Edge{},
	}
	for _, n := range j.Nodes {
		if n.Stats == nil {
			n.Stats = &NodeStats{}
		}
		g.nodes[n.ID] = n
	}
	for _, e := range j.Edges {
		if e.Stats == nil {
			e.Stats = &EdgeStats{}
		}
		g.out[e.Source] = append(g.out[e.Source], e)
		g.in[e.Target] = append(g.in[e.Target], e)
	}
	return g
}

func (g *Graph) Node(id ID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

func (g *Graph) Nodes() []*Node { return g.Journey.Nodes }

// Outgoing returns the edges leaving id in declaration order.
func (g *Graph) Outgoing(id ID) []*Edge { return g.out[id] }

func (g *Graph) Incoming(id ID) []*Edge { return g.in[id] }

// EdgeFor returns the first outgoing edge of id matching the outcome.
// Default outcomes match edges tagged "default" or left untagged.
func (g *Graph) EdgeFor(id ID, o Outcome) (*Edge, bool) {
	for _, e := range g.out[id] {
		if o.IsDefault() {
			if e.Outcome.IsDefault() {
				return e, true
			}
			continue
		}
		if e.Outcome == o {
			return e, true
		}
	}
	return nil, false
}

// OfKind returns the nodes of kind k in declaration order.
func (g *Graph) OfKind(k Kind) []*Node {
	var out []*Node
	for _, n := range g.Journey.Nodes {
		if n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}
