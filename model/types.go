package model

import "time"

type ID string

// Kind is the closed set of journey node kinds.
type Kind string

const (
	KindEntry Kind = "entry"
	KindEmail Kind = "email"
	KindWait  Kind = "wait"
	KindSplit Kind = "split"
	KindEnd   Kind = "end"
)

// Outcome tags the outgoing edge a batch should follow.
type Outcome string

const (
	OutcomeNone    Outcome = ""
	OutcomeDefault Outcome = "default"
	OutcomeOpen    Outcome = "open"
	OutcomeClick   Outcome = "click"
	OutcomeDrop    Outcome = "drop"
)

// IsDefault reports whether o routes to the default (untagged) edge.
func (o Outcome) IsDefault() bool { return o == OutcomeNone || o == OutcomeDefault }

type WaitingBucket struct {
	Label string `json:"label"`
	Count uint64 `json:"count"`
}

// NodeStats is the per-node output record read by the rendering surface.
// Processed counts lifetime arrivals and never decreases.
type NodeStats struct {
	Processed        uint64          `json:"processed"`
	Dropped          uint64          `json:"dropped"`
	Waiting          uint64          `json:"waiting,omitempty"`
	OpenRate         float64         `json:"openRate,omitempty"`
	ClickRate        float64         `json:"clickRate,omitempty"`
	CompletionRate   uint64          `json:"completionRate,omitempty"`
	NextReleaseTime  int64           `json:"nextReleaseTime,omitempty"` // unix ms
	WaitingBreakdown []WaitingBucket `json:"waitingBreakdown,omitempty"`
}

// NextRelease returns NextReleaseTime as a time, zero when unset.
func (s *NodeStats) NextRelease() time.Time {
	if s == nil || s.NextReleaseTime == 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.NextReleaseTime)
}

// EdgeStats records flow along an edge. Percentage is only set when the
// source node is an Email or Split node.
type EdgeStats struct {
	Processed  uint64  `json:"processed"`
	Percentage *uint64 `json:"percentage,omitempty"`
}

// Point is a canvas position. The engine ignores it; it is kept so a
// document survives an import/export round trip.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Node struct {
	ID       ID
	Kind     Kind
	Label    string
	Config   Config
	Position *Point
	Stats    *NodeStats
}

// DisplayName is the label used in validation errors and logs.
func (n *Node) DisplayName() string {
	if n.Label != "" {
		return n.Label
	}
	return string(n.ID)
}

type Edge struct {
	ID      ID
	Source  ID
	Target  ID
	Outcome Outcome
	Stats   *EdgeStats
}

// Journey is the graph authored by the editing surface. The engine treats
// everything but the Stats records as read-only.
type Journey struct {
	ID    ID
	Name  string
	Nodes []*Node
	Edges []*Edge
}

// ResetStats zeroes every node and edge stats record in place.
func (j *Journey) ResetStats() {
	for _, n := range j.Nodes {
		n.Stats = &NodeStats{}
	}
	for _, e := range j.Edges {
		e.Stats = &EdgeStats{}
	}
}

// Clone deep-copies the journey including its stats records.
func (j *Journey) Clone() *Journey {
	out := &Journey{ID: j.ID, Name: j.Name}
	out.Nodes = make([]*Node, len(j.Nodes))
	for i, n := range j.Nodes {
		c := *n
		if n.Stats != nil {
			s := *n.Stats
			s.WaitingBreakdown = append([]WaitingBucket(nil), n.Stats.WaitingBreakdown...)
			c.Stats = &s
		}
		out.Nodes[i] = &c
	}
	out.Edges = make([]*Edge, len(j.Edges))
	for i, e := range j.Edges {
		c := *e
		if e.Stats != nil {
			s := *e.Stats
			if e.Stats.Percentage != nil {
				p := *e.Stats.Percentage
				s.Percentage = &p
			}
			c.Stats = &s
		}
		out.Edges[i] = &c
	}
	return out
}
