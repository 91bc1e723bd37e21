package journey

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Tsinling0525/journeyflow/model"
)

const welcomeDoc = `{
  "id": "welcome",
  "name": "Welcome series",
  "nodes": [
    {"id": "1", "type": "entry", "position": {"x": 0, "y": 0},
     "data": {"label": "New signups", "config": {"triggerType": "api"}, "stats": {"processed": 0, "dropped": 0}}},
    {"id": "2", "type": "email", "position": {"x": 200, "y": 0},
     "data": {"label": "Welcome", "config": {"emailSubject": "Hi", "branchType": "open", "timeout": 12,
       "simulation": {"openRate": 30, "fixedDropRate": 5}, "emailBlocks": [{"type": "text"}]}}},
    {"id": "3", "type": "wait", "data": {"label": "Wait", "config": {"waitDays": 0, "waitUntilTime": "08:30"}}},
    {"id": "4", "type": "end", "data": {"label": "Opened", "config": {"isGoal": true}}},
    {"id": "5", "type": "end", "data": {"label": "Bounced"}}
  ],
  "edges": [
    {"id": "a", "source": "1", "target": "2"},
    {"id": "b", "source": "2", "target": "3", "sourceHandle": "open"},
    {"source": "2", "target": "5", "sourceHandle": "drop"},
    {"id": "d", "source": "3", "target": "4", "data": {"stats": {"processed": 7, "percentage": 50}}}
  ]
}`

func TestDecode(t *testing.T) {
	j, err := Decode([]byte(welcomeDoc))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if j.ID != "welcome" || j.Name != "Welcome series" {
		t.Errorf("Unexpected journey header %q %q", j.ID, j.Name)
	}
	if len(j.Nodes) != 5 || len(j.Edges) != 4 {
		t.Fatalf("Expected 5 nodes and 4 edges, got %d and %d", len(j.Nodes), len(j.Edges))
	}

	entry, ok := j.Nodes[0].Config.(model.EntryConfig)
	if !ok || entry.Trigger() != model.TriggerAPI {
		t.Errorf("Expected api entry config, got %#v", j.Nodes[0].Config)
	}
	email, ok := j.Nodes[1].Config.(model.EmailConfig)
	if !ok {
		t.Fatalf("Expected email config, got %T", j.Nodes[1].Config)
	}
	if email.Branch() != model.BranchOpen || email.OpenRate() != 30 || email.TimeoutDuration().Hours() != 12 {
		t.Errorf("Unexpected email config %+v", email)
	}
	wait := j.Nodes[2].Config.(model.WaitConfig)
	if wait.Days() != 0 || wait.UntilTime() != "08:30" {
		t.Errorf("Expected explicit 0 days at 08:30, got %+v", wait)
	}
	if end := j.Nodes[4].Config.(model.EndConfig); end.IsGoal {
		t.Errorf("Expected empty end config for a node without config")
	}
	if j.Nodes[1].Position == nil || j.Nodes[1].Position.X != 200 {
		t.Errorf("Expected position kept, got %+v", j.Nodes[1].Position)
	}

	if j.Edges[1].Outcome != model.OutcomeOpen || j.Edges[0].Outcome != model.OutcomeNone {
		t.Errorf("Unexpected outcomes %q %q", j.Edges[1].Outcome, j.Edges[0].Outcome)
	}
	if j.Edges[2].ID == "" {
		t.Error("Expected a generated id for an edge without one")
	}
	if st := j.Edges[3].Stats; st == nil || st.Processed != 7 || *st.Percentage != 50 {
		t.Errorf("Expected imported edge stats, got %+v", st)
	}
}

func TestDecodeRejectsUnknownTypes(t *testing.T) {
	_, err := Decode([]byte(`{"nodes":[{"id":"x","type":"sms","data":{"label":"SMS"}}],"edges":[]}`))
	if !errors.Is(err, ErrUnknownNodeType) {
		t.Errorf("Expected ErrUnknownNodeType, got %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name, doc, want string
	}{
		{"syntax", `{"nodes": [`, "parsing journey document"},
		{"missing id", `{"nodes":[{"type":"end","data":{}}]}`, "id is required"},
		{"duplicate", `{"nodes":[{"id":"a","type":"end","data":{}},{"id":"a","type":"end","data":{}}]}`, "duplicate id"},
		{"bad config", `{"nodes":[{"id":"a","type":"wait","data":{"config":{"waitDays":"two"}}}]}`, "decoding config"},
	}
	for _, tt := range tests {
		_, err := Decode([]byte(tt.doc))
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: expected error containing %q, got %v", tt.name, tt.want, err)
		}
	}
}

func TestRoundTripKeepsStats(t *testing.T) {
	j, err := Decode([]byte(welcomeDoc))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	model.NewGraph(j)
	j.Nodes[1].Stats.Processed = 42
	j.Nodes[1].Stats.OpenRate = 30

	path := filepath.Join(t.TempDir(), "out", "welcome.json")
	if err := WriteFile(path, j); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	back, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if back.Nodes[1].Stats.Processed != 42 || back.Nodes[1].Stats.OpenRate != 30 {
		t.Errorf("Expected stats to survive export, got %+v", back.Nodes[1].Stats)
	}
	if back.Edges[1].Outcome != model.OutcomeOpen {
		t.Errorf("Expected sourceHandle to survive export, got %q", back.Edges[1].Outcome)
	}
	email := back.Nodes[1].Config.(model.EmailConfig)
	if email.Subject != "Hi" || email.FixedDropRate() != 5 {
		t.Errorf("Expected email config to survive export, got %+v", email)
	}
}
