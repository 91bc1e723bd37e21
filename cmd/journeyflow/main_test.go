package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Tsinling0525/journeyflow/format/journey"
)

const journeyDoc = `{
  "id": "welcome",
  "name": "Welcome",
  "nodes": [
    {"id": "in", "type": "entry", "data": {"label": "Signup"}},
    {"id": "w", "type": "wait", "data": {"label": "Two hours", "config": {"waitMode": "duration", "waitDuration": 2, "waitUnit": "hours"}}},
    {"id": "done", "type": "end", "data": {"label": "Done"}}
  ],
  "edges": [
    {"id": "e1", "source": "in", "target": "w"},
    {"id": "e2", "source": "w", "target": "done"}
  ]
}`

func writeJourney(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journey.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("JOURNEYFLOW_DATA_DIR", t.TempDir())
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil || !strings.Contains(out, version) {
		t.Errorf("Expected version in output, got %q %v", out, err)
	}
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", writeJourney(t, journeyDoc))
	if err != nil || !strings.Contains(out, "valid (3 nodes, 2 edges)") {
		t.Errorf("Expected valid journey, got %q %v", out, err)
	}

	bad := `{"nodes":[{"id":"x","type":"end","data":{"label":"X"}}],"edges":[]}`
	out, err = execute(t, "validate", writeJourney(t, bad))
	if err == nil {
		t.Fatal("Expected an error for an invalid journey")
	}
	if !strings.Contains(out, "Flow must have at least one Entry node.") {
		t.Errorf("Expected entry error listed, got %q", out)
	}
}

func TestRunCommandJSON(t *testing.T) {
	exported := filepath.Join(t.TempDir(), "out.json")
	out, err := execute(t, "run", writeJourney(t, journeyDoc),
		"--ticks", "5", "--start", "2024-03-04T10:00:00Z", "--seed", "3", "--users", "40", "--out", exported, "--json")
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	var res struct {
		Status struct {
			Tick uint64 `json:"tick"`
			Seed int64  `json:"seed"`
		} `json:"status"`
		Journey journey.Document `json:"journey"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if res.Status.Tick != 5 || res.Status.Seed != 3 {
		t.Errorf("Expected tick 5 seed 3, got %+v", res.Status)
	}
	done := res.Journey.Nodes[2].Data.Stats
	if done == nil || done.Processed != 40 || done.CompletionRate != 100 {
		t.Errorf("Expected 40 users done, got %+v", done)
	}

	j, err := journey.ReadFile(exported)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	if j.Nodes[2].Stats == nil || j.Nodes[2].Stats.Processed != 40 {
		t.Errorf("Expected exported stats, got %+v", j.Nodes[2].Stats)
	}
}

func TestRunTicks(t *testing.T) {
	tests := []struct {
		args []string
		want int
		err  bool
	}{
		{nil, 24, false},
		{[]string{"--ticks", "5"}, 5, false},
		{[]string{"--hours", "6"}, 6, false},
		{[]string{"--days", "2", "--hours", "1"}, 49, false},
		{[]string{"--ticks", "0"}, 0, true},
		{[]string{"--hours", "-1"}, 0, true},
	}
	for _, tt := range tests {
		cmd := newRunCmd()
		if err := cmd.ParseFlags(tt.args); err != nil {
			t.Fatalf("ParseFlags(%v): %v", tt.args, err)
		}
		got, err := runTicks(cmd, time.Hour)
		if (err != nil) != tt.err {
			t.Errorf("runTicks(%v) error = %v, want error %v", tt.args, err, tt.err)
			continue
		}
		if got != tt.want {
			t.Errorf("runTicks(%v) = %d, want %d", tt.args, got, tt.want)
		}
	}
}

func TestAPIBase(t *testing.T) {
	if got := apiBase(":8080"); got != "http://127.0.0.1:8080" {
		t.Errorf("Expected loopback URL, got %s", got)
	}
	if got := apiBase("example.com:9000"); got != "http://example.com:9000" {
		t.Errorf("Expected host URL, got %s", got)
	}
}

func TestFormatFields(t *testing.T) {
	got := formatFields(map[string]any{"tick": 3, "instance": "inst-1"})
	if got != "instance=inst-1 tick=3" {
		t.Errorf("Expected sorted fields, got %q", got)
	}
}

func TestCommandsRegistered(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"run", "validate", "serve", "history", "watch", "start", "stop", "status", "inst"} {
		if c, _, err := root.Find([]string{name}); err != nil || c == root {
			t.Errorf("Expected %s command, got %v", name, err)
		}
	}
	inst, _, _ := root.Find([]string{"inst"})
	var subs []string
	for _, c := range inst.Commands() {
		subs = append(subs, c.Name())
	}
	if len(subs) != 11 {
		t.Errorf("Expected 11 inst subcommands, got %v", subs)
	}
}
