package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Tsinling0525/journeyflow/engine"
	"github.com/Tsinling0525/journeyflow/format/journey"
	"github.com/Tsinling0525/journeyflow/infra"
	apiinfra "github.com/Tsinling0525/journeyflow/infra/api"
	"github.com/Tsinling0525/journeyflow/infra/archive"
	"github.com/Tsinling0525/journeyflow/plugin"
)

const welcomeDoc = `{
  "id": "welcome",
  "name": "Welcome",
  "nodes": [
    {"id": "in", "type": "entry", "data": {"label": "Signup"}},
    {"id": "done", "type": "end", "data": {"label": "Done", "config": {"isGoal": true}}}
  ],
  "edges": [{"id": "e1", "source": "in", "target": "done"}]
}`

type response struct {
	Success bool                       `json:"success"`
	Data    map[string]json.RawMessage `json:"data"`
	Error   string                     `json:"error"`
	Errors  []string                   `json:"errors"`
}

func newTestRouter(t *testing.T) (*gin.Engine, *archive.Mem) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mem := archive.NewMem()
	mgr := infra.NewInstanceManager(plugin.Deps{Archive: mem}, infra.InstanceOptions{
		Simulation: engine.Options{StartTime: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC), Seed: 7},
	})
	t.Cleanup(mgr.Close)
	return NewRouter(apiinfra.Deps{Instances: mgr, Journeys: apiinfra.NewJourneyStore(nil), Runs: mem}), mem
}

func do(t *testing.T, r http.Handler, method, path, body string) (int, response) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var resp response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s %s: decoding %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, resp
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)
	code, resp := do(t, r, http.MethodGet, "/health", "")
	if code != http.StatusOK || !resp.Success {
		t.Fatalf("Expected healthy response, got %d %+v", code, resp)
	}
}

func TestValidateReportsErrors(t *testing.T) {
	r, _ := newTestRouter(t)
	code, resp := do(t, r, http.MethodPost, "/validate", `{"nodes":[{"id":"x","type":"end","data":{}}],"edges":[]}`)
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	var valid bool
	_ = json.Unmarshal(resp.Data["isValid"], &valid)
	var errs []string
	_ = json.Unmarshal(resp.Data["errors"], &errs)
	if valid || len(errs) == 0 || errs[0] != "Flow must have at least one Entry node." {
		t.Errorf("Expected entry error, got %v %v", valid, errs)
	}

	code, _ = do(t, r, http.MethodPost, "/validate", `{"nodes":[{"id":"x","type":"webhook","data":{}}]}`)
	if code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown node type, got %d", code)
	}
}

func TestInstanceLifecycle(t *testing.T) {
	r, mem := newTestRouter(t)

	if code, resp := do(t, r, http.MethodPost, "/journeys", welcomeDoc); code != http.StatusOK {
		t.Fatalf("Expected journey saved, got %d %s", code, resp.Error)
	}
	code, resp := do(t, r, http.MethodPost, "/instances", `{"journeyId":"welcome"}`)
	if code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d %s", code, resp.Error)
	}
	var inst infra.Instance
	if err := json.Unmarshal(resp.Data["instance"], &inst); err != nil || inst.ID == "" {
		t.Fatalf("Expected instance in response, got %s", resp.Data["instance"])
	}
	base := "/instances/" + inst.ID

	if code, _ := do(t, r, http.MethodPost, base+"/pause", ""); code != http.StatusConflict {
		t.Errorf("Expected 409 pausing a stopped instance, got %d", code)
	}
	if code, _ := do(t, r, http.MethodPost, base+"/step?n=0", ""); code != http.StatusBadRequest {
		t.Errorf("Expected 400 for n=0, got %d", code)
	}
	if code, resp := do(t, r, http.MethodPost, base+"/step?n=2", ""); code != http.StatusOK {
		t.Fatalf("Expected step to succeed, got %d %s", code, resp.Error)
	}

	code, resp = do(t, r, http.MethodGet, base+"/export", "")
	if code != http.StatusOK {
		t.Fatalf("Expected export, got %d", code)
	}
	var doc journey.Document
	if err := json.Unmarshal(resp.Data["journey"], &doc); err != nil {
		t.Fatalf("decoding export: %v", err)
	}
	if doc.Nodes[1].Data.Stats == nil || doc.Nodes[1].Data.Stats.Processed != 100 {
		t.Errorf("Expected 100 users done, got %+v", doc.Nodes[1].Data.Stats)
	}
	if doc.Nodes[1].Data.Stats.CompletionRate != 100 {
		t.Errorf("Expected completion rate 100, got %d", doc.Nodes[1].Data.Stats.CompletionRate)
	}

	code, resp = do(t, r, http.MethodGet, base+"/logs?limit=1", "")
	var logs []engine.LogEntry
	_ = json.Unmarshal(resp.Data["logs"], &logs)
	if code != http.StatusOK || len(logs) != 1 {
		t.Errorf("Expected one log entry, got %d %v", code, logs)
	}

	if code, _ := do(t, r, http.MethodPost, base+"/speed", `{"speed":0}`); code != http.StatusBadRequest {
		t.Errorf("Expected 400 for zero speed, got %d", code)
	}
	code, resp = do(t, r, http.MethodPost, base+"/speed", `{"speed":5}`)
	var st engine.Status
	_ = json.Unmarshal(resp.Data["status"], &st)
	if code != http.StatusOK || st.Speed != 5 || st.IntervalMS != 200 {
		t.Errorf("Expected speed 5 at 200ms, got %d %+v", code, st)
	}

	_, resp = do(t, r, http.MethodGet, "/runs", "")
	var runs []plugin.RunInfo
	_ = json.Unmarshal(resp.Data["runs"], &runs)
	if len(runs) != 1 || runs[0].InstanceID != inst.ID {
		t.Errorf("Expected one archived run for the instance, got %+v", runs)
	}

	if code, _ := do(t, r, http.MethodDelete, base, ""); code != http.StatusOK {
		t.Errorf("Expected delete to succeed, got %d", code)
	}
	if code, _ := do(t, r, http.MethodGet, base, ""); code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", code)
	}
	if list, _ := mem.Runs(context.Background(), 0); len(list) != 1 || list[0].EndedAt.IsZero() {
		t.Errorf("Expected the run closed after delete, got %+v", list)
	}
}

func TestStartRejectsInvalidJourney(t *testing.T) {
	r, _ := newTestRouter(t)
	body := `{"journey":{"nodes":[{"id":"in","type":"entry","data":{}}],"edges":[]}}`
	code, resp := do(t, r, http.MethodPost, "/instances", body)
	if code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d %s", code, resp.Error)
	}
	var inst infra.Instance
	_ = json.Unmarshal(resp.Data["instance"], &inst)

	code, resp = do(t, r, http.MethodPost, "/instances/"+inst.ID+"/start", "")
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d", code)
	}
	if len(resp.Errors) != 1 {
		t.Errorf("Expected one validation error, got %v", resp.Errors)
	}
}

func TestUnknownInstance(t *testing.T) {
	r, _ := newTestRouter(t)
	if code, _ := do(t, r, http.MethodPost, "/instances/nope/start", ""); code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", code)
	}
	if code, _ := do(t, r, http.MethodPost, "/instances", `{}`); code != http.StatusBadRequest {
		t.Errorf("Expected 400 without a journey, got %d", code)
	}
}
