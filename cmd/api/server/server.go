package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Tsinling0525/journeyflow/engine"
	"github.com/Tsinling0525/journeyflow/format/journey"
	"github.com/Tsinling0525/journeyflow/idgen"
	"github.com/Tsinling0525/journeyflow/infra"
	apiinfra "github.com/Tsinling0525/journeyflow/infra/api"
	"github.com/Tsinling0525/journeyflow/logging"
	"github.com/Tsinling0525/journeyflow/model"
)

const Version = "1.0.0"

// APIResponse represents the API response
type APIResponse struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Errors  []string               `json:"errors,omitempty"`
}

// CreateInstanceRequest starts hosting a journey, either a saved one by id
// or an inline document.
type CreateInstanceRequest struct {
	JourneyID string            `json:"journeyId"`
	Journey   *journey.Document `json:"journey"`
	Name      string            `json:"name"`
}

type SpeedRequest struct {
	Speed float64 `json:"speed"`
}

// Helper function to send JSON response
func sendResponse(c *gin.Context, statusCode int, success bool, data map[string]interface{}, errorMsg string) {
	response := APIResponse{Success: success, Data: data, Error: errorMsg}
	c.JSON(statusCode, response)
}

func sendSuccess(c *gin.Context, data map[string]interface{}) {
	sendResponse(c, http.StatusOK, true, data, "")
}
func sendError(c *gin.Context, statusCode int, errorMsg string) {
	sendResponse(c, statusCode, false, nil, errorMsg)
}

// sendEngineError maps control-surface failures onto status codes.
func sendEngineError(c *gin.Context, err error) {
	var verr *engine.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, APIResponse{Error: "journey is invalid", Errors: verr.Errors})
	case errors.Is(err, engine.ErrNotRunning):
		sendError(c, http.StatusConflict, err.Error())
	case errors.Is(err, infra.ErrInstanceNotFound):
		sendError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrSchedulerClosed):
		sendError(c, http.StatusGone, err.Error())
	default:
		sendError(c, http.StatusInternalServerError, err.Error())
	}
}

type Server struct {
	deps apiinfra.Deps
}

// Handlers
func handleHealth(c *gin.Context) {
	sendSuccess(c, map[string]interface{}{"status": "healthy", "timestamp": time.Now().Unix(), "version": Version})
}

func bindDocument(c *gin.Context) (*model.Journey, bool) {
	var doc journey.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return nil, false
	}
	j, err := journey.Parse(doc)
	if err != nil {
		sendError(c, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return j, true
}

func exportDocument(j *model.Journey) (map[string]interface{}, error) {
	doc, err := journey.FromJourney(j)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"journey": doc}, nil
}

func (s *Server) handleValidate(c *gin.Context) {
	j, ok := bindDocument(c)
	if !ok {
		return
	}
	res := engine.Validate(j)
	sendSuccess(c, map[string]interface{}{"isValid": res.IsValid, "errors": res.Errors})
}

func (s *Server) handleListJourneys(c *gin.Context) {
	list := s.deps.Journeys.List()
	out := make([]map[string]interface{}, 0, len(list))
	for _, j := range list {
		out = append(out, map[string]interface{}{"id": j.ID, "name": j.Name, "nodes": len(j.Nodes), "edges": len(j.Edges)})
	}
	sendSuccess(c, map[string]interface{}{"journeys": out})
}

func (s *Server) handleGetJourney(c *gin.Context) {
	j, ok := s.deps.Journeys.Get(model.ID(c.Param("id")))
	if !ok {
		sendError(c, http.StatusNotFound, "journey not found")
		return
	}
	data, err := exportDocument(j)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}
	sendSuccess(c, data)
}

func (s *Server) handleSaveJourney(c *gin.Context) {
	j, ok := bindDocument(c)
	if !ok {
		return
	}
	if id := c.Param("id"); id != "" {
		j.ID = model.ID(id)
	}
	if j.ID == "" {
		id, err := idgen.Journey()
		if err != nil {
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}
		j.ID = model.ID(id)
	}
	if err := s.deps.Journeys.Put(c.Request.Context(), j); err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}
	res := engine.Validate(j)
	sendSuccess(c, map[string]interface{}{"id": j.ID, "isValid": res.IsValid, "errors": res.Errors})
}

func (s *Server) handleDeleteJourney(c *gin.Context) {
	found, err := s.deps.Journeys.Delete(c.Request.Context(), model.ID(c.Param("id")))
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		sendError(c, http.StatusNotFound, "journey not found")
		return
	}
	sendSuccess(c, map[string]interface{}{"deleted": c.Param("id")})
}

func instanceData(inst *infra.Instance, st engine.Status) map[string]interface{} {
	return map[string]interface{}{"instance": inst, "status": st}
}

func (s *Server) handleListInstances(c *gin.Context) {
	out := []map[string]interface{}{}
	for _, inst := range s.deps.Instances.List() {
		st, err := inst.Scheduler.Status(c.Request.Context())
		if err != nil {
			continue
		}
		out = append(out, instanceData(inst, st))
	}
	sendSuccess(c, map[string]interface{}{"instances": out})
}

func (s *Server) handleCreateInstance(c *gin.Context) {
	var req CreateInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	var j *model.Journey
	switch {
	case req.Journey != nil:
		parsed, err := journey.Parse(*req.Journey)
		if err != nil {
			sendError(c, http.StatusBadRequest, err.Error())
			return
		}
		j = parsed
	case req.JourneyID != "":
		saved, ok := s.deps.Journeys.Get(model.ID(req.JourneyID))
		if !ok {
			sendError(c, http.StatusNotFound, "journey not found")
			return
		}
		j = saved
	default:
		sendError(c, http.StatusBadRequest, "journeyId or journey is required")
		return
	}
	inst, err := s.deps.Instances.Create(j, req.Name)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}
	st, err := inst.Scheduler.Status(c.Request.Context())
	if err != nil {
		sendEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: instanceData(inst, st)})
}

// withInstance resolves :id and replies 404 when it is unknown.
func (s *Server) withInstance(fn func(c *gin.Context, inst *infra.Instance)) gin.HandlerFunc {
	return func(c *gin.Context) {
		inst, ok := s.deps.Instances.Get(c.Param("id"))
		if !ok {
			sendError(c, http.StatusNotFound, "instance not found")
			return
		}
		fn(c, inst)
	}
}

func sendStatus(c *gin.Context, inst *infra.Instance) {
	st, err := inst.Scheduler.Status(c.Request.Context())
	if err != nil {
		sendEngineError(c, err)
		return
	}
	sendSuccess(c, instanceData(inst, st))
}

func (s *Server) handleStatus(c *gin.Context, inst *infra.Instance) { sendStatus(c, inst) }

func (s *Server) handleStart(c *gin.Context, inst *infra.Instance) {
	if err := inst.Scheduler.Start(c.Request.Context()); err != nil {
		sendEngineError(c, err)
		return
	}
	sendStatus(c, inst)
}

func (s *Server) handlePause(c *gin.Context, inst *infra.Instance) {
	if err := inst.Scheduler.Pause(c.Request.Context()); err != nil {
		sendEngineError(c, err)
		return
	}
	sendStatus(c, inst)
}

func (s *Server) handleStop(c *gin.Context, inst *infra.Instance) {
	if err := inst.Scheduler.Stop(c.Request.Context()); err != nil {
		sendEngineError(c, err)
		return
	}
	sendStatus(c, inst)
}

func (s *Server) handleStep(c *gin.Context, inst *infra.Instance) {
	n := 1
	if q := c.Query("n"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v < 1 {
			sendError(c, http.StatusBadRequest, "n must be a positive integer")
			return
		}
		n = v
	}
	sum, err := inst.Scheduler.Step(c.Request.Context(), n)
	if err != nil {
		sendEngineError(c, err)
		return
	}
	sendSuccess(c, map[string]interface{}{"tick": sum})
}

func (s *Server) handleSpeed(c *gin.Context, inst *infra.Instance) {
	var req SpeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	if req.Speed <= 0 {
		sendError(c, http.StatusBadRequest, "speed must be positive")
		return
	}
	if err := inst.Scheduler.SetSpeed(c.Request.Context(), req.Speed); err != nil {
		sendEngineError(c, err)
		return
	}
	sendStatus(c, inst)
}

func (s *Server) handleLogs(c *gin.Context, inst *infra.Instance) {
	entries := inst.Scheduler.Logs()
	if q := c.Query("limit"); q != "" {
		if v, err := strconv.Atoi(q); err == nil && v >= 0 && v < len(entries) {
			entries = entries[len(entries)-v:]
		}
	}
	sendSuccess(c, map[string]interface{}{"logs": entries})
}

func (s *Server) handleExport(c *gin.Context, inst *infra.Instance) {
	st, err := inst.Scheduler.Status(c.Request.Context())
	if err != nil {
		sendEngineError(c, err)
		return
	}
	data, err := exportDocument(st.Journey)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}
	sendSuccess(c, data)
}

func (s *Server) handleRemove(c *gin.Context, inst *infra.Instance) {
	if err := s.deps.Instances.Remove(inst.ID); err != nil {
		sendEngineError(c, err)
		return
	}
	sendSuccess(c, map[string]interface{}{"deleted": inst.ID})
}

func (s *Server) handleRuns(c *gin.Context) {
	if s.deps.Runs == nil {
		sendSuccess(c, map[string]interface{}{"runs": []interface{}{}})
		return
	}
	limit := 50
	if q := c.Query("limit"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v < 0 {
			sendError(c, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = v
	}
	runs, err := s.deps.Runs.Runs(c.Request.Context(), limit)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}
	sendSuccess(c, map[string]interface{}{"runs": runs})
}

// requestLogger logs each request at debug level.
func requestLogger(deps apiinfra.Deps) gin.HandlerFunc {
	log := deps.Logger
	if log == nil {
		log = logging.Discard()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			"method", c.Request.Method, "path", c.FullPath(), "status", c.Writer.Status(), "elapsed", time.Since(start))
	}
}

// NewRouter builds the Gin router with routes and middleware
func NewRouter(deps apiinfra.Deps) *gin.Engine {
	s := &Server{deps: deps}
	if s.deps.Journeys == nil {
		s.deps.Journeys = apiinfra.NewJourneyStore(nil)
	}

	r := gin.New()
	r.Use(requestLogger(deps))
	r.Use(gin.Recovery())
	// CORS
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	r.GET("/health", handleHealth)
	r.POST("/validate", s.handleValidate)

	r.GET("/journeys", s.handleListJourneys)
	r.POST("/journeys", s.handleSaveJourney)
	r.GET("/journeys/:id", s.handleGetJourney)
	r.PUT("/journeys/:id", s.handleSaveJourney)
	r.DELETE("/journeys/:id", s.handleDeleteJourney)

	r.GET("/instances", s.handleListInstances)
	r.POST("/instances", s.handleCreateInstance)
	inst := r.Group("/instances/:id")
	inst.GET("", s.withInstance(s.handleStatus))
	inst.DELETE("", s.withInstance(s.handleRemove))
	inst.POST("/start", s.withInstance(s.handleStart))
	inst.POST("/pause", s.withInstance(s.handlePause))
	inst.POST("/stop", s.withInstance(s.handleStop))
	inst.POST("/step", s.withInstance(s.handleStep))
	inst.POST("/speed", s.withInstance(s.handleSpeed))
	inst.GET("/logs", s.withInstance(s.handleLogs))
	inst.GET("/export", s.withInstance(s.handleExport))

	r.GET("/runs", s.handleRuns)

	return r
}
