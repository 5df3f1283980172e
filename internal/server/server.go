// Package server exposes the engine over HTTP: a demo stream endpoint that
// replays a recorded JSONL patch script with per-line flushes, plus JSON
// endpoints for the data model, actions, validation, the catalog, and
// session persistence.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/agentic-research/genui/api"
	"github.com/agentic-research/genui/internal/action"
	"github.com/agentic-research/genui/internal/catalog"
	"github.com/agentic-research/genui/internal/checks"
	"github.com/agentic-research/genui/internal/state"
	"github.com/agentic-research/genui/internal/store"
	"github.com/gin-gonic/gin"
)

// Options wires a Server's collaborators. Store, Actions and Checks are
// required; Catalog and Sessions are optional features.
type Options struct {
	Logger   *slog.Logger
	Script   string // raw JSONL patch script replayed by /v1/stream
	Store    *state.Store
	Actions  *action.Engine
	Checks   *checks.Engine
	Catalog  *catalog.Catalog
	Sessions *store.Sessions
}

// Server is the HTTP surface. Construct with New, serve via Handler or Run.
type Server struct {
	log      *slog.Logger
	script   []string
	store    *state.Store
	actions  *action.Engine
	checks   *checks.Engine
	catalog  *catalog.Catalog
	sessions *store.Sessions
	router   *gin.Engine
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// New builds a server and its routes.
func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		log:      log,
		script:   splitScript(opts.Script),
		store:    opts.Store,
		actions:  opts.Actions,
		checks:   opts.Checks,
		catalog:  opts.Catalog,
		sessions: opts.Sessions,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.handleHealth)
	v1 := r.Group("/v1")
	{
		v1.POST("/stream", s.handleStream)
		v1.POST("/actions/:name", s.handleAction)
		v1.GET("/pending", s.handlePending)
		v1.POST("/pending/confirm", s.handleConfirm)
		v1.POST("/pending/cancel", s.handleCancel)
		v1.GET("/state", s.handleGetState)
		v1.PUT("/state", s.handlePutState)
		v1.POST("/validate", s.handleValidate)
		v1.GET("/catalog/types", s.handleCatalogTypes)
		v1.POST("/catalog/validate", s.handleCatalogValidate)
		v1.POST("/sessions/save", s.handleSessionSave)
		v1.POST("/sessions/:id/load", s.handleSessionLoad)
	}
	s.router = r
	return s
}

// Handler returns the server as an http.Handler for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until the listener fails.
func (s *Server) Run(addr string) error {
	s.log.Info("listening", "addr", addr)
	return s.router.Run(addr)
}

func splitScript(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(raw, "\n"), "\n")
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "session": s.store.ID})
}

// StreamRequest is the request body for POST /v1/stream.
type StreamRequest struct {
	Prompt  string         `json:"prompt"`
	Context map[string]any `json:"context"`
}

// handleStream replays the configured patch script as JSONL, flushing after
// every line so clients see patches as they land, not at stream end.
func (s *Server) handleStream(c *gin.Context) {
	var req StreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
		return
	}
	s.log.Info("replaying stream", "prompt_len", len(req.Prompt), "lines", len(s.script))

	h := c.Writer.Header()
	h.Set("Content-Type", "application/x-ndjson")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	for _, line := range s.script {
		if c.Request.Context().Err() != nil {
			return
		}
		if _, err := c.Writer.WriteString(line + "\n"); err != nil {
			return
		}
		c.Writer.Flush()
	}
}

// ActionRequest is the request body for POST /v1/actions/:name.
type ActionRequest struct {
	Params    map[string]any   `json:"params"`
	Confirm   *api.ConfirmSpec `json:"confirm"`
	OnSuccess map[string]any   `json:"onSuccess"`
	OnError   map[string]any   `json:"onError"`
}

// handleAction executes one action synchronously. Confirm-requiring actions
// block until /v1/pending/confirm or /v1/pending/cancel resolves them.
func (s *Server) handleAction(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
		return
	}
	act := &api.Action{
		Name:      c.Param("name"),
		Params:    req.Params,
		Confirm:   req.Confirm,
		OnSuccess: req.OnSuccess,
		OnError:   req.OnError,
	}

	result, err := s.actions.Execute(c.Request.Context(), act)
	switch {
	case errors.Is(err, action.ErrCancelled):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "action cancelled", Code: "CANCELLED"})
	case err != nil:
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error(), Code: "ACTION_FAILED"})
	default:
		c.JSON(http.StatusOK, gin.H{"result": result})
	}
}

func (s *Server) handlePending(c *gin.Context) {
	p := s.actions.Pending()
	if p == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no pending confirmation", Code: "NO_PENDING"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"action":  p.Resolved.Action.Name,
		"params":  p.Resolved.Params,
		"confirm": p.Spec,
	})
}

func (s *Server) handleConfirm(c *gin.Context) {
	p := s.actions.Pending()
	if p == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no pending confirmation", Code: "NO_PENDING"})
		return
	}
	p.Confirm()
	c.JSON(http.StatusOK, gin.H{"status": "confirmed"})
}

func (s *Server) handleCancel(c *gin.Context) {
	p := s.actions.Pending()
	if p == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no pending confirmation", Code: "NO_PENDING"})
		return
	}
	p.Cancel()
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (s *Server) handleGetState(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Snapshot())
}

// StateRequest is the request body for PUT /v1/state.
type StateRequest struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

func (s *Server) handlePutState(c *gin.Context) {
	var req StateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Path == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "path is required", Code: "INVALID_REQUEST"})
		return
	}
	s.store.Set(req.Path, req.Value)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ValidateRequest is the request body for POST /v1/validate.
type ValidateRequest struct {
	Path   string          `json:"path"`
	Checks []api.CheckSpec `json:"checks"`
}

func (s *Server) handleValidate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Path == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "path is required", Code: "INVALID_REQUEST"})
		return
	}
	if req.Checks != nil {
		s.checks.Register(req.Path, req.Checks)
	}
	c.JSON(http.StatusOK, s.checks.Validate(c.Request.Context(), req.Path))
}

func (s *Server) handleCatalogTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"types": s.catalog.Types()})
}

// CatalogValidateRequest is the request body for POST /v1/catalog/validate.
type CatalogValidateRequest struct {
	Type  string         `json:"type"`
	Props map[string]any `json:"props"`
}

func (s *Server) handleCatalogValidate(c *gin.Context) {
	var req CatalogValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Type == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "type is required", Code: "INVALID_REQUEST"})
		return
	}
	if !s.catalog.IsKnownType(req.Type) {
		c.JSON(http.StatusOK, gin.H{"known": false, "valid": false})
		return
	}
	if err := s.catalog.ValidateProps(req.Type, req.Props); err != nil {
		c.JSON(http.StatusOK, gin.H{"known": true, "valid": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"known": true, "valid": true})
}

func (s *Server) handleSessionSave(c *gin.Context) {
	if s.sessions == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "session persistence disabled", Code: "NO_SESSIONS"})
		return
	}
	if err := s.sessions.Save(s.store.ID, s.store.Snapshot()); err != nil {
		s.log.Error("session save failed", "session", s.store.ID, "err", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "SAVE_FAILED"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": s.store.ID})
}

// handleSessionLoad restores a saved snapshot into the live data model by
// writing each top-level key through the store's writer path, so watchers
// fire exactly as for any other mutation.
func (s *Server) handleSessionLoad(c *gin.Context) {
	if s.sessions == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "session persistence disabled", Code: "NO_SESSIONS"})
		return
	}
	model, err := s.sessions.Load(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "NOT_FOUND"})
		return
	}
	for k, v := range model {
		s.store.Set("/"+k, v)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
