package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/unforced/nature-of-ai/internal/domain/playground"
	"github.com/unforced/nature-of-ai/internal/infrastructure/monitoring"
	"github.com/unforced/nature-of-ai/internal/sandbox"
)

// Controller is the playground command surface served over HTTP.
// *sandbox.Host implements it.
type Controller interface {
	Run() (uint64, error)
	Stop() error
	Reset() error
	SetCode(code string)
	ClearOutput()
	SetError(message *string)
	SetTheme(theme playground.Theme)
	Seed(slot playground.Slot) (bool, error)
	Snapshot() playground.Snapshot
	Status() sandbox.Status
}

// Handlers contains all HTTP handlers
type Handlers struct {
	host    Controller
	handoff *playground.MemorySlot
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewHandlers creates a new handler set. metrics may be nil.
func NewHandlers(host Controller, handoff *playground.MemorySlot, metrics *monitoring.Metrics, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	if handoff == nil {
		handoff = &playground.MemorySlot{}
	}
	return &Handlers{
		host:    host,
		handoff: handoff,
		metrics: metrics,
		logger:  logger,
	}
}

// PlaygroundResponse is the snapshot plus host status.
type PlaygroundResponse struct {
	playground.Snapshot
	EditorTheme string         `json:"editorTheme"`
	Status      sandbox.Status `json:"status"`
}

type codeRequest struct {
	Code *string `json:"code"`
}

type errorRequest struct {
	Error *string `json:"error"`
}

type themeRequest struct {
	Theme string `json:"theme"`
}

// Root identifies the service
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "Nature of AI playground",
	})
}

// Health handles liveness checks
func (h *Handlers) Health(c *gin.Context) {
	st := h.host.Status()
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"run_id":  st.RunID,
		"context": st.Context,
	})
}

// GetPlayground returns the current snapshot and host status
func (h *Handlers) GetPlayground(c *gin.Context) {
	c.JSON(http.StatusOK, h.response())
}

// SetCode replaces the script text
func (h *Handlers) SetCode(c *gin.Context) {
	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.Code == nil {
		badRequest(c, "code is required")
		return
	}

	h.host.SetCode(*req.Code)
	c.JSON(http.StatusOK, h.response())
}

// Run starts a fresh execution context from the current code
func (h *Handlers) Run(c *gin.Context) {
	runID, err := h.host.Run()
	if err != nil {
		h.hostError(c, "run", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run_id": runID})
}

// Stop tears down the current context
func (h *Handlers) Stop(c *gin.Context) {
	if err := h.host.Stop(); err != nil {
		h.hostError(c, "stop", err)
		return
	}
	c.JSON(http.StatusOK, h.response())
}

// Reset restores the default sketch
func (h *Handlers) Reset(c *gin.Context) {
	if err := h.host.Reset(); err != nil {
		h.hostError(c, "reset", err)
		return
	}
	c.JSON(http.StatusOK, h.response())
}

// ClearOutput empties the output log
func (h *Handlers) ClearOutput(c *gin.Context) {
	h.host.ClearOutput()
	c.JSON(http.StatusOK, h.response())
}

// SetError overwrites or clears the last error
func (h *Handlers) SetError(c *gin.Context) {
	var req errorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	h.host.SetError(req.Error)
	c.JSON(http.StatusOK, h.response())
}

// SetTheme updates the display preference
func (h *Handlers) SetTheme(c *gin.Context) {
	var req themeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	theme, err := playground.ParseTheme(req.Theme)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	h.host.SetTheme(theme)
	c.JSON(http.StatusOK, h.response())
}

// PutHandoff stashes code for the playground to pick up
func (h *Handlers) PutHandoff(c *gin.Context) {
	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == nil {
		badRequest(c, "code is required")
		return
	}

	h.handoff.Put(*req.Code)
	c.Status(http.StatusNoContent)
}

// ClaimHandoff loads stashed code into the playground, once
func (h *Handlers) ClaimHandoff(c *gin.Context) {
	seeded, err := h.host.Seed(h.handoff)
	if err != nil {
		h.logger.Error("handoff claim failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "handoff claim failed"})
		return
	}
	if !seeded {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, h.response())
}

// MetricsSummary returns the JSON metrics summary
func (h *Handlers) MetricsSummary(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "metrics disabled"})
		return
	}
	c.JSON(http.StatusOK, h.metrics.GetSnapshot())
}

func (h *Handlers) response() PlaygroundResponse {
	snap := h.host.Snapshot()
	return PlaygroundResponse{
		Snapshot:    snap,
		EditorTheme: snap.Theme.EditorTheme(),
		Status:      h.host.Status(),
	}
}

func (h *Handlers) hostError(c *gin.Context, op string, err error) {
	if errors.Is(err, sandbox.ErrHostClosed) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	h.logger.Error("playground command failed", zap.String("op", op), zap.Error(err))
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}
