// Package handler exposes stored funnels and editor sessions over HTTP.
package handler

import (
	"errors"
	"net/http"

	"github.com/boron/funnel-service/internal/funnel"
	"github.com/boron/funnel-service/internal/funnel/render"
	"github.com/boron/funnel-service/internal/funnel/rules"
	"github.com/boron/funnel-service/internal/funnel/schema"
	"github.com/boron/funnel-service/internal/funnel/service"
	"github.com/boron/funnel-service/internal/funnel/store"
	"github.com/boron/funnel-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	svc         service.Service
	sessions    *store.Sessions
	engine      *rules.Engine
	pipeline    *render.Pipeline
	ingestLimit gin.HandlerFunc
}

type Option func(*Handler)

func WithEngine(e *rules.Engine) Option { return func(h *Handler) { h.engine = e } }

func WithPipeline(p *render.Pipeline) Option { return func(h *Handler) { h.pipeline = p } }

// WithIngestLimiter guards the ingest route, which is the expensive one.
func WithIngestLimiter(mw gin.HandlerFunc) Option { return func(h *Handler) { h.ingestLimit = mw } }

func New(svc service.Service, sessions *store.Sessions, opts ...Option) *Handler {
	h := &Handler{svc: svc, sessions: sessions, engine: rules.Default(), pipeline: render.Default()}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Register mounts every route under /api.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.POST("/validate", h.validate)

	f := api.Group("/funnels")
	f.GET("", h.listFunnels)
	f.POST("", h.createFunnel)
	f.GET("/:id", h.getFunnel)
	f.PUT("/:id", h.saveFunnel)
	f.PATCH("/:id", h.renameFunnel)
	f.DELETE("/:id", h.deleteFunnel)
	f.POST("/:id/publish", h.publishFunnel)
	f.POST("/:id/archive", h.archiveFunnel)
	f.POST("/:id/duplicate", h.duplicateFunnel)
	f.GET("/:id/preview", h.previewFunnel)

	s := api.Group("/sessions/:sid")
	ingest := []gin.HandlerFunc{h.ingest}
	if h.ingestLimit != nil {
		ingest = append([]gin.HandlerFunc{h.ingestLimit}, ingest...)
	}
	s.POST("/ingest", ingest...)
	s.GET("/funnel", h.getSession)
	s.PUT("/funnel", h.setSession)
	s.DELETE("/funnel", h.clearSession)
	s.POST("/funnel/blocks", h.insertBlock)
	s.PATCH("/funnel/blocks/:blockId", h.patchBlock)
	s.DELETE("/funnel/blocks/:blockId", h.deleteBlock)
	s.POST("/funnel/reorder", h.reorderBlocks)
	s.GET("/funnel/render", h.renderSession)
	s.GET("/funnel/preview", h.previewSession)
	s.POST("/funnel/save", h.saveSession)
	s.POST("/funnel/open", h.openSession)
}

// validate checks an arbitrary body and lints it when it parses.
func (h *Handler) validate(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res := schema.ValidateJSON(body)
	if !res.OK() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"valid": false, "issues": res.Issues})
		return
	}
	rep := h.engine.Lint(res.Document)
	c.JSON(http.StatusOK, gin.H{"valid": rep.Valid, "funnel": res.Document, "validation": rep})
}

// parseBody validates the request body as a whole document, writing a 422
// with the issues when it does not pass.
func parseBody(c *gin.Context) (*funnel.Document, bool) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	res := schema.ValidateJSON(body)
	if !res.OK() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid funnel", "issues": res.Issues})
		return nil, false
	}
	return res.Document, true
}

// fail maps service and validation errors to status codes.
func fail(c *gin.Context, err error) {
	var verr *schema.ValidationError
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrIDMismatch), errors.Is(err, service.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid funnel", "issues": verr.Issues})
	case errors.Is(err, funnel.ErrInvalidPatch):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		logger.L().Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func writeHTML(c *gin.Context, page []byte) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}
