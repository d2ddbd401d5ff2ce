package handler

import (
	"net/http"

	"github.com/boron/funnel-service/internal/funnel/repository"
	"github.com/boron/funnel-service/internal/funnel/rules"
	"github.com/boron/funnel-service/internal/funnel/service"
	"github.com/gin-gonic/gin"
)

type funnelResponse struct {
	*service.Funnel
	Validation rules.Report `json:"validation"`
}

func (h *Handler) respondFunnel(c *gin.Context, status int, f *service.Funnel) {
	c.JSON(status, funnelResponse{Funnel: f, Validation: h.engine.Lint(f.Document)})
}

func (h *Handler) listFunnels(c *gin.Context) {
	status := repository.Status(c.Query("status"))
	if status != "" && !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be one of draft, published, archived"})
		return
	}
	list, err := h.svc.List(c.Request.Context(), status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"funnels": list})
}

func (h *Handler) createFunnel(c *gin.Context) {
	doc, ok := parseBody(c)
	if !ok {
		return
	}
	f, err := h.svc.Create(c.Request.Context(), doc)
	if err != nil {
		fail(c, err)
		return
	}
	h.respondFunnel(c, http.StatusCreated, f)
}

func (h *Handler) getFunnel(c *gin.Context) {
	f, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	h.respondFunnel(c, http.StatusOK, f)
}

func (h *Handler) saveFunnel(c *gin.Context) {
	doc, ok := parseBody(c)
	if !ok {
		return
	}
	f, err := h.svc.Save(c.Request.Context(), c.Param("id"), doc)
	if err != nil {
		fail(c, err)
		return
	}
	h.respondFunnel(c, http.StatusOK, f)
}

type renameRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) renameFunnel(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	f, err := h.svc.Rename(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	h.respondFunnel(c, http.StatusOK, f)
}

func (h *Handler) deleteFunnel(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) publishFunnel(c *gin.Context) {
	f, err := h.svc.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	h.respondFunnel(c, http.StatusOK, f)
}

func (h *Handler) archiveFunnel(c *gin.Context) {
	f, err := h.svc.Archive(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	h.respondFunnel(c, http.StatusOK, f)
}

func (h *Handler) duplicateFunnel(c *gin.Context) {
	f, err := h.svc.Duplicate(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	h.respondFunnel(c, http.StatusCreated, f)
}

func (h *Handler) previewFunnel(c *gin.Context) {
	f, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	page, err := h.pipeline.RenderPage(f.Document)
	if err != nil {
		fail(c, err)
		return
	}
	writeHTML(c, page)
}
