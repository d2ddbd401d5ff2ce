package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/boron/funnel-service/internal/funnel"
	"github.com/boron/funnel-service/internal/funnel/producer"
	"github.com/boron/funnel-service/internal/funnel/rules"
	"github.com/boron/funnel-service/internal/funnel/schema"
	"github.com/boron/funnel-service/internal/funnel/service"
	"github.com/boron/funnel-service/internal/funnel/store"
	"github.com/boron/funnel-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// sessionResponse is the body of every session route. Validation is null
// while the session holds no funnel.
type sessionResponse struct {
	Document   *funnel.Document `json:"funnel"`
	Metadata   store.Metadata   `json:"metadata"`
	Validation *rules.Report    `json:"validation"`
}

func (h *Handler) session(c *gin.Context) (*store.Store, bool) {
	st, err := h.sessions.Get(c.Request.Context(), c.Param("sid"))
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return st, true
}

// existing looks the session up without registering a new one; st is nil
// when the session is unknown.
func (h *Handler) existing(c *gin.Context) (*store.Store, bool) {
	st, err := h.sessions.Find(c.Request.Context(), c.Param("sid"))
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return st, true
}

// loaded is existing plus a 404 when no funnel is loaded.
func (h *Handler) loaded(c *gin.Context) (*store.Store, *funnel.Document, bool) {
	st, ok := h.existing(c)
	if !ok {
		return nil, nil, false
	}
	var doc *funnel.Document
	if st != nil {
		doc = st.Document()
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no funnel in session"})
		return nil, nil, false
	}
	return st, doc, true
}

// persist stores the session snapshot. The in-process store stays
// authoritative, so a failed write is logged and the request still succeeds.
func (h *Handler) persist(c *gin.Context) {
	if err := h.sessions.Persist(c.Request.Context(), c.Param("sid")); err != nil {
		logger.L().Error("persist session", zap.String("sid", c.Param("sid")), zap.Error(err))
	}
}

func (h *Handler) respondSession(c *gin.Context, status int, st *store.Store) {
	var snap store.Snapshot
	if st != nil {
		snap = st.Snapshot()
	}
	resp := sessionResponse{Document: snap.Document, Metadata: snap.Metadata}
	if snap.Document != nil {
		rep := h.engine.Lint(snap.Document)
		resp.Validation = &rep
	}
	c.JSON(status, resp)
}

func (h *Handler) getSession(c *gin.Context) {
	if st, ok := h.existing(c); ok {
		h.respondSession(c, http.StatusOK, st)
	}
}

func (h *Handler) setSession(c *gin.Context) {
	st, ok := h.session(c)
	if !ok {
		return
	}
	doc, ok := parseBody(c)
	if !ok {
		return
	}
	st.SetDocument(doc)
	h.persist(c)
	h.respondSession(c, http.StatusOK, st)
}

func (h *Handler) clearSession(c *gin.Context) {
	st, ok := h.existing(c)
	if !ok {
		return
	}
	if st != nil {
		st.Clear()
		h.persist(c)
	}
	h.respondSession(c, http.StatusOK, st)
}

type ingestRequest struct {
	Completion string `json:"completion" binding:"required"`
}

type ingestResponse struct {
	producer.Outcome
	Metadata store.Metadata `json:"metadata"`
}

// ingest runs a model completion through the producer. Rejected completions
// still answer 200; the outcome carries the warning and issues.
func (h *Handler) ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, ok := h.session(c)
	if !ok {
		return
	}
	out := producer.Ingest(st, h.engine, req.Completion)
	if out.Produced {
		h.persist(c)
	}
	c.JSON(http.StatusOK, ingestResponse{Outcome: out, Metadata: st.Metadata()})
}

type insertRequest struct {
	Block json.RawMessage `json:"block" binding:"required"`
	Index *int            `json:"index"`
}

func (h *Handler) insertBlock(c *gin.Context) {
	var req insertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, doc, ok := h.loaded(c)
	if !ok {
		return
	}
	block, issues := schema.ValidateBlock(req.Block)
	if len(issues) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid block", "issues": issues})
		return
	}
	if doc.IndexOf(block.ID) >= 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "block id already in funnel: " + block.ID})
		return
	}
	if req.Index != nil {
		st.InsertBlockAt(block, *req.Index)
	} else {
		st.InsertBlock(block)
	}
	h.persist(c)
	h.respondSession(c, http.StatusCreated, st)
}

// patchBlock merges the patch, checks the merged payload against the block's
// schema and only then hands the patch to the store.
func (h *Handler) patchBlock(c *gin.Context) {
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, doc, ok := h.loaded(c)
	if !ok {
		return
	}
	id := c.Param("blockId")
	i := doc.IndexOf(id)
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "block not found: " + id})
		return
	}
	b := doc.Blocks[i]
	merged, err := funnel.MergeProps(b.Type, b.Props, patch)
	if err != nil {
		fail(c, err)
		return
	}
	m, err := funnel.PropsMap(merged)
	if err != nil {
		fail(c, err)
		return
	}
	if _, issues := schema.ValidateProps(b.Type, m); len(issues) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid props", "issues": issues})
		return
	}
	if err := st.UpdateBlockProps(id, patch); err != nil {
		fail(c, err)
		return
	}
	h.persist(c)
	h.respondSession(c, http.StatusOK, st)
}

func (h *Handler) deleteBlock(c *gin.Context) {
	st, doc, ok := h.loaded(c)
	if !ok {
		return
	}
	id := c.Param("blockId")
	if doc.IndexOf(id) < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "block not found: " + id})
		return
	}
	st.DeleteBlock(id)
	h.persist(c)
	h.respondSession(c, http.StatusOK, st)
}

type reorderRequest struct {
	From *int `json:"from" binding:"required"`
	To   *int `json:"to" binding:"required"`
}

func (h *Handler) reorderBlocks(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, doc, ok := h.loaded(c)
	if !ok {
		return
	}
	n := len(doc.Blocks)
	if *req.From < 0 || *req.From >= n || *req.To < 0 || *req.To >= n {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index out of range"})
		return
	}
	st.ReorderBlocks(*req.From, *req.To)
	h.persist(c)
	h.respondSession(c, http.StatusOK, st)
}

func (h *Handler) renderSession(c *gin.Context) {
	_, doc, ok := h.loaded(c)
	if !ok {
		return
	}
	nodes := h.pipeline.Render(doc)
	placeholders := 0
	for _, n := range nodes {
		if n.Placeholder {
			placeholders++
		}
	}
	c.JSON(http.StatusOK, gin.H{"nodes": nodes, "placeholders": placeholders})
}

func (h *Handler) previewSession(c *gin.Context) {
	_, doc, ok := h.loaded(c)
	if !ok {
		return
	}
	page, err := h.pipeline.RenderPage(doc)
	if err != nil {
		fail(c, err)
		return
	}
	writeHTML(c, page)
}

// saveSession writes the session funnel to the repository, creating the
// stored funnel on first save.
func (h *Handler) saveSession(c *gin.Context) {
	_, doc, ok := h.loaded(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	f, err := h.svc.Save(ctx, doc.ID, doc)
	status := http.StatusOK
	if errors.Is(err, service.ErrNotFound) {
		f, err = h.svc.Create(ctx, doc)
		status = http.StatusCreated
	}
	if err != nil {
		fail(c, err)
		return
	}
	h.respondFunnel(c, status, f)
}

type openRequest struct {
	ID string `json:"id" binding:"required"`
}

// openSession loads a stored funnel into the session.
func (h *Handler) openSession(c *gin.Context) {
	var req openRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, ok := h.session(c)
	if !ok {
		return
	}
	f, err := h.svc.Get(c.Request.Context(), req.ID)
	if err != nil {
		fail(c, err)
		return
	}
	st.SetDocument(f.Document)
	h.persist(c)
	h.respondSession(c, http.StatusOK, st)
}
