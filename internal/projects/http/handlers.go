package http

import (
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ocean-authoring/ocean-backend/internal/auth"
	"github.com/ocean-authoring/ocean-backend/internal/document"
	"github.com/ocean-authoring/ocean-backend/internal/logging"
	"github.com/ocean-authoring/ocean-backend/internal/projects/domain"
)

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	p, err := h.svc.Create(c.Request.Context(), domain.CreateProjectRequest{
		Owner: auth.OwnerID(c),
		Topic: req.Topic,
		Type:  req.Type,
	})
	if err != nil {
		writeError(c, "create_project", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": p})
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), auth.OwnerID(c))
	if err != nil {
		writeError(c, "list_projects", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "projects": items})
}

func (h *Handler) get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), auth.OwnerID(c), c.Param("id"))
	if err != nil {
		writeError(c, "get_project", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), auth.OwnerID(c), c.Param("id")); err != nil {
		writeError(c, "delete_project", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) outline(c *gin.Context) {
	sections, err := h.svc.BuildOutline(c.Request.Context(), auth.OwnerID(c), c.Param("id"))
	if err != nil {
		writeError(c, "build_outline", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "sections": sections})
}

func (h *Handler) generate(c *gin.Context) {
	var req generateReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Index == nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "index is required"})
		return
	}

	sec, err := h.svc.GenerateSection(c.Request.Context(), auth.OwnerID(c), c.Param("id"), *req.Index)
	if err != nil {
		writeError(c, "generate_section", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "content": sec.Content, "section": sec})
}

func (h *Handler) refine(c *gin.Context) {
	var req refineReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Index == nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "index is required"})
		return
	}

	sec, err := h.svc.RefineSection(c.Request.Context(), auth.OwnerID(c), c.Param("id"), *req.Index, req.Instruction)
	if err != nil {
		writeError(c, "refine_section", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "content": sec.Content, "section": sec})
}

func (h *Handler) feedback(c *gin.Context) {
	index, ok := sectionIndex(c)
	if !ok {
		return
	}
	var req feedbackReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	fb := ""
	if req.Feedback != nil {
		fb = *req.Feedback
	}

	sec, err := h.svc.SetFeedback(c.Request.Context(), auth.OwnerID(c), c.Param("id"), index, fb)
	if err != nil {
		writeError(c, "section_feedback", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "section": sec})
}

func (h *Handler) comment(c *gin.Context) {
	index, ok := sectionIndex(c)
	if !ok {
		return
	}
	var req commentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	sec, err := h.svc.AddComment(c.Request.Context(), auth.OwnerID(c), c.Param("id"), index, req.Comment)
	if err != nil {
		writeError(c, "section_comment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "section": sec})
}

func (h *Handler) export(c *gin.Context) {
	f, err := h.svc.Export(c.Request.Context(), auth.OwnerID(c), c.Param("id"))
	if err != nil {
		writeError(c, "export_project", err)
		return
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": f.Filename})
	c.Header("Content-Disposition", disposition)
	c.Data(http.StatusOK, f.MIMEType, f.Data)
}

func sectionIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "index must be an integer"})
		return 0, false
	}
	return index, true
}

// writeError maps service errors to status codes. Unknown errors are logged
// and reported without detail.
func writeError(c *gin.Context, op string, err error) {
	var ge *domain.GenerationError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
	case errors.As(err, &ge):
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": ge.Error()})
	case errors.Is(err, document.ErrUnsupportedType):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"ok": false, "error": err.Error()})
	default:
		logging.NewLogger(c.Request.Context()).LogError(op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
	}
}
