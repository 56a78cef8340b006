package verification

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbon-connect/portal-backend/internal/auth"
	"carbon-connect/portal-backend/pkg/httputil"
)

type Handler struct {
	workflow Workflow
	logger   *zap.Logger
}

func NewHandler(workflow Workflow, logger *zap.Logger) *Handler {
	return &Handler{workflow: workflow, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	review := rg.Group("/projects/:id")
	{
		review.POST("/approve", h.Approve)
		review.POST("/reject", h.Reject)
		review.POST("/promote", h.Promote)
		review.POST("/mints", h.RequestMint)
		review.GET("/mints", h.ListMints)
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) Approve(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	project, err := h.workflow.Approve(c.Request.Context(), auth.PrincipalFrom(c), id)
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *Handler) Reject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input RejectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	project, err := h.workflow.Reject(c.Request.Context(), auth.PrincipalFrom(c), id, input.Reason)
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *Handler) Promote(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	project, err := h.workflow.Promote(c.Request.Context(), auth.PrincipalFrom(c), id)
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *Handler) RequestMint(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input MintInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	record, err := h.workflow.RequestMint(c.Request.Context(), auth.PrincipalFrom(c), id, input)
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (h *Handler) ListMints(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	records, err := h.workflow.Mints(c.Request.Context(), auth.PrincipalFrom(c), id)
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mints": records})
}
