package projects

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbon-connect/portal-backend/internal/auth"
	"carbon-connect/portal-backend/pkg/httputil"
)

type Handler struct {
	registry Registry
	logger   *zap.Logger
}

func NewHandler(registry Registry, logger *zap.Logger) *Handler {
	return &Handler{registry: registry, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	projects := rg.Group("/projects")
	{
		projects.POST("", h.Register)
		projects.GET("", h.List)
		projects.GET("/pending", h.ListPending)
		projects.GET("/totals", h.Totals)
		projects.GET("/:id", h.Get)
		projects.GET("/:id/history", h.History)
	}
}

func (h *Handler) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.registry.Register(c.Request.Context(), auth.PrincipalFrom(c), input)
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

// List returns the registry, optionally filtered by ?status=.
func (h *Handler) List(c *gin.Context) {
	var (
		out []*Project
		err error
	)
	if status := c.Query("status"); status != "" {
		out, err = h.registry.ListByStatus(c.Request.Context(), auth.PrincipalFrom(c), status)
	} else {
		out, err = h.registry.List(c.Request.Context(), auth.PrincipalFrom(c))
	}
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": out})
}

func (h *Handler) ListPending(c *gin.Context) {
	out, err := h.registry.ListPending(c.Request.Context(), auth.PrincipalFrom(c))
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": out})
}

func (h *Handler) Totals(c *gin.Context) {
	totals, err := h.registry.Totals(c.Request.Context(), auth.PrincipalFrom(c))
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, totals)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	project, err := h.registry.Get(c.Request.Context(), auth.PrincipalFrom(c), id)
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *Handler) History(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	history, err := h.registry.History(c.Request.Context(), auth.PrincipalFrom(c), id)
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}
