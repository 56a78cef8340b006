package reports

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbon-connect/portal-backend/internal/auth"
	"carbon-connect/portal-backend/internal/reports/export"
	"carbon-connect/portal-backend/pkg/httputil"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers Report routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/accounts/:id/statement", h.Statement)
}

// Statement serves ?format=csv|xlsx|pdf as an attachment.
func (h *Handler) Statement(c *gin.Context) {
	format, ok := export.ParseFormat(c.Query("format"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv, xlsx or pdf", "field": "format"})
		return
	}

	file, err := h.service.Statement(c.Request.Context(), auth.PrincipalFrom(c), c.Param("id"), format)
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Body)
}
