package oversight

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbon-connect/portal-backend/internal/auth"
	"carbon-connect/portal-backend/internal/notifications/websocket"
	"carbon-connect/portal-backend/pkg/httputil"
)

const defaultFeedLimit = 20

type Handler struct {
	service Service
	stream  *websocket.Manager
	logger  *zap.Logger
}

// NewHandler creates the oversight handler. stream may be nil, in which case
// the live endpoint answers 503.
func NewHandler(service Service, stream *websocket.Manager, logger *zap.Logger) *Handler {
	return &Handler{service: service, stream: stream, logger: logger}
}

// RegisterRoutes registers Oversight routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/oversight")
	{
		group.GET("/summary", h.Summary)
		group.GET("/feed", h.Feed)
		group.GET("/stream", h.Stream)
	}
}

func (h *Handler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context(), auth.PrincipalFrom(c))
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) Feed(c *gin.Context) {
	limit := defaultFeedLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	events, err := h.service.Recent(c.Request.Context(), auth.PrincipalFrom(c), limit)
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

// Stream upgrades to a websocket carrying every published event.
func (h *Handler) Stream(c *gin.Context) {
	actor := auth.PrincipalFrom(c)
	if err := auth.Require(actor, auth.RoleAdmin, auth.RoleGov); err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}
	if h.stream == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live stream disabled"})
		return
	}

	if _, err := h.stream.HandleConnection(c.Writer, c.Request, actor.UserID); err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.String("user_id", actor.UserID), zap.Error(err))
	}
}
