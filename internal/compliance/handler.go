package compliance

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbon-connect/portal-backend/internal/auth"
	"carbon-connect/portal-backend/pkg/httputil"
)

type Handler struct {
	ledger  Ledger
	monitor *Monitor
	logger  *zap.Logger
}

func NewHandler(ledger Ledger, monitor *Monitor, logger *zap.Logger) *Handler {
	return &Handler{ledger: ledger, monitor: monitor, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	accounts := rg.Group("/accounts")
	{
		accounts.POST("", h.OpenAccount)
		accounts.GET("", h.ListAccounts)
		accounts.POST("/sweep", h.Sweep)
		accounts.GET("/:id", h.Balance)
		accounts.POST("/:id/allocations", h.Allocate)
		accounts.POST("/:id/emissions", h.LogEmission)
		accounts.GET("/:id/emissions", h.Logs)
		accounts.GET("/:id/purchases", h.Purchases)
	}
}

func (h *Handler) OpenAccount(c *gin.Context) {
	var input OpenAccountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	account, err := h.ledger.OpenAccount(c.Request.Context(), auth.PrincipalFrom(c), input)
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (h *Handler) ListAccounts(c *gin.Context) {
	reports, err := h.ledger.Accounts(c.Request.Context(), auth.PrincipalFrom(c))
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": reports})
}

// Sweep runs the compliance monitor on demand.
func (h *Handler) Sweep(c *gin.Context) {
	if err := auth.Require(auth.PrincipalFrom(c), auth.RoleAdmin); err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}
	result, err := h.monitor.Sweep(c.Request.Context())
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Balance(c *gin.Context) {
	report, err := h.ledger.Balance(c.Request.Context(), auth.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) Allocate(c *gin.Context) {
	var input AllocateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	account, err := h.ledger.Allocate(c.Request.Context(), auth.PrincipalFrom(c), c.Param("id"), input.Amount)
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *Handler) LogEmission(c *gin.Context) {
	var input LogEmissionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	account, err := h.ledger.LogEmission(c.Request.Context(), auth.PrincipalFrom(c), c.Param("id"), input)
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, h.ledger.Policy().Report(account))
}

func (h *Handler) Logs(c *gin.Context) {
	entries, err := h.ledger.Logs(c.Request.Context(), auth.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": entries})
}

func (h *Handler) Purchases(c *gin.Context) {
	purchases, err := h.ledger.Purchases(c.Request.Context(), auth.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchases": purchases})
}
