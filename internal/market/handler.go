package market

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbon-connect/portal-backend/pkg/httputil"
)

type Handler struct {
	market Market
	logger *zap.Logger
}

func NewHandler(market Market, logger *zap.Logger) *Handler {
	return &Handler{market: market, logger: logger}
}

// RegisterRoutes registers the catalog on the authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/market/packages", h.Catalog)
}

// RegisterWebhook registers the payment callback. It authenticates by
// signature, not bearer token, so it belongs on an unauthenticated group.
func (h *Handler) RegisterWebhook(rg *gin.RouterGroup) {
	rg.POST("/webhooks/payments", h.ConfirmPurchase)
}

func (h *Handler) Catalog(c *gin.Context) {
	packages := h.market.Catalog()
	out := make([]gin.H, len(packages))
	for i, p := range packages {
		out[i] = gin.H{
			"id":               p.ID,
			"label":            p.Label,
			"amount":           p.Amount,
			"price":            p.Price,
			"currency":         p.Currency,
			"best_value":       p.BestValue,
			"price_per_credit": p.PricePerCredit(),
		}
	}
	c.JSON(http.StatusOK, gin.H{"packages": out})
}

func (h *Handler) ConfirmPurchase(c *gin.Context) {
	var confirmation Confirmation
	if err := c.ShouldBindJSON(&confirmation); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := h.market.ConfirmPurchase(c.Request.Context(), confirmation)
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}

	status := http.StatusCreated
	if !receipt.Applied {
		status = http.StatusOK
	}
	c.JSON(status, receipt)
}
