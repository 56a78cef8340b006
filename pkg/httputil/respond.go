package httputil

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbon-connect/portal-backend/pkg/apperrors"
)

// RespondError writes err as a JSON error body with the status its code maps to.
// Internal errors are logged; their message is not echoed to the caller.
func RespondError(c *gin.Context, logger *zap.Logger, err error) {
	code := apperrors.CodeOf(err)
	status := apperrors.HTTPStatus(code)

	if code == apperrors.CodeInternal {
		logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("method", c.Request.Method),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error", "code": code})
		return
	}

	body := gin.H{"error": err.Error(), "code": code}
	if field := apperrors.FieldOf(err); field != "" {
		body["field"] = field
	}
	c.JSON(status, body)
}
