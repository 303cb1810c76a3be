package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireWebSocket rejects plain HTTP requests on feed endpoints.
func RequireWebSocket() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
			c.AbortWithStatus(http.StatusUpgradeRequired)
			return
		}
		c.Next()
	}
}
