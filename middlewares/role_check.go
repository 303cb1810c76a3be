package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-order/services"
	"github.com/yeremiapane/table-order/utils"
)

// AdminOnly lets the request through only when the visitor unlocked the
// dashboard with the PIN. Must run after VisitorSession.
func AdminOnly(gate *services.AdminGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		store := StoreFrom(c)
		if store == nil || !gate.IsUnlocked(store) {
			utils.RespondError(c, http.StatusUnauthorized, services.ErrAdminLocked)
			c.Abort()
			return
		}
		c.Next()
	}
}
