package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-order/utils"
)

// PaymentHeaders keeps pages carrying UPI links out of shared caches.
func PaymentHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Referrer-Policy", "no-referrer")
		c.Next()
	}
}

// LogPaymentAttempt logs the honor-system "I paid" taps.
func LogPaymentAttempt() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		utils.InfoLogger.Printf(
			"Payment attempt - Order: %s, Status: %d, Duration: %v",
			c.Param("id"), c.Writer.Status(), time.Since(start),
		)
	}
}
