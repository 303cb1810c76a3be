package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-order/utils"
)

func OrderLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		table := c.Query("table")
		utils.InfoLogger.Printf("Placing order for table %s", table)

		c.Next()

		if c.Writer.Status() < 300 {
			utils.InfoLogger.Printf("Order placed for table %s", table)
		} else {
			utils.ErrorLogger.Printf("Failed to place order for table %s (%d)", table, c.Writer.Status())
		}
	}
}
