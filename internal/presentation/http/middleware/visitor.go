package middleware

import (
	"github.com/gin-gonic/gin"
)

// VisitorKeyContext is the gin context key carrying the visitor key.
const VisitorKeyContext = "visitorKey"

// VisitorKey derives the per-visitor key from the client address. The widget
// is anonymous, so the address is the only stable identity available; gin's
// ClientIP honors trusted proxy headers.
func VisitorKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if key == "" {
			key = "unknown"
		}
		c.Set(VisitorKeyContext, key)
		c.Next()
	}
}
