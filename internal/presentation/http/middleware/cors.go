package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware provides CORS configuration for the widget origins.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{
			"http://localhost:3000",
			"http://localhost:5173",
			"http://127.0.0.1:3000",
			"http://127.0.0.1:5173",
		}
	}

	config := cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization", "Cache-Control",
		},
		AllowCredentials: true,
		// The widget reads the conversation id and source label off the
		// response, so both must be exposed.
		ExposeHeaders: []string{
			"Content-Type", "Cache-Control", "Connection",
			"X-Conversation-ID", "X-Response-Source", "Retry-After",
		},
	}

	return cors.New(config)
}
