// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/hutfut/joshbot-go/internal/application/container"
	"github.com/hutfut/joshbot-go/internal/presentation/http/handlers"
	"github.com/hutfut/joshbot-go/internal/presentation/http/middleware"
	"github.com/hutfut/joshbot-go/pkg/config"
)

// SetupRoutes configures all HTTP routes and middleware with dependency
// injection.
func SetupRoutes(c *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware(config.AllowedOrigins))
	r.Use(middleware.VisitorKey())

	chatHandlers := handlers.NewChatHandlers(c.ChatService, c.Logger)
	healthHandlers := handlers.NewHealthHandlers(c.SysOpService, c.DurableAdmission)
	sysopHandlers := handlers.NewSysOpHandlers(c.SysOpService, c.Logger)

	api := r.Group("/api/v1")
	{
		api.POST("/chat", chatHandlers.PostChat)
		api.GET("/chat/greeting", chatHandlers.GetGreeting)
		api.GET("/chat/config", chatHandlers.GetConfig)
		api.GET("/health", healthHandlers.GetHealth)
	}

	if c.SysOpService.Enabled() {
		sysopAPI := r.Group("/api/sysop")
		{
			sysopAPI.POST("/login", sysopHandlers.Login)

			sysopAPI.Use(sysopHandlers.SysOpAuthMiddleware())
			{
				sysopAPI.GET("/logs/levels", sysopHandlers.GetLogLevels)
				sysopAPI.POST("/logs/levels", sysopHandlers.SetLogLevel)
				sysopAPI.GET("/incidents", sysopHandlers.GetIncidents)
				sysopAPI.GET("/stats", sysopHandlers.GetStats)
			}
		}
	}

	return r
}
