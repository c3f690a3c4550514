package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hutfut/joshbot-go/internal/application/services"
	"github.com/hutfut/joshbot-go/internal/infrastructure/observability/logging"
)

// SysOpHandlers serves the operator endpoints.
type SysOpHandlers struct {
	sysopService *services.SysOpService
	logger       *logging.ChanneledLogger
}

// NewSysOpHandlers creates sysop handlers with injected dependencies.
func NewSysOpHandlers(sysopService *services.SysOpService, logger *logging.ChanneledLogger) *SysOpHandlers {
	return &SysOpHandlers{sysopService: sysopService, logger: logger}
}

// Login handles POST /api/sysop/login.
func (h *SysOpHandlers) Login(c *gin.Context) {
	var body struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
		return
	}

	token, err := h.sysopService.Login(body.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// SysOpAuthMiddleware guards the authenticated operator endpoints.
func (h *SysOpHandlers) SysOpAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		if err := h.sysopService.ValidateToken(token); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}

// GetLogLevels handles GET /api/sysop/logs/levels.
func (h *SysOpHandlers) GetLogLevels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"levels": h.sysopService.GetLogLevels()})
}

// SetLogLevel handles POST /api/sysop/logs/levels.
func (h *SysOpHandlers) SetLogLevel(c *gin.Context) {
	var body struct {
		Channel string `json:"channel" binding:"required"`
		Level   string `json:"level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel and level are required"})
		return
	}

	if err := h.sysopService.SetLogLevel(body.Channel, body.Level); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel": body.Channel, "level": body.Level})
}

// GetIncidents handles GET /api/sysop/incidents.
func (h *SysOpHandlers) GetIncidents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	incidents, err := h.sysopService.RecentIncidents(c.Request.Context(), limit)
	if err != nil {
		h.logger.Database().Error("Failed to list incidents", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "audit trail unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"incidents": incidents})
}

// GetStats handles GET /api/sysop/stats.
func (h *SysOpHandlers) GetStats(c *gin.Context) {
	stats, err := h.sysopService.GatewayStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats unavailable"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
