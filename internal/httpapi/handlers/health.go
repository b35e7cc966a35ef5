package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/prompt-lab/internal/common"
	"github.com/suPer8Hu/prompt-lab/internal/httpapi/middleware"
	"go.uber.org/zap"
)

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"message": "pong"})
}

// Health reports ok when the database answers a ping.
func (h *Handler) Health(c *gin.Context) {
	now := time.Now().UTC().Format(time.RFC3339)
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		sqlDB, err := h.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			h.Log.Warn("health check failed",
				zap.String("request_id", middleware.GetRequestID(c)),
				zap.Error(err),
			)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"code":    50300,
				"message": "database unavailable",
				"data":    gin.H{"status": "degraded", "timestamp": now},
			})
			return
		}
	}
	common.OK(c, gin.H{"status": "ok", "timestamp": now})
}
