package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/prompt-lab/internal/common"
	"github.com/suPer8Hu/prompt-lab/internal/config"
	"github.com/suPer8Hu/prompt-lab/internal/httpapi/handlers"
	"github.com/suPer8Hu/prompt-lab/internal/httpapi/middleware"
	"go.uber.org/zap"
)

type Deps struct {
	Handler *handlers.Handler
	// counts POST /experiments per client; nil uses an in-process limiter
	Limiter middleware.Limiter
	Log     *zap.Logger
}

func NewRouter(cfg config.Config, d Deps) *gin.Engine {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	limiter := d.Limiter
	if limiter == nil {
		limiter = middleware.NewMemoryLimiter()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	// ClientIP keys the rate limit, so forwarding headers count only when
	// they come from a configured proxy.
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Error("invalid trusted proxies, trusting none", zap.Strings("proxies", cfg.TrustedProxies), zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Idempotency-Key", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	h := d.Handler

	r.GET("/ping", h.Ping)
	r.GET("/health", h.Health)

	sessions := r.Group("/sessions")
	sessions.GET("", h.ListSessions)
	sessions.GET("/current", h.CurrentSession)
	sessions.POST("", h.CreateSession)
	sessions.PUT("/:id", h.RenameSession)
	sessions.PUT("/:id/current", h.SwitchSession)
	sessions.DELETE("/:id", h.DeleteSession)

	experimentLimit := middleware.RateLimit(limiter, "experiments", cfg.ExperimentRateLimit, time.Minute,
		"too many experiments created, please slow down", log)

	experiments := r.Group("/experiments")
	experiments.GET("", h.ListExperiments)
	experiments.GET("/jobs/:job_id", h.GetJob)
	experiments.GET("/:id", h.GetExperiment)
	experiments.GET("/:id/sessions", h.ListSessionExperiments)
	experiments.POST("", experimentLimit, h.AddExperiment)
	experiments.POST("/async", experimentLimit, h.AddExperimentAsync)
	experiments.PUT("/:id", h.UpdateExperiment)
	experiments.DELETE("/:id", h.DeleteExperiment)

	return r
}
