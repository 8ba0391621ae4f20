package api

import (
	"context"
	"net/http"
	"time"

	"menu-scorecard/internal/common/logger"
	"menu-scorecard/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	AllowedOrigins []string
	// Limiter guards the routes that start an analysis. Nil disables limiting.
	Limiter ratelimit.Limiter
	// Ready reports whether dependencies are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

func NewRouter(h *Handler, cfg RouterConfig, log logger.Logger) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = h.opts.MaxUploadBytes

	r.Use(Recovery(h.errs))
	r.Use(RequestLogger(log))
	r.Use(CORS(cfg.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "menu-scorecard"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if cfg.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := cfg.Ready(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limit := func(route string) gin.HandlerFunc {
		if cfg.Limiter == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return RateLimit(cfg.Limiter, route, h.errs, log)
	}

	v1 := r.Group("/api/v1")
	{
		v1.GET("/disclosure", h.Disclosure)
		v1.POST("/analyze", limit("analyze"), h.Analyze)

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", h.CreateSession)
			sessions.GET("/:id", h.GetSession())
			sessions.DELETE("/:id", h.DeleteSession)
			sessions.POST("/:id/reset", h.Reset())
			sessions.POST("/:id/upload", limit("upload"), h.Upload())

			sessions.POST("/:id/camera/start", h.StartCamera())
			sessions.POST("/:id/camera/cancel", h.CancelCamera())
			sessions.POST("/:id/camera/capture", limit("capture"), h.CapturePhoto())

			sessions.POST("/:id/quick-wins/next", h.NextQuickWin())
			sessions.POST("/:id/quick-wins/prev", h.PrevQuickWin())
			sessions.PUT("/:id/quick-wins/:index", h.JumpQuickWin())

			sessions.POST("/:id/wizard/category", h.ChooseCategory())
			sessions.POST("/:id/wizard/revenue", h.ChooseRevenue())
			sessions.POST("/:id/wizard/skip", h.WizardSkip())
			sessions.POST("/:id/wizard/next", h.WizardNext())
			sessions.POST("/:id/wizard/back", h.WizardBack())
			sessions.POST("/:id/wizard/country", h.SetCountry())
			sessions.POST("/:id/wizard/submit", h.SubmitLead())
		}
	}

	return r
}
