package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/IchinoSanji/ArtVisionDeployFinal/internal/http/handlers"
	httpMW "github.com/IchinoSanji/ArtVisionDeployFinal/internal/http/middleware"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/observability"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/logger"
)

// An ID token is a few KiB.
const authBodyLimit = 64 << 10

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	AllowedOrigins []string
	// TracingService enables otelgin spans when non-empty.
	TracingService string

	AuthMiddleware *httpMW.AuthMiddleware
	RateLimiter    *httpMW.RateLimiter

	// Request body caps in bytes; zero uses httpMW.DefaultBodyLimit.
	ChatBodyLimit    int64
	AnalyzeBodyLimit int64

	AuthHandler    *httpH.AuthHandler
	ChatHandler    *httpH.ChatHandler
	AnalyzeHandler *httpH.AnalyzeHandler
	HealthHandler  *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingService != "" {
		r.Use(otelgin.Middleware(cfg.TracingService))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS(cfg.AllowedOrigins))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.OptionalAuth())
	}
	limited := cfg.RateLimiter.Middleware()

	{
		if cfg.HealthHandler != nil {
			api.GET("/tiers", cfg.HealthHandler.ListTiers)
		}

		// Auth
		if cfg.AuthHandler != nil {
			api.GET("/auth/user", cfg.AuthHandler.GetUser)
			api.POST("/auth/google", limited, httpMW.BodyLimit(authBodyLimit), cfg.AuthHandler.GoogleSignIn)
			api.POST("/auth/logout", cfg.AuthHandler.Logout)
		}

		// Chat
		if cfg.ChatHandler != nil {
			api.POST("/chat", limited, httpMW.BodyLimit(cfg.ChatBodyLimit), cfg.ChatHandler.Chat)
		}

		// Analysis
		if cfg.AnalyzeHandler != nil {
			api.POST("/analyze", limited, httpMW.BodyLimit(cfg.AnalyzeBodyLimit), cfg.AnalyzeHandler.Analyze)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}
		if cfg.ChatHandler != nil {
			protected.GET("/conversations", cfg.ChatHandler.ListConversations)
		}
	}

	return r
}
