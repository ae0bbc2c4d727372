package app

import (
	"fmt"

	apihttp "github.com/IchinoSanji/ArtVisionDeployFinal/internal/http"
	httpH "github.com/IchinoSanji/ArtVisionDeployFinal/internal/http/handlers"
	httpMW "github.com/IchinoSanji/ArtVisionDeployFinal/internal/http/middleware"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/observability"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/logger"
)

type Middleware struct {
	Auth      *httpMW.AuthMiddleware
	RateLimit *httpMW.RateLimiter
}

type Handlers struct {
	Health  *httpH.HealthHandler
	Auth    *httpH.AuthHandler
	Chat    *httpH.ChatHandler
	Analyze *httpH.AnalyzeHandler
}

func wireMiddleware(log *logger.Logger, cfg Config, services Services, metrics *observability.Metrics) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
		RateLimit: httpMW.NewRateLimiter(httpMW.RateLimitConfig{
			Enabled:   cfg.RateLimit.Enabled,
			PerMinute: cfg.RateLimit.PerMinute,
			Burst:     cfg.RateLimit.Burst,
		}, metrics),
	}
}

func wireHandlers(log *logger.Logger, cfg Config, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(),
		Auth: httpH.NewAuthHandler(services.Auth, services.User, httpH.CookieConfig{
			Secure: cfg.Auth.CookieSecure,
			Domain: cfg.Auth.CookieDomain,
		}),
		Chat:    httpH.NewChatHandler(services.Chat),
		Analyze: httpH.NewAnalyzeHandler(services.Analysis),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *apihttp.Server {
	var tracing string
	if cfg.Otel.Enabled {
		tracing = cfg.Otel.ServiceName
	}
	return apihttp.NewServer(fmt.Sprintf(":%d", cfg.Server.Port), apihttp.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		AllowedOrigins: cfg.CORS.Origins(),
		TracingService: tracing,
		AuthMiddleware: middleware.Auth,
		RateLimiter:    middleware.RateLimit,

		ChatBodyLimit:    cfg.Chat.MaxBodyBytes,
		AnalyzeBodyLimit: cfg.Analysis.MaxBodyBytes(),

		AuthHandler:    handlers.Auth,
		ChatHandler:    handlers.Chat,
		AnalyzeHandler: handlers.Analyze,
		HealthHandler:  handlers.Health,
	})
}
