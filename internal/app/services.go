package app

import (
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/observability"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/logger"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/services"
)

type Services struct {
	Auth     services.AuthService
	User     services.UserService
	Chat     services.ChatService
	Analysis services.AnalysisService
}

func wireServices(log *logger.Logger, cfg Config, reposet Repos, clients Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")

	var cache services.AnalysisCache
	if clients.AnalysisCache != nil {
		cache = clients.AnalysisCache
	}

	return Services{
		Auth: services.NewAuthService(
			log,
			reposet.User,
			clients.Google,
			cfg.Auth.JWTSecret,
			cfg.Auth.Issuer,
			cfg.Auth.TokenTTL,
		),
		User: services.NewUserService(log, reposet.User),
		Chat: services.NewChatService(log, reposet.User, reposet.Conversation, clients.Gemini, metrics, services.ChatConfig{
			Model:           clients.Gemini.Model(),
			Timeout:         cfg.Gemini.Timeout,
			HistoryLimit:    cfg.Chat.HistoryLimit,
			MaxMessageChars: cfg.Chat.MaxMessageChars,
		}),
		Analysis: services.NewAnalysisService(log, clients.Gemini, cache, metrics, services.AnalysisConfig{
			Timeout:       cfg.Gemini.Timeout,
			MaxImageBytes: cfg.Analysis.MaxImageBytes,
		}),
	}
}
