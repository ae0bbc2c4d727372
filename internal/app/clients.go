package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/clients/redis"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/observability"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/gemini"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/logger"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/services"
)

type Clients struct {
	Gemini *gemini.Client
	// AnalysisCache is nil when redis.addr is unset.
	AnalysisCache redis.AnalysisCache
	// Google is nil when auth.google_client_id is unset.
	Google services.OIDCVerifier
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config, metrics *observability.Metrics) (Clients, error) {
	log.Info("Wiring clients...")

	gem, err := gemini.New(ctx, gemini.Config{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
	}, log, metrics)
	if err != nil {
		return Clients{}, fmt.Errorf("init gemini: %w", err)
	}

	var cache redis.AnalysisCache
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		c, err := redis.NewAnalysisCache(redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.Redis.TTL,
		}, log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis analysis cache: %w", err)
		}
		cache = c
	} else {
		log.Info("Analysis cache disabled (REDIS_ADDR unset)")
	}

	var google services.OIDCVerifier
	if strings.TrimSpace(cfg.Auth.GoogleClientID) != "" {
		v, err := services.NewOIDCVerifier(services.OIDCConfig{GoogleClientID: cfg.Auth.GoogleClientID})
		if err != nil {
			return Clients{}, fmt.Errorf("init google verifier: %w", err)
		}
		google = v
	} else {
		log.Warn("Google sign-in disabled (AUTH_GOOGLE_CLIENT_ID unset)")
	}

	return Clients{Gemini: gem, AnalysisCache: cache, Google: google}, nil
}

func (c Clients) Close() {
	if c.AnalysisCache != nil {
		_ = c.AnalysisCache.Close()
	}
}
