package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/observability"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/apierr"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/logger"
)

const defaultImageMime = "image/jpeg"

var dataURLPrefix = regexp.MustCompile(`^data:(image/[A-Za-z0-9.+-]+);base64,`)

// AnalysisCache is an optional store of parsed analyses keyed by image bytes.
type AnalysisCache interface {
	Get(ctx context.Context, image []byte) (map[string]any, bool, error)
	Set(ctx context.Context, image []byte, analysis map[string]any) error
}

type AnalysisConfig struct {
	Timeout       time.Duration
	MaxImageBytes int
}

type AnalysisService interface {
	Analyze(ctx context.Context, imageBase64 string) (map[string]any, error)
}

type analysisService struct {
	log     *logger.Logger
	gen     Generator
	cache   AnalysisCache
	metrics *observability.Metrics
	cfg     AnalysisConfig
}

// NewAnalysisService builds the stateless image analyzer. cache may be nil.
func NewAnalysisService(baseLog *logger.Logger, gen Generator, cache AnalysisCache, metrics *observability.Metrics, cfg AnalysisConfig) AnalysisService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = 10 << 20
	}
	return &analysisService{
		log:     baseLog.With("service", "AnalysisService"),
		gen:     gen,
		cache:   cache,
		metrics: metrics,
		cfg:     cfg,
	}
}

func (s *analysisService) Analyze(ctx context.Context, imageBase64 string) (map[string]any, error) {
	image, mime, err := DecodeImagePayload(imageBase64, s.cfg.MaxImageBytes)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, image)
		if err != nil {
			s.log.Warn("Analysis cache read failed", "error", err)
		}
		s.metrics.AnalysisCache(ok)
		if ok {
			return cached, nil
		}
	}

	aiCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	text, err := s.gen.GenerateWithImage(aiCtx, analysisInstruction, image, mime)
	if err != nil {
		s.log.Error("Image analysis failed", "mime", mime, "bytes", len(image), "error", err)
		return nil, fmt.Errorf("%w: analyze image: %w", apierr.ErrUpstream, err)
	}

	result := ExtractJSONObject(text)
	if len(result) == 0 {
		s.log.Warn("Image analysis returned no parsable JSON", "chars", len(text))
		return result, nil
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, image, result); err != nil {
			s.log.Warn("Analysis cache write failed", "error", err)
		}
	}
	return result, nil
}

// DecodeImagePayload accepts raw base64 or a data:image/...;base64, URL and
// returns the bytes plus the mime type (image/jpeg when no prefix is given).
func DecodeImagePayload(raw string, maxBytes int) ([]byte, string, error) {
	raw = strings.TrimSpace(raw)
	mime := defaultImageMime
	if m := dataURLPrefix.FindStringSubmatch(raw); m != nil {
		mime = strings.ToLower(m[1])
		raw = raw[len(m[0]):]
	}
	raw = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, raw)
	if raw == "" {
		return nil, "", apierr.Invalid("imageBase64 is required")
	}
	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(raw)) > maxBytes+2 {
		return nil, "", apierr.Invalid("image exceeds %d bytes", maxBytes)
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(raw)
	}
	if err != nil {
		return nil, "", apierr.Invalid("imageBase64 is not valid base64")
	}
	if len(data) == 0 {
		return nil, "", apierr.Invalid("imageBase64 is empty")
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return nil, "", apierr.Invalid("image exceeds %d bytes", maxBytes)
	}
	return data, mime, nil
}
