package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/logger"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// AnalysisCache stores parsed image analyses keyed by image digest.
type AnalysisCache interface {
	Get(ctx context.Context, image []byte) (map[string]any, bool, error)
	Set(ctx context.Context, image []byte, analysis map[string]any) error
	Close() error
}

type analysisCache struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

func NewAnalysisCache(cfg Config, log *logger.Logger) (AnalysisCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = "artvision:analysis:"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &analysisCache{
		log:    log.With("service", "RedisAnalysisCache"),
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
	}, nil
}

func (c *analysisCache) Get(ctx context.Context, image []byte) (map[string]any, bool, error) {
	if c == nil || c.rdb == nil {
		return nil, false, fmt.Errorf("redis analysis cache not initialized")
	}
	raw, err := c.rdb.Get(ctx, Key(c.prefix, image)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		c.log.Warn("bad cached analysis payload", "error", err)
		return nil, false, nil
	}
	return out, true, nil
}

func (c *analysisCache) Set(ctx context.Context, image []byte, analysis map[string]any) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("redis analysis cache not initialized")
	}
	raw, err := json.Marshal(analysis)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, Key(c.prefix, image), raw, c.ttl).Err()
}

func (c *analysisCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Key is prefix + hex sha256 of the decoded image bytes.
func Key(prefix string, image []byte) string {
	sum := sha256.Sum256(image)
	return prefix + hex.EncodeToString(sum[:])
}
