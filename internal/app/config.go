package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	defaultJWTSecret  = "dev-insecure-secret"
	maxConfigFileSize = 1 << 20
)

// defaultConfig is loaded first; the optional CONFIG_FILE and then the
// environment override it.
const defaultConfig = `
server:
  port: 5000
  shutdown_timeout: 15s
postgres:
  driver: postgres
  host: localhost
  port: 5432
  user: postgres
  name: artvision
  sslmode: disable
  max_open_conns: 20
  max_idle_conns: 5
  slow_threshold: 1s
gemini:
  model: gemini-2.5-flash
  timeout: 60s
auth:
  jwt_secret: dev-insecure-secret
  token_ttl: 168h
  issuer: artvision
  cookie_secure: false
chat:
  history_limit: 20
  max_message_chars: 4000
  max_body_bytes: 1048576
analysis:
  max_image_bytes: 10485760
redis:
  prefix: "artvision:analysis:"
  ttl: 24h
metrics:
  enabled: true
otel:
  enabled: false
  service_name: artvision
  sample_ratio: 1
cors:
  allowed_origins: "http://localhost:5173,http://127.0.0.1:5173,http://localhost:5000"
ratelimit:
  enabled: true
  per_minute: 30
  burst: 10
log:
  mode: development
`

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Postgres  PostgresConfig  `koanf:"postgres"`
	Gemini    GeminiConfig    `koanf:"gemini"`
	Auth      AuthConfig      `koanf:"auth"`
	Chat      ChatConfig      `koanf:"chat"`
	Analysis  AnalysisConfig  `koanf:"analysis"`
	Redis     RedisConfig     `koanf:"redis"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Otel      OtelConfig      `koanf:"otel"`
	CORS      CORSConfig      `koanf:"cors"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type PostgresConfig struct {
	Driver        string        `koanf:"driver"`
	DSN           string        `koanf:"dsn"`
	Host          string        `koanf:"host"`
	Port          int           `koanf:"port"`
	User          string        `koanf:"user"`
	Password      string        `koanf:"password"`
	Name          string        `koanf:"name"`
	SSLMode       string        `koanf:"sslmode"`
	MaxOpenConns  int           `koanf:"max_open_conns"`
	MaxIdleConns  int           `koanf:"max_idle_conns"`
	SlowThreshold time.Duration `koanf:"slow_threshold"`
}

type GeminiConfig struct {
	APIKey  string        `koanf:"api_key"`
	Model   string        `koanf:"model"`
	Timeout time.Duration `koanf:"timeout"`
	BaseURL string        `koanf:"base_url"`
}

type AuthConfig struct {
	JWTSecret      string        `koanf:"jwt_secret"`
	TokenTTL       time.Duration `koanf:"token_ttl"`
	Issuer         string        `koanf:"issuer"`
	GoogleClientID string        `koanf:"google_client_id"`
	CookieSecure   bool          `koanf:"cookie_secure"`
	CookieDomain   string        `koanf:"cookie_domain"`
}

type ChatConfig struct {
	HistoryLimit    int   `koanf:"history_limit"`
	MaxMessageChars int   `koanf:"max_message_chars"`
	MaxBodyBytes    int64 `koanf:"max_body_bytes"`
}

type AnalysisConfig struct {
	MaxImageBytes int `koanf:"max_image_bytes"`
}

// MaxBodyBytes is the request body cap for /api/analyze: the base64 size of
// the largest accepted image plus room for a data URL prefix and the JSON
// envelope.
func (a AnalysisConfig) MaxBodyBytes() int64 {
	if a.MaxImageBytes <= 0 {
		return 0
	}
	groups := (int64(a.MaxImageBytes) + 2) / 3
	return groups*4 + 64<<10
}

type RedisConfig struct {
	// Addr empty disables the analysis cache.
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	Prefix   string        `koanf:"prefix"`
	TTL      time.Duration `koanf:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

type OtelConfig struct {
	Enabled     bool    `koanf:"enabled"`
	ServiceName string  `koanf:"service_name"`
	Environment string  `koanf:"environment"`
	Version     string  `koanf:"version"`
	Endpoint    string  `koanf:"endpoint"`
	Insecure    bool    `koanf:"insecure"`
	Headers     string  `koanf:"headers"`
	SampleRatio float64 `koanf:"sample_ratio"`
}

type CORSConfig struct {
	// AllowedOrigins is comma separated.
	AllowedOrigins string `koanf:"allowed_origins"`
}

func (c CORSConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

type RateLimitConfig struct {
	Enabled   bool `koanf:"enabled"`
	PerMinute int  `koanf:"per_minute"`
	Burst     int  `koanf:"burst"`
}

type LogConfig struct {
	Mode string `koanf:"mode"`
}

var sections = map[string]bool{
	"server":    true,
	"postgres":  true,
	"gemini":    true,
	"auth":      true,
	"chat":      true,
	"analysis":  true,
	"redis":     true,
	"metrics":   true,
	"otel":      true,
	"cors":      true,
	"ratelimit": true,
	"log":       true,
}

// envKey maps SECTION_FIELD_NAME to section.field_name. Variables outside the
// known sections are ignored, except the PORT and DATABASE_URL conventions
// of hosted platforms.
func envKey(s string) string {
	switch s {
	case "PORT":
		return "server.port"
	case "DATABASE_URL":
		return "postgres.dsn"
	}
	parts := strings.SplitN(strings.ToLower(s), "_", 2)
	if len(parts) != 2 || !sections[parts[0]] || parts[1] == "" {
		return ""
	}
	return parts[0] + "." + parts[1]
}

// LoadConfig layers defaults, the YAML file named by CONFIG_FILE (if any) and
// the environment.
func LoadConfig() (Config, error) {
	return loadConfig(os.Getenv("CONFIG_FILE"))
}

func loadConfig(path string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider([]byte(defaultConfig)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load default config: %w", err)
	}

	if path = strings.TrimSpace(path); path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return Config{}, fmt.Errorf("stat config file: %w", err)
		}
		if info.Size() > maxConfigFileSize {
			return Config{}, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func (c Config) Production() bool {
	m := strings.ToLower(strings.TrimSpace(c.Log.Mode))
	return m == "production" || m == "prod"
}

// Validate checks what serve needs to start.
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		problems = append(problems, "gemini.api_key is required (GEMINI_API_KEY)")
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		problems = append(problems, "auth.jwt_secret is required")
	} else if c.Production() && c.Auth.JWTSecret == defaultJWTSecret {
		problems = append(problems, "auth.jwt_secret must be changed in production")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Chat.HistoryLimit < 0 {
		problems = append(problems, "chat.history_limit must be >= 0")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
