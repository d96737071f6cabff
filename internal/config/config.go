package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Model defaults per provider, used when STORY_MODEL or REWRITE_MODEL is unset.
var defaultModels = map[string]struct{ story, rewrite string }{
	ProviderOpenAI:    {"gpt-4.1-nano", "gpt-4o-mini"},
	ProviderAnthropic: {"claude-3-5-haiku-latest", "claude-sonnet-4-5-20250929"},
}

// Generator providers.
const (
	ProviderAuto      = ""
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderNone      = "none"
)

type Config struct {
	Port string

	// Auth for /api/*; empty disables the check.
	APIKey string

	// Text generation
	GeneratorProvider  string
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	AnthropicAPIKey    string
	StoryModel         string
	RewriteModel       string
	MaxConcurrentGen   int
	GenerateMaxRetries int
	LLMStatsWindow     time.Duration

	// Cache
	CacheBackend string
	CachePath    string

	// Documents served by /api/markdown-files
	DocsDir string

	// Limits
	RenderTimeout time.Duration
	ScriptTimeout time.Duration
	MaxBodyBytes  int64

	LogLevel slog.Level
}

// Load reads a .env file when present, then the environment.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("API_KEY"),

		GeneratorProvider:  strings.ToLower(strings.TrimSpace(os.Getenv("GENERATOR_PROVIDER"))),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:      envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		AnthropicAPIKey:    os.Getenv("ANTHROPIC_API_KEY"),
		StoryModel:         os.Getenv("STORY_MODEL"),
		RewriteModel:       os.Getenv("REWRITE_MODEL"),
		MaxConcurrentGen:   envInt("MAX_CONCURRENT_GENERATE", 4),
		GenerateMaxRetries: envInt("GENERATE_MAX_RETRIES", 2),
		LLMStatsWindow:     envDuration("LLM_STATS_WINDOW", time.Hour),

		CacheBackend: strings.ToLower(envOr("CACHE_BACKEND", "file")),
		CachePath:    envOr("CACHE_PATH", "story-cache.json"),

		DocsDir: envOr("DOCS_DIR", "public"),

		RenderTimeout: envDuration("RENDER_TIMEOUT", 2*time.Minute),
		ScriptTimeout: envDuration("SCRIPT_TIMEOUT", 0),
		MaxBodyBytes:  envInt64("MAX_BODY_BYTES", 1<<20),

		LogLevel: envLevel("LOG_LEVEL", slog.LevelInfo),
	}

	models, ok := defaultModels[cfg.Provider()]
	if !ok {
		models = defaultModels[ProviderOpenAI]
	}
	if cfg.StoryModel == "" {
		cfg.StoryModel = models.story
	}
	if cfg.RewriteModel == "" {
		cfg.RewriteModel = models.rewrite
	}
	if cfg.MaxConcurrentGen <= 0 {
		cfg.MaxConcurrentGen = 4
	}
	if cfg.GenerateMaxRetries < 0 {
		cfg.GenerateMaxRetries = 0
	}
	if cfg.LLMStatsWindow <= 0 {
		cfg.LLMStatsWindow = time.Hour
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.RenderTimeout < 0 {
		cfg.RenderTimeout = 0
	}
	if cfg.ScriptTimeout < 0 {
		cfg.ScriptTimeout = 0
	}

	return cfg
}

// Provider resolves the generator to use. Auto picks OpenAI, then Anthropic,
// by whichever key is set, and none otherwise.
func (c Config) Provider() string {
	if c.GeneratorProvider != ProviderAuto {
		return c.GeneratorProvider
	}
	switch {
	case c.OpenAIAPIKey != "":
		return ProviderOpenAI
	case c.AnthropicAPIKey != "":
		return ProviderAnthropic
	}
	return ProviderNone
}

func (c Config) Validate() error {
	switch c.GeneratorProvider {
	case ProviderAuto, ProviderNone:
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for GENERATOR_PROVIDER=openai")
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for GENERATOR_PROVIDER=anthropic")
		}
	default:
		return fmt.Errorf("unknown GENERATOR_PROVIDER %q", c.GeneratorProvider)
	}
	if c.Provider() == ProviderAnthropic {
		for _, m := range []struct{ env, model string }{{"STORY_MODEL", c.StoryModel}, {"REWRITE_MODEL", c.RewriteModel}} {
			if !strings.HasPrefix(m.model, "claude") {
				return fmt.Errorf("%s=%q is not an Anthropic model", m.env, m.model)
			}
		}
	}
	switch c.CacheBackend {
	case "file", "sqlite":
		if c.CachePath == "" {
			return fmt.Errorf("CACHE_PATH is required for CACHE_BACKEND=%s", c.CacheBackend)
		}
	case "memory":
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envLevel(key string, fallback slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(v)); err == nil {
			return l
		}
	}
	return fallback
}
