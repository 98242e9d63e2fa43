package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Cache   CacheConfig
	Sources SourcesConfig
	Monitor MonitorConfig
	Logging LoggingConfig
}

// ServerConfig holds HTTP/MCP server configuration
type ServerConfig struct {
	HTTPAddr     string
	MCPMode      bool
	RateLimitDur time.Duration
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	Backend   string // "memory" or "redis"
	TTL       time.Duration
	RedisAddr string
}

// SourcesConfig holds upstream API credentials. All of them are optional:
// unkeyed sources degrade to their fallback paths instead of failing.
type SourcesConfig struct {
	RedditClientID     string
	RedditClientSecret string
	NewsAPIKey         string
}

// MonitorConfig holds pipeline tuning knobs
type MonitorConfig struct {
	MaxResults   int
	FetchTimeout time.Duration
	UserAgent    string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// Load parses flags and environment variables to build configuration
func Load() *Config {
	cfg := &Config{}

	// Define flags with defaults
	httpAddr := flag.String("http", ":8080", "HTTP server address")
	mcpMode := flag.Bool("mcp", false, "Run in MCP stdio mode")
	cacheTTL := flag.Duration("cache-ttl", 5*time.Minute, "Cache TTL for rendered summaries")
	cacheBackend := flag.String("cache-backend", "memory", "Cache backend: memory or redis")
	redisAddr := flag.String("redis-addr", "localhost:6379", "Redis server address")
	rateLimitDur := flag.Duration("rate-limit", time.Second, "Minimum delay between requests to same host")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	maxResults := flag.Int("max-results", 100, "Default event cap per search")
	fetchTimeout := flag.Duration("fetch-timeout", 15*time.Second, "HTTP timeout for upstream source requests")
	userAgent := flag.String("user-agent", "CityWatch/1.0", "User-Agent sent to upstream sources")

	flag.Parse()

	// Apply environment variable overrides
	applyEnvOverrides(httpAddr, mcpMode, cacheTTL, cacheBackend, redisAddr, rateLimitDur, logLevel, maxResults, fetchTimeout, userAgent)

	// Build config struct
	cfg.Server = ServerConfig{
		HTTPAddr:     *httpAddr,
		MCPMode:      *mcpMode,
		RateLimitDur: *rateLimitDur,
	}

	cfg.Cache = CacheConfig{
		Backend:   *cacheBackend,
		TTL:       *cacheTTL,
		RedisAddr: *redisAddr,
	}

	cfg.Monitor = MonitorConfig{
		MaxResults:   *maxResults,
		FetchTimeout: *fetchTimeout,
		UserAgent:    *userAgent,
	}

	cfg.Logging = LoggingConfig{
		Level: *logLevel,
	}

	// Credentials only come from the environment, never flags
	cfg.Sources = SourcesConfig{
		RedditClientID:     os.Getenv("REDDIT_CLIENT_ID"),
		RedditClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
		NewsAPIKey:         os.Getenv("NEWS_API_KEY"),
	}

	return cfg
}

func applyEnvOverrides(
	httpAddr *string,
	mcpMode *bool,
	cacheTTL *time.Duration,
	cacheBackend *string,
	redisAddr *string,
	rateLimitDur *time.Duration,
	logLevel *string,
	maxResults *int,
	fetchTimeout *time.Duration,
	userAgent *string,
) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		*httpAddr = v
	}
	if v := os.Getenv("MCP_MODE"); v == "true" || v == "1" {
		*mcpMode = true
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*cacheTTL = d
		}
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		*cacheBackend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		*redisAddr = v
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*rateLimitDur = d
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		*logLevel = v
	}
	if v := os.Getenv("MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*maxResults = n
		}
	}
	if v := os.Getenv("FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*fetchTimeout = d
		}
	}
	if v := os.Getenv("USER_AGENT"); v != "" {
		*userAgent = v
	}
}
