package app

import (
	"context"

	"github.com/jonboulle/clockwork"

	"github.com/johnrirwin/citywatch/internal/cache"
	"github.com/johnrirwin/citywatch/internal/config"
	"github.com/johnrirwin/citywatch/internal/httpapi"
	"github.com/johnrirwin/citywatch/internal/logging"
	"github.com/johnrirwin/citywatch/internal/mcp"
	"github.com/johnrirwin/citywatch/internal/normalize"
	"github.com/johnrirwin/citywatch/internal/observability"
	"github.com/johnrirwin/citywatch/internal/pipeline"
	"github.com/johnrirwin/citywatch/internal/ratelimit"
	"github.com/johnrirwin/citywatch/internal/sentiment"
	"github.com/johnrirwin/citywatch/internal/sources"
)

// App holds all application dependencies
type App struct {
	Config     *config.Config
	Logger     *logging.Logger
	Cache      cache.Cache
	Pipeline   *pipeline.Pipeline
	HTTPServer *httpapi.Server
	MCPServer  *mcp.Server
}

// New creates and initializes a new App instance
func New(cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	// Initialize logger
	app.Logger = app.initLogger()

	// Initialize cache for rendered summaries
	app.Cache = app.initCache()

	// Shared per-host rate limiter for all upstream sources
	limiter := ratelimit.New(cfg.Server.RateLimitDur)

	// Initialize source adapters
	fetchers := app.initFetchers(limiter)

	// Initialize the monitoring pipeline
	app.Pipeline = pipeline.New(
		fetchers,
		normalize.New(sentiment.NewScorer()),
		observability.NewMetrics(),
		clockwork.NewRealClock(),
		cfg.Monitor.MaxResults,
		app.Logger,
	)

	// Initialize servers
	app.initServers()

	return app, nil
}

// Run starts the application in the appropriate mode
func (a *App) Run(ctx context.Context) error {
	if a.Config.Server.MCPMode {
		a.Logger.Info("Starting MCP server in stdio mode")
		return a.MCPServer.Run(ctx)
	}

	a.Logger.Info("Starting HTTP server", logging.WithField("addr", a.Config.Server.HTTPAddr))
	return a.HTTPServer.Start(a.Config.Server.HTTPAddr)
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error("HTTP server shutdown error", logging.WithField("error", err.Error()))
		}
	}

	if redisCache, ok := a.Cache.(*cache.RedisCache); ok {
		if err := redisCache.Close(); err != nil {
			a.Logger.Error("Redis close error", logging.WithField("error", err.Error()))
		}
	}

	return nil
}

func (a *App) initLogger() *logging.Logger {
	level := logging.LevelInfo
	switch a.Config.Logging.Level {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	return logging.New(level)
}

func (a *App) initCache() cache.Cache {
	switch a.Config.Cache.Backend {
	case "redis":
		a.Logger.Info("Using Redis cache backend", logging.WithField("addr", a.Config.Cache.RedisAddr))
		redisCache, err := cache.NewRedis(cache.RedisConfig{
			Addr: a.Config.Cache.RedisAddr,
		}, a.Config.Cache.TTL)
		if err != nil {
			a.Logger.Error("Failed to connect to Redis, falling back to memory cache", logging.WithField("error", err.Error()))
			return cache.NewMemory(a.Config.Cache.TTL)
		}
		return redisCache
	default:
		a.Logger.Info("Using in-memory cache backend")
		return cache.NewMemory(a.Config.Cache.TTL)
	}
}

func (a *App) initFetchers(limiter *ratelimit.Limiter) []sources.Fetcher {
	fetcherConfig := sources.DefaultConfig()
	fetcherConfig.Timeout = a.Config.Monitor.FetchTimeout
	fetcherConfig.UserAgent = a.Config.Monitor.UserAgent

	reddit := sources.NewRedditFetcher(sources.RedditCredentials{
		ClientID:     a.Config.Sources.RedditClientID,
		ClientSecret: a.Config.Sources.RedditClientSecret,
	}, limiter, fetcherConfig, a.Logger)

	if !reddit.Configured() {
		a.Logger.Warn("Reddit credentials not configured, Reddit source disabled")
	}

	web := sources.NewWebFetcher(limiter, fetcherConfig, a.Logger)
	news := sources.NewNewsFetcher(a.Config.Sources.NewsAPIKey, web, limiter, fetcherConfig, a.Logger)

	return []sources.Fetcher{reddit, news}
}

func (a *App) initServers() {
	a.HTTPServer = httpapi.New(a.Pipeline, a.Cache, a.Logger)

	mcpHandler := mcp.NewHandler(a.Pipeline, a.Logger)
	a.MCPServer = mcp.NewServer(mcpHandler, a.Logger)
}
