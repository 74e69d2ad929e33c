package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"openbee/internal/cache"
	"openbee/internal/corpus"
	"openbee/internal/fetch"
	"openbee/internal/game"
	"openbee/internal/guesses"
	"openbee/internal/offline"
	"openbee/internal/puzzle"
)

const releaseVersion = "1.4.9"

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &Config{}
	cmd := newCmd(cfg)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "openbee:", err)
		os.Exit(1)
	}
}

// run wires every component, installs and activates the cache generation,
// and serves until ctx ends.
func run(ctx context.Context, cfg *Config) error {
	logger, err := newLogger(cfg.production, cfg.verbose)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	logInfo("Starting openbee %s in %s mode", releaseVersion, cfg.env())

	storage, err := openStorage(cfg)
	if err != nil {
		return fmt.Errorf("open cache storage: %w", err)
	}
	defer storage.Close()

	store, err := guesses.Open(cfg.guessesPath())
	if err != nil {
		return fmt.Errorf("open guess store: %w", err)
	}
	defer store.Close()

	app := newApp(cfg, storage, fetch.NewClient(cfg.fetchTimeout), store, time.Now, logger.Sugar())

	if err := app.Gen.Install(ctx); err != nil {
		return fmt.Errorf("install %s: %w", cfg.staticVersion, err)
	}
	report := app.Gen.Activate(ctx)
	if report.Errors > 0 {
		logWarn("Activation finished with %d errors", report.Errors)
	}

	now := app.Now()
	if n, err := store.Prune(ctx, puzzle.Today(now), puzzle.Yesterday(now)); err != nil {
		logWarn("Pruning stored guesses failed: %v", err)
	} else if n > 0 {
		logInfo("Pruned guesses for %d old days", n)
	}

	return startServer(ctx, cfg, app.router())
}

func openStorage(cfg *Config) (cache.Storage, error) {
	if cfg.cacheBackend == BackendMemory {
		logInfo("Using in-memory cache storage")
		return cache.NewMemory(), nil
	}
	logInfo("Using SQLite cache storage at %s", cfg.cachePath())
	return cache.NewSQLite(cfg.cachePath())
}

// newApp builds the component graph over the given handles.
func newApp(cfg *Config, storage cache.Storage, fetcher fetch.Fetcher, store *guesses.Store, now func() time.Time, log *zap.SugaredLogger) *App {
	gen := offline.Config{
		Origin:        cfg.originURL,
		DevHost:       cfg.devHost,
		StaticVersion: cfg.staticVersion,
		CorpusVersion: cfg.corpusVersion,
		Manifest:      cfg.manifest,
	}
	loader := corpus.NewLoader(fetcher, storage, corpus.LoaderConfig{
		Namespace: cfg.corpusVersion,
		Base:      cfg.originURL,
		Path:      cfg.corpusPath,
	}, log.Named("corpus"))
	composer := offline.NewComposer(gen, storage, fetcher, loader, now, log.Named("compose"))

	return &App{
		Config:     cfg,
		Storage:    storage,
		Guesses:    store,
		Loader:     loader,
		Composer:   composer,
		Proxy:      offline.NewProxy(gen, storage, fetcher, composer, log.Named("proxy")),
		Gen:        offline.NewGeneration(gen, storage, fetcher, now, log.Named("generation")),
		Game:       game.NewManager(composer, store, log.Named("game")),
		Log:        log,
		StartTime:  time.Now(),
		Now:        now,
		LimiterMap: make(map[string]*rate.Limiter),
	}
}

func (app *App) router() *gin.Engine {
	if app.Config.production {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestIDMiddleware(), app.accessLogMiddleware())

	router.Use(ginGzip.Gzip(ginGzip.DefaultCompression,
		ginGzip.WithExcludedExtensions([]string{".gz", ".svg", ".ico", ".png", ".jpg", ".jpeg", ".gif", ".webp", ".woff2"}),
		ginGzip.WithExcludedPaths([]string{RouteSocket})))

	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logWarn("Failed to set trusted proxies: %v", err)
	}
	router.Use(apiCacheMiddleware())

	router.POST(RouteGuess, app.rateLimitMiddleware(), app.guessHandler)
	router.GET(RouteGuesses, app.guessesHandler)
	router.GET(RoutePuzzle, app.puzzleHandler)
	router.GET(RouteProgress, app.progressHandler)
	router.GET(RouteSocket, app.socketHandler)
	router.GET(RouteHealth, app.healthzHandler)
	router.NoRoute(app.proxyHandler)

	return router
}

func startServer(ctx context.Context, cfg *Config, handler http.Handler) error {
	addr := net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		<-ctx.Done()
		logInfo("Shutdown signal received, shutting down server gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logWarn("HTTP server Shutdown: %v", err)
		}
		close(idleConnsClosed)
	}()

	logInfo("Server starting on http://%s", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed to start: %w", err)
	}
	<-idleConnsClosed
	logInfo("Server shutdown complete")
	return nil
}
