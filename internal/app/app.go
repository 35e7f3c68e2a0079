package app

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"metrolog/internal/compare"
	"metrolog/internal/config"
	apierrors "metrolog/internal/errors"
	"metrolog/internal/infrastructure"
	customMiddleware "metrolog/internal/middleware"
	"metrolog/internal/services"
	"metrolog/internal/session"
	"metrolog/internal/snapshot"
	"metrolog/internal/stats"
	handlers "metrolog/internal/transport/http"
	ws "metrolog/internal/websocket"
	"metrolog/pkg/contracts"
)

const AppName = config.AppName + " - dimensional metrology dashboard"

var (
	// RepoURL is reported by /api/version when set with -ldflags
	RepoURL string
	// BuildTime is set at compile time
	BuildTime = time.Now().Format(time.RFC3339)
	// BuildID is a unique identifier for this build
	BuildID = generateBuildID()
)

func generateBuildID() string {
	h := sha256.New()
	h.Write([]byte(contracts.Version))
	h.Write([]byte(time.Now().Format("2006-01-02")))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Application represents the main application container
type Application struct {
	Config          *config.Config
	Paths           *config.Paths
	Router          *chi.Mux
	Server          *http.Server
	Logger          *slog.Logger
	OTelProviders   *infrastructure.OTelProviders
	Metrics         *infrastructure.BusinessMetrics
	Sessions        *session.Manager
	Snapshots       snapshot.Store
	WebSocketHub    *ws.Hub
	AnalysisService *services.AnalysisService
	HealthService   *services.HealthService
	FrontendFS      fs.FS // optional dashboard bundle

	errorHandler *apierrors.ErrorHandler
	validator    *customMiddleware.Validator
}

// NewApplication loads the configuration from the environment and builds the
// application. frontendFS may be nil.
func NewApplication(frontendFS fs.FS) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	paths, err := config.ResolvePaths(cfg, os.Getenv(config.EnvPrefix+"_BASE_DIR"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(cfg); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	logCfg := cfg.Logging
	logCfg.FilePath = paths.LogFile
	logger, err := infrastructure.InitializeLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version))
	paths.LogPathResolution(logger)

	return New(context.Background(), cfg, paths, logger, frontendFS)
}

// New wires an application from an already loaded configuration.
func New(ctx context.Context, cfg *config.Config, paths *config.Paths, logger *slog.Logger, frontendFS fs.FS) (*Application, error) {
	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFromTelemetry(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		FrontendFS:    frontendFS,
		errorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
		validator:     customMiddleware.NewValidator(),
	}

	if err := app.initializeServices(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()
	return app, nil
}

// sessionSettings maps the analysis section onto per-session defaults.
func sessionSettings(cfg config.AnalysisConfig) (session.Settings, error) {
	bounds, err := stats.ParseBoundsPolicy(cfg.BoundsPolicy)
	if err != nil {
		return session.Settings{}, err
	}
	return session.Settings{
		SlotCount: cfg.SlotCount,
		Bounds:    bounds,
		Compare: compare.Options{
			Prefix:    cfg.ComparisonPrefix,
			LabelA:    cfg.LabelA,
			LabelB:    cfg.LabelB,
			Threshold: cfg.ComparisonThreshold,
		}.WithDefaults(),
	}, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices(ctx context.Context) error {
	metrics, err := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create business metrics: %w", err)
	}
	a.Metrics = metrics

	wsMetrics, err := ws.NewMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create websocket metrics: %w", err)
	}
	hub := ws.NewHub(a.Logger, wsMetrics)
	hub.Start()
	a.WebSocketHub = hub

	settings, err := sessionSettings(a.Config.Analysis)
	if err != nil {
		return err
	}
	a.Sessions = session.NewManager(session.ManagerConfig{
		IdleTTL:     a.Config.Session.IdleTTL,
		MaxSessions: a.Config.Session.MaxSessions,
		Settings:    settings,
	}, a.Logger)

	snapCfg := a.Config.Snapshot
	snapCfg.Dir = a.Paths.SnapshotDir
	store, err := snapshot.Open(ctx, snapCfg, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to open snapshot store: %w", err)
	}
	a.Snapshots = store

	a.AnalysisService = services.NewAnalysisService(a.Sessions, store, hub, metrics, a.Logger)
	a.HealthService = services.NewHealthService(services.BuildInfo{
		Version:   contracts.Version,
		RepoURL:   RepoURL,
		BuildTime: BuildTime,
		BuildID:   BuildID,
	}, a.Sessions, hub, store, a.Logger)

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Only middleware that leaves the ResponseWriter unwrapped runs before
	// the websocket upgrade.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).Get(config.WebSocketEndpoint, a.handleWebSocket)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle(config.MetricsEndpoint, a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics)
		if err != nil {
			a.Logger.Error("failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.errorHandler))
		r.Use(customMiddleware.SecurityHeaders)
		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
				a.errorHandler,
			).Handler)
		}
		r.Use(customMiddleware.MaxBodySize(a.Config.Analysis.MaxUploadBytes, a.errorHandler))

		a.setupAPIRoutes(r)
		a.setupFrontend(r)
	})

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route(config.APIBasePath, func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)

		registryHandler := handlers.NewRegistryHandler(a.AnalysisService, a.validator, a.Logger, a.errorHandler)
		r.Mount("/registry", registryHandler.Routes())

		analysisHandler := handlers.NewAnalysisHandler(a.AnalysisService, a.validator, a.Logger, a.errorHandler)
		sessionHandler := handlers.NewSessionHandler(a.AnalysisService, a.validator, a.Logger, a.errorHandler)
		r.Mount("/sessions", sessionHandler.Routes(registryHandler.SessionRoutes, analysisHandler.SessionRoutes))

		r.Post("/client-log", handlers.NewClientLogHandler(a.validator, a.Logger, a.errorHandler).Handle)
	})
}

// setupFrontend serves the dashboard bundle with an index.html fallback
// for client side routes.
func (a *Application) setupFrontend(r chi.Router) {
	if a.FrontendFS == nil {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			render.JSON(w, r, map[string]string{
				"name":    AppName,
				"version": contracts.Version,
				"api":     config.APIBasePath,
				"health":  config.HealthEndpoint,
			})
		})
		return
	}

	fileServer := http.FileServerFS(a.FrontendFS)
	r.With(customMiddleware.Compress(5)).Get("/*", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name != "" {
			if info, err := fs.Stat(a.FrontendFS, name); err == nil && !info.IsDir() {
				if strings.Contains(name, "/static/") {
					w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
				}
				fileServer.ServeHTTP(w, r)
				return
			}
		}

		index, err := fs.ReadFile(a.FrontendFS, "index.html")
		if err != nil {
			a.errorHandler.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(index)
	})
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
		},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}
}

// originAllowed accepts same-host and configured origins for the websocket upgrade.
func (a *Application) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if strings.TrimPrefix(strings.TrimPrefix(origin, "http://"), "https://") == r.Host {
		return true
	}
	for _, allowed := range a.Config.Security.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// handleWebSocket upgrades GET /ws. ?session= restricts the stream to the
// events of one session.
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := customMiddleware.GetReqID(ctx)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			if a.originAllowed(r) {
				return true
			}
			a.Logger.WarnContext(ctx, "websocket origin rejected",
				slog.String("origin", r.Header.Get("Origin")))
			return false
		},
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			a.Logger.WarnContext(ctx, "websocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()))
			http.Error(w, http.StatusText(status), status)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client, err := ws.Serve(a.WebSocketHub, ws.NewConnectionWrapper(conn), ws.ClientOptions{
		SessionID:  r.URL.Query().Get("session"),
		TraceID:    reqID,
		PongWait:   a.Config.WebSocket.PongWait,
		PingPeriod: a.Config.WebSocket.PingPeriod,
	}, a.Logger)
	if err != nil {
		a.Logger.WarnContext(ctx, "websocket client rejected", slog.String("error", err.Error()))
		return
	}

	a.Logger.InfoContext(ctx, "websocket client connected",
		slog.String("client_id", client.ID()),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("session_id", r.URL.Query().Get("session")))
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the session janitor and the HTTP server. cancel is called
// when the server fails.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	if a.Config.Session.IdleTTL > 0 {
		go a.AnalysisService.RunJanitor(ctx, a.Config.Session.JanitorInterval)
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.Info("received shutdown signal")

	// The signal context is done; shut down on a fresh one.
	return a.Stop(context.Background())
}
