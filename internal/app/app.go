package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"plotpilot/internal/config"
	"plotpilot/internal/dataprocessing"
	apierrors "plotpilot/internal/errors"
	"plotpilot/internal/exporter"
	"plotpilot/internal/infrastructure"
	customMiddleware "plotpilot/internal/middleware"
	"plotpilot/internal/services"
	"plotpilot/internal/session"
	transport "plotpilot/internal/transport/http"
	ws "plotpilot/internal/websocket"
	"plotpilot/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config         *config.Config
	Paths          *config.Paths
	Router         *chi.Mux
	Server         *http.Server
	Logger         *slog.Logger
	OTelProviders  *infrastructure.OTelProviders
	Metrics        *infrastructure.BusinessMetrics
	RuntimeMetrics *infrastructure.RuntimeMetrics
	Hub            *ws.Hub
	Store          *session.MemoryStore
	Services       *ServiceContainer

	errorHandler *apierrors.ErrorHandler
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Datasets *services.DatasetService
	Health   *services.HealthService
}

// Option customizes NewApplication
type Option func(*options)

type options struct {
	logger         *slog.Logger
	spanProcessors []sdktrace.SpanProcessor
}

// WithLogger uses logger instead of building the process-wide one from config
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithSpanProcessor attaches an extra span processor to the tracer provider
func WithSpanProcessor(p sdktrace.SpanProcessor) Option {
	return func(o *options) { o.spanProcessors = append(o.spanProcessors, p) }
}

// NewApplication wires every component from cfg. Nothing is started until Run or Serve.
func NewApplication(cfg *config.Config, opts ...Option) (*Application, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	logger.Info("application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("build_time", contracts.BuildTime),
		slog.String("git_commit", contracts.GitCommit))

	paths, err := cfg.Paths.Resolve()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger, o.spanProcessors...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
		errorHandler:  apierrors.NewErrorHandler(logger, false),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the hub, the session store and the services on top of them
func (a *Application) initializeServices() error {
	metrics, err := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create business metrics: %w", err)
	}
	a.Metrics = metrics

	hubMetrics, err := ws.NewHubMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create websocket metrics: %w", err)
	}
	a.Hub = ws.NewHub(a.Logger, a.Config.WebSocket, hubMetrics)

	hub := a.Hub
	a.Store = session.NewMemoryStore(a.Config.Session.TTL, a.Config.Session.MaxSessions, a.Logger,
		session.WithEvictHook(func(id string) {
			hub.Publish(context.Background(), id, ws.EventExpired, map[string]string{"dataset_id": id})
		}))

	loaderOpts := dataprocessing.DefaultOptions()
	loaderOpts.MaxRows = a.Config.Upload.MaxRows
	loaderOpts.MaxColumns = a.Config.Upload.MaxColumns
	loaderOpts.Sheet = a.Config.Upload.Sheet
	loader := dataprocessing.NewLoader(a.Logger, loaderOpts)

	summarizer := dataprocessing.NewSummarizer(a.Logger, dataprocessing.SummarizerConfig{
		PreviewRows: a.Config.Upload.PreviewRows,
	})

	cleaning, err := a.Config.Cleaning.Domain()
	if err != nil {
		return fmt.Errorf("invalid cleaning defaults: %w", err)
	}

	datasets := services.NewDatasetService(
		a.Store,
		loader,
		summarizer,
		exporter.NewTableWriter(a.Logger),
		a.Hub,
		services.NewDatasetTracer(a.Metrics),
		services.DatasetOptions{
			Cleaning:    cleaning,
			PreviewRows: a.Config.Upload.PreviewRows,
			Sheet:       a.Config.Upload.Sheet,
		},
		a.Logger,
	)

	a.RuntimeMetrics, err = infrastructure.NewRuntimeMetrics(a.OTelProviders.Meter, datasets.ActiveSessions)
	if err != nil {
		return fmt.Errorf("failed to register runtime metrics: %w", err)
	}

	health := services.NewHealthService(config.AppVersion, contracts.BuildTime, a.Paths.ExportsDir, a.Hub, a.RuntimeMetrics, a.Logger)

	a.Services = &ServiceContainer{
		Datasets: datasets,
		Health:   health,
	}
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Only middleware that leaves the ResponseWriter hijackable runs before the websocket route
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(apierrors.RecoveryMiddleware(a.errorHandler))

	events := transport.NewEventsHandler(
		a.Hub,
		a.Services.Datasets,
		a.Config.WebSocket.ReadBufferSize,
		a.Config.WebSocket.WriteBufferSize,
		a.Config.Security.AllowedOrigins,
		a.Logger,
		a.errorHandler,
	)
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).
		Get("/api/datasets/{datasetID}/events", events.ServeEvents)

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.DefaultSecureHeaders().Handler)
		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}
		r.Use(customMiddleware.AuditLog(a.Logger))
		r.Use(customMiddleware.Compress(5))

		a.setupAPIRoutes(r)
		a.setupHTMLRoutes(r)

		r.Handle("/metrics", transport.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.Logger, a.errorHandler))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		a.errorHandler.HandleError(w, r, apierrors.NotFoundError(r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		a.errorHandler.HandleError(w, r, apierrors.New(http.StatusMethodNotAllowed, apierrors.CodeMethodNotAllowed,
			fmt.Sprintf("method %s is not allowed on %s", r.Method, r.URL.Path)))
	})

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	datasets := transport.NewDatasetHandler(a.Services.Datasets, a.Config.Upload.MaxBytes, a.Logger, a.errorHandler)
	health := transport.NewHealthHandler(a.Services.Health, a.Logger)
	errorMiddleware := apierrors.NewErrorMiddleware(a.errorHandler, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(customMiddleware.Timeout(a.Config.Server.OperationTimeout, a.Logger))
		r.Use(errorMiddleware.Handler)

		r.Mount("/datasets", datasets.Routes())
		r.Mount("/", health.Routes())
	})
}

// setupHTMLRoutes serves the single-page front end and its assets
func (a *Application) setupHTMLRoutes(r chi.Router) {
	r.Get("/", transport.ServeMainApp(a.Paths.WebDir, dataprocessing.SupportedExtensions()))
	r.Handle("/static/*", transport.StaticFiles(a.Paths.WebDir))
}

// getCORSConfig returns CORS configuration for the configured origins
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		MaxAge:         300,
		Logger:         a.Logger,
	}
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
		ErrorLog:       slog.NewLogLogger(a.Logger.Handler(), slog.LevelError),
	}
}

// Run listens on the configured port and serves until ctx is cancelled or
// the process receives SIGINT or SIGTERM
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the server on ln together with the event hub and the session
// sweeper, and shuts everything down when ctx is done or the server fails
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	a.Hub.Start()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.Store.Start(gctx, a.Config.Session.SweepInterval)
	})

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "http server listening",
			slog.String("address", ln.Addr().String()),
			slog.String("level", a.Config.Logging.Level))
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := a.performStartupHealthCheck(); err != nil {
			a.Logger.WarnContext(gctx, "startup health check warnings", slog.String("warnings", err.Error()))
		}
		<-gctx.Done()
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}

	a.Hub.Stop()

	if a.RuntimeMetrics != nil {
		if err := a.RuntimeMetrics.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("runtime metrics: %w", err))
		}
	}
	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return errors.Join(errs...)
}

// performStartupHealthCheck reports missing front-end files and an unwritable
// exports directory. Neither is fatal: the API keeps working without them.
func (a *Application) performStartupHealthCheck() error {
	var problems []error

	if !config.FileExists(filepath.Join(a.Paths.WebDir, "index.html")) {
		problems = append(problems, fmt.Errorf("index.html not found in %s", a.Paths.WebDir))
	}

	probe := filepath.Join(a.Paths.ExportsDir, ".write_test")
	if err := os.WriteFile(probe, []byte("ok"), config.ExportFileMode); err != nil {
		problems = append(problems, fmt.Errorf("exports directory not writable: %w", err))
	} else {
		_ = os.Remove(probe)
	}

	return errors.Join(problems...)
}

// OpenBrowser waits until the health endpoint answers, then opens the front
// end in the default browser
func (a *Application) OpenBrowser(ctx context.Context) {
	url := fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)
	client := &http.Client{Timeout: time.Second}

	for attempt := 1; attempt <= 10; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(500 * time.Millisecond):
		}

		resp, err := client.Get(url + "/api/health/live")
		if err != nil {
			continue
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			continue
		}

		if err := openBrowser(url); err != nil {
			a.Logger.WarnContext(ctx, "failed to open browser",
				slog.String("url", url),
				slog.String("error", err.Error()))
			fmt.Printf("\nPlotPilot is running at %s\n\n", url)
			return
		}
		a.Logger.InfoContext(ctx, "browser opened",
			slog.String("url", url),
			slog.Int("attempts", attempt))
		return
	}

	a.Logger.WarnContext(ctx, "server did not become ready for browser opening", slog.String("url", url))
}

// openBrowser opens url with the platform's default handler
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux", "freebsd", "openbsd", "netbsd":
		cmd = exec.Command("xdg-open", url)
	default:
		return fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
	return cmd.Start()
}
