package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	prometheusSDK "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"golang.org/x/sync/errgroup"

	"github.com/go-arrower/ipquery"
	"github.com/go-arrower/ipquery/alog"
	"github.com/go-arrower/ipquery/postgres"
	"github.com/go-arrower/ipquery/resolver"
	"github.com/go-arrower/ipquery/store"
)

const shutdownTimeout = 10 * time.Second

// App is the ipquery server: an echo router with the middleware in front of every route.
type App struct {
	Config Config

	Logger         *slog.Logger
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
	Registry       *prometheusSDK.Registry

	Router     *echo.Echo
	Middleware *ipquery.Middleware
	Store      ipquery.Store

	pg        *postgres.Handler
	closers   []func(ctx context.Context) error
	startedAt time.Time
}

// NewApp initialises all dependencies of the server as configured by conf.
func NewApp(ctx context.Context, conf Config) (*App, error) {
	app := &App{
		Config:    conf,
		Registry:  prometheusSDK.NewRegistry(),
		startedAt: time.Now(),
	}

	if err := app.initObservability(ctx); err != nil {
		return nil, err
	}

	if err := app.initStore(ctx); err != nil {
		_ = app.Shutdown(ctx)

		return nil, err
	}

	res, err := app.newResolver()
	if err != nil {
		_ = app.Shutdown(ctx)

		return nil, err
	}

	mw, err := ipquery.New(app.Store).
		Config(conf.Config).
		Resolver(res).
		Logger(app.Logger).
		TracerProvider(app.TracerProvider).
		MeterProvider(app.MeterProvider).
		Skipper(skipUnobservedRoutes).
		Finish()
	if err != nil {
		_ = app.Shutdown(ctx)

		return nil, fmt.Errorf("could not create ipquery middleware: %w", err)
	}

	app.Middleware = mw
	app.closers = append(app.closers, mw.Shutdown)

	if err := app.initRouter(); err != nil {
		_ = app.Shutdown(ctx)

		return nil, err
	}

	return app, nil
}

func (app *App) initObservability(ctx context.Context) error {
	resource := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String("ipquery"),
		semconv.ServiceVersionKey.String(gitHash()),
	)

	{ // logger
		logger := alog.New()
		if app.Config.Environment == LocalEnv {
			logger = alog.NewDevelopment()
		}

		app.Logger = logger.With(
			slog.String("git_hash", gitHash()),
			slog.String("environment", string(app.Config.Environment)),
		)
	}

	{ // traces
		opts := []trace.TracerProviderOption{
			trace.WithResource(resource),
			trace.WithSampler(trace.ParentBased(trace.AlwaysSample())),
		}

		if app.Config.OTEL.Enabled {
			exporter, err := otlptracegrpc.New(ctx,
				otlptracegrpc.WithEndpoint(fmt.Sprintf("%s:%d", app.Config.OTEL.Host, app.Config.OTEL.Port)),
				otlptracegrpc.WithInsecure(),
			)
			if err != nil {
				return fmt.Errorf("could not connect to trace exporter: %w", err)
			}

			opts = append(opts, trace.WithBatcher(exporter))
		}

		app.TracerProvider = trace.NewTracerProvider(opts...)
	}

	{ // metrics
		exporter, err := prometheus.New(prometheus.WithRegisterer(app.Registry))
		if err != nil {
			return fmt.Errorf("could not create prometheus exporter: %w", err)
		}

		app.MeterProvider = metric.NewMeterProvider(
			metric.WithResource(resource),
			metric.WithReader(exporter),
		)
	}

	return nil
}

func (app *App) initStore(ctx context.Context) error {
	switch app.Config.Store.Kind {
	case StoreLog:
		app.Store = store.NewLogged(app.Logger, nil)
	case StorePostgres:
		pgConf := app.Config.Postgres
		pgConf.Migrations = postgres.Migrations

		pg, err := postgres.ConnectAndMigrate(ctx, pgConf, app.TracerProvider)
		if err != nil {
			return fmt.Errorf("could not connect to postgres: %w", err)
		}

		app.pg = pg
		app.Store = store.NewPostgres(pg.PGx)
	default:
		app.Store = store.NewMemory()
	}

	return nil
}

func (app *App) newResolver() (ipquery.Resolver, error) { //nolint:ireturn // the configured implementation
	switch app.Config.Resolver.Kind {
	case ResolverIP2Location:
		res, err := resolver.NewIP2Location(app.Config.Resolver.DBPath)
		if err != nil {
			return nil, fmt.Errorf("could not open ip2location database: %w", err)
		}

		app.closers = append(app.closers, func(context.Context) error {
			res.Close()

			return nil
		})

		return res, nil
	case ResolverMaxMind:
		res, err := resolver.NewMaxMind(app.Config.Resolver.DBPath)
		if err != nil {
			return nil, fmt.Errorf("could not open maxmind database: %w", err)
		}

		app.closers = append(app.closers, func(context.Context) error {
			return res.Close()
		})

		return res, nil
	default:
		return ipquery.NewHTTPResolver(&http.Client{Timeout: app.Config.Timeout}), nil
	}
}

func (app *App) initRouter() error {
	router := echo.New()
	router.HideBanner = true
	router.HidePort = true
	router.Logger.SetOutput(io.Discard)
	router.Debug = app.Config.Environment == LocalEnv

	if app.Config.ForwardedFor {
		router.IPExtractor = echo.ExtractIPFromXFFHeader() // see: https://echo.labstack.com/docs/ip-address
	}

	metricsMW, err := echoprometheus.MiddlewareConfig{ //nolint:exhaustruct // use defaults
		Namespace:  "ipquery",
		Registerer: app.Registry,
		Skipper:    skipUnobservedRoutes,
	}.ToMiddleware()
	if err != nil {
		return fmt.Errorf("could not create prometheus middleware: %w", err)
	}

	router.Use(otelecho.Middleware("ipquery", otelecho.WithTracerProvider(app.TracerProvider)))
	router.Use(metricsMW)
	router.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{ //nolint:exhaustruct // use defaults
		TargetHeader: echo.HeaderXRequestID,
		RequestIDHandler: func(c echo.Context, rid string) {
			ctx := alog.AddAttr(c.Request().Context(), slog.String("request_id", rid))
			if device, ok := deviceAttr(c.Request().UserAgent()); ok {
				ctx = alog.AddAttr(ctx, device)
			}

			c.SetRequest(c.Request().WithContext(ctx))
		},
	}))
	router.Use(app.Middleware.Handler)

	registerRoutes(router, app.Store)

	app.Router = router

	return nil
}

// Run starts the router and the status endpoint and blocks until ctx is cancelled or a server fails.
// Afterwards, all dependencies are shut down.
func (app *App) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	addr := ":" + strconv.Itoa(app.Config.HTTP.Port)

	app.Logger.InfoContext(ctx, "starting ipquery",
		slog.String("addr", addr),
		slog.String("store", app.Config.Store.Kind),
		slog.String("resolver", app.Config.Resolver.Kind),
		slog.String("policy", string(app.Config.Policy)),
	)

	group.Go(func() error {
		if err := app.Router.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not serve http: %w", err)
		}

		return nil
	})

	if app.Config.HTTP.StatusEndpointEnabled {
		srv := app.statusServer()

		group.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("could not serve status endpoint: %w", err)
			}

			return nil
		})

		app.closers = append(app.closers, srv.Shutdown)
	}

	group.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		return app.Shutdown(shutdownCtx)
	})

	return group.Wait() //nolint:wrapcheck // errors are wrapped by each server
}

// Shutdown stops the router, waits for all detached dispatches, and closes all dependencies.
func (app *App) Shutdown(ctx context.Context) error {
	app.Logger.InfoContext(ctx, "shutting down ipquery")

	var errs []error

	if app.Router != nil {
		errs = append(errs, app.Router.Shutdown(ctx))
	}

	// closed in reverse order of their creation, the middleware before the store
	for i := len(app.closers) - 1; i >= 0; i-- {
		errs = append(errs, app.closers[i](ctx))
	}

	if app.pg != nil {
		errs = append(errs, app.pg.Shutdown(ctx))
	}

	if app.TracerProvider != nil {
		errs = append(errs, app.TracerProvider.Shutdown(ctx))
	}

	if app.MeterProvider != nil {
		errs = append(errs, app.MeterProvider.Shutdown(ctx))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("could not shutdown cleanly: %w", err)
	}

	return nil
}

func (app *App) statusServer() *http.Server {
	const (
		metricPath = "/metrics"
		statusPath = "/status"
	)

	mux := http.NewServeMux()
	mux.Handle(metricPath, promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{ //nolint:exhaustruct
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc(statusPath, app.statusHandler)

	return &http.Server{ //nolint:exhaustruct // use defaults
		Addr:              ":" + strconv.Itoa(app.Config.HTTP.StatusEndpointPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second, //nolint:mnd
	}
}
