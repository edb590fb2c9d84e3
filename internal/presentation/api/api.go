package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/peermeet/peermeet/internal/infrastructure/configs"
	"github.com/peermeet/peermeet/internal/infrastructure/logging"
	"github.com/peermeet/peermeet/internal/infrastructure/metrics"
	"github.com/peermeet/peermeet/internal/infrastructure/ratelimiter"
	healthHandler "github.com/peermeet/peermeet/internal/presentation/handler/health"
	pagesHandler "github.com/peermeet/peermeet/internal/presentation/handler/pages"
	realtimeHandler "github.com/peermeet/peermeet/internal/presentation/handler/realtime"
	sessionHandler "github.com/peermeet/peermeet/internal/presentation/handler/session"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Application struct {
	config          configs.Config
	sessionHandler  *sessionHandler.Handler
	realtimeHandler *realtimeHandler.Handler
	pagesHandler    *pagesHandler.Handler
	healthHandler   *healthHandler.Handler
	logger          logging.Logger
	ratelimiter     ratelimiter.Limiter
}

func NewApplication(
	config configs.Config,
	sessionHandler *sessionHandler.Handler,
	realtimeHandler *realtimeHandler.Handler,
	pagesHandler *pagesHandler.Handler,
	healthHandler *healthHandler.Handler,
	logger logging.Logger,
	ratelimiter ratelimiter.Limiter,
) *Application {
	return &Application{
		config:          config,
		sessionHandler:  sessionHandler,
		realtimeHandler: realtimeHandler,
		pagesHandler:    pagesHandler,
		healthHandler:   healthHandler,
		logger:          logger,
		ratelimiter:     ratelimiter,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(app.loggerMiddleware)
	r.Use(app.prometheusMiddleware)
	r.Use(app.enableCors)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(app.rateLimiterMiddleware)
			r.Post("/create-meeting", app.sessionHandler.CreateMeetingHandler)
			r.Post("/sign-in", app.sessionHandler.SignInHandler)
		})

		r.Get("/health", app.healthHandler.GetHealth)
		r.Get("/healthz", app.healthHandler.GetHealth)
		r.Get("/ready", app.healthHandler.GetHealth)
		r.Get("/live", app.healthHandler.GetHealth)
	})

	// The websocket channel is exempt from the request timeout and rate
	// limiter: connections are long-lived by design.
	r.Get("/ws", app.realtimeHandler.ServeWS)

	r.Get("/meeting/{meetingId}", app.pagesHandler.GetMeetingPageHandler)

	r.Handle("/metrics", metrics.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// Everything else falls through to the built browser client.
	fileServer := http.FileServer(http.Dir(app.config.HTTP.BuildDir))
	r.Handle("/*", fileServer)

	return otelhttp.NewHandler(r, "peermeet.http")
}

func (app *Application) Run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      mux,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		healthHandler.SetUnhealthy()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Info(logging.General, logging.Shutdown, "signal caught", map[logging.ExtraKey]any{
			"signal": s.String(),
		})

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Info(logging.General, logging.Startup, "server has started", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Info(logging.General, logging.Shutdown, "server has stopped", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	return nil
}
