package main

import (
	"context"
	"expvar"
	"log"
	"runtime"

	_ "github.com/peermeet/peermeet/docs"
	"github.com/peermeet/peermeet/internal/infrastructure/configs"
	"github.com/peermeet/peermeet/internal/infrastructure/events"
	"github.com/peermeet/peermeet/internal/infrastructure/logging"
	"github.com/peermeet/peermeet/internal/infrastructure/messaging"
	"github.com/peermeet/peermeet/internal/infrastructure/ratelimiter"
	"github.com/peermeet/peermeet/internal/infrastructure/registry"
	"github.com/peermeet/peermeet/internal/infrastructure/token"
	"github.com/peermeet/peermeet/internal/infrastructure/tracing"
	"github.com/peermeet/peermeet/internal/infrastructure/ws"
	"github.com/peermeet/peermeet/internal/persistence/db"
	"github.com/peermeet/peermeet/internal/persistence/repository"
	"github.com/peermeet/peermeet/internal/presentation/api"
	"github.com/peermeet/peermeet/internal/presentation/handler/health"
	"github.com/peermeet/peermeet/internal/presentation/handler/pages"
	"github.com/peermeet/peermeet/internal/presentation/handler/realtime"
	"github.com/peermeet/peermeet/internal/presentation/handler/session"
)

const (
	serviceName = "peermeet-api"
)

// @title        PeerMeet API
// @version      1.0
// @description  Peer-to-peer video meeting server: session issuance and realtime signaling.
// @BasePath     /api
func main() {
	tracerCfg := tracing.NewDefaultConfig(serviceName)

	sh, err := tracing.InitTracer(tracerCfg)
	if err != nil {
		log.Fatalf("Failed to initialize the tracer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer sh(ctx)

	logger := logging.NewLogger(logging.NewDefaultConfig())
	logger.Init()

	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	mongoCfg := db.NewMongoDefaultConfig()
	mongoClient, err := db.NewMongoClient(ctx, mongoCfg)
	if err != nil {
		log.Fatal(err)
	}
	defer db.DisconnectMongo(context.Background(), mongoClient)

	database := db.GetDatabase(mongoClient, mongoCfg)

	meetingRepository := repository.NewMeetingRepository(database, cfg.Meeting.TTL)
	registrationRepository := repository.NewRegistrationRepository(database, cfg.Meeting.TTL)
	auditLogRepository := repository.NewMeetingAuditLogRepository(database)

	if err := meetingRepository.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to ensure meeting indexes: %v", err)
	}
	if err := registrationRepository.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to ensure registration indexes: %v", err)
	}
	if err := auditLogRepository.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to ensure audit log indexes: %v", err)
	}

	occupancy := registry.New(cfg.Meeting.Capacity)
	tokens := token.NewCodec(cfg.Meeting.Secret)

	var rabbitmq *messaging.RabbitMQ
	if cfg.AMQP.Enabled {
		rabbitmq, err = messaging.NewRabbitMQ(cfg.AMQP.URI)
		if err != nil {
			log.Fatal(err)
		}
		defer rabbitmq.Close()

		log.Println("Starting RabbitMQ connection")

		meetingConsumer := events.NewMeetingConsumer(rabbitmq, auditLogRepository)
		go func() {
			if err := meetingConsumer.Listen(); err != nil {
				logger.Errorf("meeting consumer stopped: %v", err)
			}
		}()
	}

	meetingPublisher := events.NewMeetingPublisher(rabbitmq)

	wsCore := ws.NewCore(tokens, meetingRepository, occupancy, meetingPublisher, logger)
	go wsCore.Run(ctx)

	sessionHandler := session.NewHandler(meetingRepository, registrationRepository, occupancy, tokens, meetingPublisher, logger)
	realtimeHandler := realtime.NewHandler(wsCore, logger)
	pagesHandler := pages.NewHandler(meetingRepository, cfg.HTTP.BuildDir, logger)
	healthHandler := health.NewHandler()

	rl := ratelimiter.New(ratelimiter.Options{
		MaxRatePerSecond: cfg.RateLimiter.MaxRatePerSecond,
		MaxBurst:         cfg.RateLimiter.MaxBurst,
		StoreTTL:         cfg.RateLimiter.CacheTTL,
		SourceHeaderKey:  cfg.RateLimiter.SourceHeaderKey,
	})

	app := api.NewApplication(*cfg, sessionHandler, realtimeHandler, pagesHandler, healthHandler, logger, rl)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.Mount()
	if err := app.Run(mux); err != nil {
		logger.Fatalf("server error: %v", err)
	}
}
