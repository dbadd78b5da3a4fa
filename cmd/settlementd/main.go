// Command settlementd serves the split payment settlement engine over HTTP.
//
// The default topology is self-contained for development: an in-memory
// ledger, sandbox card and link gateways, and an in-memory record sink.
// Environment variables switch in production collaborators:
//
//	SETTLE_ADDR          listen address (default ":8085")
//	SETTLE_LOG_LEVEL     debug|info|warn|error (default "info")
//	SETTLE_POSTGRES_DSN  enables the Postgres settlement record sink
//	SETTLE_KAFKA_BROKERS comma-separated brokers, enables event publishing
//	SETTLE_REDIS_ADDR    enables the distributed settlement lock
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/fleetgrid/lib-settlement/api"
	"github.com/fleetgrid/lib-settlement/settlement/events"
	"github.com/fleetgrid/lib-settlement/settlement/funding"
	"github.com/fleetgrid/lib-settlement/settlement/gateway"
	"github.com/fleetgrid/lib-settlement/settlement/instrument"
	"github.com/fleetgrid/lib-settlement/settlement/log"
	"github.com/fleetgrid/lib-settlement/settlement/orchestration"
	"github.com/fleetgrid/lib-settlement/settlement/record"
	"github.com/fleetgrid/lib-settlement/settlement/redislock"
)

const shutdownTimeout = 30 * time.Second

func main() {
	level, err := log.ParseLevel(envOr("SETTLE_LOG_LEVEL", "info"))
	if err != nil {
		level = log.LevelInfo
	}

	logger, err := log.NewZap(level)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	ledger := funding.NewMemoryLedger()
	registry := instrument.NewDefaultRegistry(
		ledger,
		gateway.NewSandboxCardRail(),
		gateway.NewSandboxLinkGateway(24*time.Hour),
	)

	deps := orchestration.Deps{
		Registry: registry,
		Profiles: ledger,
		Sink:     buildSink(ctx, logger),
		Locker:   buildLocker(ctx, logger),
		Logger:   logger,
	}

	if brokers := os.Getenv("SETTLE_KAFKA_BROKERS"); brokers != "" {
		publisher, err := events.NewKafkaPublisher(strings.Split(brokers, ","), logger)
		if err != nil {
			logger.Log(ctx, log.LevelError, "kafka publisher unavailable, events disabled", log.Err(err))
		} else {
			defer func() { _ = publisher.Close() }()
			deps.Publisher = publisher
		}
	}

	orchestrator, err := orchestration.New(deps)
	if err != nil {
		logger.Log(ctx, log.LevelError, "failed to build orchestrator", log.Err(err))
		os.Exit(1)
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	api.NewHandler(orchestrator).Register(app)

	addr := envOr("SETTLE_ADDR", ":8085")

	go func() {
		logger.Log(ctx, log.LevelInfo, "settlement engine listening", log.String("addr", addr))

		if err := app.Listen(addr); err != nil {
			logger.Log(ctx, log.LevelError, "server stopped", log.Err(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log(ctx, log.LevelInfo, "shutting down")

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Log(ctx, log.LevelError, "graceful shutdown failed", log.Err(err))
	}
}

// buildSink returns the Postgres record sink when a DSN is configured,
// otherwise an in-memory sink.
func buildSink(ctx context.Context, logger log.Logger) record.Sink {
	dsn := os.Getenv("SETTLE_POSTGRES_DSN")
	if dsn == "" {
		return record.NewMemorySink()
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Log(ctx, log.LevelError, "postgres unavailable, using in-memory record sink", log.Err(err))
		return record.NewMemorySink()
	}

	sink, err := record.NewGormSink(db)
	if err != nil {
		logger.Log(ctx, log.LevelError, "record sink migration failed, using in-memory sink", log.Err(err))
		return record.NewMemorySink()
	}

	return sink
}

// buildLocker returns the distributed lock manager when Redis is configured,
// otherwise the in-process keyed mutex.
func buildLocker(ctx context.Context, logger log.Logger) orchestration.Locker {
	addr := os.Getenv("SETTLE_REDIS_ADDR")
	if addr == "" {
		return orchestration.NewKeyedMutex()
	}

	client := redis.NewClient(&redis.Options{Addr: addr})

	manager, err := redislock.NewManager(client, redislock.DefaultOptions(), logger)
	if err != nil {
		logger.Log(ctx, log.LevelError, "redis lock unavailable, using in-process lock", log.Err(err))
		return orchestration.NewKeyedMutex()
	}

	return manager
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}
