package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orderhub/internal/config"
	"orderhub/internal/events"
	"orderhub/internal/handler"
	"orderhub/internal/infra/db"
	"orderhub/internal/infra/memory"
	infraRepo "orderhub/internal/infra/repository"
	"orderhub/internal/metrics"
	"orderhub/internal/observability"
	repo "orderhub/internal/repository"
	"orderhub/internal/server"
	"orderhub/internal/usecase"
	"orderhub/internal/validator"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now().UTC()
}

func main() {
	//.env は無くてもよい
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.GoEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	//トレース
	shutdownTracing, err := observability.SetupTracing(ctx, cfg)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	//ストア（postgres か memory）
	var (
		tx     repo.TransactionManager
		health func(context.Context) error
	)
	switch cfg.Store {
	case "memory":
		logger.Warn("using in-memory store; data is lost on restart")
		tx = memory.NewStore()
	default:
		gormDB, err := db.Connect(cfg)
		if err != nil {
			return err
		}
		if err := db.Migrate(gormDB); err != nil {
			return err
		}
		tx = infraRepo.NewTxManagerGorm(gormDB)
		health = db.Ping(gormDB)
	}

	//メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	//イベント
	var publisher usecase.EventPublisher
	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		kp := events.NewKafkaPublisher(brokers, logger, events.WithPublishTimeout(cfg.KafkaPublishTimeout))
		defer func() {
			if err := kp.Close(); err != nil {
				logger.Warn("kafka writer close failed", zap.Error(err))
			}
		}()
		publisher = kp
		logger.Info("order events enabled", zap.Strings("brokers", brokers))
	}

	//Usecase生成
	orderUC := usecase.NewOrderUsecase(tx, validator.NewOrderValidator(), &uuidGenerator{}, &realClock{}, publisher, m, logger)
	analyticsUC := usecase.NewAnalyticsUsecase(tx, m, logger)
	catalogUC := usecase.NewCatalogUsecase(tx, logger)

	//Handler生成
	e := server.New(logger, m)
	server.RegisterRoutes(e, server.Handlers{
		Orders:    handler.NewOrderHandler(orderUC),
		Catalog:   handler.NewCatalogHandler(catalogUC),
		Analytics: handler.NewAnalyticsHandler(analyticsUC),
	}, reg, health)

	//Server起動
	return server.Start(ctx, e, cfg.Addr(), cfg.ShutdownTimeout, logger)
}
