package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"orderhub/internal/config"
	"orderhub/internal/importer"
	"orderhub/internal/infra/db"
	infraRepo "orderhub/internal/infra/repository"
	"orderhub/internal/observability"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// CSV（customers / products / orders）をPostgresに入れ直す
func main() {
	dir := flag.String("dir", "data", "directory containing customers.csv, products.csv and orders.csv")
	flag.Parse()

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

	gormDB, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	if err := db.Migrate(gormDB); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	res, err := importer.New(infraRepo.NewTxManagerGorm(gormDB), logger).ImportDir(ctx, *dir)
	if err != nil {
		logger.Fatal("import failed", zap.String("dir", *dir), zap.Error(err))
	}
	logger.Info("all data imported successfully",
		zap.Int("customers", res.Customers),
		zap.Int("products", res.Products),
		zap.Int("orders", res.Orders))
}
