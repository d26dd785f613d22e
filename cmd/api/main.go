package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"supplychain/internal/config"
	"supplychain/internal/handler"
	"supplychain/internal/infra/cache"
	"supplychain/internal/infra/db"
	"supplychain/internal/infra/notify"
	"supplychain/internal/infra/observability"
	infraRepo "supplychain/internal/infra/repository"
	"supplychain/internal/server"
	"supplychain/internal/usecase"

	"go.uber.org/zap"
)

func main() {
	config.LoadDotenv()
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := observability.NewLogger(cfg.IsProd())
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//トレース
	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("tracing setup failed", zap.Error(err))
	}

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	if err := db.Migrate(gormDB); err != nil {
		logger.Fatal("db migrate failed", zap.Error(err))
	}

	txm := infraRepo.NewTxManagerGorm(gormDB, cfg.TxMaxRetries, logger)

	var closers []io.Closer
	opts := []usecase.OrderOption{usecase.WithLogger(logger)}

	//キャッシュ（任意）
	if cfg.RedisAddr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Fatal("redis connect failed", zap.Error(err))
		}
		c := cache.NewTrackingRedisCache(client, cfg.TrackingCacheTTL)
		closers = append(closers, c)
		opts = append(opts, usecase.WithTrackingCache(c))
	}

	//通知（任意）
	switch cfg.Notifier {
	case config.NotifierKafka:
		n := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		closers = append(closers, n)
		opts = append(opts, usecase.WithNotifier(n))
	case config.NotifierRabbitMQ:
		n, err := notify.NewRabbitMQNotifier(cfg.RabbitMQURL, cfg.RabbitMQQueue, logger)
		if err != nil {
			logger.Fatal("rabbitmq connect failed", zap.Error(err))
		}
		closers = append(closers, n)
		opts = append(opts, usecase.WithNotifier(n))
	}

	//Usecase生成
	orderUC := usecase.NewOrderUsecase(txm, opts...)
	inventoryUC := usecase.NewInventoryUsecase(txm, logger)

	//Handler生成
	e := server.New(server.Handlers{
		Orders:    handler.NewOrderHandler(orderUC),
		Inventory: handler.NewInventoryHandler(inventoryUC),
	}, cfg.JWTSecret, logger)

	//Server起動
	if err := server.Start(ctx, e, server.Addr(cfg.Port), logger); err != nil {
		logger.Error("http server stopped", zap.Error(err))
	}

	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Warn("close failed", zap.Error(err))
		}
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		logger.Warn("tracing shutdown failed", zap.Error(err))
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
