package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asquebay/order-stats-service/internal/config"
	"github.com/asquebay/order-stats-service/internal/lib/logger"
	"github.com/asquebay/order-stats-service/internal/repository/cache"
	"github.com/asquebay/order-stats-service/internal/repository/postgres"
	"github.com/asquebay/order-stats-service/internal/service"
	httptransport "github.com/asquebay/order-stats-service/internal/transport/http"
	"github.com/asquebay/order-stats-service/internal/transport/kafka"

	"github.com/jonboulle/clockwork"
)

func main() {
	// 1. Инициализация конфигурации
	cfg := config.MustLoad(config.PathFromEnv())

	// 2. Инициализация логгера
	log := logger.New(cfg.Logger.Level, cfg.Logger.Format)
	log.Info("starting order-stats-service",
		slog.String("log_level", cfg.Logger.Level),
		slog.String("cache_driver", cfg.Cache.Driver),
	)

	// 3. Инициализация репозитория (БД)
	initCtx := context.Background()
	dbpool, err := postgres.New(initCtx, cfg.Postgres)
	if err != nil {
		log.Error("failed to connect to postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbpool.Close()
	log.Info("successfully connected to postgres")

	db := postgres.OpenDB(dbpool)
	defer db.Close()
	statsRepo := postgres.NewStatsRepository(db)

	// 4. Инициализация кэша
	clock := clockwork.NewRealClock()
	metricCache, closeCache := newMetricCache(initCtx, cfg.Cache, clock, log)
	defer closeCache()

	// 5. Инициализация сервисного слоя
	statsSvc, err := service.NewDashboard(statsRepo, metricCache, clock, cfg.Stats, log)
	if err != nil {
		log.Error("failed to build dashboard", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("dashboard providers registered", slog.Any("metrics", statsSvc.Metrics()))

	// 6. Инициализация и запуск Kafka-консьюмера команд
	ctx, cancel := context.WithCancel(context.Background())
	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		consumer = kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, statsSvc, log)
		go consumer.Run(ctx)
	} else {
		log.Info("kafka command channel disabled")
	}

	// 7. Инициализация и запуск HTTP-сервера
	handler := httptransport.NewHandler(statsSvc, log)
	httpServer := httptransport.NewServer(cfg.HTTPServer.Port, handler, cfg.HTTPServer.Timeout)
	log.Info("starting http server", slog.String("port", httpServer.Addr()))

	go func() {
		if err := httpServer.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed to start", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// 8. Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down application")
	cancel() // сигнал для консьюмера на завершение

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", slog.String("error", err.Error()))
	}

	if consumer != nil {
		if err := consumer.Close(); err != nil {
			log.Error("error closing kafka consumer", slog.String("error", err.Error()))
		}
	}

	log.Info("application stopped")
}

// newMetricCache выбирает хранилище кэша по конфигу
// если redis не отвечает при старте, используется кэш в памяти процесса
func newMetricCache(ctx context.Context, cfg config.Cache, clock clockwork.Clock, log *slog.Logger) (service.MetricCache, func()) {
	if cfg.Driver != "redis" {
		log.Info("in-memory metric cache initialized")
		return cache.NewMetricCache(clock), func() {}
	}

	rdb := cache.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unavailable, falling back to in-memory cache",
			slog.String("addr", cfg.Redis.Addr),
			slog.String("error", err.Error()),
		)
		_ = rdb.Close()
		return cache.NewMetricCache(clock), func() {}
	}

	log.Info("redis metric cache initialized", slog.String("addr", cfg.Redis.Addr), slog.String("prefix", cfg.Prefix))
	return cache.NewRedisCache(rdb, cfg.Prefix, cfg.Redis.OpTimeout), func() {
		if err := rdb.Close(); err != nil {
			log.Error("error closing redis client", slog.String("error", err.Error()))
		}
	}
}
