package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/ignatzorin/collab-backend/internal/config"
	"github.com/ignatzorin/collab-backend/internal/db"
	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
	"github.com/ignatzorin/collab-backend/internal/http/router"
	"github.com/ignatzorin/collab-backend/internal/infrastructure/persistence"
	"github.com/ignatzorin/collab-backend/internal/interface/http/handler"
	"github.com/ignatzorin/collab-backend/internal/logger"
	"github.com/ignatzorin/collab-backend/internal/notify"
	"github.com/ignatzorin/collab-backend/internal/service"
	"github.com/ignatzorin/collab-backend/internal/storage"
	"github.com/ignatzorin/collab-backend/internal/usecase/booking"
	"github.com/ignatzorin/collab-backend/internal/usecase/conversation"
	"github.com/ignatzorin/collab-backend/internal/usecase/dispute"
	"github.com/ignatzorin/collab-backend/internal/usecase/escrow"
	"github.com/ignatzorin/collab-backend/internal/usecase/library"
	"github.com/ignatzorin/collab-backend/internal/usecase/notification"
	"github.com/ignatzorin/collab-backend/internal/usecase/subscription"
	"github.com/ignatzorin/collab-backend/internal/worker"
	"github.com/ignatzorin/collab-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logger.Init(cfg.LogLevel)
	if cfg.Env == "development" {
		logger.SetTextFormatter()
	}

	fees, err := valueobject.NewFeeSchedule(cfg.PlatformFeeBPS)
	if err != nil {
		logger.Log.Fatalf("main: %v", err)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if _, err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		logger.Log.Fatalf("main: ошибка миграций: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)

	contentStorage, err := storage.NewContentStorage(cfg.LibraryStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		logger.Log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	tx := persistence.NewTransactor(dbConn)
	notificationRepo := persistence.NewNotificationRepository(dbConn)

	// Вебсокеты и доставка уведомлений.
	hub := ws.NewHub()

	var redisClient *redis.Client
	sinks := []notify.Sink{notify.NewStoreSink(notificationRepo)}
	if cfg.RedisURL != "" {
		redisClient, err = notify.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Log.Fatalf("main: %v", err)
		}
		defer redisClient.Close()
		sinks = append(sinks, notify.NewRedisSink(redisClient))
	} else {
		sinks = append(sinks, notify.NewHubSink(hub))
	}
	dispatcher := notify.NewDispatcher(cfg.NotifyBuffer, sinks...)

	ledger := escrow.NewLedger(fees)
	clock := func() time.Time { return time.Now().UTC() }

	checks := map[string]handler.HealthCheck{"postgres": dbConn.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	handlers := router.Handlers{
		Health:        handler.NewHealthHandler(checks),
		Bookings:      handler.NewBookingHandler(booking.Deps{Tx: tx, Ledger: ledger, Notifier: dispatcher, Clock: clock}),
		Disputes:      handler.NewDisputeHandler(dispute.Deps{Tx: tx, Ledger: ledger, Notifier: dispatcher, Clock: clock}),
		Subscriptions: handler.NewSubscriptionHandler(subscription.Deps{Tx: tx, Clock: clock}),
		Conversations: handler.NewConversationHandler(conversation.Deps{Tx: tx, Notifier: dispatcher, Clock: clock}),
		Library:       handler.NewLibraryHandler(library.Deps{Tx: tx, Storage: contentStorage, Clock: clock}, contentStorage.MaxUploadBytes()),
		Notifications: handler.NewNotificationHandler(notification.NewInboxUseCase(notificationRepo)),
		WS:            handler.NewWSHandler(hub, cfg.AllowedOrigins),
	}

	engine := router.SetupRouter(router.Options{
		Production:      cfg.IsProduction(),
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitLimit:  cfg.RateLimitLimit,
		RateLimitPeriod: cfg.RateLimitPeriod,
	}, handlers, tokenManager)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweep := worker.NewSweepWorker(subscription.NewSweep(tx, dispatcher, cfg.SweepConcurrency), cfg.SweepInterval)

	g, gctx := errgroup.WithContext(ctx)
	dispatcher.Start(gctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		sweep.Start(gctx)
		return nil
	})
	if redisClient != nil {
		relay := notify.NewRelay(redisClient, hub)
		g.Go(func() error {
			return relay.Run(gctx)
		})
	}
	g.Go(func() error {
		logger.Log.Infof("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	// Завершаем сервер при получении сигнала.
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Log.WithError(err).Error("main: сервер завершился с ошибкой")
	}
	dispatcher.Wait()
	logger.Log.Info("main: остановлено")
}

// safeClose закрывает соединение с базой.
func safeClose(conn *sqlx.DB) {
	if err := conn.Close(); err != nil {
		logger.Log.Errorf("main: ошибка закрытия базы: %v", err)
	}
}
