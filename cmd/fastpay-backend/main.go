package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fastpay-backend/internal/alert"
	"fastpay-backend/internal/config"
	"fastpay-backend/internal/firebase"
	"fastpay-backend/internal/httpapi"
	"fastpay-backend/internal/repository"
	"fastpay-backend/internal/scheduler"
	"fastpay-backend/internal/store"
	"fastpay-backend/internal/sync"

	_ "github.com/lib/pq"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger := newLogger(cfg)
	defer logger.Sync()

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		logger.Fatal("open database failed", zap.Error(err))
	}
	db.SetMaxOpenConns(cfg.Database.MaxConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdle)
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	kv := store.NewRedisKV(redisClient)

	fb := firebase.NewClient(cfg.Firebase.DatabaseURL, cfg.Firebase.AuthToken, cfg.Firebase.Env, logger)

	devicesRepo := repository.NewPostgresDevicesRepo(db, logger)
	messagesRepo := repository.NewPostgresMessagesRepo(db)
	notificationsRepo := repository.NewPostgresNotificationsRepo(db)
	contactsRepo := repository.NewPostgresContactsRepo(db)
	syncLogsRepo := repository.NewPostgresSyncLogsRepo(db)
	bankCardsRepo := repository.NewPostgresBankCardsRepo(db)
	companiesRepo := repository.NewPostgresCompaniesRepo(db)
	dashUsersRepo := repository.NewPostgresDashUsersRepo(db)

	registry := sync.NewRegistry()
	registry.Register(sync.NewMessagesCommand(fb, messagesRepo, devicesRepo, logger))
	registry.Register(sync.NewNotificationsCommand(fb, notificationsRepo, devicesRepo, logger))
	registry.Register(sync.NewContactsCommand(fb, contactsRepo, devicesRepo, logger))
	runner := sync.NewRunner(registry, devicesRepo, syncLogsRepo, logger)

	telegram := alert.NewTelegramClient(cfg.Telegram.BotToken, logger)
	alerter := alert.NewAlerter(telegram, kv, cfg.Telegram.ChatIDs,
		time.Duration(cfg.Telegram.ThrottleSeconds)*time.Second, logger)
	if cfg.SMS.APIURL != "" && len(cfg.SMS.Recipients) > 0 {
		sms := alert.NewSMSClient(cfg.SMS.APIURL, cfg.SMS.APIKey, cfg.SMS.Sender, logger)
		alerter.WithFallback(sms, cfg.SMS.Recipients)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(logger)
	scheduler.Register(sched, cfg, scheduler.Deps{
		Runner:  runner,
		Devices: devicesRepo,
		Logs:    syncLogsRepo,
		Alerter: alerter,
		Health: map[string]scheduler.Pinger{
			"database": pingDB{db},
			"redis":    kv,
			"firebase": fb,
			"telegram": telegram,
		},
		Logger: logger,
	})
	sched.Start(ctx)

	authHandler := httpapi.NewAuthHandler(dashUsersRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, logger)
	devicesHandler := httpapi.NewDevicesHandler(devicesRepo, messagesRepo, notificationsRepo, contactsRepo, bankCardsRepo, logger)
	syncHandler := httpapi.NewSyncHandler(runner, syncLogsRepo, logger)
	companiesHandler := httpapi.NewCompaniesHandler(companiesRepo, logger)
	healthHandler := httpapi.NewHealthHandler(map[string]httpapi.Pinger{
		"database": pingDB{db},
		"redis":    kv,
		"firebase": fb,
	}, logger)

	router := httpapi.NewRouter(logger)
	router.Register(authHandler, devicesHandler, syncHandler, companiesHandler, healthHandler)
	srv := httpapi.NewServer(cfg.HTTP.Addr, router, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", zap.Error(err))
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	sched.Wait()
}

// pingDB adapts *sql.DB to the Pinger interfaces.
type pingDB struct {
	db *sql.DB
}

func (p pingDB) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func newLogger(cfg *config.Config) *zap.Logger {
	var zc zap.Config
	if cfg.Log.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	if level, err := zap.ParseAtomicLevel(cfg.Log.Level); err == nil {
		zc.Level = level
	}
	logger, err := zc.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
