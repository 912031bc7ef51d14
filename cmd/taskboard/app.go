package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskboard/internal/auth"
	"taskboard/internal/config"
	"taskboard/internal/kv"
	"taskboard/internal/logging"
	"taskboard/internal/repository"
)

// app holds the infrastructure shared by every subcommand.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	db      *gorm.DB
	backend *repository.Backend
	redis   *redis.Client
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	db, err := repository.NewDB(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Sync()
		return nil, fmt.Errorf("db: %w", err)
	}
	return &app{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		backend: repository.NewBackend(db),
	}, nil
}

// kvStore connects to Redis when configured and falls back to process memory.
func (a *app) kvStore(ctx context.Context) (kv.Store, error) {
	if a.cfg.RedisAddr == "" {
		a.logger.Warn("REDIS_ADDR not set, sessions live in memory")
		return kv.NewMemory(), nil
	}
	client, err := kv.Dial(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword, 0)
	if err != nil {
		return nil, err
	}
	a.redis = client
	return kv.NewRedis(client, "taskboard:"), nil
}

func (a *app) authService(store kv.Store) *auth.Service {
	opts := []auth.Option{
		auth.WithTTL(a.cfg.SessionTTL),
		auth.WithLogger(a.logger.Named("auth")),
		auth.WithMailer(auth.LogMailer{Logger: a.logger.Named("mailer")}),
	}
	if g := a.cfg.Google; g.Enabled() {
		opts = append(opts, auth.WithProvider(auth.Google(g.ClientID, g.ClientSecret, g.RedirectURL)))
	}
	return auth.NewService(a.backend.Users, a.backend.Categories, store, a.cfg.JWTSecret, opts...)
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
	_ = a.logger.Sync()
}
