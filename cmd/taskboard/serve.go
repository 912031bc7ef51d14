package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"taskboard/internal/bot"
	"taskboard/internal/httpapi"
	"taskboard/internal/kv"
	"taskboard/internal/service"
	"taskboard/internal/session"
	"taskboard/internal/store"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the scheduler and the Telegram bot",
	RunE:  runServe,
}

var (
	serveAddr  string
	serveNoBot bool
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides HTTP_ADDR)")
	serveCmd.Flags().BoolVar(&serveNoBot, "no-bot", false, "do not start the Telegram bot")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger
	loc := a.cfg.Location()

	kvStore, err := a.kvStore(ctx)
	if err != nil {
		return fmt.Errorf("kv: %w", err)
	}
	authSvc := a.authService(kvStore)

	sessions := session.NewManager(a.backend, logger.Named("session"), store.WithLogger(logger.Named("store")))
	defer sessions.CloseAll()

	server := httpapi.NewServer(authSvc, sessions, httpapi.Options{
		Logger:         logger.Named("http"),
		Location:       loc,
		AllowedOrigins: a.cfg.AllowedOrigins,
		RateLimit:      a.cfg.RateLimit,
		RateBurst:      a.cfg.RateBurst,
	})

	addr := a.cfg.HTTPAddr
	if serveAddr != "" {
		addr = serveAddr
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheduler := service.NewSchedulerService(loc, logger.Named("scheduler"))
	if _, err := scheduler.ScheduleInterval(a.cfg.RefreshInterval, "refresh sessions", refreshSessions(sessions)); err != nil {
		return err
	}
	if _, err := scheduler.ScheduleInterval(time.Minute, "evict idle sessions", evictSessions(sessions, a.cfg.SessionIdle, logger)); err != nil {
		return err
	}
	if mem, ok := kvStore.(*kv.Memory); ok {
		if _, err := scheduler.ScheduleInterval(time.Minute, "sweep kv", sweepMemory(mem, logger)); err != nil {
			return err
		}
	}

	var telegram *bot.Bot
	if a.cfg.TelegramToken != "" && !serveNoBot {
		categories := service.NewCategoryService()
		telegram, err = bot.New(a.cfg.TelegramToken, bot.Deps{
			Users:    a.backend.Users,
			Auth:     authSvc,
			Sessions: sessions,
			Tasks:    service.NewTaskService(categories),
			Digest:   service.NewDigestService(a.backend),
			Location: loc,
			Logger:   logger.Named("bot"),
		})
		if err != nil {
			return err
		}
		if _, err := scheduler.ScheduleDaily(a.cfg.DigestTime, "daily digest", telegram.SendDigests); err != nil {
			return err
		}
	} else {
		logger.Info("telegram bot disabled")
	}

	scheduler.Start()
	defer scheduler.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	if telegram != nil {
		g.Go(func() error {
			return telegram.Start(gctx)
		})
	}

	err = g.Wait()
	logger.Info("shutting down")
	return err
}

// refreshSessions reloads every open session so changes made elsewhere show up.
func refreshSessions(sessions *session.Manager) service.Job {
	return func(ctx context.Context) error {
		var errs []error
		sessions.Each(func(s *session.Session) {
			if err := s.Store.LoadAll(ctx); err != nil {
				errs = append(errs, err)
			}
		})
		return errors.Join(errs...)
	}
}

// evictSessions closes sessions idle for longer than maxIdle.
func evictSessions(sessions *session.Manager, maxIdle time.Duration, logger *zap.Logger) service.Job {
	return func(context.Context) error {
		if n := sessions.EvictIdle(maxIdle); n > 0 {
			logger.Info("idle sessions evicted", zap.Int("count", n), zap.Int("open", sessions.Len()))
		}
		return nil
	}
}

// sweepMemory drops expired session keys, reset tokens and link codes.
func sweepMemory(mem *kv.Memory, logger *zap.Logger) service.Job {
	return func(context.Context) error {
		if n := mem.Sweep(); n > 0 {
			logger.Debug("expired keys swept", zap.Int("count", n))
		}
		return nil
	}
}
