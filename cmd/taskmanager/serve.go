package main

import (
	"context"
	"fmt"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taskmanager/internal/api"
	"taskmanager/internal/auth"
	"taskmanager/internal/config"
	"taskmanager/internal/notify"
	"taskmanager/internal/repository"
	"taskmanager/internal/service"
)

const resyncTimeout = 30 * time.Second

func runServe(_ *cobra.Command, _ []string) error {
	cfg, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("db handle: %w", err)
	}
	defer sqlDB.Close()

	deliverer, err := newDeliverer(cfg.Notify, log)
	if err != nil {
		return err
	}
	facility := notify.NewCronFacility(deliverer, log.Named("alarm"))
	facility.Start()

	taskRepo := repository.NewTaskRepository(db)
	userRepo := repository.NewUserRepository(db)
	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	reminders := service.NewReminderService(notify.NewScheduler(facility, log.Named("scheduler")), taskRepo, log)
	tasks := service.NewTaskService(taskRepo, reminders, log.Named("tasks"))
	users := service.NewAuthService(userRepo, tokens, auth.NewPasswordHasher(), log.Named("auth"))

	resyncCtx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
	if _, err := reminders.Resync(resyncCtx); err != nil {
		log.Warn("reminders not re-armed", zap.Error(err))
	}
	cancel()

	app := api.New(api.Config{
		Tasks:  tasks,
		Auth:   users,
		Tokens: tokens,
		Log:    log,
		Ping:   sqlDB.PingContext,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("http server", zap.Error(err))
		}
	}()
	log.Info("taskmanager started",
		zap.String("port", cfg.Port),
		zap.String("notify_channel", cfg.Notify.Channel))

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http": func(ctx context.Context) error {
				log.Info("stopping http server")
				return app.ShutdownWithContext(ctx)
			},
			"alarm": func(ctx context.Context) error {
				log.Info("stopping reminder scheduler")
				return facility.Stop(ctx)
			},
		},
	)

	if code := <-wait; code != 0 {
		return fmt.Errorf("shutdown finished with exit code %d", code)
	}
	log.Info("shutdown complete")
	return nil
}

func newDeliverer(cfg config.NotifyConfig, log *zap.Logger) (notify.Deliverer, error) {
	switch cfg.Channel {
	case config.ChannelTelegram:
		d, err := notify.NewTelegramDeliverer(cfg.TelegramToken, cfg.TelegramChatID, log)
		if err != nil {
			return nil, err
		}
		if !d.Enabled() {
			log.Warn("TELEGRAM_CHAT_ID not set, reminder alerts are disabled")
		}
		return d, nil
	case config.ChannelNone:
		return nil, nil
	default:
		return notify.NewLogDeliverer(log), nil
	}
}
