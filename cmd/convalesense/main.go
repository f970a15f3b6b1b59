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

	"github.com/gin-gonic/gin"

	"convalesense/internal/admin"
	"convalesense/internal/bot"
	"convalesense/internal/config"
	"convalesense/internal/logger"
	"convalesense/internal/repository"
	"convalesense/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal("timezone", "error", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("db", "error", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	exerciseRepo := repository.NewExerciseRepository(db)
	planRepo := repository.NewPlanRepository(db)
	planExerciseRepo := repository.NewPlanExerciseRepository(db)
	recordRepo := repository.NewExerciseRecordRepository(db)

	exerciseSvc := service.NewExerciseService(exerciseRepo, planRepo)
	planSvc := service.NewPlanService(planRepo, planExerciseRepo, exerciseRepo, userRepo)
	recordSvc := service.NewRecordService(recordRepo, planExerciseRepo)
	reminderSvc := service.NewReminderService(planRepo)

	if cfg.LogMode == "prod" || cfg.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := admin.NewHandler(exerciseSvc, planSvc, recordSvc, userRepo, log)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           admin.NewRouter(handler, log.With("component", "http"), cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("admin api listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	if cfg.TelegramToken == "" {
		log.Info("TELEGRAM_TOKEN not set, patient bot and reminders disabled")
	} else {
		telegramBot, err := bot.New(cfg.TelegramToken, userRepo, planSvc, recordSvc, reminderSvc, loc, log)
		if err != nil {
			log.Fatal("bot", "error", err)
		}

		scheduler := service.NewSchedulerService(loc, log.With("component", "scheduler"))
		if _, err := scheduler.ScheduleDaily(cfg.ReminderTime, telegramBot.SendDailyReports); err != nil {
			log.Fatal("schedule reminders", "error", err)
		}
		scheduler.Start()
		defer scheduler.Stop()

		go func() {
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("bot stopped with error", "error", err)
			}
		}()
		log.Info("patient bot started", "reminder_time", cfg.ReminderTime, "timezone", loc.String())
	}

	select {
	case <-ctx.Done():
	case err, ok := <-serverErr:
		if ok {
			log.Error("admin api failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown admin api", "error", err)
	}
	log.Info("shutdown complete")
}
