package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/bot"
	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/config"
	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/event"
	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/repository"
	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[error] load config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[error] init database: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	commitmentRepo := repository.NewCommitmentRepository(db)

	bus := event.NewBus()
	current := service.NewOwnerAccessor(userRepo, cfg.OwnerTelegramID)
	planner := service.NewPlanner(taskRepo, commitmentRepo, cfg.SectionLimits, current, bus)

	// The owner row appears on the first /start, so an empty database
	// is not an error here.
	if err := planner.Refresh(ctx); err != nil && !errors.Is(err, service.ErrNoCurrentUser) {
		log.Printf("[warn] initial refresh: %v", err)
	}

	agenda := service.NewAgendaService(planner)

	plannerBot, err := bot.New(cfg.TelegramToken, userRepo, planner, agenda, &cfg)
	if err != nil {
		log.Fatalf("[error] init bot: %v", err)
	}

	scheduler := service.NewSchedulerService(time.Local)
	if _, err := scheduler.ScheduleInterval(cfg.RefreshInterval, func() {
		if err := planner.Refresh(context.Background()); err != nil && !errors.Is(err, service.ErrNoCurrentUser) {
			log.Printf("[warn] periodic refresh: %v", err)
		}
	}); err != nil {
		log.Fatalf("[error] schedule refresh: %v", err)
	}
	if cfg.AgendaTime != "" {
		if _, err := scheduler.ScheduleDaily(cfg.AgendaTime, func() {
			if err := plannerBot.SendDailyAgenda(context.Background()); err != nil {
				log.Printf("[warn] daily agenda: %v", err)
			}
		}); err != nil {
			log.Fatalf("[error] schedule agenda: %v", err)
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	if err := plannerBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("[error] bot stopped: %v", err)
	}

	log.Println("[info] shutting down")
}
