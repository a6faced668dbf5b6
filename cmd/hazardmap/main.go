package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hazard-map/internal/bot"
	"hazard-map/internal/config"
	"hazard-map/internal/repository"
	"hazard-map/internal/service"
	"hazard-map/internal/web"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	markerRepo := repository.NewMarkerRepository(db)

	markerSvc := service.NewMarkerService(markerRepo, userRepo, cfg.AdminID, cfg.MarkerTTL)

	telegramBot, err := bot.New(cfg.TelegramToken, userRepo, markerSvc, &cfg)
	if err != nil {
		log.Fatalf("bot: %v", err)
	}

	mapServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: web.NewServer(userRepo, markerRepo).Router(),
	}
	go func() {
		log.Printf("[info] map server listening on %s", cfg.HTTPAddr)
		if err := mapServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("map server: %v", err)
		}
	}()

	scheduler := service.NewSchedulerService(time.Local)
	if cfg.MarkerTTL > 0 {
		if _, err := scheduler.ScheduleInterval(cfg.ExpiryInterval, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			removed, err := markerSvc.ExpireStale(jobCtx, time.Now())
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("expire markers: %v", err)
				return
			}
			if removed > 0 {
				log.Printf("[info] expired %d stale markers", removed)
			}
		}); err != nil {
			log.Fatalf("schedule expiry: %v", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	log.Println("Hazard map bot started.")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mapServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("map server shutdown: %v", err)
	}
	log.Println("Shutdown complete.")
}
