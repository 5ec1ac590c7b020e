package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"TradeDesk/internal/app"
	"TradeDesk/internal/config"
	"TradeDesk/internal/notifier"
	"TradeDesk/internal/scheduler"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] TradeDesk starting...")

	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}
	if err := cfg.ValidateTelegram(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	desk, err := app.New(cfg)
	if err != nil {
		log.Fatalf("[FATAL] init desk: %v", err)
	}
	defer desk.Close()

	// Positions are a cache of the trade log; bring them in line before serving.
	if _, err := desk.Manager.Rebuild(context.Background()); err != nil {
		log.Fatalf("[FATAL] rebuild positions: %v", err)
	}

	tn, err := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	if err != nil {
		log.Fatalf("[FATAL] init telegram: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.NewScheduler(ctx, desk, tn)
	if err := sched.RegisterAll(cfg.Schedule.ScanCron, cfg.Schedule.SnapshotCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Println("[INFO] Telegram polling started")

	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, scanning watchlist now")
		go sched.RunScanNow()
	}

	log.Printf("[INFO] TradeDesk is running with %d symbols. Press Ctrl+C to stop.", len(cfg.Watchlist))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] TradeDesk stopped")
}
