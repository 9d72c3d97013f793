package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/wallawatch/wallawatch/internal/config"
	"github.com/wallawatch/wallawatch/internal/models"
	"github.com/wallawatch/wallawatch/internal/monitor"
	"github.com/wallawatch/wallawatch/internal/notify"
	"github.com/wallawatch/wallawatch/internal/store"
	"github.com/wallawatch/wallawatch/internal/telegram"
	"github.com/wallawatch/wallawatch/internal/wallapop"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer st.Close()

	if err := st.InitSchema(ctx); err != nil {
		log.Fatalf("store: %v", err)
	}

	var seen notify.SeenStore
	if cfg.RedisURL != "" {
		redisSeen, err := notify.NewRedisSeen(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisSeen.Close()
		seen = redisSeen
		log.Println("Using redis-backed notified-set")
	} else {
		seen = notify.NewMemorySeen()
	}

	bot, err := telegram.NewBot(cfg.TelegramToken, st)
	if err != nil {
		log.Fatalf("telegram: %v", err)
	}

	var searcher models.Searcher
	if cfg.FakeMode {
		searcher = wallapop.NewFakeSource()
	} else {
		client, err := wallapop.NewClient(cfg)
		if err != nil {
			log.Fatalf("wallapop: %v", err)
		}
		defer client.Close()
		searcher = client
	}

	dispatcher := notify.NewDispatcher(bot, seen, cfg.BulkThreshold, cfg.BulkMaxItems, cfg.SendDelay)
	mon := monitor.New(st, searcher, dispatcher, cfg.CheckInterval, cfg.ServerPort)

	bot.Start(ctx)

	log.Println("Starting Wallawatch...")
	if err := mon.Run(ctx); err != nil {
		log.Printf("monitor stopped with error: %v", err)
	}
	log.Println("Wallawatch stopped gracefully")
}
