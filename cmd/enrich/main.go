package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/infratech-maker/apclo-partner-crm/config"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/repository"
	"github.com/infratech-maker/apclo-partner-crm/internal/db"
	"github.com/infratech-maker/apclo-partner-crm/internal/enrich"
	"github.com/infratech-maker/apclo-partner-crm/pkg/logger"
	"github.com/infratech-maker/apclo-partner-crm/pkg/redis"
	"github.com/infratech-maker/apclo-partner-crm/pkg/slack"
)

func main() {
	prefecture := flag.String("pref", "", "対象の都道府県（住所の前方一致）。空なら全件")
	limit := flag.Int("limit", 0, "1ラウンドあたりの処理件数（0なら設定値）")
	rounds := flag.Int("rounds", 0, "最大ラウンド数（0なら設定値）")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}
	logger.Initialize(logger.Config{Level: "info", Format: "console", EnableColor: true})

	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer db.Close()

	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Warn("Failed to connect to Redis, progress snapshots disabled", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer redis.Close()

	enrichCfg := cfg.Enrich
	if *limit > 0 {
		enrichCfg.Limit = *limit
	}
	if *rounds > 0 {
		enrichCfg.MaxRounds = *rounds
	}

	storeRepo := repository.NewStoreRepository(db.GetDB())
	notifier := slack.NewClient(cfg.Slack.WebhookURL, "apclo-partner-crm")
	enricher := enrich.NewEnricher(storeRepo, notifier, enrichCfg)

	// Ctrl-C で現在のレコードまで処理して止まる
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := enricher.Run(ctx, *prefecture); err != nil {
		logger.Fatal("Enrichment run failed", err)
	}
	logger.Info("Enrichment run finished", nil)
}
