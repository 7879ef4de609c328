package main

import (
	"context"
	"errors"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/infratech-maker/apclo-partner-crm/config"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/repository"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/service"
	"github.com/infratech-maker/apclo-partner-crm/internal/browser"
	"github.com/infratech-maker/apclo-partner-crm/internal/collector"
	"github.com/infratech-maker/apclo-partner-crm/internal/crawler"
	"github.com/infratech-maker/apclo-partner-crm/internal/db"
	"github.com/infratech-maker/apclo-partner-crm/pkg/logger"
	"github.com/infratech-maker/apclo-partner-crm/pkg/slack"
)

// mode で3つの収集経路を切り替える。
//
//	list    UberEatsの店舗一覧をブラウザで収集してCSVへ
//	details 一覧CSVの各店舗ページから住所・電話番号を補完
//	tabelog 食べログのニューオープン一覧を巡回してDBへ保存
func main() {
	mode := flag.String("mode", "list", "収集モード: list | details | tabelog")
	input := flag.String("input", "", "detailsモードの入力CSV（一覧収集の出力）")
	output := flag.String("output", "", "出力CSV（省略時は設定値）")
	headless := flag.Bool("headless", false, "ヘッドレスで起動する")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}
	logger.Initialize(logger.Config{Level: "info", Format: "console", EnableColor: true})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "list":
		runList(ctx, cfg, *output, *headless)
	case "details":
		runDetails(ctx, cfg, *input, *output, *headless)
	case "tabelog":
		runTabelog(cfg, flag.Args())
	default:
		logger.Fatal("Unknown mode", errors.New(*mode))
	}
}

func newDriver(cfg *config.Config, headless bool) *browser.ChromeDriver {
	driver, err := browser.New(browser.Options{
		Headless:  headless,
		UserAgent: cfg.Collector.UserAgent,
		Timeout:   30 * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to launch browser", err)
	}
	return driver
}

func runList(ctx context.Context, cfg *config.Config, output string, headless bool) {
	if output == "" {
		output = cfg.Collector.OutputFile
	}
	sink, err := collector.NewListSink(output)
	if err != nil {
		logger.Fatal("Failed to open output CSV", err)
	}
	logger.Info("Starting store list collection", map[string]interface{}{
		"areas":    len(cfg.Collector.TargetLocations),
		"output":   output,
		"resumed":  sink.SeenCount(),
		"headless": headless,
	})

	driver := newDriver(cfg, headless)
	defer driver.Close()

	notifier := slack.NewClient(cfg.Slack.WebhookURL, "apclo-partner-crm")
	c := collector.NewCollector(driver, sink, notifier, cfg.Collector)
	if err := c.Run(ctx); err != nil {
		if errors.Is(err, collector.ErrBlocked) {
			logger.Fatal("Collection aborted by bot detection", err)
		}
		logger.Fatal("Collection failed", err)
	}
}

func runDetails(ctx context.Context, cfg *config.Config, input, output string, headless bool) {
	if input == "" {
		input = cfg.Collector.OutputFile
	}
	if output == "" {
		output = "ubereats_list_details.csv"
	}
	sink, err := collector.NewDetailSink(output)
	if err != nil {
		logger.Fatal("Failed to open output CSV", err)
	}

	driver := newDriver(cfg, headless)
	defer driver.Close()

	fetcher := collector.NewDetailFetcher(driver, sink)
	processed, err := fetcher.Run(ctx, input)
	if err != nil {
		logger.Fatal("Detail fetch failed", err)
	}
	logger.Info("Detail fetch finished", map[string]interface{}{
		"processed": processed,
		"output":    output,
	})
}

func runTabelog(cfg *config.Config, listURLs []string) {
	if len(listURLs) == 0 {
		logger.Fatal("Usage: collect -mode tabelog <listing_url>...", errors.New("no listing URLs"))
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer db.Close()

	stores := service.NewStoreService(repository.NewStoreRepository(db.GetDB()))
	c := crawler.New(stores, cfg.Enrich.UserAgent, 2*time.Second)
	result, err := c.Run(listURLs)
	if err != nil {
		logger.Fatal("Tabelog crawl failed", err)
	}
	logger.Info("Tabelog crawl finished", map[string]interface{}{
		"found":   result.Found,
		"saved":   result.Saved,
		"skipped": result.Skipped,
	})
}
