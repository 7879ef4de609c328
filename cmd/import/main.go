package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/infratech-maker/apclo-partner-crm/config"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/repository"
	"github.com/infratech-maker/apclo-partner-crm/internal/db"
	"github.com/infratech-maker/apclo-partner-crm/internal/importer"
	"github.com/infratech-maker/apclo-partner-crm/pkg/logger"
)

// CRMの master_leads から店舗テーブルを作り直す。
// 既存の店舗データは全削除されるため --yes が必須。
func main() {
	crmURL := flag.String("crm-db-url", os.Getenv("CRM_DATABASE_URL"), "CRM側PostgreSQLの接続URL")
	yes := flag.Bool("yes", false, "既存の店舗データ全削除に同意する")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}
	logger.Initialize(logger.Config{Level: "info", Format: "console", EnableColor: true})

	if *crmURL == "" {
		logger.Fatal("CRM database URL is required", fmt.Errorf("set -crm-db-url or CRM_DATABASE_URL"))
	}
	if !*yes {
		fmt.Println("このコマンドは既存の店舗データをすべて削除してから取り込み直します。")
		fmt.Println("実行するには --yes を付けてください。")
		os.Exit(1)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer db.Close()

	crmDB, err := importer.OpenCRM(*crmURL)
	if err != nil {
		logger.Fatal("Failed to connect to CRM database", err)
	}
	defer crmDB.Close()

	im := importer.New(crmDB, repository.NewStoreRepository(db.GetDB()))
	result, err := im.Run()
	if err != nil {
		logger.Fatal("Import failed", err)
	}

	logger.Info("Import finished", map[string]interface{}{
		"fetched":        result.Fetched,
		"converted":      result.Converted,
		"convert_errors": result.ConvertErrors,
		"inserted":       result.Inserted,
	})
}
