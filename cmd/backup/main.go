package main

import (
	"context"
	"encoding/json"
	"flag"
	"time"

	"github.com/infratech-maker/apclo-partner-crm/config"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/repository"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/service"
	"github.com/infratech-maker/apclo-partner-crm/internal/db"
	"github.com/infratech-maker/apclo-partner-crm/internal/storage"
	"github.com/infratech-maker/apclo-partner-crm/pkg/logger"
)

// 全店舗をエクスポートAPIと同じJSON封筒でS3へ退避する。
func main() {
	key := flag.String("key", "", "S3オブジェクトキー（省略時は stores/backup-YYYYMMDD.json）")
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

	stores := service.NewStoreService(repository.NewStoreRepository(db.GetDB()))
	records, err := stores.ExportStores(service.StoreListOptions{})
	if err != nil {
		logger.Fatal("Failed to export stores", err)
	}

	body, err := json.MarshalIndent(map[string]interface{}{"stores": records}, "", "  ")
	if err != nil {
		logger.Fatal("Failed to encode backup JSON", err)
	}

	objectKey := *key
	if objectKey == "" {
		objectKey = storage.BackupKey(time.Now())
	}

	s3 := storage.NewS3Storage(cfg.S3.Region, cfg.S3.Bucket, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	url, err := s3.UploadBackup(ctx, objectKey, body)
	if err != nil {
		logger.Fatal("Failed to upload backup", err)
	}

	logger.Info("Backup uploaded", map[string]interface{}{
		"stores": len(records),
		"bytes":  len(body),
		"url":    url,
	})
}
