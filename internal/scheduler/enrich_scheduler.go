package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/infratech-maker/apclo-partner-crm/internal/enrich"
	"github.com/infratech-maker/apclo-partner-crm/pkg/logger"
)

// EnrichScheduler 未補完店舗の夜間バッチスケジューラ
type EnrichScheduler struct {
	cron     *cron.Cron
	enricher *enrich.Enricher
}

// NewEnrichScheduler 補完スケジューラ生成。
// enricher には MaxRounds=1 の設定を渡し、1晩1ラウンドで止める。
func NewEnrichScheduler(enricher *enrich.Enricher) *EnrichScheduler {
	return &EnrichScheduler{
		cron:     cron.New(),
		enricher: enricher,
	}
}

// Start スケジューラ開始
func (s *EnrichScheduler) Start() error {
	// 毎日午前3時に補完ラウンドを実行 (JST基準)
	// cron 式: "0 3 * * *" = 毎日3時0分
	_, err := s.cron.AddFunc("0 3 * * *", func() {
		logger.Info("Starting scheduled store enrichment round", nil)

		if err := s.enricher.Run(context.Background(), ""); err != nil {
			logger.Error("Failed to run enrichment round from scheduler", err)
			return
		}

		logger.Info("Successfully finished enrichment round from scheduler", nil)
	})

	if err != nil {
		logger.Error("Failed to add cron job for store enrichment", err)
		return err
	}

	s.cron.Start()
	logger.Info("Store enrichment scheduler started successfully (daily at 3:00 AM)", nil)

	return nil
}

// Stop スケジューラ停止
func (s *EnrichScheduler) Stop() {
	logger.Info("Stopping store enrichment scheduler...", nil)
	s.cron.Stop()
	logger.Info("Store enrichment scheduler stopped", nil)
}
