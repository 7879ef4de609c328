package enrich

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/infratech-maker/apclo-partner-crm/config"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/model"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/repository"
	"github.com/infratech-maker/apclo-partner-crm/pkg/logger"
	"github.com/infratech-maker/apclo-partner-crm/pkg/redis"
	"github.com/infratech-maker/apclo-partner-crm/pkg/slack"
)

// Enricher 未補完レコードをラウンド単位で処理するバッチ
type Enricher struct {
	storeRepo repository.StoreRepository
	notifier  *slack.Client
	client    *http.Client
	cfg       config.EnrichConfig
}

func NewEnricher(storeRepo repository.StoreRepository, notifier *slack.Client, cfg config.EnrichConfig) *Enricher {
	return &Enricher{
		storeRepo: storeRepo,
		notifier:  notifier,
		client:    &http.Client{Timeout: 10 * time.Second},
		cfg:       cfg,
	}
}

// Run 未補完件数がゼロになるか最大ラウンド数に達するまで繰り返す。
// ラウンド上限での終了は異常ではなく、通知してnilを返す。
func (e *Enricher) Run(ctx context.Context, prefecture string) error {
	startedAt := time.Now()

	areaLabel := ""
	if prefecture != "" {
		areaLabel = fmt.Sprintf("(%sエリア)", prefecture)
	}
	maxRoundsLabel := "無制限"
	if e.cfg.MaxRounds > 0 {
		maxRoundsLabel = fmt.Sprintf("%d", e.cfg.MaxRounds)
	}
	e.notifier.Notify(ctx, fmt.Sprintf(
		"店舗データ補完処理を開始しました%s\n処理件数: %d件/回\n処理間隔: %s\n最大ラウンド数: %s",
		areaLabel, e.cfg.Limit, e.cfg.Delay, maxRoundsLabel,
	), slack.SeverityInfo)

	roundNum := 0
	totalProcessed := 0
	totalUpdated := 0
	var initialRemaining int64 = -1

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		roundNum++
		if e.cfg.MaxRounds > 0 && roundNum > e.cfg.MaxRounds {
			msg := fmt.Sprintf("最大ラウンド数 (%d) に達しました", e.cfg.MaxRounds)
			logger.Info(msg, nil)
			e.notifier.Notify(ctx, msg, slack.SeverityWarning)
			return nil
		}

		// 報告用の残り件数はホスト制限なしで数える
		remaining, err := e.storeRepo.CountIncomplete(prefecture, "")
		if err != nil {
			return err
		}
		if initialRemaining < 0 {
			initialRemaining = remaining
		}
		if remaining == 0 {
			msg := "全ての店舗の補完が完了しました"
			logger.Info(msg, nil)
			e.notifier.Notify(ctx, msg, slack.SeverityGood)
			return nil
		}

		e.notifier.Notify(ctx, fmt.Sprintf(
			"ラウンド %d 開始%s\n補完が必要な店舗数: %d件\n1回あたりの処理件数: %d件",
			roundNum, areaLabel, remaining, e.cfg.Limit,
		), slack.SeverityInfo)

		stores, err := e.storeRepo.FindIncomplete(e.cfg.Limit, prefecture, e.cfg.HostFilter)
		if err != nil {
			return err
		}
		if len(stores) == 0 {
			msg := "補完可能な店舗がありません"
			logger.Warn(msg, map[string]interface{}{"prefecture": prefecture})
			e.notifier.Notify(ctx, msg, slack.SeverityWarning)
			return nil
		}

		logger.Info("Starting enrichment batch", map[string]interface{}{
			"round": roundNum,
			"count": len(stores),
		})

		processed := 0
		updated := 0
		for i := range stores {
			if err := ctx.Err(); err != nil {
				return err
			}

			if e.EnrichStore(ctx, &stores[i]) {
				if err := e.storeRepo.Update(&stores[i]); err != nil {
					logger.Error("Failed to save enriched store", err, map[string]interface{}{
						"store_id": stores[i].StoreID,
					})
				} else {
					updated++
				}
			}
			processed++

			if processed%10 == 0 {
				logger.Info("Enrichment progress", map[string]interface{}{
					"round":     roundNum,
					"processed": processed,
					"updated":   updated,
				})
			}

			// 成否に関わらず一定間隔を空ける
			select {
			case <-time.After(e.cfg.Delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		totalProcessed += processed
		totalUpdated += updated

		remaining, err = e.storeRepo.CountIncomplete(prefecture, "")
		if err != nil {
			return err
		}

		progressRate := 0.0
		if initialRemaining > 0 {
			progressRate = float64(initialRemaining-remaining) / float64(initialRemaining) * 100
		}

		snapshot := redis.EnrichProgress{
			Round:          roundNum,
			Processed:      totalProcessed,
			Updated:        totalUpdated,
			Remaining:      remaining,
			ProgressRate:   progressRate,
			Prefecture:     prefecture,
			UpdatedAt:      time.Now(),
			ElapsedSeconds: int64(time.Since(startedAt).Seconds()),
		}
		if err := redis.SetEnrichProgress(ctx, snapshot); err != nil {
			logger.Warn("Failed to store enrich progress snapshot", map[string]interface{}{
				"error": err.Error(),
			})
		}

		e.notifier.Notify(ctx, fmt.Sprintf(
			"ラウンド %d 完了%s\n処理: %d件 / 更新: %d件\n累計処理: %d件 / 累計更新: %d件\n残り: %d件\n進捗率: %.1f%%",
			roundNum, areaLabel, processed, updated, totalProcessed, totalUpdated, remaining, progressRate,
		), slack.SeverityGood)

		// ラウンド間は通常の2倍の間隔を空ける
		select {
		case <-time.After(e.cfg.Delay * 2):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// EnrichStore 詳細ページを取得し、空の項目だけを埋める。
// 1件の取得/解析失敗はレコードを変更せずfalseを返すだけで、バッチは止めない。
func (e *Enricher) EnrichStore(ctx context.Context, store *model.Store) bool {
	if store.URL == "" || !strings.Contains(store.URL, e.cfg.HostFilter) {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, store.URL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", e.cfg.UserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		logger.Warn("Failed to fetch detail page", map[string]interface{}{
			"store_id": store.StoreID,
			"url":      store.URL,
			"error":    err.Error(),
		})
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn("Detail page returned non-200", map[string]interface{}{
			"store_id": store.StoreID,
			"url":      store.URL,
			"status":   resp.StatusCode,
		})
		return false
	}

	details, err := ParseDetailPage(resp.Body)
	if err != nil {
		logger.Warn("Failed to parse detail page", map[string]interface{}{
			"store_id": store.StoreID,
			"url":      store.URL,
			"error":    err.Error(),
		})
		return false
	}

	return ApplyDetails(store, details)
}

// ApplyDetails 抽出結果のうち、現在空の項目だけを反映する。
// 既に値がある項目は上書きしない。更新があればupdated_atを進める。
func ApplyDetails(store *model.Store, details Details) bool {
	updated := false

	if details.Phone != "" && store.Phone == "" {
		store.Phone = details.Phone
		updated = true
	}
	if details.Transport != "" && store.Transport == "" {
		store.Transport = details.Transport
		updated = true
	}
	if details.BusinessHours != "" && store.BusinessHours == "" {
		store.BusinessHours = details.BusinessHours
		updated = true
	}
	if details.ClosedDay != "" && store.ClosedDay == "" {
		store.ClosedDay = details.ClosedDay
		updated = true
	}
	if details.OfficialAccount != "" && store.OfficialAccount == "" {
		store.OfficialAccount = details.OfficialAccount
		updated = true
	}

	if updated {
		store.UpdatedAt = time.Now()
	}
	return updated
}
