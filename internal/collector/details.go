package collector

import (
	"context"
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/infratech-maker/apclo-partner-crm/internal/normalize"
	"github.com/infratech-maker/apclo-partner-crm/pkg/logger"
)

const phoneLabelPhrase = "店舗の電話番号"

// DetailFetcher は一覧CSVの各店舗ページを開いて住所と電話番号を補完する。
// 出力CSVに既にあるURLはスキップするため、中断しても続きから再開できる。
type DetailFetcher struct {
	driver  Driver
	output  *CSVSink
	waitMin time.Duration
	waitMax time.Duration
	rng     *rand.Rand
}

func NewDetailFetcher(driver Driver, output *CSVSink) *DetailFetcher {
	return &DetailFetcher{
		driver:  driver,
		output:  output,
		waitMin: 2 * time.Second,
		waitMax: 4 * time.Second,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetWaitRange はページ読み込み後の待機時間を上書きする。テスト用。
func (f *DetailFetcher) SetWaitRange(min, max time.Duration) {
	f.waitMin = min
	f.waitMax = max
}

// Run は入力CSVの全行を処理し、処理件数を返す。
// 1件ずつ追記保存するため途中で落ちても成果は失われない。
func (f *DetailFetcher) Run(ctx context.Context, inputPath string) (int, error) {
	rows, err := ReadListRows(inputPath)
	if err != nil {
		return 0, err
	}

	log := logger.Get()
	pending := make([]ListRow, 0, len(rows))
	for _, row := range rows {
		if !f.output.Seen(row.URL) {
			pending = append(pending, row)
		}
	}
	if len(pending) == 0 {
		log.Info("全件処理済みのため何もしません")
		return 0, nil
	}
	log.Info("詳細取得を開始します", map[string]interface{}{
		"total":   len(rows),
		"pending": len(pending),
	})

	processed := 0
	for _, row := range pending {
		detail := DetailRow{ListRow: row, Status: "Failed"}

		if err := f.fetchOne(ctx, &detail); err != nil {
			if ctx.Err() != nil {
				return processed, ctx.Err()
			}
			log.Warn("詳細ページの取得に失敗しました", map[string]interface{}{
				"url":   row.URL,
				"error": err.Error(),
			})
		}

		if err := f.output.AppendDetail(detail); err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}

func (f *DetailFetcher) fetchOne(ctx context.Context, detail *DetailRow) error {
	if err := f.driver.Navigate(ctx, detail.URL); err != nil {
		return err
	}
	if err := f.sleep(ctx, f.jitter()); err != nil {
		return err
	}

	// 電話番号と住所は取れなくても行ごと失敗にはしない
	if text, err := f.driver.TextContaining(ctx, phoneLabelPhrase); err == nil {
		detail.Phone = normalize.NormalizeInternationalPhone(text)
	}
	if addr, err := f.findAddress(ctx); err == nil {
		detail.Address = addr
	}

	detail.Status = "Success"
	return nil
}

// findAddress は都道府県名と数字を含む50文字未満の段落を住所とみなす。
func (f *DetailFetcher) findAddress(ctx context.Context) (string, error) {
	paragraphs, err := f.driver.Paragraphs(ctx)
	if err != nil {
		return "", err
	}
	for _, p := range paragraphs {
		if len([]rune(p)) >= 50 {
			continue
		}
		if !strings.ContainsAny(p, "都道府県") {
			continue
		}
		if strings.ContainsFunc(p, unicode.IsDigit) {
			return p, nil
		}
	}
	return "", fmt.Errorf("住所らしい段落が見つかりません")
}

func (f *DetailFetcher) jitter() time.Duration {
	if f.waitMax <= f.waitMin {
		return f.waitMin
	}
	return f.waitMin + time.Duration(f.rng.Int63n(int64(f.waitMax-f.waitMin)))
}

func (f *DetailFetcher) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// ReadListRows は一覧収集フェーズのCSVを読み込む。
// 全エリアをスキップしたランはファイル自体を作らないので、不存在は空扱い。
func ReadListRows(path string) ([]ListRow, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("入力CSVのオープンに失敗: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("入力CSVの読み込みに失敗: %w", err)
	}

	rows := make([]ListRow, 0, len(records))
	for i, record := range records {
		if i == 0 || len(record) < 3 {
			continue
		}
		rows = append(rows, ListRow{
			Area: strings.TrimPrefix(record[0], utf8BOM),
			Name: record[1],
			URL:  record[2],
		})
	}
	return rows, nil
}
