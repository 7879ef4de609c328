package collector

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/infratech-maker/apclo-partner-crm/config"
	"github.com/infratech-maker/apclo-partner-crm/pkg/logger"
	"github.com/infratech-maker/apclo-partner-crm/pkg/slack"
)

// ErrBlocked はボット検知を示すセンチネル。
// 検知された時点で当該エリアだけでなくラン全体を中断する。
var ErrBlocked = errors.New("ボット検知によりブロックされました")

const ubereatsTopURL = "https://www.ubereats.com/jp"

const (
	locationInputSelector    = "input[id*='location-typeahead']"
	locationFirstOptionBySel = "ul[id*='location-typeahead'] li:first-child"
	suggestWaitAfterTyping   = 3 * time.Second
	navigateWaitAfterSelect  = 5 * time.Second
	clearInputSettleDuration = 1 * time.Second
)

// Collector は UberEats の店舗一覧をエリアごとに収集する。
type Collector struct {
	driver   Driver
	sink     *CSVSink
	notifier *slack.Client
	cfg      config.CollectorConfig
	rng      *rand.Rand
}

func NewCollector(driver Driver, sink *CSVSink, notifier *slack.Client, cfg config.CollectorConfig) *Collector {
	return &Collector{
		driver:   driver,
		sink:     sink,
		notifier: notifier,
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run は設定済みの全エリアを順に収集する。
// 住所設定の失敗はエリアスキップ、ボット検知はラン全体の中断。
func (c *Collector) Run(ctx context.Context) error {
	log := logger.Get()
	c.notifier.Notify(ctx,
		fmt.Sprintf("店舗一覧の収集を開始します（対象: %d エリア）", len(c.cfg.TargetLocations)),
		slack.SeverityInfo)

	totalSaved := 0
	for _, area := range c.cfg.TargetLocations {
		saved, err := c.collectArea(ctx, area)
		if err != nil {
			if errors.Is(err, ErrBlocked) {
				log.Error("ボット検知のため収集を中断します", err, map[string]interface{}{
					"area": area,
				})
				c.notifier.Notify(ctx,
					fmt.Sprintf("ボット検知のため収集を中断しました（エリア: %s）", area),
					slack.SeverityDanger)
				return err
			}
			log.Warn("エリアをスキップします", map[string]interface{}{
				"area":  area,
				"error": err.Error(),
			})
			continue
		}
		totalSaved += saved
		log.Info("エリアの収集が完了しました", map[string]interface{}{
			"area":  area,
			"saved": saved,
		})
	}

	c.notifier.Notify(ctx,
		fmt.Sprintf("店舗一覧の収集が完了しました（新規保存: %d 件）", totalSaved),
		slack.SeverityGood)
	return nil
}

func (c *Collector) collectArea(ctx context.Context, area string) (int, error) {
	log := logger.Get()
	log.Info("エリアの収集を開始します", map[string]interface{}{"area": area})

	// エリアごとにセッションを切って足跡を残さない
	if err := c.driver.ClearCookies(ctx); err != nil {
		return 0, fmt.Errorf("Cookie削除に失敗: %w", err)
	}
	if err := c.driver.Navigate(ctx, ubereatsTopURL); err != nil {
		return 0, fmt.Errorf("トップページ遷移に失敗: %w", err)
	}
	if blocked, keyword := DetectBlock(ctx, c.driver); blocked {
		return 0, fmt.Errorf("%w（キーワード: %s）", ErrBlocked, keyword)
	}

	if err := c.setLocation(ctx, area); err != nil {
		return 0, fmt.Errorf("住所設定に失敗: %w", err)
	}

	if err := c.scrollListing(ctx); err != nil {
		return 0, err
	}

	return c.extractStores(ctx, area)
}

// setLocation は住所入力欄に1文字ずつ揺らぎを入れて入力し、
// 最初の補完候補を選択する。
func (c *Collector) setLocation(ctx context.Context, area string) error {
	if err := c.driver.Click(ctx, locationInputSelector); err != nil {
		return err
	}
	if err := c.driver.ClearInput(ctx, locationInputSelector); err != nil {
		return err
	}
	if err := c.sleep(ctx, clearInputSettleDuration); err != nil {
		return err
	}

	for _, ch := range area {
		if err := c.driver.SendKeys(ctx, locationInputSelector, string(ch)); err != nil {
			return err
		}
		if err := c.sleep(ctx, c.jitter(c.cfg.TypeDelayMin, c.cfg.TypeDelayMax)); err != nil {
			return err
		}
	}

	if err := c.sleep(ctx, suggestWaitAfterTyping); err != nil {
		return err
	}
	if err := c.driver.Click(ctx, locationFirstOptionBySel); err != nil {
		return err
	}
	return c.sleep(ctx, navigateWaitAfterSelect)
}

func (c *Collector) scrollListing(ctx context.Context) error {
	for i := 0; i < c.cfg.ScrollCount; i++ {
		if i > 0 && c.cfg.BlockCheckEvery > 0 && i%c.cfg.BlockCheckEvery == 0 {
			if blocked, keyword := DetectBlock(ctx, c.driver); blocked {
				return fmt.Errorf("%w（キーワード: %s）", ErrBlocked, keyword)
			}
		}
		if err := c.driver.ScrollPage(ctx); err != nil {
			return fmt.Errorf("スクロールに失敗: %w", err)
		}
		if err := c.sleep(ctx, c.jitter(c.cfg.ScrollDelayMin, c.cfg.ScrollDelayMax)); err != nil {
			return err
		}
	}
	return nil
}

// extractStores は店舗詳細へのアンカーだけを拾って保存する。
// 店舗リンクは href に /store/ と diningMode の両方を含む。
func (c *Collector) extractStores(ctx context.Context, area string) (int, error) {
	links, err := c.driver.Links(ctx)
	if err != nil {
		return 0, fmt.Errorf("リンク抽出に失敗: %w", err)
	}

	saved := 0
	for _, link := range links {
		if !strings.Contains(link.URL, "/store/") || !strings.Contains(link.URL, "diningMode") {
			continue
		}
		name := firstLine(link.Text)
		if name == "" {
			continue
		}
		ok, err := c.sink.AppendList(ListRow{Area: area, Name: name, URL: link.URL})
		if err != nil {
			return saved, fmt.Errorf("CSV書き込みに失敗: %w", err)
		}
		if ok {
			saved++
		}
	}
	return saved, nil
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

func (c *Collector) jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(c.rng.Int63n(int64(max-min)))
}

func (c *Collector) sleep(ctx context.Context, d time.Duration) error {
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
