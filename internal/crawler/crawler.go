// Package crawler は食べログのニューオープン一覧ページから
// 店舗候補を集めて保存経路へ渡す。
package crawler

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/infratech-maker/apclo-partner-crm/internal/app/model"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/service"
	"github.com/infratech-maker/apclo-partner-crm/pkg/logger"
)

// 食べログの店舗詳細URL: /<pref>/A....(エリアコード)/A......（サブエリア）/<店舗ID>/
var tabelogDetailRe = regexp.MustCompile(`tabelog\.com/[a-z]+/A\d{4}/A\d{6}/\d+/?$`)

// Candidate は一覧ページから拾った店舗候補。
type Candidate struct {
	Name     string
	URL      string
	Category string
	Area     string
}

// Result は1回のクロールの集計。
type Result struct {
	Visited int
	Found   int
	Saved   int
	Skipped int
	Errors  int
}

// Crawler は静的な一覧ページを colly で巡回する。
// JSレンダリングが必要なサイトは internal/collector のブラウザ経路を使う。
type Crawler struct {
	stores    service.StoreService
	userAgent string
	delay     time.Duration
}

func New(stores service.StoreService, userAgent string, delay time.Duration) *Crawler {
	return &Crawler{stores: stores, userAgent: userAgent, delay: delay}
}

// Collect は一覧ページ群から店舗候補を抽出する。URLで重複排除する。
func (c *Crawler) Collect(listURLs []string) ([]Candidate, error) {
	collector := colly.NewCollector(
		colly.UserAgent(c.userAgent),
	)
	collector.SetRequestTimeout(30 * time.Second)
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*tabelog.com*",
		Delay:       c.delay,
		RandomDelay: c.delay / 2,
	}); err != nil {
		return nil, err
	}

	log := logger.Get()
	seen := make(map[string]bool)
	var candidates []Candidate

	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		href := e.Request.AbsoluteURL(e.Attr("href"))
		if !tabelogDetailRe.MatchString(href) || seen[href] {
			return
		}
		name := firstLine(e.Text)
		if name == "" {
			return
		}
		seen[href] = true
		candidates = append(candidates, Candidate{
			Name: name,
			URL:  strings.TrimSuffix(href, "/") + "/",
		})
	})

	collector.OnError(func(r *colly.Response, err error) {
		log.Warn("一覧ページの取得に失敗しました", map[string]interface{}{
			"url":    r.Request.URL.String(),
			"status": r.StatusCode,
			"error":  err.Error(),
		})
	})

	for _, listURL := range listURLs {
		if err := collector.Visit(listURL); err != nil {
			log.Warn("一覧ページへのアクセスに失敗しました", map[string]interface{}{
				"url":   listURL,
				"error": err.Error(),
			})
		}
	}
	collector.Wait()

	return candidates, nil
}

// Run は一覧ページ群を巡回し、候補を重複判定つきで保存する。
func (c *Crawler) Run(listURLs []string) (*Result, error) {
	candidates, err := c.Collect(listURLs)
	if err != nil {
		return nil, fmt.Errorf("一覧ページの巡回に失敗: %w", err)
	}

	result := &Result{Visited: len(listURLs), Found: len(candidates)}
	for _, candidate := range candidates {
		_, created, err := c.stores.SaveCollected(c.toStore(candidate))
		switch {
		case err != nil:
			result.Errors++
		case created:
			result.Saved++
		default:
			result.Skipped++
		}
	}

	logger.Info("ニューオープン収集が完了しました", map[string]interface{}{
		"found":   result.Found,
		"saved":   result.Saved,
		"skipped": result.Skipped,
		"errors":  result.Errors,
	})
	return result, nil
}

func (c *Crawler) toStore(candidate Candidate) *model.Store {
	return &model.Store{
		Name:       candidate.Name,
		URL:        candidate.URL,
		Category:   candidate.Category,
		DataSource: "tabelog",
	}
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
