package collector

import "context"

// Link はページ上のアンカー要素。
type Link struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// Driver は収集ジョブが必要とするブラウザ操作の最小集合。
// 実装は internal/browser の chromedp ドライバーだが、
// テストではスクリプト化したフェイクを使う。
type Driver interface {
	Navigate(ctx context.Context, url string) error
	ClearCookies(ctx context.Context) error
	Click(ctx context.Context, selector string) error
	ClearInput(ctx context.Context, selector string) error
	SendKeys(ctx context.Context, selector string, text string) error
	ScrollPage(ctx context.Context) error
	PageText(ctx context.Context) (string, error)
	PageHTML(ctx context.Context) (string, error)
	Links(ctx context.Context) ([]Link, error)
	Text(ctx context.Context, selector string) (string, error)
	TextContaining(ctx context.Context, phrase string) (string, error)
	Paragraphs(ctx context.Context) ([]string, error)
}
