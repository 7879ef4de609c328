// Package browser は収集ジョブの Driver インターフェースを
// chromedp (Chrome DevTools Protocol) で実装する。
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/infratech-maker/apclo-partner-crm/internal/collector"
)

// Options はブラウザ起動時の設定。
type Options struct {
	Headless  bool
	UserAgent string
	Timeout   time.Duration // 1操作あたりのタイムアウト
}

// ChromeDriver は1つのブラウザセッションを保持する。
// 並行利用は想定しない。
type ChromeDriver struct {
	browserCtx context.Context
	cancels    []context.CancelFunc
	timeout    time.Duration
}

var _ collector.Driver = (*ChromeDriver)(nil)

// New は Chrome を起動してドライバーを返す。
// 自動化検知を避けるためのフラグは収集スクリプトの運用実績に合わせている。
func New(opts Options) (*ChromeDriver, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1280, 1080),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// 起動確認。ここで失敗したらリソースを畳んで返す
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("ブラウザの起動に失敗: %w", err)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ChromeDriver{
		browserCtx: browserCtx,
		cancels:    []context.CancelFunc{cancelBrowser, cancelAlloc},
		timeout:    timeout,
	}, nil
}

// Close はブラウザセッションを終了する。
func (d *ChromeDriver) Close() {
	for _, cancel := range d.cancels {
		cancel()
	}
}

func (d *ChromeDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(d.browserCtx, d.timeout)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, chromedp.Navigate(url))
}

func (d *ChromeDriver) ClearCookies(ctx context.Context) error {
	return d.run(ctx, network.ClearBrowserCookies())
}

func (d *ChromeDriver) Click(ctx context.Context, selector string) error {
	return d.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (d *ChromeDriver) ClearInput(ctx context.Context, selector string) error {
	return d.run(ctx, chromedp.SetValue(selector, "", chromedp.ByQuery))
}

func (d *ChromeDriver) SendKeys(ctx context.Context, selector string, text string) error {
	return d.run(ctx, chromedp.SendKeys(selector, text, chromedp.ByQuery))
}

func (d *ChromeDriver) ScrollPage(ctx context.Context) error {
	return d.run(ctx, chromedp.Evaluate(`window.scrollBy(0, window.innerHeight)`, nil))
}

func (d *ChromeDriver) PageText(ctx context.Context) (string, error) {
	var text string
	err := d.run(ctx, chromedp.Text("body", &text, chromedp.ByQuery))
	return text, err
}

func (d *ChromeDriver) PageHTML(ctx context.Context) (string, error) {
	var html string
	err := d.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (d *ChromeDriver) Links(ctx context.Context) ([]collector.Link, error) {
	const script = `Array.from(document.querySelectorAll('a[href]')).map(a => ({
		url: a.href,
		text: a.innerText,
	}))`
	var links []collector.Link
	err := d.run(ctx, chromedp.Evaluate(script, &links))
	return links, err
}

func (d *ChromeDriver) Text(ctx context.Context, selector string) (string, error) {
	var text string
	err := d.run(ctx, chromedp.Text(selector, &text, chromedp.ByQuery))
	return text, err
}

// TextContaining は指定フレーズを含む最初の要素のテキストを返す。
func (d *ChromeDriver) TextContaining(ctx context.Context, phrase string) (string, error) {
	xpath := fmt.Sprintf(`//*[contains(text(), %q)]`, phrase)
	var text string
	err := d.run(ctx, chromedp.Text(xpath, &text, chromedp.BySearch))
	return text, err
}

func (d *ChromeDriver) Paragraphs(ctx context.Context) ([]string, error) {
	const script = `Array.from(document.querySelectorAll('p')).map(p => p.innerText)`
	var paragraphs []string
	err := d.run(ctx, chromedp.Evaluate(script, &paragraphs))
	return paragraphs, err
}
