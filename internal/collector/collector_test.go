package collector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infratech-maker/apclo-partner-crm/config"
	"github.com/infratech-maker/apclo-partner-crm/pkg/slack"
)

type fakePage struct {
	text       string
	html       string
	links      []Link
	phoneText  string
	paragraphs []string
}

// fakeDriver はスクリプト化したページ集合を返すテスト用ドライバー。
type fakeDriver struct {
	pages             map[string]fakePage
	current           fakePage
	currentURL        string
	cookiesCleared    int
	scrolls           int
	typed             strings.Builder
	clicked           []string
	failClickSelector string
	failNavigateURL   string
}

func (d *fakeDriver) Navigate(_ context.Context, url string) error {
	if d.failNavigateURL != "" && url == d.failNavigateURL {
		return fmt.Errorf("net::ERR_CONNECTION_RESET")
	}
	d.currentURL = url
	d.current = d.pages[url]
	return nil
}

func (d *fakeDriver) ClearCookies(context.Context) error {
	d.cookiesCleared++
	return nil
}

func (d *fakeDriver) Click(_ context.Context, selector string) error {
	if d.failClickSelector != "" && selector == d.failClickSelector {
		return fmt.Errorf("element not found: %s", selector)
	}
	d.clicked = append(d.clicked, selector)
	return nil
}

func (d *fakeDriver) ClearInput(context.Context, string) error { return nil }

func (d *fakeDriver) SendKeys(_ context.Context, _ string, text string) error {
	d.typed.WriteString(text)
	return nil
}

func (d *fakeDriver) ScrollPage(context.Context) error {
	d.scrolls++
	return nil
}

func (d *fakeDriver) PageText(context.Context) (string, error) { return d.current.text, nil }

func (d *fakeDriver) PageHTML(context.Context) (string, error) { return d.current.html, nil }

func (d *fakeDriver) Links(context.Context) ([]Link, error) { return d.current.links, nil }

func (d *fakeDriver) Text(context.Context, string) (string, error) { return "", nil }

func (d *fakeDriver) TextContaining(_ context.Context, phrase string) (string, error) {
	if d.current.phoneText == "" || !strings.Contains(d.current.phoneText, phrase) {
		return "", fmt.Errorf("element not found")
	}
	return d.current.phoneText, nil
}

func (d *fakeDriver) Paragraphs(context.Context) ([]string, error) {
	return d.current.paragraphs, nil
}

func fastCollectorConfig(areas []string, outputFile string) config.CollectorConfig {
	return config.CollectorConfig{
		TargetLocations: areas,
		ScrollCount:     3,
		BlockCheckEvery: 2,
		OutputFile:      outputFile,
		TypeDelayMin:    time.Microsecond,
		TypeDelayMax:    2 * time.Microsecond,
		ScrollDelayMin:  time.Microsecond,
		ScrollDelayMax:  2 * time.Microsecond,
	}
}

func storeListingPage() fakePage {
	return fakePage{
		text: "渋谷区のレストラン",
		links: []Link{
			{URL: "https://www.ubereats.com/jp/store/sushi-taro/abc?diningMode=DELIVERY", Text: "寿司太郎\n★4.5 (200+)"},
			{URL: "https://www.ubereats.com/jp/store/ramen-ichi/def?diningMode=DELIVERY", Text: "ラーメン一\n★4.2"},
			{URL: "https://www.ubereats.com/jp/category/sushi", Text: "寿司"},
			{URL: "https://www.ubereats.com/jp/store/no-mode/xyz", Text: "対象外"},
		},
	}
}

func TestDetectBlock(t *testing.T) {
	tests := []struct {
		name        string
		page        fakePage
		wantBlocked bool
		wantKeyword string
	}{
		{
			name:        "本文にロボット確認",
			page:        fakePage{text: "あなたがロボットでないことを確認してください"},
			wantBlocked: true,
			wantKeyword: "ロボット",
		},
		{
			name:        "ソースにcaptcha",
			page:        fakePage{text: "Loading...", html: "<div class='g-recaptcha' data-CAPTCHA='1'></div>"},
			wantBlocked: true,
			wantKeyword: "captcha",
		},
		{
			name:        "通常ページ",
			page:        fakePage{text: "渋谷区のレストラン 3,000件", html: "<body>stores</body>"},
			wantBlocked: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv := &fakeDriver{current: tt.page}
			blocked, keyword := DetectBlock(context.Background(), drv)
			assert.Equal(t, tt.wantBlocked, blocked)
			assert.Equal(t, tt.wantKeyword, keyword)
		})
	}
}

func TestCollectorRun(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "list.csv")
	sink, err := NewListSink(outPath)
	require.NoError(t, err)

	drv := &fakeDriver{pages: map[string]fakePage{ubereatsTopURL: storeListingPage()}}
	c := NewCollector(drv, sink, slack.NewClient("", "test"), fastCollectorConfig([]string{"150-0043"}, outPath))

	require.NoError(t, c.Run(context.Background()))

	assert.Equal(t, 1, drv.cookiesCleared)
	assert.Equal(t, 3, drv.scrolls)
	assert.Equal(t, "150-0043", drv.typed.String())

	rows, err := ReadListRows(outPath)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "150-0043", rows[0].Area)
	assert.Equal(t, "寿司太郎", rows[0].Name)
	assert.Contains(t, rows[0].URL, "/store/sushi-taro/")
	assert.Equal(t, "ラーメン一", rows[1].Name)
}

func TestCollectorRunDeduplicatesAcrossAreas(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "list.csv")
	sink, err := NewListSink(outPath)
	require.NoError(t, err)

	drv := &fakeDriver{pages: map[string]fakePage{ubereatsTopURL: storeListingPage()}}
	c := NewCollector(drv, sink, slack.NewClient("", "test"),
		fastCollectorConfig([]string{"150-0043", "160-0022"}, outPath))

	require.NoError(t, c.Run(context.Background()))

	// 2エリア目は同じ店舗一覧なので新規行は増えない
	rows, err := ReadListRows(outPath)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, 2, drv.cookiesCleared)
}

func TestCollectorRunAbortsWholeRunOnBlock(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "list.csv")
	sink, err := NewListSink(outPath)
	require.NoError(t, err)

	drv := &fakeDriver{pages: map[string]fakePage{
		ubereatsTopURL: {text: "access denied", html: "<body>access denied</body>"},
	}}
	c := NewCollector(drv, sink, slack.NewClient("", "test"),
		fastCollectorConfig([]string{"150-0043", "160-0022"}, outPath))

	err = c.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBlocked))
	// 1エリア目の着地で検知されるので2エリア目には進まない
	assert.Equal(t, 1, drv.cookiesCleared)
}

func TestCollectorRunSkipsAreaOnLocationFailure(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "list.csv")
	sink, err := NewListSink(outPath)
	require.NoError(t, err)

	drv := &fakeDriver{
		pages:             map[string]fakePage{ubereatsTopURL: storeListingPage()},
		failClickSelector: locationFirstOptionBySel,
	}
	c := NewCollector(drv, sink, slack.NewClient("", "test"),
		fastCollectorConfig([]string{"150-0043", "160-0022"}, outPath))

	// 住所設定の失敗はエリアスキップでラン自体は成功扱い
	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, 2, drv.cookiesCleared)

	// 1件も保存していないのでCSVは作られず、読み出しは空を返す
	rows, err := ReadListRows(outPath)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadListRowsMissingFile(t *testing.T) {
	rows, err := ReadListRows(filepath.Join(t.TempDir(), "missing.csv"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCSVSinkResume(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "list.csv")

	sink, err := NewListSink(outPath)
	require.NoError(t, err)
	ok, err := sink.AppendList(ListRow{Area: "150-0043", Name: "寿司太郎", URL: "https://example.com/store/a?diningMode=DELIVERY"})
	require.NoError(t, err)
	assert.True(t, ok)

	// 別プロセスからの再開を想定して読み直す
	resumed, err := NewListSink(outPath)
	require.NoError(t, err)
	assert.Equal(t, 1, resumed.SeenCount())
	assert.True(t, resumed.Seen("https://example.com/store/a?diningMode=DELIVERY"))

	ok, err = resumed.AppendList(ListRow{Area: "160-0022", Name: "寿司太郎", URL: "https://example.com/store/a?diningMode=DELIVERY"})
	require.NoError(t, err)
	assert.False(t, ok)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), utf8BOM))
	assert.Equal(t, 2, strings.Count(strings.TrimSpace(string(data)), "\n")+1) // ヘッダー + 1行
}

func writeListCSV(t *testing.T, path string, rows []ListRow) {
	t.Helper()
	sink, err := NewListSink(path)
	require.NoError(t, err)
	for _, row := range rows {
		_, err := sink.AppendList(row)
		require.NoError(t, err)
	}
}

func TestDetailFetcherRun(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "phase1.csv")
	outputPath := filepath.Join(dir, "phase2.csv")

	url1 := "https://www.ubereats.com/jp/store/sushi-taro/abc?diningMode=DELIVERY"
	url2 := "https://www.ubereats.com/jp/store/ramen-ichi/def?diningMode=DELIVERY"
	writeListCSV(t, inputPath, []ListRow{
		{Area: "150-0043", Name: "寿司太郎", URL: url1},
		{Area: "150-0043", Name: "ラーメン一", URL: url2},
	})

	drv := &fakeDriver{pages: map[string]fakePage{
		url1: {
			phoneText:  "店舗の電話番号: +81 3-1234-5678",
			paragraphs: []string{"配達手数料について", "東京都渋谷区道玄坂1-2-3", "長い説明テキスト"},
		},
		url2: {
			paragraphs: []string{"メニュー"},
		},
	}}

	output, err := NewDetailSink(outputPath)
	require.NoError(t, err)
	fetcher := NewDetailFetcher(drv, output)
	fetcher.SetWaitRange(time.Microsecond, 2*time.Microsecond)

	processed, err := fetcher.Run(context.Background(), inputPath)
	require.NoError(t, err)
	assert.Equal(t, 2, processed)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "詳細取得ステータス")
	assert.Contains(t, content, "0312345678")
	assert.Contains(t, content, "東京都渋谷区道玄坂1-2-3")
	// 電話も住所も取れなくてもアクセス自体が通れば Success
	assert.Equal(t, 2, strings.Count(content, "Success"))
}

func TestDetailFetcherResumeAndFailure(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "phase1.csv")
	outputPath := filepath.Join(dir, "phase2.csv")

	url1 := "https://www.ubereats.com/jp/store/sushi-taro/abc?diningMode=DELIVERY"
	url2 := "https://www.ubereats.com/jp/store/ramen-ichi/def?diningMode=DELIVERY"
	writeListCSV(t, inputPath, []ListRow{
		{Area: "150-0043", Name: "寿司太郎", URL: url1},
		{Area: "150-0043", Name: "ラーメン一", URL: url2},
	})

	// url1 は前回実行で処理済み
	output, err := NewDetailSink(outputPath)
	require.NoError(t, err)
	require.NoError(t, output.AppendDetail(DetailRow{
		ListRow: ListRow{Area: "150-0043", Name: "寿司太郎", URL: url1},
		Status:  "Success",
	}))

	drv := &fakeDriver{
		pages:           map[string]fakePage{},
		failNavigateURL: url2,
	}
	resumed, err := NewDetailSink(outputPath)
	require.NoError(t, err)
	fetcher := NewDetailFetcher(drv, resumed)
	fetcher.SetWaitRange(time.Microsecond, 2*time.Microsecond)

	processed, err := fetcher.Run(context.Background(), inputPath)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	content := string(data)
	// アクセスエラーの行も Failed として記録される
	assert.Equal(t, 1, strings.Count(content, "Failed"))
	assert.Contains(t, content, "ラーメン一")
}
