package crawler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infratech-maker/apclo-partner-crm/internal/app/model"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/repository"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/service"
	"github.com/infratech-maker/apclo-partner-crm/internal/db"
)

const newOpenListingPage = `<html><body>
<div class="list-rst">
  <a href="https://tabelog.com/tokyo/A1303/A130301/13299999/">炭火焼鳥 とり一
★3.2</a>
</div>
<div class="list-rst">
  <a href="https://tabelog.com/tokyo/A1303/A130301/13288888/">そば処 羽生店</a>
</div>
<div class="list-rst">
  <a href="https://tabelog.com/tokyo/A1303/A130301/13299999/">炭火焼鳥 とり一（重複）</a>
</div>
<a href="https://tabelog.com/tokyo/rstLst/2/">次のページ</a>
<a href="https://example.com/ad">広告</a>
</body></html>`

func setupCrawlerTest(t *testing.T) (*Crawler, service.StoreService, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(newOpenListingPage))
	}))
	t.Cleanup(server.Close)

	gormDB := db.SetupTestDB(t)
	stores := service.NewStoreService(repository.NewStoreRepository(gormDB))
	return New(stores, "test-agent", time.Millisecond), stores, server
}

func TestCrawlerCollect(t *testing.T) {
	c, _, server := setupCrawlerTest(t)

	candidates, err := c.Collect([]string{server.URL})
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	// 店舗詳細URLだけを拾い、テキストの1行目を店名とする
	assert.Equal(t, "炭火焼鳥 とり一", candidates[0].Name)
	assert.Equal(t, "https://tabelog.com/tokyo/A1303/A130301/13299999/", candidates[0].URL)
	assert.Equal(t, "そば処 羽生店", candidates[1].Name)
}

func TestCrawlerRunSavesWithDedup(t *testing.T) {
	c, stores, server := setupCrawlerTest(t)

	result, err := c.Run([]string{server.URL})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Found)
	assert.Equal(t, 2, result.Saved)
	assert.Equal(t, 0, result.Skipped)

	listed, err := stores.ListStores(service.StoreListOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 2, listed.Total)
	for _, s := range listed.Stores {
		assert.Equal(t, "tabelog", s.DataSource)
	}

	// チェーン店判定は保存経路で付与される
	var franchise *model.Store
	for i := range listed.Stores {
		if listed.Stores[i].Name == "そば処 羽生店" {
			franchise = &listed.Stores[i]
		}
	}
	require.NotNil(t, franchise)
	assert.True(t, franchise.IsFranchise)

	// 2回目の実行では全件スキップされる
	again, err := c.Run([]string{server.URL})
	require.NoError(t, err)
	assert.Equal(t, 0, again.Saved)
	assert.Equal(t, 2, again.Skipped)
}
