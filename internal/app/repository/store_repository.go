package repository

import (
	"strings"

	"github.com/infratech-maker/apclo-partner-crm/internal/app/model"
	"github.com/infratech-maker/apclo-partner-crm/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 検索モード
const (
	SearchModeAnd = "AND"
	SearchModeOr  = "OR"
)

// マッチ種別
const (
	MatchTypePartial = "partial"
	MatchTypeExact   = "exact"
)

// StoreFilter 店舗一覧/統計/エクスポートで共有する検索条件。
// 各次元はANDで結合し、次元内の複数値はORで結合する。空の次元は条件を課さない。
type StoreFilter struct {
	Search      string   // 空白区切りキーワード
	SearchMode  string   // キーワード間の結合 (AND/OR)
	MatchType   string   // partial: 部分一致 / exact: 完全一致
	Prefectures []string // 住所前方一致
	Cities      []string // city列の完全一致
	Categories  []string // 完全一致または部分一致
	DataSources []string // data_source完全一致
}

// Apply フィルタをクエリへ適用する
func (f StoreFilter) Apply(query *gorm.DB) *gorm.DB {
	if f.Search != "" {
		keywords := splitKeywords(f.Search)
		// search_mode=or のような小文字指定も受け付ける
		mode := strings.ToUpper(f.SearchMode)
		if mode != SearchModeOr {
			mode = SearchModeAnd
		}

		combined := query.Session(&gorm.Session{NewDB: true})
		first := true
		for _, kw := range keywords {
			cond := keywordCondition(query, kw, f.MatchType)
			if first {
				combined = cond
				first = false
			} else if mode == SearchModeOr {
				combined = combined.Or(cond)
			} else {
				combined = combined.Where(cond)
			}
		}
		if !first {
			query = query.Where(combined)
		}
	}

	if len(f.Prefectures) > 0 {
		prefCond := query.Session(&gorm.Session{NewDB: true})
		for i, pref := range f.Prefectures {
			if i == 0 {
				prefCond = prefCond.Where("address LIKE ?", pref+"%")
			} else {
				prefCond = prefCond.Or("address LIKE ?", pref+"%")
			}
		}
		query = query.Where(prefCond)
	}

	if len(f.Cities) > 0 {
		query = query.Where("city IS NOT NULL AND city != '' AND city IN ?", f.Cities)
	}

	if len(f.Categories) > 0 {
		catCond := query.Session(&gorm.Session{NewDB: true})
		for i, cat := range f.Categories {
			// カテゴリ列には「駅 313m / カフェ、スイーツ」形式の生文字列も
			// 残っているため、完全一致に加えて部分一致も許容する
			if i == 0 {
				catCond = catCond.Where("category = ? OR category LIKE ?", cat, "%"+cat+"%")
			} else {
				catCond = catCond.Or("category = ? OR category LIKE ?", cat, "%"+cat+"%")
			}
		}
		query = query.Where(catCond)
	}

	if len(f.DataSources) > 0 {
		query = query.Where("data_source IN ?", f.DataSources)
	}

	return query
}

// keywordCondition 単一キーワードを name/address/category 横断で照合する条件
func keywordCondition(query *gorm.DB, keyword, matchType string) *gorm.DB {
	cond := query.Session(&gorm.Session{NewDB: true})
	if matchType == MatchTypeExact {
		return cond.Where("name = ? OR address = ? OR category = ?", keyword, keyword, keyword)
	}
	like := "%" + keyword + "%"
	// ILIKE相当。sqlite(テスト)とpostgres両対応のためlower比較にする
	return cond.Where(
		"LOWER(name) LIKE LOWER(?) OR LOWER(address) LIKE LOWER(?) OR LOWER(category) LIKE LOWER(?)",
		like, like, like,
	)
}

// CityCount 市区町村別の件数
type CityCount struct {
	City  string
	Count int64
}

type StoreRepository interface {
	Create(store *model.Store) error
	Update(store *model.Store) error
	Upsert(store *model.Store) error
	FindByID(storeID string) (*model.Store, error)
	FindByName(name string) (*model.Store, error)
	FindByURL(url string) (*model.Store, error)
	FindByAddressContains(fragment string) (*model.Store, error)

	FindWithFilter(filter StoreFilter, page, perPage int) ([]model.Store, error)
	CountWithFilter(filter StoreFilter) (int64, error)

	FindIncomplete(limit int, prefecture, hostFilter string) ([]model.Store, error)
	CountIncomplete(prefecture, hostFilter string) (int64, error)
	CountRemainingForStats() (int64, error)

	BulkUpsert(stores []model.Store, batchSize int) (int, error)
	DeleteAll() error
	ReplaceDeliveryServices(services []model.DeliveryService) error

	CountAll() (int64, error)
	CountWithOpeningDate() (int64, error)
	CountNonEmpty(column string) (int64, error)
	CountFullyCompleted(withOpening bool) (int64, error)
	CountDistinctCities() (int64, error)
	CityCounts(limit int) ([]CityCount, error)
	CountByAddressPrefix(prefix string) (int64, error)
	DistinctCities(prefecture string) ([]string, error)
	DistinctCategories() ([]string, error)
}

type storeRepository struct {
	db *gorm.DB
}

func NewStoreRepository(db *gorm.DB) StoreRepository {
	return &storeRepository{db: db}
}

func (r *storeRepository) Create(store *model.Store) error {
	logger.Debug("Creating store in database", map[string]interface{}{
		"store_id": store.StoreID,
		"name":     store.Name,
	})

	if err := r.db.Create(store).Error; err != nil {
		logger.Error("Failed to create store in database", err, map[string]interface{}{
			"store_id": store.StoreID,
			"name":     store.Name,
		})
		return err
	}
	return nil
}

func (r *storeRepository) Update(store *model.Store) error {
	if err := r.db.Save(store).Error; err != nil {
		logger.Error("Failed to update store in database", err, map[string]interface{}{
			"store_id": store.StoreID,
			"name":     store.Name,
		})
		return err
	}
	return nil
}

// Upsert 主キー衝突時は全カラムを上書きする
func (r *storeRepository) Upsert(store *model.Store) error {
	if err := r.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(store).Error; err != nil {
		logger.Error("Failed to upsert store", err, map[string]interface{}{
			"store_id": store.StoreID,
			"name":     store.Name,
		})
		return err
	}
	return nil
}

func (r *storeRepository) FindByID(storeID string) (*model.Store, error) {
	var store model.Store
	if err := r.db.Preload("DeliveryServices").First(&store, "store_id = ?", storeID).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *storeRepository) FindByName(name string) (*model.Store, error) {
	var store model.Store
	if err := r.db.First(&store, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *storeRepository) FindByURL(url string) (*model.Store, error) {
	var store model.Store
	if err := r.db.First(&store, "url = ?", url).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *storeRepository) FindByAddressContains(fragment string) (*model.Store, error) {
	var store model.Store
	if err := r.db.First(&store, "address LIKE ?", "%"+fragment+"%").Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *storeRepository) FindWithFilter(filter StoreFilter, page, perPage int) ([]model.Store, error) {
	logger.Debug("Finding stores with filter", map[string]interface{}{
		"search":       filter.Search,
		"prefectures":  filter.Prefectures,
		"cities":       filter.Cities,
		"categories":   filter.Categories,
		"data_sources": filter.DataSources,
		"page":         page,
		"per_page":     perPage,
	})

	query := filter.Apply(r.db.Model(&model.Store{}))
	query = query.Preload("DeliveryServices").Order("store_id ASC")

	if perPage > 0 {
		offset := (page - 1) * perPage
		if offset < 0 {
			offset = 0
		}
		query = query.Offset(offset).Limit(perPage)
	}

	var stores []model.Store
	if err := query.Find(&stores).Error; err != nil {
		logger.Error("Failed to find stores with filter", err, nil)
		return nil, err
	}
	return stores, nil
}

func (r *storeRepository) CountWithFilter(filter StoreFilter) (int64, error) {
	var count int64
	query := filter.Apply(r.db.Model(&model.Store{}))
	if err := query.Count(&count).Error; err != nil {
		logger.Error("Failed to count stores with filter", err, nil)
		return 0, err
	}
	return count, nil
}

// incompleteScope 補完対象の抽出条件。
// 開店日とURLがあり、電話・定休日・営業時間・交通手段のいずれかが空のレコード。
// 埋まったレコードは次回の抽出から必ず外れるため、ラウンドを重ねれば前進する。
func incompleteScope(query *gorm.DB, prefecture, hostFilter string) *gorm.DB {
	query = query.
		Where("opening_date IS NOT NULL").
		Where("url IS NOT NULL AND url != ''").
		Where(
			"(phone IS NULL OR phone = '')" +
				" OR (closed_day IS NULL OR closed_day = '')" +
				" OR (business_hours IS NULL OR business_hours = '')" +
				" OR (transport IS NULL OR transport = '')",
		)
	if hostFilter != "" {
		query = query.Where("url LIKE ?", "%"+hostFilter+"%")
	}
	if prefecture != "" {
		query = query.Where("address LIKE ?", prefecture+"%")
	}
	return query
}

func (r *storeRepository) FindIncomplete(limit int, prefecture, hostFilter string) ([]model.Store, error) {
	query := incompleteScope(r.db.Model(&model.Store{}), prefecture, hostFilter).
		Order("store_id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var stores []model.Store
	if err := query.Find(&stores).Error; err != nil {
		logger.Error("Failed to find incomplete stores", err, map[string]interface{}{
			"prefecture": prefecture,
		})
		return nil, err
	}
	return stores, nil
}

func (r *storeRepository) CountIncomplete(prefecture, hostFilter string) (int64, error) {
	var count int64
	query := incompleteScope(r.db.Model(&model.Store{}), prefecture, hostFilter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountRemainingForStats ダッシュボード統計用の未補完件数。
// 補完対象の4項目に加えて公式アカウントも空判定に含むため、
// CountIncomplete よりも広い集合を数える。
func (r *storeRepository) CountRemainingForStats() (int64, error) {
	var count int64
	err := r.db.Model(&model.Store{}).
		Where("opening_date IS NOT NULL").
		Where("url IS NOT NULL AND url != ''").
		Where(
			"(phone IS NULL OR phone = '')"+
				" OR (closed_day IS NULL OR closed_day = '')"+
				" OR (business_hours IS NULL OR business_hours = '')"+
				" OR (transport IS NULL OR transport = '')"+
				" OR (official_account IS NULL OR official_account = '')",
		).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// BulkUpsert バッチ単位で投入し、衝突などで失敗したバッチは
// 1件ずつの上書き投入にフォールバックする。投入できた件数を返す。
func (r *storeRepository) BulkUpsert(stores []model.Store, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}

	inserted := 0
	for start := 0; start < len(stores); start += batchSize {
		end := start + batchSize
		if end > len(stores) {
			end = len(stores)
		}
		batch := stores[start:end]

		if err := r.db.Create(&batch).Error; err == nil {
			inserted += len(batch)
			continue
		}

		logger.Warn("Batch insert failed, falling back to per-record upsert", map[string]interface{}{
			"batch_start": start,
			"batch_size":  len(batch),
		})
		for i := range batch {
			if err := r.Upsert(&batch[i]); err != nil {
				logger.Error("Failed to upsert store during fallback", err, map[string]interface{}{
					"store_id": batch[i].StoreID,
				})
				continue
			}
			inserted++
		}
	}
	return inserted, nil
}

// DeleteAll 店舗と付随データを全削除する。FK順にデリバリーサービスが先。
func (r *storeRepository) DeleteAll() error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM delivery_services").Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM stores").Error; err != nil {
			return err
		}
		return nil
	})
}

func (r *storeRepository) ReplaceDeliveryServices(services []model.DeliveryService) error {
	if len(services) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&services).Error
}

func (r *storeRepository) CountAll() (int64, error) {
	var count int64
	err := r.db.Model(&model.Store{}).Count(&count).Error
	return count, err
}

func (r *storeRepository) CountWithOpeningDate() (int64, error) {
	var count int64
	err := r.db.Model(&model.Store{}).Where("opening_date IS NOT NULL").Count(&count).Error
	return count, err
}

func (r *storeRepository) CountNonEmpty(column string) (int64, error) {
	var count int64
	err := r.db.Model(&model.Store{}).
		Where(column+" IS NOT NULL AND "+column+" != ''").
		Count(&count).Error
	return count, err
}

func (r *storeRepository) CountFullyCompleted(withOpening bool) (int64, error) {
	query := r.db.Model(&model.Store{}).
		Where("phone IS NOT NULL AND phone != ''").
		Where("closed_day IS NOT NULL AND closed_day != ''").
		Where("business_hours IS NOT NULL AND business_hours != ''").
		Where("transport IS NOT NULL AND transport != ''")
	if withOpening {
		query = query.Where("opening_date IS NOT NULL")
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (r *storeRepository) CountDistinctCities() (int64, error) {
	var count int64
	err := r.db.Model(&model.Store{}).
		Where("city IS NOT NULL AND city != ''").
		Distinct("city").
		Count(&count).Error
	return count, err
}

func (r *storeRepository) CityCounts(limit int) ([]CityCount, error) {
	var rows []CityCount
	query := r.db.Model(&model.Store{}).
		Select("city, COUNT(*) as count").
		Where("city IS NOT NULL AND city != ''").
		Group("city").
		Order("count DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *storeRepository) CountByAddressPrefix(prefix string) (int64, error) {
	var count int64
	err := r.db.Model(&model.Store{}).
		Where("address LIKE ?", prefix+"%").
		Count(&count).Error
	return count, err
}

func (r *storeRepository) DistinctCities(prefecture string) ([]string, error) {
	query := r.db.Model(&model.Store{}).
		Where("city IS NOT NULL AND city != ''").
		Distinct("city").
		Order("city ASC")
	if prefecture != "" {
		query = query.Where("address LIKE ?", prefecture+"%")
	}

	var cities []string
	if err := query.Pluck("city", &cities).Error; err != nil {
		return nil, err
	}
	return cities, nil
}

func (r *storeRepository) DistinctCategories() ([]string, error) {
	var categories []string
	err := r.db.Model(&model.Store{}).
		Where("category IS NOT NULL AND category != ''").
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// splitKeywords 空白(全角含む)でキーワードを分割する
func splitKeywords(search string) []string {
	var keywords []string
	current := []rune{}
	for _, r := range search {
		if r == ' ' || r == '　' || r == '\t' {
			if len(current) > 0 {
				keywords = append(keywords, string(current))
				current = current[:0]
			}
			continue
		}
		current = append(current, r)
	}
	if len(current) > 0 {
		keywords = append(keywords, string(current))
	}
	return keywords
}
