package service

import (
	"errors"
	"sort"

	"github.com/infratech-maker/apclo-partner-crm/internal/app/model"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/repository"
	"github.com/infratech-maker/apclo-partner-crm/internal/normalize"
	"github.com/infratech-maker/apclo-partner-crm/pkg/logger"
	"gorm.io/gorm"
)

var ErrStoreNotFound = errors.New("店舗が見つかりません")

// StoreListOptions 店舗一覧の検索条件とページング
type StoreListOptions struct {
	Search      string
	SearchMode  string
	MatchType   string
	Prefectures []string
	Cities      []string
	Categories  []string
	DataSources []string
	Page        int
	PerPage     int
}

// StoreListResult ページング付き一覧結果
type StoreListResult struct {
	Stores     []model.Store `json:"stores"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	TotalPages int           `json:"total_pages"`
}

// StoreStats ダッシュボード統計
type StoreStats struct {
	TotalStores               int64            `json:"total_stores"`
	TotalWithOpening          int64            `json:"total_with_opening"`
	WithOpeningDateCount      int64            `json:"with_opening_date_count"`
	Remaining                 int64            `json:"remaining"`
	Completed                 int64            `json:"completed"`
	CompletionRate            float64          `json:"completion_rate"`
	WithPhone                 int64            `json:"with_phone"`
	WithWebsite               int64            `json:"with_website"`
	FullyCompleted            int64            `json:"fully_completed"`
	FullyCompletedWithOpening int64            `json:"fully_completed_with_opening"`
	Cities                    int64            `json:"cities"`
	PhoneRate                 float64          `json:"phone_rate"`
	WebsiteRate               float64          `json:"website_rate"`
	CityStats                 map[string]int64 `json:"city_stats"`
	PrefectureStats           map[string]int64 `json:"prefecture_stats"`
	AreaStats                 map[string]int64 `json:"area_stats"`
}

type StoreService interface {
	ListStores(opts StoreListOptions) (*StoreListResult, error)
	GetStoreByID(storeID string) (*model.Store, error)
	ExportStores(opts StoreListOptions) ([]model.Store, error)
	GetStats() (*StoreStats, error)
	ListCities(prefecture string) ([]string, error)
	CategoryVocabulary() ([]string, error)
	SaveCollected(candidate *model.Store) (*model.Store, bool, error)
	FindExisting(candidate *model.Store) (*model.Store, error)
}

type storeService struct {
	storeRepo repository.StoreRepository
}

func NewStoreService(storeRepo repository.StoreRepository) StoreService {
	return &storeService{storeRepo: storeRepo}
}

func (s *storeService) buildFilter(opts StoreListOptions) repository.StoreFilter {
	return repository.StoreFilter{
		Search:      opts.Search,
		SearchMode:  opts.SearchMode,
		MatchType:   opts.MatchType,
		Prefectures: opts.Prefectures,
		Cities:      opts.Cities,
		Categories:  opts.Categories,
		DataSources: opts.DataSources,
	}
}

func (s *storeService) ListStores(opts StoreListOptions) (*StoreListResult, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PerPage < 1 {
		opts.PerPage = 100
	}

	filter := s.buildFilter(opts)

	total, err := s.storeRepo.CountWithFilter(filter)
	if err != nil {
		return nil, err
	}

	stores, err := s.storeRepo.FindWithFilter(filter, opts.Page, opts.PerPage)
	if err != nil {
		return nil, err
	}

	totalPages := int(total) / opts.PerPage
	if int(total)%opts.PerPage > 0 {
		totalPages++
	}

	return &StoreListResult{
		Stores:     stores,
		Total:      total,
		Page:       opts.Page,
		PerPage:    opts.PerPage,
		TotalPages: totalPages,
	}, nil
}

func (s *storeService) GetStoreByID(storeID string) (*model.Store, error) {
	store, err := s.storeRepo.FindByID(storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStoreNotFound
		}
		return nil, err
	}
	return store, nil
}

// ExportStores フィルタ適用済みの全件を返す (ページングなし)
func (s *storeService) ExportStores(opts StoreListOptions) ([]model.Store, error) {
	return s.storeRepo.FindWithFilter(s.buildFilter(opts), 0, 0)
}

func (s *storeService) GetStats() (*StoreStats, error) {
	stats := &StoreStats{
		CityStats:       map[string]int64{},
		PrefectureStats: map[string]int64{},
		AreaStats:       map[string]int64{},
	}

	var err error
	if stats.TotalStores, err = s.storeRepo.CountAll(); err != nil {
		return nil, err
	}
	if stats.TotalWithOpening, err = s.storeRepo.CountWithOpeningDate(); err != nil {
		return nil, err
	}
	stats.WithOpeningDateCount = stats.TotalWithOpening

	if stats.Remaining, err = s.storeRepo.CountRemainingForStats(); err != nil {
		return nil, err
	}
	if stats.TotalWithOpening > 0 {
		stats.Completed = stats.TotalWithOpening - stats.Remaining
		stats.CompletionRate = float64(stats.Completed) / float64(stats.TotalWithOpening) * 100
	}

	if stats.WithPhone, err = s.storeRepo.CountNonEmpty("phone"); err != nil {
		return nil, err
	}
	if stats.WithWebsite, err = s.storeRepo.CountNonEmpty("website"); err != nil {
		return nil, err
	}
	if stats.FullyCompleted, err = s.storeRepo.CountFullyCompleted(true); err != nil {
		return nil, err
	}
	stats.FullyCompletedWithOpening = stats.FullyCompleted

	if stats.Cities, err = s.storeRepo.CountDistinctCities(); err != nil {
		return nil, err
	}

	if stats.TotalStores > 0 {
		stats.PhoneRate = float64(stats.WithPhone) / float64(stats.TotalStores) * 100
		stats.WebsiteRate = float64(stats.WithWebsite) / float64(stats.TotalStores) * 100
	}

	cityCounts, err := s.storeRepo.CityCounts(20)
	if err != nil {
		return nil, err
	}
	for _, c := range cityCounts {
		stats.CityStats[c.City] = c.Count
	}

	// 住所の都道府県前方一致で集計。都道府県名どうしは互いに前方一致しない
	for _, pref := range Prefectures {
		count, err := s.storeRepo.CountByAddressPrefix(pref)
		if err != nil {
			return nil, err
		}
		stats.PrefectureStats[pref] = count
	}
	for area, prefs := range AreaPrefectures {
		var sum int64
		for _, pref := range prefs {
			sum += stats.PrefectureStats[pref]
		}
		stats.AreaStats[area] = sum
	}

	return stats, nil
}

func (s *storeService) ListCities(prefecture string) ([]string, error) {
	return s.storeRepo.DistinctCities(prefecture)
}

// CategoryVocabulary 保存済みカテゴリ生文字列から個別カテゴリ語彙を組み立てる
func (s *storeService) CategoryVocabulary() ([]string, error) {
	raw, err := s.storeRepo.DistinctCategories()
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var vocabulary []string
	for _, value := range raw {
		for _, name := range normalize.ExtractCategoryNames(value) {
			if !seen[name] {
				seen[name] = true
				vocabulary = append(vocabulary, name)
			}
		}
	}
	sort.Strings(vocabulary)
	return vocabulary, nil
}

// FindExisting 重複判定ゲート。店舗名→URL→住所部分一致の順で照合し、
// 最初にヒットしたものを返す。URLが最も強い同一性シグナルだが、
// 名前衝突(チェーン店)が多いため名前を先に引く。
func (s *storeService) FindExisting(candidate *model.Store) (*model.Store, error) {
	store, err := s.storeRepo.FindByName(candidate.Name)
	if err == nil {
		return store, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if candidate.URL != "" {
		store, err = s.storeRepo.FindByURL(candidate.URL)
		if err == nil {
			return store, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if candidate.Address != "" {
		store, err = s.storeRepo.FindByAddressContains(candidate.Address)
		if err == nil {
			return store, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	return nil, nil
}

// SaveCollected 収集済み候補を重複判定のうえで保存する。
// 既存レコードがあれば保存せずそれを返す。戻り値のboolは新規作成したかどうか。
func (s *storeService) SaveCollected(candidate *model.Store) (*model.Store, bool, error) {
	existing, err := s.FindExisting(candidate)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		logger.Debug("Store already exists, skipping", map[string]interface{}{
			"store_id": existing.StoreID,
			"name":     candidate.Name,
		})
		// 既存店舗でもデリバリー対応状況が取れていれば補完する
		if len(candidate.DeliveryServices) > 0 {
			services := candidate.DeliveryServices
			for i := range services {
				services[i].StoreID = existing.StoreID
			}
			if err := s.storeRepo.ReplaceDeliveryServices(services); err != nil {
				return nil, false, err
			}
		}
		return existing, false, nil
	}

	if candidate.Phone != "" {
		candidate.Phone = normalize.NormalizePhone(candidate.Phone)
	}
	if candidate.City == "" && candidate.Address != "" {
		candidate.City = normalize.ExtractCity(candidate.Address, Prefectures)
	}
	if !candidate.IsFranchise {
		candidate.IsFranchise = normalize.LooksLikeFranchise(candidate.Name)
	}

	if err := s.storeRepo.Create(candidate); err != nil {
		return nil, false, err
	}
	return candidate, true, nil
}
