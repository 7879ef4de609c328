package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Location は緯度経度をJSONテキストとして格納するカスタム型
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Value は database/sql/driver.Valuer の実装
func (l *Location) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan は database/sql.Scanner の実装
func (l *Location) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan Location")
	}

	return json.Unmarshal(bytes, l)
}

// Store 収集した飲食店レコード。
// StoreID は上流キーから導出できる場合はそれを使い、なければUUIDを新規採番する。
type Store struct {
	StoreID         string     `gorm:"primarykey;type:varchar(64)" json:"store_id"`     // 店舗ID
	Name            string     `gorm:"not null;index" json:"name"`                      // 店舗名
	Phone           string     `gorm:"type:varchar(30)" json:"phone"`                   // 電話番号
	Website         string     `json:"website"`                                         // 公式サイトURL
	Address         string     `gorm:"type:text;index" json:"address"`                  // 住所
	Category        string     `json:"category"`                                        // カテゴリ (生文字列、距離情報が混在しうる)
	Rating          *float64   `json:"rating"`                                          // 評価
	City            string     `gorm:"index" json:"city"`                               // 市区町村
	PlaceID         string     `json:"place_id"`                                        // 外部プレイスID
	URL             string     `gorm:"index" json:"url"`                                // 掲載元URL
	IsFranchise     bool       `gorm:"default:false" json:"is_franchise"`               // フランチャイズ判定
	Location        *Location  `gorm:"type:text" json:"location"`                       // 緯度経度 (JSON)
	OpeningDate     *time.Time `gorm:"index" json:"opening_date"`                       // 開店日
	ClosedDay       string     `json:"closed_day"`                                      // 定休日
	Transport       string     `gorm:"type:text" json:"transport"`                      // 交通手段
	BusinessHours   string     `gorm:"type:text" json:"business_hours"`                 // 営業時間
	OfficialAccount string     `gorm:"type:text" json:"official_account"`               // 公式アカウントリンク
	DataSource      string     `gorm:"index" json:"data_source"`                        // データ取得元タグ
	CollectedAt     time.Time  `json:"collected_at"`                                    // 収集時刻
	UpdatedAt       time.Time  `json:"updated_at"`                                      // 更新時刻

	DeliveryServices []DeliveryService `gorm:"foreignKey:StoreID;constraint:OnDelete:CASCADE" json:"delivery_services,omitempty"` // デリバリー対応状況
}

func (Store) TableName() string {
	return "stores"
}

// BeforeCreate StoreID未設定ならUUIDを採番する
func (s *Store) BeforeCreate(tx *gorm.DB) error {
	if s.StoreID == "" {
		s.StoreID = uuid.NewString()
	}
	if s.CollectedAt.IsZero() {
		s.CollectedAt = time.Now()
	}
	return nil
}

// IsComplete 補完済みかどうかの導出プロパティ。DBには保存しない。
// 開店日とURLがあり、電話・定休日・営業時間・交通手段がすべて埋まっていれば完了。
func (s *Store) IsComplete() bool {
	return s.OpeningDate != nil &&
		s.URL != "" &&
		s.Phone != "" &&
		s.ClosedDay != "" &&
		s.BusinessHours != "" &&
		s.Transport != ""
}

// DeliveryService 店舗ごとのデリバリーサービス対応
type DeliveryService struct {
	ID          string    `gorm:"primarykey;type:varchar(64)" json:"id"`
	StoreID     string    `gorm:"not null;index:idx_store_service,unique;type:varchar(64)" json:"store_id"`
	ServiceName string    `gorm:"not null;index:idx_store_service,unique" json:"service_name"` // サービス名 (例: UberEats)
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

func (DeliveryService) TableName() string {
	return "delivery_services"
}

func (d *DeliveryService) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// StoreStatus 営業担当者ごとの店舗対応ステータス。
// RepID は外部CRMの担当者IDで、usersテーブルへのFKは張らない。
type StoreStatus struct {
	RepID     string    `gorm:"primarykey;type:varchar(64)" json:"rep_id"`
	StoreID   string    `gorm:"primarykey;type:varchar(64)" json:"store_id"`
	Status    string    `gorm:"not null" json:"status"` // 対応状況 (例: 未接触, 商談中, 成約)
	UpdatedAt time.Time `json:"updated_at"`
}

func (StoreStatus) TableName() string {
	return "store_statuses"
}
