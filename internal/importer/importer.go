// Package importer はCRMの master_leads テーブルから店舗データを
// 取り込み直す。既存の店舗データを全削除して置き換える破壊的操作。
package importer

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/infratech-maker/apclo-partner-crm/internal/app/model"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/repository"
	"github.com/infratech-maker/apclo-partner-crm/pkg/logger"
)

const batchSize = 1000

// Prismaはキャメルケースのカラム名を使うため引用符が必要
const masterLeadsQuery = `
	SELECT
		id,
		"companyName",
		phone,
		address,
		source,
		data,
		"createdAt",
		"updatedAt"
	FROM master_leads
	ORDER BY "createdAt" ASC
`

// MasterLead はCRM側の1レコード。data はJSONBの生バイト列。
type MasterLead struct {
	ID          string
	CompanyName sql.NullString
	Phone       sql.NullString
	Address     sql.NullString
	Source      sql.NullString
	Data        []byte
	CreatedAt   sql.NullTime
	UpdatedAt   sql.NullTime
}

// Result はインポートの集計。
type Result struct {
	Fetched       int
	Converted     int
	ConvertErrors int
	Inserted      int
}

type Importer struct {
	crmDB     *sql.DB
	storeRepo repository.StoreRepository
}

func New(crmDB *sql.DB, storeRepo repository.StoreRepository) *Importer {
	return &Importer{crmDB: crmDB, storeRepo: storeRepo}
}

// OpenCRM はCRMデータベースへの接続を開く。
func OpenCRM(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("CRMデータベースへの接続に失敗: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("CRMデータベースへの疎通確認に失敗: %w", err)
	}
	return db, nil
}

// Run は取得・変換・全削除・一括投入を順に行う。
// 全削除を含むため、呼び出し側で確認を済ませてから呼ぶこと。
func (im *Importer) Run() (*Result, error) {
	log := logger.Get()

	leads, err := im.fetchMasterLeads()
	if err != nil {
		return nil, err
	}
	log.Info("マスターリードを取得しました", map[string]interface{}{
		"count": len(leads),
	})

	result := &Result{Fetched: len(leads)}
	stores := make([]model.Store, 0, len(leads))
	for _, lead := range leads {
		store, err := ConvertLead(lead)
		if err != nil {
			result.ConvertErrors++
			log.Warn("マスターリードの変換に失敗しました", map[string]interface{}{
				"id":    lead.ID,
				"error": err.Error(),
			})
			continue
		}
		stores = append(stores, *store)
	}
	result.Converted = len(stores)

	if err := im.storeRepo.DeleteAll(); err != nil {
		return nil, fmt.Errorf("既存データの削除に失敗: %w", err)
	}

	inserted, err := im.storeRepo.BulkUpsert(stores, batchSize)
	if err != nil {
		return nil, fmt.Errorf("一括投入に失敗: %w", err)
	}
	result.Inserted = inserted

	log.Info("インポートが完了しました", map[string]interface{}{
		"fetched":  result.Fetched,
		"inserted": result.Inserted,
		"errors":   result.ConvertErrors,
	})
	return result, nil
}

func (im *Importer) fetchMasterLeads() ([]MasterLead, error) {
	rows, err := im.crmDB.Query(masterLeadsQuery)
	if err != nil {
		return nil, fmt.Errorf("master_leadsの取得に失敗: %w", err)
	}
	defer rows.Close()

	var leads []MasterLead
	for rows.Next() {
		var lead MasterLead
		if err := rows.Scan(&lead.ID, &lead.CompanyName, &lead.Phone, &lead.Address,
			&lead.Source, &lead.Data, &lead.CreatedAt, &lead.UpdatedAt); err != nil {
			return nil, fmt.Errorf("行の読み取りに失敗: %w", err)
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// ConvertLead はマスターリード1件を店舗レコードに変換する。
// 欠けている項目は data ペイロード内の別名キーへ順にフォールバックする。
func ConvertLead(lead MasterLead) (*model.Store, error) {
	var data map[string]interface{}
	if len(lead.Data) > 0 {
		if err := json.Unmarshal(lead.Data, &data); err != nil {
			return nil, fmt.Errorf("dataペイロードの解析に失敗: %w", err)
		}
	}

	storeID := stringValue(data, "store_id")
	if storeID == "" {
		storeID = lead.ID
	}
	if storeID == "" {
		storeID = uuid.NewString()
	}

	name := firstNonEmpty(lead.CompanyName.String,
		stringValue(data, "name"), stringValue(data, "店舗名"))
	if name == "" {
		name = "店舗名不明"
	}

	store := &model.Store{
		StoreID:         storeID,
		Name:            name,
		Phone:           firstNonEmpty(lead.Phone.String, stringValue(data, "phone"), stringValue(data, "電話番号")),
		Website:         stringValue(data, "website"),
		Address:         firstNonEmpty(lead.Address.String, stringValue(data, "address"), stringValue(data, "住所"), stringValue(data, "詳細住所")),
		Category:        stringValue(data, "category"),
		Rating:          floatValue(data, "rating"),
		City:            stringValue(data, "city"),
		PlaceID:         stringValue(data, "place_id"),
		URL:             firstNonEmpty(stringValue(data, "url"), lead.Source.String),
		IsFranchise:     boolValue(data, "is_franchise"),
		Location:        locationValue(data),
		OpeningDate:     dateValue(data, "opening_date"),
		ClosedDay:       stringValue(data, "closed_day"),
		Transport:       stringValue(data, "transport"),
		BusinessHours:   stringValue(data, "business_hours"),
		OfficialAccount: stringValue(data, "official_account"),
		DataSource:      firstNonEmpty(stringValue(data, "data_source"), lead.Source.String, "crm-master-lead"),
		CollectedAt:     collectedAt(data, lead),
		UpdatedAt:       updatedAt(lead),
	}

	if services, ok := data["delivery_services"].([]interface{}); ok {
		for _, raw := range services {
			serviceName := fmt.Sprintf("%v", raw)
			if serviceName == "" {
				continue
			}
			store.DeliveryServices = append(store.DeliveryServices, model.DeliveryService{
				StoreID:     storeID,
				ServiceName: serviceName,
				IsActive:    true,
			})
		}
	}

	return store, nil
}

func stringValue(data map[string]interface{}, key string) string {
	if s, ok := data[key].(string); ok {
		return s
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func floatValue(data map[string]interface{}, key string) *float64 {
	switch v := data[key].(type) {
	case float64:
		return &v
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err == nil {
			return &f
		}
	}
	return nil
}

func boolValue(data map[string]interface{}, key string) bool {
	switch v := data[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(v) {
		case "true", "1", "yes":
			return true
		}
	}
	return false
}

func locationValue(data map[string]interface{}) *model.Location {
	switch v := data["location"].(type) {
	case map[string]interface{}:
		lat, latOK := v["lat"].(float64)
		lng, lngOK := v["lng"].(float64)
		if latOK && lngOK && lat != 0 && lng != 0 {
			return &model.Location{Lat: lat, Lng: lng}
		}
	case string:
		var loc model.Location
		if err := json.Unmarshal([]byte(v), &loc); err == nil {
			return &loc
		}
	}
	return nil
}

func dateValue(data map[string]interface{}, key string) *time.Time {
	raw := stringValue(data, key)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func parseISO(raw string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func collectedAt(data map[string]interface{}, lead MasterLead) time.Time {
	if raw := stringValue(data, "collected_at"); raw != "" {
		if t, ok := parseISO(raw); ok {
			return t
		}
	}
	if lead.CreatedAt.Valid {
		return lead.CreatedAt.Time
	}
	return time.Now().UTC()
}

func updatedAt(lead MasterLead) time.Time {
	if lead.UpdatedAt.Valid {
		return lead.UpdatedAt.Time
	}
	return time.Now().UTC()
}
