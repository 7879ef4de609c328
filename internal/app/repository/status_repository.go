package repository

import (
	"time"

	"github.com/infratech-maker/apclo-partner-crm/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StatusRepository interface {
	Set(status *model.StoreStatus) error
	FindByRep(repID string) ([]model.StoreStatus, error)
	FindByStore(storeID string) ([]model.StoreStatus, error)
}

type statusRepository struct {
	db *gorm.DB
}

func NewStatusRepository(db *gorm.DB) StatusRepository {
	return &statusRepository{db: db}
}

// Set 担当者×店舗のステータスを上書き保存する
func (r *statusRepository) Set(status *model.StoreStatus) error {
	status.UpdatedAt = time.Now()
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "rep_id"}, {Name: "store_id"}},
		UpdateAll: true,
	}).Create(status).Error
}

func (r *statusRepository) FindByRep(repID string) ([]model.StoreStatus, error) {
	var statuses []model.StoreStatus
	if err := r.db.Where("rep_id = ?", repID).Order("updated_at DESC").Find(&statuses).Error; err != nil {
		return nil, err
	}
	return statuses, nil
}

func (r *statusRepository) FindByStore(storeID string) ([]model.StoreStatus, error) {
	var statuses []model.StoreStatus
	if err := r.db.Where("store_id = ?", storeID).Order("updated_at DESC").Find(&statuses).Error; err != nil {
		return nil, err
	}
	return statuses, nil
}
