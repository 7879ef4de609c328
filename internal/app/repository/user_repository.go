package repository

import (
	"github.com/infratech-maker/apclo-partner-crm/internal/app/model"
	"github.com/infratech-maker/apclo-partner-crm/pkg/logger"
	"gorm.io/gorm"
)

// UserFilter 管理画面のユーザー一覧で使う絞り込み条件
type UserFilter struct {
	UserType string
	IsActive *bool
}

type UserRepository interface {
	Create(user *model.User) error
	Update(user *model.User) error
	FindByID(id string) (*model.User, error)
	FindByPartnerCode(partnerCode string) (*model.User, error)
	FindAll(filter UserFilter) ([]model.User, error)
	ExistsPartnerCode(partnerCode, excludeID string) (bool, error)
	Deactivate(id string) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *model.User) error {
	logger.Debug("Creating user in database", map[string]interface{}{
		"partner_code": user.PartnerCode,
		"user_type":    user.UserType,
	})

	if err := r.db.Create(user).Error; err != nil {
		logger.Error("Failed to create user in database", err, map[string]interface{}{
			"partner_code": user.PartnerCode,
		})
		return err
	}
	return nil
}

func (r *userRepository) Update(user *model.User) error {
	if err := r.db.Save(user).Error; err != nil {
		logger.Error("Failed to update user in database", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return err
	}
	return nil
}

func (r *userRepository) FindByID(id string) (*model.User, error) {
	var user model.User
	if err := r.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByPartnerCode(partnerCode string) (*model.User, error) {
	var user model.User
	if err := r.db.First(&user, "partner_code = ?", partnerCode).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindAll(filter UserFilter) ([]model.User, error) {
	query := r.db.Model(&model.User{})
	if filter.UserType != "" {
		query = query.Where("user_type = ?", filter.UserType)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	var users []model.User
	if err := query.Order("created_at DESC").Find(&users).Error; err != nil {
		logger.Error("Failed to find users", err, nil)
		return nil, err
	}
	return users, nil
}

// ExistsPartnerCode パートナーコードの重複確認。excludeIDは自分自身の除外用。
func (r *userRepository) ExistsPartnerCode(partnerCode, excludeID string) (bool, error) {
	query := r.db.Model(&model.User{}).Where("partner_code = ?", partnerCode)
	if excludeID != "" {
		query = query.Where("id != ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Deactivate 論理削除。レコードは残してis_activeのみ落とす。
func (r *userRepository) Deactivate(id string) error {
	result := r.db.Model(&model.User{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		logger.Error("Failed to deactivate user", result.Error, map[string]interface{}{
			"user_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
