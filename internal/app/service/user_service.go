package service

import (
	"errors"

	"github.com/infratech-maker/apclo-partner-crm/internal/app/model"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/repository"
	"github.com/infratech-maker/apclo-partner-crm/pkg/logger"
	"github.com/infratech-maker/apclo-partner-crm/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("ユーザーが見つかりません")
	ErrPartnerCodeExists  = errors.New("すでに使用されているパートナーコードです")
	ErrRequiredFieldEmpty = errors.New("必須項目が入力されていません")
)

// UserInput 管理画面からのユーザー作成/更新入力
type UserInput struct {
	PartnerCode  string
	Password     string // 更新時は空なら据え置き
	Name         string
	Email        string
	Phone        string
	Organization string
	UserType     string
	IsAgency     *bool
	IsActive     *bool
	CreatedBy    string
	Notes        string
}

type UserService interface {
	ListUsers(userType string, isActive *bool) ([]model.User, error)
	CreateUser(input UserInput) (*model.User, error)
	UpdateUser(id string, input UserInput) (*model.User, error)
	DeactivateUser(id string) error
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) ListUsers(userType string, isActive *bool) ([]model.User, error) {
	return s.userRepo.FindAll(repository.UserFilter{
		UserType: userType,
		IsActive: isActive,
	})
}

func (s *userService) CreateUser(input UserInput) (*model.User, error) {
	if input.PartnerCode == "" || input.Password == "" || input.Name == "" || input.UserType == "" {
		return nil, ErrRequiredFieldEmpty
	}

	exists, err := s.userRepo.ExistsPartnerCode(input.PartnerCode, "")
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrPartnerCodeExists
	}

	hash, err := util.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		PartnerCode:  input.PartnerCode,
		PasswordHash: hash,
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		Organization: input.Organization,
		UserType:     input.UserType,
		IsActive:     true,
		CreatedBy:    input.CreatedBy,
		Notes:        input.Notes,
	}
	if input.IsAgency != nil {
		user.IsAgency = *input.IsAgency
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	logger.Info("User created", map[string]interface{}{
		"user_id":      user.ID,
		"partner_code": user.PartnerCode,
		"user_type":    user.UserType,
	})
	return user, nil
}

func (s *userService) UpdateUser(id string, input UserInput) (*model.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if input.PartnerCode != "" && input.PartnerCode != user.PartnerCode {
		exists, err := s.userRepo.ExistsPartnerCode(input.PartnerCode, user.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrPartnerCodeExists
		}
		user.PartnerCode = input.PartnerCode
	}

	if input.Password != "" {
		hash, err := util.HashPassword(input.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if input.Name != "" {
		user.Name = input.Name
	}
	if input.Email != "" {
		user.Email = input.Email
	}
	if input.Phone != "" {
		user.Phone = input.Phone
	}
	if input.Organization != "" {
		user.Organization = input.Organization
	}
	if input.UserType != "" {
		user.UserType = input.UserType
	}
	if input.IsAgency != nil {
		user.IsAgency = *input.IsAgency
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if input.Notes != "" {
		user.Notes = input.Notes
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeactivateUser 論理削除。物理削除はしない。
func (s *userService) DeactivateUser(id string) error {
	if err := s.userRepo.Deactivate(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	logger.Info("User deactivated", map[string]interface{}{"user_id": id})
	return nil
}
