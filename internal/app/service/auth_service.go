package service

import (
	"errors"
	"time"

	"github.com/infratech-maker/apclo-partner-crm/internal/app/model"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/repository"
	"github.com/infratech-maker/apclo-partner-crm/pkg/logger"
	"github.com/infratech-maker/apclo-partner-crm/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("パートナーコードまたはパスワードが正しくありません")
	ErrAccountDisabled    = errors.New("無効化されたアカウントです")
)

type AuthService interface {
	Login(partnerCode, password string) (*model.User, string, error)
	ValidateToken(tokenString string) (*util.Claims, error)
}

type authService struct {
	userRepo  repository.UserRepository
	jwtSecret string
	jwtExpiry time.Duration
}

func NewAuthService(userRepo repository.UserRepository, jwtSecret string, jwtExpiry time.Duration) AuthService {
	return &authService{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
	}
}

// Login パートナーコードとパスワードで認証し、JWTを発行する。
// 存在しないコードとパスワード不一致は同じエラーを返す。
func (s *authService) Login(partnerCode, password string) (*model.User, string, error) {
	user, err := s.userRepo.FindByPartnerCode(partnerCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Login attempt with unknown partner code", map[string]interface{}{
				"partner_code": partnerCode,
			})
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !user.IsActive {
		return nil, "", ErrAccountDisabled
	}

	if !util.VerifyPassword(user.PasswordHash, password) {
		logger.Warn("Login attempt with wrong password", map[string]interface{}{
			"partner_code": partnerCode,
		})
		return nil, "", ErrInvalidCredentials
	}

	token, err := util.GenerateToken(user.ID, user.PartnerCode, user.UserType, s.jwtSecret, s.jwtExpiry)
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(user); err != nil {
		// 最終ログイン時刻の更新失敗でログイン自体は止めない
		logger.Warn("Failed to update last login time", map[string]interface{}{
			"user_id": user.ID,
		})
	}

	logger.Info("User logged in", map[string]interface{}{
		"user_id":      user.ID,
		"partner_code": user.PartnerCode,
		"user_type":    user.UserType,
	})
	return user, token, nil
}

func (s *authService) ValidateToken(tokenString string) (*util.Claims, error) {
	return util.ValidateToken(tokenString, s.jwtSecret)
}
