package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	UserTypePartner = "partner" // パートナー企業
	UserTypeAdmin   = "admin"   // 管理者
)

// User 管理画面にログインするパートナー/管理者アカウント
type User struct {
	ID           string     `gorm:"primarykey;type:varchar(64)" json:"id"`
	PartnerCode  string     `gorm:"uniqueIndex;not null" json:"partner_code"`              // ログイン用パートナーコード
	PasswordHash string     `gorm:"not null" json:"-"`                                     // パスワードハッシュ
	Name         string     `gorm:"not null" json:"name"`                                  // 氏名
	Email        string     `json:"email"`                                                 // メールアドレス
	Phone        string     `json:"phone"`                                                 // 電話番号
	Organization string     `json:"organization"`                                          // 所属組織
	UserType     string     `gorm:"type:varchar(20);default:'partner'" json:"user_type"`   // 権限種別
	IsAgency     bool       `gorm:"default:false" json:"is_agency"`                        // 代理店フラグ
	// default タグは付けない。付けると GORM がゼロ値(false)を INSERT から
	// 落とすため、無効状態で作ったアカウントが有効として保存される。
	IsActive     bool       `gorm:"index" json:"is_active"`                                // 有効フラグ (削除は論理削除)
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at"`                                         // 最終ログイン時刻
	CreatedBy    string     `json:"created_by"`                                            // 作成者
	Notes        string     `gorm:"type:text" json:"notes"`                                // 備考
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.UserType == "" {
		u.UserType = UserTypePartner
	}
	return nil
}

// IsAdmin 管理者権限を持つかどうか
func (u *User) IsAdmin() bool {
	return u.UserType == UserTypeAdmin
}
