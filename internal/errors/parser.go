package errors

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ErrorInfo パース済みエラー情報
type ErrorInfo struct {
	Code    string // エラーコード (codes.go 参照)
	Message string // ユーザー向けメッセージ
}

// IsUndefinedTable 対象テーブルが存在しないエラーかどうか。
// 初回起動前のDBに対してAPIが叩かれるケースを空応答で返すため、
// 500にせず正常系として扱う。
func IsUndefinedTable(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01" // undefined_table
	}
	// sqlite (テスト環境)
	return strings.Contains(strings.ToLower(err.Error()), "no such table")
}

// IsUniqueViolation 一意制約違反かどうか
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" // unique_violation
	}
	errLower := strings.ToLower(err.Error())
	return strings.Contains(errLower, "duplicate key") ||
		strings.Contains(errLower, "unique constraint") ||
		strings.Contains(errLower, "unique failed")
}

// ParseError エラーをパースしてユーザー向けのコードとメッセージに変換する。
// 内部情報は隠しつつ、利用者が対処できる程度の情報は残す。
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "サーバーエラーが発生しました",
		}
	}

	errStr := err.Error()
	errStrLower := strings.ToLower(errStr)

	// 1. GORM 基本エラー
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: getNotFoundMessage(context),
		}
	}

	// 2. PostgreSQL エラー

	if IsUndefinedTable(err) {
		return ErrorInfo{
			Code:    StoreTableAbsent,
			Message: "データがまだ取り込まれていません",
		}
	}

	if IsUniqueViolation(err) {
		return parseDuplicateKeyError(errStr)
	}

	if strings.Contains(errStrLower, "violates not-null constraint") {
		return ErrorInfo{
			Code:    ValidationRequired,
			Message: "必須項目が欠けています",
		}
	}

	// 3. ネットワーク/接続エラー
	if strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "外部サービスへの接続に失敗しました。しばらくしてから再度お試しください",
		}
	}

	// 4. 既定の内部エラー
	return ErrorInfo{
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(context),
	}
}

// parseDuplicateKeyError 一意制約違反のパース
func parseDuplicateKeyError(errStr string) ErrorInfo {
	errLower := strings.ToLower(errStr)

	if strings.Contains(errLower, "partner_code") {
		return ErrorInfo{
			Code:    UserPartnerCodeExists,
			Message: "すでに使用されているパートナーコードです",
		}
	}

	if strings.Contains(errLower, "delivery_services") {
		return ErrorInfo{
			Code:    ResourceAlreadyExists,
			Message: "すでに登録済みのデリバリーサービスです",
		}
	}

	if strings.Contains(errLower, "pkey") || strings.Contains(errLower, "primary key") {
		return ErrorInfo{
			Code:    ResourceAlreadyExists,
			Message: "すでに存在するデータです",
		}
	}

	return ErrorInfo{
		Code:    ResourceAlreadyExists,
		Message: "すでに存在するデータです",
	}
}

// getNotFoundMessage contextに応じた Not Found メッセージ
func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	if strings.Contains(contextLower, "store") || strings.Contains(contextLower, "店舗") {
		return "店舗が見つかりません"
	}
	if strings.Contains(contextLower, "user") || strings.Contains(contextLower, "ユーザー") {
		return "ユーザーが見つかりません"
	}

	return "対象のデータが見つかりません"
}

// getDefaultErrorMessage contextに応じた既定メッセージ
func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)

	if strings.Contains(contextLower, "create") || strings.Contains(contextLower, "登録") {
		return "登録中にエラーが発生しました。しばらくしてから再度お試しください"
	}
	if strings.Contains(contextLower, "update") || strings.Contains(contextLower, "更新") {
		return "更新中にエラーが発生しました。しばらくしてから再度お試しください"
	}
	if strings.Contains(contextLower, "delete") || strings.Contains(contextLower, "削除") {
		return "削除中にエラーが発生しました。しばらくしてから再度お試しください"
	}
	if strings.Contains(contextLower, "import") || strings.Contains(contextLower, "取込") {
		return "データ取込中にエラーが発生しました"
	}

	return "サーバーエラーが発生しました。しばらくしてから再度お試しください"
}
