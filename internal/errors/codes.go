package errors

// エラーコード定数
// 形式: CATEGORY_SPECIFIC_DETAIL
// フロントエンドはこのコードを基準にメッセージをマッピングする

const (
	// ==================== 認証 (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"        // ログイン必須
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS" // パートナーコード/パスワード不一致
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"       // トークン期限切れ
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"       // 不正なトークン
	AuthAccountDisabled    = "AUTH_ACCOUNT_DISABLED"    // 無効化されたアカウント

	// ==================== 認可 (AUTHZ_) ====================
	AuthzForbidden = "AUTHZ_FORBIDDEN"  // アクセス権限なし
	AuthzAdminOnly = "AUTHZ_ADMIN_ONLY" // 管理者のみ

	// ==================== 検証 (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT" // 不正な入力
	ValidationInvalidID    = "VALIDATION_INVALID_ID"    // 不正なID
	ValidationRequired     = "VALIDATION_REQUIRED"      // 必須項目

	// ==================== リソース (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"      // リソースなし
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS" // すでに存在

	// ==================== 店舗 (STORE_) ====================
	StoreNotFound    = "STORE_NOT_FOUND"     // 店舗なし
	StoreTableAbsent = "STORE_TABLE_ABSENT"  // storesテーブル未作成

	// ==================== ユーザー (USER_) ====================
	UserNotFound          = "USER_NOT_FOUND"           // ユーザーなし
	UserPartnerCodeExists = "USER_PARTNER_CODE_EXISTS" // パートナーコード重複

	// ==================== インポート (IMPORT_) ====================
	ImportSourceUnavailable = "IMPORT_SOURCE_UNAVAILABLE" // ソースDB接続失敗
	ImportBatchFailed       = "IMPORT_BATCH_FAILED"       // バッチ投入失敗

	// ==================== 内部 (INTERNAL_) ====================
	InternalServerError = "INTERNAL_SERVER_ERROR" // サーバーエラー
	InternalDatabase    = "INTERNAL_DATABASE"     // DBエラー
	InternalExternalAPI = "INTERNAL_EXTERNAL_API" // 外部サービスエラー
)
