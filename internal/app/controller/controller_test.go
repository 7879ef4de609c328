package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/model"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/repository"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/service"
	"github.com/infratech-maker/apclo-partner-crm/internal/db"
	"github.com/infratech-maker/apclo-partner-crm/internal/middleware"
	"github.com/infratech-maker/apclo-partner-crm/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "controller-test-secret"

type testEnv struct {
	router    *gin.Engine
	db        *gorm.DB
	storeRepo repository.StoreRepository
	userRepo  repository.UserRepository
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	testDB := db.SetupTestDB(t)
	storeRepo := repository.NewStoreRepository(testDB)
	userRepo := repository.NewUserRepository(testDB)
	statusRepo := repository.NewStatusRepository(testDB)

	storeService := service.NewStoreService(storeRepo)
	authService := service.NewAuthService(userRepo, testJWTSecret, time.Hour)
	userService := service.NewUserService(userRepo)

	authMW := middleware.NewAuthMiddleware(testJWTSecret)

	router := gin.New()
	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.LoggingMiddleware())

	metaCtrl := NewMetaController(storeService)
	storeCtrl := NewStoreController(storeService)
	exportCtrl := NewExportController(storeService)
	authCtrl := NewAuthController(authService)
	userCtrl := NewUserController(userService)
	statusCtrl := NewStatusController(statusRepo)

	api := router.Group("/api")
	api.GET("/health", metaCtrl.Health)
	api.GET("/areas", metaCtrl.GetAreas)
	api.GET("/prefectures", metaCtrl.GetPrefectures)
	api.GET("/cities", metaCtrl.GetCities)
	api.GET("/categories", metaCtrl.GetCategories)
	api.GET("/stats", storeCtrl.GetStats)
	api.GET("/stores", storeCtrl.ListStores)
	api.GET("/stores/:store_id", storeCtrl.GetStore)
	api.GET("/enrich/progress", storeCtrl.GetEnrichProgress)
	api.GET("/export/csv", exportCtrl.ExportCSV)
	api.GET("/export/json", exportCtrl.ExportJSON)
	api.GET("/export/excel", exportCtrl.ExportExcel)
	api.POST("/login", authCtrl.Login)
	api.POST("/auth/login", authCtrl.Login)
	api.POST("/stores/:store_id/status", authMW.Authenticate(), statusCtrl.SetStatus)
	api.GET("/partner/statuses", authMW.Authenticate(), statusCtrl.ListMyStatuses)

	admin := api.Group("/admin")
	admin.Use(authMW.Authenticate(), authMW.RequireAdmin())
	admin.GET("/users", userCtrl.ListUsers)
	admin.GET("/stores/:store_id/statuses", statusCtrl.ListStoreStatuses)
	admin.POST("/users", userCtrl.CreateUser)
	admin.PUT("/users/:user_id", userCtrl.UpdateUser)
	admin.DELETE("/users/:user_id", userCtrl.DeleteUser)

	return &testEnv{router: router, db: testDB, storeRepo: storeRepo, userRepo: userRepo}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createUser(t *testing.T, partnerCode, password, userType string) *model.User {
	t.Helper()
	hash, err := util.HashPassword(password)
	require.NoError(t, err)
	user := &model.User{
		PartnerCode:  partnerCode,
		PasswordHash: hash,
		Name:         "テストユーザー",
		UserType:     userType,
		IsActive:     true,
	}
	require.NoError(t, e.userRepo.Create(user))
	return user
}

func (e *testEnv) loginToken(t *testing.T, partnerCode, password string) string {
	t.Helper()
	w := e.request(t, http.MethodPost, "/api/auth/login", gin.H{
		"partner_code": partnerCode,
		"password":     password,
	}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetaEndpoints(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/areas", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var areas struct {
		Areas           []string            `json:"areas"`
		AreaPrefectures map[string][]string `json:"area_prefectures"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &areas))
	assert.Len(t, areas.Areas, 8)
	assert.Equal(t, []string{"北海道"}, areas.AreaPrefectures["北海道"])

	w = env.request(t, http.MethodGet, "/api/prefectures", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var prefs struct {
		Prefectures []string `json:"prefectures"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &prefs))
	assert.Len(t, prefs.Prefectures, 47)

	w = env.request(t, http.MethodGet, "/api/categories", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var cats struct {
		Categories     []string            `json:"categories"`
		CategoryGroups map[string][]string `json:"category_groups"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cats))
	assert.Len(t, cats.Categories, 19)
	assert.Contains(t, cats.CategoryGroups, "和食")
}

func TestGetCities(t *testing.T) {
	env := setupTestEnv(t)

	require.NoError(t, env.storeRepo.Create(&model.Store{
		StoreID: "s1", Name: "一", Address: "東京都渋谷区1-1", City: "渋谷区",
	}))
	require.NoError(t, env.storeRepo.Create(&model.Store{
		StoreID: "s2", Name: "二", Address: "大阪府大阪市2-2", City: "大阪市",
	}))

	w := env.request(t, http.MethodGet, "/api/cities?prefecture=東京都", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Cities []string `json:"cities"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"渋谷区"}, resp.Cities)
}

func TestListStores(t *testing.T) {
	env := setupTestEnv(t)

	require.NoError(t, env.storeRepo.Create(&model.Store{
		StoreID: "s1", Name: "渋谷うどん", Address: "東京都渋谷区1-1", Category: "うどん",
	}))
	require.NoError(t, env.storeRepo.Create(&model.Store{
		StoreID: "s2", Name: "大阪カフェ", Address: "大阪府大阪市2-2", Category: "カフェ",
	}))

	w := env.request(t, http.MethodGet, "/api/stores?prefectures=東京都", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp service.StoreListResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Total)
	require.Len(t, resp.Stores, 1)
	assert.Equal(t, "s1", resp.Stores[0].StoreID)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 100, resp.PerPage)
}

func TestGetStoreNotFound(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/stores/missing-id", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetStats(t *testing.T) {
	env := setupTestEnv(t)

	require.NoError(t, env.storeRepo.Create(&model.Store{
		StoreID: "s1", Name: "一", Address: "東京都渋谷区1-1", City: "渋谷区", Phone: "03-1111-1111",
	}))

	w := env.request(t, http.MethodGet, "/api/stats", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var stats service.StoreStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.TotalStores)
	assert.Equal(t, int64(1), stats.WithPhone)
	assert.Equal(t, int64(1), stats.PrefectureStats["東京"])
}

func TestExportCSV(t *testing.T) {
	env := setupTestEnv(t)

	require.NoError(t, env.storeRepo.Create(&model.Store{
		StoreID: "s1", Name: "渋谷うどん", Address: "東京都渋谷区1-1", Phone: "03-1111-1111",
	}))

	w := env.request(t, http.MethodGet, "/api/export/csv", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "stores_export.csv")

	body := strings.TrimPrefix(w.Body.String(), "\uFEFF")
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "店舗ID")
	assert.Contains(t, lines[1], "渋谷うどん")
}

func TestExportJSON(t *testing.T) {
	env := setupTestEnv(t)

	require.NoError(t, env.storeRepo.Create(&model.Store{
		StoreID: "s1", Name: "渋谷うどん", Address: "東京都渋谷区1-1",
	}))

	w := env.request(t, http.MethodGet, "/api/export/json", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Stores []model.Store `json:"stores"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Stores, 1)
}

func TestExportExcel(t *testing.T) {
	env := setupTestEnv(t)

	require.NoError(t, env.storeRepo.Create(&model.Store{
		StoreID: "s1", Name: "渋谷うどん", Address: "東京都渋谷区1-1",
	}))

	w := env.request(t, http.MethodGet, "/api/export/excel", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "stores_export.xlsx")
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestEnrichProgressWithoutSnapshot(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/enrich/progress", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"running":false}`, w.Body.String())
}

func TestLogin(t *testing.T) {
	env := setupTestEnv(t)
	env.createUser(t, "P-0001", "secret-password", model.UserTypePartner)

	token := env.loginToken(t, "P-0001", "secret-password")
	assert.NotEmpty(t, token)

	w := env.request(t, http.MethodPost, "/api/auth/login", gin.H{
		"partner_code": "P-0001",
		"password":     "wrong",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.request(t, http.MethodPost, "/api/auth/login", gin.H{
		"partner_code": "P-0001",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// /api/login が正式パス。応答は success/user/token を持つ。
func TestLoginPath(t *testing.T) {
	env := setupTestEnv(t)
	env.createUser(t, "P-0001", "secret-password", model.UserTypePartner)

	w := env.request(t, http.MethodPost, "/api/login", gin.H{
		"partner_code": "P-0001",
		"password":     "secret-password",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool        `json:"success"`
		Token   string      `json:"token"`
		User    *model.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Token)
	require.NotNil(t, resp.User)
	assert.Equal(t, "P-0001", resp.User.PartnerCode)
}

// ハンドラ内のpanicは traceback 付きの500エンベロープに変換される
func TestPanicRecoveryEnvelope(t *testing.T) {
	env := setupTestEnv(t)
	env.router.GET("/api/boom", func(c *gin.Context) {
		panic("unexpected failure")
	})

	w := env.request(t, http.MethodGet, "/api/boom", nil, "")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp struct {
		Error     string `json:"error"`
		Message   string `json:"message"`
		Traceback string `json:"traceback"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
	assert.NotEmpty(t, resp.Message)
	assert.Contains(t, resp.Traceback, "unexpected failure")
}

// テーブル未作成のDBでも一覧系は500ではなく空リストを返す
func TestListEndpointsWithoutTables(t *testing.T) {
	env := setupTestEnv(t)
	env.createUser(t, "A-0001", "admin-password", model.UserTypeAdmin)
	adminToken := env.loginToken(t, "A-0001", "admin-password")

	require.NoError(t, env.db.Migrator().DropTable(&model.StoreStatus{}))
	require.NoError(t, env.db.Migrator().DropTable(&model.User{}))

	w := env.request(t, http.MethodGet, "/api/admin/users", nil, adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	var users struct {
		Users []model.User `json:"users"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	assert.Empty(t, users.Users)

	w = env.request(t, http.MethodGet, "/api/partner/statuses", nil, adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	var statuses struct {
		Statuses []model.StoreStatus `json:"statuses"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &statuses))
	assert.Empty(t, statuses.Statuses)
}

func TestAdminUsersCRUD(t *testing.T) {
	env := setupTestEnv(t)
	env.createUser(t, "A-0001", "admin-password", model.UserTypeAdmin)
	env.createUser(t, "P-0001", "partner-password", model.UserTypePartner)

	adminToken := env.loginToken(t, "A-0001", "admin-password")
	partnerToken := env.loginToken(t, "P-0001", "partner-password")

	// 管理者以外は拒否
	w := env.request(t, http.MethodGet, "/api/admin/users", nil, partnerToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 一覧
	w = env.request(t, http.MethodGet, "/api/admin/users", nil, adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Users []model.User `json:"users"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list.Users, 2)

	// 作成
	w = env.request(t, http.MethodPost, "/api/admin/users", gin.H{
		"partner_code": "P-0002",
		"password":     "new-password",
		"name":         "新規パートナー",
		"user_type":    model.UserTypePartner,
	}, adminToken)
	require.Equal(t, http.StatusCreated, w.Code)
	var created model.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// パートナーコード重複は400
	w = env.request(t, http.MethodPost, "/api/admin/users", gin.H{
		"partner_code": "P-0002",
		"password":     "other",
		"name":         "重複",
		"user_type":    model.UserTypePartner,
	}, adminToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 更新
	w = env.request(t, http.MethodPut, "/api/admin/users/"+created.ID, gin.H{
		"name": "更新後の名前",
	}, adminToken)
	require.Equal(t, http.StatusOK, w.Code)

	// 削除は論理削除
	w = env.request(t, http.MethodDelete, "/api/admin/users/"+created.ID, nil, adminToken)
	require.Equal(t, http.StatusOK, w.Code)

	found, err := env.userRepo.FindByID(created.ID)
	require.NoError(t, err)
	assert.False(t, found.IsActive)
}

func TestStoreStatus(t *testing.T) {
	env := setupTestEnv(t)
	env.createUser(t, "P-0001", "partner-password", model.UserTypePartner)
	token := env.loginToken(t, "P-0001", "partner-password")

	require.NoError(t, env.storeRepo.Create(&model.Store{
		StoreID: "s1", Name: "一", Address: "東京都1",
	}))

	// 未認証は拒否
	w := env.request(t, http.MethodPost, "/api/stores/s1/status", gin.H{"status": "商談中"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.request(t, http.MethodPost, "/api/stores/s1/status", gin.H{"status": "商談中"}, token)
	require.Equal(t, http.StatusOK, w.Code)

	// 同じ担当者×店舗は上書き
	w = env.request(t, http.MethodPost, "/api/stores/s1/status", gin.H{"status": "成約"}, token)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodGet, "/api/partner/statuses", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Statuses []model.StoreStatus `json:"statuses"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Statuses, 1)
	assert.Equal(t, "成約", resp.Statuses[0].Status)
}

// 管理者は店舗単位で全担当者のステータスを横断参照できる
func TestAdminStoreStatuses(t *testing.T) {
	env := setupTestEnv(t)
	env.createUser(t, "A-0001", "admin-password", model.UserTypeAdmin)
	env.createUser(t, "P-0001", "partner-password", model.UserTypePartner)
	env.createUser(t, "P-0002", "partner-password", model.UserTypePartner)

	adminToken := env.loginToken(t, "A-0001", "admin-password")
	token1 := env.loginToken(t, "P-0001", "partner-password")
	token2 := env.loginToken(t, "P-0002", "partner-password")

	require.NoError(t, env.storeRepo.Create(&model.Store{
		StoreID: "s1", Name: "一", Address: "東京都1",
	}))

	w := env.request(t, http.MethodPost, "/api/stores/s1/status", gin.H{"status": "商談中"}, token1)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.request(t, http.MethodPost, "/api/stores/s1/status", gin.H{"status": "成約"}, token2)
	require.Equal(t, http.StatusOK, w.Code)

	// 管理者以外は拒否
	w = env.request(t, http.MethodGet, "/api/admin/stores/s1/statuses", nil, token1)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.request(t, http.MethodGet, "/api/admin/stores/s1/statuses", nil, adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Statuses []model.StoreStatus `json:"statuses"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Statuses, 2)

	statuses := map[string]bool{}
	for _, s := range resp.Statuses {
		statuses[s.Status] = true
	}
	assert.True(t, statuses["商談中"])
	assert.True(t, statuses["成約"])
}
