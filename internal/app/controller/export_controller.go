package controller

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/model"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/service"
	apperrors "github.com/infratech-maker/apclo-partner-crm/internal/errors"
	"github.com/infratech-maker/apclo-partner-crm/internal/middleware"
	"github.com/xuri/excelize/v2"
)

// exportHeaders CSV/Excelで共通の日本語ヘッダー
var exportHeaders = []string{
	"店舗ID", "店舗名", "電話番号", "ウェブサイト", "住所", "カテゴリ", "評価",
	"都市", "開店日", "定休日", "交通アクセス", "営業時間", "公式アカウント", "データソース",
}

type ExportController struct {
	storeService service.StoreService
}

func NewExportController(storeService service.StoreService) *ExportController {
	return &ExportController{storeService: storeService}
}

func exportRow(store *model.Store) []string {
	rating := ""
	if store.Rating != nil {
		rating = fmt.Sprintf("%.1f", *store.Rating)
	}
	openingDate := ""
	if store.OpeningDate != nil {
		openingDate = store.OpeningDate.Format("2006-01-02")
	}

	return []string{
		store.StoreID,
		store.Name,
		store.Phone,
		store.Website,
		store.Address,
		store.Category,
		rating,
		store.City,
		openingDate,
		store.ClosedDay,
		store.Transport,
		store.BusinessHours,
		store.OfficialAccount,
		store.DataSource,
	}
}

func (ctrl *ExportController) fetchStores(c *gin.Context) ([]model.Store, bool) {
	log := middleware.GetLoggerFromContext(c)

	opts := parseListOptions(c)
	stores, err := ctrl.storeService.ExportStores(opts)
	if err != nil {
		if apperrors.IsUndefinedTable(err) {
			return []model.Store{}, true
		}
		log.Error("Failed to fetch stores for export", err, nil)
		apperrors.InternalError(c, "")
		return nil, false
	}
	return stores, true
}

// ExportCSV フィルタ適用済みの店舗一覧をCSVで返す。
// Excelで直接開けるようUTF-8 BOM付きで出力する。
func (ctrl *ExportController) ExportCSV(c *gin.Context) {
	stores, ok := ctrl.fetchStores(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	buf.WriteString("\uFEFF")

	writer := csv.NewWriter(&buf)
	if err := writer.Write(exportHeaders); err != nil {
		apperrors.InternalError(c, "")
		return
	}
	for i := range stores {
		if err := writer.Write(exportRow(&stores[i])); err != nil {
			apperrors.InternalError(c, "")
			return
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		apperrors.InternalError(c, "")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="stores_export.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (ctrl *ExportController) ExportJSON(c *gin.Context) {
	stores, ok := ctrl.fetchStores(c)
	if !ok {
		return
	}

	c.Header("Content-Disposition", `attachment; filename="stores_export.json"`)
	c.IndentedJSON(http.StatusOK, gin.H{"stores": stores})
}

func (ctrl *ExportController) ExportExcel(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	stores, ok := ctrl.fetchStores(c)
	if !ok {
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Stores"
	f.SetSheetName(f.GetSheetName(0), sheet)

	for col, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, header)
	}
	for i := range stores {
		for col, value := range exportRow(&stores[i]) {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		log.Error("Failed to build excel export", err, nil)
		apperrors.InternalError(c, "")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="stores_export.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
