package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/infratech-maker/apclo-partner-crm/config"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/model"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/repository"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/service"
	"github.com/infratech-maker/apclo-partner-crm/internal/db"
)

func main() {
	adminCode := flag.String("admin-code", "", "初期管理者のパートナーコード")
	adminPassword := flag.String("admin-password", "", "初期管理者のパスワード")
	adminName := flag.String("admin-name", "管理者", "初期管理者の表示名")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	if *adminCode != "" {
		if err := seedAdmin(*adminCode, *adminPassword, *adminName); err != nil {
			log.Fatal("Failed to create admin user:", err)
		}
	}

	if flag.NArg() < 1 {
		if *adminCode == "" {
			log.Fatal("Usage: go run cmd/seed/main.go [-admin-code CODE -admin-password PASS] <xlsx_file_path>")
		}
		return
	}
	filePath := flag.Arg(0)

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	stores, err := readStoresFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Total stores to import: %d\n", len(stores))

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	storeRepo := repository.NewStoreRepository(db.GetDB())

	batchSize := 1000
	fmt.Printf("Starting bulk import with batch size: %d\n", batchSize)
	inserted, err := storeRepo.BulkUpsert(stores, batchSize)
	if err != nil {
		log.Fatal("Failed to bulk import stores:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Total stores imported: %d\n", inserted)
}

func seedAdmin(code, password, name string) error {
	if password == "" {
		return fmt.Errorf("admin-password is required with admin-code")
	}
	users := service.NewUserService(repository.NewUserRepository(db.GetDB()))
	user, err := users.CreateUser(service.UserInput{
		PartnerCode: code,
		Password:    password,
		Name:        name,
		UserType:    model.UserTypeAdmin,
	})
	if err != nil {
		if errors.Is(err, service.ErrPartnerCodeExists) {
			fmt.Printf("Admin user %s already exists, skipping\n", code)
			return nil
		}
		return err
	}
	fmt.Printf("Admin user created: %s (%s)\n", user.PartnerCode, user.ID)
	return nil
}

// XLSXの列構成はエクスポートAPIと同じ日本語ヘッダー14列。
func readStoresFromXLSX(filePath string) ([]model.Store, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}

	fmt.Printf("Reading sheet: %s\n", sheetName)

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in XLSX file")
	}

	var stores []model.Store
	seen := make(map[string]bool)
	skippedCount := 0

	for i, row := range rows {
		if i == 0 {
			fmt.Printf("Headers: %v\n", row)
			continue
		}
		if len(row) < 2 {
			skippedCount++
			continue
		}

		store := model.Store{
			StoreID: strings.TrimSpace(cell(row, 0)),
			Name:    strings.TrimSpace(cell(row, 1)),
		}
		if store.Name == "" || seen[store.StoreID] {
			skippedCount++
			continue
		}
		seen[store.StoreID] = true

		store.Phone = cell(row, 2)
		store.Website = cell(row, 3)
		store.Address = cell(row, 4)
		store.Category = cell(row, 5)
		if raw := cell(row, 6); raw != "" {
			if rating, err := strconv.ParseFloat(raw, 64); err == nil {
				store.Rating = &rating
			}
		}
		store.City = cell(row, 7)
		if raw := cell(row, 8); raw != "" {
			if opening, err := time.Parse("2006-01-02", raw); err == nil {
				store.OpeningDate = &opening
			}
		}
		store.ClosedDay = cell(row, 9)
		store.Transport = cell(row, 10)
		store.BusinessHours = cell(row, 11)
		store.OfficialAccount = cell(row, 12)
		store.DataSource = cell(row, 13)
		if store.DataSource == "" {
			store.DataSource = "seed"
		}

		stores = append(stores, store)
	}

	if skippedCount > 0 {
		fmt.Printf("Skipped rows: %d\n", skippedCount)
	}
	return stores, nil
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}
