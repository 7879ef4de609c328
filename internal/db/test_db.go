package db

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	err = testDB.AutoMigrate(
		&model.User{},
		&model.Store{},
		&model.DeliveryService{},
		&model.StoreStatus{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, err := testDB.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return testDB
}

// TruncateAllTables removes all data from tables
func TruncateAllTables(testDB *gorm.DB) error {
	tables := []string{"delivery_services", "store_statuses", "stores", "users"}
	for _, table := range tables {
		if err := testDB.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			return err
		}
	}
	return nil
}
