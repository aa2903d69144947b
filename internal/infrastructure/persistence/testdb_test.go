package persistence

import (
	"testing"

	"github.com/erp/commerce/tests/testutil"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database with every table migrated
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.NewSQLiteDB(t)
}
