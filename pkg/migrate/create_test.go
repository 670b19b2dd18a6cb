package migrate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSQLMigrationBumpsPastLatest(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	first, err := createSQLMigration(dir, "Add receipts", now)
	require.NoError(t, err)
	assert.Equal(t, "20260301090000_add_receipts.sql", filepath.Base(first))

	second, err := createSQLMigration(dir, "add-receipt index", now)
	require.NoError(t, err)
	assert.Equal(t, "20260301090001_add_receipt_index.sql", filepath.Base(second))

	body, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- revert add_receipt_index")
	require.NoError(t, ValidateDir(dir))
}

func TestCreateSQLMigrationRejectsEmptyName(t *testing.T) {
	_, err := createSQLMigration(t.TempDir(), "!!!", time.Now())
	require.Error(t, err)
	_, err = createSQLMigration("", "x", time.Now())
	require.Error(t, err)
}
