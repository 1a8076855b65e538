package migrate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSQLMigrationSortsAfterExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20270101000000_create_orders.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	behind := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	first, err := createSQLMigration(dir, "Add payout notes", behind)
	require.NoError(t, err)
	assert.Equal(t, "20270101000001_add_payout_notes.sql", filepath.Base(first))

	second, err := createSQLMigration(dir, "index payouts by supplier", behind)
	require.NoError(t, err)
	assert.Equal(t, "20270101000002_index_payouts_by_supplier.sql", filepath.Base(second))

	ahead := time.Date(2027, 3, 4, 5, 6, 7, 0, time.UTC)
	third, err := createSQLMigration(dir, "Drop legacy column", ahead)
	require.NoError(t, err)
	assert.Equal(t, "20270304050607_drop_legacy_column.sql", filepath.Base(third))

	body, err := os.ReadFile(third)
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- revert drop_legacy_column")
}

func TestCreateSQLMigrationRejectsDuplicateName(t *testing.T) {
	dir := t.TempDir()
	_, err := createSQLMigration(dir, "add payout notes", time.Now().UTC())
	require.NoError(t, err)

	_, err = createSQLMigration(dir, "Add Payout Notes!", time.Now().UTC())
	assert.ErrorContains(t, err, "already exists")

	_, err = createSQLMigration("", "x", time.Now().UTC())
	assert.Error(t, err)
}
