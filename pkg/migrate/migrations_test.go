package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropmart/dropmart-backend/pkg/migrate"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	require.NoError(t, err)
	require.Len(t, matches, 1, "migration %s", pattern)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestCatalogMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_catalog_tables.sql")
	for _, sub := range []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_supplier_products_external ON supplier_products (supplier_id, external_id)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_products_slug ON products (slug)",
		"FOREIGN KEY (supplier_product_id) REFERENCES supplier_products(id) ON DELETE CASCADE",
		"FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE SET NULL",
		"DROP TABLE IF EXISTS products",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOrdersMigrationKeepsHistoryWhenProductsDisappear(t *testing.T) {
	content := readMigration(t, "*_create_orders_and_payouts.sql")
	for _, sub := range []string{
		"FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE SET NULL",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_payouts_order_item ON payouts (order_item_id)",
		"CHECK (quantity >= 1)",
		"CHECK (status IN ('pending', 'completed', 'failed'))",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Payout Notes!")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_payout_notes.sql"), path)
	require.NoError(t, migrate.ValidateDir(dir))

	_, err = migrate.CreateSQLMigration(dir, "!!!")
	require.Error(t, err)
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	require.Error(t, migrate.ValidateDir(dir), "empty dir")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_ok.sql"), []byte("-- +goose Up\n-- +goose StatementBegin\n"), 0o644))
	require.Error(t, migrate.ValidateDir(dir), "missing down and unbalanced")

	bad := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bad, "oops.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, migrate.ValidateDir(bad))
}
