package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/tradehub/tradehub-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func requireStatements(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestInventoryMigrationContainsConstraints(t *testing.T) {
	requireStatements(t, readMigration(t, "create_inventory"), []string{
		"CREATE TABLE IF NOT EXISTS inventory (",
		"FOREIGN KEY (warehouse_id) REFERENCES warehouses(id) ON DELETE CASCADE",
		"CONSTRAINT ux_inventory_warehouse_product UNIQUE (warehouse_id, product_id)",
		"CHECK (quantity >= 0)",
		"CREATE TABLE IF NOT EXISTS stock_movements",
		"DROP TABLE IF EXISTS inventory",
	})
}

func TestOrdersMigrationEnforcesOneOrderPerPayment(t *testing.T) {
	requireStatements(t, readMigration(t, "create_orders"), []string{
		"CONSTRAINT ux_gig_orders_inquiry UNIQUE (inquiry_id)",
		"CONSTRAINT ux_gig_orders_payment_intent UNIQUE (payment_intent_id)",
		"CONSTRAINT ux_product_orders_payment_intent UNIQUE (payment_intent_id)",
		"DROP TABLE IF EXISTS product_order_items",
	})
}

func TestShipmentsMigrationAllowsOneShipmentPerOrder(t *testing.T) {
	requireStatements(t, readMigration(t, "create_shipments"), []string{
		"CONSTRAINT ux_shipments_product_order UNIQUE (product_order_id)",
		"CONSTRAINT ux_shipments_tracking_number UNIQUE (tracking_number)",
	})
}

func TestMigrationDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Tracking Index!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_tracking_index.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration does not validate: %v", err)
	}
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	if err := migrate.ValidateFS(migrate.Embedded()); err != nil {
		t.Fatalf("validate embedded migrations: %v", err)
	}
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	compiled, err := fs.Glob(migrate.Embedded(), "*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	if len(onDisk) != len(compiled) {
		t.Fatalf("expected %d embedded migrations got %d", len(onDisk), len(compiled))
	}
}

func TestValidateFSRejectsMalformedMigrations(t *testing.T) {
	cases := map[string]string{
		"20260101000000_down_first.sql": "-- +goose Down\nDROP TABLE x;\n-- +goose Up\nCREATE TABLE x();\n",
		"20260101000000_no_down.sql":    "-- +goose Up\nCREATE TABLE x();\n",
		"20260101000000_unbalanced.sql": "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n",
		"2026_bad_name.sql":             "-- +goose Up\n-- +goose Down\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			fsys := fstest.MapFS{name: &fstest.MapFile{Data: []byte(body)}}
			if err := migrate.ValidateFS(fsys); err == nil {
				t.Fatalf("expected %s to be rejected", name)
			}
		})
	}
}

func TestValidateFSRejectsDuplicateVersions(t *testing.T) {
	body := []byte("-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n")
	fsys := fstest.MapFS{
		"20260101000000_a.sql": &fstest.MapFile{Data: body},
		"20260101000000_b.sql": &fstest.MapFile{Data: body},
	}
	err := migrate.ValidateFS(fsys)
	if err == nil || !strings.Contains(err.Error(), "duplicate migration version") {
		t.Fatalf("expected duplicate version error, got %v", err)
	}
}

func TestCreateSQLMigrationRejectsEmptyName(t *testing.T) {
	if _, err := migrate.CreateSQLMigration(t.TempDir(), "!!!"); err == nil {
		t.Fatal("expected error for name without usable characters")
	}
}
