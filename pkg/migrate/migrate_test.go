package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
	entries, err := embedded.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries) < 4 {
		t.Fatalf("expected at least 4 embedded migrations, got %d", len(entries))
	}
}

func TestLeadsMigrationGuardsAuditInvariants(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_leads.sql"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one leads migration, got %v (err %v)", matches, err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TYPE lead_status AS ENUM ('new', 'set', 'show', 'close')",
		"leads_contact_chk",
		"CREATE TRIGGER leads_attribution_immutable_trg",
		"lead_status_history_append_only_trg",
		"lead_assignments_append_only_trg",
	}
	for _, check := range checks {
		if !strings.Contains(content, check) {
			t.Fatalf("leads migration missing %q", check)
		}
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	path, err := CreateSQLMigration(dir, "Add Lead Notes!", now)
	if err != nil {
		t.Fatalf("CreateSQLMigration: %v", err)
	}
	if filepath.Base(path) != "20260301093000_add_lead_notes.sql" {
		t.Fatalf("unexpected filename %s", filepath.Base(path))
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
	if _, err := CreateSQLMigration(dir, "add lead notes", now); err == nil {
		t.Fatal("expected duplicate migration error")
	}
	if _, err := CreateSQLMigration(dir, "!!!", now); err == nil {
		t.Fatal("expected empty sanitized name error")
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "leads.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}
}

func TestValidateDirReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"20260301090000_first.sql":  "-- +goose Down\nDROP TABLE x;\n-- +goose Up\nCREATE TABLE x();\n",
		"20260301090000_second.sql": "-- +goose Up\n-- +goose Down\n",
		"20260301090100_third.sql":  "-- +goose Up\nCREATE TABLE y();\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	err := ValidateDir(dir)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{"must come before", "already used by", "20260301090100_third.sql: missing"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in %q", want, msg)
		}
	}
}

func TestValidateDefaultDirUsesEmbeddedCopy(t *testing.T) {
	if err := ValidateDir(DefaultDir); err != nil {
		t.Fatalf("embedded migrations should validate: %v", err)
	}
}

func TestNewRequiresDBAndDir(t *testing.T) {
	if _, err := New(nil, DefaultDir); err == nil {
		t.Fatal("expected missing db error")
	}
	if _, err := migrationsFS(""); err == nil {
		t.Fatal("expected missing dir error")
	}
}

func TestMigratorToRejectsMalformedVersion(t *testing.T) {
	m := &Migrator{}
	for _, v := range []string{"", "latest", "2026030109"} {
		if err := m.To(context.Background(), v); err == nil || !strings.Contains(err.Error(), "YYYYMMDDHHMMSS") {
			t.Fatalf("expected version format error for %q, got %v", v, err)
		}
	}
}
