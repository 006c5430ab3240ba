package db

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMigration(t *testing.T, dir, name, sql string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMigrationsSortsByVersion(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "010_later.sql", "SELECT 10;")
	writeMigration(t, dir, "001_core.sql", "SELECT 1;")
	writeMigration(t, dir, "002_rules.sql", "SELECT 2;")

	m := NewMigrator(nil, dir)
	migrations, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations failed: %v", err)
	}

	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}
	wantVersions := []int{1, 2, 10}
	for i, mig := range migrations {
		if mig.Version != wantVersions[i] {
			t.Errorf("position %d: expected version %d, got %d", i, wantVersions[i], mig.Version)
		}
	}
	if migrations[0].SQL != "SELECT 1;" {
		t.Errorf("expected file contents loaded, got %q", migrations[0].SQL)
	}
}

func TestLoadMigrationsSkipsNonMigrationFiles(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "001_core.sql", "SELECT 1;")
	writeMigration(t, dir, "README.md", "not sql")
	writeMigration(t, dir, "notes.sql", "no version prefix")
	writeMigration(t, dir, "abc_bad.sql", "non-numeric prefix")

	m := NewMigrator(nil, dir)
	migrations, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations failed: %v", err)
	}
	if len(migrations) != 1 || migrations[0].Version != 1 {
		t.Errorf("expected only the versioned sql file, got %d entries", len(migrations))
	}
}

func TestLoadMigrationsMissingDir(t *testing.T) {
	m := NewMigrator(nil, "/does/not/exist")
	if _, err := m.LoadMigrations(); err == nil {
		t.Error("expected an error for a missing directory")
	}
}
