package dbimport

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openSQLite(t *testing.T, name string, schema ...string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), name))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	for _, stmt := range schema {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return db
}

func newFixture(t *testing.T, rows int) (*sql.DB, *sql.DB) {
	t.Helper()
	src := openSQLite(t, "legacy.db",
		`CREATE TABLE "__EFMigrationsHistory" ("MigrationId" TEXT)`,
		`CREATE TABLE "SantierHistory" ("Id" INTEGER PRIMARY KEY, "SantierId" INTEGER, "IsActive" INTEGER, "Action" TEXT, "Legacy" TEXT)`,
		`CREATE TABLE "OnlyInLegacy" ("Id" INTEGER)`,
	)
	for i := 1; i <= rows; i++ {
		_, err := src.Exec(`INSERT INTO "SantierHistory" VALUES (?, ?, ?, ?, ?)`, i, 10+i, i%2, "Update", "x")
		require.NoError(t, err)
	}
	dst := openSQLite(t, "target.db",
		`CREATE TABLE santier_history (id INTEGER PRIMARY KEY, santier_id INTEGER, is_active BOOLEAN, action TEXT, changed_by TEXT)`,
	)
	return src, dst
}

func TestImporter_Run_CopiesMatchingTablesInBatches(t *testing.T) {
	src, dst := newFixture(t, 5)
	im := New(src, SQLite{DB: src}, dst, SQLite{DB: dst}, newNoopLogger())

	results, err := im.Run(context.Background(), Options{BatchSize: 2})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, TableResult{Source: "SantierHistory", Target: "santier_history", Columns: 4, Rows: 5}, results[0])

	var (
		count    int
		active   bool
		santier  int
		action   string
		changeBy sql.NullString
	)
	require.NoError(t, dst.QueryRow(`SELECT COUNT(*) FROM santier_history`).Scan(&count))
	assert.Equal(t, 5, count)
	require.NoError(t, dst.QueryRow(`SELECT santier_id, is_active, action, changed_by FROM santier_history WHERE id = 3`).
		Scan(&santier, &active, &action, &changeBy))
	assert.Equal(t, 13, santier)
	assert.True(t, active)
	assert.Equal(t, "Update", action)
	assert.False(t, changeBy.Valid)
}

func TestImporter_Run_RefusesNonEmptyTarget(t *testing.T) {
	src, dst := newFixture(t, 2)
	_, err := dst.Exec(`INSERT INTO santier_history (id, santier_id, is_active, action) VALUES (100, 1, 1, 'Create')`)
	require.NoError(t, err)
	im := New(src, SQLite{DB: src}, dst, SQLite{DB: dst}, newNoopLogger())

	_, err = im.Run(context.Background(), Options{})
	require.ErrorIs(t, err, ErrTargetNotEmpty)

	var count int
	require.NoError(t, dst.QueryRow(`SELECT COUNT(*) FROM santier_history`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestImporter_Run_TruncateReplacesRows(t *testing.T) {
	src, dst := newFixture(t, 3)
	_, err := dst.Exec(`INSERT INTO santier_history (id, santier_id, is_active, action) VALUES (100, 1, 1, 'Create')`)
	require.NoError(t, err)
	im := New(src, SQLite{DB: src}, dst, SQLite{DB: dst}, newNoopLogger())

	results, err := im.Run(context.Background(), Options{Truncate: true})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.EqualValues(t, 3, results[0].Rows)

	var missing int
	require.NoError(t, dst.QueryRow(`SELECT COUNT(*) FROM santier_history WHERE id = 100`).Scan(&missing))
	assert.Zero(t, missing)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "santierhistory", normalize("SantierHistory"))
	assert.Equal(t, "santierhistory", normalize("santier_history"))
	assert.Equal(t, "users", normalize("AspNetUsers"))
}

func TestConvertValue(t *testing.T) {
	tests := []struct {
		name       string
		value      any
		targetType string
		want       any
	}{
		{name: "nil", value: nil, targetType: "text", want: nil},
		{name: "int to bool", value: int64(1), targetType: "boolean", want: true},
		{name: "zero to bool", value: int64(0), targetType: "boolean", want: false},
		{name: "text bool", value: "True", targetType: "boolean", want: true},
		{name: "bytes to text", value: []byte("Cluj"), targetType: "text", want: "Cluj"},
		{name: "bytes kept for bytea", value: []byte{1, 2}, targetType: "bytea", want: []byte{1, 2}},
		{name: "int passthrough", value: int64(7), targetType: "integer", want: int64(7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, convertValue(tt.value, tt.targetType))
		})
	}
}
