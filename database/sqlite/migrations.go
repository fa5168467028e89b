package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	pagehandler "github.com/sjaconsulting/static-page-handler"
)

// quoteIdentifier safely quotes a SQLite identifier
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

// escapeLikePattern escapes special LIKE characters (%, _, \) so a prefix
// query cannot be widened by pattern characters in a key.
func escapeLikePattern(pattern string) string {
	pattern = strings.ReplaceAll(pattern, `\`, `\\`)
	pattern = strings.ReplaceAll(pattern, `%`, `\%`)
	pattern = strings.ReplaceAll(pattern, `_`, `\_`)
	return pattern
}

type tableMigration struct {
	tableName string
	up        func(ctx context.Context, db *sql.DB) error
	down      func(ctx context.Context, db *sql.DB) error
}

func getTableMigrations(tables pagehandler.Tables) []tableMigration {
	return []tableMigration{
		{
			tableName: tables.Objects,
			up:        createObjectsTable(tables.Objects),
			down:      dropTable(tables.Objects),
		},
	}
}

// Migrate creates the object metadata tables if they don't exist.
func Migrate(ctx context.Context, db *sql.DB, tables pagehandler.Tables) error {
	for _, migration := range getTableMigrations(tables) {
		if err := migration.up(ctx, db); err != nil {
			return fmt.Errorf("migrate up %s: %w", migration.tableName, err)
		}
	}

	return nil
}

// DropTables removes the object metadata tables. Intended for tests.
func DropTables(ctx context.Context, db *sql.DB, tables pagehandler.Tables) error {
	migrations := getTableMigrations(tables)

	for i := len(migrations) - 1; i >= 0; i-- {
		if err := migrations[i].down(ctx, db); err != nil {
			return fmt.Errorf("migrate down %s: %w", migrations[i].tableName, err)
		}
	}

	return nil
}

func createObjectsTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		if !pagehandler.IsValidTableName(tableName) {
			return fmt.Errorf("invalid table name: %s", tableName)
		}

		query := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				object_key TEXT NOT NULL UNIQUE,
				content_type TEXT NOT NULL,
				cache_control TEXT NOT NULL DEFAULT '',
				etag TEXT NOT NULL,
				size_bytes INTEGER NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`, quoteIdentifier(tableName))

		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("create table: %w", err)
		}

		return nil
	}
}

func dropTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		if !pagehandler.IsValidTableName(tableName) {
			return fmt.Errorf("invalid table name: %s", tableName)
		}

		query := fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quoteIdentifier(tableName))
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}

		return nil
	}
}

// ValidateSchema checks that the objects table exists and carries the
// expected columns.
func ValidateSchema(ctx context.Context, db *sql.DB, tables pagehandler.Tables) error {
	tableName := tables.Objects

	if !pagehandler.IsValidTableName(tableName) {
		return fmt.Errorf("validate schema: invalid table name: %s", tableName)
	}

	query := fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdentifier(tableName))

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("validate schema: query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	actual := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, dataType string
		var notNull int
		var dfltValue sql.NullString
		var pk int

		if err := rows.Scan(&cid, &name, &dataType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("validate schema: scan: %w", err)
		}
		actual[name] = true
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}

	if len(actual) == 0 {
		return fmt.Errorf("validate schema: table %s does not exist", tableName)
	}

	expected := []string{
		"id", "object_key", "content_type", "cache_control",
		"etag", "size_bytes", "created_at", "updated_at",
	}

	missing := []string{}
	for _, col := range expected {
		if !actual[col] {
			missing = append(missing, col)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("validate schema: table %s missing columns: %s", tableName, strings.Join(missing, ", "))
	}

	return nil
}
