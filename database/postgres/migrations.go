package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	pagehandler "github.com/sjaconsulting/static-page-handler"
)

// quoteIdentifier safely quotes a PostgreSQL identifier
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

// Migrate creates the object metadata tables if they don't exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool, tables pagehandler.Tables) error {
	tableName := tables.Objects

	if !pagehandler.IsValidTableName(tableName) {
		return fmt.Errorf("migrate: invalid table name: %s", tableName)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			object_key TEXT NOT NULL UNIQUE,
			content_type TEXT NOT NULL,
			cache_control TEXT NOT NULL DEFAULT '',
			etag TEXT NOT NULL,
			size_bytes BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, quoteIdentifier(tableName))

	if _, err := pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("migrate: create table: %w", err)
	}

	return nil
}

// DropTables removes the object metadata tables. Intended for tests.
func DropTables(ctx context.Context, pool *pgxpool.Pool, tables pagehandler.Tables) error {
	tableName := tables.Objects

	if !pagehandler.IsValidTableName(tableName) {
		return fmt.Errorf("drop tables: invalid table name: %s", tableName)
	}

	query := fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quoteIdentifier(tableName))
	if _, err := pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}

	return nil
}

// ValidateSchema checks that the objects table exists and carries the
// expected columns.
func ValidateSchema(ctx context.Context, pool *pgxpool.Pool, tables pagehandler.Tables) error {
	tableName := tables.Objects

	if !pagehandler.IsValidTableName(tableName) {
		return fmt.Errorf("validate schema: invalid table name: %s", tableName)
	}

	query := `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_name = $1
	`

	rows, err := pool.Query(ctx, query, tableName)
	if err != nil {
		return fmt.Errorf("validate schema: query columns: %w", err)
	}
	defer rows.Close()

	actual := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
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
