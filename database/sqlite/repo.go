// Package sqlite implements the metadata repo interface using SQLite
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	pagehandler "github.com/sjaconsulting/static-page-handler"
)

type repo struct {
	db        *sql.DB
	tableName string
}

// NewRepo creates a metadata repo backed by the given SQLite database.
func NewRepo(db *sql.DB, tables pagehandler.Tables) (pagehandler.MetaDataRepo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return &repo{db: db, tableName: tables.Objects}, nil
}

func (r *repo) Get(ctx context.Context, key string) (pagehandler.ObjectInfo, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, object_key, content_type, cache_control, etag, size_bytes, created_at, updated_at
		FROM %s
		WHERE object_key = ?`, r.tableName)

	var m pagehandler.ObjectInfo
	var idStr string
	var createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&idStr, &m.Key, &m.ContentType, &m.CacheControl, &m.Etag, &m.SizeBytes, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return pagehandler.ObjectInfo{}, pagehandler.ErrNotFound
		}
		return pagehandler.ObjectInfo{}, fmt.Errorf("get: %w", err)
	}

	m.ID, err = uuid.Parse(idStr)
	if err != nil {
		return pagehandler.ObjectInfo{}, fmt.Errorf("get: parse uuid: %w", err)
	}

	m.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return pagehandler.ObjectInfo{}, fmt.Errorf("get: parse created_at: %w", err)
	}

	m.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return pagehandler.ObjectInfo{}, fmt.Errorf("get: parse updated_at: %w", err)
	}

	return m, nil
}

func (r *repo) Upsert(ctx context.Context, entry pagehandler.ObjectEntry) (pagehandler.ObjectInfo, bool, error) {
	// Check if an entry exists first to determine insert vs update
	var existingID string
	checkQuery := fmt.Sprintf(`SELECT id FROM %s WHERE object_key = ?`, r.tableName) //nolint:gosec // table name is validated
	err := r.db.QueryRowContext(ctx, checkQuery, entry.Key).Scan(&existingID)
	isInsert := errors.Is(err, sql.ErrNoRows)
	if err != nil && !isInsert {
		return pagehandler.ObjectInfo{}, false, fmt.Errorf("upsert: check existing: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	var m pagehandler.ObjectInfo

	if isInsert {
		newID := uuid.New()
		insertQuery := fmt.Sprintf( //nolint:gosec // G201: table name is validated
			`INSERT INTO %s (id, object_key, content_type, cache_control, etag, size_bytes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, r.tableName)

		_, err = r.db.ExecContext(ctx, insertQuery,
			newID.String(), entry.Key, entry.ContentType, entry.CacheControl, entry.ETag, entry.Size, now, now,
		)
		if err != nil {
			return pagehandler.ObjectInfo{}, false, fmt.Errorf("upsert: insert: %w", err)
		}

		m.ID = newID
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, now)
	} else {
		updateQuery := fmt.Sprintf( //nolint:gosec // G201: table name is validated
			`UPDATE %s
			SET content_type = ?, cache_control = ?, etag = ?, size_bytes = ?, updated_at = ?
			WHERE object_key = ?`, r.tableName)

		_, err = r.db.ExecContext(ctx, updateQuery,
			entry.ContentType, entry.CacheControl, entry.ETag, entry.Size, now, entry.Key,
		)
		if err != nil {
			return pagehandler.ObjectInfo{}, false, fmt.Errorf("upsert: update: %w", err)
		}

		m.ID, _ = uuid.Parse(existingID)

		var createdAt string
		createdQuery := fmt.Sprintf(`SELECT created_at FROM %s WHERE object_key = ?`, r.tableName) //nolint:gosec // table name is validated
		if err := r.db.QueryRowContext(ctx, createdQuery, entry.Key).Scan(&createdAt); err != nil {
			return pagehandler.ObjectInfo{}, false, fmt.Errorf("upsert: get created_at: %w", err)
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	}

	m.Key = entry.Key
	m.ContentType = entry.ContentType
	m.CacheControl = entry.CacheControl
	m.Etag = entry.ETag
	m.SizeBytes = entry.Size
	m.UpdatedAt, _ = time.Parse(time.RFC3339Nano, now)

	return m, isInsert, nil
}

func (r *repo) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE object_key = ?`, r.tableName) //nolint:gosec // table name is validated

	res, err := r.db.ExecContext(ctx, query, key)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete: rows affected: %w", err)
	}

	if affected == 0 {
		return pagehandler.ErrNotFound
	}

	return nil
}

func (r *repo) List(ctx context.Context, prefix string) ([]pagehandler.ObjectInfo, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, object_key, content_type, cache_control, etag, size_bytes, created_at, updated_at
		FROM %s
		WHERE object_key LIKE ? ESCAPE '\'
		ORDER BY object_key`, r.tableName)

	rows, err := r.db.QueryContext(ctx, query, escapeLikePattern(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	infos := []pagehandler.ObjectInfo{}
	for rows.Next() {
		var m pagehandler.ObjectInfo
		var idStr, createdAt, updatedAt string

		if err := rows.Scan(&idStr, &m.Key, &m.ContentType, &m.CacheControl, &m.Etag, &m.SizeBytes, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("list: scan: %w", err)
		}

		m.ID, err = uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("list: parse uuid: %w", err)
		}

		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		m.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

		infos = append(infos, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	return infos, nil
}
