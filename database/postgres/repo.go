// Package postgres implements the metadata repo interface using PostgreSQL
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	pagehandler "github.com/sjaconsulting/static-page-handler"
)

type Repo struct {
	pool      *pgxpool.Pool
	tableName string
}

func NewRepo(pool *pgxpool.Pool, tables pagehandler.Tables) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return &Repo{pool: pool, tableName: tables.Objects}, nil
}

// Ping verifies database connectivity
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repo) Get(ctx context.Context, key string) (pagehandler.ObjectInfo, error) {
	query := fmt.Sprintf(`
		SELECT id, object_key, content_type, cache_control, etag, size_bytes, created_at, updated_at
		FROM %s
		WHERE object_key = $1
	`, r.tableName)

	var m pagehandler.ObjectInfo
	err := r.pool.QueryRow(ctx, query, key).Scan(
		&m.ID, &m.Key, &m.ContentType, &m.CacheControl, &m.Etag, &m.SizeBytes, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pagehandler.ObjectInfo{}, pagehandler.ErrNotFound
		}
		return pagehandler.ObjectInfo{}, fmt.Errorf("get: %w", err)
	}

	return m, nil
}

func (r *Repo) Upsert(ctx context.Context, entry pagehandler.ObjectEntry) (pagehandler.ObjectInfo, bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (object_key, content_type, cache_control, etag, size_bytes)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (object_key) DO UPDATE
		SET content_type = EXCLUDED.content_type,
			cache_control = EXCLUDED.cache_control,
			etag = EXCLUDED.etag,
			size_bytes = EXCLUDED.size_bytes,
			updated_at = NOW()
		RETURNING id, object_key, content_type, cache_control, etag, size_bytes, created_at, updated_at,
			(xmax = 0) AS inserted
	`, r.tableName)

	var m pagehandler.ObjectInfo
	var inserted bool

	err := r.pool.QueryRow(ctx, query, entry.Key, entry.ContentType, entry.CacheControl, entry.ETag, entry.Size).Scan(
		&m.ID, &m.Key, &m.ContentType, &m.CacheControl, &m.Etag, &m.SizeBytes, &m.CreatedAt, &m.UpdatedAt, &inserted,
	)
	if err != nil {
		return pagehandler.ObjectInfo{}, false, fmt.Errorf("upsert: %w", err)
	}

	return m, inserted, nil
}

func (r *Repo) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE object_key = $1`, r.tableName)

	tag, err := r.pool.Exec(ctx, query, key)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return pagehandler.ErrNotFound
	}

	return nil
}

func (r *Repo) List(ctx context.Context, prefix string) ([]pagehandler.ObjectInfo, error) {
	query := fmt.Sprintf(`
		SELECT id, object_key, content_type, cache_control, etag, size_bytes, created_at, updated_at
		FROM %s
		WHERE object_key LIKE $1 ESCAPE '\'
		ORDER BY object_key
	`, r.tableName)

	rows, err := r.pool.Query(ctx, query, escapeLikePattern(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	infos := []pagehandler.ObjectInfo{}
	for rows.Next() {
		var m pagehandler.ObjectInfo
		if err := rows.Scan(&m.ID, &m.Key, &m.ContentType, &m.CacheControl, &m.Etag, &m.SizeBytes, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list: scan: %w", err)
		}
		infos = append(infos, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	return infos, nil
}
