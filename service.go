package pagehandler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// MetaDataRepo defines the interface for managing object metadata persistence.
// Implementations must handle concurrent access safely and ensure data consistency.
//
// All methods accept a context for cancellation and timeout control.
type MetaDataRepo interface {
	// Get retrieves metadata for the object stored under key.
	// Returns ErrNotFound if no entry exists for the key.
	Get(ctx context.Context, key string) (ObjectInfo, error)

	// Upsert creates or updates the metadata entry for an object.
	// The bool return is true if a new entry was created, false if an
	// existing entry was updated.
	Upsert(ctx context.Context, entry ObjectEntry) (ObjectInfo, bool, error)

	// Delete removes the metadata entry for key.
	// Returns ErrNotFound if no entry exists for the key.
	Delete(ctx context.Context, key string) error

	// List retrieves metadata entries whose key starts with prefix.
	// An empty prefix matches everything.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// FileStorage defines the interface for physical object storage operations.
// Implementations can use local filesystem, S3, GCS, or any other backend.
//
// All methods accept a context for cancellation and timeout control.
// Implementations should respect context cancellation during long-running
// operations like large uploads or downloads.
type FileStorage interface {
	// Get retrieves the content stored under key for reading.
	// Returns ErrNotFound if the object does not exist. The caller is
	// responsible for closing the returned ReadSeekCloser.
	Get(ctx context.Context, key string) (io.ReadSeekCloser, error)

	// Write stores content under key, overwriting any existing object.
	// Implementations should write atomically when possible and compute an
	// ETag during the write for integrity verification.
	Write(ctx context.Context, key string, content io.Reader) (SaveResult, error)

	// Delete removes the object stored under key.
	// Returns ErrNotFound if the object does not exist.
	Delete(ctx context.Context, key string) error

	// List walks the entire backend and returns every stored object with
	// its detected metadata. Used for metadata resynchronization; can be
	// expensive on large volumes.
	List(ctx context.Context) ([]ObjectEntry, error)
}

// Service combines the metadata repository and the content storage backend
// into the object operations the request handler dispatches to.
type Service struct {
	repo           MetaDataRepo
	storage        FileStorage
	cleanupTimeout time.Duration
}

// ServiceConfig holds configuration options for Service.
type ServiceConfig struct {
	CleanupTimeout time.Duration // Timeout for cleanup operations (default: 30s)
}

func NewService(repo MetaDataRepo, storage FileStorage, cfg ServiceConfig) (*Service, error) {
	if repo == nil {
		return nil, errors.New("new service: metadata repo is required")
	}
	if storage == nil {
		return nil, errors.New("new service: file storage is required")
	}

	cleanupTimeout := cfg.CleanupTimeout
	if cleanupTimeout <= 0 {
		cleanupTimeout = 30 * time.Second
	}

	return &Service{
		repo:           repo,
		storage:        storage,
		cleanupTimeout: cleanupTimeout,
	}, nil
}

// Put writes content under key, overwriting any existing object, and records
// its metadata. If the metadata upsert fails the stored content is removed
// again so storage and metadata cannot drift apart.
//
// Cleanup runs on a background context with the configured cleanup timeout,
// since the request context may already be cancelled by then.
func (s *Service) Put(ctx context.Context, key string, headers ObjectHeaders, content io.Reader) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, fmt.Errorf("put object: %w", err)
	}

	if !IsValidKey(key) {
		return ObjectInfo{}, fmt.Errorf("put object %q: %w", key, ErrInvalidInput)
	}

	contentType := headers.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	saveResult, writeErr := s.storage.Write(ctx, key, content)
	if writeErr != nil {
		return ObjectInfo{}, fmt.Errorf("put object %s: write failed: %w", key, writeErr)
	}

	entry := ObjectEntry{
		Key:          key,
		Size:         saveResult.BytesWritten,
		ETag:         saveResult.Etag,
		ContentType:  contentType,
		CacheControl: headers.CacheControl,
	}

	info, _, upsertErr := s.repo.Upsert(ctx, entry)
	if upsertErr != nil {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
		defer cancel()

		if delErr := s.storage.Delete(cleanupCtx, key); delErr != nil {
			return ObjectInfo{}, fmt.Errorf("put object %s: metadata upsert failed (%w) and cleanup failed: %w", key, upsertErr, delErr)
		}
		return ObjectInfo{}, fmt.Errorf("put object %s: metadata upsert failed: %w", key, upsertErr)
	}

	return info, nil
}

// Get returns the metadata and content of the object stored under key.
// Returns ErrNotFound when either the metadata entry or the content is
// missing.
func (s *Service) Get(ctx context.Context, key string) (ObjectInfo, io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, nil, fmt.Errorf("get object: %w", err)
	}

	info, err := s.repo.Get(ctx, key)
	if err != nil {
		return ObjectInfo{}, nil, fmt.Errorf("get object: %w", err)
	}

	f, err := s.storage.Get(ctx, info.Key)
	if err != nil {
		return ObjectInfo{}, nil, fmt.Errorf("get object: %w", err)
	}

	return info, f, nil
}

// Delete removes the object stored under key. The operation is idempotent:
// a missing object or metadata entry is not an error, so repeated deletes of
// the same key succeed.
func (s *Service) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}

	if key == "" {
		return fmt.Errorf("delete object: %w: key cannot be empty", ErrInvalidInput)
	}

	if err := s.storage.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}

	if err := s.repo.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}

	return nil
}

// List returns metadata for all objects whose key starts with prefix.
func (s *Service) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	infos, err := s.repo.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	return infos, nil
}

// Sync rebuilds the metadata repository from the storage backend. It lists
// every stored object and upserts its metadata entry, stopping at the first
// error. Used during initial setup or recovery after metadata loss.
//
// Note: this operation is not atomic; a failure partway through leaves the
// already-processed entries in place.
func (s *Service) Sync(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("sync: %w", err)
	}

	entries, listErr := s.storage.List(ctx)
	if listErr != nil {
		return 0, fmt.Errorf("sync: %w", listErr)
	}

	synced := 0
	for _, entry := range entries {
		if _, _, err := s.repo.Upsert(ctx, entry); err != nil {
			return synced, fmt.Errorf("sync '%s': %w", entry.Key, err)
		}
		synced++
	}

	return synced, nil
}
