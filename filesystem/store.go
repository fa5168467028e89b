// Package filesystem provides a file system storage backend keyed by storage
// key. It supports atomic writes using temp files, SHA256-based etags, and
// content type detection based on file extensions.
package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	pagehandler "github.com/sjaconsulting/static-page-handler"
)

// Store provides file system storage operations. Storage keys map directly
// to file paths under the sandboxed root.
type Store struct {
	root *os.Root
}

// NewFileStorage creates a new Store with the given root directory.
// The root provides sandboxed file operations preventing path traversal.
func NewFileStorage(root *os.Root) *Store {
	return &Store{root: root}
}

// Get opens the object stored under key for reading.
// Returns pagehandler.ErrNotFound if the object does not exist.
func (s *Store) Get(ctx context.Context, key string) (io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.root.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, pagehandler.ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return f, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Write atomically stores content under key using a temp file and rename.
// It creates intermediate directories as needed and returns a SaveResult
// containing the number of bytes written and a SHA256-based etag. The
// operation respects context cancellation.
func (s *Store) Write(ctx context.Context, key string, content io.Reader) (pagehandler.SaveResult, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return pagehandler.SaveResult{}, ctxErr
	}

	tmpFile := tmpFileName()
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return pagehandler.SaveResult{}, fmt.Errorf("could not open temp file: %w", createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(t.Name()); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	h := sha256.New()
	w := io.MultiWriter(h, t)

	sizeBytes, err := io.Copy(w, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return pagehandler.SaveResult{}, fmt.Errorf("could not copy file contents: %w", err)
	}

	err = t.Sync()
	if err != nil {
		return pagehandler.SaveResult{}, fmt.Errorf("could not sync written file: %w", err)
	}

	destDir := filepath.Dir(key)
	if destDir != "." {
		if err := s.root.MkdirAll(destDir, 0o755); err != nil {
			return pagehandler.SaveResult{}, fmt.Errorf("could not create intermediate directories: %w", err)
		}
	}

	if renameErr := s.root.Rename(tmpFile, key); renameErr != nil {
		return pagehandler.SaveResult{}, fmt.Errorf("failed to rename file: %w", renameErr)
	}

	etag := hex.EncodeToString(h.Sum(nil))
	success = true

	return pagehandler.SaveResult{BytesWritten: sizeBytes, Etag: etag}, nil
}

// Delete removes the object stored under key.
// Returns pagehandler.ErrNotFound if the object does not exist.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.root.Remove(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return pagehandler.ErrNotFound
		}
		return fmt.Errorf("could not delete file: %w", err)
	}
	return nil
}

// List recursively walks the root directory and returns all objects with
// their metadata including key, size, SHA256-based etag, and detected
// content type. This is intended for metadata resynchronization.
func (s *Store) List(ctx context.Context) ([]pagehandler.ObjectEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []pagehandler.ObjectEntry

	err := s.walkDir(ctx, ".", &entries)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return entries, nil
}

func (s *Store) walkDir(ctx context.Context, dir string, entries *[]pagehandler.ObjectEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dirEntries, err := fs.ReadDir(s.root.FS(), dir)
	if err != nil {
		return err
	}

	for _, entry := range dirEntries {
		if err := ctx.Err(); err != nil {
			return err
		}

		entryPath := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			if err := s.walkDir(ctx, entryPath, entries); err != nil {
				return err
			}
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("walk dir: %w", err)
		}

		f, err := s.root.Open(entryPath)
		if err != nil {
			return fmt.Errorf("walk dir: %w", err)
		}

		h := sha256.New()
		_, copyErr := io.Copy(h, f)

		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("failed to close file", "key", entryPath, "err", closeErr)
		}

		if copyErr != nil {
			return fmt.Errorf("walk dir: %w", copyErr)
		}

		etag := hex.EncodeToString(h.Sum(nil))
		contentType := detectContentType(entryPath)

		*entries = append(*entries, pagehandler.ObjectEntry{
			Key:         entryPath,
			Size:        info.Size(),
			ETag:        etag,
			ContentType: contentType,
		})
	}

	return nil
}

func detectContentType(key string) string {
	ext := filepath.Ext(key)
	contentType := mime.TypeByExtension(ext)

	if contentType == "" {
		return "application/octet-stream"
	}

	return contentType
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}
