package pagehandler

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// ObjectInfo is the metadata record kept for a stored object. The content
// itself lives in FileStorage; this is what the HTTP layer needs to build
// response headers.
type ObjectInfo struct {
	ID           uuid.UUID `json:"id"`
	Key          string    `json:"key"`
	ContentType  string    `json:"content_type"`
	CacheControl string    `json:"cache_control,omitempty"`
	Etag         string    `json:"etag"`
	SizeBytes    int64     `json:"size_bytes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ObjectEntry describes a stored object as reported by a storage walk.
type ObjectEntry struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	CacheControl string
}

// SaveResult reports the outcome of a storage write.
type SaveResult struct {
	BytesWritten int64
	Etag         string
}

// ObjectHeaders carries the HTTP metadata captured from a write request and
// replayed on reads.
type ObjectHeaders struct {
	ContentType  string
	CacheControl string
}

// Tables holds configurable table names for metadata storage.
// This allows multi-tenant deployments to use different table names.
type Tables struct {
	Objects string `mapstructure:"objects"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Objects == "" {
		return errors.New("validate tables: objects table name cannot be empty")
	}

	if !IsValidTableName(t.Objects) {
		return fmt.Errorf("validate tables: invalid objects table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.Objects)
	}

	return nil
}
