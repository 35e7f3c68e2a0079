package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"metrolog/internal/config"
	apierrors "metrolog/internal/errors"
)

// Backend names.
const (
	BackendFile = "file"
	BackendS3   = "s3"
)

// Info describes a stored snapshot.
type Info struct {
	Key        string    `json:"key"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Store persists snapshot documents under flat keys.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	// Get returns a NotFoundError when key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns snapshots newest first.
	List(ctx context.Context) ([]Info, error)
	Delete(ctx context.Context, key string) error
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateKey rejects keys that could escape the store namespace.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) || strings.Contains(key, "..") {
		return apierrors.NewValidationError("key", fmt.Sprintf("invalid snapshot key %q", key), key)
	}
	return nil
}

// NewKey names a registry snapshot taken at t. An optional label is
// sanitised into the key.
func NewKey(t time.Time, label string) string {
	key := "registry-" + t.UTC().Format("20060102T150405.000Z")
	if label = sanitize(label); label != "" {
		key += "-" + label
	}
	return key + ".json"
}

func sanitize(label string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(label) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteByte('_')
		}
	}
	s := b.String()
	if len(s) > 48 {
		s = s[:48]
	}
	return s
}

func sortNewestFirst(infos []Info) {
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].ModifiedAt.Equal(infos[j].ModifiedAt) {
			return infos[i].ModifiedAt.After(infos[j].ModifiedAt)
		}
		return infos[i].Key > infos[j].Key
	})
}

// Open builds the store selected by cfg.
func Open(ctx context.Context, cfg config.SnapshotConfig, logger *slog.Logger) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendFile:
		return NewFileStore(cfg.Dir, logger)
	case BackendS3:
		return NewS3Store(ctx, S3Options{
			Bucket:   cfg.Bucket,
			Prefix:   cfg.Prefix,
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Backend)
	}
}
