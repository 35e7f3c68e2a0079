package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	apierrors "metrolog/internal/errors"
)

// FileStore keeps snapshots as files in one directory.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

// NewFileStore creates dir when needed.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("snapshot directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		dir:    dir,
		logger: logger.With(slog.String("component", "snapshot.file")),
	}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key)
}

// Put writes data to a temporary file and renames it over key.
func (s *FileStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return apierrors.NewStorageError("put", key, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apierrors.NewStorageError("put", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return apierrors.NewStorageError("put", key, err)
	}
	if err := tmp.Close(); err != nil {
		return apierrors.NewStorageError("put", key, err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		return apierrors.NewStorageError("put", key, err)
	}

	s.logger.Info("snapshot stored", slog.String("key", key), slog.Int("bytes", len(data)))
	return nil
}

// Get reads one snapshot.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apierrors.NewNotFoundError("snapshot", key)
	}
	if err != nil {
		return nil, apierrors.NewStorageError("get", key, err)
	}
	return data, nil
}

// List returns every snapshot in the directory.
func (s *FileStore) List(ctx context.Context) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, apierrors.NewStorageError("list", s.dir, err)
	}

	infos := []Info{}
	for _, e := range entries {
		if e.IsDir() || ValidateKey(e.Name()) != nil {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		infos = append(infos, Info{Key: e.Name(), Size: fi.Size(), ModifiedAt: fi.ModTime()})
	}
	sortNewestFirst(infos)
	return infos, nil
}

// Delete removes one snapshot.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return apierrors.NewNotFoundError("snapshot", key)
	}
	if err != nil {
		return apierrors.NewStorageError("delete", key, err)
	}
	s.logger.Info("snapshot deleted", slog.String("key", key))
	return nil
}
