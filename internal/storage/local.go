package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// ErrNotFound is returned for keys without a stored report.
var ErrNotFound = errors.New("report not found")

// sidecar is written next to each report. Size and checksum are taken when
// the report is written, so listings do not rehash every file.
type sidecar struct {
	Size     int64     `json:"size"`
	Checksum string    `json:"checksum"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// LocalStorage implements Storage on the local filesystem.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates the report directory under basePath if needed.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	root := filepath.Join(basePath, rootDir)
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory %s: %w", root, err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Put writes the report and its sidecar. Both are written to a temporary
// file first so readers never see a partial report.
func (s *LocalStorage) Put(ctx context.Context, key Key, content []byte, metadata *Metadata) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	meta, err := json.Marshal(sidecar{
		Size:     int64(len(content)),
		Checksum: ComputeChecksum(content),
		Metadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := writeFileAtomic(path, content); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := writeFileAtomic(path+metaSuffix, meta); err != nil {
		return fmt.Errorf("failed to write metadata for %s: %w", key, err)
	}
	return nil
}

// Get returns the report content.
func (s *LocalStorage) Get(ctx context.Context, key Key) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return content, nil
}

// GetInfo returns report information from its sidecar. Reports written
// without one are hashed on read.
func (s *LocalStorage) GetInfo(ctx context.Context, key Key) (*FileInfo, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	path := s.path(key)
	stat, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", key, err)
	}

	info := &FileInfo{Key: key.String(), Size: stat.Size(), ModifiedAt: stat.ModTime()}

	var sc sidecar
	if raw, err := os.ReadFile(path + metaSuffix); err == nil && json.Unmarshal(raw, &sc) == nil && sc.Checksum != "" {
		info.Checksum = sc.Checksum
		info.Metadata = sc.Metadata
		return info, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	info.Checksum = ComputeChecksum(content)
	return info, nil
}

// List returns the reports matching f, newest first by report time.
func (s *LocalStorage) List(ctx context.Context, f Filter) ([]FileInfo, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.basePath, rootDir)
	if f.Store != "" {
		dir = filepath.Join(dir, f.Store)
		if f.Source != "" {
			dir = filepath.Join(dir, f.Source)
		}
	}
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return []FileInfo{}, nil
	}

	infos := []FileInfo{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}
		key, err := ParseKey(filepath.ToSlash(rel))
		if err != nil || !f.matches(key) {
			// Sidecars, temporary files and stray files.
			return nil
		}
		info, err := s.GetInfo(ctx, key)
		if err != nil {
			return err
		}
		infos = append(infos, *info)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	sort.SliceStable(infos, func(i, j int) bool {
		ti, tj := infos[i].createdAt(), infos[j].createdAt()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return infos[i].Key > infos[j].Key
	})
	return infos, nil
}

// path maps a validated key to its file. Keys cannot contain separators or
// dot segments, so the result stays under the base path.
func (s *LocalStorage) path(key Key) string {
	return filepath.Join(s.basePath, rootDir, key.Store, key.Source, key.Name)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ComputeChecksum returns the hex SHA-256 of content.
func ComputeChecksum(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

var _ Storage = (*LocalStorage)(nil)
