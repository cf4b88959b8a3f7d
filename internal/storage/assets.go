package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ThumbnailsDirName is the Asset Store subdirectory for generated stills.
const ThumbnailsDirName = "thumbnails"

// Store is the filesystem directory holding uploaded videos at its top level
// and generated thumbnails under ThumbnailsDirName.
type Store struct {
	root string
	now  func() time.Time
}

// Asset describes one file found in the store.
type Asset struct {
	Name      string
	Path      string
	Size      int64
	ModTime   time.Time
	Thumbnail bool
}

// New creates the store directories if they do not exist yet.
func New(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve asset root: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(abs, ThumbnailsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create asset directories: %w", err)
	}
	return &Store{root: abs, now: time.Now}, nil
}

// Root returns the absolute store directory.
func (s *Store) Root() string { return s.root }

// ThumbnailsDir returns the absolute thumbnails directory.
func (s *Store) ThumbnailsDir() string { return filepath.Join(s.root, ThumbnailsDirName) }

// Path returns the absolute path of a top-level asset.
func (s *Store) Path(name string) string { return filepath.Join(s.root, filepath.Base(name)) }

// ThumbnailPath returns the absolute path of a thumbnail.
func (s *Store) ThumbnailPath(name string) string {
	return filepath.Join(s.ThumbnailsDir(), filepath.Base(name))
}

// GenerateName returns a collision-resistant file name built from the current
// time, a random suffix and the lower-cased extension of the original name.
func (s *Store) GenerateName(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	return fmt.Sprintf("%d-%09d%s", s.now().UnixMilli(), uuid.New().ID()%1_000_000_000, ext)
}

// Save streams src into the store under a generated name. The data is written
// to a hidden temp file in the same directory and renamed into place, so a
// partially written asset is never visible under its final name.
func (s *Store) Save(src io.Reader, original string) (string, error) {
	name := s.GenerateName(original)

	tmp, err := os.CreateTemp(s.root, "."+name+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, src); err != nil {
		return "", fmt.Errorf("write asset: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return "", fmt.Errorf("chmod asset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close asset: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(name)); err != nil {
		return "", fmt.Errorf("move asset into place: %w", err)
	}
	return name, nil
}

// Remove deletes a top-level asset. A missing file is not an error; removed
// reports whether a file was actually deleted.
func (s *Store) Remove(name string) (removed bool, err error) {
	return removeFile(s.Path(name))
}

// RemoveThumbnail deletes a thumbnail, tolerating its absence.
func (s *Store) RemoveThumbnail(name string) (removed bool, err error) {
	return removeFile(s.ThumbnailPath(name))
}

// List returns every regular file in the store and its thumbnails directory,
// including hidden temp files.
func (s *Store) List() ([]Asset, error) {
	assets, err := listDir(s.root, false)
	if err != nil {
		return nil, err
	}
	thumbs, err := listDir(s.ThumbnailsDir(), true)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return append(assets, thumbs...), nil
}

func listDir(dir string, thumbnails bool) ([]Asset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var out []Asset
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		out = append(out, Asset{
			Name:      entry.Name(),
			Path:      filepath.Join(dir, entry.Name()),
			Size:      info.Size(),
			ModTime:   info.ModTime(),
			Thumbnail: thumbnails,
		})
	}
	return out, nil
}

func removeFile(path string) (bool, error) {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
