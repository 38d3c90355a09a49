// Package cache maps model ids to on-disk artifact directories.
//
// The final directory for an id only ever holds validated artifacts; downloads land in a
// staging area under <root>/.incoming and are committed with a rename.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"chatd/internal/common/fsutil"
)

const stagingDir = ".incoming"

// ErrInvalidID is returned for ids that cannot be mapped safely below the cache root.
var ErrInvalidID = errors.New("invalid model id for cache path")

// Store is a directory-backed artifact cache.
type Store struct {
	root string
}

// New creates the root directory if needed and returns a store rooted at it.
func New(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("cache root is empty")
	}
	p, err := fsutil.ExpandHome(root)
	if err != nil {
		return nil, err
	}
	if p, err = filepath.Abs(p); err != nil {
		return nil, fmt.Errorf("resolve cache root: %w", err)
	}
	if err := os.MkdirAll(p, 0o755); err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}
	return &Store{root: p}, nil
}

// Root returns the absolute cache root.
func (s *Store) Root() string { return s.root }

func checkID(id string) error {
	if id == "" || strings.HasPrefix(id, "/") || strings.HasPrefix(id, ".") || strings.Contains(id, "\\") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	if path.Clean(id) != id {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	for _, seg := range strings.Split(id, "/") {
		if seg == ".." || seg == "." || seg == "" {
			return fmt.Errorf("%w: %q", ErrInvalidID, id)
		}
	}
	return nil
}

// Path returns <root>/<id>; "/" in the id becomes nested directories.
func (s *Store) Path(id string) (string, error) {
	if err := checkID(id); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(id)), nil
}

// Exists reports whether the id's directory exists and is non-empty.
func (s *Store) Exists(id string) bool {
	p, err := s.Path(id)
	if err != nil {
		return false
	}
	return fsutil.DirNonEmpty(p)
}

// Size returns the total bytes stored for id.
func (s *Store) Size(id string) (int64, error) {
	p, err := s.Path(id)
	if err != nil {
		return 0, err
	}
	return fsutil.DirSize(p)
}

// Remove deletes the id's directory and any parents left empty, stopping at the root.
// Removing an absent entry is not an error.
func (s *Store) Remove(id string) error {
	p, err := s.Path(id)
	if err != nil {
		return err
	}
	return s.removeTree(p, s.root)
}

// Staging returns the directory downloads for id are written to before commit.
func (s *Store) Staging(id string) (string, error) {
	if err := checkID(id); err != nil {
		return "", err
	}
	return filepath.Join(s.root, stagingDir, filepath.FromSlash(id)), nil
}

// Discard deletes any staged data for id.
func (s *Store) Discard(id string) error {
	p, err := s.Staging(id)
	if err != nil {
		return err
	}
	return s.removeTree(p, filepath.Join(s.root, stagingDir))
}

// Commit moves staged artifacts into the final location, replacing whatever was there.
func (s *Store) Commit(id string) error {
	src, err := s.Staging(id)
	if err != nil {
		return err
	}
	dst, _ := s.Path(id)
	if !fsutil.DirNonEmpty(src) {
		return fmt.Errorf("commit %s: nothing staged", id)
	}
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("commit %s: clear target: %w", id, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("commit %s: %w", id, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("commit %s: %w", id, err)
	}
	pruneEmptyParents(filepath.Dir(src), filepath.Join(s.root, stagingDir))
	return nil
}

func (s *Store) removeTree(p, stop string) error {
	if err := os.RemoveAll(p); err != nil {
		return fmt.Errorf("remove %s: %w", p, err)
	}
	pruneEmptyParents(filepath.Dir(p), stop)
	return nil
}

// pruneEmptyParents walks up from dir removing empty directories until stop (exclusive).
func pruneEmptyParents(dir, stop string) {
	for {
		rel, err := filepath.Rel(stop, dir)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			return
		}
		if os.Remove(dir) != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
