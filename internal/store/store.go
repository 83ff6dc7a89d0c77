// Package store abstracts read-only access to user state files.
// The pipeline never writes through this interface; persistence is
// owned by the app's storage layer (local files today, buckets later).
package store

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Store provides read-only, profile-keyed file access.
type Store interface {
	// ReadFile reads a file relative to the profile's state directory.
	ReadFile(profileID, rel string) ([]byte, error)

	// ListDir lists file names (not directories) in a directory relative
	// to the profile's state directory, sorted ascending.
	ListDir(profileID, rel string) ([]string, error)

	// ListDirs lists subdirectory names in a directory relative to the
	// profile's state directory, sorted ascending.
	ListDirs(profileID, rel string) ([]string, error)

	// ReadShared reads a file relative to the shared data root.
	ReadShared(rel string) ([]byte, error)
}

// IsNotFound reports whether err means the file or directory is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// Local is a Store backed by a local data directory with the layout
// <root>/profiles/<id>/... for profile state and <root>/... for shared files.
type Local struct {
	root string
}

// NewLocal creates a local store rooted at dir.
func NewLocal(dir string) *Local {
	return &Local{root: dir}
}

func (l *Local) profilePath(profileID, rel string) string {
	return filepath.Join(l.root, "profiles", profileID, filepath.FromSlash(rel))
}

// ReadFile reads a profile state file.
func (l *Local) ReadFile(profileID, rel string) ([]byte, error) {
	return os.ReadFile(l.profilePath(profileID, rel))
}

// ListDir lists files in a profile state directory, sorted by name.
func (l *Local) ListDir(profileID, rel string) ([]string, error) {
	entries, err := os.ReadDir(l.profilePath(profileID, rel))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ListDirs lists subdirectories in a profile state directory, sorted by name.
func (l *Local) ListDirs(profileID, rel string) ([]string, error) {
	entries, err := os.ReadDir(l.profilePath(profileID, rel))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ReadShared reads a file under the shared data root.
func (l *Local) ReadShared(rel string) ([]byte, error) {
	return os.ReadFile(filepath.Join(l.root, filepath.FromSlash(rel)))
}
