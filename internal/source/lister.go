package source

import (
	"os"
	"path/filepath"
	"time"
)

// FileInfo is the minimal file metadata CSV discovery needs.
type FileInfo struct {
	Path    string
	ModTime time.Time
}

// FileLister abstracts directory listing so discovery can be driven by a
// fake in tests.
type FileLister interface {
	// List returns files in dir whose base name matches the glob pattern.
	// A missing directory is not an error; it returns no files.
	List(dir, pattern string) ([]FileInfo, error)
}

// osLister lists files from the real filesystem.
type osLister struct{}

func (osLister) List(dir, pattern string) ([]FileInfo, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}

	var files []FileInfo
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, FileInfo{Path: m, ModTime: info.ModTime()})
	}
	return files, nil
}
