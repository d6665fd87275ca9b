// Package source reads score record files and converts them into records,
// rejecting rows that cannot be analyzed.
package source

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"sync"
)

// ErrFileTooLarge is returned for record files over the size limit.
var ErrFileTooLarge = errors.New("record file too large")

// ContentSource provides the raw bytes of record files.
type ContentSource interface {
	// Read returns the content of the file at path.
	Read(path string) ([]byte, error)
}

// FilesystemSource reads record files from disk.
type FilesystemSource struct {
	maxBytes int64
}

// NewFilesystem creates a source that reads from disk and rejects files
// over maxBytes. A maxBytes of 0 or less means no limit.
func NewFilesystem(maxBytes int64) *FilesystemSource {
	return &FilesystemSource{maxBytes: maxBytes}
}

// Read implements ContentSource.
func (f *FilesystemSource) Read(path string) ([]byte, error) {
	if f.maxBytes <= 0 {
		return os.ReadFile(path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	// The file may grow after Stat; read one byte past the limit to tell.
	data, err := io.ReadAll(io.LimitReader(file, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrFileTooLarge, path, f.maxBytes)
	}
	return data, nil
}

// MemorySource serves record files held in memory.
// It is safe for concurrent use by multiple goroutines.
type MemorySource struct {
	files map[string][]byte
	mu    sync.RWMutex
}

// NewMemory creates a source holding the given files.
func NewMemory(files map[string][]byte) *MemorySource {
	m := &MemorySource{files: make(map[string][]byte, len(files))}
	for path, content := range files {
		m.files[path] = content
	}
	return m
}

// Put stores or replaces a file.
func (m *MemorySource) Put(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = content
}

// Paths returns every stored path, sorted.
func (m *MemorySource) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Read implements ContentSource.
func (m *MemorySource) Read(path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", path, fs.ErrNotExist)
	}
	return content, nil
}
