package mock

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

type MockFile struct {
	Data    []byte
	Mode    os.FileMode
	ModTime time.Time
	Dir     bool
}

type mockFileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
	dir     bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() os.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.dir }
func (m *mockFileInfo) Sys() interface{}   { return nil }

// MockFileSystem implements the FileSystem interface for testing. Writes
// are stamped with the mock clock, so tests control the relative age of
// every file and the staleness logic becomes fully deterministic.
type MockFileSystem struct {
	Files map[string]*MockFile
	Clock time.Time
}

func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		Files: make(map[string]*MockFile),
		Clock: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Advance moves the mock clock forward. Subsequent writes and touches
// get the new time.
func (m *MockFileSystem) Advance(d time.Duration) {
	m.Clock = m.Clock.Add(d)
}

// AddFile creates a file stamped with the current mock clock.
func (m *MockFileSystem) AddFile(path string, data []byte) {
	m.Files[path] = &MockFile{Data: data, Mode: 0644, ModTime: m.Clock}
}

// AddDir creates a directory entry stamped with the current mock clock.
func (m *MockFileSystem) AddDir(path string) {
	m.Files[path] = &MockFile{Mode: os.ModeDir | 0755, ModTime: m.Clock, Dir: true}
}

// Touch updates a file's mod time to the current mock clock.
func (m *MockFileSystem) Touch(path string) {
	if f, ok := m.Files[path]; ok {
		f.ModTime = m.Clock
	}
}

func (m *MockFileSystem) ReadFile(filename string) ([]byte, error) {
	if f, ok := m.Files[filename]; ok && !f.Dir {
		return f.Data, nil
	}
	return nil, &os.PathError{Op: "open", Path: filename, Err: os.ErrNotExist}
}

func (m *MockFileSystem) WriteFile(filename string, data []byte, perm os.FileMode) error {
	m.Files[filename] = &MockFile{Data: data, Mode: perm, ModTime: m.Clock}
	return nil
}

func (m *MockFileSystem) Stat(name string) (os.FileInfo, error) {
	f, ok := m.Files[name]
	if !ok {
		return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrNotExist}
	}
	return &mockFileInfo{
		name:    filepath.Base(name),
		size:    int64(len(f.Data)),
		mode:    f.Mode,
		modTime: f.ModTime,
		dir:     f.Dir,
	}, nil
}

func (m *MockFileSystem) Remove(name string) error {
	if _, ok := m.Files[name]; !ok {
		return &os.PathError{Op: "remove", Path: name, Err: os.ErrNotExist}
	}
	delete(m.Files, name)
	return nil
}

func (m *MockFileSystem) Rename(oldpath, newpath string) error {
	f, ok := m.Files[oldpath]
	if !ok {
		return &os.PathError{Op: "rename", Path: oldpath, Err: os.ErrNotExist}
	}
	m.Files[newpath] = f
	delete(m.Files, oldpath)
	return nil
}

func (m *MockFileSystem) DoublestarGlob(pattern string) ([]string, error) {
	var matches []string
	for filename := range m.Files {
		matched, err := doublestar.Match(pattern, filename)
		if err != nil {
			return nil, err
		}
		if matched {
			matches = append(matches, filename)
		}
	}
	sort.Strings(matches)
	return matches, nil
}
