package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// File is a single source file registered with the Manager.
type File struct {
	// Path is the full (absolute) path used in reported locations.
	Path string
	// Name is the path the file was requested as (e.g. the include spelling).
	Name string
	// Contents is the raw file text.
	Contents []byte

	lineOffsets []int
}

// Manager owns every file that participates in a translation unit and maps
// (file, offset) pairs to printable locations.
type Manager struct {
	files  []*File
	byPath map[string]*File
}

func NewManager() *Manager {
	return &Manager{byPath: make(map[string]*File)}
}

// Open reads and registers a file, returning the existing entry if the same
// path was opened before.
func (m *Manager) Open(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if f, ok := m.byPath[abs]; ok {
		return f, nil
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f := &File{Path: abs, Name: path, Contents: contents}
	f.buildLineOffsets()
	m.files = append(m.files, f)
	m.byPath[abs] = f
	return f, nil
}

// AddVirtual registers an in-memory file, used for predefined macro buffers
// and tests.
func (m *Manager) AddVirtual(path string, contents []byte) *File {
	f := &File{Path: path, Name: path, Contents: contents}
	f.buildLineOffsets()
	m.files = append(m.files, f)
	if path != "" {
		m.byPath[path] = f
	}
	return f
}

// Files returns every registered file in registration order.
func (m *Manager) Files() []*File { return m.files }

func (f *File) buildLineOffsets() {
	f.lineOffsets = []int{0}
	for i, b := range f.Contents {
		if b == '\n' {
			f.lineOffsets = append(f.lineOffsets, i+1)
		}
	}
}

// LineCol converts a byte offset into a 1-based line and column.
func (f *File) LineCol(off int) (line, col int) {
	i := sort.Search(len(f.lineOffsets), func(i int) bool {
		return f.lineOffsets[i] > off
	}) - 1
	if i < 0 {
		i = 0
	}
	return i + 1, off - f.lineOffsets[i] + 1
}

// Location failure texts. Each names the first check that failed while
// resolving a location, and is reported in place of the location itself.
const (
	ErrInvalidSLoc     = "Invalid SLoc"
	ErrInvalidFileID   = "Invalid file ID"
	ErrNoFileEntry     = "File without FileEntry"
	ErrNamelessFile    = "Nameless file"
	ErrInvalidFileSLoc = "Invalid File SLoc"
)

// FullLoc renders a (file, offset) pair as "path:line:col". On failure the
// returned string is one of the categorical error texts and ok is false.
func FullLoc(f *File, off int) (loc string, ok bool) {
	if off < 0 {
		return ErrInvalidSLoc, false
	}
	if f == nil {
		return ErrInvalidFileID, false
	}
	if f.Contents == nil {
		return ErrNoFileEntry, false
	}
	if f.Path == "" {
		return ErrNamelessFile, false
	}
	if off > len(f.Contents) {
		return ErrInvalidFileSLoc, false
	}
	line, col := f.LineCol(off)
	return fmt.Sprintf("%s:%d:%d", f.Path, line, col), true
}
