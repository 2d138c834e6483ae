package document

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	bterrors "github.com/standardbeagle/bracketeer/internal/errors"
)

// Buffer is read access to one consistent snapshot of a text buffer
type Buffer interface {
	Len() int
	CharAt(offset int) (byte, error)
	Text(offset, length int) (string, error)
	LineOfOffset(offset int) (int, error)
	LineOffset(line int) (int, error)
}

// Document is an immutable buffer snapshot with precomputed line starts
type Document struct {
	Path        string
	Content     []byte
	Version     uint64
	FastHash    uint64 // xxhash of Content, used to skip unchanged cycles
	LineOffsets []int  // byte offset of the start of each line
}

// New creates a document snapshot. The content slice is retained.
func New(path string, content []byte, version uint64) *Document {
	return &Document{
		Path:        path,
		Content:     content,
		Version:     version,
		FastHash:    xxhash.Sum64(content),
		LineOffsets: computeLineOffsets(content),
	}
}

// FromString is a convenience for tests and tools
func FromString(s string) *Document {
	return New("", []byte(s), 0)
}

// Extension returns the lower-cased file extension including the dot
func (d *Document) Extension() string {
	return strings.ToLower(filepath.Ext(d.Path))
}

func (d *Document) Len() int {
	return len(d.Content)
}

func (d *Document) CharAt(offset int) (byte, error) {
	if offset < 0 || offset >= len(d.Content) {
		return 0, bterrors.NewLocationError("char lookup", offset, errOutOfRange(len(d.Content)))
	}
	return d.Content[offset], nil
}

func (d *Document) Text(offset, length int) (string, error) {
	if offset < 0 || length < 0 || offset+length > len(d.Content) {
		return "", bterrors.NewLocationError("text lookup", offset, errOutOfRange(len(d.Content)))
	}
	return string(d.Content[offset : offset+length]), nil
}

// LineOfOffset returns the 0-based line containing offset. The end of the
// buffer is a valid offset and belongs to the last line.
func (d *Document) LineOfOffset(offset int) (int, error) {
	if offset < 0 || offset > len(d.Content) {
		return 0, bterrors.NewLocationError("line lookup", offset, errOutOfRange(len(d.Content)))
	}
	// First line start strictly greater than offset, minus one
	line := sort.Search(len(d.LineOffsets), func(i int) bool {
		return d.LineOffsets[i] > offset
	}) - 1
	return line, nil
}

// LineOffset returns the offset of the first byte of a 0-based line
func (d *Document) LineOffset(line int) (int, error) {
	if line < 0 || line >= len(d.LineOffsets) {
		return 0, bterrors.NewLocationError("line offset", line, fmt.Errorf("line %d outside [0,%d)", line, len(d.LineOffsets)))
	}
	return d.LineOffsets[line], nil
}

// LineCount returns the number of lines, counting a trailing empty line
func (d *Document) LineCount() int {
	return len(d.LineOffsets)
}

// Line returns the text of a line without its terminator
func (d *Document) Line(line int) string {
	start, err := d.LineOffset(line)
	if err != nil {
		return ""
	}
	end := len(d.Content)
	if line+1 < len(d.LineOffsets) {
		end = d.LineOffsets[line+1]
	}
	return strings.TrimRight(string(d.Content[start:end]), "\r\n")
}

func errOutOfRange(size int) error {
	return fmt.Errorf("outside buffer of %d bytes", size)
}

// computeLineOffsets records the start of every line, including the empty
// line after a trailing newline.
func computeLineOffsets(content []byte) []int {
	estimatedLines := len(content)/80 + 2
	if estimatedLines > 1000 {
		estimatedLines = 1000
	}

	offsets := make([]int, 1, estimatedLines)
	for i, b := range content {
		if b == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// Store holds the current snapshot of one buffer and hands out immutable
// versions to analysis cycles.
type Store struct {
	mu      sync.RWMutex
	current *Document
}

// NewStore creates a store seeded with content
func NewStore(path string, content []byte) *Store {
	return &Store{current: New(path, content, 1)}
}

// Current returns the latest snapshot
func (s *Store) Current() (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

// Update replaces the content and returns the new snapshot. Identical
// content keeps the existing snapshot.
func (s *Store) Update(content []byte) *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if xxhash.Sum64(content) == s.current.FastHash && len(content) == len(s.current.Content) {
		return s.current
	}
	s.current = New(s.current.Path, content, s.current.Version+1)
	return s.current
}
