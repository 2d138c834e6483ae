// Package security guards the files handed to analysis: paths must stay
// under a root, and oversized or binary files are refused before they are
// read in full.
package security

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMaxSize is the largest source file accepted
const DefaultMaxSize = 4 << 20

// HeaderSize is how much of a file is inspected before loading it
const HeaderSize = 8 * 1024

var (
	ErrOutsideRoot = errors.New("path escapes the project root")
	ErrTooLarge    = errors.New("file too large")
	ErrBinary      = errors.New("file appears to be binary")
)

// signatures of formats that are never source text
var signatures = []struct {
	format string
	magic  []byte
}{
	{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	{"jpeg", []byte{0xFF, 0xD8, 0xFF}},
	{"gif", []byte("GIF8")},
	{"pdf", []byte("%PDF-")},
	{"zip", []byte{0x50, 0x4B, 0x03, 0x04}},
	{"gzip", []byte{0x1F, 0x8B}},
	{"elf", []byte{0x7F, 0x45, 0x4C, 0x46}},
	{"mach-o", []byte{0xCF, 0xFA, 0xED, 0xFE}},
	{"wasm", []byte{0x00, 0x61, 0x73, 0x6D}},
}

// Guard validates paths and contents before analysis. A zero Root allows
// any path; a zero MaxSize uses DefaultMaxSize.
type Guard struct {
	Root    string
	MaxSize int64
}

// NewGuard creates a guard confining paths to root
func NewGuard(root string) (*Guard, error) {
	if root == "" {
		return &Guard{}, nil
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}
	return &Guard{Root: abs}, nil
}

func (g *Guard) maxSize() int64 {
	if g == nil || g.MaxSize <= 0 {
		return DefaultMaxSize
	}
	return g.MaxSize
}

// Resolve makes path absolute, relative paths being taken from the root,
// and rejects paths that leave the root
func (g *Guard) Resolve(path string) (string, error) {
	if g == nil || g.Root == "" {
		return filepath.Abs(path)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(g.Root, path)
	}
	path = filepath.Clean(path)

	rel, err := filepath.Rel(g.Root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", path, ErrOutsideRoot)
	}
	return path, nil
}

// ReadFile resolves path and loads it once its size and header pass
func (g *Guard) ReadFile(path string) (string, []byte, error) {
	resolved, err := g.Resolve(path)
	if err != nil {
		return "", nil, err
	}

	f, err := os.Open(resolved)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read %s: %w", resolved, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", nil, fmt.Errorf("failed to stat %s: %w", resolved, err)
	}
	if info.IsDir() {
		return "", nil, fmt.Errorf("failed to read %s: is a directory", resolved)
	}
	if info.Size() > g.maxSize() {
		return "", nil, fmt.Errorf("%s (%d bytes, limit %d): %w", resolved, info.Size(), g.maxSize(), ErrTooLarge)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read %s: %w", resolved, err)
	}
	if err := CheckContent(content); err != nil {
		return "", nil, fmt.Errorf("%s: %w", resolved, err)
	}
	return resolved, content, nil
}

// CheckContent rejects content whose header is a known binary format or
// mostly control characters
func CheckContent(content []byte) error {
	header := content
	if len(header) > HeaderSize {
		header = header[:HeaderSize]
	}
	for _, sig := range signatures {
		if bytes.HasPrefix(header, sig.magic) {
			return fmt.Errorf("%w (%s signature)", ErrBinary, sig.format)
		}
	}
	if isBinaryData(header) {
		return ErrBinary
	}
	return nil
}

// isBinaryData reports a NUL byte or more than 30% control characters
func isBinaryData(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return true
	}

	nonPrintable := 0
	for _, b := range data {
		// control characters other than tab, LF, VT, FF and CR
		if b < 9 || (b > 13 && b < 32) || b == 127 {
			nonPrintable++
		}
	}
	return float64(nonPrintable)/float64(len(data)) > 0.3
}
