package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/bracketeer/internal/config"
	"github.com/standardbeagle/bracketeer/internal/parser"
)

// Filter decides which files under a root are analyzed. Patterns are
// doublestar globs matched against slash-separated paths relative to the
// root.
type Filter struct {
	root    string
	include []string
	exclude []string
}

// NewFilter creates a filter for root from the watch settings
func NewFilter(cfg config.Watch, root string) *Filter {
	return &Filter{
		root:    root,
		include: append([]string(nil), cfg.Include...),
		exclude: append([]string(nil), cfg.Exclude...),
	}
}

// relative returns path relative to the root with forward slashes
func (f *Filter) relative(path string) string {
	rel, err := filepath.Rel(f.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// IgnoreDirectory reports whether a directory matches an exclude pattern
func (f *Filter) IgnoreDirectory(path string) bool {
	rel := f.relative(path)
	for _, pattern := range f.exclude {
		dirPattern := strings.TrimSuffix(pattern, "/**")
		if ok, _ := doublestar.Match(dirPattern, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// Matches reports whether a file should be analyzed: not excluded, and
// either matching an include pattern or, without include patterns, written
// in a supported language
func (f *Filter) Matches(path string) bool {
	rel := f.relative(path)
	for _, pattern := range f.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
	}
	if len(f.include) == 0 {
		return parser.GetLanguageFromExtension(filepath.Ext(path)) != ""
	}
	for _, pattern := range f.include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// Walk visits every directory under the root that is not excluded and every
// matching file inside them. Symlinked directories are followed once.
func (f *Filter) Walk(onDir, onFile func(path string)) error {
	visited := make(map[string]bool)

	return filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		if !d.IsDir() {
			if onFile != nil && f.Matches(path) {
				onFile(path)
			}
			return nil
		}

		resolved, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if visited[resolved] {
			return filepath.SkipDir
		}
		visited[resolved] = true

		if path != f.root && f.IgnoreDirectory(path) {
			return filepath.SkipDir
		}
		if onDir != nil {
			onDir(path)
		}
		return nil
	})
}

// Collect expands paths into the files to analyze. Files named directly are
// always kept; directories are walked through a Filter. The result is
// sorted and free of duplicates.
func Collect(cfg config.Watch, paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if !info.IsDir() {
			add(filepath.Clean(p))
			continue
		}
		if err := NewFilter(cfg, filepath.Clean(p)).Walk(nil, add); err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
	}

	sort.Strings(files)
	return files, nil
}
