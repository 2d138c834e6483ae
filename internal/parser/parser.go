package parser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/bracketeer/internal/debug"
	bterrors "github.com/standardbeagle/bracketeer/internal/errors"
	"github.com/standardbeagle/bracketeer/internal/syntax"
)

// Language represents the programming language for parser selection
type Language string

const (
	LanguageGo         Language = "go"
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageRust       Language = "rust"
	LanguageJava       Language = "java"
	LanguageCpp        Language = "cpp"
	LanguageCSharp     Language = "csharp"
	LanguageZig        Language = "zig"
	LanguagePHP        Language = "php"
)

// languageSpec is one loaded grammar. tree-sitter parsers are not safe for
// concurrent use, so each language keeps a pool of them.
type languageSpec struct {
	name     Language
	language *tree_sitter.Language
	kinds    *kindTable
	pool     sync.Pool
}

func (s *languageSpec) getParser() *tree_sitter.Parser {
	ps, _ := s.pool.Get().(*tree_sitter.Parser)
	return ps
}

// TreeSitterParser converts buffer snapshots into syntax trees
type TreeSitterParser struct {
	parserMutex sync.RWMutex        // Protects lazy initialization
	lazyInit    map[string]func()   // Language initialization functions
	initialized map[string]bool     // Track which extensions are initialized
	langGroups  map[string][]string // Language group mapping for bulk initialization
	languages   map[string]*languageSpec
}

// NewTreeSitterParser registers every grammar; each loads on first use
func NewTreeSitterParser() *TreeSitterParser {
	p := &TreeSitterParser{
		lazyInit:    make(map[string]func()),
		initialized: make(map[string]bool),
		langGroups:  make(map[string][]string),
		languages:   make(map[string]*languageSpec),
	}

	p.registerLazyInit([]string{".js", ".jsx", ".mjs"}, p.setupJavaScript, "javascript")
	p.registerLazyInit([]string{".ts", ".tsx"}, p.setupTypeScript, "typescript")
	p.registerLazyInit([]string{".go"}, p.setupGo, "go")
	p.registerLazyInit([]string{".py"}, p.setupPython, "python")
	p.registerLazyInit([]string{".rs"}, p.setupRust, "rust")
	p.registerLazyInit([]string{".java"}, p.setupJava, "java")
	p.registerLazyInit([]string{".cpp", ".cc", ".cxx", ".c", ".h", ".hpp"}, p.setupCpp, "cpp")
	p.registerLazyInit([]string{".cs"}, p.setupCSharp, "csharp")
	p.registerLazyInit([]string{".zig"}, p.setupZig, "zig")
	p.registerLazyInit([]string{".php", ".phtml"}, p.setupPHP, "php")

	return p
}

var (
	sharedParser     *TreeSitterParser
	sharedParserOnce sync.Once
)

// GetSharedParser returns the process-wide parser. It is safe for
// concurrent use.
func GetSharedParser() *TreeSitterParser {
	sharedParserOnce.Do(func() {
		sharedParser = NewTreeSitterParser()
	})
	return sharedParser
}

// registerLazyInit registers a lazy initialization function for multiple extensions
func (p *TreeSitterParser) registerLazyInit(extensions []string, initFunc func(), langGroup string) {
	for _, ext := range extensions {
		p.lazyInit[ext] = initFunc
	}
	p.langGroups[langGroup] = extensions
}

// ensureParserInitialized loads the grammar for ext on first use
func (p *TreeSitterParser) ensureParserInitialized(ext string) bool {
	// Fast path: already initialized
	p.parserMutex.RLock()
	if p.initialized[ext] {
		p.parserMutex.RUnlock()
		return true
	}
	initFunc, hasInitFunc := p.lazyInit[ext]
	p.parserMutex.RUnlock()

	if !hasInitFunc {
		return false
	}

	p.parserMutex.Lock()
	defer p.parserMutex.Unlock()

	// Double-check after acquiring write lock
	if p.initialized[ext] {
		return true
	}

	initFunc()

	// Mark all related extensions as initialized
	for _, extensions := range p.langGroups {
		for _, groupExt := range extensions {
			if groupExt == ext {
				for _, relatedExt := range extensions {
					p.initialized[relatedExt] = true
				}
				return true
			}
		}
	}

	p.initialized[ext] = true
	return true
}

// register installs a grammar for extensions. Called with parserMutex held.
func (p *TreeSitterParser) register(name Language, extensions []string, language *tree_sitter.Language, kinds *kindTable) {
	probe := tree_sitter.NewParser()
	err := probe.SetLanguage(language)
	probe.Close()
	if err != nil {
		debug.Log("PARSE", "grammar %s unusable: %v\n", name, err)
		return
	}

	spec := &languageSpec{name: name, language: language, kinds: kinds}
	spec.pool.New = func() any {
		ps := tree_sitter.NewParser()
		if err := ps.SetLanguage(language); err != nil {
			ps.Close()
			return nil
		}
		return ps
	}
	for _, ext := range extensions {
		p.languages[ext] = spec
	}
}

// GetLanguageFromExtension returns the language name for ext, or "" when
// no grammar handles it
func GetLanguageFromExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".js", ".jsx", ".mjs":
		return string(LanguageJavaScript)
	case ".ts", ".tsx":
		return string(LanguageTypeScript)
	case ".go":
		return string(LanguageGo)
	case ".py":
		return string(LanguagePython)
	case ".rs":
		return string(LanguageRust)
	case ".cpp", ".cc", ".cxx", ".c", ".h", ".hpp":
		return string(LanguageCpp)
	case ".java":
		return string(LanguageJava)
	case ".cs":
		return string(LanguageCSharp)
	case ".zig":
		return string(LanguageZig)
	case ".php", ".phtml":
		return string(LanguagePHP)
	default:
		return ""
	}
}

// Supports reports whether path has a grammar
func (p *TreeSitterParser) Supports(path string) bool {
	_, ok := p.lazyInit[strings.ToLower(filepath.Ext(path))]
	return ok
}

// GetSupportedLanguages returns a list of all supported languages
func (p *TreeSitterParser) GetSupportedLanguages() []string {
	p.parserMutex.RLock()
	defer p.parserMutex.RUnlock()

	languages := make([]string, 0, len(p.langGroups))
	for lang := range p.langGroups {
		languages = append(languages, lang)
	}
	sort.Strings(languages)
	return languages
}

// Parse builds the syntax tree for content. Files without a grammar return
// ErrNoTree. cancel is polled once per converted node.
func (p *TreeSitterParser) Parse(ctx context.Context, path string, content []byte, cancel *atomic.Bool) (tree *syntax.Tree, err error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !p.ensureParserInitialized(ext) {
		return nil, bterrors.ErrNoTree
	}

	p.parserMutex.RLock()
	spec := p.languages[ext]
	p.parserMutex.RUnlock()
	if spec == nil {
		return nil, bterrors.ErrNoTree
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ts := spec.getParser()
	if ts == nil {
		return nil, bterrors.NewParseError(path, string(spec.name), errors.New("no parser available"))
	}
	defer spec.pool.Put(ts)

	defer func() {
		if r := recover(); r != nil {
			debug.Log("PARSE", "TREE-SITTER PANIC in file %s: %v\n", path, r)
			tree = nil
			err = bterrors.NewParseError(path, string(spec.name), fmt.Errorf("panic: %v", r))
		}
	}()

	// tree-sitter may touch the input through CGO, parse a private copy
	parserBuffer := make([]byte, len(content))
	copy(parserBuffer, content)

	tsTree := ts.Parse(parserBuffer, nil)
	if tsTree == nil {
		return nil, bterrors.NewParseError(path, string(spec.name), errors.New("parser returned no tree"))
	}
	defer tsTree.Close()

	c := newConverter(spec.kinds, parserBuffer, cancel)
	root := c.convert(tsTree.RootNode())
	if c.cancelled {
		return nil, bterrors.ErrCancelled
	}

	sort.SliceStable(c.directives, func(i, j int) bool { return c.directives[i].Start < c.directives[j].Start })
	debug.Log("PARSE", "%s: %d nodes, %d excluded spans, %d directives\n",
		path, c.nodes, len(c.excluded), len(c.directives))

	return &syntax.Tree{
		Root:       root,
		Language:   string(spec.name),
		Excluded:   c.excluded,
		Directives: c.directives,
	}, nil
}
