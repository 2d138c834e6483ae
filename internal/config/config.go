package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/standardbeagle/bracketeer/internal/types"
)

const (
	// KDLFileName is the project configuration file looked up in the root
	KDLFileName = ".bracketeer.kdl"
	// TOMLFileName is the alternative project configuration file
	TOMLFileName = ".bracketeer.toml"

	DefaultAlphabet        = "(){}[]<>"
	DefaultLonelyAlphabet  = "(){}[]"
	DefaultIncludeBrackets = "(){}[]"
	DefaultSurroundCount   = 5
	DefaultHoverDistance   = 20.0
	DefaultAngleMaxSpan    = 256
	DefaultAngleStopChars  = ";{}"
	DefaultDebounceMs      = 100
)

type Config struct {
	Version      int
	Brackets     Brackets
	Surrounding  Surrounding
	Hovering     Hovering
	Highlights   Highlights
	Hints        Hints
	Preprocessor Preprocessor
	Performance  Performance
	Watch        Watch
}

type Brackets struct {
	Alphabet string // every bracket character the matcher pairs
	Lonely   string // subset reported as lonely when unmatched
	Angle    AngleHeuristic
}

// AngleHeuristic controls when '<' and '>' are treated as brackets
type AngleHeuristic struct {
	Enabled   bool
	MaxSpan   int    // give up after this many bytes
	StopChars string // characters that cannot appear inside a generic argument list
}

type Surrounding struct {
	Enabled bool
	Include string // brackets eligible for surrounding highlight
	Count   int
}

type Hovering struct {
	Enabled  bool
	Distance float64 // pointer travel that ends a hover
}

// Color is an RGB value. Set is false when the host default should be used.
type Color struct {
	R, G, B uint8
	Set     bool
}

func (c Color) String() string {
	if !c.Set {
		return "default"
	}
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseColor accepts "#rrggbb", "rrggbb" or "default"
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "default") {
		return Color{}, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return Color{}, fmt.Errorf("invalid color %q: expected #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), Set: true}, nil
}

func mustColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

type Style struct {
	Foreground Color
	Background Color
}

type Highlights struct {
	Default Style
	Pairs   []Style // palette cycled over surrounding pairs, innermost first
	Missing Style   // lonely brackets
}

// PairStyle returns the palette entry for the n-th selected pair
func (h Highlights) PairStyle(n int) Style {
	if len(h.Pairs) == 0 {
		return h.Default
	}
	if n < 0 {
		n = -n
	}
	return h.Pairs[n%len(h.Pairs)]
}

type HintStyle struct {
	Enabled bool
	Style   Style
}

type Hints struct {
	Default HintStyle
	Kinds   map[types.HintKind]HintStyle
}

// For returns the style configured for kind, falling back to Default
func (h Hints) For(kind types.HintKind) HintStyle {
	if hs, ok := h.Kinds[kind]; ok {
		return hs
	}
	return h.Default
}

// Enabled reports whether hints of kind are shown
func (h Hints) Enabled(kind types.HintKind) bool {
	return h.For(kind).Enabled
}

type Preprocessor struct {
	Defines   map[string]string // macros treated as defined, with their values
	Undefines []string          // macros treated as explicitly undefined
}

type Performance struct {
	DebounceMs int
}

type Watch struct {
	Include    []string
	Exclude    []string
	DebounceMs int
}

// Default returns the built-in configuration
func Default() *Config {
	hintStyle := Style{Foreground: mustColor("#808080")}
	kinds := make(map[types.HintKind]HintStyle, len(types.AllHintKinds()))
	for _, k := range types.AllHintKinds() {
		kinds[k] = HintStyle{Enabled: true, Style: hintStyle}
	}

	return &Config{
		Version: 1,
		Brackets: Brackets{
			Alphabet: DefaultAlphabet,
			Lonely:   DefaultLonelyAlphabet,
			Angle: AngleHeuristic{
				Enabled:   true,
				MaxSpan:   DefaultAngleMaxSpan,
				StopChars: DefaultAngleStopChars,
			},
		},
		Surrounding: Surrounding{
			Enabled: true,
			Include: DefaultIncludeBrackets,
			Count:   DefaultSurroundCount,
		},
		Hovering: Hovering{
			Enabled:  true,
			Distance: DefaultHoverDistance,
		},
		Highlights: Highlights{
			Pairs: []Style{
				{Background: mustColor("#c8f0c8")},
				{Background: mustColor("#c8d8f8")},
				{Background: mustColor("#f8d8c8")},
				{Background: mustColor("#f0e8b0")},
			},
			Missing: Style{Foreground: mustColor("#ffffff"), Background: mustColor("#d02020")},
		},
		Hints: Hints{
			Default: HintStyle{Enabled: true, Style: hintStyle},
			Kinds:   kinds,
		},
		Preprocessor: Preprocessor{
			Defines: map[string]string{},
		},
		Performance: Performance{DebounceMs: DefaultDebounceMs},
		Watch: Watch{
			Include:    []string{},
			Exclude:    []string{"**/.git/**", "**/node_modules/**", "**/vendor/**"},
			DebounceMs: DefaultDebounceMs,
		},
	}
}

// Clone returns a deep copy so a running cycle never sees later edits
func (c *Config) Clone() *Config {
	out := *c
	out.Highlights.Pairs = append([]Style(nil), c.Highlights.Pairs...)
	out.Hints.Kinds = make(map[types.HintKind]HintStyle, len(c.Hints.Kinds))
	for k, v := range c.Hints.Kinds {
		out.Hints.Kinds[k] = v
	}
	out.Preprocessor.Defines = make(map[string]string, len(c.Preprocessor.Defines))
	for k, v := range c.Preprocessor.Defines {
		out.Preprocessor.Defines[k] = v
	}
	out.Preprocessor.Undefines = append([]string(nil), c.Preprocessor.Undefines...)
	out.Watch.Include = append([]string(nil), c.Watch.Include...)
	out.Watch.Exclude = append([]string(nil), c.Watch.Exclude...)
	return &out
}

func Load(path string) (*Config, error) {
	return LoadWithRoot(path, "")
}

// LoadWithRoot layers configuration: built-in defaults, then ~/.bracketeer.kdl,
// then the project file in rootDir, then an explicit path when given.
func LoadWithRoot(path string, rootDir string) (*Config, error) {
	searchDir := "."
	if rootDir != "" {
		searchDir = rootDir
	}

	cfg := Default()

	if homeDir, err := os.UserHomeDir(); err == nil {
		if err := applyFile(cfg, filepath.Join(homeDir, KDLFileName)); err != nil {
			return nil, err
		}
	}

	for _, name := range []string{KDLFileName, TOMLFileName} {
		projectPath := filepath.Join(searchDir, name)
		if samePath(projectPath, path) {
			continue
		}
		if err := applyFile(cfg, projectPath); err != nil {
			return nil, err
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := NewValidator().ValidateAndSetDefaults(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFile overlays the file onto cfg. Missing files are ignored.
func applyFile(cfg *Config, path string) error {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = applyTOML(cfg, content)
	default:
		err = applyKDL(cfg, string(content))
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
