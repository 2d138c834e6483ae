package config

import (
	"fmt"
	"log"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/standardbeagle/bracketeer/internal/types"
)

// parseKDL builds a configuration from defaults plus the KDL content
func parseKDL(content string) (*Config, error) {
	cfg := Default()
	if err := applyKDL(cfg, content); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyKDL overlays KDL settings onto cfg
func applyKDL(cfg *Config, content string) error {
	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "brackets":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "alphabet":
					assignString(cn, func(v string) { cfg.Brackets.Alphabet = v })
				case "lonely":
					assignString(cn, func(v string) { cfg.Brackets.Lonely = v })
				case "angle":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Brackets.Angle.Enabled = b
					}
					for _, an := range cn.Children {
						switch nodeName(an) {
						case "enabled":
							assignBool(an, func(v bool) { cfg.Brackets.Angle.Enabled = v })
						case "max_span":
							assignInt(an, func(v int) { cfg.Brackets.Angle.MaxSpan = v })
						case "stop_chars":
							assignString(an, func(v string) { cfg.Brackets.Angle.StopChars = v })
						}
					}
				}
			}
		case "surrounding":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "enabled":
					assignBool(cn, func(v bool) { cfg.Surrounding.Enabled = v })
				case "include", "show_brackets":
					assignString(cn, func(v string) { cfg.Surrounding.Include = v })
				case "count":
					assignInt(cn, func(v int) { cfg.Surrounding.Count = v })
				}
			}
		case "hovering":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "enabled":
					assignBool(cn, func(v bool) { cfg.Hovering.Enabled = v })
				case "distance":
					if f, ok := firstFloatArg(cn); ok {
						cfg.Hovering.Distance = f
					}
				}
			}
		case "highlights":
			if err := applyHighlights(cfg, n); err != nil {
				return err
			}
		case "hints":
			if err := applyHints(cfg, n); err != nil {
				return err
			}
		case "preprocessor":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "define":
					args := collectStringArgs(cn)
					if len(args) == 0 {
						continue
					}
					value := "1"
					if len(args) > 1 {
						value = args[1]
					} else if v, ok := secondIntArg(cn); ok {
						value = fmt.Sprint(v)
					}
					if cfg.Preprocessor.Defines == nil {
						cfg.Preprocessor.Defines = map[string]string{}
					}
					cfg.Preprocessor.Defines[args[0]] = value
				case "undefine":
					cfg.Preprocessor.Undefines = append(cfg.Preprocessor.Undefines, collectStringArgs(cn)...)
				}
			}
		case "performance":
			for _, cn := range n.Children {
				if nodeName(cn) == "debounce_ms" {
					assignInt(cn, func(v int) { cfg.Performance.DebounceMs = v })
				}
			}
		case "watch":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "include":
					cfg.Watch.Include = append(cfg.Watch.Include, collectStringArgs(cn)...)
				case "exclude":
					cfg.Watch.Exclude = append(cfg.Watch.Exclude, collectStringArgs(cn)...)
				case "debounce_ms":
					assignInt(cn, func(v int) { cfg.Watch.DebounceMs = v })
				}
			}
		default:
			log.Printf("WARNING: unknown section '%s' in KDL config", nodeName(n))
		}
	}
	return nil
}

func applyHighlights(cfg *Config, n *document.Node) error {
	var palette []Style
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "default":
			if err := applyStyle(&cfg.Highlights.Default, cn); err != nil {
				return err
			}
		case "missing":
			if err := applyStyle(&cfg.Highlights.Missing, cn); err != nil {
				return err
			}
		case "pair":
			var s Style
			if err := applyStyle(&s, cn); err != nil {
				return err
			}
			palette = append(palette, s)
		}
	}
	// Any pair entry replaces the whole built-in palette
	if len(palette) > 0 {
		cfg.Highlights.Pairs = palette
	}
	return nil
}

func applyHints(cfg *Config, n *document.Node) error {
	if cfg.Hints.Kinds == nil {
		cfg.Hints.Kinds = map[types.HintKind]HintStyle{}
	}
	for _, cn := range n.Children {
		name := nodeName(cn)
		if name == "all" {
			hs := cfg.Hints.Default
			if err := applyHintStyle(&hs, cn); err != nil {
				return err
			}
			cfg.Hints.Default = hs
			for k, v := range cfg.Hints.Kinds {
				if err := applyHintStyle(&v, cn); err != nil {
					return err
				}
				cfg.Hints.Kinds[k] = v
			}
			continue
		}
		kind := types.HintKind(name)
		hs := cfg.Hints.For(kind)
		if err := applyHintStyle(&hs, cn); err != nil {
			return err
		}
		cfg.Hints.Kinds[kind] = hs
	}
	return nil
}

func applyHintStyle(hs *HintStyle, n *document.Node) error {
	if b, ok := firstBoolArg(n); ok {
		hs.Enabled = b
	}
	for _, cn := range n.Children {
		if nodeName(cn) == "enabled" {
			assignBool(cn, func(v bool) { hs.Enabled = v })
		}
	}
	return applyStyle(&hs.Style, n)
}

func applyStyle(s *Style, n *document.Node) error {
	for _, cn := range n.Children {
		name := nodeName(cn)
		var target *Color
		switch name {
		case "foreground", "fg":
			target = &s.Foreground
		case "background", "bg":
			target = &s.Background
		default:
			continue
		}
		v, ok := firstStringArg(cn)
		if !ok {
			continue
		}
		c, err := ParseColor(v)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", nodeName(n), name, err)
		}
		*target = c
	}
	return nil
}

// Helper functions over the kdl-go document model
func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}
func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
func secondIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) < 2 {
		return 0, false
	}
	switch v := n.Arguments[1].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}
func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}
func firstFloatArg(n *document.Node) (float64, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		log.Printf("WARNING: invalid float value for '%s' in KDL config, expected number but got %T", nodeName(n), n.Arguments[0].Value)
		return 0, false
	}
}
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	// Block form: include { "pattern" }
	if len(out) == 0 && len(n.Children) > 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}
func assignString(n *document.Node, set func(string)) {
	if s, ok := firstStringArg(n); ok {
		set(s)
	}
}
func assignInt(n *document.Node, set func(int)) {
	if v, ok := firstIntArg(n); ok {
		set(v)
	}
}
func assignBool(n *document.Node, set func(bool)) {
	if b, ok := firstBoolArg(n); ok {
		set(b)
	}
}
