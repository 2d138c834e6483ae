package config

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"github.com/standardbeagle/bracketeer/internal/types"
)

// tomlConfig mirrors Config with string colors. Pointer fields tell an
// absent key apart from an explicit zero value.
type tomlConfig struct {
	Brackets struct {
		Alphabet *string `toml:"alphabet"`
		Lonely   *string `toml:"lonely"`
		Angle    struct {
			Enabled   *bool   `toml:"enabled"`
			MaxSpan   *int    `toml:"max_span"`
			StopChars *string `toml:"stop_chars"`
		} `toml:"angle"`
	} `toml:"brackets"`
	Surrounding struct {
		Enabled *bool   `toml:"enabled"`
		Include *string `toml:"include"`
		Count   *int    `toml:"count"`
	} `toml:"surrounding"`
	Hovering struct {
		Enabled  *bool    `toml:"enabled"`
		Distance *float64 `toml:"distance"`
	} `toml:"hovering"`
	Highlights struct {
		Default *tomlStyle  `toml:"default"`
		Pairs   []tomlStyle `toml:"pairs"`
		Missing *tomlStyle  `toml:"missing"`
	} `toml:"highlights"`
	Hints        map[string]tomlHint `toml:"hints"`
	Preprocessor struct {
		Defines   map[string]string `toml:"defines"`
		Undefines []string          `toml:"undefines"`
	} `toml:"preprocessor"`
	Performance struct {
		DebounceMs *int `toml:"debounce_ms"`
	} `toml:"performance"`
	Watch struct {
		Include    []string `toml:"include"`
		Exclude    []string `toml:"exclude"`
		DebounceMs *int     `toml:"debounce_ms"`
	} `toml:"watch"`
}

type tomlStyle struct {
	Foreground *string `toml:"foreground"`
	Background *string `toml:"background"`
}

type tomlHint struct {
	Enabled    *bool   `toml:"enabled"`
	Foreground *string `toml:"foreground"`
	Background *string `toml:"background"`
}

// applyTOML overlays TOML settings onto cfg
func applyTOML(cfg *Config, content []byte) error {
	var tc tomlConfig
	if err := toml.Unmarshal(content, &tc); err != nil {
		return fmt.Errorf("failed to parse TOML config: %w", err)
	}

	setString(&cfg.Brackets.Alphabet, tc.Brackets.Alphabet)
	setString(&cfg.Brackets.Lonely, tc.Brackets.Lonely)
	setBool(&cfg.Brackets.Angle.Enabled, tc.Brackets.Angle.Enabled)
	setInt(&cfg.Brackets.Angle.MaxSpan, tc.Brackets.Angle.MaxSpan)
	setString(&cfg.Brackets.Angle.StopChars, tc.Brackets.Angle.StopChars)

	setBool(&cfg.Surrounding.Enabled, tc.Surrounding.Enabled)
	setString(&cfg.Surrounding.Include, tc.Surrounding.Include)
	setInt(&cfg.Surrounding.Count, tc.Surrounding.Count)

	setBool(&cfg.Hovering.Enabled, tc.Hovering.Enabled)
	if tc.Hovering.Distance != nil {
		cfg.Hovering.Distance = *tc.Hovering.Distance
	}

	if tc.Highlights.Default != nil {
		if err := tc.Highlights.Default.applyTo(&cfg.Highlights.Default); err != nil {
			return fmt.Errorf("highlights.default: %w", err)
		}
	}
	if tc.Highlights.Missing != nil {
		if err := tc.Highlights.Missing.applyTo(&cfg.Highlights.Missing); err != nil {
			return fmt.Errorf("highlights.missing: %w", err)
		}
	}
	if len(tc.Highlights.Pairs) > 0 {
		palette := make([]Style, len(tc.Highlights.Pairs))
		for i, ts := range tc.Highlights.Pairs {
			if err := ts.applyTo(&palette[i]); err != nil {
				return fmt.Errorf("highlights.pairs[%d]: %w", i, err)
			}
		}
		cfg.Highlights.Pairs = palette
	}

	if cfg.Hints.Kinds == nil {
		cfg.Hints.Kinds = map[types.HintKind]HintStyle{}
	}
	for name, th := range tc.Hints {
		kind := types.HintKind(name)
		hs := cfg.Hints.For(kind)
		setBool(&hs.Enabled, th.Enabled)
		style := tomlStyle{Foreground: th.Foreground, Background: th.Background}
		if err := style.applyTo(&hs.Style); err != nil {
			return fmt.Errorf("hints.%s: %w", name, err)
		}
		cfg.Hints.Kinds[kind] = hs
	}

	if cfg.Preprocessor.Defines == nil {
		cfg.Preprocessor.Defines = map[string]string{}
	}
	for k, v := range tc.Preprocessor.Defines {
		cfg.Preprocessor.Defines[k] = v
	}
	cfg.Preprocessor.Undefines = append(cfg.Preprocessor.Undefines, tc.Preprocessor.Undefines...)

	setInt(&cfg.Performance.DebounceMs, tc.Performance.DebounceMs)

	cfg.Watch.Include = append(cfg.Watch.Include, tc.Watch.Include...)
	cfg.Watch.Exclude = append(cfg.Watch.Exclude, tc.Watch.Exclude...)
	setInt(&cfg.Watch.DebounceMs, tc.Watch.DebounceMs)
	return nil
}

func (ts tomlStyle) applyTo(s *Style) error {
	if ts.Foreground != nil {
		c, err := ParseColor(*ts.Foreground)
		if err != nil {
			return err
		}
		s.Foreground = c
	}
	if ts.Background != nil {
		c, err := ParseColor(*ts.Background)
		if err != nil {
			return err
		}
		s.Background = c
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
