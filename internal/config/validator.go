package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	bterrors "github.com/standardbeagle/bracketeer/internal/errors"
)

// MaxSurroundCount bounds how many surrounding pairs may be highlighted
const MaxSurroundCount = 32

// Validator validates configuration and sets smart defaults
type Validator struct{}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates configuration and applies smart defaults.
// Every invalid field is reported; defaults are applied only when all pass.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	var errs []error
	if err := v.validateBrackets(&cfg.Brackets); err != nil {
		errs = append(errs, bterrors.NewConfigError("brackets", cfg.Brackets.Alphabet, err))
	}

	if err := v.validateSurrounding(&cfg.Surrounding); err != nil {
		errs = append(errs, bterrors.NewConfigError("surrounding", strconv.Itoa(cfg.Surrounding.Count), err))
	}

	if cfg.Hovering.Distance < 0 {
		errs = append(errs, bterrors.NewConfigError("hovering.distance", fmt.Sprint(cfg.Hovering.Distance),
			errors.New("distance cannot be negative")))
	}

	if cfg.Performance.DebounceMs < 0 {
		errs = append(errs, bterrors.NewConfigError("performance.debounce_ms", strconv.Itoa(cfg.Performance.DebounceMs),
			errors.New("debounce cannot be negative")))
	}

	if err := v.validateWatch(&cfg.Watch); err != nil {
		errs = append(errs, bterrors.NewConfigError("watch", "", err))
	}

	if err := bterrors.NewMultiError(errs).ErrorOrNil(); err != nil {
		return err
	}
	v.setSmartDefaults(cfg)
	return nil
}

func (v *Validator) validateBrackets(b *Brackets) error {
	if b.Alphabet == "" {
		return errors.New("bracket alphabet cannot be empty")
	}
	if len(b.Alphabet)%2 != 0 {
		return fmt.Errorf("bracket alphabet %q must list opening/closing pairs", b.Alphabet)
	}
	for i := 0; i < len(b.Alphabet); i += 2 {
		if b.Alphabet[i] == b.Alphabet[i+1] {
			return fmt.Errorf("bracket pair %q uses the same character twice", b.Alphabet[i:i+2])
		}
	}
	for i := 0; i < len(b.Lonely); i++ {
		if strings.IndexByte(b.Alphabet, b.Lonely[i]) < 0 {
			return fmt.Errorf("lonely bracket %q is not in the alphabet", b.Lonely[i])
		}
	}
	if b.Angle.MaxSpan < 0 {
		return fmt.Errorf("angle max span must not be negative, got %d", b.Angle.MaxSpan)
	}
	return nil
}

func (v *Validator) validateSurrounding(s *Surrounding) error {
	if s.Count < 0 {
		return fmt.Errorf("count must not be negative, got %d", s.Count)
	}
	if s.Count > MaxSurroundCount {
		return fmt.Errorf("count should not exceed %d, got %d", MaxSurroundCount, s.Count)
	}
	return nil
}

func (v *Validator) validateWatch(w *Watch) error {
	for _, p := range append(append([]string{}, w.Include...), w.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	if w.DebounceMs < 0 {
		return fmt.Errorf("debounce cannot be negative, got %d", w.DebounceMs)
	}
	return nil
}

// setSmartDefaults fills values that are only meaningful once the rest is known
func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Brackets.Angle.Enabled && cfg.Brackets.Angle.MaxSpan == 0 {
		cfg.Brackets.Angle.MaxSpan = DefaultAngleMaxSpan
	}
	if cfg.Hovering.Distance == 0 {
		cfg.Hovering.Distance = DefaultHoverDistance
	}
	if cfg.Surrounding.Include == "" {
		cfg.Surrounding.Include = DefaultIncludeBrackets
	}
	if cfg.Preprocessor.Defines == nil {
		cfg.Preprocessor.Defines = map[string]string{}
	}
}
