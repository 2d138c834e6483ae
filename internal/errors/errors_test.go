package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationError(t *testing.T) {
	underlying := errors.New("offset out of range")
	err := NewLocationError("line lookup", 42, underlying)

	assert.Equal(t, ErrorTypeLocation, err.Type)
	assert.True(t, errors.Is(err, underlying))
	assert.Equal(t, "location line lookup failed at offset 42: offset out of range", err.Error())
	assert.True(t, IsCycleFatal(err))
}

func TestScopeTraceError(t *testing.T) {
	err := NewScopeTraceError("break", 17, "empty scope stack")

	assert.True(t, err.IsRecoverable())
	assert.Contains(t, err.Error(), "break")
	assert.Contains(t, err.Error(), "17")
	assert.False(t, IsCycleFatal(err))

	wrapped := fmt.Errorf("visit: %w", err)
	var ste *ScopeTraceError
	require.True(t, errors.As(wrapped, &ste))
	assert.Equal(t, "break", ste.Where)
	assert.False(t, IsCycleFatal(wrapped))
}

func TestInvariantError(t *testing.T) {
	err := NewInvariantError("scanner", "zero-length region at %d", 3)

	assert.Equal(t, "scanner invariant violated: zero-length region at 3", err.Error())
	assert.True(t, IsCycleFatal(err))
}

func TestConfigError(t *testing.T) {
	underlying := errors.New("must be positive")
	err := NewConfigError("surrounding.count", "-1", underlying)

	assert.True(t, errors.Is(err, underlying))
	assert.Equal(t, "config error for field surrounding.count (value -1): must be positive", err.Error())
}

func TestParseError(t *testing.T) {
	underlying := errors.New("parser returned nil tree")
	err := NewParseError("a.cpp", "cpp", underlying)

	assert.True(t, errors.Is(err, underlying))
	assert.Contains(t, err.Error(), "a.cpp")
}

func TestMultiError(t *testing.T) {
	empty := NewMultiError([]error{nil, nil})
	assert.NoError(t, empty.ErrorOrNil())
	assert.Equal(t, "no errors", empty.Error())

	first := errors.New("first")
	single := NewMultiError([]error{nil, first})
	assert.Equal(t, "first", single.Error())

	second := NewScopeTraceError("case", 1, "no switch")
	multi := NewMultiError([]error{first, second})
	assert.Contains(t, multi.Error(), "2 errors")
	assert.True(t, errors.Is(multi, first))

	var ste *ScopeTraceError
	assert.True(t, errors.As(multi, &ste))
}

func TestIsCycleFatal_Sentinels(t *testing.T) {
	assert.False(t, IsCycleFatal(nil))
	assert.True(t, IsCycleFatal(ErrCancelled))
	assert.True(t, IsCycleFatal(fmt.Errorf("scan: %w", ErrCancelled)))
}
