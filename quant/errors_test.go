package quant

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error_IncludesPositionWhenSet(t *testing.T) {
	err := newPositionalErr(ErrNonFiniteInput, 2, 5, "NaN detected")
	assert.Contains(t, err.Error(), "(2, 5)")
}

func TestError_Error_OmitsPositionWhenUnset(t *testing.T) {
	err := newErr(ErrInvalidConfig, "bad value")
	assert.NotContains(t, err.Error(), "(")
}

func TestError_Unwrap_MatchesSentinelViaErrorsIs(t *testing.T) {
	err := newErr(ErrDegenerateClustering, "too close")
	assert.True(t, errors.Is(err, ErrDegenerateClustering))
	assert.False(t, errors.Is(err, ErrEmptyInput))
}
