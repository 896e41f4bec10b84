package quant

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_RejectsEmptyTensor(t *testing.T) {
	_, err := Analyze(Matrix{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestAnalyze_RejectsNaNAndReportsPosition(t *testing.T) {
	// GIVEN a matrix with a NaN at row 0, col 1
	m := NewMatrixFromRows([][]float32{{1, float32(math.NaN())}, {2, 3}})

	// WHEN analyzing it
	_, err := Analyze(m)

	// THEN it fails with ErrNonFiniteInput at (0, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNonFiniteInput)
	var qerr *Error
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, 0, qerr.Row)
	assert.Equal(t, 1, qerr.Col)
}

func TestAnalyze_ConstantMatrix_HasZeroVariance(t *testing.T) {
	m := NewMatrix(4, 4)
	for i := range m.RawData() {
		m.RawData()[i] = 5
	}

	analysis, err := Analyze(m)
	require.NoError(t, err)

	assert.Equal(t, float32(5), analysis.Mean)
	assert.InDelta(t, 0, analysis.Variance, 1e-6)
	assert.InDelta(t, 0, analysis.Std, 1e-6)
}

func TestAnalyze_SparsityCountsNearZeroElements(t *testing.T) {
	m := NewMatrixFromRows([][]float32{{0, 0, 1, 1}})
	analysis, err := Analyze(m)
	require.NoError(t, err)

	assert.Equal(t, float32(0.5), analysis.Sparsity)
}

func TestAnalyze_AnisotropyIsOneWhenAllColumnsAreFlat(t *testing.T) {
	m := NewMatrix(8, 3)
	for i := range m.RawData() {
		m.RawData()[i] = 1
	}
	analysis, err := Analyze(m)
	require.NoError(t, err)

	assert.Equal(t, float32(1.0), analysis.Anisotropy)
}

func TestAnalyze_ColumnVariancesHaveOneEntryPerColumn(t *testing.T) {
	m := NewMatrixFromRows([][]float32{{1, 10}, {2, 20}, {3, 30}})
	analysis, err := Analyze(m)
	require.NoError(t, err)

	require.Len(t, analysis.ColumnVariances, 2)
	require.Len(t, analysis.RowVariances, 3)
	assert.Greater(t, analysis.ColumnVariances[1], analysis.ColumnVariances[0])
}
