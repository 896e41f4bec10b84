package quant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrix_AtAndSet_RoundTrip(t *testing.T) {
	m := NewMatrix(2, 3)
	m.Set(0, 0, 1.5)
	m.Set(1, 2, -2.5)

	assert.Equal(t, float32(1.5), m.At(0, 0))
	assert.Equal(t, float32(-2.5), m.At(1, 2))
	assert.Equal(t, float32(0), m.At(0, 1))
}

func TestMatrix_Row_IsAMutableView(t *testing.T) {
	m := NewMatrix(2, 2)
	row := m.Row(0)
	row[0] = 9

	assert.Equal(t, float32(9), m.At(0, 0))
}

func TestMatrix_Clone_IsIndependent(t *testing.T) {
	m := NewMatrixFromRows([][]float32{{1, 2}, {3, 4}})
	clone := m.Clone()
	clone.Set(0, 0, 100)

	assert.Equal(t, float32(1), m.At(0, 0))
	assert.Equal(t, float32(100), clone.At(0, 0))
}

func TestMatrix_Slice_CopiesColumnRange(t *testing.T) {
	m := NewMatrixFromRows([][]float32{{1, 2, 3, 4}, {5, 6, 7, 8}})
	s := m.Slice(1, 3)

	require.Equal(t, 2, s.Rows())
	require.Equal(t, 2, s.Cols())
	assert.Equal(t, float32(2), s.At(0, 0))
	assert.Equal(t, float32(3), s.At(0, 1))
	assert.Equal(t, float32(6), s.At(1, 0))
}

func TestMatrix_NewMatrixFromRows_PanicsOnRaggedInput(t *testing.T) {
	assert.Panics(t, func() {
		NewMatrixFromRows([][]float32{{1, 2}, {3}})
	})
}

func TestMatrix_Column_ReturnsIndependentCopy(t *testing.T) {
	m := NewMatrixFromRows([][]float32{{1, 2}, {3, 4}})
	col := m.Column(1)
	col[0] = 99

	assert.Equal(t, float32(2), m.At(0, 1))
	assert.Equal(t, []float32{2, 4}, m.Column(1))
}
