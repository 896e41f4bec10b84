package quant

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallPlan(cols int) []SubspaceSpec {
	return []SubspaceSpec{{Start: 0, End: cols, EnableStage2: false, RefinementSteps: 2}}
}

func randomNormalized(t *testing.T, rows, cols int, seed int64) Matrix {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	m := NewMatrix(rows, cols)
	for i := range m.RawData() {
		m.RawData()[i] = float32(rng.NormFloat64())
	}
	return m
}

func TestProductQuantizer_Quantize_RejectsEmptyInput(t *testing.T) {
	config := DefaultConfig()
	config.Level1Centroids = 2
	pq, err := NewProductQuantizer(config)
	require.NoError(t, err)

	_, err = pq.Quantize(Matrix{}, smallPlan(4), rand.New(rand.NewSource(1)), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestProductQuantizer_Quantize_RejectsPlanGaps(t *testing.T) {
	config := DefaultConfig()
	pq, err := NewProductQuantizer(config)
	require.NoError(t, err)

	data := randomNormalized(t, 20, 8, 1)
	badPlan := []SubspaceSpec{{Start: 0, End: 4, RefinementSteps: 1}, {Start: 5, End: 8, RefinementSteps: 1}}

	_, err = pq.Quantize(data, badPlan, rand.New(rand.NewSource(1)), nil)
	assert.ErrorIs(t, err, ErrPlanInvariantViolation)
}

func TestProductQuantizer_Quantize_ProducesOneSubspacePerPlanEntry(t *testing.T) {
	config := DefaultConfig()
	config.Level1Centroids = 4
	config.MinClusterSize = 1
	pq, err := NewProductQuantizer(config)
	require.NoError(t, err)

	data := randomNormalized(t, 30, 12, 5)
	plan := []SubspaceSpec{
		{Start: 0, End: 6, RefinementSteps: 2},
		{Start: 6, End: 12, RefinementSteps: 2, EnableStage2: true},
	}

	result, err := pq.Quantize(data, plan, rand.New(rand.NewSource(5)), nil)
	require.NoError(t, err)

	require.Len(t, result.Subspaces, 2)
	require.Len(t, result.Telemetry, 2)
	assert.Nil(t, result.Subspaces[0].Stage2)
	assert.False(t, result.Telemetry[0].EnabledStage2)
}

func TestProductQuantizer_QuantizeThenReconstruct_ReducesResidualEnergyBelowRawVariance(t *testing.T) {
	config := DefaultConfig()
	config.Level1Centroids = 4
	config.Level2Centroids = 2
	config.MinClusterSize = 1
	pq, err := NewProductQuantizer(config)
	require.NoError(t, err)

	data := randomNormalized(t, 40, 8, 11)
	plan := smallPlan(8)
	plan[0].EnableStage2 = true
	plan[0].RefinementSteps = 5

	result, err := pq.Quantize(data, plan, rand.New(rand.NewSource(11)), nil)
	require.NoError(t, err)

	reconstructed := Reconstruct(data.Rows(), data.Cols(), result.Subspaces)
	rawVariance := averageSquaredNorm(data)
	residual := residualEnergy(data, reconstructed, nil)

	assert.Less(t, residual, rawVariance)
}

func TestEstimateCompressedBits_ScalesWithCentroidCount(t *testing.T) {
	narrow := CodebookStage{Centroids: NewMatrix(4, 4)}
	wide := CodebookStage{Centroids: NewMatrix(16, 4)}

	narrowBits := EstimateCompressedBits(100, []QuantizedSubspace{{Start: 0, End: 4, Stage1: narrow}})
	wideBits := EstimateCompressedBits(100, []QuantizedSubspace{{Start: 0, End: 4, Stage1: wide}})

	assert.Less(t, narrowBits, wideBits)
}

func TestBuildCodebookStage_RejectsOverflowingAssignmentCount(t *testing.T) {
	assignments := make([]int, 1<<16)
	_, err := buildCodebookStage(1, NewMatrix(2, 2), assignments, 1, 0)
	assert.ErrorIs(t, err, ErrAssignmentOverflow)
}

func TestBlendForDistillation_MovesTowardTeacherAsWeightsIncrease(t *testing.T) {
	data := NewMatrixFromRows([][]float32{{0, 0}})
	teacher := NewMatrixFromRows([][]float32{{5, 5}})

	low := blendForDistillation(data, teacher, 1.0, 0, 0)
	high := blendForDistillation(data, teacher, 1.0, 2.0, 2.0)

	assert.Less(t, low.At(0, 0), high.At(0, 0))
}
