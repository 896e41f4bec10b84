package quant

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	c := DefaultConfig()
	c.Level1Centroids = 4
	c.Level2Centroids = 2
	c.MinClusterSize = 1
	c.MaxSubspaceDim = 4
	c.MinSubspaceDim = 2
	return c
}

func randomLayer(rows, cols int, seed int64) Matrix {
	rng := rand.New(rand.NewSource(seed))
	m := NewMatrix(rows, cols)
	for i := range m.RawData() {
		m.RawData()[i] = float32(rng.NormFloat64())
	}
	return m
}

func TestQuantizer_QuantizeLayer_IsDeterministicForTheSameSeed(t *testing.T) {
	config := testConfig()
	quantizer, err := NewQuantizer(config)
	require.NoError(t, err)

	weights := randomLayer(20, 8, 42)

	first, err := quantizer.QuantizeLayer("layer.0", 0, weights)
	require.NoError(t, err)
	second, err := quantizer.QuantizeLayer("layer.0", 0, weights)
	require.NoError(t, err)

	assert.Equal(t, first.Seed, second.Seed)
	assert.Equal(t, first.Metrics.MSE, second.Metrics.MSE)
	require.Len(t, first.Subspaces, len(second.Subspaces))
	for i := range first.Subspaces {
		assert.Equal(t, first.Subspaces[i].Stage1.Assignments, second.Subspaces[i].Stage1.Assignments)
	}
}

func TestQuantizer_QuantizeLayer_DifferentLayerNamesGetDifferentSeeds(t *testing.T) {
	config := testConfig()
	quantizer, err := NewQuantizer(config)
	require.NoError(t, err)

	weights := randomLayer(20, 8, 7)

	a, err := quantizer.QuantizeLayer("attn.q_proj", 0, weights)
	require.NoError(t, err)
	b, err := quantizer.QuantizeLayer("attn.k_proj", 0, weights)
	require.NoError(t, err)

	assert.NotEqual(t, a.Seed, b.Seed)
}

func TestQuantizer_QuantizeLayer_RecordsParameterCountAndShape(t *testing.T) {
	config := testConfig()
	quantizer, err := NewQuantizer(config)
	require.NoError(t, err)

	layer, err := quantizer.QuantizeLayer("mlp.up_proj", 3, randomLayer(16, 8, 3))
	require.NoError(t, err)

	assert.Equal(t, 16, layer.Rows)
	assert.Equal(t, 8, layer.Cols)
	assert.Equal(t, 128, layer.ParameterCount())
	assert.Equal(t, 3, layer.Index)
}

func TestQuantizer_QuantizeModel_AssignsMonotonicIndices(t *testing.T) {
	config := testConfig()
	quantizer, err := NewQuantizer(config)
	require.NoError(t, err)

	sources := []LayerSource{
		{Name: "layer.0", Weights: randomLayer(16, 8, 1)},
		{Name: "layer.1", Weights: randomLayer(16, 8, 2)},
		{Name: "layer.2", Weights: randomLayer(16, 8, 3)},
	}

	model, err := quantizer.QuantizeModel(sources)
	require.NoError(t, err)

	require.Len(t, model.Layers, 3)
	for i, layer := range model.Layers {
		assert.Equal(t, i, layer.Index)
	}
	assert.Equal(t, 3, model.Summary.TotalLayers)
}

func TestNewQuantizer_RejectsInvalidConfig(t *testing.T) {
	config := DefaultConfig()
	config.MaxIterations = 0

	_, err := NewQuantizer(config)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
