package quant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregate_EmptyLayerSet_ReturnsZeroSummary(t *testing.T) {
	summary := Aggregate(nil)
	assert.Equal(t, QuantizationSummary{}, summary)
}

func TestAggregate_WeightsLargerLayersMoreHeavily(t *testing.T) {
	small := QuantizedLayer{
		Rows: 1, Cols: 1,
		Metrics: LayerMetrics{MSE: 10, OriginalBits: 32, CompressedBits: 8},
	}
	large := QuantizedLayer{
		Rows: 1, Cols: 99,
		Metrics: LayerMetrics{MSE: 0, OriginalBits: 32 * 99, CompressedBits: 8 * 99},
	}

	summary := Aggregate([]QuantizedLayer{small, large})

	assert.Less(t, summary.GlobalMSE, float32(1))
}

func TestAggregate_SumsBitTotalsAcrossLayers(t *testing.T) {
	a := QuantizedLayer{Rows: 1, Cols: 4, Metrics: LayerMetrics{OriginalBits: 128, CompressedBits: 16}}
	b := QuantizedLayer{Rows: 1, Cols: 4, Metrics: LayerMetrics{OriginalBits: 128, CompressedBits: 16}}

	summary := Aggregate([]QuantizedLayer{a, b})

	assert.Equal(t, uint64(256), summary.TotalOriginalBits)
	assert.Equal(t, uint64(32), summary.TotalCompressedBits)
	assert.Equal(t, 8, summary.TotalParameters)
}

func TestAggregate_TracksMaxResidualEnergyAcrossSubspaces(t *testing.T) {
	layer := QuantizedLayer{
		Rows: 1, Cols: 4,
		Telemetry: LayerTelemetry{
			Subspaces: []SubspaceTelemetry{
				{ResidualEnergy: 0.1},
				{ResidualEnergy: 0.9},
			},
		},
	}

	summary := Aggregate([]QuantizedLayer{layer})

	assert.InDelta(t, 0.9, summary.MaxResidualEnergy, 1e-6)
	assert.InDelta(t, 0.5, summary.AverageResidualEnergy, 1e-6)
}
