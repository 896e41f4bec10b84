package quant

import "gonum.org/v1/gonum/floats"

// Aggregate folds a set of quantized layers into a parameter-count-weighted
// QuantizationSummary, per spec.md §4.7: larger layers contribute
// proportionally more to the global quality metrics, while bit totals and
// residual energy extremes are plain sums/extrema.
func Aggregate(layers []QuantizedLayer) QuantizationSummary {
	if len(layers) == 0 {
		return QuantizationSummary{}
	}

	weights := make([]float64, len(layers))
	mse := make([]float64, len(layers))
	cosine := make([]float64, len(layers))
	kl := make([]float64, len(layers))

	var totalParams int
	var totalOriginalBits, totalCompressedBits uint64
	var residualSum float64
	var residualCount int
	maxResidual := float32(0)

	for i, layer := range layers {
		params := layer.ParameterCount()
		weights[i] = float64(params)
		mse[i] = float64(layer.Metrics.MSE)
		cosine[i] = float64(layer.Metrics.CosineSimilarity)
		kl[i] = float64(layer.Metrics.KLDivergence)

		totalParams += params
		totalOriginalBits += layer.Metrics.OriginalBits
		totalCompressedBits += layer.Metrics.CompressedBits

		for _, subspace := range layer.Telemetry.Subspaces {
			residualSum += float64(subspace.ResidualEnergy)
			residualCount++
			if subspace.ResidualEnergy > maxResidual {
				maxResidual = subspace.ResidualEnergy
			}
		}
	}

	totalWeight := floats.Sum(weights)
	var globalMSE, globalCosine, globalKL float64
	if totalWeight > 0 {
		globalMSE = weightedMean(mse, weights, totalWeight)
		globalCosine = weightedMean(cosine, weights, totalWeight)
		globalKL = weightedMean(kl, weights, totalWeight)
	}

	averageResidual := float32(0)
	if residualCount > 0 {
		averageResidual = float32(residualSum / float64(residualCount))
	}

	return QuantizationSummary{
		TotalLayers:         len(layers),
		TotalParameters:     totalParams,
		TotalOriginalBits:   totalOriginalBits,
		TotalCompressedBits: totalCompressedBits,

		GlobalMSE:              float32(globalMSE),
		GlobalCosineSimilarity: float32(globalCosine),
		GlobalKLDivergence:     float32(globalKL),

		AverageResidualEnergy: averageResidual,
		MaxResidualEnergy:     maxResidual,
	}
}

// weightedMean computes sum(values[i]*weights[i]) / totalWeight.
func weightedMean(values, weights []float64, totalWeight float64) float64 {
	weighted := make([]float64, len(values))
	copy(weighted, values)
	floats.Mul(weighted, weights)
	return floats.Sum(weighted) / totalWeight
}
