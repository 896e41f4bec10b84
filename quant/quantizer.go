package quant

import (
	"fmt"
	"math/rand"
	"time"
)

// Quantizer orchestrates the full per-layer pipeline from spec.md §4.6:
// analyze, plan subspaces, derive a seed, normalize, quantize, reconstruct,
// denormalize, account bits, and compute metrics.
type Quantizer struct {
	config Config
	pq     *ProductQuantizer
}

// NewQuantizer validates config and returns a Quantizer.
func NewQuantizer(config Config) (*Quantizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	pq, err := NewProductQuantizer(config)
	if err != nil {
		return nil, err
	}
	return &Quantizer{config: config, pq: pq}, nil
}

// QuantizeLayer runs the full pipeline over weights with no distillation
// hint.
func (q *Quantizer) QuantizeLayer(name string, index uint, weights Matrix) (QuantizedLayer, error) {
	return q.QuantizeLayerWithHint(name, index, weights, nil)
}

// QuantizeLayerWithHint runs the full pipeline over weights, optionally
// blending toward hint during stage-1/stage-2 training (spec.md §4.6).
func (q *Quantizer) QuantizeLayerWithHint(name string, index uint, weights Matrix, hint *DistillationHint) (QuantizedLayer, error) {
	start := time.Now()

	analysis, plan, err := PlanSubspaces(q.config, weights)
	if err != nil {
		return QuantizedLayer{}, err
	}

	seed := q.config.LayerSeed(name, index)
	rng := rand.New(rand.NewSource(int64(seed)))

	normalizer, err := NewNormalizer(q.config.OutlierPercentile)
	if err != nil {
		return QuantizedLayer{}, err
	}
	normalized, normRecord, err := normalizer.NormalizeWithAnalysis(weights, &analysis)
	if err != nil {
		return QuantizedLayer{}, err
	}

	result, err := q.pq.Quantize(normalized, plan, rng, hint)
	if err != nil {
		return QuantizedLayer{}, err
	}

	reconstructedNormalized := Reconstruct(weights.Rows(), weights.Cols(), result.Subspaces)
	reconstructed := normalizer.Denormalize(reconstructedNormalized, normRecord)

	compressedBits := EstimateCompressedBits(weights.Rows(), result.Subspaces)
	metrics := ComputeLayerMetrics(weights, reconstructed, compressedBits)

	elapsed := time.Since(start)

	return QuantizedLayer{
		Name:  name,
		Index: int(index),

		Rows: weights.Rows(),
		Cols: weights.Cols(),
		Seed: seed,

		Normalization: normRecord,
		Subspaces:     result.Subspaces,
		Metrics:       metrics,

		QuantizationTimeMicros: uint64(elapsed.Microseconds()),
		Telemetry: LayerTelemetry{
			Analysis:  analysis,
			Subspaces: result.Telemetry,
		},
	}, nil
}

// LayerSource is one named matrix to quantize, supplied by a caller in
// QuantizeModel (the ingest package's producers build these).
type LayerSource struct {
	Name    string
	Weights Matrix
	Hint    *DistillationHint
}

// QuantizeModel quantizes every layer in sources, in order, assigning
// monotonically increasing indices starting at zero, and aggregates the
// results into a QuantizedModel (spec.md §4.7).
func (q *Quantizer) QuantizeModel(sources []LayerSource) (QuantizedModel, error) {
	layers := make([]QuantizedLayer, 0, len(sources))
	for idx, source := range sources {
		layer, err := q.QuantizeLayerWithHint(source.Name, uint(idx), source.Weights, source.Hint)
		if err != nil {
			return QuantizedModel{}, fmt.Errorf("layer %q (index %d): %w", source.Name, idx, err)
		}
		layers = append(layers, layer)
	}

	return QuantizedModel{
		Layers:  layers,
		Summary: Aggregate(layers),
	}, nil
}
