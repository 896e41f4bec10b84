package quant

import "lukechampine.com/blake3"

// Config holds every tunable of the quantization pipeline. Field names and
// defaults follow spec.md §6 exactly.
type Config struct {
	// TargetBits is advisory; it does not gate the pipeline (spec.md §9 open
	// question). Accepted range [0.5, 8.0].
	TargetBits float32

	MaxSubspaceDim int
	MinSubspaceDim int

	Level1Centroids int
	Level2Centroids int

	OutlierPercentile float32

	MaxIterations int
	Tolerance     float32

	Seed uint64

	MinClusterSize int

	ResidualVarianceFloor float32
	MaxRefinementSteps    int
	RefinementLearningRate float32

	DistillationKLWeight     float32
	DistillationCosineWeight float32
}

// DefaultConfig returns the spec-mandated defaults (spec.md §6).
func DefaultConfig() Config {
	return Config{
		TargetBits:               1.5,
		MaxSubspaceDim:           16,
		MinSubspaceDim:           4,
		Level1Centroids:          16,
		Level2Centroids:          8,
		OutlierPercentile:        0.01,
		MaxIterations:            100,
		Tolerance:                1e-4,
		Seed:                     42,
		MinClusterSize:           4,
		ResidualVarianceFloor:    1e-6,
		MaxRefinementSteps:       25,
		RefinementLearningRate:   1e-2,
		DistillationKLWeight:     1.0,
		DistillationCosineWeight: 0.5,
	}
}

// Validate checks every bound from spec.md §6 and returns *Error wrapping
// ErrInvalidConfig on the first violation found.
func (c Config) Validate() error {
	switch {
	case c.TargetBits < 0.5 || c.TargetBits > 8.0:
		return newErr(ErrInvalidConfig, "target_bits must be in [0.5, 8.0], got %v", c.TargetBits)
	case c.MaxSubspaceDim <= 0:
		return newErr(ErrInvalidConfig, "max_subspace_dim must be greater than zero")
	case c.MinSubspaceDim <= 0 || c.MinSubspaceDim > c.MaxSubspaceDim:
		return newErr(ErrInvalidConfig, "min_subspace_dim must be > 0 and <= max_subspace_dim")
	case c.Level1Centroids < 2:
		return newErr(ErrInvalidConfig, "level1_centroids must be at least 2")
	case c.OutlierPercentile <= 0 || c.OutlierPercentile >= 1:
		return newErr(ErrInvalidConfig, "outlier_percentile must be in (0, 1), got %v", c.OutlierPercentile)
	case c.MaxIterations <= 0:
		return newErr(ErrInvalidConfig, "max_iterations must be positive")
	case c.Tolerance <= 0:
		return newErr(ErrInvalidConfig, "tolerance must be positive")
	case c.MinClusterSize <= 0:
		return newErr(ErrInvalidConfig, "min_cluster_size must be positive")
	case c.ResidualVarianceFloor <= 0:
		return newErr(ErrInvalidConfig, "residual_variance_floor must be positive")
	case c.MaxRefinementSteps <= 0:
		return newErr(ErrInvalidConfig, "max_refinement_steps must be positive")
	case c.RefinementLearningRate <= 0:
		return newErr(ErrInvalidConfig, "refinement_learning_rate must be positive")
	case c.DistillationKLWeight < 0 || c.DistillationCosineWeight < 0:
		return newErr(ErrInvalidConfig, "distillation weights must be non-negative")
	}
	return nil
}

// LayerSeed derives a per-layer seed as BLAKE3(seed || name || index),
// truncated to the first 8 bytes read little-endian, per spec.md §4.6 step 3
// and §9. Deriving per layer (rather than sharing one RNG) keeps layers
// independent while the whole model stays reproducible from the root seed.
func (c Config) LayerSeed(name string, index uint) uint64 {
	h := blake3.New(32, nil)
	var seedBuf [8]byte
	putUint64LE(seedBuf[:], c.Seed)
	h.Write(seedBuf[:])
	h.Write([]byte(name))
	var idxBuf [8]byte
	putUint64LE(idxBuf[:], uint64(index))
	h.Write(idxBuf[:])
	sum := h.Sum(nil)
	return uint64LE(sum[:8])
}

func putUint64LE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func uint64LE(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
