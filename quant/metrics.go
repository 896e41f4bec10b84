package quant

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// metricsEps guards the cosine-similarity denominator against near-zero
// norms and floors q in the KL divergence (spec.md §4.5).
const metricsEps = 1e-12

// ComputeLayerMetrics compares original against reconstructed and folds in
// compressedBits, producing the full LayerMetrics record from spec.md §4.5:
// MSE, cosine similarity, KL divergence (treating both matrices as
// probability distributions via stable softmax), and bit accounting.
func ComputeLayerMetrics(original, reconstructed Matrix, compressedBits uint64) LayerMetrics {
	origF64 := toFloat64Slice(original.RawData())
	reconF64 := toFloat64Slice(reconstructed.RawData())

	mse := meanSquaredError(origF64, reconF64)
	cosine := cosineSimilarity(origF64, reconF64)
	kl := klDivergence(origF64, reconF64)

	originalBits := uint64(original.Len()) * 32
	bitsPerWeight := float32(0)
	if original.Len() > 0 {
		bitsPerWeight = float32(compressedBits) / float32(original.Len())
	}

	return LayerMetrics{
		MSE:              float32(mse),
		CosineSimilarity: float32(cosine),
		KLDivergence:     float32(kl),
		OriginalBits:     originalBits,
		CompressedBits:   compressedBits,
		BitsPerWeight:    bitsPerWeight,
	}
}

// meanSquaredError computes mean((a-b)^2) in f64 via gonum/floats.
func meanSquaredError(a, b []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	diff := make([]float64, len(a))
	copy(diff, a)
	floats.Sub(diff, b)
	return floats.Dot(diff, diff) / float64(len(a))
}

// cosineSimilarity computes dot(a,b) / (||a|| * ||b|| + eps), uncentered,
// with the epsilon folded into the denominator rather than a hard cutoff so
// the result stays continuous as either norm approaches zero (spec.md §4.5).
func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 {
		return 1
	}
	dot := floats.Dot(a, b)
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	return dot / (normA*normB + metricsEps)
}

// klDivergence treats a and b as unnormalized logits, converts
// each through a numerically stable (max-subtracted) softmax, and computes
// KL(P || Q) = sum(p * log(p/q)). Falls back to a uniform distribution when
// the input's total mass is non-positive, per spec.md §4.5 and the original
// implementation's stabilization approach.
func klDivergence(a, b []float64) float64 {
	p := stableSoftmax(a)
	q := stableSoftmax(b)

	var divergence float64
	for i := range p {
		if p[i] <= 0 {
			continue
		}
		qi := q[i]
		if qi < metricsEps {
			qi = metricsEps
		}
		divergence += p[i] * math.Log(p[i]/qi)
	}
	return divergence
}

// stableSoftmax computes softmax(x) with the standard max-subtraction
// stabilization, falling back to a uniform distribution when the resulting
// sum is non-positive (e.g. every input was -Inf, which validateFinite
// already excludes for raw weights but not for derived metric inputs).
func stableSoftmax(x []float64) []float64 {
	n := len(x)
	out := make([]float64, n)
	if n == 0 {
		return out
	}

	maxVal := floats.Max(x)
	var sum float64
	for i, v := range x {
		e := math.Exp(v - maxVal)
		out[i] = e
		sum += e
	}

	if !(sum > 0) {
		uniform := 1.0 / float64(n)
		for i := range out {
			out[i] = uniform
		}
		return out
	}

	for i := range out {
		out[i] /= sum
	}
	return out
}

func toFloat64Slice(data []float32) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = float64(v)
	}
	return out
}
