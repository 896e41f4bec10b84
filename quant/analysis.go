package quant

import "math"

// epsF64 guards divisions in moment ratios against near-zero denominators.
const epsF64 = 1e-12

// zeroThreshold is the magnitude below which an element counts toward
// sparsity (spec.md §4.1).
const zeroThreshold = 1e-8

// Analyze computes a LayerAnalysis from a weight matrix via a single-pass
// Welford accumulation for mean/variance (numerically stable against
// catastrophic cancellation) and a second pass for the third and fourth
// central moments, per spec.md §4.1.
func Analyze(weights Matrix) (LayerAnalysis, error) {
	if weights.Len() == 0 {
		return LayerAnalysis{}, newErr(ErrEmptyInput, "analyzer received an empty tensor")
	}
	if err := validateFinite(weights, "layer analysis input"); err != nil {
		return LayerAnalysis{}, err
	}

	rows, cols := weights.Rows(), weights.Cols()
	n := float64(rows * cols)

	var mean, m2, sumSq float64
	var zeroCount int
	var maxAbs float32
	var count int

	data := weights.RawData()
	for _, v := range data {
		v64 := float64(v)
		count++
		delta := v64 - mean
		mean += delta / float64(count)
		delta2 := v64 - mean
		m2 += delta * delta2

		sumSq += v64 * v64

		av := float32(math.Abs(float64(v)))
		if av <= zeroThreshold {
			zeroCount++
		}
		if av > maxAbs {
			maxAbs = av
		}
	}

	variance := 0.0
	if count > 1 {
		variance = m2 / n
	}
	if variance < 0 {
		variance = 0
	}
	std := math.Sqrt(variance)

	var m3, m4 float64
	for _, v := range data {
		diff := float64(v) - mean
		m3 += diff * diff * diff
		m4 += diff * diff * diff * diff
	}
	m3 /= n
	m4 /= n

	stdCubed := math.Max(std*std*std, epsF64)
	stdFourth := math.Max(std*std*std*std, epsF64)
	skewness := m3 / stdCubed
	kurtosis := m4 / stdFourth

	l2Norm := math.Sqrt(sumSq)
	sparsity := float32(zeroCount) / float32(count)

	columnVariances := make([]float32, cols)
	minColVar := float32(math.MaxFloat32)
	maxColVar := float32(0)
	for c := 0; c < cols; c++ {
		v := welfordColumnVariance(weights, c)
		columnVariances[c] = v
		if v < minColVar {
			minColVar = v
		}
		if v > maxColVar {
			maxColVar = v
		}
	}
	if minColVar <= 0 {
		minColVar = float32(epsF64)
	}
	var anisotropy float32
	if maxColVar <= float32(epsF64) {
		anisotropy = 1.0
	} else {
		anisotropy = maxColVar / (minColVar + float32(epsF64))
	}

	rowVariances := make([]float32, rows)
	for r := 0; r < rows; r++ {
		rowVariances[r] = welfordRowVariance(weights, r)
	}

	return LayerAnalysis{
		Rows:            rows,
		Cols:            cols,
		Mean:            float32(mean),
		Variance:        float32(variance),
		Std:             float32(std),
		Kurtosis:        float32(kurtosis),
		Skewness:        float32(skewness),
		Sparsity:        sparsity,
		MaxAbs:          maxAbs,
		L2Norm:          float32(l2Norm),
		Anisotropy:      anisotropy,
		ColumnVariances: columnVariances,
		RowVariances:    rowVariances,
	}, nil
}

// welfordColumnVariance computes the population variance of one column via
// Welford's online algorithm, accumulated in f64.
func welfordColumnVariance(m Matrix, col int) float32 {
	var mean, m2 float64
	var count int
	for r := 0; r < m.Rows(); r++ {
		v := float64(m.At(r, col))
		count++
		delta := v - mean
		mean += delta / float64(count)
		delta2 := v - mean
		m2 += delta * delta2
	}
	if count <= 1 {
		return 0
	}
	variance := m2 / float64(count)
	if variance < 0 {
		variance = 0
	}
	return float32(variance)
}

// welfordRowVariance computes the population variance of one row via
// Welford's online algorithm, accumulated in f64.
func welfordRowVariance(m Matrix, row int) float32 {
	var mean, m2 float64
	var count int
	for _, v64 := range toFloat64Row(m.Row(row)) {
		count++
		delta := v64 - mean
		mean += delta / float64(count)
		delta2 := v64 - mean
		m2 += delta * delta2
	}
	if count <= 1 {
		return 0
	}
	variance := m2 / float64(count)
	if variance < 0 {
		variance = 0
	}
	return float32(variance)
}

func toFloat64Row(row []float32) []float64 {
	out := make([]float64, len(row))
	for i, v := range row {
		out[i] = float64(v)
	}
	return out
}

// validateFinite rejects any NaN or +/-Inf element, reporting its position.
func validateFinite(m Matrix, context string) error {
	for r := 0; r < m.Rows(); r++ {
		for c := 0; c < m.Cols(); c++ {
			v := m.At(r, c)
			if math.IsNaN(float64(v)) {
				return newPositionalErr(ErrNonFiniteInput, r, c, "NaN detected in %s", context)
			}
			if math.IsInf(float64(v), 0) {
				return newPositionalErr(ErrNonFiniteInput, r, c, "infinite value (%v) detected in %s", v, context)
			}
		}
	}
	return nil
}
