package quant

import (
	"math"
	"sort"
)

// epsNorm floors per-column standard deviation to avoid division by zero
// (spec.md §3, §4.2).
const epsNorm = 1e-6

// Normalizer applies outlier-aware per-column affine normalization.
type Normalizer struct {
	percentile float32
}

// NewNormalizer validates percentile is in the open interval (0, 1) and
// returns a Normalizer, per spec.md §4.2.
func NewNormalizer(percentile float32) (*Normalizer, error) {
	if percentile <= 0 || percentile >= 1 {
		return nil, newErr(ErrInvalidConfig, "outlier percentile must be in (0, 1), got %v", percentile)
	}
	return &Normalizer{percentile: percentile}, nil
}

// Normalize runs outlier-aware column normalization without analysis-driven
// percentile adjustment.
func (n *Normalizer) Normalize(weights Matrix) (Matrix, NormalizationRecord, error) {
	return n.NormalizeWithAnalysis(weights, nil)
}

// NormalizeWithAnalysis is the full procedure from spec.md §4.2: adjust the
// outlier percentile using kurtosis/sparsity from analysis (when given), pick
// a deterministic sort-based threshold, mask outliers, then normalize each
// column's remaining entries to zero mean / unit variance.
func (n *Normalizer) NormalizeWithAnalysis(weights Matrix, analysis *LayerAnalysis) (Matrix, NormalizationRecord, error) {
	if weights.Len() == 0 {
		return Matrix{}, NormalizationRecord{}, newErr(ErrEmptyInput, "normalizer received an empty tensor")
	}
	if err := validateFinite(weights, "normalization input"); err != nil {
		return Matrix{}, NormalizationRecord{}, err
	}

	rows, cols := weights.Rows(), weights.Cols()

	percentile := n.percentile
	if analysis != nil {
		if analysis.Kurtosis > 3.0 {
			scaling := float32(math.Min(float64(analysis.Kurtosis)/3.0, 5.0))
			percentile = float32(math.Min(float64(percentile*scaling), 0.1))
		}
		if analysis.Sparsity > 0.9 {
			percentile = float32(math.Max(float64(percentile*0.5), 1e-4))
		}
	}

	data := weights.RawData()
	magnitudes := make([]float32, len(data))
	for i, v := range data {
		magnitudes[i] = float32(math.Abs(float64(v)))
	}

	outlierCount := int(math.Ceil(float64(len(magnitudes)) * float64(percentile)))

	outlierThreshold := float32(math.Inf(1))
	if outlierCount > 0 && outlierCount < len(magnitudes) {
		sorted := make([]float32, len(magnitudes))
		copy(sorted, magnitudes)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		splitIndex := len(sorted) - outlierCount
		outlierThreshold = sorted[splitIndex]
	}

	normalized := weights.Clone()
	outlierSet := make(map[[2]int]bool)
	var outliers []OutlierEntry

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := normalized.At(r, c)
			if float32(math.Abs(float64(v))) >= outlierThreshold {
				outliers = append(outliers, OutlierEntry{Row: r, Col: c, Value: v})
				outlierSet[[2]int{r, c}] = true
				normalized.Set(r, c, 0)
			}
		}
	}

	means := make([]float32, cols)
	stds := make([]float32, cols)

	for c := 0; c < cols; c++ {
		var sum float64
		var weight int
		for r := 0; r < rows; r++ {
			if outlierSet[[2]int{r, c}] {
				continue
			}
			sum += float64(normalized.At(r, c))
			weight++
		}
		if weight < 1 {
			weight = 1
		}
		mean := sum / float64(weight)

		var variance float64
		for r := 0; r < rows; r++ {
			if outlierSet[[2]int{r, c}] {
				continue
			}
			diff := float64(normalized.At(r, c)) - mean
			variance += diff * diff
		}
		variance /= float64(weight)
		std := math.Max(math.Sqrt(variance), epsNorm)

		means[c] = float32(mean)
		stds[c] = float32(std)

		for r := 0; r < rows; r++ {
			if outlierSet[[2]int{r, c}] {
				continue
			}
			orig := float64(weights.At(r, c))
			normalized.Set(r, c, float32((orig-mean)/std))
		}
	}

	return normalized, NormalizationRecord{
		ColumnMeans: means,
		ColumnStds:  stds,
		Outliers:    outliers,
	}, nil
}

// Denormalize inverts Normalize: recon[r,c] = normalized[r,c]*std[c]+mean[c],
// then every recorded outlier position is overwritten with its original
// value.
func (n *Normalizer) Denormalize(normalized Matrix, record NormalizationRecord) Matrix {
	reconstructed := normalized.Clone()
	rows, cols := normalized.Rows(), normalized.Cols()

	for c := 0; c < cols; c++ {
		mean := record.ColumnMeans[c]
		std := float32(math.Max(float64(record.ColumnStds[c]), epsNorm))
		for r := 0; r < rows; r++ {
			v := normalized.At(r, c)
			reconstructed.Set(r, c, v*std+mean)
		}
	}

	for _, outlier := range record.Outliers {
		if outlier.Row < rows && outlier.Col < cols {
			reconstructed.Set(outlier.Row, outlier.Col, outlier.Value)
		}
	}

	return reconstructed
}
