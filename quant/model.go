package quant

// LayerAnalysis is an immutable statistical snapshot of one weight matrix.
// See spec.md §3 for invariants.
type LayerAnalysis struct {
	Rows, Cols int

	Mean     float32
	Variance float32
	Std      float32

	// Kurtosis is the raw fourth-moment ratio (not excess kurtosis), per
	// spec.md §9's open question resolution: callers must not subtract 3.
	Kurtosis float32
	Skewness float32

	Sparsity float32
	MaxAbs   float32
	L2Norm   float32

	// Anisotropy is the ratio of largest to smallest per-column variance,
	// floored per spec.md §4.1.
	Anisotropy float32

	ColumnVariances []float32
	RowVariances    []float32
}

// OutlierEntry records one position masked out during normalization and the
// original value to restore on denormalization.
type OutlierEntry struct {
	Row, Col int
	Value    float32
}

// NormalizationRecord holds per-column affine parameters plus the outlier
// list produced by Normalizer.Normalize.
type NormalizationRecord struct {
	ColumnMeans []float32
	ColumnStds  []float32
	Outliers    []OutlierEntry
}

// SubspaceSpec is a half-open column range plus per-subspace options emitted
// by the subspace planner.
type SubspaceSpec struct {
	Start, End     int
	EnableStage2   bool
	RefinementSteps int
}

// Width returns End - Start.
func (s SubspaceSpec) Width() int { return s.End - s.Start }

// CodebookStage is one level of a two-level product quantizer for one
// subspace.
type CodebookStage struct {
	StageID int

	// Centroids is K x subspace_width.
	Centroids Matrix

	// Assignments holds one index into [0, K) per row, stored as uint16 to
	// bound memory (spec.md §3: AssignmentOverflow above 2^16 rows).
	Assignments []uint16

	Iterations int
	Inertia    float32
}

// K returns the number of centroids in this stage.
func (s CodebookStage) K() int { return s.Centroids.Rows() }

// QuantizedSubspace is the persisted result of quantizing one column range.
type QuantizedSubspace struct {
	Start, End int

	Stage1 CodebookStage
	Stage2 *CodebookStage

	// ResidualEnergy is the subspace reconstruction MSE against the
	// pre-blend (pre-normalization-adjacent) input restricted to these
	// columns.
	ResidualEnergy float32
}

// Width returns End - Start.
func (q QuantizedSubspace) Width() int { return q.End - q.Start }

// LayerMetrics captures reconstruction quality and bit accounting for one
// layer.
type LayerMetrics struct {
	MSE               float32
	CosineSimilarity  float32
	KLDivergence      float32
	OriginalBits      uint64
	CompressedBits    uint64
	BitsPerWeight     float32
}

// CompressionRatio returns OriginalBits / CompressedBits, or 0 when
// CompressedBits is zero.
func (m LayerMetrics) CompressionRatio() float32 {
	if m.CompressedBits == 0 {
		return 0
	}
	return float32(m.OriginalBits) / float32(m.CompressedBits)
}

// SubspaceTelemetry is the per-subspace telemetry captured alongside the
// QuantizedSubspace it describes (spec.md §9: telemetry is data, not
// logging).
type SubspaceTelemetry struct {
	Start, End int

	Stage1Iterations int
	Stage2Iterations int // 0 when stage 2 was not enabled
	Stage1Inertia    float32
	Stage2Inertia    float32 // 0 when stage 2 was not enabled

	ResidualEnergy float32
	EnabledStage2  bool
}

// LayerTelemetry combines the original analysis with per-subspace telemetry.
type LayerTelemetry struct {
	Analysis   LayerAnalysis
	Subspaces  []SubspaceTelemetry
}

// QuantizedLayer is the externally visible result of quantizing one layer
// (spec.md §3). It is the persistence unit handed to the artifact sink.
type QuantizedLayer struct {
	Name  string
	Index int

	Rows, Cols int
	Seed       uint64

	Normalization NormalizationRecord
	Subspaces     []QuantizedSubspace
	Metrics       LayerMetrics

	QuantizationTimeMicros uint64
	Telemetry              LayerTelemetry
}

// ParameterCount returns Rows * Cols.
func (l QuantizedLayer) ParameterCount() int { return l.Rows * l.Cols }

// QuantizationSummary holds parameter-weighted aggregate metrics over a
// QuantizedModel's layers (spec.md §3, §4.7).
type QuantizationSummary struct {
	TotalLayers         int
	TotalParameters      int
	TotalOriginalBits    uint64
	TotalCompressedBits  uint64

	GlobalMSE              float32
	GlobalCosineSimilarity float32
	GlobalKLDivergence     float32

	AverageResidualEnergy float32
	MaxResidualEnergy     float32
}

// CompressionRatio returns TotalOriginalBits / TotalCompressedBits, or 0 when
// the denominator is zero.
func (s QuantizationSummary) CompressionRatio() float32 {
	if s.TotalCompressedBits == 0 {
		return 0
	}
	return float32(s.TotalOriginalBits) / float32(s.TotalCompressedBits)
}

// BitsPerWeight returns TotalCompressedBits / TotalParameters, or 0 when the
// denominator is zero.
func (s QuantizationSummary) BitsPerWeight() float32 {
	if s.TotalParameters == 0 {
		return 0
	}
	return float32(s.TotalCompressedBits) / float32(s.TotalParameters)
}

// QuantizedModel owns a sequence of layers plus their aggregate summary. No
// layer is shared with any other QuantizedModel.
type QuantizedModel struct {
	Layers  []QuantizedLayer
	Summary QuantizationSummary
}
