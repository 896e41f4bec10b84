package quant

import (
	"math"
	"math/rand"
)

// DistillationHint carries an optional teacher matrix and temperature that
// bias a subspace's training data toward teacher-like behavior (spec.md §9:
// represented as a single optional value threaded by parameter, not a
// strategy interface, since there are exactly two modes).
type DistillationHint struct {
	TeacherLogits Matrix
	Temperature   float32
}

// QuantizationResult is the output of ProductQuantizer.Quantize: one
// QuantizedSubspace and one SubspaceTelemetry per plan entry, in order.
type QuantizationResult struct {
	Subspaces []QuantizedSubspace
	Telemetry []SubspaceTelemetry
}

// ProductQuantizer runs two-stage residual product quantization over a
// subspace plan. This is the core component of the package (spec.md §4.4):
// the rest of quant exists to feed and record it.
type ProductQuantizer struct {
	config Config
}

// NewProductQuantizer validates config and returns a ProductQuantizer.
func NewProductQuantizer(config Config) (*ProductQuantizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ProductQuantizer{config: config}, nil
}

// Quantize runs the per-subspace pipeline from spec.md §4.4.2 over every
// entry of plan, in order.
func (pq *ProductQuantizer) Quantize(normalized Matrix, plan []SubspaceSpec, rng *rand.Rand, hint *DistillationHint) (QuantizationResult, error) {
	rows, cols := normalized.Rows(), normalized.Cols()
	if rows == 0 || cols == 0 {
		return QuantizationResult{}, newErr(ErrEmptyInput, "product quantizer received an empty tensor")
	}
	if len(plan) == 0 {
		return QuantizationResult{}, newErr(ErrInvalidConfig, "subspace plan cannot be empty")
	}
	if err := validatePlanCoverage(plan, cols); err != nil {
		return QuantizationResult{}, err
	}
	if hint != nil {
		if hint.TeacherLogits.Rows() != rows || hint.TeacherLogits.Cols() != cols {
			return QuantizationResult{}, newErr(ErrDimensionMismatch, "teacher matrix shape (%d, %d) does not match weights (%d, %d)",
				hint.TeacherLogits.Rows(), hint.TeacherLogits.Cols(), rows, cols)
		}
	}

	subspaces := make([]QuantizedSubspace, 0, len(plan))
	telemetry := make([]SubspaceTelemetry, 0, len(plan))

	for _, spec := range plan {
		data := normalized.Slice(spec.Start, spec.End)

		trainingData := data
		if hint != nil {
			teacher := hint.TeacherLogits.Slice(spec.Start, spec.End)
			trainingData = blendForDistillation(data, teacher, hint.Temperature, pq.config.DistillationKLWeight, pq.config.DistillationCosineWeight)
		}

		stage1, err := runKMeans(pq.config, trainingData, pq.config.Level1Centroids, 1, rng)
		if err != nil {
			return QuantizationResult{}, err
		}
		if err := validateCentroidDistinctness(stage1.centroids, minCentroidDistance); err != nil {
			return QuantizationResult{}, err
		}

		stage1Contrib := reconstructFromCentroids(stage1.centroids, stage1.assignments)

		var stage2 *kmeansState
		var stage2Contrib *Matrix

		if spec.EnableStage2 && pq.config.Level2Centroids >= 2 && data.Cols() > 0 {
			residual := subtractMatrices(trainingData, stage1Contrib)
			if averageSquaredNorm(residual) > pq.config.ResidualVarianceFloor {
				state, err := runKMeans(pq.config, residual, pq.config.Level2Centroids, 2, rng)
				if err != nil {
					return QuantizationResult{}, err
				}
				if err := validateCentroidDistinctness(state.centroids, minCentroidDistance); err != nil {
					// Soft recovery (spec.md §7): skip stage 2 for this
					// subspace only, do not fail the layer.
					stage2 = nil
				} else {
					contrib := reconstructFromCentroids(state.centroids, state.assignments)
					stage2 = &state
					stage2Contrib = &contrib
				}
			}
		}

		residualEnergy := refineSubspace(data, trainingData, &stage1, &stage1Contrib, stage2, &stage2Contrib, spec, pq.config)

		telemetryEntry := SubspaceTelemetry{
			Start:            spec.Start,
			End:              spec.End,
			Stage1Iterations: stage1.iterations,
			Stage1Inertia:    stage1.inertia,
			ResidualEnergy:   residualEnergy,
			EnabledStage2:    stage2 != nil,
		}
		if stage2 != nil {
			telemetryEntry.Stage2Iterations = stage2.iterations
			telemetryEntry.Stage2Inertia = stage2.inertia
		}

		quantizedSubspace := QuantizedSubspace{
			Start:          spec.Start,
			End:            spec.End,
			ResidualEnergy: residualEnergy,
		}
		stage1Codebook, err := buildCodebookStage(1, stage1.centroids, stage1.assignments, stage1.iterations, stage1.inertia)
		if err != nil {
			return QuantizationResult{}, err
		}
		quantizedSubspace.Stage1 = stage1Codebook
		if stage2 != nil {
			stage2Codebook, err := buildCodebookStage(2, stage2.centroids, stage2.assignments, stage2.iterations, stage2.inertia)
			if err != nil {
				return QuantizationResult{}, err
			}
			quantizedSubspace.Stage2 = &stage2Codebook
		}

		subspaces = append(subspaces, quantizedSubspace)
		telemetry = append(telemetry, telemetryEntry)
	}

	return QuantizationResult{Subspaces: subspaces, Telemetry: telemetry}, nil
}

// Reconstruct rebuilds a rows x cols matrix from quantized subspaces by
// summing each row's assigned stage-1 (and stage-2, if present) centroid
// into its column range. Subspaces cover disjoint ranges so this
// parallelizes trivially, per spec.md §4.4.3 (not exploited here: the core
// is single-threaded, spec.md §5).
func Reconstruct(rows, cols int, subspaces []QuantizedSubspace) Matrix {
	reconstructed := NewMatrix(rows, cols)
	for _, subspace := range subspaces {
		for row := 0; row < rows; row++ {
			target := reconstructed.Row(row)[subspace.Start:subspace.End]
			idx := subspace.Stage1.Assignments[row]
			centroid := subspace.Stage1.Centroids.Row(int(idx))
			addAssign(target, centroid)
			if subspace.Stage2 != nil {
				idx2 := subspace.Stage2.Assignments[row]
				centroid2 := subspace.Stage2.Centroids.Row(int(idx2))
				addAssign(target, centroid2)
			}
		}
	}
	return reconstructed
}

// EstimateCompressedBits sums the per-subspace bit accounting from
// spec.md §4.4.4: K*width*32 centroid bits plus rows*ceil(log2 K) index bits,
// per stage, summed across subspaces.
func EstimateCompressedBits(rows int, subspaces []QuantizedSubspace) uint64 {
	var total uint64
	for _, subspace := range subspaces {
		width := uint64(subspace.Width())
		k1 := uint64(subspace.Stage1.K())
		level1Bits := k1*width*32 + uint64(rows)*bitsForIndices(k1)

		var level2Bits uint64
		if subspace.Stage2 != nil {
			k2 := uint64(subspace.Stage2.K())
			level2Bits = k2*width*32 + uint64(rows)*bitsForIndices(k2)
		}

		total += level1Bits + level2Bits
	}
	return total
}

func refineSubspace(original, training Matrix, stage1 *kmeansState, stage1Contrib *Matrix, stage2 *kmeansState, stage2Contrib **Matrix, spec SubspaceSpec, config Config) float32 {
	bestEnergy := residualEnergy(original, *stage1Contrib, *stage2Contrib)
	if spec.RefinementSteps == 0 {
		return bestEnergy
	}

	for step := 0; step < spec.RefinementSteps; step++ {
		changed := false
		changed = reassignAndUpdate(training, stage1, config.RefinementLearningRate) || changed
		*stage1Contrib = reconstructFromCentroids(stage1.centroids, stage1.assignments)

		if stage2 != nil {
			residualTraining := subtractMatrices(training, *stage1Contrib)
			changed = reassignAndUpdate(residualTraining, stage2, config.RefinementLearningRate) || changed
			contrib := reconstructFromCentroids(stage2.centroids, stage2.assignments)
			*stage2Contrib = &contrib
		}

		energy := residualEnergy(original, *stage1Contrib, *stage2Contrib)
		bestEnergy = energy

		if energy <= config.ResidualVarianceFloor || !changed {
			break
		}
	}

	return bestEnergy
}

// residualEnergy is the mean squared error between original and the sum of
// stage1 (+ optional stage2) reconstructions.
func residualEnergy(original, stage1 Matrix, stage2 *Matrix) float32 {
	var total float32
	origData := original.RawData()
	s1Data := stage1.RawData()
	n := len(origData)
	if n == 0 {
		return 0
	}
	if stage2 != nil {
		s2Data := stage2.RawData()
		for i := 0; i < n; i++ {
			diff := origData[i] - (s1Data[i] + s2Data[i])
			total += diff * diff
		}
	} else {
		for i := 0; i < n; i++ {
			diff := origData[i] - s1Data[i]
			total += diff * diff
		}
	}
	return total / float32(n)
}

// blendForDistillation mixes data with tanh-scaled teacher logits, per
// spec.md §4.4.2 step 2: D'[r,c] = D[r,c]*(1-a) + tanh(teacher/temp)*a,
// where a = min(kl_weight+cosine_weight, 4)/4.
func blendForDistillation(data, teacher Matrix, temperature, klWeight, cosineWeight float32) Matrix {
	blended := data.Clone()
	alpha := float32(math.Min(float64(klWeight+cosineWeight), 4.0)) / 4.0
	temp := temperature
	if temp < 1e-3 {
		temp = 1e-3
	}

	dest := blended.RawData()
	teacherData := teacher.RawData()
	for i := range dest {
		teacherScaled := float32(math.Tanh(float64(teacherData[i] / temp)))
		dest[i] = dest[i]*(1-alpha) + teacherScaled*alpha
	}
	return blended
}

func subtractMatrices(a, b Matrix) Matrix {
	out := a.Clone()
	outData := out.RawData()
	bData := b.RawData()
	for i := range outData {
		outData[i] -= bData[i]
	}
	return out
}

func addAssign(target, source []float32) {
	for i := range target {
		target[i] += source[i]
	}
}

func buildCodebookStage(stageID int, centroids Matrix, assignments []int, iterations int, inertia float32) (CodebookStage, error) {
	if len(assignments) >= (1 << 16) {
		return CodebookStage{}, newErr(ErrAssignmentOverflow, "number of assignments (%d) exceeds 16-bit capacity", len(assignments))
	}
	packed := make([]uint16, len(assignments))
	for i, idx := range assignments {
		packed[i] = uint16(idx)
	}
	return CodebookStage{
		StageID:     stageID,
		Centroids:   centroids,
		Assignments: packed,
		Iterations:  iterations,
		Inertia:     inertia,
	}, nil
}
