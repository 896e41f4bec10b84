package quant

import (
	"math"
	"math/rand"
)

// minCentroidDistance is the minimum pairwise L2 distance required between
// centroids to avoid degenerate clustering (spec.md §4.4.2 step 4, design
// value from spec.md §9).
const minCentroidDistance = 1e-3

// kmeansState is the mutable state of one clustering stage (stage 1 or
// stage 2) while it trains and refines. It is the Go analogue of the
// "tagged structure" spec.md §9 calls for: stage 2 is represented as an
// optional attached kmeansState rather than a polymorphic strategy.
type kmeansState struct {
	stageID     int
	centroids   Matrix
	assignments []int
	iterations  int
	inertia     float32
}

// runKMeans performs k-means++ seeding followed by Lloyd iteration on data,
// requesting k centroids, per spec.md §4.4.2 step 3.
func runKMeans(config Config, data Matrix, requestedCentroids int, stageID int, rng *rand.Rand) (kmeansState, error) {
	rows, dim := data.Rows(), data.Cols()
	if rows == 0 || dim == 0 {
		return kmeansState{}, newErr(ErrEmptyInput, "k-means received an empty subspace")
	}

	k := requestedCentroids
	if rows < k {
		k = rows
	}
	if k < 1 {
		k = 1
	}
	if k < config.MinClusterSize && rows >= config.MinClusterSize {
		return kmeansState{}, newErr(ErrInvalidConfig, "requested %d centroids but min_cluster_size is %d", requestedCentroids, config.MinClusterSize)
	}

	centroids := initializeCentroidsKMeansPlusPlus(data, k, rng)
	assignments := make([]int, rows)

	for iteration := 0; iteration < config.MaxIterations; iteration++ {
		inertia := assignPoints(data, centroids, assignments)
		newCentroids := recomputeCentroids(data, assignments, k)
		shift := centroidShift(centroids, newCentroids)
		centroids = newCentroids

		if shift < config.Tolerance {
			return kmeansState{
				stageID:     stageID,
				centroids:   centroids,
				assignments: assignments,
				iterations:  iteration + 1,
				inertia:     inertia,
			}, nil
		}
	}

	inertia := assignPoints(data, centroids, assignments)
	return kmeansState{
		stageID:     stageID,
		centroids:   centroids,
		assignments: assignments,
		iterations:  config.MaxIterations,
		inertia:     inertia,
	}, nil
}

// initializeCentroidsKMeansPlusPlus implements k-means++ seeding: the first
// center is chosen uniformly at random; each subsequent center is chosen
// with probability proportional to its squared distance from the nearest
// already-chosen center. When the cumulative probability mass is
// effectively zero, selection falls back to uniform (spec.md §4.4.2 step 3).
func initializeCentroidsKMeansPlusPlus(data Matrix, k int, rng *rand.Rand) Matrix {
	rows, dim := data.Rows(), data.Cols()
	centroids := NewMatrix(k, dim)

	firstIdx := rng.Intn(rows)
	copy(centroids.Row(0), data.Row(firstIdx))

	distances := make([]float32, rows)
	for centroidIdx := 1; centroidIdx < k; centroidIdx++ {
		for rowIdx := 0; rowIdx < rows; rowIdx++ {
			_, dist := closestCentroidAmong(data.Row(rowIdx), centroids, centroidIdx)
			distances[rowIdx] = dist
		}

		var totalDistance float32
		for _, d := range distances {
			totalDistance += d
		}
		if totalDistance <= 1e-9 {
			copy(centroids.Row(centroidIdx), data.Row(rng.Intn(rows)))
			continue
		}

		sample := rng.Float32() * totalDistance
		chosen := 0
		for idx, dist := range distances {
			sample -= dist
			if sample <= 0 {
				chosen = idx
				break
			}
			chosen = idx
		}
		copy(centroids.Row(centroidIdx), data.Row(chosen))
	}

	return centroids
}

// closestCentroidAmong finds the nearest centroid to point among the first
// activeCount rows of centroids.
func closestCentroidAmong(point []float32, centroids Matrix, activeCount int) (int, float32) {
	bestIdx := 0
	bestDistance := float32(math.MaxFloat32)
	for idx := 0; idx < activeCount; idx++ {
		d := squaredDistance(point, centroids.Row(idx))
		if d < bestDistance {
			bestDistance = d
			bestIdx = idx
		}
	}
	return bestIdx, bestDistance
}

// closestCentroid finds the nearest centroid to point among all rows of
// centroids.
func closestCentroid(point []float32, centroids Matrix) (int, float32) {
	return closestCentroidAmong(point, centroids, centroids.Rows())
}

func squaredDistance(a, b []float32) float32 {
	var sum float32
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

func rowSquaredNorm(row []float32) float32 {
	var sum float32
	for _, v := range row {
		sum += v * v
	}
	return sum
}

// assignPoints assigns each row of data to its nearest centroid, writing
// into assignments, and returns total inertia (sum of squared distances).
func assignPoints(data Matrix, centroids Matrix, assignments []int) float32 {
	var inertia float32
	for rowIdx := 0; rowIdx < data.Rows(); rowIdx++ {
		closest, distance := closestCentroid(data.Row(rowIdx), centroids)
		assignments[rowIdx] = closest
		inertia += distance
	}
	return inertia
}

// recomputeCentroids averages the rows assigned to each centroid. Empty
// clusters are filled deterministically with the row of largest squared L2
// norm in data, first match wins (spec.md §4.4.2 step 3, §9).
func recomputeCentroids(data Matrix, assignments []int, k int) Matrix {
	dim := data.Cols()
	counts := make([]int, k)
	newCentroids := NewMatrix(k, dim)

	for rowIdx := 0; rowIdx < data.Rows(); rowIdx++ {
		centroidIdx := assignments[rowIdx]
		counts[centroidIdx]++
		dest := newCentroids.Row(centroidIdx)
		src := data.Row(rowIdx)
		for d := 0; d < dim; d++ {
			dest[d] += src[d]
		}
	}

	var fallbackRow int
	var fallbackNorm float32 = -1
	for rowIdx := 0; rowIdx < data.Rows(); rowIdx++ {
		norm := rowSquaredNorm(data.Row(rowIdx))
		if norm > fallbackNorm {
			fallbackNorm = norm
			fallbackRow = rowIdx
		}
	}

	for idx, count := range counts {
		if count == 0 {
			copy(newCentroids.Row(idx), data.Row(fallbackRow))
			continue
		}
		row := newCentroids.Row(idx)
		for d := 0; d < dim; d++ {
			row[d] /= float32(count)
		}
	}

	return newCentroids
}

// centroidShift returns the RMS shift between old and new centroids.
func centroidShift(old, new_ Matrix) float32 {
	var shift float32
	n := old.Len()
	oldData, newData := old.RawData(), new_.RawData()
	for i := 0; i < n; i++ {
		diff := oldData[i] - newData[i]
		shift += diff * diff
	}
	if n == 0 {
		n = 1
	}
	return float32(math.Sqrt(float64(shift) / float64(n)))
}

// reconstructFromCentroids expands assignments into their assigned
// centroids, one row per assignment.
func reconstructFromCentroids(centroids Matrix, assignments []int) Matrix {
	dim := centroids.Cols()
	out := NewMatrix(len(assignments), dim)
	for row, centroidIdx := range assignments {
		copy(out.Row(row), centroids.Row(centroidIdx))
	}
	return out
}

// validateCentroidDistinctness ensures every pair of centroids is at least
// minDistance apart in L2, per spec.md §4.4.2 step 4 and §8.
func validateCentroidDistinctness(centroids Matrix, minDistance float32) error {
	k := centroids.Rows()
	if k < 2 {
		return nil
	}
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			dist := float32(math.Sqrt(float64(squaredDistance(centroids.Row(i), centroids.Row(j)))))
			if dist < minDistance {
				return newErr(ErrDegenerateClustering, "centroids %d and %d are too close (distance=%v, minimum=%v)", i, j, dist, minDistance)
			}
		}
	}
	return nil
}

// reassignAndUpdate re-assigns data against state's current centroids,
// recomputes them, and blends old/new centroids by learningRate. Returns
// whether anything changed (assignments or centroids beyond 1e-12), per
// spec.md §4.4.2 step 6 and the "changed" flag design note in §9.
func reassignAndUpdate(data Matrix, state *kmeansState, learningRate float32) bool {
	previousAssignments := make([]int, len(state.assignments))
	copy(previousAssignments, state.assignments)

	state.inertia = assignPoints(data, state.centroids, state.assignments)
	newCentroids := recomputeCentroids(data, state.assignments, state.centroids.Rows())

	blend := learningRate
	if blend < 0 {
		blend = 0
	}
	if blend > 1 {
		blend = 1
	}

	changedAssignments := false
	for i := range state.assignments {
		if state.assignments[i] != previousAssignments[i] {
			changedAssignments = true
			break
		}
	}

	changedCentroids := false
	oldData := state.centroids.RawData()
	newData := newCentroids.RawData()
	for i := range oldData {
		blended := oldData[i]*(1-blend) + newData[i]*blend
		if float32(math.Abs(float64(oldData[i]-blended))) > 1e-12 {
			changedCentroids = true
		}
		oldData[i] = blended
	}

	state.iterations++
	return changedAssignments || changedCentroids
}

func averageSquaredNorm(m Matrix) float32 {
	var total float32
	for _, v := range m.RawData() {
		total += v * v
	}
	n := m.Len()
	if n == 0 {
		n = 1
	}
	return total / float32(n)
}

func bitsForIndices(k uint64) uint64 {
	if k < 1 {
		k = 1
	}
	return uint64(math.Ceil(math.Log2(float64(k))))
}
