package quant

import "math"

// SubspacePlanner tiles the column axis into SubspaceSpec ranges driven by
// layer statistics, per spec.md §4.3.
type SubspacePlanner struct {
	config Config
}

// NewSubspacePlanner returns a planner bound to config.
func NewSubspacePlanner(config Config) *SubspacePlanner {
	return &SubspacePlanner{config: config}
}

// Plan tiles [0, analysis.Cols) left to right. At each position the base
// width is clamped to the remaining columns, then adjusted by kurtosis,
// anisotropy, and sparsity heuristics, then clamped again to
// [min_subspace_dim, remaining]. Every spec also carries whether stage 2 is
// enabled and how many refinement steps to run.
func (p *SubspacePlanner) Plan(analysis LayerAnalysis) []SubspaceSpec {
	var plan []SubspaceSpec
	start := 0
	cols := analysis.Cols
	baseWidth := p.config.MaxSubspaceDim
	minWidth := p.config.MinSubspaceDim

	for start < cols {
		remaining := cols - start
		width := baseWidth
		if remaining < width {
			width = remaining
		}

		if analysis.Kurtosis > 6.0 {
			width = int(math.Ceil(float64(width) * 0.75))
		}
		if analysis.Anisotropy > 10.0 {
			width = int(math.Ceil(float64(width) * 0.5))
		}
		if analysis.Sparsity > 0.85 {
			width = int(math.Ceil(float64(width) * 1.25))
		}

		if width < minWidth {
			width = minWidth
		}
		if width > remaining {
			width = remaining
		}
		if width == 0 {
			width = remaining
		}

		enableStage2 := analysis.Kurtosis > 3.5 || analysis.Anisotropy > 4.0
		refinementSteps := p.config.MaxRefinementSteps / 2
		if refinementSteps < 1 {
			refinementSteps = 1
		}
		if enableStage2 {
			refinementSteps = p.config.MaxRefinementSteps
		}

		plan = append(plan, SubspaceSpec{
			Start:           start,
			End:             start + width,
			EnableStage2:    enableStage2,
			RefinementSteps: refinementSteps,
		})
		start += width
	}

	return plan
}

// PlanSubspaces analyzes weights and plans its subspaces in one call,
// mirroring spec.md §4.6 step 2.
func PlanSubspaces(config Config, weights Matrix) (LayerAnalysis, []SubspaceSpec, error) {
	analysis, err := Analyze(weights)
	if err != nil {
		return LayerAnalysis{}, nil, err
	}
	planner := NewSubspacePlanner(config)
	return analysis, planner.Plan(analysis), nil
}

// validatePlanCoverage checks that plan tiles [0, cols) without gaps,
// overlaps, or out-of-range endpoints (spec.md §3, §4.4.1).
func validatePlanCoverage(plan []SubspaceSpec, cols int) error {
	cursor := 0
	for _, spec := range plan {
		if spec.Start != cursor {
			return newErr(ErrPlanInvariantViolation, "subspace plan has a gap at column %d (expected start %d, got %d)", cursor, cursor, spec.Start)
		}
		if spec.End <= spec.Start {
			return newErr(ErrPlanInvariantViolation, "subspace plan has an empty or inverted range [%d, %d)", spec.Start, spec.End)
		}
		if spec.End > cols {
			return newErr(ErrPlanInvariantViolation, "subspace plan exceeded tensor width: %d > %d", spec.End, cols)
		}
		cursor = spec.End
	}
	if cursor != cols {
		return newErr(ErrPlanInvariantViolation, "subspace plan did not cover all columns: covered %d, expected %d", cursor, cols)
	}
	return nil
}
