package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/OHMS-DeAI/novaq-go/quant"
)

// configOverlay mirrors quant.Config with every field optional, so a YAML
// file only has to name the values it wants to override. Strict
// KnownFields(true) decoding catches typos the same way the teacher's
// defaults.yaml loader does (cmd/default_config.go).
type configOverlay struct {
	TargetBits               *float32 `yaml:"target_bits"`
	MaxSubspaceDim           *int     `yaml:"max_subspace_dim"`
	MinSubspaceDim           *int     `yaml:"min_subspace_dim"`
	Level1Centroids          *int     `yaml:"level1_centroids"`
	Level2Centroids          *int     `yaml:"level2_centroids"`
	OutlierPercentile        *float32 `yaml:"outlier_percentile"`
	MaxIterations            *int     `yaml:"max_iterations"`
	Tolerance                *float32 `yaml:"tolerance"`
	Seed                     *uint64  `yaml:"seed"`
	MinClusterSize           *int     `yaml:"min_cluster_size"`
	ResidualVarianceFloor    *float32 `yaml:"residual_variance_floor"`
	MaxRefinementSteps       *int     `yaml:"max_refinement_steps"`
	RefinementLearningRate   *float32 `yaml:"refinement_learning_rate"`
	DistillationKLWeight     *float32 `yaml:"distillation_kl_weight"`
	DistillationCosineWeight *float32 `yaml:"distillation_cosine_weight"`
}

// loadConfigOverlay reads a YAML overlay file, failing on unknown fields.
func loadConfigOverlay(path string) (configOverlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return configOverlay{}, fmt.Errorf("reading config overlay %q: %w", path, err)
	}

	var overlay configOverlay
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&overlay); err != nil {
		return configOverlay{}, fmt.Errorf("parsing config overlay %q: %w", path, err)
	}
	return overlay, nil
}

// applyOverlay returns base with every non-nil overlay field substituted in.
// Flags applied after this call still win, per the CLI's documented
// precedence: flags > YAML overlay > struct defaults.
func applyOverlay(base quant.Config, overlay configOverlay) quant.Config {
	if overlay.TargetBits != nil {
		base.TargetBits = *overlay.TargetBits
	}
	if overlay.MaxSubspaceDim != nil {
		base.MaxSubspaceDim = *overlay.MaxSubspaceDim
	}
	if overlay.MinSubspaceDim != nil {
		base.MinSubspaceDim = *overlay.MinSubspaceDim
	}
	if overlay.Level1Centroids != nil {
		base.Level1Centroids = *overlay.Level1Centroids
	}
	if overlay.Level2Centroids != nil {
		base.Level2Centroids = *overlay.Level2Centroids
	}
	if overlay.OutlierPercentile != nil {
		base.OutlierPercentile = *overlay.OutlierPercentile
	}
	if overlay.MaxIterations != nil {
		base.MaxIterations = *overlay.MaxIterations
	}
	if overlay.Tolerance != nil {
		base.Tolerance = *overlay.Tolerance
	}
	if overlay.Seed != nil {
		base.Seed = *overlay.Seed
	}
	if overlay.MinClusterSize != nil {
		base.MinClusterSize = *overlay.MinClusterSize
	}
	if overlay.ResidualVarianceFloor != nil {
		base.ResidualVarianceFloor = *overlay.ResidualVarianceFloor
	}
	if overlay.MaxRefinementSteps != nil {
		base.MaxRefinementSteps = *overlay.MaxRefinementSteps
	}
	if overlay.RefinementLearningRate != nil {
		base.RefinementLearningRate = *overlay.RefinementLearningRate
	}
	if overlay.DistillationKLWeight != nil {
		base.DistillationKLWeight = *overlay.DistillationKLWeight
	}
	if overlay.DistillationCosineWeight != nil {
		base.DistillationCosineWeight = *overlay.DistillationCosineWeight
	}
	return base
}
