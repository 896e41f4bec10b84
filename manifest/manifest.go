// Package manifest folds a quantized model, its configuration, and its
// artifact chunk layout into one JSON document, grounded on
// novaq-manifest/src/lib.rs and novaq-io/src/manifest.rs::assemble_manifest.
package manifest

import (
	"encoding/json"

	"github.com/OHMS-DeAI/novaq-go/artifact"
	"github.com/OHMS-DeAI/novaq-go/quant"
)

// LayerManifest is the persisted summary of one quantized layer.
type LayerManifest struct {
	Name                   string  `json:"name"`
	Index                  int     `json:"index"`
	Rows                   int     `json:"rows"`
	Cols                   int     `json:"cols"`
	Seed                   uint64  `json:"seed"`
	SubspaceCount          int     `json:"subspace_count"`
	MSE                    float32 `json:"mse"`
	CosineSimilarity       float32 `json:"cosine_similarity"`
	KLDivergence           float32 `json:"kl_divergence"`
	BitsPerWeight          float32 `json:"bits_per_weight"`
	QuantizationTimeMicros uint64  `json:"quantization_time_micros"`
}

// Manifest is the top-level document written alongside a quantized model's
// artifact chunks.
type Manifest struct {
	FormatVersion int                       `json:"format_version"`
	Config        quant.Config              `json:"config"`
	Layers        []LayerManifest           `json:"layers"`
	Summary       quant.QuantizationSummary `json:"summary"`
	Chunks        []artifact.ChunkInfo      `json:"chunks"`
}

// currentFormatVersion is bumped whenever the JSON shape changes in a way
// that breaks older readers.
const currentFormatVersion = 1

// Assemble builds a Manifest from a quantized model, the configuration that
// produced it, and the chunk layout an artifact.Writer recorded while
// persisting it.
func Assemble(model quant.QuantizedModel, config quant.Config, chunks []artifact.ChunkInfo) Manifest {
	layers := make([]LayerManifest, len(model.Layers))
	for i, layer := range model.Layers {
		layers[i] = LayerManifest{
			Name:                   layer.Name,
			Index:                  layer.Index,
			Rows:                   layer.Rows,
			Cols:                   layer.Cols,
			Seed:                   layer.Seed,
			SubspaceCount:          len(layer.Subspaces),
			MSE:                    layer.Metrics.MSE,
			CosineSimilarity:       layer.Metrics.CosineSimilarity,
			KLDivergence:           layer.Metrics.KLDivergence,
			BitsPerWeight:          layer.Metrics.BitsPerWeight,
			QuantizationTimeMicros: layer.QuantizationTimeMicros,
		}
	}

	return Manifest{
		FormatVersion: currentFormatVersion,
		Config:        config,
		Layers:        layers,
		Summary:       model.Summary,
		Chunks:        append([]artifact.ChunkInfo(nil), chunks...),
	}
}

// MarshalIndentedJSON renders the manifest as indented JSON, matching the
// human-readable pretty-printing novaq-manifest ships for debugging.
func (m Manifest) MarshalIndentedJSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
