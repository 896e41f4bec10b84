package manifest

import (
	"testing"

	"github.com/OHMS-DeAI/novaq-go/artifact"
	"github.com/OHMS-DeAI/novaq-go/quant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble_CarriesOneLayerManifestPerQuantizedLayer(t *testing.T) {
	model := quant.QuantizedModel{
		Layers: []quant.QuantizedLayer{
			{Name: "layer.0", Index: 0, Rows: 4, Cols: 4},
			{Name: "layer.1", Index: 1, Rows: 4, Cols: 4},
		},
	}

	m := Assemble(model, quant.DefaultConfig(), nil)

	require.Len(t, m.Layers, 2)
	assert.Equal(t, "layer.0", m.Layers[0].Name)
	assert.Equal(t, "layer.1", m.Layers[1].Name)
	assert.Equal(t, currentFormatVersion, m.FormatVersion)
}

func TestAssemble_CopiesChunksWithoutAliasingTheCaller(t *testing.T) {
	chunks := []artifact.ChunkInfo{{Index: 0, SHA256: "abc"}}
	m := Assemble(quant.QuantizedModel{}, quant.DefaultConfig(), chunks)

	chunks[0].SHA256 = "mutated"

	require.Len(t, m.Chunks, 1)
	assert.Equal(t, "abc", m.Chunks[0].SHA256)
}

func TestManifest_MarshalIndentedJSON_ProducesValidJSON(t *testing.T) {
	m := Assemble(quant.QuantizedModel{}, quant.DefaultConfig(), nil)

	data, err := m.MarshalIndentedJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), "\"format_version\"")
}
