package ingest

import (
	"math/rand"
	"strconv"

	"github.com/OHMS-DeAI/novaq-go/quant"
)

// MatrixProducer streams named weight matrices in a fixed order. Next
// returns false once exhausted; a producer is never rewound.
type MatrixProducer interface {
	Next() (name string, weights quant.Matrix, ok bool, err error)
}

// SyntheticProducer is an in-memory MatrixProducer that generates
// deterministic Gaussian matrices, standing in for a real checkpoint loader
// in tests, demos, and the CLI's quantize command.
type SyntheticProducer struct {
	layers []layerSpec
	cursor int
	rng    *rand.Rand
}

type layerSpec struct {
	name string
	rows int
	cols int
}

// NewSyntheticProducer builds a producer that yields layerCount matrices of
// shape (rows, cols), named "layer.<i>", seeded from seed for reproducible
// test fixtures and demos.
func NewSyntheticProducer(layerCount, rows, cols int, seed int64) *SyntheticProducer {
	layers := make([]layerSpec, layerCount)
	for i := range layers {
		layers[i] = layerSpec{name: syntheticLayerName(i), rows: rows, cols: cols}
	}
	return &SyntheticProducer{layers: layers, rng: rand.New(rand.NewSource(seed))}
}

// Next yields the next synthetic matrix, or ok=false once every layer has
// been produced.
func (p *SyntheticProducer) Next() (string, quant.Matrix, bool, error) {
	if p.cursor >= len(p.layers) {
		return "", quant.Matrix{}, false, nil
	}
	spec := p.layers[p.cursor]
	p.cursor++

	m := quant.NewMatrix(spec.rows, spec.cols)
	data := m.RawData()
	for i := range data {
		data[i] = float32(p.rng.NormFloat64())
	}
	return spec.name, m, true, nil
}

func syntheticLayerName(index int) string {
	return "layer." + strconv.Itoa(index)
}
