// Package artifact writes quantized layer payloads as content-addressed
// chunks, grounded on novaq-io's ArtifactWriter: every chunk carries both a
// sha256 and a blake3 digest so downstream consumers can verify against
// whichever hash their toolchain already trusts.
package artifact

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"

	"lukechampine.com/blake3"
)

// ErrWriterClosed is returned by any Write call after Close.
var ErrWriterClosed = errors.New("artifact: writer is closed")

// ChunkInfo describes one written chunk.
type ChunkInfo struct {
	Index     int
	SHA256    string
	BLAKE3    string
	ByteCount int
}

// Writer accumulates chunks in memory, dual-hashing each as it is written.
// A real deployment would stream chunks to object storage; this in-memory
// sink is sufficient for the CLI's single-process use (spec.md's non-goals
// exclude any inference or serving path that would need sharded storage).
type Writer struct {
	chunks []ChunkInfo
	blobs  [][]byte
	closed bool
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// WriteChunk hashes and stores payload, returning its ChunkInfo.
func (w *Writer) WriteChunk(payload []byte) (ChunkInfo, error) {
	if w.closed {
		return ChunkInfo{}, ErrWriterClosed
	}

	sha := sha256.Sum256(payload)
	b3 := blake3.Sum256(payload)

	info := ChunkInfo{
		Index:     len(w.chunks),
		SHA256:    hex.EncodeToString(sha[:]),
		BLAKE3:    hex.EncodeToString(b3[:]),
		ByteCount: len(payload),
	}

	w.chunks = append(w.chunks, info)
	blob := make([]byte, len(payload))
	copy(blob, payload)
	w.blobs = append(w.blobs, blob)

	return info, nil
}

// WriteFloat32Matrix serializes a row-major float32 slice into one chunk,
// little-endian, matching the wire layout novaq-io's artifact.rs uses for
// raw tensor chunks.
func (w *Writer) WriteFloat32Matrix(data []float32) (ChunkInfo, error) {
	payload := make([]byte, len(data)*4)
	for i, v := range data {
		binary.LittleEndian.PutUint32(payload[i*4:], math.Float32bits(v))
	}
	return w.WriteChunk(payload)
}

// Chunks returns every ChunkInfo written so far, in write order.
func (w *Writer) Chunks() []ChunkInfo {
	out := make([]ChunkInfo, len(w.chunks))
	copy(out, w.chunks)
	return out
}

// TotalBytes returns the sum of every chunk's ByteCount.
func (w *Writer) TotalBytes() int {
	total := 0
	for _, c := range w.chunks {
		total += c.ByteCount
	}
	return total
}

// Close marks the writer closed; further WriteChunk calls fail.
func (w *Writer) Close() error {
	w.closed = true
	return nil
}

