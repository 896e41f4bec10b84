// Package quant implements the NOVAQ per-layer weight quantization pipeline.
//
// # Reading Guide
//
// Start with these files to understand the pipeline end to end:
//   - matrix.go: the Matrix type every other file operates on
//   - quantizer.go: QuantizeLayer, the single externally visible entry point
//   - analysis.go -> subspace.go -> normalization.go -> quantization.go -> metrics.go:
//     the six-stage pipeline each layer passes through, in order
//
// # Architecture
//
// quant is single-threaded and synchronous: QuantizeLayer is a blocking
// function of its inputs and a seed derived from (config, name, index). It
// never spawns goroutines and never retries; callers that want to bound
// total work skip layers at the producer level (see the ingest package).
//
// Every statistic a caller might assert on — iteration counts, inertia,
// residual energy — is returned as data on LayerTelemetry, not logged.
// Logging is the caller's concern (see cmd/quantize.go).
package quant
