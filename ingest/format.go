// Package ingest supplies NOVAQ-Go's matrix producers: the thing that hands
// named weight tensors to quant.Quantizer.QuantizeModel. Real tensor-file
// parsing (SafeTensors, GGUF) is out of scope here, mirroring quant's own
// scope; format detection and a synthetic producer are kept because
// quantize_model needs a concrete producer to iterate.
package ingest

import "strings"

// ModelFormat identifies the on-disk layout of a model checkpoint, mirroring
// novaq-io's format sniffing.
type ModelFormat int

const (
	FormatUnknown ModelFormat = iota
	FormatSafeTensors
	FormatGGUF
	FormatHuggingFaceSnapshot
	FormatPyTorchStateDict
	FormatONNX
	FormatArchive
)

func (f ModelFormat) String() string {
	switch f {
	case FormatSafeTensors:
		return "safetensors"
	case FormatGGUF:
		return "gguf"
	case FormatHuggingFaceSnapshot:
		return "huggingface-snapshot"
	case FormatPyTorchStateDict:
		return "pytorch-state-dict"
	case FormatONNX:
		return "onnx"
	case FormatArchive:
		return "archive"
	default:
		return "unknown"
	}
}

// DetectFormat classifies a model locator (a file path or URL) the same way
// novaq-io's format.rs::ModelFormat::detect does: the hf:// scheme and
// huggingface.co host are checked first, since a HuggingFace resolve URL
// still ends in ".safetensors" or ".gguf" and would otherwise be
// misclassified by the extension checks below.
func DetectFormat(locator string) ModelFormat {
	lower := strings.ToLower(locator)
	switch {
	case strings.Contains(lower, "hf://"), strings.Contains(lower, "huggingface.co"):
		return FormatHuggingFaceSnapshot
	case strings.HasSuffix(lower, ".safetensors"):
		return FormatSafeTensors
	case strings.HasSuffix(lower, ".gguf"):
		return FormatGGUF
	case strings.HasSuffix(lower, ".onnx"):
		return FormatONNX
	case strings.HasSuffix(lower, ".pt"), strings.HasSuffix(lower, ".bin"):
		return FormatPyTorchStateDict
	case strings.HasSuffix(lower, ".tar"), strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".zip"):
		return FormatArchive
	default:
		return FormatUnknown
	}
}
