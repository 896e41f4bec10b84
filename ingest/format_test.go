package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectFormat_RecognizesKnownExtensions(t *testing.T) {
	cases := map[string]ModelFormat{
		"model.safetensors": FormatSafeTensors,
		"model.GGUF":        FormatGGUF,
		"weights.bin":       FormatPyTorchStateDict,
		"model.onnx":        FormatONNX,
		"archive.tar.gz":    FormatArchive,
	}
	for locator, want := range cases {
		assert.Equal(t, want, DetectFormat(locator), locator)
	}
}

func TestDetectFormat_FallsBackToUnknownForUnrecognizedExtension(t *testing.T) {
	assert.Equal(t, FormatUnknown, DetectFormat("weights.strange"))
}

func TestDetectFormat_HuggingFaceSignalWinsOverFileExtension(t *testing.T) {
	cases := []string{
		"https://huggingface.co/meta-llama/Meta-Llama-3.1-8B-Instruct/resolve/main/consolidated.safetensors",
		"hf://meta-llama/Meta-Llama-3.1-8B-Instruct/consolidated.gguf",
	}
	for _, locator := range cases {
		assert.Equal(t, FormatHuggingFaceSnapshot, DetectFormat(locator), locator)
	}
}

func TestModelFormat_String_IsHumanReadable(t *testing.T) {
	assert.Equal(t, "safetensors", FormatSafeTensors.String())
	assert.Equal(t, "unknown", FormatUnknown.String())
}
