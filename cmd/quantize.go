package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/OHMS-DeAI/novaq-go/artifact"
	"github.com/OHMS-DeAI/novaq-go/ingest"
	"github.com/OHMS-DeAI/novaq-go/manifest"
	"github.com/OHMS-DeAI/novaq-go/quant"
)

var (
	logLevel          string
	configPath        string
	syntheticLayers   int
	syntheticRows     int
	syntheticCols     int
	rootSeed          int64
	targetBits        float32
	outlierPercentile float32
	level1Centroids   int
	level2Centroids   int
	printManifest     bool
)

var quantizeCmd = &cobra.Command{
	Use:   "quantize",
	Short: "Quantize a synthetic model and print the resulting manifest",
	Run:   runQuantize,
}

func init() {
	quantizeCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (debug, info, warn, error)")
	quantizeCmd.Flags().StringVar(&configPath, "config", "", "Optional YAML file overriding quant.Config defaults")
	quantizeCmd.Flags().IntVar(&syntheticLayers, "layers", 4, "Number of synthetic layers to generate")
	quantizeCmd.Flags().IntVar(&syntheticRows, "rows", 64, "Rows per synthetic layer")
	quantizeCmd.Flags().IntVar(&syntheticCols, "cols", 64, "Columns per synthetic layer")
	quantizeCmd.Flags().Int64Var(&rootSeed, "seed", 42, "Root seed for synthetic data generation")
	quantizeCmd.Flags().Float32Var(&targetBits, "target-bits", 0, "Override target_bits (0 keeps the config value)")
	quantizeCmd.Flags().Float32Var(&outlierPercentile, "outlier-percentile", 0, "Override outlier_percentile (0 keeps the config value)")
	quantizeCmd.Flags().IntVar(&level1Centroids, "level1-centroids", 0, "Override level1_centroids (0 keeps the config value)")
	quantizeCmd.Flags().IntVar(&level2Centroids, "level2-centroids", 0, "Override level2_centroids (0 keeps the config value)")
	quantizeCmd.Flags().BoolVar(&printManifest, "print-manifest", true, "Print the assembled manifest as JSON")
}

func runQuantize(cmd *cobra.Command, args []string) {
	logrus.SetLevel(parseLogLevel(logLevel))

	config := quant.DefaultConfig()
	if configPath != "" {
		overlay, err := loadConfigOverlay(configPath)
		if err != nil {
			logrus.Fatalf("loading config overlay: %v", err)
		}
		config = applyOverlay(config, overlay)
	}

	// Flags always win over the YAML overlay, which always wins over the
	// struct defaults.
	if cmd.Flags().Changed("seed") {
		config.Seed = uint64(rootSeed)
	}
	if targetBits != 0 {
		config.TargetBits = targetBits
	}
	if outlierPercentile != 0 {
		config.OutlierPercentile = outlierPercentile
	}
	if level1Centroids != 0 {
		config.Level1Centroids = level1Centroids
	}
	if level2Centroids != 0 {
		config.Level2Centroids = level2Centroids
	}

	if err := config.Validate(); err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}

	logrus.Infof("quantizing %d synthetic layers (%dx%d), seed=%d, target_bits=%.2f",
		syntheticLayers, syntheticRows, syntheticCols, config.Seed, config.TargetBits)

	quantizer, err := quant.NewQuantizer(config)
	if err != nil {
		logrus.Fatalf("building quantizer: %v", err)
	}

	producer := ingest.NewSyntheticProducer(syntheticLayers, syntheticRows, syntheticCols, rootSeed)
	sources, err := collectSources(producer)
	if err != nil {
		logrus.Fatalf("collecting synthetic layers: %v", err)
	}

	model, err := quantizer.QuantizeModel(sources)
	if err != nil {
		logrus.Fatalf("quantization failed: %v", err)
	}

	logrus.Infof("quantized %d layers: compression ratio=%.2fx, bits/weight=%.3f, global MSE=%.6g",
		model.Summary.TotalLayers, model.Summary.CompressionRatio(), model.Summary.BitsPerWeight(), model.Summary.GlobalMSE)

	writer := artifact.NewWriter()
	for _, layer := range model.Layers {
		serialized, err := json.Marshal(layer)
		if err != nil {
			logrus.Fatalf("serializing quantized layer %q: %v", layer.Name, err)
		}
		if _, err := writer.WriteChunk(serialized); err != nil {
			logrus.Fatalf("writing artifact chunk for %q: %v", layer.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		logrus.Fatalf("closing artifact writer: %v", err)
	}

	doc := manifest.Assemble(model, config, writer.Chunks())
	if printManifest {
		data, err := doc.MarshalIndentedJSON()
		if err != nil {
			logrus.Fatalf("marshaling manifest: %v", err)
		}
		fmt.Println(string(data))
	}
}

func collectSources(producer ingest.MatrixProducer) ([]quant.LayerSource, error) {
	var sources []quant.LayerSource
	for {
		name, weights, ok, err := producer.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		sources = append(sources, quant.LayerSource{Name: name, Weights: weights})
	}
	return sources, nil
}
