// Package cmd is the cobra CLI front end for NOVAQ-Go, following the
// teacher's root.go convention of package-level flag variables bound in
// init() and a single logrus level parsed from a --log flag.
package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "novaq",
	Short: "Post-training weight quantization toolkit",
}

// Execute runs the root command, exiting the process on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(quantizeCmd)
}

func parseLogLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Fatalf("invalid log level: %s", level)
	}
	return parsed
}
