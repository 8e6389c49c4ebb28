package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logLevel string // Log verbosity level

	// Shared by every subcommand that reads a dataset
	datasetPath string  // Path to a YAML/JSON trace dataset
	traceID     string  // Trace to select; empty selects the first
	capacity    float64 // Knapsack capacity
	weightScale float64 // Integer grid resolution for the offline solver
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "knapsim",
	Short: "Online knapsack threshold-policy simulator",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// addDatasetFlags registers the dataset selection flags on c.
func addDatasetFlags(c *cobra.Command) {
	c.Flags().StringVar(&datasetPath, "dataset", "", "Path to a YAML or JSON trace dataset")
	c.Flags().StringVar(&traceID, "trace", "", "Trace ID within the dataset (default: first trace)")
	_ = c.MarkFlagRequired("dataset")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().Float64Var(&capacity, "capacity", 1.0, "Knapsack capacity")
	rootCmd.PersistentFlags().Float64Var(&weightScale, "weight-scale", 100, "Weight grid resolution for the offline optimum")
}
