package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fairknap/knapsim/sim/experiment"
	"github.com/fairknap/knapsim/sim/workload"
)

var (
	planPath        string  // Experiment plan YAML
	expSeed         int64   // Master seed override
	workers         int     // Worker pool size override
	shuffles        int     // Shuffled copies per trace override
	predictionError float64 // Prediction noise override
	ecdfOut         string  // Optional ECDF JSON output path
	reportJSON      bool    // Print the full report as JSON
)

// ecdfDocument is the --ecdf-out file: one ECDF per variant.
type ecdfDocument struct {
	Variants []variantECDF `json:"variants"`
}

type variantECDF struct {
	Variant string                 `json:"variant"`
	Points  []experiment.ECDFPoint `json:"points"`
}

var experimentCmd = &cobra.Command{
	Use:   "experiment",
	Short: "Evaluate a lineup of policies over a dataset",
	Long:  "Run every plan variant over every trace (and its shuffled copies), then report competitive ratios optimal/achieved per variant.",
	Run: func(cmd *cobra.Command, args []string) {
		plan := experiment.DefaultPlan()
		if planPath != "" {
			var err error
			if plan, err = experiment.LoadPlan(planPath); err != nil {
				logrus.Fatalf("Failed to load plan %s: %v", planPath, err)
			}
		}
		// CLI flags override plan values only when set explicitly
		if cmd.Flags().Changed("capacity") {
			plan.Capacity = capacity
		}
		if cmd.Flags().Changed("weight-scale") {
			plan.WeightScale = weightScale
		}
		if cmd.Flags().Changed("seed") {
			plan.Seed = expSeed
		}
		if cmd.Flags().Changed("workers") {
			plan.Workers = workers
		}
		if cmd.Flags().Changed("shuffles") {
			plan.Shuffles = shuffles
		}
		if cmd.Flags().Changed("prediction-error") {
			plan.PredictionError = predictionError
		}

		ds, err := workload.LoadDataset(datasetPath)
		if err != nil {
			logrus.Fatalf("Failed to load dataset %s: %v", datasetPath, err)
		}
		if err := runExperiment(cmd.Context(), os.Stdout, plan, ds); err != nil {
			logrus.Fatalf("Experiment failed: %v", err)
		}
	},
}

// runExperiment runs plan over ds and writes the report to w.
func runExperiment(ctx context.Context, w io.Writer, plan *experiment.Plan, ds *workload.Dataset) error {
	if ctx == nil {
		ctx = context.Background()
	}
	runner, err := experiment.NewRunner(plan)
	if err != nil {
		return fmt.Errorf("invalid plan: %w", err)
	}
	report, err := runner.Run(ctx, ds)
	if err != nil {
		return err
	}

	if ecdfOut != "" {
		if err := writeJSONFile(ecdfOut, buildECDF(report)); err != nil {
			return fmt.Errorf("writing ECDF: %w", err)
		}
		logrus.Infof("ECDF written to %s", ecdfOut)
	}
	if reportJSON {
		return writeJSON(w, report)
	}
	return printReport(w, report)
}

func buildECDF(report *experiment.Report) ecdfDocument {
	doc := ecdfDocument{Variants: make([]variantECDF, 0, len(report.Results))}
	for _, res := range report.Results {
		doc.Variants = append(doc.Variants, variantECDF{Variant: res.Variant, Points: experiment.ECDF(res.Ratios)})
	}
	return doc
}

// printReport renders one row per variant.
func printReport(w io.Writer, report *experiment.Report) error {
	fmt.Fprintf(w, "=== Competitive Ratios (L=%g, U=%g, %d traces) ===\n", report.Bounds.L, report.Bounds.U, report.Traces)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "variant\tmean\tp50\tp90\tp99\tmax\tunbounded\tfailed")
	for _, res := range report.Results {
		s := res.Summary
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%d\t%d\n",
			res.Variant, s.Mean, s.P50, s.P90, s.P99, s.Max, res.Unbounded, len(res.Failures))
	}
	return tw.Flush()
}

func init() {
	experimentCmd.Flags().StringVar(&datasetPath, "dataset", "", "Path to a YAML or JSON trace dataset")
	_ = experimentCmd.MarkFlagRequired("dataset")
	experimentCmd.Flags().StringVar(&planPath, "plan", "", "Experiment plan YAML (default: built-in lineup)")
	experimentCmd.Flags().Int64Var(&expSeed, "seed", 42, "Master seed for shuffles, predictions and randomized policies")
	experimentCmd.Flags().IntVar(&workers, "workers", 0, "Concurrent trace evaluations (0 = number of CPUs)")
	experimentCmd.Flags().IntVar(&shuffles, "shuffles", 0, "Shuffled arrival orders per trace (0 = recorded order)")
	experimentCmd.Flags().Float64Var(&predictionError, "prediction-error", 0, "Standard deviation of multiplicative prediction noise")
	experimentCmd.Flags().StringVar(&ecdfOut, "ecdf-out", "", "Write per-variant ECDF points of the ratios to this JSON file")
	experimentCmd.Flags().BoolVar(&reportJSON, "json", false, "Print the full report as JSON instead of a table")
	rootCmd.AddCommand(experimentCmd)
}
