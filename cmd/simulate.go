package cmd

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fairknap/knapsim/sim"
	"github.com/fairknap/knapsim/sim/trace"
	"github.com/fairknap/knapsim/sim/workload"
)

var (
	policyName       string  // Threshold policy
	alpha            float64 // Fairness parameter for baseline and ect
	gamma            float64 // Trust in the prediction for la-ect
	predictedDensity float64 // Predicted critical density for la-ect
	seed             int64   // Seed for zcl-randomized
	boundL           float64 // Density lower bound override
	boundU           float64 // Density upper bound override
	traceLevel       string  // Decision trace level
)

// simulateOutput is the JSON document printed by `knapsim simulate`.
type simulateOutput struct {
	Trace            string                `json:"trace"`
	Policy           sim.PolicyConfig      `json:"policy"`
	Bounds           sim.Bounds            `json:"bounds"`
	Result           *sim.SimulationResult `json:"result"`
	Optimum          float64               `json:"optimum"`
	CompetitiveRatio *float64              `json:"competitive_ratio,omitempty"` // nil when unbounded
	Unbounded        bool                  `json:"unbounded,omitempty"`
	Decisions        *trace.TraceSummary   `json:"decisions,omitempty"`
}

// simulateOptions carries everything runSimulate needs besides the trace.
type simulateOptions struct {
	Policy     sim.PolicyConfig
	Bounds     sim.Bounds
	Capacity   float64
	Scale      float64
	Seed       int64
	TraceLevel trace.TraceLevel
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run one threshold policy over one trace",
	Run: func(cmd *cobra.Command, args []string) {
		ds, tr := mustLoadTrace()

		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Unknown trace level %q. Valid: none, decisions", traceLevel)
		}

		cfg := sim.PolicyConfig{Policy: policyName, Alpha: alpha, Gamma: gamma, PredictedDensity: predictedDensity}
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("Invalid policy: %v", err)
		}
		if cfg.Policy == sim.PolicyLAECT && cfg.PredictedDensity == 0 {
			logrus.Fatalf("--predicted-density is required for %s", sim.PolicyLAECT)
		}

		b, err := ds.Bounds()
		if err != nil {
			logrus.Fatalf("Failed to derive bounds: %v", err)
		}
		if cmd.Flags().Changed("bound-l") {
			b.L = boundL
		}
		if cmd.Flags().Changed("bound-u") {
			b.U = boundU
		}

		opts := simulateOptions{Policy: cfg, Bounds: b, Capacity: capacity, Scale: weightScale, Seed: seed, TraceLevel: trace.TraceLevel(traceLevel)}
		if err := runSimulate(os.Stdout, tr, opts); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
	},
}

// runSimulate runs the policy over tr, compares it with the offline optimum
// and prints the outcome.
func runSimulate(w io.Writer, tr workload.NamedTrace, opts simulateOptions) error {
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(opts.Seed))
	policy, err := sim.NewPolicy(opts.Policy, opts.Bounds, rng.ForSubsystem(sim.SubsystemPolicy(opts.Policy.Policy, 0)))
	if err != nil {
		return fmt.Errorf("building policy: %w", err)
	}
	rec := trace.NewSimulationTrace(opts.TraceLevel)
	res, err := sim.Simulate(tr.Items, opts.Capacity, policy, rec)
	if err != nil {
		return err
	}
	opt, err := sim.SolveTrace(tr.Items, opts.Capacity, opts.Scale)
	if err != nil {
		return fmt.Errorf("offline optimum: %w", err)
	}

	out := simulateOutput{
		Trace:   tr.ID,
		Policy:  opts.Policy,
		Bounds:  opts.Bounds,
		Result:  res,
		Optimum: opt.Value,
	}
	if ratio := sim.CompetitiveRatio(opt.Value, res.Profit()); math.IsInf(ratio, 1) {
		out.Unbounded = true
	} else {
		out.CompetitiveRatio = &ratio
	}
	if rec.Enabled() {
		out.Decisions = trace.Summarize(rec)
	}
	logrus.Infof("trace %s: %s packed %d items for %.6f (optimum %.6f)",
		tr.ID, policy.Name(), len(res.Packed), res.Profit(), opt.Value)
	return writeJSON(w, out)
}

func init() {
	addDatasetFlags(simulateCmd)
	simulateCmd.Flags().StringVar(&policyName, "policy", sim.PolicyZCL, "Threshold policy (zcl, zcl-randomized, baseline, ect, la-ect)")
	simulateCmd.Flags().Float64Var(&alpha, "alpha", 0.5, "Fairness parameter in (0,1) for baseline and ect")
	simulateCmd.Flags().Float64Var(&gamma, "gamma", 0.5, "Trust in the prediction in [0,1] for la-ect")
	simulateCmd.Flags().Float64Var(&predictedDensity, "predicted-density", 0, "Predicted critical density for la-ect")
	simulateCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for zcl-randomized")
	simulateCmd.Flags().Float64Var(&boundL, "bound-l", 0, "Override the density lower bound L (default: dataset minimum)")
	simulateCmd.Flags().Float64Var(&boundU, "bound-u", 0, "Override the density upper bound U (default: dataset maximum)")
	simulateCmd.Flags().StringVar(&traceLevel, "trace-level", string(trace.TraceLevelNone), "Decision trace level (none, decisions); decisions adds a summary to the output")
	rootCmd.AddCommand(simulateCmd)
}
