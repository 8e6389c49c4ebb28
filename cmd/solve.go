package cmd

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fairknap/knapsim/sim"
	"github.com/fairknap/knapsim/sim/workload"
)

// solveOutput is the JSON document printed by `knapsim solve`.
type solveOutput struct {
	Trace  string  `json:"trace"`
	Value  float64 `json:"value"`
	Weight float64 `json:"weight"`
	Packed []int   `json:"packed"`
}

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Compute the offline optimum of one trace",
	Run: func(cmd *cobra.Command, args []string) {
		_, tr := mustLoadTrace()
		if err := runSolve(os.Stdout, tr, capacity, weightScale); err != nil {
			logrus.Fatalf("Solve failed: %v", err)
		}
	},
}

// runSolve solves tr on the integer grid and prints the solution.
// Weight is reported in the original units.
func runSolve(w io.Writer, tr workload.NamedTrace, capacity, scale float64) error {
	sol, err := sim.SolveTrace(tr.Items, capacity, scale)
	if err != nil {
		return err
	}
	logrus.Infof("trace %s: optimum %.6f with %d of %d items", tr.ID, sol.Value, len(sol.Packed), len(tr.Items))
	return writeJSON(w, solveOutput{
		Trace:  tr.ID,
		Value:  sol.Value,
		Weight: float64(sol.Weight) / scale,
		Packed: sol.Packed,
	})
}

func init() {
	addDatasetFlags(solveCmd)
	rootCmd.AddCommand(solveCmd)
}
