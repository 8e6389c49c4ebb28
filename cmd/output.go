package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/fairknap/knapsim/sim/workload"
)

// writeJSON pretty-prints v to w.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAMLToStdout marshals v to stdout, exiting on failure.
func writeYAMLToStdout(v any) {
	data, err := yaml.Marshal(v)
	if err != nil {
		logrus.Fatalf("YAML marshal failed: %v", err)
	}
	fmt.Print(string(data))
}

// writeJSONFile writes v as indented JSON to path.
func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeJSON(f, v); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// selectTrace returns the trace with the given ID, or the first trace when
// id is empty.
func selectTrace(ds *workload.Dataset, id string) (workload.NamedTrace, error) {
	if id == "" {
		return ds.Traces[0], nil
	}
	tr, ok := ds.Find(id)
	if !ok {
		return workload.NamedTrace{}, fmt.Errorf("trace %q not found in dataset", id)
	}
	return tr, nil
}

// mustLoadTrace loads the dataset flag and selects the trace flag.
func mustLoadTrace() (*workload.Dataset, workload.NamedTrace) {
	ds, err := workload.LoadDataset(datasetPath)
	if err != nil {
		logrus.Fatalf("Failed to load dataset %s: %v", datasetPath, err)
	}
	tr, err := selectTrace(ds, traceID)
	if err != nil {
		logrus.Fatalf("%v", err)
	}
	return ds, tr
}
