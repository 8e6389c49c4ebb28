package workload

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fairknap/knapsim/sim"
)

// NamedTrace is one arrival sequence in a dataset.
// Origin is the ID of the trace it was derived from (itself for originals),
// so shuffled copies can be grouped back to their source.
type NamedTrace struct {
	ID     string    `yaml:"id" json:"id"`
	Items  sim.Trace `yaml:"items" json:"items"`
	Origin string    `yaml:"-" json:"-"`
}

// Source returns the ID of the trace tr was derived from.
func (tr NamedTrace) Source() string {
	if tr.Origin == "" {
		return tr.ID
	}
	return tr.Origin
}

// Dataset is the top-level trace file.
// Loaded from YAML or JSON via LoadDataset(path).
type Dataset struct {
	Name   string       `yaml:"name,omitempty" json:"name,omitempty"`
	Traces []NamedTrace `yaml:"traces" json:"traces"`
}

// LoadDataset reads a dataset file. yaml.v3 also accepts JSON documents.
// Unknown fields are rejected so typos surface as errors.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	return ParseDataset(data)
}

// ParseDataset decodes and validates a dataset document.
func ParseDataset(data []byte) (*Dataset, error) {
	var ds Dataset
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&ds); err != nil {
		return nil, fmt.Errorf("parsing dataset: %w", err)
	}
	ds.normalize()
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

// normalize fills missing trace IDs and origins.
func (ds *Dataset) normalize() {
	for i := range ds.Traces {
		if ds.Traces[i].ID == "" {
			ds.Traces[i].ID = fmt.Sprintf("trace_%d", i)
		}
		if ds.Traces[i].Origin == "" {
			ds.Traces[i].Origin = ds.Traces[i].ID
		}
	}
}

// Validate checks that trace IDs are unique and every item is well formed.
func (ds *Dataset) Validate() error {
	if len(ds.Traces) == 0 {
		return fmt.Errorf("dataset has no traces")
	}
	seen := make(map[string]bool, len(ds.Traces))
	for i, tr := range ds.Traces {
		if seen[tr.ID] {
			return fmt.Errorf("trace[%d]: duplicate id %q", i, tr.ID)
		}
		seen[tr.ID] = true
		if err := tr.Items.Validate(); err != nil {
			return fmt.Errorf("trace %q: %w", tr.ID, err)
		}
	}
	return nil
}

// Bounds returns the global density bounds over every item in the dataset.
func (ds *Dataset) Bounds() (sim.Bounds, error) {
	return ComputeBounds(ds.Traces)
}

// ComputeBounds returns L and U as the minimum and maximum item density over
// all traces.
func ComputeBounds(traces []NamedTrace) (sim.Bounds, error) {
	items := make([]sim.Trace, len(traces))
	for i, tr := range traces {
		items[i] = tr.Items
	}
	return sim.BoundsOf(items...)
}

// Find returns the trace with the given ID.
func (ds *Dataset) Find(id string) (NamedTrace, bool) {
	for _, tr := range ds.Traces {
		if tr.ID == id {
			return tr, true
		}
	}
	return NamedTrace{}, false
}

// Save writes the dataset as YAML.
func (ds *Dataset) Save(path string) error {
	data, err := yaml.Marshal(ds)
	if err != nil {
		return fmt.Errorf("encoding dataset: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing dataset: %w", err)
	}
	return nil
}
