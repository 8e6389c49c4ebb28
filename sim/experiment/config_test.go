package experiment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairknap/knapsim/sim"
)

func TestDefaultPlan_IsValid(t *testing.T) {
	plan := DefaultPlan()
	require.NoError(t, plan.Validate())
	assert.True(t, plan.NeedsCalibration())
	assert.Nil(t, plan.Bounds)
}

func TestParsePlan_EmptyDocumentKeepsDefaults(t *testing.T) {
	plan, err := ParsePlan(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultPlan(), plan)
}

func TestParsePlan_OverridesFields(t *testing.T) {
	// GIVEN a plan that sets a few scalars and its own lineup
	doc := []byte(`
capacity: 2
seed: 7
shuffles: 100
prediction_error: 0.5
bounds: {L: 0.5, U: 40}
variants:
  - policy: zcl
  - name: fair
    policy: ect
    alpha: 0.4
  - policy: la-ect
    gamma: 0.5
    predicted_density: 3
`)

	// WHEN parsed
	plan, err := ParsePlan(doc)
	require.NoError(t, err)

	// THEN overrides apply and untouched fields keep defaults
	assert.Equal(t, 2.0, plan.Capacity)
	assert.Equal(t, int64(7), plan.Seed)
	assert.Equal(t, 100, plan.Shuffles)
	assert.Equal(t, 100.0, plan.WeightScale)
	assert.Equal(t, &sim.Bounds{L: 0.5, U: 40}, plan.Bounds)

	// AND the lineup is replaced with names defaulted to the policy
	require.Len(t, plan.Variants, 3)
	assert.Equal(t, "zcl", plan.Variants[0].Name)
	assert.Equal(t, "fair", plan.Variants[1].Name)
	assert.Equal(t, 0.4, plan.Variants[1].Alpha)
	assert.Equal(t, 3.0, plan.Variants[2].PredictedDensity)
	assert.False(t, plan.NeedsCalibration())
}

func TestParsePlan_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "capacityy: 1\n"},
		{"unknown variant key", "variants:\n  - policy: zcl\n    alfa: 1\n"},
		{"zero capacity", "capacity: 0\n"},
		{"negative workers", "workers: -1\n"},
		{"negative shuffles", "shuffles: -3\n"},
		{"negative prediction error", "prediction_error: -0.1\n"},
		{"zero cache", "cache_size: 0\n"},
		{"inverted bounds", "bounds: {L: 5, U: 1}\n"},
		{"unknown policy", "variants:\n  - policy: greedy\n"},
		{"bad alpha", "variants:\n  - policy: ect\n    alpha: 1\n"},
		{"duplicate names", "variants:\n  - policy: zcl\n  - policy: zcl\n"},
		{"calibration without delta", "calibration_delta: 0\nvariants:\n  - policy: la-ect\n    gamma: 0.5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePlan([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestParsePlan_FixedPredictionNeedsNoDelta(t *testing.T) {
	_, err := ParsePlan([]byte("calibration_delta: 0\nvariants:\n  - policy: la-ect\n    gamma: 0.5\n    predicted_density: 2\n"))
	assert.NoError(t, err)
}

func TestLoadPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 3\n"), 0o644))

	plan, err := LoadPlan(path)
	require.NoError(t, err)
	assert.Equal(t, 3, plan.Workers)

	_, err = LoadPlan(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
