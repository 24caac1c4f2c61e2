package bpfsscript

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	counts, err := m.Counts()
	require.NoError(t, err)
	require.Equal(t, map[string]float64{ResultOK: 0, ResultFail: 0, ResultError: 0}, counts)

	start := time.Now()
	m.observe(start, ResultOK)
	m.observe(start, ResultOK)
	m.observe(start, ResultFail)

	counts, err = m.Counts()
	require.NoError(t, err)
	require.Equal(t, 2.0, counts[ResultOK])
	require.Equal(t, 1.0, counts[ResultFail])

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, family := range families {
		names = append(names, family.GetName())
	}
	require.ElementsMatch(t, []string{"bpfsscript_verify_inputs_total",
		"bpfsscript_verify_input_seconds"}, names)
}
