package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanPool_SingleTokenIsExact(t *testing.T) {
	out, err := MeanPool([][]float64{{0.125, -3.5, 7}})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.125, -3.5, 7}, out)
}

func TestMeanPool_IdenticalRows(t *testing.T) {
	row := []float64{0.1, 0.2, 0.3, -0.7}
	out, err := MeanPool([][]float64{row, row, row})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.1, 0.2, 0.3, -0.7}, out, 1e-6)
}

func TestMeanPool_AveragesPerDimension(t *testing.T) {
	out, err := MeanPool([][]float64{
		{1, 2},
		{3, 4},
		{5, 9},
	})
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 5}, out)
}

func TestMeanPool_IsOrderInvariant(t *testing.T) {
	a, err := MeanPool([][]float64{{1, 0}, {0, 1}, {2, 2}})
	require.NoError(t, err)
	b, err := MeanPool([][]float64{{2, 2}, {1, 0}, {0, 1}})
	require.NoError(t, err)
	assert.InDeltaSlice(t, a, b, 1e-7)
}

func TestMeanPool_Malformed(t *testing.T) {
	tests := map[string][][]float64{
		"no tokens": {},
		"zero dims": {{}},
		"ragged":    {{1, 2}, {3}},
		"nan":       {{1, math.NaN()}},
		"infinity":  {{math.Inf(1), 1}},
	}
	for name, tokens := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := MeanPool(tokens)
			assert.Error(t, err)
		})
	}
}
