package services

import (
	"fmt"
	"math"
)

// MeanPool averages a (T, D) token matrix along the token axis:
// out[d] = (1/T) * sum_t tokens[t][d]. Sums are accumulated in float64.
func MeanPool(tokens [][]float64) ([]float32, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("mean pool: no token vectors")
	}
	dims := len(tokens[0])
	if dims == 0 {
		return nil, fmt.Errorf("mean pool: zero-dimensional token vector")
	}

	sums := make([]float64, dims)
	for t, row := range tokens {
		if len(row) != dims {
			return nil, fmt.Errorf("mean pool: token %d has %d dims, want %d", t, len(row), dims)
		}
		for d, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("mean pool: non-finite value at token %d dim %d", t, d)
			}
			sums[d] += v
		}
	}

	n := float64(len(tokens))
	out := make([]float32, dims)
	for d, s := range sums {
		out[d] = float32(s / n)
	}
	return out, nil
}
