package impact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuintiles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []float64
		want   []int
	}{
		{
			name:   "five distinct values one per bin",
			values: []float64{50, 10, 30, 20, 40},
			want:   []int{4, 0, 2, 1, 3},
		},
		{
			name:   "ten values two per bin",
			values: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			want:   []int{0, 0, 1, 1, 2, 2, 3, 3, 4, 4},
		},
		{
			name: "ties broken by original order",
			// Three 5s: ranks 1, 2, 3 in input order.
			values: []float64{5, 5, 5, 1, 9, 2, 8},
			want:   []int{1, 2, 2, 0, 4, 0, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			bins, err := Quintiles(tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, bins)
		})
	}
}

func TestQuintilesBinSizesNearEqual(t *testing.T) {
	t.Parallel()

	for _, n := range []int{5, 23, 100, 101, 104, 997} {
		values := make([]float64, n)
		for i := range values {
			values[i] = float64((i * 7919) % n) // shuffled distinct-ish
		}
		bins, err := Quintiles(values)
		require.NoError(t, err, "n=%d", n)

		counts := make([]int, 5)
		for _, b := range bins {
			require.GreaterOrEqual(t, b, 0)
			require.Less(t, b, 5)
			counts[b]++
		}
		minC, maxC := counts[0], counts[0]
		for _, c := range counts[1:] {
			minC = min(minC, c)
			maxC = max(maxC, c)
		}
		assert.LessOrEqual(t, maxC-minC, 1, "n=%d counts=%v", n, counts)
	}
}

func TestQuintilesInsufficientVariation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []float64
	}{
		{"empty", nil},
		{"single value repeated", []float64{3, 3, 3, 3, 3, 3}},
		{"four distinct", []float64{1, 2, 3, 4, 4, 3, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Quintiles(tt.values)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInsufficientVariation)
		})
	}
}
