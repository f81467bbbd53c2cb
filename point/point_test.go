package point

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSqrDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Vec[float32]
		expected float32
	}{
		{"Simple", Vec[float32]{1, 2, 3}, Vec[float32]{4, 5, 6}, 27},
		{"Zero", Vec[float32]{0, 0, 0}, Vec[float32]{0, 0, 0}, 0},
		{"Identical", Vec[float32]{1, 2, 3}, Vec[float32]{1, 2, 3}, 0},
		{"Mixed", Vec[float32]{1, -1}, Vec[float32]{-1, 1}, 8},
		{"Empty", Vec[float32]{}, Vec[float32]{}, 0},
		{"Single", Vec[float32]{2}, Vec[float32]{5}, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SqrDistance[float32](tt.a, tt.b)
			assert.InDelta(t, tt.expected, got, 1e-5)
		})
	}
}

func TestSqrDistancePrefixRule(t *testing.T) {
	// Mismatched dimension counts compare only the overlapping prefix.
	a := Vec[float64]{1, 2, 3, 4}
	b := Vec[float64]{1, 2}

	assert.InDelta(t, 0.0, SqrDistance[float64](a, b), 1e-12)
	assert.InDelta(t, 0.0, SqrDistance[float64](b, a), 1e-12)

	c := Vec[float64]{2, 4}
	assert.InDelta(t, 5.0, SqrDistance[float64](a, c), 1e-12)
}

func TestDistance(t *testing.T) {
	a := Vec[float64]{0, 0}
	b := Vec[float64]{3, 4}
	assert.InDelta(t, 5.0, Distance[float64](a, b), 1e-12)
}

func TestSquaredL2(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float64
		expected float64
	}{
		{"Simple", []float64{1, 2, 3}, []float64{4, 5, 6}, 27},
		{"Prefix", []float64{1, 2, 3}, []float64{1, 2}, 0},
		{"Empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SquaredL2(tt.a, tt.b)
			assert.InDelta(t, tt.expected, got, 1e-12)
		})
	}
}

func TestVec(t *testing.T) {
	v := Vec[float32]{1, 2, 3}
	assert.Equal(t, 3, v.Dims())
	assert.Equal(t, float32(2), v.Coord(1))

	c := v.Clone()
	assert.Equal(t, v, c)
	c[0] = 9
	assert.Equal(t, float32(1), v[0])
}

func TestInf(t *testing.T) {
	assert.True(t, math.IsInf(float64(Inf[float64]()), 1))
	assert.True(t, math.IsInf(float64(Inf[float32]()), 1))
}
