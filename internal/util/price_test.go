package util

import (
	"math"
	"testing"
)

func TestRoundToTick(t *testing.T) {
	tests := []struct {
		name     string
		x        float64
		tick     float64
		expected float64
	}{
		{
			name:     "basic rounding down",
			x:        1.2345,
			tick:     0.01,
			expected: 1.23,
		},
		{
			name:     "tie rounds away from zero",
			x:        1.235,
			tick:     0.01,
			expected: 1.24,
		},
		{
			name:     "negative tie rounds away from zero",
			x:        -1.235,
			tick:     0.01,
			expected: -1.24,
		},
		{
			name:     "negative basic rounding",
			x:        -1.2345,
			tick:     0.01,
			expected: -1.23,
		},
		{
			name:     "larger tick size",
			x:        1.27,
			tick:     0.05,
			expected: 1.25,
		},
		{
			name:     "exact multiple",
			x:        1.25,
			tick:     0.05,
			expected: 1.25,
		},
		{
			name:     "zero tick returns input",
			x:        1.2345,
			tick:     0,
			expected: 1.2345,
		},
		{
			name:     "negative tick returns input",
			x:        1.2345,
			tick:     -0.01,
			expected: 1.2345,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RoundToTick(tt.x, tt.tick)
			if math.Abs(result-tt.expected) > 1e-10 {
				t.Errorf("RoundToTick(%v, %v) = %v, expected %v", tt.x, tt.tick, result, tt.expected)
			}
		})
	}
}

func TestRoundToTickNaN(t *testing.T) {
	if result := RoundToTick(math.NaN(), 0.01); !math.IsNaN(result) {
		t.Errorf("RoundToTick(NaN, 0.01) = %v, expected NaN", result)
	}
}

func TestClamp01(t *testing.T) {
	tests := []struct {
		name     string
		x        float64
		expected float64
	}{
		{
			name:     "in range",
			x:        0.42,
			expected: 0.42,
		},
		{
			name:     "below zero clamps to zero",
			x:        -0.1,
			expected: 0,
		},
		{
			name:     "above one clamps to one",
			x:        1.3,
			expected: 1,
		},
		{
			name:     "exact zero",
			x:        0,
			expected: 0,
		},
		{
			name:     "exact one",
			x:        1,
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := Clamp01(tt.x); result != tt.expected {
				t.Errorf("Clamp01(%v) = %v, expected %v", tt.x, result, tt.expected)
			}
		})
	}
}
