package utils

import (
	"testing"
)

func TestMinMaxInt(t *testing.T) {
	tests := []struct {
		a, b, min, max int
	}{
		{5, 10, 5, 10},
		{10, 5, 5, 10},
		{-5, 5, -5, 5},
		{0, 0, 0, 0},
	}

	for _, tt := range tests {
		if got := Min(tt.a, tt.b); got != tt.min {
			t.Errorf("Min(%d, %d) = %d, expected %d", tt.a, tt.b, got, tt.min)
		}
		if got := Max(tt.a, tt.b); got != tt.max {
			t.Errorf("Max(%d, %d) = %d, expected %d", tt.a, tt.b, got, tt.max)
		}
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		value, min, max, expected int
	}{
		{5, 0, 10, 5},
		{-5, 0, 10, 0},
		{15, 0, 10, 10},
	}

	for _, tt := range tests {
		if got := Clamp(tt.value, tt.min, tt.max); got != tt.expected {
			t.Errorf("Clamp(%d, %d, %d) = %d, expected %d", tt.value, tt.min, tt.max, got, tt.expected)
		}
	}
}

func TestClampFloat64(t *testing.T) {
	tests := []struct {
		value, min, max, expected float64
	}{
		{0.5, 0, 1, 0.5},
		{-0.2, 0, 1, 0},
		{130, 0, 100, 100},
	}

	for _, tt := range tests {
		if got := ClampFloat64(tt.value, tt.min, tt.max); got != tt.expected {
			t.Errorf("ClampFloat64(%f, %f, %f) = %f, expected %f", tt.value, tt.min, tt.max, got, tt.expected)
		}
	}
}

func TestCeilInt(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0, 0},
		{-3.5, 0},
		{0.01, 1},
		{8, 8},
		{8.0000001, 9},
	}

	for _, tt := range tests {
		if got := CeilInt(tt.in); got != tt.want {
			t.Errorf("CeilInt(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMeanSum(t *testing.T) {
	if Mean(nil) != 0 {
		t.Error("Mean of empty slice should be 0")
	}
	values := []float64{1, 2, 3, 4}
	if Sum(values) != 10 {
		t.Errorf("Sum = %f, expected 10", Sum(values))
	}
	if Mean(values) != 2.5 {
		t.Errorf("Mean = %f, expected 2.5", Mean(values))
	}
}

func TestMinMaxFloat(t *testing.T) {
	lo, hi := MinMax([]float64{3, -1, 7, 2})
	if lo != -1 || hi != 7 {
		t.Errorf("MinMax = (%f, %f), expected (-1, 7)", lo, hi)
	}
	lo, hi = MinMax(nil)
	if lo != 0 || hi != 0 {
		t.Errorf("MinMax(nil) = (%f, %f), expected (0, 0)", lo, hi)
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		value    float64
		decimals int
		expected float64
	}{
		{0.8649, 2, 0.86},
		{0.855, 1, 0.9},
		{0.9100000001, 2, 0.91},
		{123.456, 0, 123},
	}

	for _, tt := range tests {
		if got := Round(tt.value, tt.decimals); got != tt.expected {
			t.Errorf("Round(%f, %d) = %f, expected %f", tt.value, tt.decimals, got, tt.expected)
		}
	}
}

func TestAbs(t *testing.T) {
	if Abs(-600) != 600 || Abs(5) != 5 || Abs(0) != 0 {
		t.Errorf("Abs returned unexpected values")
	}
}
