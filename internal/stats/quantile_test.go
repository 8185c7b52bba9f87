package stats

import (
	"math"
	"testing"
)

func TestQuantile_LinearInterpolation(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		p      float64
		want   float64
	}{
		{"median of odd count", []float64{3, 1, 2}, 0.5, 2},
		{"median interpolates between middle pair", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"q1 of four values", []float64{1, 2, 3, 4}, 0.25, 1.75},
		{"q3 of four values", []float64{1, 2, 3, 4}, 0.75, 3.25},
		{"q1 of five values", []float64{10, 12, 11, 13, 1000}, 0.25, 11},
		{"q3 of five values", []float64{10, 12, 11, 13, 1000}, 0.75, 13},
		{"p=0 is the minimum", []float64{5, 1, 9}, 0, 1},
		{"p=1 is the maximum", []float64{5, 1, 9}, 1, 9},
		{"single value", []float64{7}, 0.5, 7},
		{"interpolated tenth percentile", []float64{0, 10}, 0.1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Quantile(tt.values, tt.p)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Quantile(%v, %v) = %v, want %v", tt.values, tt.p, got, tt.want)
			}
		})
	}
}

func TestQuantile_Empty(t *testing.T) {
	if got := Quantile(nil, 0.5); !math.IsNaN(got) {
		t.Errorf("Quantile(nil) = %v, want NaN", got)
	}
}

func TestQuantile_DoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Quantile(values, 0.5)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input mutated: %v", values)
	}
}

func TestIQRFences(t *testing.T) {
	// Sorted: [10 11 12 13 1000]; Q1=11, Q3=13, IQR=2, k=1.5 → [8, 16].
	f, ok := IQRFences([]float64{10, 12, 11, 13, 1000}, 1.5)
	if !ok {
		t.Fatal("IQRFences() ok = false")
	}
	if f.Q1 != 11 || f.Q3 != 13 {
		t.Errorf("quartiles = (%v, %v), want (11, 13)", f.Q1, f.Q3)
	}
	if f.Lower != 8 || f.Upper != 16 {
		t.Errorf("fences = (%v, %v), want (8, 16)", f.Lower, f.Upper)
	}

	for _, v := range []float64{10, 11, 12, 13} {
		if !f.Within(v) {
			t.Errorf("Within(%v) = false, want true", v)
		}
	}
	if f.Within(1000) {
		t.Error("Within(1000) = true, want false")
	}
	if f.Within(7.9) {
		t.Error("Within(7.9) = true, want false")
	}
}

func TestIQRFences_Empty(t *testing.T) {
	if _, ok := IQRFences(nil, 1.5); ok {
		t.Error("IQRFences(nil) ok = true, want false")
	}
}
