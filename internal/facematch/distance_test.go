package facematch

import (
	"errors"
	"math"
	"testing"
)

func TestEuclideanDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Embedding
		expected float64
	}{
		{"identical", Embedding{1, 2, 3}, Embedding{1, 2, 3}, 0},
		{"unit diagonal", Embedding{0, 0}, Embedding{1, 1}, math.Sqrt2},
		{"3-4-5", Embedding{0, 0}, Embedding{3, 4}, 5},
		{"negative values", Embedding{-1, -1}, Embedding{1, 1}, 2 * math.Sqrt2},
		{"empty", Embedding{}, Embedding{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := EuclideanDistance(tt.a, tt.b)
			if err != nil {
				t.Fatalf("EuclideanDistance() error = %v", err)
			}
			if math.Abs(d-tt.expected) > 1e-12 {
				t.Errorf("EuclideanDistance(%v, %v) = %v, want %v", tt.a, tt.b, d, tt.expected)
			}
		})
	}
}

func TestEuclideanDistance_Symmetric(t *testing.T) {
	a := Embedding{0.1, 0.7, -0.2}
	b := Embedding{0.4, -0.1, 0.9}
	ab, _ := EuclideanDistance(a, b)
	ba, _ := EuclideanDistance(b, a)
	if ab != ba {
		t.Errorf("distance not symmetric: %v vs %v", ab, ba)
	}
}

func TestEuclideanDistance_Mismatch(t *testing.T) {
	_, err := EuclideanDistance(Embedding{1}, Embedding{1, 2})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("error = %v, want ErrDimensionMismatch", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		e        Embedding
		dim      int
		wantErr  bool
		mismatch bool
	}{
		{"valid", Embedding{0.1, 0.2}, 2, false, false},
		{"any dimension", Embedding{0.1, 0.2, 0.3}, 0, false, false},
		{"empty", Embedding{}, 0, true, false},
		{"wrong dimension", Embedding{0.1}, 128, true, true},
		{"nan", Embedding{math.NaN(), 0}, 2, true, false},
		{"inf", Embedding{math.Inf(1), 0}, 2, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.e, tt.dim)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.mismatch && !errors.Is(err, ErrDimensionMismatch) {
				t.Errorf("error = %v, want ErrDimensionMismatch", err)
			}
			if tt.wantErr && !tt.mismatch && !errors.Is(err, ErrInvalidEmbedding) {
				t.Errorf("error = %v, want ErrInvalidEmbedding", err)
			}
		})
	}
}

func TestFloat32RoundTrip(t *testing.T) {
	v := []float32{0.25, -1.5, 3}
	e := FromFloat32(v)
	if len(e) != 3 || e[0] != 0.25 || e[1] != -1.5 || e[2] != 3 {
		t.Fatalf("FromFloat32() = %v", e)
	}
	back := e.Float32()
	for i := range v {
		if back[i] != v[i] {
			t.Errorf("Float32()[%d] = %v, want %v", i, back[i], v[i])
		}
	}
}
