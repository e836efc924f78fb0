package geospatial

import (
	"math"
	"testing"
)

func TestHaversineKm_ZeroForSamePoint(t *testing.T) {
	if d := HaversineKm(36.8065, 10.1815, 36.8065, 10.1815); d != 0 {
		t.Errorf("expected 0, got %f", d)
	}
}

func TestHaversineKm_Symmetric(t *testing.T) {
	d1 := HaversineKm(36.8065, 10.1815, 36.8008, 10.1847)
	d2 := HaversineKm(36.8008, 10.1847, 36.8065, 10.1815)
	if math.Abs(d1-d2) > 1e-12 {
		t.Errorf("expected symmetry, got %f vs %f", d1, d2)
	}
}

func TestHaversineKm_KnownDistance(t *testing.T) {
	// Tunis to Sousse is roughly 115-120 km as the crow flies.
	d := HaversineKm(36.8065, 10.1815, 35.8256, 10.6369)
	if d < 100 || d > 130 {
		t.Errorf("implausible distance: %f km", d)
	}
}
