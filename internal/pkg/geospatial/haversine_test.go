package geospatial_test

import (
	"math"
	"testing"

	"github.com/samirrijal/srimap/internal/pkg/geospatial"
)

func TestDistanceKm(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want, tolerance        float64
	}{
		{"same point", 6.9271, 79.8612, 6.9271, 79.8612, 0, 1e-9},
		{"hill country", 6.9271, 80.7789, 7.0000, 80.8000, 8.43, 0.05},
		{"colombo to kandy", 6.9271, 79.8612, 7.2906, 80.6337, 94.34, 0.05},
		{"antipodal on equator", 0, 0, 0, 180, 20015.09, 0.05},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := geospatial.DistanceKm(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("DistanceKm = %.4f, want %.2f ± %.2f", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	a := geospatial.DistanceKm(6.0535, 80.2210, 9.6615, 80.0255)
	b := geospatial.DistanceKm(9.6615, 80.0255, 6.0535, 80.2210)
	if math.Abs(a-b) > 1e-9 {
		t.Errorf("distance is not symmetric: %f vs %f", a, b)
	}
}
