package geospatial_test

import (
	"testing"

	"github.com/paulmach/orb"

	"github.com/samirrijal/srimap/internal/pkg/geospatial"
)

func TestParseCentroidMode(t *testing.T) {
	tests := []struct {
		in      string
		want    geospatial.CentroidMode
		wantErr bool
	}{
		{"", geospatial.CentroidFirst, false},
		{"first", geospatial.CentroidFirst, false},
		{" Centroid ", geospatial.CentroidPlanar, false},
		{"median", "", true},
	}
	for _, tt := range tests {
		got, err := geospatial.ParseCentroidMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCentroidMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCentroidMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRepresentativePoint_Point(t *testing.T) {
	p, ok := geospatial.RepresentativePoint(orb.Point{79.8612, 6.9271}, geospatial.CentroidFirst)
	if !ok {
		t.Fatal("expected a point")
	}
	if p.Lat != 6.9271 || p.Lon != 79.8612 {
		t.Errorf("expected lat/lon swapped from [lon, lat], got %+v", p)
	}
}

func TestRepresentativePoint_LineString(t *testing.T) {
	line := orb.LineString{{80.0, 7.0}, {80.2, 7.0}}

	first, ok := geospatial.RepresentativePoint(line, geospatial.CentroidFirst)
	if !ok || first.Lon != 80.0 || first.Lat != 7.0 {
		t.Errorf("first mode: got %+v, ok=%v", first, ok)
	}

	mid, ok := geospatial.RepresentativePoint(line, geospatial.CentroidPlanar)
	if !ok || mid.Lon < 80.099 || mid.Lon > 80.101 || mid.Lat != 7.0 {
		t.Errorf("centroid mode: got %+v, ok=%v", mid, ok)
	}
}

func TestRepresentativePoint_Polygon(t *testing.T) {
	square := orb.Polygon{{{80, 7}, {81, 7}, {81, 8}, {80, 8}, {80, 7}}}

	first, ok := geospatial.RepresentativePoint(square, geospatial.CentroidFirst)
	if !ok || first.Lon != 80 || first.Lat != 7 {
		t.Errorf("first mode: got %+v, ok=%v", first, ok)
	}

	c, ok := geospatial.RepresentativePoint(square, geospatial.CentroidPlanar)
	if !ok || c.Lon < 80.499 || c.Lon > 80.501 || c.Lat < 7.499 || c.Lat > 7.501 {
		t.Errorf("centroid mode: got %+v, ok=%v", c, ok)
	}
}

func TestRepresentativePoint_Unsupported(t *testing.T) {
	cases := []orb.Geometry{
		nil,
		orb.LineString{},
		orb.Polygon{},
		orb.MultiPoint{{80, 7}},
		orb.MultiPolygon{},
	}
	for _, g := range cases {
		if _, ok := geospatial.RepresentativePoint(g, geospatial.CentroidFirst); ok {
			t.Errorf("expected no point for %T", g)
		}
	}
}
