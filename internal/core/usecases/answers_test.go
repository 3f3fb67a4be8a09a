package usecases_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/samirrijal/srimap/internal/core/domain"
	"github.com/samirrijal/srimap/internal/core/usecases"
	"github.com/samirrijal/srimap/internal/pkg/geospatial"
)

func newAnswerer(src *mockSource) *usecases.Answerer {
	store := usecases.NewFeatureStore(src, nil)
	return usecases.NewAnswerer(store, usecases.NewNearbyService(store, nil, geospatial.CentroidFirst, 0))
}

func answer(a *usecases.Answerer, text string, loc *domain.UserLocation) string {
	return a.Answer(context.Background(), usecases.Analyze(text), loc)
}

func TestAnswer_Overviews(t *testing.T) {
	a := newAnswerer(&mockSource{})

	tests := []struct {
		text string
		want []string
	}{
		{"tell me about disasters", []string{"DISASTER & HAZARD OVERVIEW", "flood: 2 areas recorded", "landslide: 1 areas recorded"}},
		{"trains", []string{"RAILWAY NETWORK INFO", "Total railway features: 2", "Stations: 1", "Routes/Lines: 1"}},
		{"restaurants", []string{"RESTAURANT GUIDE", "Total restaurants: 2"}},
		{"highways", []string{"HIGHWAY & ROAD NETWORK", "Total road segments: 2", "Trunk: 1 roads", "Primary: 1 roads"}},
		{"rivers", []string{"RIVER & WATERWAY SYSTEM", "Kelani Ganga (Waterway)"}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := answer(a, tt.text, nil)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("answer for %q missing %q:\n%s", tt.text, w, got)
				}
			}
		})
	}
}

func TestAnswer_DisastersInPlace(t *testing.T) {
	a := newAnswerer(&mockSource{})

	got := answer(a, "is Galle at risk?", nil)
	if !strings.Contains(got, "DANGEROUS AREAS IN GALLE") || !strings.Contains(got, "🔴 flood") {
		t.Errorf("unexpected answer:\n%s", got)
	}

	got = answer(a, "any disasters in Jaffna", nil)
	if !strings.Contains(got, "No major disaster risks recorded in jaffna") {
		t.Errorf("unexpected answer:\n%s", got)
	}
}

func TestAnswer_NearbyNeedsLocation(t *testing.T) {
	a := newAnswerer(&mockSource{})

	got := answer(a, "stations nearby", nil)
	if !strings.Contains(got, "Please enable location access to find nearby stations") {
		t.Errorf("expected a location prompt, got:\n%s", got)
	}
}

func TestAnswer_NearbyList(t *testing.T) {
	a := newAnswerer(&mockSource{})
	colombo := &domain.UserLocation{Lat: 6.9271, Lon: 79.8612, AccuracyM: 20}

	got := answer(a, "restaurants near me", colombo)
	if !strings.Contains(got, "NEARBY RESTAURANTS (within 5 km)") {
		t.Fatalf("unexpected header:\n%s", got)
	}
	if !strings.Contains(got, "🍴 Restaurant (cafe) - 0.8 km away") || !strings.Contains(got, "🍴 Ministry of Crab (seafood) - 1.1 km away") {
		t.Errorf("unexpected list:\n%s", got)
	}
	if strings.Index(got, "Restaurant (cafe)") > strings.Index(got, "Ministry of Crab") {
		t.Error("expected nearest first")
	}
}

func TestAnswer_NearbyNothingFound(t *testing.T) {
	a := newAnswerer(&mockSource{})
	jaffna := &domain.UserLocation{Lat: 9.6615, Lon: 80.0255}

	got := answer(a, "any dangers nearby", jaffna)
	if !strings.Contains(got, "No dangerous areas detected nearby (within 50 km)") {
		t.Errorf("unexpected answer:\n%s", got)
	}
}

func TestAnswer_DatasetUnavailable(t *testing.T) {
	src := &mockSource{
		fetchFn: func(ctx context.Context, resource string) ([]byte, error) {
			return nil, fmt.Errorf("%w: refused", domain.ErrNetwork)
		},
	}
	a := newAnswerer(src)

	got := answer(a, "rivers", nil)
	if got != "I couldn't fetch river information right now. Please try again later." {
		t.Errorf("unexpected answer %q", got)
	}
}

func TestAnswer_EmptyDataset(t *testing.T) {
	src := &mockSource{
		fetchFn: func(ctx context.Context, resource string) ([]byte, error) {
			return []byte(`{"type":"FeatureCollection","features":[]}`), nil
		},
	}
	a := newAnswerer(src)

	if got := answer(a, "highways", nil); !strings.Contains(got, "No highway data available currently") {
		t.Errorf("unexpected answer %q", got)
	}
}

func TestBuildContext(t *testing.T) {
	a := newAnswerer(&mockSource{})

	withoutLoc := a.BuildContext(context.Background(), nil)
	for _, w := range []string{
		"USER LOCATION: Not available",
		"- flood: Found in Colombo, Galle",
		"- tsunami: Found in Matara",
		"RESTAURANTS: Total 2 restaurants available",
		"- Ministry of Crab",
		"TRAIN STATIONS: 1 stations",
		"RIVERS: 1 rivers and waterways mapped",
	} {
		if !strings.Contains(withoutLoc, w) {
			t.Errorf("context missing %q:\n%s", w, withoutLoc)
		}
	}

	withLoc := a.BuildContext(context.Background(), &domain.UserLocation{Lat: 6.9271, Lon: 79.8612, AccuracyM: 12.6})
	for _, w := range []string{
		"USER LOCATION: Latitude 6.9271, Longitude 79.8612",
		"Location accuracy: ±13 meters",
		"NEARBY DISASTERS (within 50 km):",
		"- flood at Colombo (0.0 km away)",
	} {
		if !strings.Contains(withLoc, w) {
			t.Errorf("context missing %q:\n%s", w, withLoc)
		}
	}
}

func TestBuildPrompt(t *testing.T) {
	p := usecases.BuildPrompt("Is it safe?", "DIGEST")
	if !strings.Contains(p, `User question: "Is it safe?"`) || !strings.Contains(p, "Map data summary:\nDIGEST") {
		t.Errorf("unexpected prompt:\n%s", p)
	}
}
