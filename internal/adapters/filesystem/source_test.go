package filesystem_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/samirrijal/srimap/internal/adapters/filesystem"
	"github.com/samirrijal/srimap/internal/core/domain"
)

func TestFetch(t *testing.T) {
	dir := t.TempDir()
	want := `{"type":"FeatureCollection","features":[]}`
	if err := os.WriteFile(filepath.Join(dir, "Oya_all.geojson"), []byte(want), 0o644); err != nil {
		t.Fatal(err)
	}

	src := filesystem.New(dir)
	got, err := src.Fetch(context.Background(), "Oya_all.geojson")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != want {
		t.Errorf("expected file contents, got %q", got)
	}
}

func TestFetch_Errors(t *testing.T) {
	src := filesystem.New(t.TempDir())

	tests := []struct {
		name     string
		resource string
		want     error
	}{
		{"missing", "HW_all.geojson", domain.ErrNotFound},
		{"empty", "", domain.ErrNotFound},
		{"escape", "../etc/passwd", domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := src.Fetch(context.Background(), tt.resource)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestFetch_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := filesystem.New(t.TempDir()).Fetch(ctx, "x.geojson")
	if !errors.Is(err, domain.ErrNetwork) {
		t.Errorf("expected ErrNetwork, got %v", err)
	}
}
