package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/samirrijal/srimap/internal/core/domain"
)

// Source implements ports.DatasetSource over a local directory.
type Source struct {
	dir string
}

// New creates a Source rooted at dir.
func New(dir string) *Source {
	return &Source{dir: dir}
}

// Dir returns the root directory.
func (s *Source) Dir() string { return s.dir }

// Fetch reads a resource from the root directory. Resource names may not
// escape the root.
func (s *Source) Fetch(ctx context.Context, resource string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	path, err := s.path(resource)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, resource)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrNetwork, resource, err)
	}
	return data, nil
}

func (s *Source) path(resource string) (string, error) {
	clean := filepath.Clean("/" + resource)
	if clean == "/" || strings.Contains(resource, "..") {
		return "", fmt.Errorf("%w: invalid resource name %q", domain.ErrNotFound, resource)
	}
	return filepath.Join(s.dir, clean), nil
}
