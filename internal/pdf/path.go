package pdf

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PathGuard keeps caller-supplied paths inside the source tree
type PathGuard struct {
	root string
}

// NewPathGuard creates a guard for root
func NewPathGuard(root string) (*PathGuard, error) {
	if root == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve configured directory: %w", err)
	}
	return &PathGuard{root: abs}, nil
}

// Root returns the guarded directory
func (g *PathGuard) Root() string { return g.root }

// Resolve returns the absolute, symlink-free form of path. Relative paths
// are taken relative to the root. Paths that end up outside the root are
// rejected.
func (g *PathGuard) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(g.root, path)
	}
	clean := filepath.Clean(path)

	real := clean
	if resolved, err := filepath.EvalSymlinks(clean); err == nil {
		real = resolved
	}
	realRoot := g.root
	if resolved, err := filepath.EvalSymlinks(g.root); err == nil {
		realRoot = resolved
	}

	if !within(clean, g.root, realRoot) || !within(real, g.root, realRoot) {
		return "", fmt.Errorf("path is outside configured directory: %s", path)
	}
	return real, nil
}

func within(path string, roots ...string) bool {
	for _, root := range roots {
		rel, err := filepath.Rel(root, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
