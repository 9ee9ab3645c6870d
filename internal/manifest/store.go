package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no manifest exists for a document, including
// when the folder or file name would resolve outside the store root
var ErrNotFound = errors.New("manifest not found")

// SummaryFile is the batch run summary written next to the folders
const SummaryFile = "_summary.yaml"

// unsafeNameChars matches everything outside word characters, '-' and '.'
var unsafeNameChars = regexp.MustCompile(`[^\p{L}\p{N}_\-.]`)

// SafeName maps a source file name to its manifest file name
func SafeName(file string) string {
	base := filepath.Base(file)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return unsafeNameChars.ReplaceAllString(stem, "_") + ".yaml"
}

// Store reads and writes manifests under a root directory laid out as
// <root>/<folder>/<safe name>.yaml
type Store struct {
	fs    afero.Fs
	root  string
	cache *Cache
}

// NewStore creates a store on fs. cache may be nil.
func NewStore(fs afero.Fs, root string, cache *Cache) *Store {
	return &Store{fs: fs, root: filepath.Clean(root), cache: cache}
}

// Root returns the store directory
func (s *Store) Root() string { return s.root }

// Path resolves the manifest path for a document
func (s *Store) Path(folder, file string) (string, error) {
	if !validFolder(folder) {
		return "", fmt.Errorf("%w: invalid folder %q", ErrNotFound, folder)
	}
	p := filepath.Join(s.root, folder, SafeName(file))
	rel, err := filepath.Rel(s.root, p)
	if err != nil || strings.HasPrefix(rel, "..") || filepath.Dir(rel) != folder {
		return "", fmt.Errorf("%w: %s/%s escapes the manifest root", ErrNotFound, folder, file)
	}
	return p, nil
}

func validFolder(folder string) bool {
	if folder == "" || folder == "." || folder == ".." {
		return false
	}
	return filepath.Base(folder) == folder && !strings.ContainsAny(folder, `/\`)
}

// Load returns the manifest for folder/file
func (s *Store) Load(folder, file string) (*Manifest, error) {
	p, err := s.Path(folder, file)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if m, ok := s.cache.Get(p); ok {
			return m, nil
		}
	}

	m, err := s.read(p)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Put(p, m)
	}
	return m, nil
}

func (s *Store) read(p string) (*Manifest, error) {
	data, err := afero.ReadFile(s.fs, p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", p, err)
	}
	return &m, nil
}

// Save writes m to its folder and returns the path written
func (s *Store) Save(m *Manifest) (string, error) {
	p, err := s.Path(m.Folder, m.File)
	if err != nil {
		return "", err
	}
	if err := s.writeYAML(p, m); err != nil {
		return "", err
	}
	if s.cache != nil {
		s.cache.Remove(p)
	}
	return p, nil
}

// SaveSummary writes the batch run summary at the store root
func (s *Store) SaveSummary(v interface{}) (string, error) {
	p := filepath.Join(s.root, SummaryFile)
	return p, s.writeYAML(p, v)
}

func (s *Store) writeYAML(p string, v interface{}) error {
	if err := s.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	data, err := encodeYAML(v)
	if err != nil {
		return err
	}
	if err := afero.WriteFile(s.fs, p, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	return nil
}

func encodeYAML(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// All loads every stored manifest, ordered by folder then file name.
// Files starting with '_' are bookkeeping and are skipped.
func (s *Store) All() ([]*Manifest, error) {
	folders, err := afero.ReadDir(s.fs, s.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list manifests: %w", err)
	}

	var out []*Manifest
	for _, fi := range folders {
		if !fi.IsDir() {
			continue
		}
		dir := filepath.Join(s.root, fi.Name())
		files, err := afero.ReadDir(s.fs, dir)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", dir, err)
		}
		names := make([]string, 0, len(files))
		for _, f := range files {
			if f.IsDir() || strings.HasPrefix(f.Name(), "_") || filepath.Ext(f.Name()) != ".yaml" {
				continue
			}
			names = append(names, f.Name())
		}
		sort.Strings(names)
		for _, name := range names {
			m, err := s.read(filepath.Join(dir, name))
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		}
	}
	return out, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
