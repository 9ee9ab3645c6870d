// Package versions tracks source PDF content hashes between runs so only new
// or changed documents are re-analyzed, and keeps a history of those runs.
package versions

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DBFile is the version database file name inside the manifest root
const DBFile = "_versions.yaml"

const timestampLayout = "2006-01-02T15:04:05"

// Document is one source PDF found by a scan
type Document struct {
	Folder string
	Name   string
	Path   string
	Hash   string
}

// Key is the folder-relative identifier used in the database
func (d Document) Key() string {
	return d.Folder + "/" + d.Name
}

// DB is the persisted version database
type DB struct {
	Files   map[string]string `yaml:"files"`
	History []HistoryEntry    `yaml:"history"`
}

// HistoryEntry records one update run
type HistoryEntry struct {
	RunID        string   `yaml:"run_id"`
	Timestamp    string   `yaml:"timestamp"`
	Added        int      `yaml:"added"`
	Removed      int      `yaml:"removed"`
	Changed      int      `yaml:"changed"`
	Unchanged    int      `yaml:"unchanged"`
	AddedFiles   []string `yaml:"added_files,omitempty"`
	RemovedFiles []string `yaml:"removed_files,omitempty"`
	ChangedFiles []string `yaml:"changed_files,omitempty"`
	Reanalyzed   []string `yaml:"reanalyzed,omitempty"`
}

// Changes compares the current scan with the stored hashes
type Changes struct {
	Added        []string
	Removed      []string
	Changed      []string
	Unchanged    []string
	TotalCurrent int
	// Current holds the scanned documents in scan order
	Current []Document
}

// NeedsAnalysis lists the keys to (re-)analyze: new files, then changed ones
func (c *Changes) NeedsAnalysis() []string {
	out := make([]string, 0, len(c.Added)+len(c.Changed))
	out = append(out, c.Added...)
	return append(out, c.Changed...)
}

// IsChanged reports whether key is in the changed list
func (c *Changes) IsChanged(key string) bool {
	for _, k := range c.Changed {
		if k == key {
			return true
		}
	}
	return false
}

// Document returns the scanned document for key
func (c *Changes) Document(key string) (Document, bool) {
	for _, d := range c.Current {
		if d.Key() == key {
			return d, true
		}
	}
	return Document{}, false
}

// String renders the status report: the counts, then the new (+), changed
// (~) and removed (-) keys
func (c *Changes) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total PDFs: %d\n", c.TotalCurrent)
	fmt.Fprintf(&b, "New: %d\n", len(c.Added))
	fmt.Fprintf(&b, "Changed: %d\n", len(c.Changed))
	fmt.Fprintf(&b, "Removed: %d\n", len(c.Removed))
	fmt.Fprintf(&b, "Unchanged: %d\n", len(c.Unchanged))
	for _, list := range []struct {
		title, mark string
		keys        []string
	}{
		{"New files", "+", c.Added},
		{"Changed files", "~", c.Changed},
		{"Removed files", "-", c.Removed},
	} {
		if len(list.keys) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n", list.title)
		for _, k := range list.keys {
			fmt.Fprintf(&b, "  %s %s\n", list.mark, k)
		}
	}
	return b.String()
}

// Tracker scans a source root and maintains the version database
type Tracker struct {
	fs         afero.Fs
	sourceRoot string
	dbPath     string
	algo       string
	now        func() time.Time
}

// NewTracker creates a tracker. The database lives in manifestRoot.
func NewTracker(fs afero.Fs, sourceRoot, manifestRoot, algo string) *Tracker {
	return &Tracker{
		fs:         fs,
		sourceRoot: sourceRoot,
		dbPath:     filepath.Join(manifestRoot, DBFile),
		algo:       algo,
		now:        time.Now,
	}
}

// SourceRoot returns the scanned directory
func (t *Tracker) SourceRoot() string { return t.sourceRoot }

// Scan hashes every *.pdf in each immediate subfolder of the source root.
// Folders and files are visited in name order.
func (t *Tracker) Scan() ([]Document, error) {
	folders, err := afero.ReadDir(t.fs, t.sourceRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to list source root: %w", err)
	}

	var docs []Document
	for _, fi := range folders {
		if !fi.IsDir() {
			continue
		}
		dir := filepath.Join(t.sourceRoot, fi.Name())
		files, err := afero.ReadDir(t.fs, dir)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", dir, err)
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".pdf") {
				continue
			}
			p := filepath.Join(dir, f.Name())
			h, err := HashFile(t.fs, p, t.algo)
			if err != nil {
				return nil, err
			}
			docs = append(docs, Document{Folder: fi.Name(), Name: f.Name(), Path: p, Hash: h})
		}
	}
	return docs, nil
}

// Load reads the database; a missing file yields an empty one
func (t *Tracker) Load() (*DB, error) {
	data, err := afero.ReadFile(t.fs, t.dbPath)
	if errors.Is(err, os.ErrNotExist) {
		return &DB{Files: map[string]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read version database: %w", err)
	}

	var db DB
	if err := yaml.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("failed to parse version database: %w", err)
	}
	if db.Files == nil {
		db.Files = map[string]string{}
	}
	return &db, nil
}

func (t *Tracker) save(db *DB) error {
	if err := t.fs.MkdirAll(filepath.Dir(t.dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	data, err := yaml.Marshal(db)
	if err != nil {
		return fmt.Errorf("failed to encode version database: %w", err)
	}
	if err := afero.WriteFile(t.fs, t.dbPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write version database: %w", err)
	}
	return nil
}

// CheckChanges scans the source root and compares it with the database
func (t *Tracker) CheckChanges() (*Changes, error) {
	db, err := t.Load()
	if err != nil {
		return nil, err
	}
	docs, err := t.Scan()
	if err != nil {
		return nil, err
	}
	return compare(db.Files, docs), nil
}

func compare(stored map[string]string, docs []Document) *Changes {
	c := &Changes{
		Added:        []string{},
		Removed:      []string{},
		Changed:      []string{},
		Unchanged:    []string{},
		TotalCurrent: len(docs),
		Current:      docs,
	}

	current := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		k := d.Key()
		current[k] = struct{}{}
		old, ok := stored[k]
		switch {
		case !ok:
			c.Added = append(c.Added, k)
		case old != d.Hash:
			c.Changed = append(c.Changed, k)
		default:
			c.Unchanged = append(c.Unchanged, k)
		}
	}
	for k := range stored {
		if _, ok := current[k]; !ok {
			c.Removed = append(c.Removed, k)
		}
	}
	sort.Strings(c.Removed)
	return c
}

// Record stores the scanned hashes and appends a history entry
func (t *Tracker) Record(c *Changes, reanalyzed []string) (*HistoryEntry, error) {
	db, err := t.Load()
	if err != nil {
		return nil, err
	}

	db.Files = make(map[string]string, len(c.Current))
	for _, d := range c.Current {
		db.Files[d.Key()] = d.Hash
	}

	entry := HistoryEntry{
		RunID:     uuid.New().String(),
		Timestamp: t.now().Format(timestampLayout),
		Added:     len(c.Added),
		Removed:   len(c.Removed),
		Changed:   len(c.Changed),
		Unchanged: len(c.Unchanged),
	}
	if len(c.Added) > 0 {
		entry.AddedFiles = c.Added
	}
	if len(c.Removed) > 0 {
		entry.RemovedFiles = c.Removed
	}
	if len(c.Changed) > 0 {
		entry.ChangedFiles = c.Changed
	}
	if len(reanalyzed) > 0 {
		entry.Reanalyzed = reanalyzed
	}

	db.History = append(db.History, entry)
	if err := t.save(db); err != nil {
		return nil, err
	}
	return &entry, nil
}

// History returns up to the last n history entries, oldest first
func (t *Tracker) History(n int) ([]HistoryEntry, error) {
	db, err := t.Load()
	if err != nil {
		return nil, err
	}
	h := db.History
	if n > 0 && len(h) > n {
		h = h[len(h)-n:]
	}
	return h, nil
}
