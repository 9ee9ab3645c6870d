// Package batch runs entry detection over a tree of contract packages,
// writes one manifest per document and keeps the version database current.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/a3tai/pdf-entry-mapper/internal/detect"
	deterrors "github.com/a3tai/pdf-entry-mapper/internal/errors"
	"github.com/a3tai/pdf-entry-mapper/internal/geometry"
	"github.com/a3tai/pdf-entry-mapper/internal/manifest"
	"github.com/a3tai/pdf-entry-mapper/internal/versions"
)

// Opener opens a source document for page access
type Opener interface {
	Open(ctx context.Context, path string) (geometry.Document, error)
}

// RunnerConfig configures a Runner
type RunnerConfig struct {
	Workers int           `json:"workers"`
	Timeout time.Duration `json:"timeout"` // per document
	Logger  *log.Logger   `json:"-"`

	// BrokerageFile lists the documents a brokerage requires. Empty
	// leaves the cross reference out of the run summary.
	BrokerageFile string   `json:"brokerage_file"`
	Fs            afero.Fs `json:"-"`
}

// DefaultRunnerConfig returns the defaults used by the CLI
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Workers: 4,
		Timeout: 2 * time.Minute,
	}
}

// Runner analyzes documents and persists the results
type Runner struct {
	opener   Opener
	detector *detect.Detector
	store    *manifest.Store
	tracker  *versions.Tracker
	workers  int
	timeout  time.Duration
	logger   *log.Logger
	now      func() time.Time

	fs            afero.Fs
	brokerageFile string
}

// NewRunner wires a runner from its collaborators
func NewRunner(opener Opener, detector *detect.Detector, store *manifest.Store,
	tracker *versions.Tracker, config RunnerConfig) *Runner {
	defaults := DefaultRunnerConfig()
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[Batch] ", log.LstdFlags)
	}
	if config.Fs == nil {
		config.Fs = afero.NewOsFs()
	}
	return &Runner{
		opener:   opener,
		detector: detector,
		store:    store,
		tracker:  tracker,
		workers:  config.Workers,
		timeout:  config.Timeout,
		logger:   config.Logger,
		now:      time.Now,

		fs:            config.Fs,
		brokerageFile: config.BrokerageFile,
	}
}

// Result is the outcome for one document
type Result struct {
	Folder       string
	File         string
	Manifest     *manifest.Manifest
	ManifestPath string
	Err          error
}

// Key is the folder-relative document identifier
func (r Result) Key() string { return r.Folder + "/" + r.File }

// Report collects the results of a run
type Report struct {
	Results []Result
	Errors  *deterrors.ErrorCollection
	// Err aggregates every per-document failure
	Err error
	// Summary is set by AnalyzeAll once written
	Summary *Summary
}

// Succeeded returns the keys of documents whose manifest was written
func (r *Report) Succeeded() []string {
	var keys []string
	for _, res := range r.Results {
		if res.Err == nil {
			keys = append(keys, res.Key())
		}
	}
	return keys
}

// Failed returns the failed results
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// AnalyzeFile runs detection on a single file without persisting anything
func (r *Runner) AnalyzeFile(ctx context.Context, path, folder string) (*manifest.Manifest, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	doc, err := r.opener.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	a, err := r.detector.AnalyzeDocument(ctx, doc, filepath.Base(path), path)
	if err != nil {
		return nil, err
	}
	return manifest.Build(a, folder, r.now()), nil
}

// AnalyzeAll analyzes every document under the source root, writes the
// manifests and the run summary, and records the scan in the version
// database
func (r *Runner) AnalyzeAll(ctx context.Context) (*Report, error) {
	changes, err := r.tracker.CheckChanges()
	if err != nil {
		return nil, err
	}

	report := r.run(ctx, changes.Current, changes)

	summary := BuildSummary(report, r.now())
	if r.brokerageFile != "" {
		x, err := CrossReferenceBrokerage(r.fs, r.brokerageFile, changes.Current)
		if err != nil {
			r.logger.Printf("brokerage cross reference skipped: %v", err)
		} else {
			summary.CrossReference = x
		}
	}
	if _, err := r.store.SaveSummary(summary); err != nil {
		return report, err
	}
	report.Summary = summary
	if _, err := r.tracker.Record(changes, report.Succeeded()); err != nil {
		return report, err
	}
	r.logger.Printf("Analyzed %d documents: %s", len(report.Succeeded()), report.Errors.Summary())
	return report, nil
}

// UpdateReport is the outcome of an incremental update
type UpdateReport struct {
	Changes *versions.Changes
	Report  *Report
	Entry   *versions.HistoryEntry
}

// Update re-analyzes only new and changed documents. Manifests of changed
// documents get a bumped version. The history is written once at the end.
func (r *Runner) Update(ctx context.Context) (*UpdateReport, error) {
	changes, err := r.tracker.CheckChanges()
	if err != nil {
		return nil, err
	}

	keys := changes.NeedsAnalysis()
	docs := make([]versions.Document, 0, len(keys))
	for _, k := range keys {
		if d, ok := changes.Document(k); ok {
			docs = append(docs, d)
		}
	}
	if len(docs) == 0 {
		r.logger.Printf("All documents up to date. No re-analysis needed.")
	} else {
		r.logger.Printf("Re-analyzing %d changed/new documents...", len(docs))
	}

	report := r.run(ctx, docs, changes)

	entry, err := r.tracker.Record(changes, report.Succeeded())
	if err != nil {
		return nil, err
	}
	if len(changes.Removed) > 0 {
		r.logger.Printf("Removed (no longer present): %v", changes.Removed)
	}
	return &UpdateReport{Changes: changes, Report: report, Entry: entry}, nil
}

// run analyzes docs on a bounded pool. Manifests of documents changed
// since the last recorded scan are version-bumped; the others keep the
// version of their stored manifest.
func (r *Runner) run(ctx context.Context, docs []versions.Document, changes *versions.Changes) *Report {
	report := &Report{Errors: deterrors.NewErrorCollection()}
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(r.workers)
	for _, d := range docs {
		p.Go(func() {
			policy := keepVersion
			if changes.IsChanged(d.Key()) {
				policy = bumpChanged
			}
			res := r.analyzeOne(ctx, d, policy)
			mu.Lock()
			report.Results = append(report.Results, res)
			mu.Unlock()
		})
	}
	p.Wait()

	sort.Slice(report.Results, func(i, j int) bool {
		a, b := report.Results[i], report.Results[j]
		if a.Folder != b.Folder {
			return a.Folder < b.Folder
		}
		return a.File < b.File
	})

	for _, res := range report.Results {
		if res.Err == nil {
			continue
		}
		report.Err = multierr.Append(report.Err, fmt.Errorf("%s: %w", res.Key(), res.Err))
		report.Errors.Add(asDetectionError(res))
	}
	return report
}

func (r *Runner) analyzeOne(ctx context.Context, d versions.Document, policy versionPolicy) Result {
	res := Result{Folder: d.Folder, File: d.Name}

	m, err := r.AnalyzeFile(ctx, d.Path, d.Folder)
	if err != nil {
		r.logger.Printf("ERROR analyzing %s: %v", d.Path, err)
		res.Err = err
		return res
	}
	r.stampVersion(m, policy)

	p, err := r.store.Save(m)
	if err != nil {
		r.logger.Printf("ERROR saving manifest for %s: %v", d.Path, err)
		res.Err = err
		return res
	}
	res.Manifest = m
	res.ManifestPath = p
	return res
}

// AnalyzeAndSave analyzes one file on request and writes its manifest. A
// manifest already stored for the file is replaced with a bumped version.
func (r *Runner) AnalyzeAndSave(ctx context.Context, path, folder string) (Result, error) {
	res := Result{Folder: folder, File: filepath.Base(path)}

	m, err := r.AnalyzeFile(ctx, path, folder)
	if err != nil {
		return res, err
	}
	r.stampVersion(m, bumpExisting)

	p, err := r.store.Save(m)
	if err != nil {
		return res, err
	}
	res.Manifest = m
	res.ManifestPath = p
	return res, nil
}

// versionPolicy decides how a rebuilt manifest relates to the stored one
type versionPolicy int

const (
	// keepVersion carries the stored version over unchanged
	keepVersion versionPolicy = iota
	// bumpChanged bumps from the stored version, or from
	// UnknownPreviousVersion when there is none
	bumpChanged
	// bumpExisting bumps only when a manifest is stored
	bumpExisting
)

func (r *Runner) stampVersion(m *manifest.Manifest, policy versionPolicy) {
	old, err := r.store.Load(m.Folder, m.File)
	if err != nil {
		if !errors.Is(err, manifest.ErrNotFound) {
			r.logger.Printf("could not read previous manifest for %s/%s: %v", m.Folder, m.File, err)
		}
		old = nil
	}

	switch {
	case policy == keepVersion && old != nil:
		m.Version = old.Version
		m.PreviousVersion = old.PreviousVersion
	case policy == bumpChanged, policy == bumpExisting && old != nil:
		previous := ""
		if old != nil {
			previous = old.Version
		}
		if err := manifest.ApplyBump(m, previous); err != nil {
			r.logger.Printf("keeping version %s for %s/%s: %v", m.Version, m.Folder, m.File, err)
		}
	}
}

func asDetectionError(res Result) *deterrors.DetectionError {
	var de *deterrors.DetectionError
	if errors.As(res.Err, &de) {
		return de
	}
	t := deterrors.ErrorTypeDocumentParseFailure
	if errors.Is(res.Err, context.DeadlineExceeded) {
		t = deterrors.ErrorTypeTimeout
	}
	return deterrors.Wrap(t, res.Err).WithFile(res.Key())
}
