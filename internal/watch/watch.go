// Package watch re-runs the incremental update whenever PDFs under the
// source root change.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
)

// Trigger is called once per burst of changes
type Trigger func(ctx context.Context) error

const relevantOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

// Watcher watches the source root and its package folders
type Watcher struct {
	fs       afero.Fs
	root     string
	debounce time.Duration
	trigger  Trigger
	logger   *log.Logger
}

// New creates a watcher. Events are coalesced until no new one has arrived
// for the debounce interval.
func New(fs afero.Fs, root string, debounce time.Duration, trigger Trigger, logger *log.Logger) *Watcher {
	if logger == nil {
		logger = log.New(os.Stderr, "[Watch] ", log.LstdFlags)
	}
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Watcher{fs: fs, root: filepath.Clean(root), debounce: debounce, trigger: trigger, logger: logger}
}

// Run blocks until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	dirs, err := w.packageDirs()
	if err != nil {
		return err
	}
	for _, d := range dirs {
		if err := fw.Add(d); err != nil {
			return fmt.Errorf("failed to watch %s: %w", d, err)
		}
	}
	w.logger.Printf("Watching %d folders under %s", len(dirs), w.root)

	return w.loop(ctx, fw.Events, fw.Errors, fw.Add)
}

// packageDirs returns the root followed by its immediate subfolders
func (w *Watcher) packageDirs() ([]string, error) {
	entries, err := afero.ReadDir(w.fs, w.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", w.root, err)
	}
	dirs := []string{w.root}
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(w.root, e.Name()))
		}
	}
	return dirs, nil
}

func (w *Watcher) loop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error,
	addDir func(string) error) error {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if w.isNewPackage(ev) {
				if err := addDir(ev.Name); err != nil {
					w.logger.Printf("failed to watch new folder %s: %v", ev.Name, err)
				}
				continue
			}
			if !IsPDFEvent(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-errs:
			if !ok {
				return nil
			}
			w.logger.Printf("watch error: %v", err)

		case <-fire:
			fire = nil
			if err := w.trigger(ctx); err != nil {
				w.logger.Printf("update failed: %v", err)
			}
		}
	}
}

// isNewPackage reports a folder created directly under the root
func (w *Watcher) isNewPackage(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) || filepath.Dir(ev.Name) != w.root {
		return false
	}
	fi, err := w.fs.Stat(ev.Name)
	return err == nil && fi.IsDir()
}

// IsPDFEvent reports whether ev touches a PDF in a way that can change the
// scan result
func IsPDFEvent(ev fsnotify.Event) bool {
	if ev.Op&relevantOps == 0 {
		return false
	}
	return filepath.Ext(ev.Name) == ".pdf"
}
