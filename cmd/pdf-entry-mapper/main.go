package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/spf13/afero"

	"github.com/a3tai/pdf-entry-mapper/internal/batch"
	"github.com/a3tai/pdf-entry-mapper/internal/config"
	"github.com/a3tai/pdf-entry-mapper/internal/detect"
	"github.com/a3tai/pdf-entry-mapper/internal/manifest"
	"github.com/a3tai/pdf-entry-mapper/internal/mcp"
	"github.com/a3tai/pdf-entry-mapper/internal/overlay"
	"github.com/a3tai/pdf-entry-mapper/internal/pdf"
	"github.com/a3tai/pdf-entry-mapper/internal/versions"
	"github.com/a3tai/pdf-entry-mapper/internal/watch"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

const historyLimit = 10

// setupLogging configures logging based on the mode
func setupLogging(cfg *config.Config) {
	if cfg.IsServeMode() {
		// stdout carries the MCP protocol
		log.SetOutput(os.Stderr)
		if !cfg.IsDebug() {
			log.SetOutput(io.Discard)
		}
		return
	}
	log.SetOutput(os.Stderr)
	if cfg.IsDebug() {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
}

func newLogger(prefix string) *log.Logger {
	return log.New(log.Writer(), prefix, log.Flags())
}

// app holds the collaborators shared by every mode
type app struct {
	cfg     *config.Config
	fs      afero.Fs
	store   *manifest.Store
	tracker *versions.Tracker
	runner  *batch.Runner
	out     io.Writer
}

func newApp(cfg *config.Config, fs afero.Fs, opener batch.Opener, out io.Writer) *app {
	store := manifest.NewStore(fs, cfg.ManifestDir, manifest.NewCache(cfg.CacheSize))
	tracker := versions.NewTracker(fs, cfg.SourceDir, cfg.ManifestDir, cfg.Hash)
	detector := detect.NewDetector(detect.WithLogger(newLogger("[Detect] "), cfg.IsDebug()))
	runner := batch.NewRunner(opener, detector, store, tracker, batch.RunnerConfig{
		Workers:       cfg.Workers,
		Timeout:       cfg.Timeout,
		Logger:        newLogger("[Batch] "),
		BrokerageFile: cfg.BrokerageFile,
		Fs:            fs,
	})
	return &app{cfg: cfg, fs: fs, store: store, tracker: tracker, runner: runner, out: out}
}

func (a *app) run(ctx context.Context) error {
	switch a.cfg.Mode {
	case config.ModeAnalyze:
		return a.analyze(ctx)
	case config.ModeUpdate:
		return a.update(ctx)
	case config.ModeStatus:
		return a.status()
	case config.ModeHistory:
		return a.history()
	case config.ModeFields:
		return a.fields()
	case config.ModeOverlay:
		return a.overlay()
	case config.ModeWatch:
		return a.watch(ctx)
	case config.ModeServe:
		return a.serve(ctx)
	default:
		return fmt.Errorf("unknown mode: %s", a.cfg.Mode)
	}
}

func (a *app) analyze(ctx context.Context) error {
	report, err := a.runner.AnalyzeAll(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Analyzed %d documents (%d failed)\n", len(report.Succeeded()), len(report.Failed()))
	for _, res := range report.Failed() {
		fmt.Fprintf(a.out, "  ✗ %s: %v\n", res.Key(), res.Err)
	}
	if x := report.Summary.CrossReference; x != nil && x.Error == "" {
		fmt.Fprintf(a.out, "Brokerage documents: %d of %d matched\n", x.Matched, x.TotalRequired)
	}
	fmt.Fprintf(a.out, "Summary: %s\n", filepath.Join(a.store.Root(), manifest.SummaryFile))
	return nil
}

func (a *app) update(ctx context.Context) error {
	u, err := a.runner.Update(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, u.Changes.String())
	if len(u.Report.Results) == 0 {
		return nil
	}
	fmt.Fprintln(a.out)
	for _, res := range u.Report.Results {
		if res.Err != nil {
			fmt.Fprintf(a.out, "  ✗ %s: %v\n", res.Key(), res.Err)
			continue
		}
		fmt.Fprintf(a.out, "  ✓ %s (v%s)\n", res.Key(), res.Manifest.Version)
	}
	return nil
}

func (a *app) status() error {
	changes, err := a.tracker.CheckChanges()
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, changes.String())
	return nil
}

func (a *app) history() error {
	entries, err := a.tracker.History(historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No history recorded yet.")
		return nil
	}
	fmt.Fprintf(a.out, "Version history (last %d runs):\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(a.out, "  %s: +%d ~%d -%d\n", e.Timestamp, e.Added, e.Changed, e.Removed)
	}
	return nil
}

func (a *app) fields() error {
	fields, err := a.store.FieldLocations(a.cfg.Folder, a.cfg.File, a.cfg.Category, a.cfg.Page)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		fmt.Fprintf(a.out, "No fields found for %s/%s\n", a.cfg.Folder, a.cfg.File)
		return nil
	}
	for _, f := range fields {
		fmt.Fprintln(a.out, f.String())
	}
	return nil
}

func (a *app) overlay() error {
	manifests, err := a.store.All()
	if err != nil {
		return err
	}
	renderer := overlay.NewRenderer(a.fs)
	rendered := 0
	for _, m := range manifests {
		src := filepath.Join(a.cfg.SourceDir, m.Folder, m.File)
		dst := filepath.Join(a.cfg.OverlayDir, m.Folder, m.File)
		drawn, err := renderer.Render(src, m, dst)
		if err != nil {
			log.Printf("Overlay failed for %s/%s: %v", m.Folder, m.File, err)
			continue
		}
		rendered++
		fmt.Fprintf(a.out, "  %s/%s: %d marks\n", m.Folder, m.File, drawn)
	}
	fmt.Fprintf(a.out, "Annotated %d of %d documents into %s\n", rendered, len(manifests), a.cfg.OverlayDir)
	return nil
}

func (a *app) watch(ctx context.Context) error {
	w := watch.New(a.fs, a.cfg.SourceDir, a.cfg.Debounce, func(ctx context.Context) error {
		_, err := a.runner.Update(ctx)
		return err
	}, newLogger("[Watch] "))
	return w.Run(ctx)
}

func (a *app) serve(ctx context.Context) error {
	server, err := mcp.NewServer(a.cfg, a.runner, a.store, a.tracker)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	return server.Run(ctx)
}

// cancelOnSignal cancels ctx on SIGINT/SIGTERM
func cancelOnSignal(cancel context.CancelFunc) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signalCh
		log.Printf("Received signal: %s", sig)
		log.Println("Initiating graceful shutdown...")
		cancel()
	}()
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg)

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cancelOnSignal(cancel)

	opener := pdf.NewOpener(cfg.MaxFileSize, newLogger("[PDF] "))
	a := newApp(cfg, afero.NewOsFs(), opener, os.Stdout)
	if err := a.run(ctx); err != nil && ctx.Err() == nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("PDF Entry Mapper\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
