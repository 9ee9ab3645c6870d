package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pdf-entry-mapper/internal/config"
	"github.com/a3tai/pdf-entry-mapper/internal/geometry"
	"github.com/a3tai/pdf-entry-mapper/internal/manifest"
)

const testVersion = "1.2.3"

// captureStdout runs fn with os.Stdout redirected to a pipe
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	originalStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = originalStdout }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
		w.Close()
	}()

	var buf bytes.Buffer
	io.Copy(&buf, r)
	<-done
	return buf.String()
}

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	defer func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
	}()

	tests := []struct {
		name                 string
		version, built, hash string
		expected             []string
	}{
		{
			name: "build flags", version: testVersion, built: "2025-05-01_10:30:00", hash: "abc123",
			expected: []string{"PDF Entry Mapper", "Version: " + testVersion, "Build Time: 2025-05-01_10:30:00",
				"Git Commit: abc123", "Built with:"},
		},
		{
			name: "defaults", version: "dev", built: "unknown", hash: "unknown",
			expected: []string{"Version: dev", "Build Time: unknown", "Git Commit: unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, buildTime, gitCommit = tt.version, tt.built, tt.hash
			output := captureStdout(t, printVersion)
			for _, expected := range tt.expected {
				if !strings.Contains(output, expected) {
					t.Errorf("printVersion() output missing expected string: %s\nActual output:\n%s", expected, output)
				}
			}
		})
	}
}

func TestSetupLogging(t *testing.T) {
	originalOutput := log.Writer()
	originalFlags := log.Flags()
	defer func() {
		log.SetOutput(originalOutput)
		log.SetFlags(originalFlags)
	}()

	tests := []struct {
		name       string
		config     *config.Config
		wantOutput io.Writer
		wantFile   bool
	}{
		{"serve quiet", &config.Config{Mode: config.ModeServe, LogLevel: "info"}, io.Discard, false},
		{"serve debug", &config.Config{Mode: config.ModeServe, LogLevel: "debug"}, os.Stderr, false},
		{"analyze", &config.Config{Mode: config.ModeAnalyze, LogLevel: "info"}, os.Stderr, false},
		{"watch debug", &config.Config{Mode: config.ModeWatch, LogLevel: "debug"}, os.Stderr, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log.SetFlags(log.LstdFlags)
			setupLogging(tt.config)
			if log.Writer() != tt.wantOutput {
				t.Errorf("setupLogging() output = %v, want %v", log.Writer(), tt.wantOutput)
			}
			if got := log.Flags()&log.Lshortfile != 0; got != tt.wantFile {
				t.Errorf("setupLogging() Lshortfile = %v, want %v", got, tt.wantFile)
			}
		})
	}
}

type stubPage struct {
	number  int
	widgets []geometry.Widget
}

func (p *stubPage) TextLines() ([]geometry.TextLine, error) { return nil, nil }
func (p *stubPage) Drawings() ([]geometry.Segment, error)   { return nil, nil }
func (p *stubPage) Widgets() ([]geometry.Widget, error)     { return p.widgets, nil }
func (p *stubPage) Number() int                             { return p.number }
func (p *stubPage) Size() geometry.Size                     { return geometry.Size{Width: 612, Height: 792} }

type stubDoc struct{ pages []*stubPage }

func (d *stubDoc) PageCount() int { return len(d.pages) }
func (d *stubDoc) Close() error   { return nil }
func (d *stubDoc) Page(ctx context.Context, n int) (geometry.Page, error) {
	return d.pages[n-1], nil
}

type stubOpener map[string]*stubDoc

func (o stubOpener) Open(ctx context.Context, path string) (geometry.Document, error) {
	if d, ok := o[path]; ok {
		return d, nil
	}
	return nil, errors.New("failed to open PDF: not a PDF")
}

func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	originalOutput := log.Writer()
	log.SetOutput(io.Discard)
	t.Cleanup(func() { log.SetOutput(originalOutput) })

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/src/Pkg/rpa.pdf", []byte("rpa v1"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/src/Pkg/broken.pdf", []byte("broken"), 0o644))

	cfg := config.DefaultConfig()
	cfg.SourceDir = "/src"
	cfg.ManifestDir = "/out"
	cfg.OverlayDir = "/annotated"
	cfg.Timeout = time.Second

	opener := stubOpener{"/src/Pkg/rpa.pdf": {pages: []*stubPage{{number: 1, widgets: []geometry.Widget{{
		Name: "Buyer Signature", WidgetType: "text",
		Box: geometry.Rect{X0: 50, Y0: 600, X1: 250, Y1: 620},
	}}}}}}

	var out bytes.Buffer
	return newApp(cfg, fs, opener, &out), &out
}

func runMode(t *testing.T, a *app, out *bytes.Buffer, mode string) string {
	t.Helper()
	out.Reset()
	a.cfg.Mode = mode
	require.NoError(t, a.run(context.Background()))
	return out.String()
}

func TestApp_Workflow(t *testing.T) {
	a, out := newTestApp(t)

	text := runMode(t, a, out, config.ModeHistory)
	assert.Equal(t, "No history recorded yet.\n", text)

	text = runMode(t, a, out, config.ModeStatus)
	assert.Contains(t, text, "Total PDFs: 2\nNew: 2\n")
	assert.Contains(t, text, "  + Pkg/rpa.pdf")

	text = runMode(t, a, out, config.ModeAnalyze)
	assert.Contains(t, text, "Analyzed 1 documents (1 failed)")
	assert.Contains(t, text, "✗ Pkg/broken.pdf")
	assert.Contains(t, text, "Summary: /out/_summary.yaml")
	exists, err := afero.Exists(a.fs, "/out/"+manifest.SummaryFile)
	require.NoError(t, err)
	assert.True(t, exists)

	text = runMode(t, a, out, config.ModeHistory)
	assert.Contains(t, text, "Version history (last 1 runs):")
	assert.Contains(t, text, ": +2 ~0 -0")

	a.cfg.Folder, a.cfg.File = "Pkg", "rpa.pdf"
	text = runMode(t, a, out, config.ModeFields)
	assert.True(t, strings.HasPrefix(text, "p1 [entry_signature] "), text)
	assert.Contains(t, text, ": Buyer Signature @ {x0: 50.0")

	a.cfg.Category = "entry_date"
	text = runMode(t, a, out, config.ModeFields)
	assert.Equal(t, "No fields found for Pkg/rpa.pdf\n", text)

	text = runMode(t, a, out, config.ModeUpdate)
	assert.Contains(t, text, "Unchanged: 2")
	assert.NotContains(t, text, "✓")

	require.NoError(t, afero.WriteFile(a.fs, "/src/Pkg/rpa.pdf", []byte("rpa v2"), 0o644))
	text = runMode(t, a, out, config.ModeUpdate)
	assert.Contains(t, text, "  ~ Pkg/rpa.pdf")
	assert.Contains(t, text, "✓ Pkg/rpa.pdf (v3.0.1)")

	text = runMode(t, a, out, config.ModeHistory)
	assert.Contains(t, text, "Version history (last 3 runs):")
}

func TestApp_OverlaySkipsUnreadableSources(t *testing.T) {
	a, out := newTestApp(t)
	runMode(t, a, out, config.ModeAnalyze)

	// The in-memory source cannot be imported from disk, so the document
	// is reported and skipped
	text := runMode(t, a, out, config.ModeOverlay)
	assert.Equal(t, "Annotated 0 of 1 documents into /annotated\n", text)
}

func TestApp_UnknownMode(t *testing.T) {
	a, _ := newTestApp(t)
	a.cfg.Mode = "print"
	err := a.run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
