package watch

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPDFEvent(t *testing.T) {
	tests := []struct {
		ev   fsnotify.Event
		want bool
	}{
		{fsnotify.Event{Name: "/src/Pkg/a.pdf", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "/src/Pkg/a.pdf", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/src/Pkg/a.pdf", Op: fsnotify.Remove}, true},
		{fsnotify.Event{Name: "/src/Pkg/a.pdf", Op: fsnotify.Rename}, true},
		{fsnotify.Event{Name: "/src/Pkg/a.pdf", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "/src/Pkg/a.txt", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "/src/Pkg/a.pdf.part", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		if got := IsPDFEvent(tt.ev); got != tt.want {
			t.Errorf("IsPDFEvent(%v) = %v, want %v", tt.ev, got, tt.want)
		}
	}
}

type loopHarness struct {
	events chan fsnotify.Event
	errs   chan error
	calls  atomic.Int32
	mu     sync.Mutex
	added  []string
	cancel context.CancelFunc
	done   chan error
}

func startLoop(t *testing.T, fs afero.Fs, debounce time.Duration, triggerErr error) *loopHarness {
	t.Helper()
	h := &loopHarness{
		events: make(chan fsnotify.Event),
		errs:   make(chan error),
		done:   make(chan error, 1),
	}
	w := New(fs, "/src", debounce, func(context.Context) error {
		h.calls.Add(1)
		return triggerErr
	}, log.New(io.Discard, "", 0))

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		h.done <- w.loop(ctx, h.events, h.errs, func(dir string) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.added = append(h.added, dir)
			return nil
		})
	}()
	t.Cleanup(func() {
		cancel()
		<-h.done
	})
	return h
}

func TestLoop_DebouncesBursts(t *testing.T) {
	h := startLoop(t, afero.NewMemMapFs(), 50*time.Millisecond, nil)

	for i := 0; i < 5; i++ {
		h.events <- fsnotify.Event{Name: "/src/Pkg/a.pdf", Op: fsnotify.Write}
	}
	h.events <- fsnotify.Event{Name: "/src/Pkg/notes.txt", Op: fsnotify.Write}

	assert.Eventually(t, func() bool { return h.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, int32(1), h.calls.Load(), "one burst triggers one update")

	h.events <- fsnotify.Event{Name: "/src/Pkg/b.pdf", Op: fsnotify.Create}
	assert.Eventually(t, func() bool { return h.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestLoop_IgnoresIrrelevantEvents(t *testing.T) {
	h := startLoop(t, afero.NewMemMapFs(), 20*time.Millisecond, nil)

	h.events <- fsnotify.Event{Name: "/src/Pkg/a.pdf", Op: fsnotify.Chmod}
	h.events <- fsnotify.Event{Name: "/src/readme.md", Op: fsnotify.Create}
	h.errs <- errors.New("queue overflow")

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), h.calls.Load())
}

func TestLoop_WatchesNewPackages(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/src/New Pkg", 0o755))
	require.NoError(t, fs.MkdirAll("/src/Old Pkg/nested", 0o755))
	h := startLoop(t, fs, 20*time.Millisecond, nil)

	h.events <- fsnotify.Event{Name: "/src/New Pkg", Op: fsnotify.Create}
	h.events <- fsnotify.Event{Name: "/src/Old Pkg/nested", Op: fsnotify.Create}

	assert.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return len(h.added) == 1
	}, time.Second, 5*time.Millisecond)
	h.mu.Lock()
	assert.Equal(t, []string{"/src/New Pkg"}, h.added)
	h.mu.Unlock()
}

func TestLoop_TriggerErrorKeepsRunning(t *testing.T) {
	h := startLoop(t, afero.NewMemMapFs(), 10*time.Millisecond, errors.New("disk full"))

	h.events <- fsnotify.Event{Name: "/src/Pkg/a.pdf", Op: fsnotify.Write}
	assert.Eventually(t, func() bool { return h.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	h.events <- fsnotify.Event{Name: "/src/Pkg/a.pdf", Op: fsnotify.Write}
	assert.Eventually(t, func() bool { return h.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestLoop_StopsOnClosedEvents(t *testing.T) {
	w := New(afero.NewMemMapFs(), "/src", time.Millisecond, func(context.Context) error { return nil }, nil)
	events := make(chan fsnotify.Event)
	close(events)
	err := w.loop(context.Background(), events, make(chan error), func(string) error { return nil })
	assert.NoError(t, err)
}

func TestPackageDirs(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/src/B", 0o755))
	require.NoError(t, fs.MkdirAll("/src/A/deep", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/src/loose.pdf", []byte("x"), 0o644))

	w := New(fs, "/src/", 0, nil, log.New(io.Discard, "", 0))
	dirs, err := w.packageDirs()
	require.NoError(t, err)
	assert.Equal(t, []string{"/src", "/src/A", "/src/B"}, dirs)

	_, err = New(fs, "/missing", 0, nil, nil).packageDirs()
	assert.Error(t, err)
}
