package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgallion1/docweave/internal/app"
	"github.com/dgallion1/docweave/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upperRenderer struct{}

func (upperRenderer) Render(_ context.Context, src string) (string, error) {
	return "<p>" + strings.ToUpper(strings.TrimSpace(src)) + "</p>", nil
}

func TestRenderFile_WritesOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "doc.md")
	out := filepath.Join(dir, "doc.html")
	require.NoError(t, os.WriteFile(in, []byte("hello\n"), 0o644))

	require.NoError(t, renderFile(context.Background(), upperRenderer{}, in, out))
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "<p>HELLO</p>\n", string(got))
}

func TestRenderFile_MissingInput(t *testing.T) {
	err := renderFile(context.Background(), upperRenderer{}, filepath.Join(t.TempDir(), "none.md"), "")
	assert.Error(t, err)
}

func TestWatchFile_TriggersOnWrite(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "doc.md")
	require.NoError(t, os.WriteFile(file, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.md"), []byte("a"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, file, slog.Default(), func() { calls.Add(1) })
	}()

	// Give the watcher time to register before touching the files.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.md"), []byte("b"), 0o644))
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(file, []byte("b"), 0o644))
	}

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 20*time.Millisecond)
	time.Sleep(2 * watchDebounce)
	assert.Equal(t, int32(1), calls.Load(), "writes within the debounce window collapse into one call")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestRunCacheStats(t *testing.T) {
	a, err := app.New(config.Config{
		GeneratorProvider: config.ProviderNone,
		CacheBackend:      "memory",
		MaxConcurrentGen:  1,
		LLMStatsWindow:    time.Minute,
	}, nil)
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.Cache.Set(context.Background(), "k", "v"))

	var buf bytes.Buffer
	require.NoError(t, runCacheStats(context.Background(), a, &buf))
	assert.Equal(t, "backend: memory\nlocation: -\nentries: 1\n", buf.String())
}
