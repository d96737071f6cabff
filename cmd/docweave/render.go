package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgallion1/docweave/internal/api"
	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 300 * time.Millisecond

// runRender renders file once and, with watch set, again on every change
// until ctx is done.
func runRender(ctx context.Context, r api.Renderer, file, output string, watch bool, log *slog.Logger) error {
	if err := renderFile(ctx, r, file, output); err != nil {
		if !watch {
			return err
		}
		log.Warn("render failed", "file", file, "error", err)
	}
	if !watch {
		return nil
	}

	log.Info("watching for changes", "file", file)
	return watchFile(ctx, file, log, func() {
		if err := renderFile(ctx, r, file, output); err != nil {
			log.Warn("render failed", "file", file, "error", err)
			return
		}
		log.Info("re-rendered", "file", file)
	})
}

// renderFile writes the HTML for file to output, or stdout when output is empty.
func renderFile(ctx context.Context, r api.Renderer, file, output string) error {
	src, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}
	html, err := r.Render(ctx, string(src))
	if err != nil {
		return err
	}
	if output == "" {
		return writeHTML(os.Stdout, html)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	if err := writeHTML(f, html); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeHTML(w io.Writer, html string) error {
	_, err := io.WriteString(w, html+"\n")
	return err
}

// watchFile calls onChange, debounced, whenever file is written, created or
// replaced. The directory is watched so editors that swap files are seen.
func watchFile(ctx context.Context, file string, log *slog.Logger, onChange func()) error {
	abs, err := filepath.Abs(file)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", file, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	var mu sync.Mutex
	var timer *time.Timer
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()
	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(watchDebounce, onChange)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				log.Debug("file change detected", "path", ev.Name, "op", ev.Op.String())
				trigger()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", "error", err)
		}
	}
}
