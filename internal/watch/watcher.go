// Package watch re-runs a render whenever its template or data files change.
package watch

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/fsnotify/fsnotify"

	"github.com/benjaminschreck/go-stache/pkg/stache"
)

// RunFunc is called once at start and again after every debounced change.
type RunFunc func(ctx context.Context) error

// Options configures the watch behaviour.
type Options struct {
	// Files are the template and data files to watch.
	Files []string

	// Debounce is the quiet period before triggering a re-render.
	Debounce time.Duration

	// Logger is used for structured logging.
	Logger log.Interface

	// Out receives the user-facing status lines.
	Out io.Writer
}

// DefaultOptions returns the default watch options.
func DefaultOptions() Options {
	return Options{
		Debounce: 300 * time.Millisecond,
		Logger:   stache.GetLogger(),
		Out:      os.Stderr,
	}
}

// Run starts the watcher and blocks until ctx is cancelled or a SIGINT or
// SIGTERM is received.
func Run(ctx context.Context, opts Options, runFn RunFunc) error {
	if opts.Logger == nil {
		opts.Logger = stache.GetLogger()
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	targets, err := addTargets(watcher, opts.Files)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(opts.Out, "watching %s (debounce=%s)\n", strings.Join(opts.Files, ", "), opts.Debounce)

	doRun(sigCtx, opts, runFn, "(initial)")

	debouncer := NewDebouncer(opts.Debounce, func(path string) {
		doRun(sigCtx, opts, runFn, path)
	})
	defer debouncer.Stop()

	for {
		select {
		case <-sigCtx.Done():
			fmt.Fprintln(opts.Out, "stopped watching")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isRelevant(event, targets) {
				continue
			}
			opts.Logger.WithFields(log.Fields{
				"file": event.Name,
				"op":   event.Op.String(),
			}).Debug("file changed")
			debouncer.Trigger(event.Name)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			opts.Logger.WithError(watchErr).Error("watcher error")
		}
	}
}

// addTargets watches the parent directory of every file, since editors
// often replace a file instead of writing it in place. It returns the set
// of absolute file paths that count as changes.
func addTargets(watcher *fsnotify.Watcher, files []string) (map[string]bool, error) {
	targets := make(map[string]bool, len(files))
	dirs := make(map[string]bool)

	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("resolving %q: %w", f, err)
		}
		if _, err := os.Stat(abs); err != nil {
			return nil, fmt.Errorf("watching %q: %w", f, err)
		}
		targets[abs] = true

		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return nil, fmt.Errorf("watching directory %q: %w", dir, err)
		}
		dirs[dir] = true
	}

	return targets, nil
}

// isRelevant reports whether event touches one of the watched files.
func isRelevant(event fsnotify.Event, targets map[string]bool) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}

	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return targets[abs]
}

func doRun(ctx context.Context, opts Options, runFn RunFunc, trigger string) {
	now := time.Now().Format("15:04:05")

	if err := runFn(ctx); err != nil {
		fmt.Fprintf(opts.Out, "[%s] %s: ERROR: %v\n", now, trigger, err)
		return
	}

	fmt.Fprintf(opts.Out, "[%s] %s: OK\n", now, trigger)
}
