package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/st3v3nmw/raftcheck/pkg/threadsafe"
)

// DefaultDebounce is how long a scenario file must stay unchanged before Watch runs it.
const DefaultDebounce = 500 * time.Millisecond

// Watch runs every scenario file written under root, and under its direct subdirectories,
// once writes to it have been quiet for debounce. Blocks until ctx is cancelled.
func (r *Runner) Watch(ctx context.Context, root string, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(root); err != nil {
		return fmt.Errorf("failed to watch %q: %w", root, err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("failed to read scenario root: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if err := watcher.Add(filepath.Join(root, entry.Name())); err != nil {
				return fmt.Errorf("failed to watch %q: %w", entry.Name(), err)
			}
		}
	}

	ws := r.orchestrator.Workspace()
	if err := ws.Lock(); err != nil {
		return err
	}
	defer ws.Unlock()

	// Last write time per pending file, filled by the event loop
	pending := threadsafe.NewMap[string, time.Time]()
	cleanRoot := filepath.Clean(root)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				info, err := os.Stat(event.Name)
				if err != nil {
					continue
				}

				if info.IsDir() {
					// Only one level below the root is scanned
					if filepath.Dir(filepath.Clean(event.Name)) == cleanRoot {
						if err := watcher.Add(event.Name); err != nil {
							r.log.WithError(err).Warnf("Cannot watch %s", event.Name)
						}
					}
					continue
				}

				if filepath.Ext(event.Name) == ".json" {
					pending.Set(event.Name, time.Now())
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.log.WithError(err).Warn("File watcher error")
			}
		}
	}()

	r.log.Infof("Watching %s for scenario files", root)

	ticker := time.NewTicker(debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		quiet := func(_ string, last time.Time) bool { return time.Since(last) >= debounce }
		for _, path := range pending.Take(quiet, func(a, b string) bool { return a < b }) {
			if _, err := os.Stat(path); err != nil {
				continue
			}

			result, err := r.RunOne(ctx, path)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}

			r.announce(result)

			if result.Outcome.Failed() {
				if err := r.saveArtifacts(result); err != nil {
					return err
				}
			}

			r.record(result)
		}
	}
}

// announce prints a one-line verdict for a single scenario.
func (r *Runner) announce(result *Result) {
	if result.Outcome == Pass {
		fmt.Fprintf(r.config.Out, "%s %s\n", checkMark, result.Path)
		return
	}

	fmt.Fprintf(r.config.Out, "%s %s [%s] %s\n", crossMark, result.Path, result.Outcome, result.Reason)
}
