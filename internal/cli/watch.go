package cli

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of events editors emit on save.
const watchDebounce = 150 * time.Millisecond

// watchFiles calls onChange for each file in paths after it is written or
// replaced, until ctx is cancelled. Directories are watched rather than
// files so that atomic saves (write temp, rename) are seen.
func (c *CLI) watchFiles(ctx context.Context, paths []string, onChange func(ctx context.Context, path string)) error {
	logger := loggerFromContext(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	targets := make(map[string]string, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		targets[abs] = p
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return err
		}
	}
	printInfo(c.out, "Watching %s %s", plural(len(paths), "file"), StyleDim.Render("(ctrl-c to stop)"))

	pending := make(map[string]bool)
	timer := time.NewTimer(watchDebounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			abs, _ := filepath.Abs(event.Name)
			path, watched := targets[abs]
			if !watched {
				continue
			}
			logger.Debug("file changed", "path", path, "op", event.Op.String())
			pending[path] = true
			timer.Reset(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)

		case <-timer.C:
			for _, p := range paths {
				if pending[p] {
					onChange(ctx, p)
				}
			}
			clear(pending)
		}
	}
}
