package catalogsource

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/raumania/assistant/internal/observability"
)

// defaultDebounce coalesces the burst of events a single export write produces
const defaultDebounce = 250 * time.Millisecond

// Watcher calls onChange when either export file in a directory is written,
// created, renamed or removed
type Watcher struct {
	watcher  *fsnotify.Watcher
	names    map[string]struct{}
	onChange func()
	debounce time.Duration
	logger   zerolog.Logger
}

// NewWatcher watches dir for changes to the named files. The directory itself
// is watched so that files replaced by rename are still tracked.
func NewWatcher(dir string, files []string, onChange func(), logger zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	names := make(map[string]struct{}, len(files))
	for _, f := range files {
		names[filepath.Base(f)] = struct{}{}
	}

	return &Watcher{
		watcher:  fw,
		names:    names,
		onChange: onChange,
		debounce: defaultDebounce,
		logger:   observability.Component(logger, "catalog_watcher").With().Str("dir", dir).Logger(),
	}, nil
}

// Run delivers change notifications until ctx is done, then closes the watcher
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("catalog file changed")
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.logger.Info().Msg("catalog files changed, invalidating snapshot")
			w.onChange()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("watcher error")
		}
	}
}

// Close stops watching. Safe to call after Run has returned.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if _, ok := w.names[filepath.Base(event.Name)]; !ok {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)
}
