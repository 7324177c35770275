package slot

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ReloadFunc is invoked after the registry reloads, so the caller can fan a
// RELOAD_DATA notification out to subscribed editing surfaces.
type ReloadFunc func(reason string, updatedFields []string)

// Watcher reloads the registry when slot configuration files change on disk.
type Watcher struct {
	registry *Registry
	dir      string
	onReload ReloadFunc
	log      zerolog.Logger

	// debounce window for editors that emit several write events per save
	settle time.Duration
}

// NewWatcher creates a watcher over the given config directory.
func NewWatcher(registry *Registry, dir string, onReload ReloadFunc, log zerolog.Logger) *Watcher {
	return &Watcher{
		registry: registry,
		dir:      dir,
		onReload: onReload,
		log:      log.With().Str("component", "slot-watcher").Logger(),
		settle:   200 * time.Millisecond,
	}
}

// Run watches until the context is cancelled. Reload failures keep the
// previous configuration and are logged, never fatal.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return err
	}
	w.log.Info().Str("dir", w.dir).Msg("watching slot configuration")

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	changed := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) {
				continue
			}
			ext := strings.ToLower(filepath.Ext(ev.Name))
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			changed[filepath.Base(ev.Name)] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.settle)
				timerCh = timer.C
			} else {
				timer.Reset(w.settle)
			}

		case <-timerCh:
			timer = nil
			timerCh = nil
			files := make([]string, 0, len(changed))
			for f := range changed {
				files = append(files, f)
			}
			changed = make(map[string]struct{})

			if err := w.registry.LoadDir(w.dir); err != nil {
				w.log.Warn().Err(err).Msg("slot config reload failed, keeping previous configuration")
				continue
			}
			w.log.Info().Strs("files", files).Msg("slot configuration reloaded")
			if w.onReload != nil {
				w.onReload("slot_config_changed", files)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("fsnotify error")
		}
	}
}
