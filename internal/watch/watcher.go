package watch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher subscribes to creation events on one directory and hands the
// base name of every created file to the submit callback. Modified
// files are observed and logged but never submitted; watcher-level
// errors (including notification overflow) are logged and skipped.
type Watcher struct {
	dir    string
	fsw    *fsnotify.Watcher
	submit func(name string)
	done   chan struct{}
}

// New subscribes to dir. Call Run to start draining events.
func New(dir string, submit func(name string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	log.Info().Str("dir", dir).Msg("subscribed to folder notifications")
	return &Watcher{dir: dir, fsw: fsw, submit: submit, done: make(chan struct{})}, nil
}

// Run blocks draining notifications until ctx is cancelled or Close is
// called. A failure on one event never terminates the loop.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("dir", w.dir).Msg("watcher loop exited")
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				log.Info().Str("dir", w.dir).Msg("watcher loop exited")
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				log.Info().Str("dir", w.dir).Msg("watcher loop exited")
				return
			}
			log.Warn().Str("dir", w.dir).Err(err).Msg("notification error, skipping")
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	name := filepath.Base(ev.Name)
	switch {
	case ev.Op.Has(fsnotify.Create):
		log.Info().Str("name", name).Msg("new path created")
		w.submit(name)
	case ev.Op.Has(fsnotify.Write):
		// a file modified after creation is not reprocessed here
		log.Debug().Str("name", name).Msg("ignored path modified")
	}
}

// Close releases the subscription and waits for Run to return. Call
// only after Run has been started.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}
