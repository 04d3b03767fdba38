package calibration

import (
	"context"

	"github.com/chesscast/chesscast/pkg/logger"
	"github.com/fsnotify/fsnotify"
)

// ChangeFunc is called for every mapping file change,
// created is false when the file is gone.
type ChangeFunc func(token string, created bool)

// Watcher tracks mapping files that other programs create or remove.
type Watcher struct {
	dir      string
	w        *fsnotify.Watcher
	onChange ChangeFunc
	done     chan struct{}
	log      *logger.Logger
}

func NewWatcher(dir string, onChange ChangeFunc, log *logger.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err = w.Add(dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	return &Watcher{dir: dir, w: w, onChange: onChange, done: make(chan struct{}), log: log.Module("mappings")}, nil
}

func (w *Watcher) Run() { go w.watch() }

func (w *Watcher) watch() {
	defer close(w.done)
	w.log.Debug().Str("dir", w.dir).Msg("Mapping watch has started")
	for {
		select {
		case event, ok := <-w.w.Events:
			if !ok {
				w.log.Debug().Msg("Mapping watch has ended")
				return
			}
			token, ok := TokenOf(event.Name)
			if !ok {
				continue
			}
			switch {
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				w.onChange(token, true)
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				w.onChange(token, false)
			}
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("Mapping watch error")
		}
	}
}

func (w *Watcher) Shutdown(ctx context.Context) error {
	err := w.w.Close()
	select {
	case <-w.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

func (w *Watcher) String() string { return "mappings watcher" }
