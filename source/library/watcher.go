package library

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/archivemind/corpora/core"
)

// TriggerFunc requests an ingestion run for a modality. The boolean
// reports whether the trigger was accepted (false = already running).
type TriggerFunc func(ctx context.Context, modality core.Modality) (bool, error)

// Watcher fires a book ingest trigger when files in the library
// directory are created or modified. Events are debounced so one file
// copy doesn't cause a trigger per write syscall.
type Watcher struct {
	dir      string
	trigger  TriggerFunc
	debounce time.Duration
	watcher  *fsnotify.Watcher
	done     chan struct{}
	logger   *slog.Logger
}

// NewWatcher creates a watcher over the library directory. A zero
// debounce defaults to 2s.
func NewWatcher(dir string, trigger TriggerFunc, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{
		dir:      dir,
		trigger:  trigger,
		debounce: debounce,
		watcher:  fsw,
		done:     make(chan struct{}),
		logger:   slog.Default().With("component", "library-watcher"),
	}, nil
}

// Start runs the event loop until Close or ctx cancellation.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *Watcher) loop(ctx context.Context) {
	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			w.logger.Debug("library changed", "file", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("library watch error", "err", err)
		case <-pending:
			pending = nil
			accepted, err := w.trigger(ctx, core.ModalityBook)
			if err != nil {
				w.logger.Error("book ingest trigger failed", "err", err)
				continue
			}
			w.logger.Info("book ingest triggered", "accepted", accepted)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
