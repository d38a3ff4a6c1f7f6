// Package watch follows the project directory for changes made outside
// this process and keeps the generated documents in step with them.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/feattree/internal/catalog"
)

// DefaultDebounce is how long the watcher waits for a burst of file events
// to settle before acting on it.
const DefaultDebounce = 200 * time.Millisecond

// Regenerator re-renders the generated documents. *catalog.Service
// satisfies it.
type Regenerator interface {
	Regenerate(ctx context.Context) ([]string, error)
}

// EventCallback is called with a documents event after the watcher has
// observed an outside change.
type EventCallback func(catalog.ChangeEvent)

// Watcher reacts to database writes and generated-document edits inside
// one directory.
type Watcher struct {
	dir      string
	dbFiles  []string
	docs     []string
	regen    Regenerator
	log      *slog.Logger
	cb       EventCallback
	debounce time.Duration
}

// New creates a watcher for dir, where dbFile is the database file name
// (its -wal and -journal companions count too).
func New(dir, dbFile string, regen Regenerator, logger *slog.Logger, cb EventCallback) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		dir:      dir,
		dbFiles:  []string{dbFile, dbFile + "-wal", dbFile + "-journal"},
		docs:     []string{catalog.FeaturesDoc, catalog.WorkflowsDoc},
		regen:    regen,
		log:      logger,
		cb:       cb,
		debounce: DefaultDebounce,
	}
}

// WithDebounce overrides the settle interval.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	if d > 0 {
		w.debounce = d
	}
	return w
}

// Run processes file events until ctx is cancelled.
//
// Writes to the database files and removal of a generated document
// schedule a regeneration. Rewrites of a document by another process only
// schedule a notification. Either way, one debounced pass handles the
// whole burst.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return err
	}
	w.log.Info("watcher: started", slog.String("dir", w.dir))

	var (
		timer      *time.Timer
		timerC     <-chan time.Time
		wantRegen  bool
		wantNotify bool
	)
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
			timerC = timer.C
			return
		}
		timer.Reset(w.debounce)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.log.Info("watcher: stopped")
			return nil

		case <-timerC:
			w.flush(ctx, wantRegen, wantNotify)
			wantRegen, wantNotify = false, false

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			switch {
			case slices.Contains(w.dbFiles, name):
				if ev.Op&fsnotify.Write == 0 {
					continue
				}
				wantRegen = true
			case slices.Contains(w.docs, name):
				if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					wantRegen = true
				} else if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
					wantNotify = true
				} else {
					continue
				}
			default:
				continue
			}
			w.log.Debug("watcher: change", slog.String("file", name), slog.String("op", ev.Op.String()))
			schedule()

		case werr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watcher: error", slog.String("error", werr.Error()))
		}
	}
}

// flush regenerates when asked and announces the result. A regeneration
// that wrote nothing is only announced if a document changed on disk.
func (w *Watcher) flush(ctx context.Context, regen, notify bool) {
	if regen {
		written, err := w.regen.Regenerate(ctx)
		if err != nil {
			w.log.Warn("watcher: regenerate failed", slog.String("error", err.Error()))
			return
		}
		if len(written) > 0 {
			w.log.Debug("watcher: regenerated", slog.Any("docs", written))
			notify = true
		}
	}
	if notify && w.cb != nil {
		w.cb(catalog.ChangeEvent{Kind: catalog.KindDocuments, Op: catalog.OpRegenerated})
	}
}
