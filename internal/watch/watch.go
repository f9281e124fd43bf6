// Package watch re-runs the pipeline whenever the raw export in the data
// directory changes. Exports land via file copy, which fires several
// writes in quick succession, so events are debounced before a run starts.
package watch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/johns/sitewise/internal/config"
	"github.com/johns/sitewise/internal/job"
)

// Watch blocks, re-running the full pipeline each time the raw export is
// rewritten, until ctx is cancelled.
func Watch(ctx context.Context, cfg config.Config, runner *job.Runner, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(cfg.DataDir); err != nil {
		return err
	}

	debounce := time.Duration(cfg.Watch.DebounceSeconds) * time.Second
	if debounce <= 0 {
		debounce = 2 * time.Second
	}

	log.Info("watching data dir", zap.String("dir", cfg.DataDir))

	deb := newDebouncer(debounce)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !Triggers(event) {
				continue
			}
			log.Debug("input changed", zap.String("op", event.Op.String()))
			deb.Schedule()

		case <-deb.C():
			deb.Fired()
			if _, err := runner.RunAll(ctx); err != nil {
				// Keep watching; a partial or mid-copy input will settle.
				log.Warn("pipeline run failed", zap.Error(err))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", zap.Error(err))
		}
	}
}

// debouncer coalesces a burst of events into one fire per quiet period.
// Not safe for concurrent use; the watch loop owns it.
type debouncer struct {
	d     time.Duration
	timer *time.Timer
	c     <-chan time.Time
}

func newDebouncer(d time.Duration) *debouncer {
	return &debouncer{d: d}
}

// Schedule arms the quiet-period timer, pushing back any pending fire.
// A tick the timer already produced but nobody consumed is drained first,
// per the time.Timer Reset contract, so rescheduling never fires early.
func (b *debouncer) Schedule() {
	if b.timer == nil {
		b.timer = time.NewTimer(b.d)
		b.c = b.timer.C
		return
	}
	if !b.timer.Stop() {
		select {
		case <-b.timer.C:
		default:
		}
	}
	b.timer.Reset(b.d)
	b.c = b.timer.C
}

// C returns the fire channel, nil while nothing is scheduled. A nil channel
// blocks forever in a select, so an idle debouncer never fires.
func (b *debouncer) C() <-chan time.Time {
	return b.c
}

// Fired marks the pending fire as consumed.
func (b *debouncer) Fired() {
	b.c = nil
}

// Triggers reports whether an fsnotify event should schedule a pipeline
// run: only writes or creates of the raw export file.
func Triggers(event fsnotify.Event) bool {
	if filepath.Base(event.Name) != job.RawInput {
		return false
	}
	return event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create)
}
