package fs

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/metabind/pkg/core"
)

const debounceDelay = 50 * time.Millisecond

// Watch reports changes made to post documents by other processes, such as
// a second editor or a git checkout. pattern is a doublestar glob matched
// against post IDs; an empty pattern matches every post. Writes made through
// this store are not reported. The channel closes when ctx is done.
func (s *Store) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if pattern == "" {
		pattern = "**"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern %q", pattern)
	}

	w, err := newWatchWorker(s, pattern)
	if err != nil {
		return nil, err
	}

	lifecycle.Go(ctx, w.run, lifecycle.WithErrorHandler(func(err error) {
		s.reportError(fmt.Errorf("watcher: %w", err))
	}))
	return w.events, nil
}

type watchWorker struct {
	store     *Store
	pattern   string
	events    chan core.Event
	watcher   *fsnotify.Watcher
	debouncer *debouncer
}

func newWatchWorker(s *Store, pattern string) (*watchWorker, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Join(s.Path, postsDir)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch posts: %w", err)
	}
	if s.config.Versioned {
		_ = watcher.Add(filepath.Join(s.Path, ".git"))
	}

	s.setWatcherActive(true)
	return &watchWorker{
		store:     s,
		pattern:   pattern,
		events:    make(chan core.Event, 64),
		watcher:   watcher,
		debouncer: newDebouncer(debounceDelay),
	}, nil
}

func (w *watchWorker) logger() *slog.Logger {
	return w.store.config.Logger
}

// run is the event loop. It owns the events channel and closes it on exit.
func (w *watchWorker) run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if w.logger().Enabled(ctx, slog.LevelDebug) {
				w.logger().Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				w.logger().Error("watcher panic", "error", err)
			}
		}
	}()
	defer close(w.events)
	defer w.store.setWatcherActive(false)
	defer w.watcher.Close()

	var gitLocked bool
	err = w.loop(ctx, &gitLocked)

	if !w.debouncer.stopAndWait(5 * time.Second) {
		w.logger().Warn("watcher stopped with pending deliveries")
	}
	return err
}

func (w *watchWorker) loop(ctx context.Context, gitLocked *bool) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}

			if handled, locked := w.gitLock(event, *gitLocked); handled {
				if *gitLocked && !locked {
					w.reconcile(ctx)
				}
				*gitLocked = locked
				continue
			}
			if *gitLocked {
				continue
			}
			w.process(ctx, event)

		case werr, ok := <-w.watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.store.reportError(werr)
		}
	}
}

// gitLock tracks .git/index.lock so a checkout is seen as one reconcile
// instead of a storm of partial events.
func (w *watchWorker) gitLock(event fsnotify.Event, locked bool) (handled, nowLocked bool) {
	if filepath.Base(event.Name) != "index.lock" || filepath.Base(filepath.Dir(event.Name)) != ".git" {
		return false, locked
	}
	switch {
	case event.Has(fsnotify.Create):
		w.logger().Debug("git operation detected, pausing watcher")
		return true, true
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		w.logger().Debug("git operation finished, reconciling")
		return true, false
	}
	return true, locked
}

func (w *watchWorker) reconcile(ctx context.Context) {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		events, err := w.store.Reconcile(ctx)
		if err != nil {
			return err
		}
		for _, e := range events {
			if w.matches(e.PostID) {
				w.send(ctx, e)
			}
		}
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		w.store.reportError(fmt.Errorf("reconcile: %w", err))
	}))
}

func (w *watchWorker) matches(postID string) bool {
	ok, err := doublestar.Match(w.pattern, postID)
	return err == nil && ok
}

func (w *watchWorker) process(ctx context.Context, event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if isTempFile(name) || filepath.Ext(name) != postExt {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	postID := strings.TrimSuffix(name, postExt)
	if checkPostID(postID) != nil || !w.matches(postID) {
		return
	}
	w.logger().Debug("post changed on disk", "post", postID, "op", event.Op.String())

	w.debouncer.add(postID, func() {
		events, err := w.store.refresh(postID)
		if err != nil {
			w.store.reportError(fmt.Errorf("refresh %s: %w", postID, err))
			return
		}
		for _, e := range events {
			w.send(ctx, e)
		}
	})
}

func (w *watchWorker) send(ctx context.Context, e core.Event) {
	defer func() {
		// The channel may already be closed if shutdown outran a delivery.
		_ = recover()
	}()
	select {
	case w.events <- e:
	case <-ctx.Done():
	}
}

func (s *Store) reportError(err error) {
	if s.config.ErrorHandler != nil {
		s.config.ErrorHandler(err)
		return
	}
	s.config.Logger.Error("file store", "error", err)
}
