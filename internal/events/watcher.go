package events

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gen2brain/beeep"

	"mapleboard/internal/domain"
	"mapleboard/internal/store"
)

// Notify is the desktop notification hook, swappable in tests.
type Notify func(title, message string) error

// CompletionWatcher fires a desktop notification when a project's board
// first becomes fully Done. It diffs the fully-done project id set on every
// store change; the first observation only seeds the set, so pre-existing
// completed projects stay silent on startup.
type CompletionWatcher struct {
	store   *store.Store
	notify  Notify
	desktop bool // desktop notifications enabled in settings
	logger  *slog.Logger

	mu     sync.Mutex
	seeded bool
	done   map[string]bool
}

func NewCompletionWatcher(st *store.Store, desktop bool, logger *slog.Logger) *CompletionWatcher {
	return &CompletionWatcher{
		store: st,
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
		desktop: desktop,
		logger:  logger,
		done:    make(map[string]bool),
	}
}

// Attach registers the watcher with the store's change stream.
func (w *CompletionWatcher) Attach() {
	w.store.Subscribe(w.Observe)
}

// Observe recomputes the fully-done set against the previous one.
func (w *CompletionWatcher) Observe(projects []domain.Project) {
	w.mu.Lock()
	defer w.mu.Unlock()

	next := make(map[string]bool, len(projects))
	for i := range projects {
		if projects[i].AllDone() {
			next[projects[i].ID] = true
		}
	}

	if !w.seeded {
		w.seeded = true
		w.done = next
		return
	}

	for i := range projects {
		p := &projects[i]
		if next[p.ID] && !w.done[p.ID] {
			w.fire(p.Name)
		}
	}
	w.done = next
}

func (w *CompletionWatcher) fire(projectName string) {
	message := fmt.Sprintf("项目 %s 的所有任务已完成", projectName)
	w.store.Notify(store.NoticeSuccess, message)

	if !w.desktop {
		return
	}
	if err := w.notify("mapleboard", message); err != nil {
		// The in-app notice above is the fallback.
		w.logger.Debug("desktop notification unavailable", "error", err)
	}
}
