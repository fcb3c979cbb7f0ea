// Package events reconciles worker output streams back onto session and
// store state, and watches the board for whole-project completion.
package events

import (
	"context"
	"fmt"
	"log/slog"

	"mapleboard/internal/runtime"
	"mapleboard/internal/session"
	"mapleboard/internal/store"
)

// Reconciler consumes the runtime's log and done streams and folds them into
// session state. It is the only writer of session log buffers from the
// runtime side; dispatch writes its own banners synchronously.
type Reconciler struct {
	session *session.State
	store   *store.Store
	runner  runtime.Runner
	logger  *slog.Logger
}

func NewReconciler(sess *session.State, st *store.Store, runner runtime.Runner, logger *slog.Logger) *Reconciler {
	return &Reconciler{session: sess, store: st, runner: runner, logger: logger}
}

// Run pumps both streams until the context ends. Call it once, in its own
// goroutine.
func (r *Reconciler) Run(ctx context.Context) {
	logs := r.runner.Logs()
	done := r.runner.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-logs:
			if !ok {
				logs = nil
				continue
			}
			r.handleLog(ev)
		case ev, ok := <-done:
			if !ok {
				done = nil
				continue
			}
			r.handleDone(ev)
		}
		if logs == nil && done == nil {
			return
		}
	}
}

func (r *Reconciler) handleLog(ev runtime.LogEvent) {
	r.session.AppendLogLine(ev.WorkerID, ev.Line)

	if IsPermissionPrompt(ev.Line) {
		if r.session.RaisePermissionPrompt(ev.WorkerID, ev.Line) {
			r.logger.Info("permission prompt detected", "worker", ev.WorkerID, "line", ev.Line)
			r.store.Notify(store.NoticeWarning, fmt.Sprintf("%s 等待确认", ev.WorkerID))
		}
	}
}

// handleDone covers interactive console exits only; batch completions are
// resolved inside the dispatch loop.
func (r *Reconciler) handleDone(ev runtime.DoneEvent) {
	r.session.ClearRunning(ev.WorkerID)
	r.session.ReleaseProjectIfIdle(ev.WorkerID)

	summary := exitSummary(ev)
	r.session.AppendLogLine(ev.WorkerID, summary)

	level := store.NoticeInfo
	if !ev.Success {
		level = store.NoticeWarning
	}
	r.store.Notify(level, fmt.Sprintf("%s %s", ev.WorkerID, summary))
}

func exitSummary(ev runtime.DoneEvent) string {
	code := "?"
	if ev.Code != nil {
		code = fmt.Sprintf("%d", *ev.Code)
	}
	if ev.Success {
		return fmt.Sprintf("=== 会话结束 (exit %s) ===", code)
	}
	return fmt.Sprintf("=== 会话异常退出 (exit %s) ===", code)
}
