// Package dispatch drives queued tasks through a worker CLI, one task at a
// time per batch. It owns the task state machine from Queued onward; every
// other status change is a user edit.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"mapleboard/internal/domain"
	"mapleboard/internal/mcp"
	"mapleboard/internal/report"
	"mapleboard/internal/runtime"
	"mapleboard/internal/session"
	"mapleboard/internal/store"
)

// Config supplies the per-kind worker configuration and the MCP server
// settings the controller reads at dispatch time.
type Config struct {
	Workers map[domain.WorkerKind]domain.WorkerConfig
	Mcp     domain.McpServerConfig
}

// Controller runs queued-task batches against workers.
type Controller struct {
	store   *store.Store
	session *session.State
	runner  runtime.Runner
	guard   *mcp.Guard
	config  Config
	logger  *slog.Logger

	mu       sync.Mutex
	inFlight map[string]bool // project ids with a batch mid-loop
	kindMu   map[domain.WorkerKind]*sync.Mutex
}

func NewController(st *store.Store, sess *session.State, runner runtime.Runner, guard *mcp.Guard, config Config, logger *slog.Logger) *Controller {
	kindMu := make(map[domain.WorkerKind]*sync.Mutex, len(domain.Kinds()))
	for _, kind := range domain.Kinds() {
		kindMu[kind] = &sync.Mutex{}
	}
	return &Controller{
		store:    st,
		session:  sess,
		runner:   runner,
		guard:    guard,
		config:   config,
		logger:   logger,
		inFlight: make(map[string]bool),
		kindMu:   kindMu,
	}
}

// CompletePending queues every Todo task in the project and runs them
// sequentially against the resolved worker. overrideKind beats the project's
// bound kind; with neither, ErrNoWorkerBound asks the caller to show a
// picker. Precondition failures leave task state untouched.
//
// One batch per project at a time (ErrDispatchInFlight) and one batch per
// worker kind at a time (ErrWorkerBusy); different kinds run in parallel.
func (c *Controller) CompletePending(ctx context.Context, projectID string, overrideKind domain.WorkerKind) error {
	project, ok := c.store.Project(projectID)
	if !ok {
		return domain.ErrNotFound
	}

	kind := overrideKind
	if kind == "" {
		kind = project.WorkerKind
	}
	if !kind.Valid() {
		return domain.ErrNoWorkerBound
	}
	if strings.TrimSpace(project.Directory) == "" {
		return domain.ErrNoDirectory
	}
	cfg, ok := c.config.Workers[kind]
	if !ok || strings.TrimSpace(cfg.Executable) == "" {
		return &domain.WorkerError{Op: "dispatch", WorkerID: domain.WorkerID(kind), Err: domain.ErrNoExecutable}
	}

	if err := c.acquire(projectID, kind); err != nil {
		return err
	}
	defer c.release(projectID, kind)

	if !c.guard.EnsureRunning(ctx, c.config.Mcp) {
		return domain.ErrMcpUnavailable
	}

	todo := c.store.TodoTaskIDs(projectID)
	if len(todo) == 0 {
		return domain.ErrNothingToDispatch
	}

	// The whole batch becomes visibly Queued before the first process
	// spawns.
	c.store.MarkTasksQueued(projectID, todo)

	workerID := domain.WorkerID(kind)
	c.session.SetExecuting(workerID)
	c.session.BindProject(workerID, project.Name)
	defer func() {
		c.session.ClearExecuting(workerID)
		c.session.ReleaseProjectIfIdle(workerID)
	}()

	c.logger.Info("dispatch started",
		"project", project.Name, "worker", workerID, "tasks", len(todo))
	c.store.Notify(store.NoticeInfo,
		fmt.Sprintf("%s: %d 个任务已加入队列", project.Name, len(todo)))

	for _, taskID := range todo {
		c.executeTask(ctx, project, kind, cfg, taskID)
	}

	c.logger.Info("dispatch finished", "project", project.Name, "worker", workerID)
	return nil
}

// executeTask runs one task through the worker and folds whatever happened
// into a single decision. Spawn failure and worker-reported failure converge
// here; the only difference is the synthesized result carrying the error text.
func (c *Controller) executeTask(ctx context.Context, project domain.Project, kind domain.WorkerKind, cfg domain.WorkerConfig, taskID string) {
	current, ok := c.store.Project(project.ID)
	if !ok {
		return
	}
	task, _ := current.TaskByID(taskID)
	if task == nil || task.Status != domain.StatusQueued {
		// Deleted or hand-edited while waiting in the queue.
		return
	}
	title := task.Title
	workerID := domain.WorkerID(kind)

	c.store.UpdateTask(project.ID, taskID, func(t *domain.Task) {
		t.Status = domain.StatusRunning
	})
	c.session.AppendLogLine(workerID, fmt.Sprintf("=== 任务: %s ===", title))

	result, err := c.runner.RunWorker(ctx, runtime.RunRequest{
		WorkerID:   workerID,
		TaskTitle:  title,
		Executable: cfg.Executable,
		Args:       runArgs(kind, cfg),
		Prompt:     BuildPrompt(project, title),
		Cwd:        project.Directory,
	})
	res := report.ExecResult{
		Success: result.Success,
		Code:    result.Code,
		Stdout:  result.Stdout,
		Stderr:  result.Stderr,
	}
	if err != nil {
		c.logger.Warn("worker spawn failed", "worker", workerID, "task", title, "error", err)
		res = report.ExecResult{Success: false, Stderr: err.Error()}
	}

	decision, derivable := report.Resolve(res, title)
	if !derivable {
		decision.Status = domain.StatusBlocked
	}

	c.applyDecision(project.ID, taskID, workerID, decision)
}

// applyDecision writes the outcome back onto the task. A Done decision stamps
// the project's next patch version on the task and folds it into the tags.
func (c *Controller) applyDecision(projectID, taskID, workerID string, decision report.Decision) {
	project, ok := c.store.Project(projectID)
	if !ok {
		return
	}

	versionTag := ""
	taskVersion := ""
	if decision.Status == domain.StatusDone {
		if next, err := domain.BumpPatch(project.Version); err == nil {
			taskVersion = next
			versionTag = "v" + next
		} else {
			c.logger.Warn("project version not bumpable", "version", project.Version)
		}
	}

	c.store.UpdateTask(projectID, taskID, func(t *domain.Task) {
		t.Status = decision.Status
		t.Tags = domain.MergeTaskTags(domain.MergeTagsInput{
			Existing:   t.Tags,
			Generated:  decision.Tags,
			VersionTag: versionTag,
			Max:        report.MaxTags,
		})
		if taskVersion != "" {
			t.Version = taskVersion
		}
	})
	c.store.AppendReport(projectID, taskID, domain.NewTaskReport(workerID, decision.Report))

	level := store.NoticeSuccess
	if decision.Status != domain.StatusDone {
		level = store.NoticeWarning
	}
	c.store.Notify(level, fmt.Sprintf("任务状态: %s", decision.Status))
}

// ProbeWorker runs the kind's version-style check and archives the result in
// the worker's log buffer. Task state is never touched.
func (c *Controller) ProbeWorker(ctx context.Context, kind domain.WorkerKind) error {
	if !kind.Valid() {
		return domain.ErrNoWorkerBound
	}
	cfg, ok := c.config.Workers[kind]
	if !ok || strings.TrimSpace(cfg.Executable) == "" {
		return &domain.WorkerError{Op: "probe", WorkerID: domain.WorkerID(kind), Err: domain.ErrNoExecutable}
	}
	if !c.guard.EnsureRunning(ctx, c.config.Mcp) {
		return domain.ErrMcpUnavailable
	}

	workerID := domain.WorkerID(kind)
	result, err := c.runner.ProbeWorker(ctx, cfg.Executable, domain.SplitArgs(cfg.ProbeArgs), "")
	if err != nil {
		c.session.AppendLogLine(workerID, fmt.Sprintf("probe failed: %v", err))
		c.store.Notify(store.NoticeError, fmt.Sprintf("%s 探测失败", kind))
		return err
	}

	out := strings.TrimSpace(result.Stdout)
	if out == "" {
		out = strings.TrimSpace(result.Stderr)
	}
	c.session.AppendLogLine(workerID, fmt.Sprintf("probe: %s", out))
	if result.Success {
		c.store.Notify(store.NoticeSuccess, fmt.Sprintf("%s 可用: %s", kind, out))
	} else {
		c.store.Notify(store.NoticeWarning, fmt.Sprintf("%s 探测未通过", kind))
	}
	return nil
}

func (c *Controller) acquire(projectID string, kind domain.WorkerKind) error {
	c.mu.Lock()
	if c.inFlight[projectID] {
		c.mu.Unlock()
		return domain.ErrDispatchInFlight
	}
	c.inFlight[projectID] = true
	c.mu.Unlock()

	if c.session.Busy(kind) || !c.kindMu[kind].TryLock() {
		c.mu.Lock()
		delete(c.inFlight, projectID)
		c.mu.Unlock()
		return domain.ErrWorkerBusy
	}
	return nil
}

func (c *Controller) release(projectID string, kind domain.WorkerKind) {
	c.kindMu[kind].Unlock()
	c.mu.Lock()
	delete(c.inFlight, projectID)
	c.mu.Unlock()
}

func runArgs(kind domain.WorkerKind, cfg domain.WorkerConfig) []string {
	args := domain.SplitArgs(cfg.RunArgs)
	if cfg.DangerMode {
		if flag := kind.DangerFlag(); flag != "" {
			args = append([]string{flag}, args...)
		}
	}
	return args
}

// BuildPrompt synthesizes the instruction handed to a worker for one task.
func BuildPrompt(project domain.Project, taskTitle string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "项目: %s\n", project.Name)
	fmt.Fprintf(&b, "目录: %s\n", project.Directory)
	fmt.Fprintf(&b, "任务: %s\n\n", taskTitle)
	b.WriteString("请在上述项目目录中完成该任务。完成后输出一个 JSON 对象，")
	b.WriteString(`包含 conclusion、changes、verification、tags 字段，`)
	b.WriteString("必要时附带 status 字段（done/blocked/needs_info）。")
	return b.String()
}
