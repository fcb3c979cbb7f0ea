package runtime

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"mapleboard/internal/domain"
)

// probeTimeout bounds version-check invocations that forget a deadline.
const probeTimeout = 15 * time.Second

// Local runs workers as child processes of this one.
type Local struct {
	logger *slog.Logger

	logs chan LogEvent
	done chan DoneEvent

	mu       sync.Mutex
	sessions map[string]*interactiveSession

	mcpMu      sync.Mutex
	mcpCmd     *exec.Cmd
	mcpCommand string
	mcpExited  chan struct{}
}

type interactiveSession struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

// NewLocal creates the local execution boundary.
func NewLocal(logger *slog.Logger) *Local {
	return &Local{
		logger:   logger,
		logs:     make(chan LogEvent, 256),
		done:     make(chan DoneEvent, 16),
		sessions: make(map[string]*interactiveSession),
	}
}

// Logs returns the worker output stream.
func (l *Local) Logs() <-chan LogEvent {
	return l.logs
}

// Done returns the interactive session exit stream.
func (l *Local) Done() <-chan DoneEvent {
	return l.done
}

// RunWorker spawns the executable once with the prompt on stdin and blocks
// until it exits. Output is both streamed line by line and captured whole.
func (l *Local) RunWorker(ctx context.Context, req RunRequest) (WorkerResult, error) {
	executable := strings.TrimSpace(req.Executable)
	if executable == "" {
		return WorkerResult{}, &domain.WorkerError{Op: "run", WorkerID: req.WorkerID, Err: domain.ErrNoExecutable}
	}

	l.logger.Debug("running worker", "workerId", req.WorkerID, "executable", executable, "cwd", req.Cwd)

	cmd := exec.CommandContext(ctx, executable, req.Args...)
	if dir := strings.TrimSpace(req.Cwd); dir != "" {
		cmd.Dir = dir
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return WorkerResult{}, &domain.WorkerError{Op: "run", WorkerID: req.WorkerID, Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return WorkerResult{}, &domain.WorkerError{Op: "run", WorkerID: req.WorkerID, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return WorkerResult{}, &domain.WorkerError{Op: "run", WorkerID: req.WorkerID, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return WorkerResult{}, &domain.WorkerError{Op: "spawn", WorkerID: req.WorkerID, Err: err}
	}

	if prompt := strings.TrimSpace(req.Prompt); prompt != "" {
		_, _ = io.WriteString(stdin, prompt+"\n")
	}
	_ = stdin.Close()

	var outBuf, errBuf strings.Builder
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		l.streamLines(req.WorkerID, req.TaskTitle, "stdout", stdout, &outBuf)
	}()
	go func() {
		defer wg.Done()
		l.streamLines(req.WorkerID, req.TaskTitle, "stderr", stderr, &errBuf)
	}()

	wg.Wait()
	waitErr := cmd.Wait()

	result := WorkerResult{
		Success: waitErr == nil,
		Code:    exitCode(cmd, waitErr),
		Stdout:  strings.TrimSpace(outBuf.String()),
		Stderr:  strings.TrimSpace(errBuf.String()),
	}

	l.logger.Debug("worker finished", "workerId", req.WorkerID, "success", result.Success)
	return result, nil
}

// ProbeWorker runs a short version-style check and captures its output.
func (l *Local) ProbeWorker(ctx context.Context, executable string, args []string, cwd string) (WorkerResult, error) {
	executable = strings.TrimSpace(executable)
	if executable == "" {
		return WorkerResult{}, &domain.WorkerError{Op: "probe", Err: domain.ErrNoExecutable}
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, probeTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, executable, args...)
	if dir := strings.TrimSpace(cwd); dir != "" {
		cmd.Dir = dir
	}

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	if runErr != nil && cmd.ProcessState == nil {
		// Never started at all.
		return WorkerResult{}, &domain.WorkerError{Op: "probe", Err: runErr}
	}

	return WorkerResult{
		Success: runErr == nil,
		Code:    exitCode(cmd, runErr),
		Stdout:  strings.TrimSpace(outBuf.String()),
		Stderr:  strings.TrimSpace(errBuf.String()),
	}, nil
}

// StartInteractive attaches a long-lived console session. The call returns
// once the process is spawned; output and exit surface on the event streams.
func (l *Local) StartInteractive(ctx context.Context, req RunRequest) (bool, error) {
	executable := strings.TrimSpace(req.Executable)
	if executable == "" {
		return false, &domain.WorkerError{Op: "start", WorkerID: req.WorkerID, Err: domain.ErrNoExecutable}
	}

	l.mu.Lock()
	if _, exists := l.sessions[req.WorkerID]; exists {
		l.mu.Unlock()
		return false, &domain.WorkerError{Op: "start", WorkerID: req.WorkerID, Err: domain.ErrWorkerBusy}
	}
	l.mu.Unlock()

	cmd := exec.CommandContext(ctx, executable, req.Args...)
	if dir := strings.TrimSpace(req.Cwd); dir != "" {
		cmd.Dir = dir
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return false, &domain.WorkerError{Op: "start", WorkerID: req.WorkerID, Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return false, &domain.WorkerError{Op: "start", WorkerID: req.WorkerID, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return false, &domain.WorkerError{Op: "start", WorkerID: req.WorkerID, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return false, &domain.WorkerError{Op: "spawn", WorkerID: req.WorkerID, Err: err}
	}

	if prompt := strings.TrimSpace(req.Prompt); prompt != "" {
		_, _ = io.WriteString(stdin, prompt+"\n")
	}

	l.mu.Lock()
	l.sessions[req.WorkerID] = &interactiveSession{cmd: cmd, stdin: stdin}
	l.mu.Unlock()

	l.logger.Debug("interactive worker started", "workerId", req.WorkerID)

	go func() {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			l.streamLines(req.WorkerID, req.TaskTitle, "stdout", stdout, nil)
		}()
		go func() {
			defer wg.Done()
			l.streamLines(req.WorkerID, req.TaskTitle, "stderr", stderr, nil)
		}()

		wg.Wait()
		waitErr := cmd.Wait()

		l.mu.Lock()
		delete(l.sessions, req.WorkerID)
		l.mu.Unlock()

		l.emitDone(DoneEvent{
			WorkerID: req.WorkerID,
			Success:  waitErr == nil,
			Code:     exitCode(cmd, waitErr),
		})
	}()

	return true, nil
}

// SendInput writes to an attached session's stdin.
func (l *Local) SendInput(_ context.Context, workerID, input string, appendNewline bool) (bool, error) {
	l.mu.Lock()
	session, ok := l.sessions[workerID]
	l.mu.Unlock()
	if !ok {
		return false, &domain.WorkerError{Op: "input", WorkerID: workerID, Err: domain.ErrNotFound}
	}

	if _, err := io.WriteString(session.stdin, input); err != nil {
		return false, &domain.WorkerError{Op: "input", WorkerID: workerID, Err: err}
	}
	if appendNewline {
		if _, err := io.WriteString(session.stdin, "\n"); err != nil {
			return false, &domain.WorkerError{Op: "input", WorkerID: workerID, Err: err}
		}
	}
	return true, nil
}

// StopSession kills an attached session. The exit surfaces as a DoneEvent
// from the session's wait goroutine.
func (l *Local) StopSession(_ context.Context, workerID string) (bool, error) {
	l.mu.Lock()
	session, ok := l.sessions[workerID]
	l.mu.Unlock()
	if !ok {
		return false, nil
	}

	_ = session.stdin.Close()
	if session.cmd.Process != nil {
		_ = session.cmd.Process.Kill()
	}
	return true, nil
}

// McpStatus reports the managed MCP child, reaping it if it exited.
func (l *Local) McpStatus(_ context.Context) (domain.McpServerStatus, error) {
	l.mcpMu.Lock()
	defer l.mcpMu.Unlock()
	return l.mcpStatusLocked(), nil
}

// StartMcp spawns the configured MCP server unless it is already running.
func (l *Local) StartMcp(_ context.Context, cfg domain.McpServerConfig) (domain.McpServerStatus, error) {
	executable := strings.TrimSpace(cfg.Executable)
	if executable == "" {
		return domain.McpServerStatus{}, &domain.McpError{Op: "start", Err: domain.ErrNoExecutable}
	}

	l.mcpMu.Lock()
	defer l.mcpMu.Unlock()

	if status := l.mcpStatusLocked(); status.Running {
		return status, nil
	}

	args := domain.SplitArgs(cfg.Args)
	cmd := exec.Command(executable, args...)
	if dir := strings.TrimSpace(cfg.Cwd); dir != "" {
		cmd.Dir = dir
	}

	if err := cmd.Start(); err != nil {
		return domain.McpServerStatus{}, &domain.McpError{Op: "start", Err: err}
	}

	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()

	l.mcpCmd = cmd
	l.mcpExited = exited
	l.mcpCommand = commandString(executable, args)

	l.logger.Info("mcp server started", "pid", cmd.Process.Pid, "command", l.mcpCommand)

	return domain.McpServerStatus{
		Running: true,
		Pid:     cmd.Process.Pid,
		Command: l.mcpCommand,
	}, nil
}

// StopMcp kills the managed MCP child, if any.
func (l *Local) StopMcp(_ context.Context) (domain.McpServerStatus, error) {
	l.mcpMu.Lock()
	defer l.mcpMu.Unlock()

	if l.mcpCmd == nil {
		return domain.McpServerStatus{Running: false}, nil
	}

	command := l.mcpCommand
	if l.mcpCmd.Process != nil {
		_ = l.mcpCmd.Process.Kill()
	}
	<-l.mcpExited

	l.mcpCmd = nil
	l.mcpExited = nil
	l.mcpCommand = ""

	l.logger.Info("mcp server stopped", "command", command)
	return domain.McpServerStatus{Running: false, Command: command}, nil
}

func (l *Local) mcpStatusLocked() domain.McpServerStatus {
	if l.mcpCmd == nil {
		return domain.McpServerStatus{Running: false}
	}

	select {
	case <-l.mcpExited:
		// Child exited on its own; reap the bookkeeping.
		command := l.mcpCommand
		l.mcpCmd = nil
		l.mcpExited = nil
		l.mcpCommand = ""
		return domain.McpServerStatus{Running: false, Command: command}
	default:
		return domain.McpServerStatus{
			Running: true,
			Pid:     l.mcpCmd.Process.Pid,
			Command: l.mcpCommand,
		}
	}
}

// streamLines emits each output line as a LogEvent and, when capture is
// non-nil, accumulates the full text for the caller.
func (l *Local) streamLines(workerID, taskTitle, stream string, r io.Reader, capture *strings.Builder) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if capture != nil {
			capture.WriteString(line)
			capture.WriteString("\n")
		}
		l.emitLog(LogEvent{
			WorkerID:  workerID,
			TaskTitle: taskTitle,
			Stream:    stream,
			Line:      line,
		})
	}
}

// emitLog never blocks a worker on a slow consumer; overflow is dropped.
func (l *Local) emitLog(event LogEvent) {
	select {
	case l.logs <- event:
	default:
		l.logger.Warn("log event dropped", "workerId", event.WorkerID)
	}
}

func (l *Local) emitDone(event DoneEvent) {
	select {
	case l.done <- event:
	default:
		l.logger.Warn("done event dropped", "workerId", event.WorkerID)
	}
}

func exitCode(cmd *exec.Cmd, waitErr error) *int {
	if cmd.ProcessState == nil {
		return nil
	}
	code := cmd.ProcessState.ExitCode()
	if code < 0 && waitErr != nil {
		return nil
	}
	return &code
}

func commandString(executable string, args []string) string {
	if len(args) == 0 {
		return executable
	}
	return fmt.Sprintf("%s %s", executable, strings.Join(args, " "))
}
