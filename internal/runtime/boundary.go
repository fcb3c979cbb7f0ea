// Package runtime is the execution boundary: it spawns worker CLI processes,
// streams their output as events, and manages the auxiliary MCP server
// process. Everything above this package talks to it through the Runner
// interface so tests can substitute fakes.
package runtime

import (
	"context"

	"mapleboard/internal/domain"
)

// WorkerResult is the captured outcome of a single worker process run.
type WorkerResult struct {
	Success bool
	Code    *int
	Stdout  string
	Stderr  string
}

// RunRequest describes one worker invocation.
type RunRequest struct {
	WorkerID   string
	TaskTitle  string
	Executable string
	Args       []string
	Prompt     string
	Cwd        string
}

// LogEvent is one streamed chunk of worker output.
type LogEvent struct {
	WorkerID  string
	TaskTitle string
	Stream    string // "stdout" or "stderr"
	Line      string
}

// DoneEvent signals that an interactive worker session exited.
type DoneEvent struct {
	WorkerID string
	Success  bool
	Code     *int
}

// Runner is the contract the host runtime fulfills.
type Runner interface {
	// RunWorker spawns the worker once, feeds it the prompt, and blocks
	// until it exits, returning captured output. The error return covers
	// spawn/IO failure only; a worker that ran and failed comes back as a
	// WorkerResult with Success false.
	RunWorker(ctx context.Context, req RunRequest) (WorkerResult, error)

	// ProbeWorker runs a lightweight version-style check.
	ProbeWorker(ctx context.Context, executable string, args []string, cwd string) (WorkerResult, error)

	// StartInteractive attaches a long-lived console session. Output
	// arrives on Logs; exit arrives on Done.
	StartInteractive(ctx context.Context, req RunRequest) (bool, error)

	// SendInput writes to an attached interactive session's stdin.
	SendInput(ctx context.Context, workerID, input string, appendNewline bool) (bool, error)

	// StopSession terminates an attached interactive session. Returns
	// false when no such session exists.
	StopSession(ctx context.Context, workerID string) (bool, error)

	McpStatus(ctx context.Context) (domain.McpServerStatus, error)
	StartMcp(ctx context.Context, cfg domain.McpServerConfig) (domain.McpServerStatus, error)
	StopMcp(ctx context.Context) (domain.McpServerStatus, error)

	// Logs and Done are the push-notification streams.
	Logs() <-chan LogEvent
	Done() <-chan DoneEvent
}
