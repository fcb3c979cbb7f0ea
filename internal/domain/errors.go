package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for precondition failures. These surface as transient
// notices, never as crashes.
var (
	ErrNotFound          = errors.New("not found")
	ErrNoDirectory       = errors.New("project has no directory")
	ErrNoWorkerBound     = errors.New("no worker bound to project")
	ErrNoExecutable      = errors.New("worker executable not configured")
	ErrMcpUnavailable    = errors.New("mcp server is not running")
	ErrNothingToDispatch = errors.New("no todo tasks to dispatch")
	ErrWorkerBusy        = errors.New("worker is busy")
	ErrDispatchInFlight  = errors.New("dispatch already in progress for this project")
)

// WorkerError represents a failure talking to a worker process.
type WorkerError struct {
	Op       string
	WorkerID string
	Err      error
}

func (e *WorkerError) Error() string {
	if e.WorkerID != "" {
		return fmt.Sprintf("worker %s [%s]: %v", e.Op, e.WorkerID, e.Err)
	}
	return fmt.Sprintf("worker %s: %v", e.Op, e.Err)
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

// StorageError represents a persistence failure.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage %s [%s]: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// McpError represents a failure managing the MCP server process.
type McpError struct {
	Op  string
	Err error
}

func (e *McpError) Error() string {
	return fmt.Sprintf("mcp %s: %v", e.Op, e.Err)
}

func (e *McpError) Unwrap() error {
	return e.Err
}
