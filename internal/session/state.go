// Package session holds process-wide worker runtime state: which worker
// instances are attached to interactive consoles, which are executing queued
// batches, their project bindings, and their log buffers. It is an explicit
// object injected where needed, with process lifetime.
package session

import (
	"fmt"
	"strings"
	"sync"

	"mapleboard/internal/domain"
)

// PermissionPrompt is a detected "worker is waiting for a yes/no decision"
// state. At most one is pending at a time across all workers.
type PermissionPrompt struct {
	WorkerID string
	Line     string
}

// State is the mutable worker runtime state. Safe for concurrent use.
type State struct {
	mu        sync.RWMutex
	running   map[string]bool
	executing map[string]bool
	projectOf map[string]string
	logs      map[string]*strings.Builder
	prompt    *PermissionPrompt
}

// NewState creates empty runtime state.
func NewState() *State {
	return &State{
		running:   make(map[string]bool),
		executing: make(map[string]bool),
		projectOf: make(map[string]string),
		logs:      make(map[string]*strings.Builder),
	}
}

// SetRunning marks a worker as attached to an interactive console.
func (s *State) SetRunning(workerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[workerID] = true
}

// ClearRunning removes a worker from the interactive set.
func (s *State) ClearRunning(workerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, workerID)
}

// IsRunning reports whether a worker has an interactive console attached.
func (s *State) IsRunning(workerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running[workerID]
}

// SetExecuting marks a worker as driving a queued-task batch.
func (s *State) SetExecuting(workerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executing[workerID] = true
}

// ClearExecuting removes a worker from the executing set.
func (s *State) ClearExecuting(workerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.executing, workerID)
}

// IsExecuting reports whether a worker is driving a queued-task batch.
func (s *State) IsExecuting(workerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.executing[workerID]
}

// Busy reports whether the kind's single instance is occupied either way.
func (s *State) Busy(kind domain.WorkerKind) bool {
	id := domain.WorkerID(kind)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running[id] || s.executing[id]
}

// BindProject records which project a worker is acting on, for display.
func (s *State) BindProject(workerID, projectName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projectOf[workerID] = projectName
}

// ProjectOf returns the bound project name, or "".
func (s *State) ProjectOf(workerID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projectOf[workerID]
}

// ReleaseProjectIfIdle clears the binding unless the worker is still running
// a console or executing a batch.
func (s *State) ReleaseProjectIfIdle(workerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[workerID] || s.executing[workerID] {
		return
	}
	delete(s.projectOf, workerID)
}

// AppendLog appends text verbatim to the worker's cumulative log buffer.
// Buffers grow unbounded while a session is open; that is an accepted
// tradeoff for an interactive tool.
func (s *State) AppendLog(workerID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.logs[workerID]
	if !ok {
		buf = &strings.Builder{}
		s.logs[workerID] = buf
	}
	buf.WriteString(text)
}

// AppendLogLine appends text plus a trailing newline.
func (s *State) AppendLogLine(workerID, text string) {
	s.AppendLog(workerID, text+"\n")
}

// Log returns the worker's accumulated log text.
func (s *State) Log(workerID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if buf, ok := s.logs[workerID]; ok {
		return buf.String()
	}
	return ""
}

// ClearLog drops the worker's log buffer.
func (s *State) ClearLog(workerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, workerID)
}

// RaisePermissionPrompt records a pending prompt unless one is already
// pending. Returns false when suppressed.
func (s *State) RaisePermissionPrompt(workerID, line string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prompt != nil {
		return false
	}
	s.prompt = &PermissionPrompt{WorkerID: workerID, Line: line}
	return true
}

// PendingPrompt returns the pending prompt, if any.
func (s *State) PendingPrompt() (PermissionPrompt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.prompt == nil {
		return PermissionPrompt{}, false
	}
	return *s.prompt, true
}

// ClearPermissionPrompt dismisses the pending prompt.
func (s *State) ClearPermissionPrompt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompt = nil
}

// Summary renders a short "worker @ project" line for the statusbar.
func (s *State) Summary() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var parts []string
	for workerID, project := range s.projectOf {
		state := "idle"
		switch {
		case s.executing[workerID]:
			state = "executing"
		case s.running[workerID]:
			state = "console"
		}
		parts = append(parts, fmt.Sprintf("%s→%s(%s)", workerID, project, state))
	}
	return strings.Join(parts, "  ")
}
