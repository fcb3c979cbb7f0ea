// Package domain contains the core business types for Mapleboard.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the workflow status of a task. The values are the
// user-facing labels the desktop app always persisted, so they survive
// round-trips through old state files unchanged.
type TaskStatus string

const (
	StatusTodo        TaskStatus = "待办"
	StatusQueued      TaskStatus = "队列中"
	StatusRunning     TaskStatus = "进行中"
	StatusDone        TaskStatus = "已完成"
	StatusBlocked     TaskStatus = "已阻塞"
	StatusNeedsInfo   TaskStatus = "需要更多信息"
	StatusNeedsRework TaskStatus = "待返工"
	StatusDraft       TaskStatus = "草稿"
)

// Column returns the board column index for this status.
func (s TaskStatus) Column() int {
	switch s {
	case StatusTodo, StatusDraft:
		return 0
	case StatusQueued, StatusRunning:
		return 1
	case StatusBlocked, StatusNeedsInfo, StatusNeedsRework:
		return 2
	case StatusDone:
		return 3
	default:
		return 0
	}
}

// Icon returns a unicode icon for the status.
func (s TaskStatus) Icon() string {
	switch s {
	case StatusTodo:
		return "○"
	case StatusQueued:
		return "◌"
	case StatusRunning:
		return "●"
	case StatusDone:
		return "✓"
	case StatusBlocked:
		return "✗"
	case StatusNeedsInfo:
		return "?"
	case StatusNeedsRework:
		return "↺"
	case StatusDraft:
		return "·"
	default:
		return "?"
	}
}

// String returns the display string.
func (s TaskStatus) String() string {
	return string(s)
}

// Terminal reports whether the dispatch loop never moves a task out of this
// status on its own.
func (s TaskStatus) Terminal() bool {
	return s == StatusNeedsRework || s == StatusDraft
}

// TaskReport is an append-only text record attached to a task. Reports are
// never edited in place; they go away only when their task does.
type TaskReport struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewTaskReport creates a report authored by the given worker label or user.
func NewTaskReport(author, content string) TaskReport {
	return TaskReport{
		ID:        uuid.NewString(),
		Author:    author,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// Task represents one item on a project's board.
type Task struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Status    TaskStatus   `json:"status"`
	Tags      []string     `json:"tags,omitempty"`
	Version   string       `json:"version,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Reports   []TaskReport `json:"reports"`
}

// NewTask creates a Todo task with a fresh id.
func NewTask(title string) Task {
	now := time.Now()
	return Task{
		ID:        uuid.NewString(),
		Title:     title,
		Status:    StatusTodo,
		CreatedAt: now,
		UpdatedAt: now,
		Reports:   []TaskReport{},
	}
}

// Touch refreshes the UpdatedAt stamp. Every mutation goes through here.
func (t *Task) Touch() {
	t.UpdatedAt = time.Now()
}

// Project binds a filesystem directory to a list of tasks. A project without
// a directory is invalid and is dropped at load time.
type Project struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Version    string     `json:"version"`
	Directory  string     `json:"directory"`
	WorkerKind WorkerKind `json:"workerKind,omitempty"`
	Tasks      []Task     `json:"tasks"`
}

// NewProject creates a project at the initial version.
func NewProject(name, directory string) Project {
	return Project{
		ID:        uuid.NewString(),
		Name:      name,
		Version:   "0.1.0",
		Directory: strings.TrimSpace(directory),
		Tasks:     []Task{},
	}
}

// TaskByID returns the task and its index, or nil when absent.
func (p *Project) TaskByID(taskID string) (*Task, int) {
	for i := range p.Tasks {
		if p.Tasks[i].ID == taskID {
			return &p.Tasks[i], i
		}
	}
	return nil, -1
}

// AllDone reports whether the project has tasks and every one is Done.
func (p *Project) AllDone() bool {
	if len(p.Tasks) == 0 {
		return false
	}
	for i := range p.Tasks {
		if p.Tasks[i].Status != StatusDone {
			return false
		}
	}
	return true
}
