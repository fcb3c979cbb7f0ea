// Package store is the canonical in-memory model of projects and tasks.
// Mutations replace entries rather than editing them in place, then commit:
// a write-through save plus change notifications for the UI and watchers.
package store

import (
	"log/slog"
	"strings"
	"sync"

	"mapleboard/internal/domain"
)

// Saver persists the whole project collection. Called on every commit.
type Saver func([]domain.Project) error

// Listener observes the post-commit snapshot.
type Listener func([]domain.Project)

// Store holds the live project list and the UI selection/editing state tied
// to it.
type Store struct {
	mu        sync.RWMutex
	projects  []domain.Project
	editing   string // task id currently in inline edit, "" when none
	selected  string // selected project id, "" when none
	save      Saver
	logger    *slog.Logger
	notices   chan Notice
	listeners []Listener
}

// New creates a store seeded with already-normalized projects.
func New(projects []domain.Project, save Saver, logger *slog.Logger) *Store {
	if projects == nil {
		projects = []domain.Project{}
	}
	return &Store{
		projects: projects,
		save:     save,
		logger:   logger,
		notices:  make(chan Notice, 32),
	}
}

// Subscribe registers a change listener. Not safe to call concurrently with
// mutations; wire subscribers during startup.
func (s *Store) Subscribe(listener Listener) {
	s.listeners = append(s.listeners, listener)
}

// Projects returns a snapshot safe to read while mutations continue.
func (s *Store) Projects() []domain.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot(s.projects)
}

// Project returns a snapshot of one project.
func (s *Store) Project(projectID string) (domain.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.projects {
		if s.projects[i].ID == projectID {
			return copyProject(s.projects[i]), true
		}
	}
	return domain.Project{}, false
}

// ProjectByName returns a snapshot of the first project with the given name.
func (s *Store) ProjectByName(name string) (domain.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.projects {
		if s.projects[i].Name == name {
			return copyProject(s.projects[i]), true
		}
	}
	return domain.Project{}, false
}

// AddProject creates a project bound to a directory. The directory-required
// invariant is enforced here and at load time; nowhere else re-checks it.
func (s *Store) AddProject(name, directory string) (domain.Project, error) {
	directory = strings.TrimSpace(directory)
	if directory == "" {
		return domain.Project{}, domain.ErrNoDirectory
	}
	if strings.TrimSpace(name) == "" {
		name = directory[strings.LastIndexByte(directory, '/')+1:]
	}

	project := domain.NewProject(name, directory)

	s.mu.Lock()
	next := append(snapshot(s.projects), project)
	s.projects = next
	s.mu.Unlock()

	s.commit()
	return project, nil
}

// RemoveProject deletes a project and everything referencing it.
func (s *Store) RemoveProject(projectID string) {
	s.mu.Lock()
	next := make([]domain.Project, 0, len(s.projects))
	removed := false
	var removedTasks []domain.Task
	for i := range s.projects {
		if s.projects[i].ID == projectID {
			removed = true
			removedTasks = s.projects[i].Tasks
			continue
		}
		next = append(next, copyProject(s.projects[i]))
	}
	if !removed {
		s.mu.Unlock()
		return
	}
	s.projects = next
	if s.selected == projectID {
		s.selected = ""
	}
	for i := range removedTasks {
		if s.editing == removedTasks[i].ID {
			s.editing = ""
		}
	}
	s.mu.Unlock()

	s.commit()
}

// AssignWorkerKind binds a worker type to a project. Tasks in flight are
// unaffected.
func (s *Store) AssignWorkerKind(projectID string, kind domain.WorkerKind) {
	s.mutateProject(projectID, func(project *domain.Project) {
		project.WorkerKind = kind
	})
}

// SetProjectVersion replaces the project's version string.
func (s *Store) SetProjectVersion(projectID, version string) {
	s.mutateProject(projectID, func(project *domain.Project) {
		project.Version = version
	})
}

// AddTask inserts a fresh Todo task at the head of the list and flags it for
// inline editing.
func (s *Store) AddTask(projectID string) (string, bool) {
	task := domain.NewTask("")

	ok := s.mutateProject(projectID, func(project *domain.Project) {
		project.Tasks = append([]domain.Task{task}, project.Tasks...)
	})
	if !ok {
		return "", false
	}

	s.mu.Lock()
	s.editing = task.ID
	s.mu.Unlock()
	return task.ID, true
}

// UpdateTask applies fn to the matching task and refreshes UpdatedAt.
// A missing project or task is a no-op.
func (s *Store) UpdateTask(projectID, taskID string, fn func(*domain.Task)) bool {
	return s.mutateProject(projectID, func(project *domain.Project) {
		for i := range project.Tasks {
			if project.Tasks[i].ID == taskID {
				fn(&project.Tasks[i])
				project.Tasks[i].Touch()
				return
			}
		}
	})
}

// CommitTaskTitle ends inline editing. An empty title on a task that never
// had one deletes the task (undo-new-task semantics); an empty title on an
// already-titled task keeps the old title.
func (s *Store) CommitTaskTitle(projectID, taskID, title string) {
	title = strings.TrimSpace(title)

	s.mutateProject(projectID, func(project *domain.Project) {
		task, idx := project.TaskByID(taskID)
		if task == nil {
			return
		}
		if title == "" {
			if strings.TrimSpace(task.Title) == "" {
				project.Tasks = append(project.Tasks[:idx], project.Tasks[idx+1:]...)
			}
			return
		}
		task.Title = title
		task.Touch()
	})

	s.mu.Lock()
	if s.editing == taskID {
		s.editing = ""
	}
	s.mu.Unlock()
}

// DeleteTask removes a task outright.
func (s *Store) DeleteTask(projectID, taskID string) {
	s.mutateProject(projectID, func(project *domain.Project) {
		next := make([]domain.Task, 0, len(project.Tasks))
		for i := range project.Tasks {
			if project.Tasks[i].ID == taskID {
				continue
			}
			next = append(next, project.Tasks[i])
		}
		project.Tasks = next
	})

	s.mu.Lock()
	if s.editing == taskID {
		s.editing = ""
	}
	s.mu.Unlock()
}

// AppendReport attaches a report to a task. Reports are append-only.
func (s *Store) AppendReport(projectID, taskID string, report domain.TaskReport) {
	s.UpdateTask(projectID, taskID, func(task *domain.Task) {
		task.Reports = append(task.Reports, report)
	})
}

// MarkTasksQueued transitions every listed task to Queued in one commit, so
// no observer ever sees a half-queued batch.
func (s *Store) MarkTasksQueued(projectID string, taskIDs []string) {
	wanted := make(map[string]bool, len(taskIDs))
	for _, id := range taskIDs {
		wanted[id] = true
	}

	s.mutateProject(projectID, func(project *domain.Project) {
		for i := range project.Tasks {
			if wanted[project.Tasks[i].ID] {
				project.Tasks[i].Status = domain.StatusQueued
				project.Tasks[i].Touch()
			}
		}
	})
}

// TodoTaskIDs lists the ids of tasks exactly in Todo, in display order.
func (s *Store) TodoTaskIDs(projectID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.projects {
		if s.projects[i].ID != projectID {
			continue
		}
		var ids []string
		for _, task := range s.projects[i].Tasks {
			if task.Status == domain.StatusTodo {
				ids = append(ids, task.ID)
			}
		}
		return ids
	}
	return nil
}

// EditingTaskID reports which task is in inline edit.
func (s *Store) EditingTaskID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.editing
}

// SelectProject records the UI's selected project.
func (s *Store) SelectProject(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = projectID
}

// SelectedProject returns the selected project id, "" when none.
func (s *Store) SelectedProject() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// mutateProject copies the collection, applies fn to the matching project,
// and commits. Returns false when the project is missing.
func (s *Store) mutateProject(projectID string, fn func(*domain.Project)) bool {
	s.mu.Lock()
	found := false
	next := make([]domain.Project, len(s.projects))
	for i := range s.projects {
		next[i] = copyProject(s.projects[i])
		if next[i].ID == projectID {
			fn(&next[i])
			found = true
		}
	}
	if !found {
		s.mu.Unlock()
		return false
	}
	s.projects = next
	s.mu.Unlock()

	s.commit()
	return true
}

// commit persists the collection and fans the snapshot out to listeners.
// Persistence failure is logged, not surfaced: the in-memory state stays
// authoritative for the session.
func (s *Store) commit() {
	snap := s.Projects()

	if s.save != nil {
		if err := s.save(snap); err != nil {
			s.logger.Warn("write-through save failed", "error", err)
		}
	}
	for _, listener := range s.listeners {
		listener(snap)
	}
}

func snapshot(projects []domain.Project) []domain.Project {
	out := make([]domain.Project, len(projects))
	for i := range projects {
		out[i] = copyProject(projects[i])
	}
	return out
}

func copyProject(project domain.Project) domain.Project {
	copied := project
	copied.Tasks = make([]domain.Task, len(project.Tasks))
	copy(copied.Tasks, project.Tasks)
	return copied
}
