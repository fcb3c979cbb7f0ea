package storage

import (
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"mapleboard/internal/domain"
)

const keyProjects = "projects"

// LoadProjects returns the persisted project list. On a missing key, corrupt
// JSON, or schema mismatch it returns an empty list rather than erroring: a
// damaged cache must never block startup. Loaded projects are normalized and
// any project whose directory is empty after trimming is dropped; this is
// the sole gate protecting the directory-required invariant.
func LoadProjects(kv *KV, logger *slog.Logger) []domain.Project {
	var raw []domain.Project
	found, err := kv.LoadJSON(keyProjects, &raw)
	if err != nil {
		logger.Warn("discarding corrupt project state", "error", err)
		return []domain.Project{}
	}
	if !found {
		return []domain.Project{}
	}

	projects := make([]domain.Project, 0, len(raw))
	for _, project := range raw {
		project.Directory = strings.TrimSpace(project.Directory)
		if project.Directory == "" {
			logger.Warn("dropping project without directory", "name", project.Name)
			continue
		}
		projects = append(projects, normalizeProject(project))
	}
	return projects
}

// SaveProjects writes the whole collection through to the store.
func SaveProjects(kv *KV, projects []domain.Project) error {
	return kv.SaveJSON(keyProjects, projects)
}

func normalizeProject(project domain.Project) domain.Project {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	if strings.TrimSpace(project.Version) == "" {
		project.Version = "0.1.0"
	}
	if project.Tasks == nil {
		project.Tasks = []domain.Task{}
	}
	for i := range project.Tasks {
		project.Tasks[i] = normalizeTask(project.Tasks[i])
	}
	return project
}

func normalizeTask(task domain.Task) domain.Task {
	now := time.Now()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Status == "" {
		task.Status = domain.StatusTodo
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = now
	}
	if task.Reports == nil {
		task.Reports = []domain.TaskReport{}
	}
	return task
}
