package storage

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mapleboard/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestKV(t *testing.T) *KV {
	t.Helper()
	kv, err := Open(filepath.Join(t.TempDir(), "mapleboard.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}

func TestKV_SaveLoadRoundTrip(t *testing.T) {
	kv := openTestKV(t)

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	if err := kv.SaveJSON("demo", payload{Name: "a", Count: 2}); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}

	var out payload
	found, err := kv.LoadJSON("demo", &out)
	if err != nil || !found {
		t.Fatalf("LoadJSON = %v, %v", found, err)
	}
	if out.Name != "a" || out.Count != 2 {
		t.Errorf("round trip = %+v", out)
	}
}

func TestKV_LoadMissingKey(t *testing.T) {
	kv := openTestKV(t)

	var out map[string]string
	found, err := kv.LoadJSON("absent", &out)
	if err != nil {
		t.Fatalf("LoadJSON error: %v", err)
	}
	if found {
		t.Error("absent key reported found")
	}
}

func TestKV_UpsertOverwrites(t *testing.T) {
	kv := openTestKV(t)

	if err := kv.SaveJSON("k", "first"); err != nil {
		t.Fatal(err)
	}
	if err := kv.SaveJSON("k", "second"); err != nil {
		t.Fatal(err)
	}

	var out string
	if _, err := kv.LoadJSON("k", &out); err != nil {
		t.Fatal(err)
	}
	if out != "second" {
		t.Errorf("value = %q, want overwrite", out)
	}
}

func TestLoadProjects_DropsProjectsWithoutDirectory(t *testing.T) {
	kv := openTestKV(t)

	projects := []domain.Project{
		{ID: "1", Name: "valid", Version: "0.1.0", Directory: "  /home/me/app  "},
		{ID: "2", Name: "no-dir", Version: "0.1.0", Directory: "   "},
		{ID: "3", Name: "empty", Version: "0.1.0", Directory: ""},
	}
	if err := SaveProjects(kv, projects); err != nil {
		t.Fatal(err)
	}

	loaded := LoadProjects(kv, testLogger())

	if len(loaded) != 1 {
		t.Fatalf("loaded %d projects, want 1", len(loaded))
	}
	if loaded[0].Directory != "/home/me/app" {
		t.Errorf("directory = %q, want trimmed", loaded[0].Directory)
	}
}

func TestLoadProjects_NormalizesTasks(t *testing.T) {
	kv := openTestKV(t)

	if err := SaveProjects(kv, []domain.Project{{
		Name:      "p",
		Directory: "/tmp/p",
		Tasks: []domain.Task{
			{Title: "bare task"},
		},
	}}); err != nil {
		t.Fatal(err)
	}

	loaded := LoadProjects(kv, testLogger())
	if len(loaded) != 1 {
		t.Fatalf("loaded %d projects", len(loaded))
	}

	project := loaded[0]
	if project.ID == "" || project.Version != "0.1.0" {
		t.Errorf("project not normalized: %+v", project)
	}

	task := project.Tasks[0]
	if task.ID == "" {
		t.Error("task id not filled")
	}
	if task.Status != domain.StatusTodo {
		t.Errorf("task status = %q", task.Status)
	}
	if task.CreatedAt.IsZero() || task.UpdatedAt.IsZero() {
		t.Error("timestamps not filled")
	}
	if task.Reports == nil {
		t.Error("reports not coerced to empty list")
	}
}

func TestLoadProjects_CorruptEntryFallsBackToEmpty(t *testing.T) {
	kv := openTestKV(t)

	// Store a shape that cannot unmarshal into []Project.
	if err := kv.SaveJSON("projects", "not a list"); err != nil {
		t.Fatal(err)
	}

	loaded := LoadProjects(kv, testLogger())
	if len(loaded) != 0 {
		t.Errorf("corrupt state should load as empty, got %d", len(loaded))
	}
}

func TestLoadWorkerConfigs_DefaultsAndMerge(t *testing.T) {
	kv := openTestKV(t)

	defaults := LoadWorkerConfigs(kv, testLogger())
	if len(defaults) != 3 {
		t.Fatalf("default kinds = %d, want 3", len(defaults))
	}
	if defaults[domain.WorkerClaude].Executable != "claude" {
		t.Errorf("claude default = %+v", defaults[domain.WorkerClaude])
	}

	custom := map[domain.WorkerKind]domain.WorkerConfig{
		domain.WorkerClaude: {Executable: "/opt/claude", DangerMode: true},
	}
	if err := SaveWorkerConfigs(kv, custom); err != nil {
		t.Fatal(err)
	}

	loaded := LoadWorkerConfigs(kv, testLogger())
	if loaded[domain.WorkerClaude].Executable != "/opt/claude" {
		t.Errorf("stored config lost: %+v", loaded[domain.WorkerClaude])
	}
	if loaded[domain.WorkerCodex].Executable != "codex" {
		t.Error("missing kinds should keep defaults")
	}
}

func TestLoadSettings_Defaults(t *testing.T) {
	kv := openTestKV(t)

	settings := LoadSettings(kv, testLogger())
	if !settings.NotifyOnCompletion {
		t.Error("notifications should default on")
	}
	if !settings.Mcp.BuiltIn() {
		t.Error("mcp should default to built-in mode")
	}

	settings.NotifyOnCompletion = false
	settings.Mcp.Executable = "maple-mcp"
	if err := SaveSettings(kv, settings); err != nil {
		t.Fatal(err)
	}

	loaded := LoadSettings(kv, testLogger())
	if loaded.NotifyOnCompletion || loaded.Mcp.BuiltIn() {
		t.Errorf("settings round trip = %+v", loaded)
	}
}

func TestLoadWorkerPresets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workers.yaml")
	content := `workers:
  claude:
    executable: /usr/local/bin/claude
    runArgs: "-p --output-format json"
    dangerMode: true
  unknown-kind:
    executable: nope
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	presets, err := LoadWorkerPresets(path)
	if err != nil {
		t.Fatalf("LoadWorkerPresets: %v", err)
	}
	if len(presets) != 1 {
		t.Fatalf("presets = %v, want unknown kind dropped", presets)
	}
	if !presets[domain.WorkerClaude].DangerMode {
		t.Error("dangerMode not parsed")
	}

	merged := ApplyWorkerPresets(DefaultWorkerConfigs(), presets)
	if merged[domain.WorkerClaude].Executable != "/usr/local/bin/claude" {
		t.Error("preset should replace default entry")
	}
	if merged[domain.WorkerCodex].Executable != "codex" {
		t.Error("untouched kinds should survive")
	}
}

func TestLoadWorkerPresets_MissingFile(t *testing.T) {
	presets, err := LoadWorkerPresets(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(presets) != 0 {
		t.Errorf("presets = %v", presets)
	}
}

func TestLoadWorkerPresets_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workers.yaml")
	if err := os.WriteFile(path, []byte("workers: [not a map"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadWorkerPresets(path); err == nil {
		t.Error("malformed user file should surface an error")
	}
}

func TestSaveProjects_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapleboard.db")

	kv, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	project := domain.NewProject("demo", "/tmp/demo")
	task := domain.NewTask("implement board")
	task.UpdatedAt = time.Now()
	project.Tasks = append(project.Tasks, task)
	if err := SaveProjects(kv, []domain.Project{project}); err != nil {
		t.Fatal(err)
	}
	if err := kv.Close(); err != nil {
		t.Fatal(err)
	}

	kv2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer kv2.Close()

	loaded := LoadProjects(kv2, testLogger())
	if len(loaded) != 1 || loaded[0].Name != "demo" || len(loaded[0].Tasks) != 1 {
		t.Errorf("reopened state = %+v", loaded)
	}
}
