package storage

import (
	"os"

	"gopkg.in/yaml.v3"

	"mapleboard/internal/domain"
)

// workerPresetFile is the optional yaml overlay users drop next to the data
// store to override worker defaults without touching the settings UI.
type workerPresetFile struct {
	Workers map[string]workerPreset `yaml:"workers"`
}

type workerPreset struct {
	Executable  string `yaml:"executable"`
	RunArgs     string `yaml:"runArgs"`
	ProbeArgs   string `yaml:"probeArgs"`
	ConsoleArgs string `yaml:"consoleArgs"`
	DangerMode  bool   `yaml:"dangerMode"`
}

// LoadWorkerPresets reads the overlay file. A missing file yields an empty
// map; a malformed file is an error the caller may surface, since the file
// is user-authored rather than app-owned cache.
func LoadWorkerPresets(path string) (map[domain.WorkerKind]domain.WorkerConfig, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[domain.WorkerKind]domain.WorkerConfig{}, nil
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "presets", Key: path, Err: err}
	}

	var file workerPresetFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, &domain.StorageError{Op: "presets", Key: path, Err: err}
	}

	presets := make(map[domain.WorkerKind]domain.WorkerConfig, len(file.Workers))
	for name, preset := range file.Workers {
		kind := domain.WorkerKind(name)
		if !kind.Valid() {
			continue
		}
		presets[kind] = domain.WorkerConfig{
			Executable:  preset.Executable,
			RunArgs:     preset.RunArgs,
			ProbeArgs:   preset.ProbeArgs,
			ConsoleArgs: preset.ConsoleArgs,
			DangerMode:  preset.DangerMode,
		}
	}
	return presets, nil
}

// ApplyWorkerPresets overlays presets onto base, replacing whole entries.
func ApplyWorkerPresets(base, presets map[domain.WorkerKind]domain.WorkerConfig) map[domain.WorkerKind]domain.WorkerConfig {
	merged := make(map[domain.WorkerKind]domain.WorkerConfig, len(base))
	for kind, cfg := range base {
		merged[kind] = cfg
	}
	for kind, cfg := range presets {
		merged[kind] = cfg
	}
	return merged
}
