package storage

import (
	"log/slog"

	"mapleboard/internal/domain"
)

const keyWorkers = "workerConfigs"

// DefaultWorkerConfigs returns the built-in per-kind configuration.
func DefaultWorkerConfigs() map[domain.WorkerKind]domain.WorkerConfig {
	return map[domain.WorkerKind]domain.WorkerConfig{
		domain.WorkerClaude: {
			Executable: "claude",
			RunArgs:    "-p",
			ProbeArgs:  "--version",
		},
		domain.WorkerCodex: {
			Executable: "codex",
			RunArgs:    "exec",
			ProbeArgs:  "--version",
		},
		domain.WorkerIflow: {
			Executable: "iflow",
			ProbeArgs:  "--version",
		},
	}
}

// LoadWorkerConfigs returns the persisted worker map with defaults filled in
// for any kind the stored map lacks. Corruption falls back to defaults.
func LoadWorkerConfigs(kv *KV, logger *slog.Logger) map[domain.WorkerKind]domain.WorkerConfig {
	configs := DefaultWorkerConfigs()

	var stored map[domain.WorkerKind]domain.WorkerConfig
	found, err := kv.LoadJSON(keyWorkers, &stored)
	if err != nil {
		logger.Warn("discarding corrupt worker configs", "error", err)
		return configs
	}
	if !found {
		return configs
	}

	for kind, cfg := range stored {
		if !kind.Valid() {
			logger.Warn("dropping config for unknown worker kind", "kind", kind)
			continue
		}
		configs[kind] = cfg
	}
	return configs
}

// SaveWorkerConfigs writes the whole map through to the store.
func SaveWorkerConfigs(kv *KV, configs map[domain.WorkerKind]domain.WorkerConfig) error {
	return kv.SaveJSON(keyWorkers, configs)
}
