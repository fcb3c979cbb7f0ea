package storage

import (
	"log/slog"

	"mapleboard/internal/domain"
)

const keySettings = "settings"

// Settings are the app-wide options outside the per-worker configs.
type Settings struct {
	Mcp                domain.McpServerConfig `json:"mcp"`
	Retry              domain.RetryPolicy     `json:"retry"`
	NotifyOnCompletion bool                   `json:"notifyOnCompletion"`
}

// DefaultSettings returns the out-of-box configuration: built-in MCP server,
// notifications on, retry policy present as a data shape but inert.
func DefaultSettings() Settings {
	return Settings{
		Mcp:                domain.McpServerConfig{AutoStart: true},
		Retry:              domain.RetryPolicy{IntervalSeconds: 60, MaxAttempts: 3},
		NotifyOnCompletion: true,
	}
}

// LoadSettings returns persisted settings, defaulting on absence or corruption.
func LoadSettings(kv *KV, logger *slog.Logger) Settings {
	settings := DefaultSettings()

	var stored Settings
	found, err := kv.LoadJSON(keySettings, &stored)
	if err != nil {
		logger.Warn("discarding corrupt settings", "error", err)
		return settings
	}
	if !found {
		return settings
	}
	return stored
}

// SaveSettings writes settings through to the store.
func SaveSettings(kv *KV, settings Settings) error {
	return kv.SaveJSON(keySettings, settings)
}
