// Package mcp decides whether the MCP server is usable before a dispatch
// proceeds.
package mcp

import (
	"context"
	"log/slog"

	"mapleboard/internal/domain"
)

// Control is the slice of the process runtime the guard needs.
type Control interface {
	McpStatus(ctx context.Context) (domain.McpServerStatus, error)
	StartMcp(ctx context.Context, cfg domain.McpServerConfig) (domain.McpServerStatus, error)
}

// Guard gates dispatch on MCP availability.
type Guard struct {
	control Control
	logger  *slog.Logger
}

func NewGuard(control Control, logger *slog.Logger) *Guard {
	return &Guard{control: control, logger: logger}
}

// EnsureRunning reports whether dispatch may proceed. The built-in server
// (empty executable) is always available. An external server gets exactly one
// start attempt; what the status probe says afterwards is final, so a flaky
// server cannot hold a dispatch in a retry loop.
func (g *Guard) EnsureRunning(ctx context.Context, cfg domain.McpServerConfig) bool {
	if cfg.BuiltIn() {
		return true
	}

	status, err := g.control.McpStatus(ctx)
	if err != nil {
		g.logger.Warn("mcp status probe failed", "error", err)
	}
	if status.Running {
		return true
	}

	g.logger.Info("mcp server not running, starting", "executable", cfg.Executable)
	if _, err := g.control.StartMcp(ctx, cfg); err != nil {
		g.logger.Warn("mcp server start failed", "error", err)
		return false
	}

	status, err = g.control.McpStatus(ctx)
	if err != nil {
		g.logger.Warn("mcp status recheck failed", "error", err)
		return false
	}
	return status.Running
}
