package domain

import "strings"

// WorkerKind is the category of coding-agent CLI a project can be bound to.
type WorkerKind string

const (
	WorkerClaude WorkerKind = "claude"
	WorkerCodex  WorkerKind = "codex"
	WorkerIflow  WorkerKind = "iflow"
)

// Kinds lists all supported worker kinds in display order.
func Kinds() []WorkerKind {
	return []WorkerKind{WorkerClaude, WorkerCodex, WorkerIflow}
}

// Valid reports whether the kind is one of the supported workers.
func (k WorkerKind) Valid() bool {
	switch k {
	case WorkerClaude, WorkerCodex, WorkerIflow:
		return true
	}
	return false
}

// String returns the display string.
func (k WorkerKind) String() string {
	return string(k)
}

// WorkerID synthesizes the runtime worker-instance id for a kind. The scheme
// allows at most one live instance per kind process-wide.
func WorkerID(kind WorkerKind) string {
	return "worker-" + string(kind)
}

// DangerFlag returns the kind-specific "skip permission checks" flag, or ""
// for unknown kinds.
func (k WorkerKind) DangerFlag() string {
	switch k {
	case WorkerClaude:
		return "--dangerously-skip-permissions"
	case WorkerCodex:
		return "--dangerously-bypass-approvals-and-sandbox"
	case WorkerIflow:
		return "--yolo"
	}
	return ""
}

// WorkerConfig is the per-kind executable configuration. Argument fields are
// raw strings split on whitespace at invocation time, matching how the
// desktop settings screen stored them.
type WorkerConfig struct {
	Executable  string `json:"executable"`
	RunArgs     string `json:"runArgs"`
	ProbeArgs   string `json:"probeArgs"`
	ConsoleArgs string `json:"consoleArgs"`
	DangerMode  bool   `json:"dangerMode"`
}

// SplitArgs splits a raw argument string on whitespace, dropping empties.
func SplitArgs(raw string) []string {
	return strings.Fields(raw)
}

// RetryPolicy is a configuration surface only; the dispatch loop itself never
// retries.
type RetryPolicy struct {
	IntervalSeconds int `json:"intervalSeconds"`
	MaxAttempts     int `json:"maxAttempts"`
}

// McpServerConfig configures the auxiliary MCP server process. An empty
// executable means the built-in server, which needs no external process.
type McpServerConfig struct {
	Executable string `json:"executable"`
	Args       string `json:"args"`
	Cwd        string `json:"cwd"`
	AutoStart  bool   `json:"autoStart"`
}

// BuiltIn reports whether the configuration refers to the built-in server.
func (c McpServerConfig) BuiltIn() bool {
	return strings.TrimSpace(c.Executable) == ""
}

// McpServerStatus is the observed state of the MCP server process.
type McpServerStatus struct {
	Running bool   `json:"running"`
	Pid     int    `json:"pid,omitempty"`
	Command string `json:"command"`
}
