package runtime

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"testing"
	"time"

	"mapleboard/internal/domain"
)

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	return NewLocal(slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelError})))
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestLocal_RunWorker_CapturesOutput(t *testing.T) {
	local := newTestLocal(t)

	result, err := local.RunWorker(context.Background(), RunRequest{
		WorkerID:   "worker-claude",
		TaskTitle:  "demo",
		Executable: "sh",
		Args:       []string{"-c", "echo hello; echo oops >&2"},
	})
	if err != nil {
		t.Fatalf("RunWorker error: %v", err)
	}

	if !result.Success {
		t.Error("expected success")
	}
	if result.Stdout != "hello" {
		t.Errorf("stdout = %q", result.Stdout)
	}
	if result.Stderr != "oops" {
		t.Errorf("stderr = %q", result.Stderr)
	}
	if result.Code == nil || *result.Code != 0 {
		t.Errorf("code = %v", result.Code)
	}
}

func TestLocal_RunWorker_PipesPrompt(t *testing.T) {
	local := newTestLocal(t)

	result, err := local.RunWorker(context.Background(), RunRequest{
		WorkerID:   "worker-claude",
		Executable: "sh",
		Args:       []string{"-c", "cat"},
		Prompt:     "修复登录问题",
	})
	if err != nil {
		t.Fatalf("RunWorker error: %v", err)
	}
	if result.Stdout != "修复登录问题" {
		t.Errorf("stdout = %q, want prompt echoed back", result.Stdout)
	}
}

func TestLocal_RunWorker_FailureExitCode(t *testing.T) {
	local := newTestLocal(t)

	result, err := local.RunWorker(context.Background(), RunRequest{
		WorkerID:   "worker-codex",
		Executable: "sh",
		Args:       []string{"-c", "exit 3"},
	})
	if err != nil {
		t.Fatalf("RunWorker error: %v", err)
	}
	if result.Success {
		t.Error("expected failure")
	}
	if result.Code == nil || *result.Code != 3 {
		t.Errorf("code = %v, want 3", result.Code)
	}
}

func TestLocal_RunWorker_SpawnFailure(t *testing.T) {
	local := newTestLocal(t)

	_, err := local.RunWorker(context.Background(), RunRequest{
		WorkerID:   "worker-claude",
		Executable: "definitely-not-a-real-binary-mapleboard",
	})
	if err == nil {
		t.Fatal("expected spawn error")
	}
	var workerErr *domain.WorkerError
	if !errors.As(err, &workerErr) {
		t.Errorf("error type = %T", err)
	}
}

func TestLocal_RunWorker_EmitsLogEvents(t *testing.T) {
	local := newTestLocal(t)

	_, err := local.RunWorker(context.Background(), RunRequest{
		WorkerID:   "worker-iflow",
		TaskTitle:  "task",
		Executable: "sh",
		Args:       []string{"-c", "echo line1; echo line2"},
	})
	if err != nil {
		t.Fatalf("RunWorker error: %v", err)
	}

	var lines []string
	for len(lines) < 2 {
		select {
		case event := <-local.Logs():
			if event.WorkerID != "worker-iflow" || event.Stream != "stdout" {
				t.Fatalf("unexpected event %+v", event)
			}
			lines = append(lines, event.Line)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, got %v", lines)
		}
	}
}

func TestLocal_ProbeWorker(t *testing.T) {
	local := newTestLocal(t)

	result, err := local.ProbeWorker(context.Background(), "sh", []string{"-c", "echo v1.2.3"}, "")
	if err != nil {
		t.Fatalf("ProbeWorker error: %v", err)
	}
	if !result.Success || result.Stdout != "v1.2.3" {
		t.Errorf("result = %+v", result)
	}
}

func TestLocal_ProbeWorker_EmptyExecutable(t *testing.T) {
	local := newTestLocal(t)

	if _, err := local.ProbeWorker(context.Background(), "  ", nil, ""); err == nil {
		t.Fatal("expected error for empty executable")
	}
}

func TestLocal_InteractiveSession(t *testing.T) {
	local := newTestLocal(t)
	ctx := context.Background()

	started, err := local.StartInteractive(ctx, RunRequest{
		WorkerID:   "worker-claude",
		Executable: "sh",
		Args:       []string{"-c", "cat"},
	})
	if err != nil {
		t.Fatalf("StartInteractive error: %v", err)
	}
	if !started {
		t.Fatal("expected session to start")
	}

	if _, err := local.SendInput(ctx, "worker-claude", "y", true); err != nil {
		t.Fatalf("SendInput error: %v", err)
	}

	select {
	case event := <-local.Logs():
		if event.Line != "y" {
			t.Errorf("echoed line = %q", event.Line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no log event from interactive session")
	}

	stopped, err := local.StopSession(ctx, "worker-claude")
	if err != nil || !stopped {
		t.Fatalf("StopSession = %v, %v", stopped, err)
	}

	select {
	case event := <-local.Done():
		if event.WorkerID != "worker-claude" {
			t.Errorf("done event for %q", event.WorkerID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no done event after stop")
	}

	// A second stop is a no-op.
	stopped, err = local.StopSession(ctx, "worker-claude")
	if err != nil || stopped {
		t.Fatalf("second StopSession = %v, %v", stopped, err)
	}
}

func TestLocal_SendInput_NoSession(t *testing.T) {
	local := newTestLocal(t)

	if _, err := local.SendInput(context.Background(), "worker-missing", "x", false); err == nil {
		t.Fatal("expected error for missing session")
	}
}

func TestLocal_McpLifecycle(t *testing.T) {
	local := newTestLocal(t)
	ctx := context.Background()

	status, err := local.McpStatus(ctx)
	if err != nil {
		t.Fatalf("McpStatus error: %v", err)
	}
	if status.Running {
		t.Fatal("fresh runtime should have no mcp server")
	}

	status, err = local.StartMcp(ctx, domain.McpServerConfig{Executable: "sleep", Args: "30"})
	if err != nil {
		t.Fatalf("StartMcp error: %v", err)
	}
	if !status.Running || status.Pid == 0 {
		t.Errorf("status after start = %+v", status)
	}

	status, err = local.StopMcp(ctx)
	if err != nil {
		t.Fatalf("StopMcp error: %v", err)
	}
	if status.Running {
		t.Error("expected stopped status")
	}

	status, _ = local.McpStatus(ctx)
	if status.Running {
		t.Error("status should stay stopped")
	}
}

func TestLocal_McpStatus_ReapsExitedChild(t *testing.T) {
	local := newTestLocal(t)
	ctx := context.Background()

	if _, err := local.StartMcp(ctx, domain.McpServerConfig{Executable: "true"}); err != nil {
		t.Fatalf("StartMcp error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		status, err := local.McpStatus(ctx)
		if err != nil {
			t.Fatalf("McpStatus error: %v", err)
		}
		if !status.Running {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("exited child never reaped")
}
