// Package command builds the CLI surface: the TUI by default, plus headless
// dispatch, probe, and MCP management subcommands.
package command

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"

	"mapleboard/internal/dispatch"
	"mapleboard/internal/domain"
	"mapleboard/internal/events"
	"mapleboard/internal/mcp"
	"mapleboard/internal/runtime"
	"mapleboard/internal/session"
	"mapleboard/internal/storage"
	"mapleboard/internal/store"
	"mapleboard/internal/ui/app"
)

// BuildApp assembles the CLI command tree.
func BuildApp() *cli.App {
	return &cli.App{
		Name:  "mapleboard",
		Usage: "task board that drives coding-agent CLIs against your projects",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "data",
				Usage: "path to the sqlite data file",
				Value: defaultDataPath(),
			},
			&cli.StringFlag{
				Name:  "presets",
				Usage: "path to the worker presets yaml",
				Value: defaultPresetsPath(),
			},
		},
		Action: func(ctx *cli.Context) error {
			return runBoard(ctx)
		},
		Commands: []*cli.Command{
			{
				Name:  "dispatch",
				Usage: "run every todo task of a project headlessly",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Required: true, Usage: "project name or id"},
					&cli.StringFlag{Name: "worker", Aliases: []string{"w"}, Usage: "override worker kind (claude, codex, iflow)"},
				},
				Action: func(ctx *cli.Context) error {
					return runDispatch(ctx)
				},
			},
			{
				Name:      "probe",
				Usage:     "check that a worker CLI responds",
				ArgsUsage: "<claude|codex|iflow>",
				Action: func(ctx *cli.Context) error {
					return runProbe(ctx)
				},
			},
			{
				Name:  "mcp",
				Usage: "manage the auxiliary MCP server process",
				Subcommands: []*cli.Command{
					{
						Name:  "status",
						Action: func(ctx *cli.Context) error {
							return runMcp(ctx, "status")
						},
					},
					{
						Name:  "start",
						Action: func(ctx *cli.Context) error {
							return runMcp(ctx, "start")
						},
					},
					{
						Name:  "stop",
						Action: func(ctx *cli.Context) error {
							return runMcp(ctx, "stop")
						},
					},
				},
			},
		},
	}
}

func defaultDataPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "mapleboard.db"
	}
	return filepath.Join(home, ".mapleboard", "mapleboard.db")
}

func defaultPresetsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "workers.yaml"
	}
	return filepath.Join(home, ".mapleboard", "workers.yaml")
}

// env is everything a command needs wired together.
type env struct {
	kv       *storage.KV
	store    *store.Store
	session  *session.State
	runner   *runtime.Local
	guard    *mcp.Guard
	control  *dispatch.Controller
	settings storage.Settings
	workers  map[domain.WorkerKind]domain.WorkerConfig
	logger   *slog.Logger
}

// bootstrap opens storage and wires the runtime graph. logSink receives slog
// output; the TUI routes it to a file so the alt screen stays clean.
func bootstrap(ctx *cli.Context, logSink *os.File) (*env, error) {
	logger := slog.New(slog.NewTextHandler(logSink, nil))

	kv, err := storage.Open(ctx.String("data"))
	if err != nil {
		return nil, err
	}

	projects := storage.LoadProjects(kv, logger)
	workers := storage.LoadWorkerConfigs(kv, logger)
	settings := storage.LoadSettings(kv, logger)

	presets, err := storage.LoadWorkerPresets(ctx.String("presets"))
	if err != nil {
		logger.Warn("worker presets unreadable", "error", err)
	} else {
		workers = storage.ApplyWorkerPresets(workers, presets)
	}

	st := store.New(projects, func(ps []domain.Project) error {
		return storage.SaveProjects(kv, ps)
	}, logger)

	sess := session.NewState()
	runner := runtime.NewLocal(logger)
	guard := mcp.NewGuard(runner, logger)
	controller := dispatch.NewController(st, sess, runner, guard, dispatch.Config{
		Workers: workers,
		Mcp:     settings.Mcp,
	}, logger)

	return &env{
		kv:       kv,
		store:    st,
		session:  sess,
		runner:   runner,
		guard:    guard,
		control:  controller,
		settings: settings,
		workers:  workers,
		logger:   logger,
	}, nil
}

func runBoard(ctx *cli.Context) error {
	logPath := filepath.Join(filepath.Dir(ctx.String("data")), "mapleboard.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logFile = os.Stderr
	} else {
		defer logFile.Close()
	}

	e, err := bootstrap(ctx, logFile)
	if err != nil {
		return err
	}
	defer e.kv.Close()

	if e.settings.Mcp.AutoStart {
		e.guard.EnsureRunning(ctx.Context, e.settings.Mcp)
	}

	reconcileCtx, cancel := context.WithCancel(ctx.Context)
	defer cancel()
	go events.NewReconciler(e.session, e.store, e.runner, e.logger).Run(reconcileCtx)

	watcher := events.NewCompletionWatcher(e.store, e.settings.NotifyOnCompletion, e.logger)
	watcher.Attach()
	watcher.Observe(e.store.Projects()) // seed before any mutation

	model := app.New(app.Deps{
		Store:      e.store,
		Session:    e.session,
		Controller: e.control,
		Runner:     e.runner,
		Workers:    e.workers,
		Logger:     e.logger,
	})
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

func runDispatch(ctx *cli.Context) error {
	e, err := bootstrap(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer e.kv.Close()

	project, err := findProject(e.store, ctx.String("project"))
	if err != nil {
		return err
	}

	kind := domain.WorkerKind(ctx.String("worker"))
	if ctx.String("worker") != "" && !kind.Valid() {
		return fmt.Errorf("unknown worker kind %q", ctx.String("worker"))
	}

	// Echo worker output while the batch runs.
	echoCtx, cancel := context.WithCancel(ctx.Context)
	defer cancel()
	go func() {
		for {
			select {
			case <-echoCtx.Done():
				return
			case ev := <-e.runner.Logs():
				fmt.Printf("[%s] %s\n", ev.WorkerID, ev.Line)
			}
		}
	}()

	if err := e.control.CompletePending(ctx.Context, project.ID, kind); err != nil {
		return err
	}

	final, _ := e.store.Project(project.ID)
	for _, task := range final.Tasks {
		fmt.Printf("%s %s %s\n", task.Status.Icon(), task.Status, task.Title)
	}
	return nil
}

func runProbe(ctx *cli.Context) error {
	kind := domain.WorkerKind(ctx.Args().First())
	if !kind.Valid() {
		return fmt.Errorf("usage: probe <claude|codex|iflow>")
	}

	e, err := bootstrap(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer e.kv.Close()

	if err := e.control.ProbeWorker(ctx.Context, kind); err != nil {
		return err
	}
	fmt.Println(e.session.Log(domain.WorkerID(kind)))
	return nil
}

func runMcp(ctx *cli.Context, op string) error {
	e, err := bootstrap(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer e.kv.Close()

	if e.settings.Mcp.BuiltIn() && op != "status" {
		fmt.Println("built-in mcp server, nothing to manage")
		return nil
	}

	var status domain.McpServerStatus
	switch op {
	case "start":
		status, err = e.runner.StartMcp(ctx.Context, e.settings.Mcp)
	case "stop":
		status, err = e.runner.StopMcp(ctx.Context)
	default:
		status, err = e.runner.McpStatus(ctx.Context)
	}
	if err != nil {
		return err
	}

	if e.settings.Mcp.BuiltIn() {
		fmt.Println("mcp: built-in (always available)")
		return nil
	}
	if status.Running {
		fmt.Printf("mcp: running (pid %d) %s\n", status.Pid, status.Command)
	} else {
		fmt.Println("mcp: not running")
	}
	return nil
}

func findProject(st *store.Store, ref string) (domain.Project, error) {
	if p, ok := st.Project(ref); ok {
		return p, nil
	}
	if p, ok := st.ProjectByName(ref); ok {
		return p, nil
	}
	return domain.Project{}, fmt.Errorf("project %q: %w", ref, domain.ErrNotFound)
}
