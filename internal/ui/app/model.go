// Package app contains the main application model and TEA implementation.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mapleboard/internal/dispatch"
	"mapleboard/internal/domain"
	"mapleboard/internal/runtime"
	"mapleboard/internal/session"
	"mapleboard/internal/store"
	"mapleboard/internal/ui/statusbar"
	"mapleboard/internal/ui/styles"
	"mapleboard/internal/ui/toast"
)

// Mode is the input mode the board is in.
type Mode int

const (
	ModeNormal Mode = iota
	ModeEditTitle
	ModeNewProject
)

func (m Mode) String() string {
	switch m {
	case ModeEditTitle:
		return "EDIT"
	case ModeNewProject:
		return "PROJECT"
	default:
		return "NORMAL"
	}
}

// Deps wires the application model to the rest of the system.
type Deps struct {
	Store      *store.Store
	Session    *session.State
	Controller *dispatch.Controller
	Runner     runtime.Runner
	Workers    map[domain.WorkerKind]domain.WorkerConfig
	Logger     *slog.Logger
}

type tickMsg time.Time

type dispatchFinishedMsg struct {
	project string
	err     error
}

type probeFinishedMsg struct {
	kind domain.WorkerKind
	err  error
}

type consoleToggledMsg struct {
	workerID string
	started  bool
	err      error
}

// Model is the main application state.
type Model struct {
	deps Deps

	projects   []domain.Project
	projectIdx int
	taskIdx    int

	mode       Mode
	titleInput textinput.Model
	dirInput   textinput.Model
	editTaskID string

	logView  viewport.Model
	logReady bool

	toasts []toast.Toast

	width  int
	height int

	styles   *styles.Styles
	toastbox *toast.Renderer
}

// New creates the application model.
func New(deps Deps) Model {
	title := textinput.New()
	title.Placeholder = "任务标题"
	title.CharLimit = 200

	dir := textinput.New()
	dir.Placeholder = "/absolute/project/path"
	dir.CharLimit = 500

	s := styles.New()
	return Model{
		deps:       deps,
		projects:   deps.Store.Projects(),
		titleInput: title,
		dirInput:   dir,
		styles:     s,
		toastbox:   toast.New(s),
	}
}

// Init returns the initial command for the application.
func (m Model) Init() tea.Cmd {
	return tickEvery(250 * time.Millisecond)
}

func tickEvery(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles incoming messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		logHeight := m.height/3 - 2
		if logHeight < 3 {
			logHeight = 3
		}
		if !m.logReady {
			m.logView = viewport.New(m.width-4, logHeight)
			m.logReady = true
		} else {
			m.logView.Width = m.width - 4
			m.logView.Height = logHeight
		}
		return m, nil

	case tickMsg:
		m.refresh()
		return m, tickEvery(250 * time.Millisecond)

	case dispatchFinishedMsg:
		if msg.err != nil {
			m.pushToast(store.NoticeError, fmt.Sprintf("%s: %v", msg.project, msg.err))
		}
		return m, nil

	case probeFinishedMsg:
		if msg.err != nil {
			m.pushToast(store.NoticeError, fmt.Sprintf("probe %s: %v", msg.kind, msg.err))
		}
		return m, nil

	case consoleToggledMsg:
		if msg.err != nil {
			m.pushToast(store.NoticeError, fmt.Sprintf("console: %v", msg.err))
		} else if msg.started {
			m.deps.Session.SetRunning(msg.workerID)
			m.pushToast(store.NoticeInfo, msg.workerID+" 控制台已启动")
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeEditTitle:
			return m.handleEditTitleKey(msg)
		case ModeNewProject:
			return m.handleNewProjectKey(msg)
		default:
			return m.handleNormalKey(msg)
		}
	}

	return m, nil
}

// refresh pulls the latest snapshot, drains notices into toasts, and feeds
// the log viewport.
func (m *Model) refresh() {
	m.projects = m.deps.Store.Projects()
	m.clampCursor()

	for {
		select {
		case n := <-m.deps.Store.Notices():
			m.toasts = append(m.toasts, toast.FromNotice(n))
		default:
			m.toasts = toast.Expire(m.toasts, time.Now())
			if m.logReady {
				if p := m.currentProject(); p != nil {
					workerID := domain.WorkerID(p.WorkerKind)
					m.logView.SetContent(m.deps.Session.Log(workerID))
					m.logView.GotoBottom()
				}
			}
			return
		}
	}
}

func (m *Model) clampCursor() {
	if m.projectIdx >= len(m.projects) {
		m.projectIdx = len(m.projects) - 1
	}
	if m.projectIdx < 0 {
		m.projectIdx = 0
	}
	if p := m.currentProject(); p != nil {
		if m.taskIdx >= len(p.Tasks) {
			m.taskIdx = len(p.Tasks) - 1
		}
	}
	if m.taskIdx < 0 {
		m.taskIdx = 0
	}
}

func (m *Model) currentProject() *domain.Project {
	if m.projectIdx < 0 || m.projectIdx >= len(m.projects) {
		return nil
	}
	return &m.projects[m.projectIdx]
}

func (m *Model) currentTask() *domain.Task {
	p := m.currentProject()
	if p == nil || m.taskIdx < 0 || m.taskIdx >= len(p.Tasks) {
		return nil
	}
	return &p.Tasks[m.taskIdx]
}

func (m *Model) pushToast(level store.NoticeLevel, message string) {
	m.toasts = append(m.toasts, toast.FromNotice(store.Notice{
		Level: level, Message: message, Time: time.Now(),
	}))
}

func (m Model) handleNormalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// A pending permission prompt captures y/n first.
	if prompt, ok := m.deps.Session.PendingPrompt(); ok {
		switch msg.String() {
		case "y", "n":
			answer := msg.String()
			m.deps.Session.ClearPermissionPrompt()
			return m, m.answerPromptCmd(prompt.WorkerID, answer)
		case "esc":
			m.deps.Session.ClearPermissionPrompt()
			return m, nil
		}
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "j", "down":
		m.taskIdx++
		m.clampCursor()
	case "k", "up":
		m.taskIdx--
		m.clampCursor()
	case "h", "left":
		m.projectIdx--
		m.taskIdx = 0
		m.clampCursor()
		m.syncSelection()
	case "l", "right", "tab":
		m.projectIdx++
		m.taskIdx = 0
		m.clampCursor()
		m.syncSelection()

	case "n":
		if p := m.currentProject(); p != nil {
			if taskID, ok := m.deps.Store.AddTask(p.ID); ok {
				m.editTaskID = taskID
				m.taskIdx = 0
				m.titleInput.SetValue("")
				m.titleInput.Focus()
				m.mode = ModeEditTitle
			}
		}
	case "e":
		if task := m.currentTask(); task != nil {
			m.editTaskID = task.ID
			m.titleInput.SetValue(task.Title)
			m.titleInput.Focus()
			m.mode = ModeEditTitle
		}
	case "d":
		if p, task := m.currentProject(), m.currentTask(); p != nil && task != nil {
			m.deps.Store.DeleteTask(p.ID, task.ID)
		}

	case "a":
		m.dirInput.SetValue("")
		m.dirInput.Focus()
		m.mode = ModeNewProject
	case "X":
		if p := m.currentProject(); p != nil {
			m.deps.Store.RemoveProject(p.ID)
			m.clampCursor()
		}

	case "w":
		if p := m.currentProject(); p != nil {
			m.deps.Store.AssignWorkerKind(p.ID, nextKind(p.WorkerKind))
		}

	case "r":
		if p := m.currentProject(); p != nil {
			return m, m.dispatchCmd(p.ID)
		}
	case "p":
		if p := m.currentProject(); p != nil && p.WorkerKind.Valid() {
			return m, m.probeCmd(p.WorkerKind)
		}
	case "c":
		if p := m.currentProject(); p != nil && p.WorkerKind.Valid() {
			return m, m.toggleConsoleCmd(*p)
		}
	}

	return m, nil
}

func (m *Model) syncSelection() {
	if p := m.currentProject(); p != nil {
		m.deps.Store.SelectProject(p.ID)
	}
}

func (m Model) handleEditTitleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		if p := m.currentProject(); p != nil {
			title := m.titleInput.Value()
			if msg.String() == "esc" {
				title = ""
			}
			m.deps.Store.CommitTaskTitle(p.ID, m.editTaskID, title)
		}
		m.titleInput.Blur()
		m.editTaskID = ""
		m.mode = ModeNormal
		return m, nil
	}

	var cmd tea.Cmd
	m.titleInput, cmd = m.titleInput.Update(msg)
	return m, cmd
}

func (m Model) handleNewProjectKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		dir := strings.TrimSpace(m.dirInput.Value())
		if dir != "" {
			if _, err := m.deps.Store.AddProject("", dir); err != nil {
				m.pushToast(store.NoticeError, err.Error())
			}
		}
		m.dirInput.Blur()
		m.mode = ModeNormal
		return m, nil
	case "esc":
		m.dirInput.Blur()
		m.mode = ModeNormal
		return m, nil
	}

	var cmd tea.Cmd
	m.dirInput, cmd = m.dirInput.Update(msg)
	return m, cmd
}

func nextKind(kind domain.WorkerKind) domain.WorkerKind {
	kinds := domain.Kinds()
	for i, k := range kinds {
		if k == kind {
			return kinds[(i+1)%len(kinds)]
		}
	}
	return kinds[0]
}

func (m Model) dispatchCmd(projectID string) tea.Cmd {
	controller := m.deps.Controller
	return func() tea.Msg {
		err := controller.CompletePending(context.Background(), projectID, "")
		return dispatchFinishedMsg{project: projectID, err: err}
	}
}

func (m Model) probeCmd(kind domain.WorkerKind) tea.Cmd {
	controller := m.deps.Controller
	return func() tea.Msg {
		err := controller.ProbeWorker(context.Background(), kind)
		return probeFinishedMsg{kind: kind, err: err}
	}
}

func (m Model) answerPromptCmd(workerID, answer string) tea.Cmd {
	runner := m.deps.Runner
	return func() tea.Msg {
		_, err := runner.SendInput(context.Background(), workerID, answer, true)
		if err != nil {
			return consoleToggledMsg{workerID: workerID, err: err}
		}
		return nil
	}
}

// toggleConsoleCmd starts an interactive console for the project's worker,
// or stops the one already attached.
func (m Model) toggleConsoleCmd(project domain.Project) tea.Cmd {
	deps := m.deps
	workerID := domain.WorkerID(project.WorkerKind)
	cfg := deps.Workers[project.WorkerKind]

	if deps.Session.IsRunning(workerID) {
		return func() tea.Msg {
			_, err := deps.Runner.StopSession(context.Background(), workerID)
			return consoleToggledMsg{workerID: workerID, err: err}
		}
	}
	return func() tea.Msg {
		if strings.TrimSpace(cfg.Executable) == "" {
			return consoleToggledMsg{workerID: workerID, err: domain.ErrNoExecutable}
		}
		started, err := deps.Runner.StartInteractive(context.Background(), runtime.RunRequest{
			WorkerID:   workerID,
			Executable: cfg.Executable,
			Args:       domain.SplitArgs(cfg.ConsoleArgs),
			Cwd:        project.Directory,
		})
		return consoleToggledMsg{workerID: workerID, started: started, err: err}
	}
}

// View renders the whole board.
func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	sidebar := m.renderSidebar()
	tasks := m.renderTasks()
	top := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, tasks)

	sections := []string{top, m.renderLog()}

	if prompt, ok := m.deps.Session.PendingPrompt(); ok {
		bar := fmt.Sprintf("%s 等待确认: %s  (y/n, esc 忽略)", prompt.WorkerID, prompt.Line)
		sections = append(sections, m.styles.PromptBar.Width(m.width).Render(bar))
	}
	if m.mode == ModeNewProject {
		sections = append(sections, "新项目目录: "+m.dirInput.View())
	}

	bar := statusbar.New(m.mode.String(), m.deps.Session.Summary(), hints(m.mode), m.width, m.styles)
	sections = append(sections, bar.Render())

	if overlay := m.toastbox.Render(m.toasts, m.width); overlay != "" {
		sections = append(sections, overlay)
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func hints(mode Mode) string {
	switch mode {
	case ModeEditTitle:
		return "enter 保存 · esc 取消"
	case ModeNewProject:
		return "enter 添加 · esc 取消"
	default:
		return "n 新任务 · r 派发 · p 探测 · c 控制台 · w 指派 · q 退出"
	}
}

func (m Model) renderSidebar() string {
	var b strings.Builder
	b.WriteString(m.styles.Header.Render("项目"))
	b.WriteString("\n")

	for i, p := range m.projects {
		style := m.styles.SidebarItem
		marker := "  "
		if i == m.projectIdx {
			style = m.styles.SidebarActive
			marker = "▸ "
		}
		kind := "-"
		if p.WorkerKind.Valid() {
			kind = p.WorkerKind.String()
		}
		line := fmt.Sprintf("%s%s", marker, p.Name)
		b.WriteString(style.Render(line))
		b.WriteString("\n")
		b.WriteString(m.styles.SidebarVersion.Render(fmt.Sprintf("  v%s · %s", p.Version, kind)))
		b.WriteString("\n")
	}
	if len(m.projects) == 0 {
		b.WriteString(m.styles.SidebarItem.Render("(a 添加项目)"))
	}
	return m.styles.Sidebar.Render(b.String())
}

func (m Model) renderTasks() string {
	p := m.currentProject()

	var b strings.Builder
	title := "任务"
	if p != nil {
		title = fmt.Sprintf("任务 — %s", p.Name)
	}
	b.WriteString(m.styles.Header.Render(title))
	b.WriteString("\n")

	if p == nil || len(p.Tasks) == 0 {
		b.WriteString(m.styles.TaskRow.Render("(n 新建任务)"))
	} else {
		for i, task := range p.Tasks {
			b.WriteString(m.renderTaskRow(task, i == m.taskIdx))
			b.WriteString("\n")
		}
	}

	width := m.width - 28
	if width < 20 {
		width = 20
	}
	return m.styles.TaskPane.Width(width).Render(b.String())
}

func (m Model) renderTaskRow(task domain.Task, active bool) string {
	rowStyle := m.styles.TaskRow
	if active {
		rowStyle = m.styles.TaskActive
	}

	title := task.Title
	if m.mode == ModeEditTitle && task.ID == m.editTaskID {
		title = m.titleInput.View()
	}

	icon := m.statusStyle(task.Status).Render(task.Status.Icon())
	line := fmt.Sprintf("%s %s", icon, rowStyle.Render(title))
	if len(task.Tags) > 0 {
		line += " " + m.styles.TaskTag.Render("["+strings.Join(task.Tags, " ")+"]")
	}
	if task.Version != "" {
		line += " " + m.styles.SidebarVersion.Render("v"+task.Version)
	}
	return line
}

func (m Model) statusStyle(status domain.TaskStatus) lipgloss.Style {
	switch status {
	case domain.StatusTodo:
		return m.styles.StatusTodo
	case domain.StatusQueued:
		return m.styles.StatusQueued
	case domain.StatusRunning:
		return m.styles.StatusRunning
	case domain.StatusDone:
		return m.styles.StatusDone
	case domain.StatusBlocked:
		return m.styles.StatusBlocked
	default:
		return m.styles.StatusOther
	}
}

func (m Model) renderLog() string {
	workerID := ""
	if p := m.currentProject(); p != nil && p.WorkerKind.Valid() {
		workerID = domain.WorkerID(p.WorkerKind)
	}

	title := m.styles.LogTitle.Render("输出")
	if workerID != "" {
		title = m.styles.LogTitle.Render("输出 — " + workerID)
	}

	body := ""
	if m.logReady {
		body = m.logView.View()
	}
	return m.styles.LogPane.Width(m.width - 2).Render(title + "\n" + body)
}
