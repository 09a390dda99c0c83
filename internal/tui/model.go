package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"procctl/internal/app"
	"procctl/internal/control"
	"procctl/internal/notify"
	"procctl/internal/registry"
)

const (
	rpcTimeout = app.DefaultTimeout
	// watchRetry paces re-subscription after the event stream drops.
	watchRetry = 2 * time.Second
)

// Controller defines the subset of app.App behaviour the TUI needs.
type Controller interface {
	Status() (app.DaemonStatus, error)
	StartDaemon() (*app.DaemonHandle, error)
	List(context.Context, app.ListParams) (app.Snapshot, error)
	Refresh(context.Context, time.Duration) (app.Snapshot, error)
	Terminate(context.Context, app.TargetParams) (control.Terminated, error)
	Spawn(context.Context, app.SpawnParams) (control.Spawned, error)
	Restart(context.Context, app.TargetParams) (control.Restarted, error)
	Watch(context.Context, time.Duration, func(notify.Event) error) error
}

type mode int

const (
	modeBrowse mode = iota
	modeFilter
	modeSpawn
	modeConfirm
)

// Model represents the Bubble Tea state.
type Model struct {
	controller Controller

	list  list.Model
	input textinput.Model
	mode  mode

	snapshot app.Snapshot
	query    string
	pending  pendingAction

	daemonStatus app.DaemonStatus
	daemon       *app.DaemonHandle
	statusMsg    string
	err          error
	loading      bool

	stopWatch    context.CancelFunc
	watching     bool
	reconnecting bool
	lastUpdated  time.Time

	width  int
	height int
}

type pendingAction struct {
	op  string
	rec registry.Record
}

// New constructs a TUI model with default styles.
func New(ctrl Controller) *Model {
	delegate := list.NewDefaultDelegate()
	lst := list.New([]list.Item{}, delegate, 0, 0)
	lst.Title = "Processes"
	lst.SetShowHelp(false)
	lst.SetFilteringEnabled(false)
	lst.DisableQuitKeybindings()

	in := textinput.New()
	in.CharLimit = 256

	return &Model{
		controller: ctrl,
		list:       lst,
		input:      in,
		statusMsg:  "Checking daemon status…",
		loading:    true,
	}
}

// Run spins up the Bubble Tea program and tears down anything it started.
func Run(ctrl Controller) error {
	m := New(ctrl)
	prog := tea.NewProgram(m, tea.WithAltScreen())
	_, err := prog.Run()
	m.shutdown()
	return err
}

func (m *Model) shutdown() {
	if m.stopWatch != nil {
		m.stopWatch()
	}
	if m.daemon != nil {
		_ = m.daemon.Close()
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(checkDaemonStatusCmd(m.controller), loadProcessesCmd(m.controller))
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.height > 5 {
			m.list.SetSize(msg.Width, msg.Height-5)
		}

	case daemonStatusMsg:
		m.daemonStatus = msg.status
		if !msg.status.Running {
			m.statusMsg = "Daemon is not running. Press s to start it."
			m.snapshot = app.Snapshot{}
			m.applyFilter()
			if m.reconnecting {
				return m, retryWatchCmd()
			}
			return m, nil
		}
		m.reconnecting = false
		if msg.status.PID > 0 {
			m.statusMsg = fmt.Sprintf("Daemon running (pid %d).", msg.status.PID)
		} else {
			m.statusMsg = "Daemon running."
		}
		if !m.watching {
			m.watching = true
			return m, m.startWatch()
		}

	case processesLoadedMsg:
		m.loading = false
		m.err = nil
		m.snapshot = msg.snapshot
		m.lastUpdated = time.Now()
		m.applyFilter()
		if n := len(msg.snapshot.Skipped); n > 0 {
			m.statusMsg = fmt.Sprintf("Listed %d processes, skipped %d unreadable lines.", msg.snapshot.Len(), n)
		}

	case eventMsg:
		m.statusMsg = describeEvent(msg.ev)
		return m, tea.Batch(loadProcessesCmd(m.controller), waitForEvent(msg.ch))

	case watchEndedMsg:
		m.watching = false
		if m.stopWatch != nil {
			m.stopWatch()
			m.stopWatch = nil
		}
		if msg.err != nil {
			m.err = msg.err
		}
		m.reconnecting = true
		return m, retryWatchCmd()

	case retryWatchMsg:
		if m.watching {
			return m, nil
		}
		return m, checkDaemonStatusCmd(m.controller)

	case actionDoneMsg:
		m.loading = false
		m.err = nil
		m.statusMsg = msg.text
		return m, loadProcessesCmd(m.controller)

	case daemonStartedMsg:
		m.daemon = msg.handle
		m.statusMsg = "Daemon started."
		return m, tea.Batch(checkDaemonStatusCmd(m.controller), loadProcessesCmd(m.controller))

	case errMsg:
		m.loading = false
		m.err = msg.err

	case tea.KeyMsg:
		if m.mode != modeBrowse {
			return m.updateInput(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			m.loading = true
			return m, refreshCmd(m.controller)
		case "s":
			if !m.daemonStatus.Running {
				m.statusMsg = "Starting daemon…"
				return m, startDaemonCmd(m.controller)
			}
		case "/":
			m.beginInput(modeFilter, "filter: ", m.query)
			return m, textinput.Blink
		case "esc":
			if m.query != "" {
				m.query = ""
				m.applyFilter()
			}
		case "n":
			name := ""
			if rec, ok := m.current(); ok {
				name = rec.Name
			}
			m.beginInput(modeSpawn, "spawn: ", name)
			return m, textinput.Blink
		case "x", "R":
			if rec, ok := m.current(); ok {
				op := "terminate"
				if msg.String() == "R" {
					op = "restart"
				}
				m.pending = pendingAction{op: op, rec: rec}
				m.mode = modeConfirm
				m.statusMsg = fmt.Sprintf("%s %s (pid %d)? y/n", op, valueOrDash(rec.Name), rec.PID)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == modeConfirm {
		action := m.pending
		m.mode = modeBrowse
		m.pending = pendingAction{}
		if msg.String() != "y" && msg.String() != "Y" {
			m.statusMsg = "Cancelled."
			return m, nil
		}
		m.loading = true
		if action.op == "restart" {
			return m, restartCmd(m.controller, action.rec)
		}
		return m, terminateCmd(m.controller, action.rec)
	}

	switch msg.Type {
	case tea.KeyEsc:
		if m.mode == modeFilter {
			m.query = ""
			m.applyFilter()
		}
		m.endInput()
		return m, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		current := m.mode
		m.endInput()
		if current == modeSpawn && value != "" {
			m.loading = true
			return m, spawnCmd(m.controller, value)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == modeFilter {
		m.query = m.input.Value()
		m.applyFilter()
	}
	return m, cmd
}

func (m *Model) beginInput(md mode, prompt, value string) {
	m.mode = md
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *Model) endInput() {
	m.mode = modeBrowse
	m.input.Blur()
}

// applyFilter rebuilds the visible rows from the latest snapshot.
func (m *Model) applyFilter() {
	records := registry.Filter(m.snapshot.Records, m.query)
	items := make([]list.Item, 0, len(records))
	for _, rec := range records {
		items = append(items, processItem{rec})
	}
	m.list.SetItems(items)
}

func (m *Model) current() (registry.Record, bool) {
	item, ok := m.list.SelectedItem().(processItem)
	if !ok {
		return registry.Record{}, false
	}
	return item.Record, true
}

// startWatch subscribes to daemon events. Each subscription gets its own
// channel, closed when the stream ends so its reader exits too.
func (m *Model) startWatch() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.stopWatch = cancel
	ctrl := m.controller
	events := make(chan notify.Event, 16)
	watch := func() tea.Msg {
		defer close(events)
		err := ctrl.Watch(ctx, rpcTimeout, func(ev notify.Event) error {
			select {
			case events <- ev:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if ctx.Err() != nil {
			return watchEndedMsg{}
		}
		return watchEndedMsg{err: err}
	}
	return tea.Batch(watch, waitForEvent(events))
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	statusStyle := lipgloss.NewStyle().Bold(true)
	if !m.daemonStatus.Running {
		statusStyle = statusStyle.Foreground(lipgloss.Color("203"))
	} else {
		statusStyle = statusStyle.Foreground(lipgloss.Color("42"))
	}
	b.WriteString(statusStyle.Render(m.statusMsg))
	b.WriteByte('\n')

	if m.loading {
		b.WriteString("Working…\n")
	} else if m.err != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
		b.WriteString(errStyle.Render("Error: " + app.Describe(m.err)))
		b.WriteByte('\n')
	}

	if m.mode == modeFilter || m.mode == modeSpawn {
		b.WriteString(m.input.View())
		b.WriteByte('\n')
	} else if m.query != "" {
		fmt.Fprintf(&b, "filter: %q (%d of %d)\n", m.query, len(m.list.Items()), m.snapshot.Len())
	}

	if len(m.list.Items()) == 0 && !m.loading && m.err == nil && m.daemonStatus.Running {
		b.WriteString("No processes found.\n")
	} else {
		b.WriteString(m.list.View())
		b.WriteByte('\n')
	}

	help := "q quit • r refresh • / filter • x terminate • R restart • n spawn"
	if !m.daemonStatus.Running {
		help += " • s start daemon"
	}
	if !m.lastUpdated.IsZero() {
		help += fmt.Sprintf(" • last update %s", m.lastUpdated.Format(time.Kitchen))
	}
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

// processItem adapts a snapshot record to the bubbles list item interface.
type processItem struct {
	registry.Record
}

func (p processItem) Title() string {
	return fmt.Sprintf("%s [pid=%d]", valueOrDash(p.Name), p.PID)
}

func (p processItem) Description() string {
	if p.ObservedAt.IsZero() {
		return "observed -"
	}
	return "observed " + p.ObservedAt.Local().Format(time.TimeOnly)
}

func (p processItem) FilterValue() string {
	return fmt.Sprintf("%d %s", p.PID, p.Name)
}

func valueOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func describeEvent(ev notify.Event) string {
	switch ev.Kind {
	case notify.Refreshed:
		return fmt.Sprintf("Refreshed: %d processes.", ev.Count)
	case notify.Terminated:
		return fmt.Sprintf("Terminated %s (pid %d).", valueOrDash(ev.Name), ev.PID)
	case notify.Spawned:
		return fmt.Sprintf("Spawned %s (pid %d).", valueOrDash(ev.Name), ev.NewPID)
	case notify.Restarted:
		return fmt.Sprintf("Restarted %s: pid %d → %d.", valueOrDash(ev.Name), ev.PID, ev.NewPID)
	case notify.Failed:
		if ev.Err != nil {
			return "Failed: " + app.Describe(ev.Err)
		}
		return fmt.Sprintf("Failed: %s.", ev.Op)
	default:
		return ev.Kind.String()
	}
}

type daemonStatusMsg struct {
	status app.DaemonStatus
}

type processesLoadedMsg struct {
	snapshot app.Snapshot
}

type eventMsg struct {
	ev notify.Event
	ch <-chan notify.Event
}

type retryWatchMsg struct{}

type watchEndedMsg struct{ err error }

type actionDoneMsg struct{ text string }

type daemonStartedMsg struct{ handle *app.DaemonHandle }

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

func checkDaemonStatusCmd(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		status, err := ctrl.Status()
		if err != nil {
			return errMsg{err}
		}
		return daemonStatusMsg{status: status}
	}
}

func loadProcessesCmd(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		snap, err := ctrl.List(context.Background(), app.ListParams{Timeout: rpcTimeout})
		if err != nil {
			return errMsg{err}
		}
		return processesLoadedMsg{snapshot: snap}
	}
}

func refreshCmd(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		snap, err := ctrl.Refresh(context.Background(), rpcTimeout)
		if err != nil {
			return errMsg{err}
		}
		return processesLoadedMsg{snapshot: snap}
	}
}

func terminateCmd(ctrl Controller, rec registry.Record) tea.Cmd {
	return func() tea.Msg {
		res, err := ctrl.Terminate(context.Background(), app.TargetParams{PID: rec.PID, Timeout: rpcTimeout})
		if err != nil {
			return errMsg{err}
		}
		return actionDoneMsg{fmt.Sprintf("Terminated %s (pid %d).", valueOrDash(res.Name), res.PID)}
	}
}

func restartCmd(ctrl Controller, rec registry.Record) tea.Cmd {
	return func() tea.Msg {
		res, err := ctrl.Restart(context.Background(), app.TargetParams{PID: rec.PID, Timeout: rpcTimeout})
		if err != nil {
			return errMsg{err}
		}
		return actionDoneMsg{fmt.Sprintf("Restarted %s: pid %d → %d.", valueOrDash(res.Spawned.Name), res.Terminated.PID, res.Spawned.PID)}
	}
}

func spawnCmd(ctrl Controller, name string) tea.Cmd {
	return func() tea.Msg {
		res, err := ctrl.Spawn(context.Background(), app.SpawnParams{Name: name, Timeout: rpcTimeout})
		if err != nil {
			return errMsg{err}
		}
		return actionDoneMsg{fmt.Sprintf("Spawned %s (pid %d).", res.Name, res.PID)}
	}
}

func startDaemonCmd(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		h, err := ctrl.StartDaemon()
		if err != nil {
			return errMsg{err}
		}
		return daemonStartedMsg{handle: h}
	}
}

func waitForEvent(ch <-chan notify.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg{ev: ev, ch: ch}
	}
}

func retryWatchCmd() tea.Cmd {
	return tea.Tick(watchRetry, func(time.Time) tea.Msg { return retryWatchMsg{} })
}
