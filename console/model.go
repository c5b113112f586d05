// Package console is a terminal front end for the stimulus service. It shows
// the same view, modal, status and telemetry events the desktop window gets,
// which makes it useful for driving a controller without a display attached.
package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go.aimuz.me/stimui/flicker"
	"go.aimuz.me/stimui/internal/app"
	"go.aimuz.me/stimui/internal/types"
	"go.aimuz.me/stimui/router"
	"go.aimuz.me/stimui/telemetry"
)

// Service is the part of the app service the console drives.
type Service interface {
	SendAction(name string) error
	PressModalButton(modalID, button string)
}

// EventMsg carries one service event into the Bubble Tea loop.
type EventMsg struct {
	Name string
	Data any
}

// Emitter returns an app.Emitter that forwards events to send, which is
// normally tea.Program.Send.
func Emitter(send func(tea.Msg)) app.Emitter {
	return func(name string, data any) {
		send(EventMsg{Name: name, Data: data})
	}
}

// KeyMap defines the console key bindings.
type KeyMap struct {
	Calibrate key.Binding
	Run       key.Binding
	Checks    key.Binding
	Sessions  key.Binding
	Exit      key.Binding
	Confirm   key.Binding
	Ack       key.Binding
	Cancel    key.Binding
	Quit      key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Calibrate: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "calibrate")),
		Run:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "run")),
		Checks:    key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "hardware checks")),
		Sessions:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sessions")),
		Exit:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "exit")),
		Confirm:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
		Ack:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "ok")),
		Cancel:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "cancel")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Calibrate, k.Run, k.Checks, k.Sessions, k.Exit, k.Confirm, k.Ack, k.Cancel, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Calibrate, k.Run, k.Checks, k.Sessions},
		{k.Exit, k.Confirm, k.Ack, k.Cancel, k.Quit},
	}
}

var (
	panelBorder = lipgloss.Color("#2D6A80")
	mutedText   = lipgloss.Color("#8CA1AE")
	goodText    = lipgloss.Color("#22c55e")
	badText     = lipgloss.Color("#ef4444")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#50E3C2"))
	mutedStyle  = lipgloss.NewStyle().Foreground(mutedText)
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(panelBorder).Padding(0, 1)
	modalStyle  = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("#F6AE2D")).Padding(0, 1)
	onStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	offStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#3A3A3A"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(mutedText)
)

// maxLogLines is how many log lines the console keeps on screen.
const maxLogLines = 8

// Model is the Bubble Tea model for the console.
type Model struct {
	svc  Service
	keys KeyMap
	help help.Model

	view       router.View
	fullscreen bool
	connection types.ConnectionStatus
	refresh    string
	status     *router.Status
	modal      *router.Modal
	frames     map[string]flicker.Frame
	chart      *telemetry.Chart
	logs       []string
	hotkeys    bool
	err        string

	width int
}

// New creates a console model driving svc.
func New(svc Service) Model {
	return Model{
		svc:        svc,
		keys:       DefaultKeyMap(),
		help:       help.New(),
		view:       router.ViewHome,
		connection: types.ConnectionStatus{Label: "Disconnected"},
		refresh:    "Measuring monitor refresh rate...",
		frames:     make(map[string]flicker.Frame),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil
	case EventMsg:
		m.applyEvent(msg)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) applyEvent(ev EventMsg) {
	switch ev.Name {
	case app.EventView:
		if d, ok := ev.Data.(app.ViewChange); ok {
			m.view = d.View
			if d.View != router.ViewActiveCalib && d.View != router.ViewActiveRun {
				clear(m.frames)
			}
		}
	case app.EventFullscreen:
		if on, ok := ev.Data.(bool); ok {
			m.fullscreen = on
		}
	case app.EventConnection:
		if c, ok := ev.Data.(types.ConnectionStatus); ok {
			m.connection = c
		}
	case app.EventRefresh:
		if r, ok := ev.Data.(app.RefreshStatus); ok {
			m.refresh = r.Message
		}
	case app.EventStatus:
		if s, ok := ev.Data.(router.Status); ok {
			m.status = &s
		}
	case app.EventModalOpen:
		if md, ok := ev.Data.(router.Modal); ok {
			m.modal = &md
		}
	case app.EventModalClose:
		if c, ok := ev.Data.(app.ModalClose); ok && m.modal != nil && m.modal.ID == c.ID {
			m.modal = nil
		}
	case app.EventFlickerFrame:
		if f, ok := ev.Data.(app.FlickerFrames); ok {
			for _, fr := range f.Frames {
				m.frames[fr.Surface] = fr
			}
		}
	case app.EventTelemetryChart:
		if c, ok := ev.Data.(telemetry.Chart); ok {
			m.chart = &c
		}
	case app.EventLog:
		if l, ok := ev.Data.(app.LogLine); ok {
			m.logs = append(m.logs, l.String())
			if len(m.logs) > maxLogLines {
				m.logs = m.logs[len(m.logs)-maxLogLines:]
			}
		}
	case app.EventHotkeys:
		if on, ok := ev.Data.(bool); ok {
			m.hotkeys = on
		}
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	// An open modal captures confirm, ok and cancel. Enter only answers
	// info modals.
	if m.modal != nil {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.svc.PressModalButton(m.modal.ID, string(m.modal.Primary()))
			return m, nil
		case key.Matches(msg, m.keys.Ack):
			if m.modal.Kind == router.ModalInfo {
				m.svc.PressModalButton(m.modal.ID, string(router.ButtonOK))
			}
			return m, nil
		case key.Matches(msg, m.keys.Cancel):
			if m.modal.HasButton(router.ButtonCancel) {
				m.svc.PressModalButton(m.modal.ID, string(router.ButtonCancel))
			}
			return m, nil
		}
	}

	var action types.Action
	switch {
	case key.Matches(msg, m.keys.Exit):
		action = types.ActionExit
	case key.Matches(msg, m.keys.Calibrate):
		action = types.ActionStartCalib
	case key.Matches(msg, m.keys.Run):
		action = types.ActionStartRun
	case key.Matches(msg, m.keys.Checks):
		action = types.ActionHardwareChecks
	case key.Matches(msg, m.keys.Sessions):
		action = types.ActionShowSessions
	default:
		return m, nil
	}
	m.err = ""
	if err := m.svc.SendAction(string(action)); err != nil {
		m.err = err.Error()
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	conn := lipgloss.NewStyle().Foreground(badText).Render("● " + m.connection.Label)
	if m.connection.Connected {
		conn = lipgloss.NewStyle().Foreground(goodText).Render("● " + m.connection.Label)
	}
	mode := "windowed"
	if m.fullscreen {
		mode = "fullscreen"
	}
	b.WriteString(titleStyle.Render("StimUI console") + "  " + conn + "  " +
		mutedStyle.Render(fmt.Sprintf("view %s · %s", m.view, mode)) + "\n")
	b.WriteString(mutedStyle.Render(m.refresh) + "\n\n")

	if m.status != nil {
		b.WriteString(panelStyle.Render(renderStatus(*m.status)) + "\n")
	}

	switch m.view {
	case router.ViewActiveCalib:
		b.WriteString(panelStyle.Render(m.renderSurfaces("calibration")) + "\n")
	case router.ViewActiveRun:
		b.WriteString(panelStyle.Render(m.renderSurfaces("left", "right")) + "\n")
	case router.ViewHardwareChecks:
		b.WriteString(panelStyle.Render(renderChart(m.chart)) + "\n")
	}

	if m.modal != nil {
		b.WriteString(modalStyle.Render(renderModal(*m.modal)) + "\n")
	}

	if m.err != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(badText).Render(m.err) + "\n")
	}
	if len(m.logs) > 0 {
		b.WriteString(mutedStyle.Render(strings.Join(m.logs, "\n")) + "\n")
	}
	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func renderStatus(s router.Status) string {
	lines := []string{
		fmt.Sprintf("seq %s   state %s   block %s", s.Seq, s.State, s.Block),
		fmt.Sprintf("freq %s Hz (%s)   left %s Hz   right %s Hz", s.FreqHz, s.FreqCode, s.LeftHz, s.RightHz),
		fmt.Sprintf("subject %s   model %s", s.Subject, s.ModelReady),
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderSurfaces(names ...string) string {
	cells := make([]string, 0, len(names))
	for _, name := range names {
		cells = append(cells, surfaceGlyph(name, m.frames[name]))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func surfaceGlyph(name string, f flicker.Frame) string {
	block := strings.Repeat("█", 8)
	var style lipgloss.Style
	switch f.Level {
	case flicker.LevelOn:
		style = onStyle
	case flicker.LevelOff:
		style = offStyle
	default:
		style = mutedStyle
	}
	body := style.Render(block+"\n"+block+"\n"+block) + "\n" + mutedStyle.Render(fmt.Sprintf("%s %s", name, f.Level))
	return lipgloss.NewStyle().Padding(0, 2).Render(body)
}

func renderModal(md router.Modal) string {
	labels := make([]string, len(md.Buttons))
	for i, btn := range md.Buttons {
		labels[i] = "[" + btn.Label + "]"
	}
	return titleStyle.Render(md.Title) + "\n" + md.Body + "\n\n" + strings.Join(labels, " ")
}

func renderChart(c *telemetry.Chart) string {
	if c == nil {
		return mutedStyle.Render("Waiting for EEG...")
	}
	health := lipgloss.NewStyle().Foreground(lipgloss.Color(c.Health.Color())).Render(c.Health.String())
	var b strings.Builder
	fmt.Fprintf(&b, "health %s   bad windows %s (overall %s)   rolling %s\n",
		health, c.CurrentBadRate, c.OverallBadRate, c.RollingWindows)

	rows := [][]string{{"channel", "rms", "max", "step", "std"}}
	for _, tr := range c.Traces {
		rows = append(rows, []string{tr.Label, tr.Stats.RMS, tr.Stats.MaxAbs, tr.Stats.MaxStep, tr.Stats.Std})
	}
	cols := make([]string, len(rows[0]))
	for col := range cols {
		cells := make([]string, len(rows))
		for r, row := range rows {
			cell := row[col]
			switch {
			case r == 0:
				cell = headerStyle.Render(cell)
			case col == 0:
				cell = lipgloss.NewStyle().Foreground(lipgloss.Color(c.Traces[r-1].Color)).Render(cell)
			}
			cells[r] = cell
		}
		cols[col] = lipgloss.NewStyle().PaddingRight(3).Render(lipgloss.JoinVertical(lipgloss.Left, cells...))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	return b.String()
}
