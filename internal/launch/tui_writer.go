package launch

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/wordwrap"

	"streamteam-launcher/internal/event"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a log line for the viewport.
type logMsg struct{ line string }

// runMsg carries a run header or trailer.
type runMsg struct{ event.RunRow }

// launchMsg carries one launch row.
type launchMsg struct{ event.LaunchRow }

// stateMsg carries a process state change.
type stateMsg struct{ event.ProcessStateRow }

// samplesMsg carries resource usage of the tracked processes.
type samplesMsg struct{ samples []ProcessSample }

var (
	tuiTitle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	tuiMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	tuiFailed  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	tuiExited  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	tuiSpawned = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// TUIWriter renders launches and live process state using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter. Quitting
// the TUI interrupts the launcher.
func NewTUIWriter() *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// WriteRun implements RunWriter.
func (w *TUIWriter) WriteRun(row event.RunRow) error {
	w.program.Send(runMsg{row})
	return nil
}

// Write implements LaunchWriter.
func (w *TUIWriter) Write(row event.LaunchRow) error {
	w.program.Send(launchMsg{row})
	w.program.Send(logMsg{line: launchLine(row)})
	return nil
}

// WriteBatch outputs multiple launch rows.
func (w *TUIWriter) WriteBatch(rows []event.LaunchRow) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteState implements StateWriter.
func (w *TUIWriter) WriteState(row event.ProcessStateRow) error {
	w.program.Send(stateMsg{row})
	if row.State == event.StateExited {
		w.program.Send(logMsg{line: fmt.Sprintf("[%s] sensor %s pid %d exited code=%d",
			row.Timestamp.Format(time.RFC3339), row.SensorID, row.PID, row.ExitCode)})
	}
	return nil
}

// UpdateSamples pushes resource usage into the process table view.
func (w *TUIWriter) UpdateSamples(samples []ProcessSample) {
	w.program.Send(samplesMsg{samples: samples})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

func launchLine(row event.LaunchRow) string {
	role := ""
	if row.Announcer {
		role = " announcer"
	}
	head := fmt.Sprintf("[%s] sensor %s%s", row.Timestamp.Format(time.RFC3339), row.SensorID, role)
	switch row.Status {
	case event.StatusSpawnFailed:
		return tuiFailed.Render(head+" failed: "+row.Error) + "\n  " + strings.Join(row.Command, " ")
	case event.StatusPlanned:
		return head + " planned\n  " + strings.Join(row.Command, " ")
	}
	return head + fmt.Sprintf(" pid %d\n  ", row.PID) + strings.Join(row.Command, " ")
}

type tuiRow struct {
	sensorID  string
	announcer bool
	pid       int
	state     string
	exitCode  int
	cpu       float64
	rss       uint64
}

type tuiModel struct {
	table      table.Model
	vp         viewport.Model
	run        event.RunRow
	haveRun    bool
	rows       []tuiRow
	index      map[string]int
	logs       []string
	wrap       bool
	autoscroll bool
	width      int
	height     int
	now        func() time.Time
}

func newTUIModel() tuiModel {
	cols := []table.Column{
		{Title: "Sensor", Width: 10},
		{Title: "Role", Width: 10},
		{Title: "PID", Width: 8},
		{Title: "State", Width: 10},
		{Title: "Exit", Width: 5},
		{Title: "CPU %", Width: 7},
		{Title: "RSS", Width: 10},
	}
	return tuiModel{
		table:      table.New(table.WithColumns(cols), table.WithHeight(2)),
		vp:         viewport.New(0, 0),
		index:      make(map[string]int),
		autoscroll: true,
		now:        time.Now,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.updateHeights()
		m.refreshViewport()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd
	case runMsg:
		m.run = msg.RunRow
		m.haveRun = true
	case launchMsg:
		r := m.row(msg.SensorID)
		r.announcer = msg.Announcer
		r.pid = msg.PID
		switch msg.Status {
		case event.StatusPlanned:
			r.state = event.StatusPlanned
		case event.StatusSpawnFailed:
			r.state = event.StateFailed
			r.exitCode = -1
		default:
			if r.state == "" || r.state == event.StatePending {
				r.state = event.StateSpawned
			}
		}
		m.syncTable()
	case stateMsg:
		r := m.row(msg.SensorID)
		r.state = msg.State
		r.exitCode = msg.ExitCode
		if msg.PID != 0 {
			r.pid = msg.PID
		}
		m.syncTable()
	case samplesMsg:
		for _, s := range msg.samples {
			r := m.row(s.SensorID)
			r.cpu = s.CPUPercent
			r.rss = s.RSSBytes
		}
		m.syncTable()
	case logMsg:
		m.logs = append(m.logs, msg.line)
		m.refreshViewport()
	}
	return m, nil
}

// row returns the view row of sid, adding it in arrival order when missing.
func (m *tuiModel) row(sid string) *tuiRow {
	if i, ok := m.index[sid]; ok {
		return &m.rows[i]
	}
	m.rows = append(m.rows, tuiRow{sensorID: sid, state: event.StatePending})
	m.index[sid] = len(m.rows) - 1
	return &m.rows[len(m.rows)-1]
}

func (m *tuiModel) syncTable() {
	rows := make([]table.Row, 0, len(m.rows))
	for _, r := range m.rows {
		role := "sensor"
		if r.announcer {
			role = "announcer"
		}
		pid, exit, cpu, rss := "-", "-", "-", "-"
		if r.pid > 0 {
			pid = strconv.Itoa(r.pid)
		}
		if r.state == event.StateExited || r.state == event.StateFailed {
			exit = strconv.Itoa(r.exitCode)
		}
		if r.state == event.StateSpawned {
			cpu = fmt.Sprintf("%.1f", r.cpu)
			rss = humanize.Bytes(r.rss)
		}
		rows = append(rows, table.Row{r.sensorID, role, pid, r.state, exit, cpu, rss})
	}
	m.table.SetRows(rows)
	m.updateHeights()
}

func (m *tuiModel) updateHeights() {
	m.table.SetHeight(len(m.rows) + 1)
	h := m.height - lipgloss.Height(m.renderHeader()) - lipgloss.Height(m.table.View()) - lipgloss.Height(m.renderBottom()) - 3
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.wrap {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) View() string {
	divider := strings.Repeat("─", m.width)
	return strings.Join([]string{
		m.renderHeader(),
		m.table.View(),
		divider,
		m.vp.View(),
		divider,
		m.renderBottom(),
	}, "\n")
}

func (m tuiModel) renderHeader() string {
	if !m.haveRun {
		return tuiTitle.Render("Waiting for launch...")
	}
	start := time.UnixMilli(m.run.StartTimeMs)
	title := fmt.Sprintf("Match %s  id %d  sensors %d", m.run.MatchName, m.run.MatchID, m.run.SensorCount)
	if m.run.DryRun {
		title += "  (dry run)"
	}
	return tuiTitle.Render(title) + "\n" +
		tuiMuted.Render(fmt.Sprintf("start %d (%s)", m.run.StartTimeMs, humanize.RelTime(start, m.now(), "ago", "from now")))
}

func (m tuiModel) renderBottom() string {
	var spawned, exited, failed int
	for _, r := range m.rows {
		switch r.state {
		case event.StateSpawned:
			spawned++
		case event.StateExited:
			exited++
		case event.StateFailed:
			failed++
		}
	}
	counts := strings.Join([]string{
		tuiSpawned.Render(fmt.Sprintf("running %d", spawned)),
		tuiExited.Render(fmt.Sprintf("exited %d", exited)),
		tuiFailed.Render(fmt.Sprintf("failed %d", failed)),
	}, "  ")
	opts := fmt.Sprintf("wrap:%t scroll:%t", m.wrap, m.autoscroll)
	return counts + "  " + tuiMuted.Render(opts+"  q quit  w wrap  s autoscroll")
}
