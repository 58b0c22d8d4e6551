// Writer implementation printing launch progress to STDOUT
package launch

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"streamteam-launcher/internal/event"
)

var (
	styleInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	styleOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleFail    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleCommand = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// StdoutWriter prints human readable progress lines.
type StdoutWriter struct {
	out      io.Writer
	colorize bool
	now      func() time.Time
	mu       sync.Mutex
}

// NewStdoutWriter creates a StdoutWriter for out. Colours are used when out is
// a terminal.
func NewStdoutWriter(out io.Writer) *StdoutWriter {
	colorize := false
	if f, ok := out.(*os.File); ok {
		colorize = term.IsTerminal(int(f.Fd()))
	}
	return &StdoutWriter{out: out, colorize: colorize, now: time.Now}
}

func (w *StdoutWriter) paint(s lipgloss.Style, text string) string {
	if !w.colorize {
		return text
	}
	return s.Render(text)
}

// WriteRun prints the run header or trailer.
func (w *StdoutWriter) WriteRun(row event.RunRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch row.Phase {
	case event.PhaseStarting:
		start := time.UnixMilli(row.StartTimeMs)
		fmt.Fprintf(w.out, "%s\n", w.paint(styleInfo, fmt.Sprintf("Match %s (match id %d): %d sensor simulators", row.MatchName, row.MatchID, row.SensorCount)))
		fmt.Fprintf(w.out, "Starting timestamp in ms: %d (%s)\n", row.StartTimeMs, humanize.RelTime(start, w.now(), "ago", "from now"))
		if row.DryRun {
			fmt.Fprintln(w.out, "Planning Sensor Simulators (dry run)...")
		} else {
			fmt.Fprintln(w.out, "Start Sensor Simulators...")
		}
	case event.PhaseStarted:
		msg := fmt.Sprintf("Simulation environment started (match id %d)", row.MatchID)
		if row.DryRun {
			msg = fmt.Sprintf("Dry run complete (match id %d), nothing spawned", row.MatchID)
		}
		fmt.Fprintln(w.out, w.paint(styleOK, msg))
	}
	return nil
}

// Write prints one launch.
func (w *StdoutWriter) Write(row event.LaunchRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	role := ""
	if row.Announcer {
		role = " [announcer]"
	}
	switch row.Status {
	case event.StatusSpawnFailed:
		fmt.Fprintln(w.out, w.paint(styleFail, fmt.Sprintf("Failed to start Sensor Simulator for sensor %s%s: %s", row.SensorID, role, row.Error)))
	case event.StatusPlanned:
		fmt.Fprintf(w.out, "Planned Sensor Simulator for sensor %s%s\n", row.SensorID, role)
	default:
		fmt.Fprintf(w.out, "Start Sensor Simulator for sensor %s%s (pid %d)\n", row.SensorID, role, row.PID)
	}
	fmt.Fprintf(w.out, "  %s\n", w.paint(styleCommand, strings.Join(row.Command, " ")))
	return nil
}

// WriteBatch prints multiple launches.
func (w *StdoutWriter) WriteBatch(rows []event.LaunchRow) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteState prints process exits.
func (w *StdoutWriter) WriteState(row event.ProcessStateRow) error {
	if row.State != event.StateExited {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	style := styleOK
	if row.ExitCode != 0 {
		style = styleWarn
	}
	msg := fmt.Sprintf("Sensor Simulator for sensor %s (pid %d) exited with code %d", row.SensorID, row.PID, row.ExitCode)
	if row.Error != "" {
		msg += ": " + row.Error
	}
	fmt.Fprintln(w.out, w.paint(style, msg))
	return nil
}
