package launch

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"streamteam-launcher/internal/event"
)

func TestStdoutWriterRunAndLaunch(t *testing.T) {
	buf := &bytes.Buffer{}
	now := time.UnixMilli(1_700_000_000_000)
	w := &StdoutWriter{out: buf, now: func() time.Time { return now }}

	run := event.RunRow{MatchName: "game1", MatchID: 4711, Phase: event.PhaseStarting, StartTimeMs: now.Add(40 * time.Second).UnixMilli(), SensorCount: 2}
	if err := w.WriteRun(run); err != nil {
		t.Fatalf("write run: %v", err)
	}
	rows := []event.LaunchRow{
		{SensorID: "S1", Announcer: true, PID: 100, Status: event.StatusSpawned, Command: []string{"java", "-jar", "sim.jar"}},
		{SensorID: "S2", Status: event.StatusSpawnFailed, Error: "exec: not found", Command: []string{"java"}},
	}
	if err := w.WriteBatch(rows); err != nil {
		t.Fatalf("write batch: %v", err)
	}
	run.Phase = event.PhaseStarted
	if err := w.WriteRun(run); err != nil {
		t.Fatalf("write run: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Match game1 (match id 4711): 2 sensor simulators",
		"Starting timestamp in ms: 1700000040000 (40 seconds from now)",
		"Start Sensor Simulators...",
		"Start Sensor Simulator for sensor S1 [announcer] (pid 100)",
		"  java -jar sim.jar",
		"Failed to start Sensor Simulator for sensor S2: exec: not found",
		"Simulation environment started (match id 4711)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("unexpected color codes: %q", out)
	}
}

func TestStdoutWriterDryRun(t *testing.T) {
	buf := &bytes.Buffer{}
	w := &StdoutWriter{out: buf, now: time.Now}
	run := event.RunRow{MatchID: 1, Phase: event.PhaseStarting, DryRun: true}
	_ = w.WriteRun(run)
	_ = w.Write(event.LaunchRow{SensorID: "S1", Status: event.StatusPlanned})
	run.Phase = event.PhaseStarted
	_ = w.WriteRun(run)
	out := buf.String()
	if !strings.Contains(out, "Planning Sensor Simulators (dry run)...") {
		t.Fatalf("missing dry run header: %q", out)
	}
	if !strings.Contains(out, "Planned Sensor Simulator for sensor S1") {
		t.Fatalf("missing planned line: %q", out)
	}
	if !strings.Contains(out, "Dry run complete (match id 1), nothing spawned") {
		t.Fatalf("missing dry run trailer: %q", out)
	}
}

func TestStdoutWriterStateOnlyExits(t *testing.T) {
	buf := &bytes.Buffer{}
	w := &StdoutWriter{out: buf, now: time.Now}
	_ = w.WriteState(event.ProcessStateRow{SensorID: "S1", PID: 10, State: event.StateSpawned})
	if buf.Len() != 0 {
		t.Fatalf("spawned state should not print, got %q", buf.String())
	}
	_ = w.WriteState(event.ProcessStateRow{SensorID: "S1", PID: 10, State: event.StateExited, ExitCode: 3})
	if !strings.Contains(buf.String(), "Sensor Simulator for sensor S1 (pid 10) exited with code 3") {
		t.Fatalf("unexpected exit line: %q", buf.String())
	}
}
