package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"streamteam-launcher/internal/config"
	"streamteam-launcher/internal/launch"
)

type fakeSpawner struct {
	mu    sync.Mutex
	calls []launch.Descriptor
}

func (f *fakeSpawner) Spawn(_ context.Context, d launch.Descriptor, _ func(launch.Exit)) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, d)
	return 2000 + len(f.calls), nil
}

// useFakeSpawner swaps newSpawner for the duration of the test.
func useFakeSpawner(t *testing.T) *fakeSpawner {
	t.Helper()
	fs := &fakeSpawner{}
	orig := newSpawner
	newSpawner = func(*config.LauncherConfig, string) launch.Spawner { return fs }
	t.Cleanup(func() { newSpawner = orig })
	return fs
}

// writeMatch creates <dir>/<name>/sids.yaml and points the launcher at dir.
func writeMatch(t *testing.T, name, sids string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, name), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name, "sids.yaml"), []byte(sids), 0o644); err != nil {
		t.Fatalf("write sids: %v", err)
	}
	t.Setenv("STREAMTEAM_DATA_DIR", dir)
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	return dir
}

func execute(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootRequiresExactlyOneMatch(t *testing.T) {
	fs := useFakeSpawner(t)
	writeMatch(t, "game1", "- S1\n")
	for _, args := range [][]string{{}, {"game1", "game2"}} {
		_, err := execute(args...)
		if err == nil || err.Error() != "required parameters: <match>" {
			t.Fatalf("args %v: err = %v", args, err)
		}
	}
	if len(fs.calls) != 0 {
		t.Fatalf("usage errors must not spawn, got %d", len(fs.calls))
	}
}

func TestLaunchSpawnsEverySensor(t *testing.T) {
	fs := useFakeSpawner(t)
	dir := writeMatch(t, "game1", "- S1\n- S2\n- S3\n")

	out, err := execute("game1", "--log-level", "error")
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if len(fs.calls) != 3 {
		t.Fatalf("expected 3 spawns, got %d", len(fs.calls))
	}
	first := fs.calls[0]
	if !first.Announcer || fs.calls[1].Announcer || fs.calls[2].Announcer {
		t.Fatalf("only the first sensor announces: %+v", fs.calls)
	}
	if first.ConfigFile != filepath.Join(dir, "game1", "config.properties") {
		t.Fatalf("config file = %s", first.ConfigFile)
	}
	for _, want := range []string{
		"Starting timestamp in ms:",
		"Start Sensor Simulators...",
		"Start Sensor Simulator for sensor S1 [announcer] (pid 2001)",
		"Start Sensor Simulator for sensor S3 (pid 2003)",
		"Simulation environment started (match id ",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLaunchMatchNamedCompletion(t *testing.T) {
	fs := useFakeSpawner(t)
	writeMatch(t, "completion", "- S1\n- S2\n")
	if _, err := execute("completion", "--log-level", "error"); err != nil {
		t.Fatalf("launch: %v", err)
	}
	if len(fs.calls) != 2 {
		t.Fatalf("expected 2 spawns for match completion, got %d", len(fs.calls))
	}
}

func TestLaunchDryRun(t *testing.T) {
	fs := useFakeSpawner(t)
	writeMatch(t, "game1", "- S1\n- S2\n")
	out, err := execute("game1", "--dry-run", "--log-level", "error")
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if len(fs.calls) != 0 {
		t.Fatalf("dry run spawned %d processes", len(fs.calls))
	}
	if !strings.Contains(out, "Planned Sensor Simulator for sensor S1 [announcer]") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestLaunchMissingSensorList(t *testing.T) {
	fs := useFakeSpawner(t)
	writeMatch(t, "game1", "- S1\n")
	if _, err := execute("game2", "--log-level", "error"); err == nil {
		t.Fatalf("expected error for unknown match")
	}
	if len(fs.calls) != 0 {
		t.Fatalf("nothing should be spawned")
	}
}

func TestLaunchInvalidConfig(t *testing.T) {
	useFakeSpawner(t)
	writeMatch(t, "game1", "- S1\n")
	path := filepath.Join(t.TempDir(), "launcher.yaml")
	if err := os.WriteFile(path, []byte("unknown_key: 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := execute("game1", "--config", path)
	if err == nil || !strings.Contains(err.Error(), "config load failed") {
		t.Fatalf("err = %v, want config error", err)
	}
}

func TestRelaunchReusesMatchID(t *testing.T) {
	fs := useFakeSpawner(t)
	writeMatch(t, "game1", "- S2\n- S1\n")
	logFile := filepath.Join(t.TempDir(), "launch.jsonl")

	if _, err := execute("game1", "--log-file", logFile, "--log-level", "error"); err != nil {
		t.Fatalf("launch: %v", err)
	}
	if _, err := execute("relaunch", "--manifest", logFile, "--log-level", "error"); err != nil {
		t.Fatalf("relaunch: %v", err)
	}
	if len(fs.calls) != 4 {
		t.Fatalf("expected 4 spawns, got %d", len(fs.calls))
	}
	first, again := fs.calls[:2], fs.calls[2:]
	for i := range first {
		if again[i].SensorID != first[i].SensorID || again[i].MatchID != first[i].MatchID {
			t.Fatalf("relaunch %d = %+v, want sensor %s match %d", i, again[i], first[i].SensorID, first[i].MatchID)
		}
	}
	if !again[0].Announcer || again[0].SensorID != "S2" {
		t.Fatalf("announcer should stay on the first sensor: %+v", again[0])
	}
	for _, suffix := range []string{".state", ".run"} {
		if _, err := os.Stat(logFile + suffix); err != nil {
			t.Fatalf("expected %s log: %v", suffix, err)
		}
	}
}
