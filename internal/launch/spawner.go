package launch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"streamteam-launcher/internal/logging"
)

// Exit describes how a spawned process ended.
type Exit struct {
	PID  int
	Code int
	Err  error
	At   time.Time
}

// Spawner starts the simulator of one descriptor without waiting for it.
// onExit is called from another goroutine once the process has ended.
type Spawner interface {
	Spawn(ctx context.Context, d Descriptor, onExit func(Exit)) (pid int, err error)
}

// ExecSpawner starts simulators as child processes of the launcher.
type ExecSpawner struct {
	JavaBin string
	Jar     string
	// Dir is the working directory of the children; empty means the launcher's.
	Dir string
	// OutputDir receives <logFileName>.out per child when set.
	OutputDir string
	// Discard drops child output when OutputDir is empty.
	Discard bool
	Stdout  io.Writer
	Stderr  io.Writer
}

// Spawn starts the process and returns once it is running. The child is
// reaped in the background so its exit can be reported.
func (s *ExecSpawner) Spawn(ctx context.Context, d Descriptor, onExit func(Exit)) (int, error) {
	log := logging.FromContext(ctx)

	// Not CommandContext: simulators must outlive the launcher.
	cmd := exec.Command(s.JavaBin, d.Args(s.Jar)...)
	cmd.Dir = s.Dir
	detach(cmd)

	closeOut, err := s.wireOutput(cmd, d)
	if err != nil {
		return 0, err
	}
	if err := cmd.Start(); err != nil {
		closeOut()
		return 0, fmt.Errorf("start simulator for sensor %s: %w", d.SensorID, err)
	}
	pid := cmd.Process.Pid
	log.Debug("simulator started", "sensor_id", d.SensorID, "pid", pid)

	go func() {
		werr := cmd.Wait()
		closeOut()
		ex := Exit{PID: pid, Code: exitCode(werr), At: time.Now()}
		var exitErr *exec.ExitError
		if werr != nil && !errors.As(werr, &exitErr) {
			ex.Err = werr
		}
		if onExit != nil {
			onExit(ex)
		}
	}()
	return pid, nil
}

func (s *ExecSpawner) wireOutput(cmd *exec.Cmd, d Descriptor) (func(), error) {
	if s.OutputDir != "" {
		if err := os.MkdirAll(s.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("create process output dir: %w", err)
		}
		f, err := os.Create(filepath.Join(s.OutputDir, d.LogFileName+".out"))
		if err != nil {
			return nil, fmt.Errorf("create process output file: %w", err)
		}
		cmd.Stdout = f
		cmd.Stderr = f
		return func() { f.Close() }, nil
	}
	if s.Discard {
		return func() {}, nil
	}
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	return func() {}, nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
