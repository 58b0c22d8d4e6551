package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"streamteam-launcher/internal/admin"
	"streamteam-launcher/internal/config"
	"streamteam-launcher/internal/launch"
	"streamteam-launcher/internal/logging"
)

const sampleInterval = 2 * time.Second

// newSpawner builds the spawner used for real launches. Tests replace it.
var newSpawner = func(cfg *config.LauncherConfig, output string) launch.Spawner {
	s := &launch.ExecSpawner{
		JavaBin:   cfg.JavaBin,
		Jar:       cfg.Jar,
		OutputDir: cfg.ProcessOutputDir,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}
	switch output {
	case outputJSON:
		// Keep stdout a clean JSON stream.
		s.Stdout = os.Stderr
	case outputTUI:
		s.Discard = true
	}
	return s
}

// session is the shared setup of launch and relaunch.
type session struct {
	ctx     context.Context
	cfg     *config.LauncherConfig
	coord   *launch.Coordinator
	sink    sampleSink
	cleanup func()
	stop    context.CancelFunc
}

func newSession(cmd *cobra.Command, opts *options) (*session, error) {
	level, err := logging.ParseLevel(opts.logLevel)
	if err != nil {
		return nil, err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	ctx = logging.NewContext(ctx, logging.New(level))

	cfg, err := config.Load(opts.configPath, opts.schemaPath)
	if err != nil {
		stop()
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	writer, sink, cleanup, err := newWriters(cmd.OutOrStdout(), opts.output, opts.logFile)
	if err != nil {
		stop()
		return nil, err
	}
	coord := launch.NewCoordinator(cfg, newSpawner(cfg, opts.output), writer, nil)
	coord.DryRun = opts.dryRun
	return &session{ctx: ctx, cfg: cfg, coord: coord, sink: sink, cleanup: cleanup, stop: stop}, nil
}

func (s *session) close() {
	// Reapers outlive the session without --wait.
	s.coord.Detach()
	s.cleanup()
	s.stop()
}

func runLaunch(cmd *cobra.Command, opts *options, name string) error {
	s, err := newSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.close()

	res, err := s.coord.Launch(s.ctx, name)
	if err != nil {
		return err
	}
	return s.supervise(opts, res)
}

// supervise keeps the launcher attached after the launch pass when --wait or
// the TUI asks for it. It returns once every simulator exited or on a signal.
// Simulator exit codes never turn into an error.
func (s *session) supervise(opts *options, res *launch.Result) error {
	if opts.dryRun || !(opts.wait || opts.output == outputTUI) {
		return nil
	}
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	log := logging.FromContext(ctx)
	table := s.coord.Table()

	if opts.adminAddr != "" {
		srv := admin.NewServer(table)
		srv.SetRun(res.Run)
		go func() {
			if err := srv.Start(ctx, opts.adminAddr); err != nil {
				log.Error("status server failed", "err", err)
			}
		}()
	}
	if s.sink != nil {
		go sampleLoop(ctx, table, s.sink)
	}

	log.Info("waiting for simulators", "running", table.Running())
	if err := table.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("launcher detached", "running", table.Running())
	return nil
}

// sampleSink receives periodic resource usage of the simulators.
type sampleSink interface {
	UpdateSamples([]launch.ProcessSample)
}

func sampleLoop(ctx context.Context, table *launch.ProcessTable, sink sampleSink) {
	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()
	sink.UpdateSamples(table.Sample())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sink.UpdateSamples(table.Sample())
		}
	}
}
