package main

import (
	"fmt"
	"io"
	"os"

	"streamteam-launcher/internal/launch"
)

// newWriters sets up the launch writer from the output mode, env vars and the
// optional log file. The sink is non-nil in TUI mode. cleanup closes files
// and the TUI.
func newWriters(out io.Writer, output, logFile string) (launch.LaunchWriter, sampleSink, func(), error) {
	var closers []io.Closer
	cleanup := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	var (
		base launch.LaunchWriter
		sink sampleSink
	)
	switch output {
	case outputText, "":
		base = launch.NewStdoutWriter(out)
	case outputJSON:
		base = launch.NewJSONStdoutWriter(out)
	case outputTUI:
		tw := launch.NewTUIWriter()
		closers = append(closers, tw)
		base, sink = tw, tw
	default:
		return nil, nil, nil, fmt.Errorf("unknown output %q, want text, json or tui", output)
	}

	ws := []launch.LaunchWriter{base}
	if logFile != "" {
		fw, err := launch.NewFileWriter(logFile, logFile+".state", logFile+".run")
		if err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		closers = append(closers, fw)
		ws = append(ws, fw)
	}
	if endpoint := os.Getenv("GREPTIMEDB_ENDPOINT"); endpoint != "" {
		database := os.Getenv("GREPTIMEDB_DATABASE")
		if database == "" {
			database = "public"
		}
		gw, err := launch.NewGreptimeDBWriter(endpoint, database)
		if err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		ws = append(ws, gw)
	}
	if len(ws) == 1 {
		return base, sink, cleanup, nil
	}
	return launch.NewMultiWriterFrom(ws...), sink, cleanup, nil
}
