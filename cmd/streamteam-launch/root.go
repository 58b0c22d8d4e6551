package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Output modes of --output.
const (
	outputText = "text"
	outputJSON = "json"
	outputTUI  = "tui"
)

// options holds the flags shared by the root command and relaunch.
type options struct {
	configPath string
	schemaPath string
	dryRun     bool
	wait       bool
	output     string
	logFile    string
	adminAddr  string
	logLevel   string
}

// exactlyOneMatch accepts a single match name and nothing else.
func exactlyOneMatch(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return errors.New("required parameters: <match>")
	}
	return nil
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "streamteam-launch <match>",
		Short: "Start one sensor simulator per sensor of a match",
		Long: "streamteam-launch reads the sensor ids of a match, draws a match id and starts one\n" +
			"detached sensor simulator per sensor, all sharing a start time 40 seconds ahead.",
		Args:          exactlyOneMatch,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Subcommand names shadow match names; only help and relaunch are kept.
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLaunch(cmd, opts, args[0])
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Path to launcher configuration YAML (defaults apply when empty)")
	pf.StringVar(&opts.schemaPath, "schema", "", "Path to CUE schema overriding the embedded one")
	pf.BoolVar(&opts.dryRun, "dry-run", false, "Plan launches without starting any process")
	pf.BoolVar(&opts.wait, "wait", false, "Stay attached until every simulator has exited")
	pf.StringVarP(&opts.output, "output", "o", outputText, "Output format: text, json or tui")
	pf.StringVar(&opts.logFile, "log-file", "", "Path to export launch/state/run logs (JSONL)")
	pf.StringVar(&opts.adminAddr, "admin-addr", "", "Address of the status server, used with --wait (e.g. :8080)")
	pf.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error")

	cmd.AddCommand(newRelaunchCmd(opts))
	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
