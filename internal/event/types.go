// Launch event rows with greptime tags
package event

import (
	"os"
	"time"
)

// Run phases. A run row is emitted before the first launch and after the last.
const (
	PhaseStarting = "starting"
	PhaseStarted  = "started"
)

// Launch statuses.
const (
	StatusPlanned     = "planned"
	StatusSpawned     = "spawned"
	StatusSpawnFailed = "spawn_failed"
)

// Process states.
const (
	StatePending = "pending"
	StateSpawned = "spawned"
	StateFailed  = "failed"
	StateExited  = "exited"
)

// RunRow summarises one launcher invocation.
type RunRow struct {
	MatchName          string    `json:"match_name"`          // TAG
	MatchID            int64     `json:"match_id"`            // TAG
	Phase              string    `json:"phase"`               // TAG
	StartTimeMs        int64     `json:"start_time_ms"`       // FIELD
	SensorCount        int       `json:"sensor_count"`        // FIELD
	ClasspathSeparator string    `json:"classpath_separator"` // FIELD
	DryRun             bool      `json:"dry_run"`             // FIELD
	Timestamp          time.Time `json:"ts"`                  // TIME INDEX
}

// LaunchRow records the launch of one sensor simulator.
type LaunchRow struct {
	MatchName   string    `json:"match_name"`      // TAG
	MatchID     int64     `json:"match_id"`        // TAG
	SensorID    string    `json:"sensor_id"`       // TAG
	Announcer   bool      `json:"announcer"`       // FIELD
	PID         int       `json:"pid"`             // FIELD
	Status      string    `json:"status"`          // FIELD
	Error       string    `json:"error,omitempty"` // FIELD
	LogFileName string    `json:"log_file_name"`   // FIELD
	ConfigFile  string    `json:"config_file"`     // FIELD
	DataFile    string    `json:"data_file"`       // FIELD
	StartTimeMs int64     `json:"start_time_ms"`   // FIELD
	Command     []string  `json:"command"`         // JSON
	Timestamp   time.Time `json:"ts"`              // TIME INDEX
}

// ProcessStateRow records a lifecycle change of a spawned simulator.
type ProcessStateRow struct {
	MatchID   int64     `json:"match_id"`        // TAG
	SensorID  string    `json:"sensor_id"`       // TAG
	PID       int       `json:"pid"`             // FIELD
	State     string    `json:"state"`           // FIELD
	ExitCode  int       `json:"exit_code"`       // FIELD
	Error     string    `json:"error,omitempty"` // FIELD
	Timestamp time.Time `json:"ts"`              // TIME INDEX
}

func tableName(env, fallback string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	return fallback
}

// Table names used when writing to GreptimeDB. They can be overridden with the
// LAUNCH_RUN_TABLE, LAUNCH_TABLE and PROCESS_STATE_TABLE environment variables.
var (
	RunTableName          = tableName("LAUNCH_RUN_TABLE", "simulation_runs")
	LaunchTableName       = tableName("LAUNCH_TABLE", "sensor_launches")
	ProcessStateTableName = tableName("PROCESS_STATE_TABLE", "sensor_process_states")
)

func (RunRow) TableName() string          { return RunTableName }
func (LaunchRow) TableName() string       { return LaunchTableName }
func (ProcessStateRow) TableName() string { return ProcessStateTableName }
