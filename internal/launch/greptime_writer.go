package launch

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"streamteam-launcher/internal/event"
)

const (
	defaultGreptimePort  = 4001
	greptimeWriteTimeout = 5 * time.Second
)

// greptimeClient is the subset of *greptime.Client used by the writer.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes run, launch and process state rows to GreptimeDB via the ingester client
type GreptimeDBWriter struct {
	client      greptimeClient
	runTable    string
	launchTable string
	stateTable  string
}

// NewGreptimeDBWriter connects to endpoint ("host" or "host:port") and uses database.
func NewGreptimeDBWriter(endpoint, database string) (*GreptimeDBWriter, error) {
	host, port, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	return &GreptimeDBWriter{
		client:      client,
		runTable:    event.RunTableName,
		launchTable: event.LaunchTableName,
		stateTable:  event.ProcessStateTableName,
	}, nil
}

func splitEndpoint(endpoint string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		// No port given.
		return endpoint, defaultGreptimePort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid greptime port %q: %w", portStr, err)
	}
	return host, port, nil
}

func (w *GreptimeDBWriter) write(name string, tbl *table.Table) error {
	ctx, cancel := context.WithTimeout(context.Background(), greptimeWriteTimeout)
	defer cancel()
	if _, err := w.client.Write(ctx, tbl); err != nil {
		return fmt.Errorf("greptime write %s: %w", name, err)
	}
	return nil
}

// Write inserts a single launch row.
func (w *GreptimeDBWriter) Write(row event.LaunchRow) error {
	return w.WriteBatch([]event.LaunchRow{row})
}

// WriteBatch inserts multiple launch rows.
func (w *GreptimeDBWriter) WriteBatch(rows []event.LaunchRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.launchTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("match_id", types.INT64)
	tbl.AddTagColumn("sensor_id", types.STRING)
	tbl.AddFieldColumn("match_name", types.STRING)
	tbl.AddFieldColumn("announcer", types.BOOLEAN)
	tbl.AddFieldColumn("pid", types.INT64)
	tbl.AddFieldColumn("status", types.STRING)
	tbl.AddFieldColumn("error", types.STRING)
	tbl.AddFieldColumn("log_file_name", types.STRING)
	tbl.AddFieldColumn("data_file", types.STRING)
	tbl.AddFieldColumn("start_time_ms", types.INT64)
	tbl.AddFieldColumn("command", types.JSON)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	for _, r := range rows {
		cmd, err := json.Marshal(r.Command)
		if err != nil {
			return err
		}
		if err := tbl.AddRow(r.MatchID, r.SensorID, r.MatchName, r.Announcer, int64(r.PID), r.Status, r.Error,
			r.LogFileName, r.DataFile, r.StartTimeMs, string(cmd), r.Timestamp); err != nil {
			return err
		}
	}
	return w.write(w.launchTable, tbl)
}

// WriteState inserts a process state row.
func (w *GreptimeDBWriter) WriteState(row event.ProcessStateRow) error {
	tbl, err := table.New(w.stateTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("match_id", types.INT64)
	tbl.AddTagColumn("sensor_id", types.STRING)
	tbl.AddFieldColumn("pid", types.INT64)
	tbl.AddFieldColumn("state", types.STRING)
	tbl.AddFieldColumn("exit_code", types.INT64)
	tbl.AddFieldColumn("error", types.STRING)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)
	if err := tbl.AddRow(row.MatchID, row.SensorID, int64(row.PID), row.State, int64(row.ExitCode), row.Error, row.Timestamp); err != nil {
		return err
	}
	return w.write(w.stateTable, tbl)
}

// WriteRun inserts a run row.
func (w *GreptimeDBWriter) WriteRun(row event.RunRow) error {
	tbl, err := table.New(w.runTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("match_id", types.INT64)
	tbl.AddTagColumn("phase", types.STRING)
	tbl.AddFieldColumn("match_name", types.STRING)
	tbl.AddFieldColumn("start_time_ms", types.INT64)
	tbl.AddFieldColumn("sensor_count", types.INT64)
	tbl.AddFieldColumn("classpath_separator", types.STRING)
	tbl.AddFieldColumn("dry_run", types.BOOLEAN)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)
	if err := tbl.AddRow(row.MatchID, row.Phase, row.MatchName, row.StartTimeMs, int64(row.SensorCount),
		row.ClasspathSeparator, row.DryRun, row.Timestamp); err != nil {
		return err
	}
	return w.write(w.runTable, tbl)
}
