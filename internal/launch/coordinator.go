// Coordinator starting one simulator process per sensor of a match
package launch

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"streamteam-launcher/internal/config"
	"streamteam-launcher/internal/event"
	"streamteam-launcher/internal/logging"
	"streamteam-launcher/internal/match"
)

// Result describes one completed launch pass.
type Result struct {
	Match              match.Match
	StartTimeMs        int64
	ClasspathSeparator string
	Descriptors        []Descriptor
	Run                event.RunRow
}

// Coordinator plans and issues the launches of a match. Launches never wait
// for the simulators; exits are reported asynchronously to the process table
// and the writer.
type Coordinator struct {
	cfg     *config.LauncherConfig
	layout  match.Layout
	planner Planner
	spawner Spawner
	writer  LaunchWriter
	table   *ProcessTable

	// DryRun plans descriptors without spawning anything.
	DryRun bool

	now      func() time.Time
	idSource io.Reader

	// stateMu guards detached against state rows in flight.
	stateMu  sync.RWMutex
	detached bool
}

// NewCoordinator wires a coordinator. writer may also implement RunWriter and
// StateWriter to receive run and process state rows.
func NewCoordinator(cfg *config.LauncherConfig, spawner Spawner, writer LaunchWriter, table *ProcessTable) *Coordinator {
	layout := match.Layout{DataDir: cfg.DataDir, ConfigFile: cfg.ConfigFile, SidsFile: cfg.SidsFile}
	if table == nil {
		table = NewProcessTable()
	}
	return &Coordinator{
		cfg:     cfg,
		layout:  layout,
		planner: Planner{Layout: layout, LogNamePrefix: cfg.LogNamePrefix, LogNameSuffix: cfg.LogNameSuffix},
		spawner: spawner,
		writer:  writer,
		table:   table,
		now:     time.Now,
	}
}

// Table returns the process table updated by this coordinator.
func (c *Coordinator) Table() *ProcessTable { return c.table }

// Detach stops sending process state rows to the writer. It returns once no
// state row is being written, so the writer can be closed afterwards. Exits
// are still recorded in the process table.
func (c *Coordinator) Detach() {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.detached = true
}

// Launch loads the sensor ids of the named match, draws a fresh match id and
// starts one simulator per sensor id. Only a failure to load the sensor ids or
// to draw the id is returned; spawn failures are recorded and skipped.
func (c *Coordinator) Launch(ctx context.Context, name string) (*Result, error) {
	sids, err := match.LoadSensorIDs(c.layout.SidsPath(name))
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", name, err)
	}
	m, err := match.New(name, c.idSource, c.cfg.MatchIDRange)
	if err != nil {
		return nil, err
	}
	return c.launch(ctx, m, sids), nil
}

// Relaunch starts the given sensors again under an existing match identity
// with a fresh start time.
func (c *Coordinator) Relaunch(ctx context.Context, m match.Match, sids []string) *Result {
	return c.launch(ctx, m, sids)
}

func (c *Coordinator) launch(ctx context.Context, m match.Match, sids []string) *Result {
	log := logging.FromContext(ctx).With("match", m.Name, "match_id", m.ID)

	start := StartTime(c.now(), c.cfg.LeadTime)
	sep := HostClasspathSeparator()
	log.Debug("computed simulation start", "start_time_ms", start, "lead_time", c.cfg.LeadTime, "classpath_separator", sep)

	descs := c.planner.Plan(m, sids, start)
	run := event.RunRow{
		MatchName:          m.Name,
		MatchID:            m.ID,
		Phase:              event.PhaseStarting,
		StartTimeMs:        start,
		SensorCount:        len(descs),
		ClasspathSeparator: sep,
		DryRun:             c.DryRun,
		Timestamp:          c.now().UTC(),
	}
	c.writeRun(ctx, run)

	var planned []event.LaunchRow
	for _, d := range descs {
		row := event.LaunchRow{
			MatchName:   m.Name,
			MatchID:     m.ID,
			SensorID:    d.SensorID,
			Announcer:   d.Announcer,
			LogFileName: d.LogFileName,
			ConfigFile:  d.ConfigFile,
			DataFile:    d.DataFile,
			StartTimeMs: d.StartTimeMs,
			Command:     d.Command(c.cfg.JavaBin, c.cfg.Jar),
			Timestamp:   c.now().UTC(),
		}
		if c.DryRun {
			row.Status = event.StatusPlanned
			planned = append(planned, row)
			continue
		}
		c.spawn(ctx, m, d, &row)
		c.writeLaunch(ctx, row)
	}
	if len(planned) > 0 {
		c.writeBatch(ctx, planned)
	}

	run.Phase = event.PhaseStarted
	run.Timestamp = c.now().UTC()
	c.writeRun(ctx, run)
	log.Info("launch pass complete", "sensors", len(descs), "dry_run", c.DryRun)

	return &Result{Match: m, StartTimeMs: start, ClasspathSeparator: sep, Descriptors: descs, Run: run}
}

func (c *Coordinator) spawn(ctx context.Context, m match.Match, d Descriptor, row *event.LaunchRow) {
	log := logging.FromContext(ctx)
	slot := c.table.Add(d.SensorID, d.Announcer)
	pid, err := c.spawner.Spawn(ctx, d, func(ex Exit) {
		e := c.table.MarkExited(slot, ex)
		c.writeState(ctx, stateRow(m, e))
	})
	if err != nil {
		log.Error("spawn failed", "sensor_id", d.SensorID, "err", err)
		e := c.table.MarkFailed(slot, err, c.now().UTC())
		row.Status = event.StatusSpawnFailed
		row.Error = err.Error()
		c.writeState(ctx, stateRow(m, e))
		return
	}
	e, moved := c.table.MarkSpawned(slot, pid, c.now().UTC())
	row.Status = event.StatusSpawned
	row.PID = pid
	if moved {
		// An early exit was already reported by onExit.
		c.writeState(ctx, stateRow(m, e))
	}
}

func stateRow(m match.Match, e ProcessEntry) event.ProcessStateRow {
	ts := e.SpawnedAt
	if !e.ExitedAt.IsZero() {
		ts = e.ExitedAt
	}
	return event.ProcessStateRow{
		MatchID:   m.ID,
		SensorID:  e.SensorID,
		PID:       e.PID,
		State:     e.State,
		ExitCode:  e.ExitCode,
		Error:     e.Error,
		Timestamp: ts.UTC(),
	}
}

func (c *Coordinator) writeLaunch(ctx context.Context, row event.LaunchRow) {
	if c.writer == nil {
		return
	}
	if err := c.writer.Write(row); err != nil {
		logging.FromContext(ctx).Error("launch write failed", "sensor_id", row.SensorID, "err", err)
	}
}

func (c *Coordinator) writeBatch(ctx context.Context, rows []event.LaunchRow) {
	if c.writer == nil {
		return
	}
	if bw, ok := c.writer.(batchWriter); ok {
		if err := bw.WriteBatch(rows); err != nil {
			logging.FromContext(ctx).Error("launch batch write failed", "err", err)
		}
		return
	}
	for _, r := range rows {
		c.writeLaunch(ctx, r)
	}
}

func (c *Coordinator) writeRun(ctx context.Context, row event.RunRow) {
	rw, ok := c.writer.(RunWriter)
	if !ok {
		return
	}
	if err := rw.WriteRun(row); err != nil {
		logging.FromContext(ctx).Error("run write failed", "phase", row.Phase, "err", err)
	}
}

func (c *Coordinator) writeState(ctx context.Context, row event.ProcessStateRow) {
	sw, ok := c.writer.(StateWriter)
	if !ok {
		return
	}
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	if c.detached {
		return
	}
	if err := sw.WriteState(row); err != nil {
		logging.FromContext(ctx).Error("state write failed", "sensor_id", row.SensorID, "err", err)
	}
}
