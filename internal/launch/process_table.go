package launch

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"streamteam-launcher/internal/event"
)

// ProcessEntry is the tracked state of one simulator process.
type ProcessEntry struct {
	SensorID  string    `json:"sensor_id"`
	Announcer bool      `json:"announcer"`
	PID       int       `json:"pid"`
	State     string    `json:"state"`
	ExitCode  int       `json:"exit_code"`
	Error     string    `json:"error,omitempty"`
	SpawnedAt time.Time `json:"spawned_at"`
	ExitedAt  time.Time `json:"exited_at"`
}

// ProcessSample adds resource usage read from the OS to an entry.
type ProcessSample struct {
	ProcessEntry
	CPUPercent float64 `json:"cpu_percent"`
	RSSBytes   uint64  `json:"rss_bytes"`
}

// ProcessTable tracks spawned simulators. Entries are kept in launch order and
// looked up by sensor id.
type ProcessTable struct {
	mu      sync.Mutex
	entries []*ProcessEntry
	changed chan struct{}
}

// NewProcessTable returns an empty table.
func NewProcessTable() *ProcessTable {
	return &ProcessTable{changed: make(chan struct{})}
}

// Add registers a pending entry and returns its slot.
func (t *ProcessTable) Add(sid string, announcer bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, &ProcessEntry{SensorID: sid, Announcer: announcer, State: event.StatePending})
	t.notify()
	return len(t.entries) - 1
}

// MarkSpawned records a started process and reports whether the entry moved
// from pending to spawned. A process that already exited keeps its exited
// state and false is returned.
func (t *ProcessTable) MarkSpawned(slot, pid int, at time.Time) (ProcessEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entries[slot]
	e.PID = pid
	e.SpawnedAt = at
	moved := e.State == event.StatePending
	if moved {
		e.State = event.StateSpawned
	}
	t.notify()
	return *e, moved
}

// MarkFailed records a process that could not be started.
func (t *ProcessTable) MarkFailed(slot int, err error, at time.Time) ProcessEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entries[slot]
	e.State = event.StateFailed
	e.ExitCode = -1
	e.ExitedAt = at
	if err != nil {
		e.Error = err.Error()
	}
	t.notify()
	return *e
}

// MarkExited records the exit of a spawned process.
func (t *ProcessTable) MarkExited(slot int, ex Exit) ProcessEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entries[slot]
	e.State = event.StateExited
	e.ExitCode = ex.Code
	e.ExitedAt = ex.At
	if ex.Err != nil {
		e.Error = ex.Err.Error()
	}
	if ex.PID != 0 {
		e.PID = ex.PID
	}
	t.notify()
	return *e
}

// Get returns the first entry for sid.
func (t *ProcessTable) Get(sid string) (ProcessEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		if e.SensorID == sid {
			return *e, true
		}
	}
	return ProcessEntry{}, false
}

// Snapshot returns a copy of all entries in launch order.
func (t *ProcessTable) Snapshot() []ProcessEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ProcessEntry, len(t.entries))
	for i, e := range t.entries {
		out[i] = *e
	}
	return out
}

// Running counts entries that are pending or spawned.
func (t *ProcessTable) Running() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running()
}

func (t *ProcessTable) running() int {
	n := 0
	for _, e := range t.entries {
		if e.State == event.StatePending || e.State == event.StateSpawned {
			n++
		}
	}
	return n
}

// Wait blocks until no entry is pending or spawned, or ctx is done.
func (t *ProcessTable) Wait(ctx context.Context) error {
	for {
		t.mu.Lock()
		if t.running() == 0 {
			t.mu.Unlock()
			return nil
		}
		ch := t.changed
		t.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// notify wakes every Wait. Callers hold t.mu.
func (t *ProcessTable) notify() {
	close(t.changed)
	t.changed = make(chan struct{})
}

// Sample reads CPU and resident memory of every spawned process. Processes
// that vanished or cannot be inspected are reported with zero usage.
func (t *ProcessTable) Sample() []ProcessSample {
	entries := t.Snapshot()
	out := make([]ProcessSample, 0, len(entries))
	for _, e := range entries {
		s := ProcessSample{ProcessEntry: e}
		if e.State == event.StateSpawned && e.PID > 0 {
			if p, err := process.NewProcess(int32(e.PID)); err == nil {
				if cpu, err := p.CPUPercent(); err == nil {
					s.CPUPercent = cpu
				}
				if mem, err := p.MemoryInfo(); err == nil && mem != nil {
					s.RSSBytes = mem.RSS
				}
			}
		}
		out = append(out, s)
	}
	return out
}
