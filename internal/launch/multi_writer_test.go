package launch

import (
	"errors"
	"sync"
	"testing"

	"streamteam-launcher/internal/event"
)

// recordWriter collects every row it receives.
type recordWriter struct {
	mu      sync.Mutex
	launch  []event.LaunchRow
	states  []event.ProcessStateRow
	runs    []event.RunRow
	batches int
	err     error
}

func (r *recordWriter) Write(row event.LaunchRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.launch = append(r.launch, row)
	return r.err
}

func (r *recordWriter) WriteBatch(rows []event.LaunchRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches++
	r.launch = append(r.launch, rows...)
	return r.err
}

func (r *recordWriter) WriteState(row event.ProcessStateRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, row)
	return r.err
}

func (r *recordWriter) WriteRun(row event.RunRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, row)
	return r.err
}

func (r *recordWriter) statesFor(sid string) []event.ProcessStateRow {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.ProcessStateRow
	for _, s := range r.states {
		if s.SensorID == sid {
			out = append(out, s)
		}
	}
	return out
}

// launchOnly implements LaunchWriter and nothing else.
type launchOnly struct{ rows []event.LaunchRow }

func (l *launchOnly) Write(row event.LaunchRow) error {
	l.rows = append(l.rows, row)
	return nil
}

func TestMultiWriterFromRegistersCapabilities(t *testing.T) {
	full := &recordWriter{}
	plain := &launchOnly{}
	mw := NewMultiWriterFrom(full, nil, plain)

	if err := mw.WriteRun(event.RunRow{MatchID: 1}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := mw.WriteState(event.ProcessStateRow{SensorID: "S1"}); err != nil {
		t.Fatalf("state: %v", err)
	}
	rows := []event.LaunchRow{{SensorID: "S1"}, {SensorID: "S2"}}
	if err := mw.WriteBatch(rows); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(full.runs) != 1 || len(full.states) != 1 {
		t.Fatalf("full writer got runs=%d states=%d", len(full.runs), len(full.states))
	}
	if full.batches != 1 || len(full.launch) != 2 {
		t.Fatalf("expected one batch of 2 rows, got batches=%d rows=%d", full.batches, len(full.launch))
	}
	if len(plain.rows) != 2 {
		t.Fatalf("plain writer got %d rows, want 2", len(plain.rows))
	}
}

func TestMultiWriterStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	first := &recordWriter{err: boom}
	second := &recordWriter{}
	mw := NewMultiWriter([]LaunchWriter{first, second}, nil, nil)
	if err := mw.Write(event.LaunchRow{SensorID: "S1"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if len(second.launch) != 0 {
		t.Fatalf("second writer should not be reached")
	}
}
