package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"streamteam-launcher/internal/event"
	"streamteam-launcher/internal/launch"
)

func TestHandleProcesses(t *testing.T) {
	table := launch.NewProcessTable()
	s1 := table.Add("S1", true)
	table.MarkSpawned(s1, 4242, time.Unix(0, 0))
	s2 := table.Add("S2", false)
	table.MarkFailed(s2, errors.New("no java"), time.Unix(0, 0))
	server := NewServer(table)

	w := httptest.NewRecorder()
	server.routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/processes", nil))

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status OK, got %v", resp.StatusCode)
	}
	var got []launch.ProcessSample
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 processes, got %d", len(got))
	}
	if got[0].SensorID != "S1" || !got[0].Announcer || got[0].PID != 4242 {
		t.Errorf("unexpected first process: %+v", got[0])
	}
	if got[1].State != event.StateFailed || got[1].Error != "no java" {
		t.Errorf("unexpected second process: %+v", got[1])
	}
}

func TestHandleRun(t *testing.T) {
	server := NewServer(launch.NewProcessTable())

	w := httptest.NewRecorder()
	server.handleRun(w, httptest.NewRequest(http.MethodGet, "/run", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before the run is known, got %d", w.Code)
	}

	server.SetRun(event.RunRow{MatchName: "game1", MatchID: 42, Phase: event.PhaseStarted, SensorCount: 3})
	w = httptest.NewRecorder()
	server.handleRun(w, httptest.NewRequest(http.MethodGet, "/run", nil))
	var run event.RunRow
	if err := json.NewDecoder(w.Body).Decode(&run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run.MatchID != 42 || run.SensorCount != 3 {
		t.Errorf("unexpected run: %+v", run)
	}
}

func TestHandleHealthz(t *testing.T) {
	table := launch.NewProcessTable()
	table.Add("S1", true)
	server := NewServer(table)

	w := httptest.NewRecorder()
	server.routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var body struct {
		Status  string `json:"status"`
		Running int    `json:"running"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Running != 1 {
		t.Errorf("unexpected health: %+v", body)
	}
}
