package launch

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"streamteam-launcher/internal/event"
)

func TestJSONStdoutWriterKinds(t *testing.T) {
	buf := &bytes.Buffer{}
	w := &JSONStdoutWriter{out: buf}
	if err := w.WriteRun(event.RunRow{MatchID: 7, Phase: event.PhaseStarting}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := w.Write(event.LaunchRow{MatchID: 7, SensorID: "S1", Command: []string{"java", "-jar", "a.jar"}}); err != nil {
		t.Fatalf("launch: %v", err)
	}
	if err := w.WriteState(event.ProcessStateRow{MatchID: 7, SensorID: "S1", State: event.StateExited}); err != nil {
		t.Fatalf("state: %v", err)
	}

	var kinds []string
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var msg struct {
			Kind string          `json:"kind"`
			Row  json.RawMessage `json:"row"`
		}
		if err := json.Unmarshal(sc.Bytes(), &msg); err != nil {
			t.Fatalf("decode %q: %v", sc.Text(), err)
		}
		kinds = append(kinds, msg.Kind)
		if msg.Kind == "launch" {
			var row event.LaunchRow
			if err := json.Unmarshal(msg.Row, &row); err != nil {
				t.Fatalf("decode launch row: %v", err)
			}
			if row.SensorID != "S1" || len(row.Command) != 3 {
				t.Fatalf("unexpected launch row: %+v", row)
			}
		}
	}
	want := []string{"run", "launch", "state"}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("kinds = %v, want %v", kinds, want)
		}
	}
}
