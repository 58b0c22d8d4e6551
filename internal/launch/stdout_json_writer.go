package launch

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"streamteam-launcher/internal/event"
)

// JSONStdoutWriter prints every row as one JSON object per line.
type JSONStdoutWriter struct {
	out io.Writer
	mu  sync.Mutex
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to out, or to
// os.Stdout when out is nil.
func NewJSONStdoutWriter(out io.Writer) *JSONStdoutWriter {
	if out == nil {
		out = os.Stdout
	}
	return &JSONStdoutWriter{out: out}
}

func (w *JSONStdoutWriter) emit(kind string, v any) error {
	data, err := json.Marshal(struct {
		Kind string `json:"kind"`
		Row  any    `json:"row"`
	}{kind, v})
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// Write outputs a launch row in JSON format.
func (w *JSONStdoutWriter) Write(row event.LaunchRow) error {
	return w.emit("launch", row)
}

// WriteBatch outputs multiple launch rows in JSON format.
func (w *JSONStdoutWriter) WriteBatch(rows []event.LaunchRow) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteRun outputs a run row in JSON format.
func (w *JSONStdoutWriter) WriteRun(row event.RunRow) error {
	return w.emit("run", row)
}

// WriteState outputs a process state row in JSON format.
func (w *JSONStdoutWriter) WriteState(row event.ProcessStateRow) error {
	return w.emit("state", row)
}
