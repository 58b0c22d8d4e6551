package launch

import (
	"encoding/json"
	"os"
	"sync"

	"streamteam-launcher/internal/event"
)

// FileWriter writes launch, state and run rows to JSONL files. The launch file
// doubles as the manifest read by relaunch.
type FileWriter struct {
	mu         sync.Mutex
	launchFile *os.File
	stateFile  *os.File
	runFile    *os.File
	launchEnc  *json.Encoder
	stateEnc   *json.Encoder
	runEnc     *json.Encoder
}

// NewFileWriter creates a FileWriter. statePath or runPath may be empty to skip those logs.
func NewFileWriter(launchPath, statePath, runPath string) (*FileWriter, error) {
	lf, err := os.Create(launchPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{launchFile: lf, launchEnc: json.NewEncoder(lf)}
	if statePath != "" {
		sf, err := os.Create(statePath)
		if err != nil {
			lf.Close()
			return nil, err
		}
		fw.stateFile = sf
		fw.stateEnc = json.NewEncoder(sf)
	}
	if runPath != "" {
		rf, err := os.Create(runPath)
		if err != nil {
			if fw.stateFile != nil {
				fw.stateFile.Close()
			}
			lf.Close()
			return nil, err
		}
		fw.runFile = rf
		fw.runEnc = json.NewEncoder(rf)
	}
	return fw, nil
}

// Write logs a single launch row.
func (f *FileWriter) Write(row event.LaunchRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.launchEnc.Encode(row)
}

// WriteBatch logs multiple launch rows.
func (f *FileWriter) WriteBatch(rows []event.LaunchRow) error {
	for _, r := range rows {
		if err := f.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteState logs a process state row, if enabled.
func (f *FileWriter) WriteState(row event.ProcessStateRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stateEnc == nil {
		return nil
	}
	return f.stateEnc.Encode(row)
}

// WriteRun logs a run row, if enabled.
func (f *FileWriter) WriteRun(row event.RunRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.runEnc == nil {
		return nil
	}
	return f.runEnc.Encode(row)
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var err error
	for _, file := range []*os.File{f.launchFile, f.stateFile, f.runFile} {
		if file == nil {
			continue
		}
		if e := file.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
