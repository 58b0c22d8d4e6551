package launch

import "streamteam-launcher/internal/event"

// MultiWriter fan-outs launch, state and run rows to multiple writers.
type MultiWriter struct {
	launchWriters []LaunchWriter
	stateWriters  []StateWriter
	runWriters    []RunWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(lws []LaunchWriter, sws []StateWriter, rws []RunWriter) *MultiWriter {
	return &MultiWriter{launchWriters: lws, stateWriters: sws, runWriters: rws}
}

// NewMultiWriterFrom builds a MultiWriter from launch writers, registering
// each one as state or run writer when it implements those interfaces.
func NewMultiWriterFrom(ws ...LaunchWriter) *MultiWriter {
	mw := &MultiWriter{}
	for _, w := range ws {
		if w == nil {
			continue
		}
		mw.launchWriters = append(mw.launchWriters, w)
		if sw, ok := w.(StateWriter); ok {
			mw.stateWriters = append(mw.stateWriters, sw)
		}
		if rw, ok := w.(RunWriter); ok {
			mw.runWriters = append(mw.runWriters, rw)
		}
	}
	return mw
}

// Write sends a launch row to all writers.
func (mw *MultiWriter) Write(row event.LaunchRow) error {
	for _, w := range mw.launchWriters {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteBatch sends multiple launch rows to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(rows []event.LaunchRow) error {
	for _, w := range mw.launchWriters {
		if bw, ok := w.(batchWriter); ok {
			if err := bw.WriteBatch(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.Write(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteState sends a process state row to all state writers.
func (mw *MultiWriter) WriteState(row event.ProcessStateRow) error {
	for _, w := range mw.stateWriters {
		if err := w.WriteState(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteRun sends a run row to all run writers.
func (mw *MultiWriter) WriteRun(row event.RunRow) error {
	for _, w := range mw.runWriters {
		if err := w.WriteRun(row); err != nil {
			return err
		}
	}
	return nil
}
