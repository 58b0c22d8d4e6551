package launch

import "streamteam-launcher/internal/event"

// LaunchWriter is an interface to support different output writers.
type LaunchWriter interface {
	Write(event.LaunchRow) error
}

// RunWriter handles run summary rows.
type RunWriter interface {
	WriteRun(event.RunRow) error
}

// StateWriter handles process lifecycle rows.
type StateWriter interface {
	WriteState(event.ProcessStateRow) error
}

// Optional: Writers can also support batch mode
type batchWriter interface {
	WriteBatch([]event.LaunchRow) error
}
