package telemetry

import (
	"sync"

	"github.com/sweeney/motor-regulator/internal/control"
)

// Recorder is a Sink that records cycles for test assertions.
type Recorder struct {
	mu     sync.Mutex
	cycles []control.Cycle
	notify chan control.Cycle
}

// NewRecorder creates a Recorder. Cycles are also offered, without
// blocking, on the channel returned by C.
func NewRecorder() *Recorder {
	return &Recorder{notify: make(chan control.Cycle, 64)}
}

// Emit implements Sink.
func (r *Recorder) Emit(c control.Cycle) {
	r.mu.Lock()
	r.cycles = append(r.cycles, c)
	r.mu.Unlock()
	select {
	case r.notify <- c:
	default:
	}
}

// C delivers emitted cycles.
func (r *Recorder) C() <-chan control.Cycle {
	return r.notify
}

// Cycles returns a copy of the recorded cycles.
func (r *Recorder) Cycles() []control.Cycle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]control.Cycle(nil), r.cycles...)
}
