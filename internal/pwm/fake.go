package pwm

import "sync"

// FakeWriter records written levels for test assertions.
type FakeWriter struct {
	mu sync.Mutex

	// Levels contains every level written, in order.
	Levels []int

	// WriteError, if set, will be returned by Write (nothing is recorded).
	WriteError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeWriter creates a FakeWriter for testing.
func NewFakeWriter() *FakeWriter {
	return &FakeWriter{}
}

// Write records the level.
func (f *FakeWriter) Write(level int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteError != nil {
		return f.WriteError
	}
	if err := checkLevel(level); err != nil {
		return err
	}
	f.Levels = append(f.Levels, level)
	return nil
}

// Last returns the most recent level and whether anything was written.
func (f *FakeWriter) Last() (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Levels) == 0 {
		return 0, false
	}
	return f.Levels[len(f.Levels)-1], true
}

// Written returns a copy of the recorded levels.
func (f *FakeWriter) Written() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.Levels...)
}

// Close marks the writer as closed.
func (f *FakeWriter) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
