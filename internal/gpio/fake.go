package gpio

import (
	"errors"
	"sync"
)

// FakeReader is a test double that returns scripted encoder levels.
// It is safe for concurrent use so it can sit behind the sampling goroutine.
type FakeReader struct {
	mu sync.Mutex

	// Levels contains scripted levels to return.
	// Each call to Read() consumes the next level.
	Levels []bool

	index int

	// Reads counts calls to Read.
	Reads int

	// Closed tracks if Close was called.
	Closed bool

	// ReadError, if set, will be returned by Read().
	ReadError error
}

// NewFakeReader creates a FakeReader with the given levels.
func NewFakeReader(levels []bool) *FakeReader {
	return &FakeReader{Levels: levels}
}

// Square returns a square wave of the given number of full periods, each
// level held for hold samples, starting low.
func Square(periods, hold int) []bool {
	out := make([]bool, 0, periods*hold*2)
	for p := 0; p < periods; p++ {
		for i := 0; i < hold; i++ {
			out = append(out, false)
		}
		for i := 0; i < hold; i++ {
			out = append(out, true)
		}
	}
	return out
}

// Read returns the next scripted level.
// If levels are exhausted, returns the last level repeatedly.
func (f *FakeReader) Read() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Reads++
	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Levels) == 0 {
		return false, errors.New("no levels configured")
	}

	level := f.Levels[f.index]
	if f.index < len(f.Levels)-1 {
		f.index++
	}

	return level, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Reset resets the reader to the beginning of levels.
func (f *FakeReader) Reset() {
	f.mu.Lock()
	f.index = 0
	f.Reads = 0
	f.Closed = false
	f.mu.Unlock()
}
