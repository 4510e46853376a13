package adc

import "sync"

// FakeReader returns a settable raw value.
type FakeReader struct {
	mu    sync.Mutex
	value int
	err   error
}

// NewFakeReader creates a FakeReader returning v.
func NewFakeReader(v int) *FakeReader {
	return &FakeReader{value: v}
}

// Set changes the value returned by Read.
func (f *FakeReader) Set(v int) {
	f.mu.Lock()
	f.value = v
	f.mu.Unlock()
}

// SetError makes Read fail with err (nil clears it).
func (f *FakeReader) SetError(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// Read returns the current value.
func (f *FakeReader) Read() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return f.value, nil
}
