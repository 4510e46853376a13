// Package telemetry emits one record per control cycle to best-effort sinks.
package telemetry

import (
	"io"
	"strconv"
	"strings"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/sweeney/motor-regulator/internal/control"
)

// Sink receives every control cycle. Emit is called from the scheduler
// goroutine and must not block for long; failures are swallowed.
type Sink interface {
	Emit(c control.Cycle)
}

// FormatLine renders a cycle as comma-separated values:
// [seconds,]count,setpoint,scaled-action.
func FormatLine(c control.Cycle, timestamps bool) string {
	var b strings.Builder
	if timestamps {
		b.WriteString(strconv.FormatFloat(c.Elapsed.Seconds(), 'f', 4, 64))
		b.WriteByte(',')
	}
	b.WriteString(strconv.FormatFloat(float64(c.Count), 'f', 1, 64))
	b.WriteByte(',')
	b.WriteString(strconv.FormatFloat(c.Setpoint, 'f', -1, 64))
	b.WriteByte(',')
	b.WriteString(strconv.FormatFloat(c.ScaledAction(), 'f', 1, 64))
	return b.String()
}

// LineWriter writes CSV lines to a stream such as a UART or stdout.
// Nothing is buffered: a failed write drops the line.
type LineWriter struct {
	w          io.Writer
	timestamps bool
	logger     *zap.SugaredLogger
	dropped    atomic.Uint64
}

// NewLineWriter creates a LineWriter.
func NewLineWriter(w io.Writer, timestamps bool, logger *zap.SugaredLogger) *LineWriter {
	return &LineWriter{w: w, timestamps: timestamps, logger: logger}
}

// Emit implements Sink.
func (l *LineWriter) Emit(c control.Cycle) {
	if _, err := io.WriteString(l.w, FormatLine(c, l.timestamps)+"\n"); err != nil {
		if l.dropped.Inc() == 1 {
			l.logger.Warnw("telemetry: line dropped", "error", err)
		} else {
			l.logger.Debugw("telemetry: line dropped", "error", err)
		}
	}
}

// Dropped returns the number of lines that failed to write.
func (l *LineWriter) Dropped() uint64 {
	return l.dropped.Load()
}

// Fanout forwards each cycle to every sink in order.
type Fanout []Sink

// Emit implements Sink.
func (f Fanout) Emit(c control.Cycle) {
	for _, s := range f {
		s.Emit(c)
	}
}
