package setpoint

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sweeney/motor-regulator/internal/control"
)

// ParseLine parses one serial input line as a base-10 integer setpoint.
// ok is false for anything unparsable or outside
// [SerialSetpointMin, SerialSetpointMax]; such lines are ignored.
func ParseLine(line string) (v float64, ok bool) {
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, false
	}
	if n < control.SerialSetpointMin || n > control.SerialSetpointMax {
		return 0, false
	}
	return float64(n), true
}

// Lines scans r for setpoint lines and delivers accepted values on the
// returned channel. The channel is closed when r reports EOF or an error.
func Lines(r io.Reader, logger *zap.SugaredLogger) <-chan float64 {
	out := make(chan float64)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			line := sc.Text()
			v, ok := ParseLine(line)
			if !ok {
				logger.Debugw("setpoint: ignored serial input", "line", line)
				continue
			}
			out <- v
		}
		if err := sc.Err(); err != nil {
			logger.Warnw("setpoint: serial input stopped", "error", err)
		}
	}()
	return out
}
