package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// DefaultReportWidth is the column the state word of a report line starts at
const DefaultReportWidth = 44

// LineReporter prints one line per reconciled entity: the name padded with
// dots, then its state. Every line is mirrored to the logger at debug level.
type LineReporter struct {
	mu     sync.Mutex
	out    io.Writer
	width  int
	logger *zap.Logger
}

// NewLineReporter creates a reporter writing to out
func NewLineReporter(out io.Writer, logger *zap.Logger) *LineReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LineReporter{out: out, width: DefaultReportWidth, logger: logger}
}

// WithWidth overrides the padding column
func (r *LineReporter) WithWidth(width int) *LineReporter {
	r.width = width
	return r
}

// Report writes "name....... STATE"
func (r *LineReporter) Report(name, state string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug("report", zap.String("name", name), zap.String("state", state))
	_, err := fmt.Fprintf(r.out, "%s %s\n", PadLine(name, r.width), state)
	return err
}

// PadLine pads name with dots up to width. A name already at or past
// width gets no dots.
func PadLine(name string, width int) string {
	n := len([]rune(name))
	if n >= width {
		return name
	}
	return name + " " + strings.Repeat(".", max(0, width-n-1))
}
