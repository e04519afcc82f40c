package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates the CLI logger. Timestamps look like "14:32:01.45".
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// applyLogLevel sets the level named in the configuration unless --verbose
// already asked for debug output.
func applyLogLevel(l *log.Logger, name string) {
	if l.GetLevel() == log.DebugLevel {
		return
	}
	level, err := log.ParseLevel(name)
	if err != nil {
		l.Warn("ignoring log level", "level", name, "err", err)
		return
	}
	l.SetLevel(level)
}

// progress logs how long an operation took once it is done.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, e.g. "Built 4 modules (1.234s)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
