package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)
	if logger == nil {
		t.Fatal("newLogger() returned nil")
	}

	logger.Info("wrote system", "output", "system.pdb", "atoms", 1234)

	out := buf.String()
	for _, want := range []string{"wrote system", "output=system.pdb", "atoms=1234"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{
			name:    "info at info level",
			level:   log.InfoLevel,
			logFunc: func(l *log.Logger) { l.Info("placed ions", "cations", 3) },
			wantLog: true,
		},
		{
			name:    "clash step hidden at info level",
			level:   log.InfoLevel,
			logFunc: func(l *log.Logger) { l.Debug("removed clashing solvent", "atoms", 12) },
			wantLog: false,
		},
		{
			name:    "warning at warn level",
			level:   log.WarnLevel,
			logFunc: func(l *log.Logger) { l.Warn("could not record build") },
			wantLog: true,
		},
		{
			name:    "clash step shown when verbose",
			level:   log.DebugLevel,
			logFunc: func(l *log.Logger) { l.Debug("removed clashing solvent", "atoms", 12) },
			wantLog: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, tt.level)
			tt.logFunc(logger)

			gotLog := buf.Len() > 0
			if gotLog != tt.wantLog {
				t.Errorf("got log output = %v, want %v", gotLog, tt.wantLog)
			}
		})
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel))
	prog.start = prog.start.Add(-1500 * time.Millisecond)

	prog.done("Built system")

	out := buf.String()
	if !strings.Contains(out, "Built system (1.5") || !strings.Contains(out, "s)") {
		t.Errorf("done() output = %q, want the message with its elapsed time", out)
	}
}

func TestProgressQuiet(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.WarnLevel))
	prog.done("Built system")
	if buf.Len() != 0 {
		t.Errorf("done() at warn level wrote %q", buf.String())
	}
}
