package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/banshee-data/wasp/internal/monitoring"
)

const logFileName = "TS-INFO.log"

// setupLogging routes the log streams to stdout and, when logDir is set, to
// <logDir>/TS-INFO.log as well. Diag and trace are muted unless verbose.
// The returned func closes the log file.
func setupLogging(stdout io.Writer, verbose bool, logDir string) (func(), error) {
	out := stdout
	closeFn := func() {}
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(logDir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(stdout, f)
		closeFn = func() { _ = f.Close() }
	}

	w := monitoring.LogWriters{Ops: out}
	if verbose {
		w.Diag = out
		w.Trace = out
	}
	monitoring.SetLogWriters(w)

	if logDir == "" {
		monitoring.Warnf("no log directory given, no log file will be written")
	}
	return closeFn, nil
}
