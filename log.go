package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/readaloud/internal/config"
)

// setupLog discards logs unless READALOUD_LOGFILE names a file to write
// them to. The play bar owns the terminal, so nothing goes to stderr.
func setupLog() (func() error, error) {
	log.SetOutput(io.Discard)

	e, err := env.ParseAs[config.Env]()
	if err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}
	if e.LogFile == "" {
		return func() error { return nil }, nil
	}

	logFile := config.ExpandPath(e.LogFile)
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil { //nolint:gosec
		return nil, fmt.Errorf("unable to create log directory: %w", err)
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("unable to open log file: %w", err)
	}
	log.SetOutput(f)
	log.SetLevel(log.DebugLevel)
	log.SetReportTimestamp(true)
	return f.Close, nil
}
