package ui

import "time"

// Config contains play bar configuration.
type Config struct {
	// Chapter to open on start. Empty opens nothing.
	Chapter string
	// Progress to open Chapter at.
	Progress float64
	// AutoPlay starts speaking as soon as the chapter is open.
	AutoPlay bool

	EnableMouse bool

	// For debugging the UI
	AltScreen    bool          `env:"READALOUD_ALT_SCREEN"    envDefault:"true"`
	PollInterval time.Duration `env:"READALOUD_POLL_INTERVAL" envDefault:"100ms"`
}
