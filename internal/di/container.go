// Package di wires readaloud together. Every command works against the one
// playback controller the container hands out.
package di

import (
	"github.com/charmbracelet/log"
	"github.com/samber/do/v2"

	"github.com/dgnsrekt/readaloud/internal/config"
	"github.com/dgnsrekt/readaloud/internal/notify"
)

// NewContainer creates the container. cfg, logger and notifier are
// supplied by the caller; everything else is built lazily on first use.
func NewContainer(cfg *config.Config, logger *log.Logger, notifier notify.Notifier) *do.RootScope {
	injector := do.New()

	if logger == nil {
		logger = log.Default()
	}
	if notifier == nil {
		notifier = notify.Log{Logger: logger}
	}

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, logger)
	do.ProvideValue[notify.Notifier](injector, notifier)

	// Storage layer
	do.Provide(injector, ProvideStore)
	do.Provide(injector, ProvideLibrary)

	// Speech layer
	do.Provide(injector, ProvideEngine)
	do.Provide(injector, ProvideAdapter)

	// Playback
	do.Provide(injector, ProvideController)
	do.Provide(injector, ProvideTask)
	do.Provide(injector, ProvideRegistry)

	return injector
}
