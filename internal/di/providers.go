package di

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/samber/do/v2"

	"github.com/dgnsrekt/readaloud/internal/background"
	"github.com/dgnsrekt/readaloud/internal/config"
	"github.com/dgnsrekt/readaloud/internal/library"
	"github.com/dgnsrekt/readaloud/internal/notify"
	"github.com/dgnsrekt/readaloud/internal/playback"
	"github.com/dgnsrekt/readaloud/internal/speech"
	"github.com/dgnsrekt/readaloud/internal/speech/engines"
	"github.com/dgnsrekt/readaloud/internal/store"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the configured key-value backend.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	logger := do.MustInvoke[*log.Logger](i)

	s, err := store.Open(cfg.Store.Backend, cfg.Store.Dir)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}

	logger.Debug("store opened", "backend", cfg.Store.Backend, "dir", cfg.Store.Dir)
	return &StoreHandle{Store: s}, nil
}

// ProvideLibrary provides the chapter library.
func ProvideLibrary(i do.Injector) (*library.Library, error) {
	s := do.MustInvoke[*StoreHandle](i)
	logger := do.MustInvoke[*log.Logger](i)

	return library.New(s, logger), nil
}

// ProvideEngine builds the configured speech engine.
func ProvideEngine(i do.Injector) (speech.Engine, error) {
	cfg := do.MustInvoke[*config.Config](i)
	logger := do.MustInvoke[*log.Logger](i)

	engine, err := engines.New(cfg.EngineConfig(), logger)
	if err != nil {
		return nil, err
	}

	logger.Debug("speech engine ready", "engine", engine.Info().Name)
	return engine, nil
}

// ProvideAdapter wraps the engine in the single-utterance adapter.
func ProvideAdapter(i do.Injector) (*speech.Adapter, error) {
	engine := do.MustInvoke[speech.Engine](i)
	logger := do.MustInvoke[*log.Logger](i)

	return speech.NewAdapter(engine, logger), nil
}

// ControllerHandle owns the one playback controller of a process.
type ControllerHandle struct {
	*playback.Controller
}

// Shutdown implements do.Shutdownable.
func (h *ControllerHandle) Shutdown() error {
	return h.Controller.Shutdown()
}

// ProvideController creates and starts the playback controller.
func ProvideController(i do.Injector) (*ControllerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	logger := do.MustInvoke[*log.Logger](i)
	s := do.MustInvoke[*StoreHandle](i)

	c, err := playback.New(playback.Deps{
		Speaker:  do.MustInvoke[*speech.Adapter](i),
		Chapters: do.MustInvoke[*library.Library](i),
		Store:    s,
		Notifier: do.MustInvoke[notify.Notifier](i),
		Logger:   logger,
	}, cfg.ControllerConfig())
	if err != nil {
		return nil, err
	}
	c.Start(context.Background())

	logger.Debug("playback controller started", "session", c.Session())
	return &ControllerHandle{Controller: c}, nil
}

// ProvideTask provides the background playback task.
func ProvideTask(i do.Injector) (*background.Task, error) {
	c := do.MustInvoke[*ControllerHandle](i)
	s := do.MustInvoke[*StoreHandle](i)
	logger := do.MustInvoke[*log.Logger](i)

	return background.NewTask(c.Controller, s, logger), nil
}

// ProvideRegistry registers every background task.
func ProvideRegistry(i do.Injector) (*background.Registry, error) {
	task := do.MustInvoke[*background.Task](i)

	r := background.NewRegistry()
	r.Register(background.TaskID, task.Run)
	return r, nil
}
