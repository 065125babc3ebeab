package speech

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/charmbracelet/log"
)

// Options configures one Speak call. Callbacks may run on any goroutine
// and must not block.
type Options struct {
	Language string
	Voice    string
	Rate     float64
	Pitch    float64

	OnDone    func()
	OnError   func(error)
	OnStopped func()
}

// Adapter gives callers a single-utterance contract over an Engine. It
// forwards outcomes without interpreting them.
type Adapter struct {
	engine Engine
	log    *log.Logger

	mu     sync.Mutex
	seq    uint64
	active uint64 // 0 when nothing is in flight
}

// NewAdapter wraps engine.
func NewAdapter(engine Engine, logger *log.Logger) *Adapter {
	if logger == nil {
		logger = log.Default()
	}
	return &Adapter{
		engine: engine,
		log:    logger.WithPrefix("speech"),
	}
}

// Speak starts speaking text. An utterance already in flight is stopped
// first, so at most one is ever active.
func (a *Adapter) Speak(text string, opts Options) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	if max := a.MaxInputLength(); max > 0 && utf8.RuneCountInString(text) > max {
		return fmt.Errorf("%w: %d > %d", ErrTooLong, utf8.RuneCountInString(text), max)
	}

	a.mu.Lock()
	inFlight := a.active != 0
	a.mu.Unlock()

	if inFlight {
		if err := a.engine.Stop(); err != nil {
			a.log.Warn("failed to stop previous utterance", "err", err)
		}
	}

	a.mu.Lock()
	a.seq++
	id := a.seq
	a.active = id
	a.mu.Unlock()

	voice := Voice{
		Language: opts.Language,
		Name:     opts.Voice,
		Rate:     opts.Rate,
		Pitch:    opts.Pitch,
	}

	a.log.Debug("speak", "utterance", id, "chars", len(text))
	err := a.engine.Speak(text, voice, func(o Outcome) {
		a.finish(id, o, opts)
	})
	if err != nil {
		a.mu.Lock()
		if a.active == id {
			a.active = 0
		}
		a.mu.Unlock()
		return fmt.Errorf("%s: %w", a.engine.Info().Name, err)
	}
	return nil
}

// Stop halts the active utterance, which then reports stopped.
func (a *Adapter) Stop() error {
	a.mu.Lock()
	a.active = 0
	a.mu.Unlock()

	return a.engine.Stop()
}

// Pause asks the engine to pause. Engines that cannot pause return
// ErrUnsupported.
func (a *Adapter) Pause() error {
	return a.engine.Pause()
}

// Resume continues a paused utterance.
func (a *Adapter) Resume() error {
	return a.engine.Resume()
}

// IsSpeaking reports what the engine says about itself right now.
func (a *Adapter) IsSpeaking() bool {
	return a.engine.IsSpeaking()
}

// MaxInputLength is the longest text, in runes, Speak accepts.
func (a *Adapter) MaxInputLength() int {
	if n := a.engine.Info().MaxInputLength; n > 0 {
		return n
	}
	return DefaultMaxInputLength
}

// EngineName names the wrapped engine.
func (a *Adapter) EngineName() string {
	return a.engine.Info().Name
}

func (a *Adapter) finish(id uint64, o Outcome, opts Options) {
	a.mu.Lock()
	if a.active == id {
		a.active = 0
	}
	a.mu.Unlock()

	a.log.Debug("utterance finished", "utterance", id, "outcome", o.Kind)

	switch o.Kind {
	case OutcomeDone:
		if opts.OnDone != nil {
			opts.OnDone()
		}
	case OutcomeError:
		if opts.OnError != nil {
			opts.OnError(o.Err)
		}
	case OutcomeStopped:
		if opts.OnStopped != nil {
			opts.OnStopped()
		}
	}
}
