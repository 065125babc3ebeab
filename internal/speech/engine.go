// Package speech wraps a platform text-to-speech engine behind a uniform,
// callback-based contract: one utterance at a time, and every utterance
// ends in exactly one of done, error or stopped.
package speech

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyText is returned when asked to speak nothing.
	ErrEmptyText = errors.New("speech: empty text")
	// ErrTooLong is returned when text exceeds the engine's input limit.
	ErrTooLong = errors.New("speech: text exceeds engine input limit")
	// ErrUnsupported is returned by engines that cannot do an operation.
	ErrUnsupported = errors.New("speech: operation not supported by engine")
	// ErrEngineUnavailable is returned when an engine binary or model is missing.
	ErrEngineUnavailable = errors.New("speech: engine unavailable")
)

// DefaultMaxInputLength is the longest utterance accepted when an engine
// does not state its own limit.
const DefaultMaxInputLength = 4000

// OutcomeKind says how an utterance ended.
type OutcomeKind int

const (
	// OutcomeDone means the engine spoke the whole utterance.
	OutcomeDone OutcomeKind = iota
	// OutcomeError means the engine failed mid-utterance.
	OutcomeError
	// OutcomeStopped means the utterance was cut short by a stop.
	OutcomeStopped
)

// String returns the string representation of the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeDone:
		return "done"
	case OutcomeError:
		return "error"
	case OutcomeStopped:
		return "stopped"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the terminal event of one utterance.
type Outcome struct {
	Kind OutcomeKind
	Err  error
}

// Voice carries the synthesis parameters for one utterance.
type Voice struct {
	Language string
	Name     string
	Rate     float64 // 1.0 is the engine's normal speed
	Pitch    float64 // 1.0 is the engine's normal pitch
}

// Info describes an engine.
type Info struct {
	Name           string
	MaxInputLength int
}

// Engine is the platform speech primitive. Speak starts an utterance and
// returns once it has begun; finished is later called exactly once from
// any goroutine. Engines do not queue: a Speak while speaking replaces the
// previous utterance, which then finishes as stopped.
type Engine interface {
	Speak(text string, voice Voice, finished func(Outcome)) error
	Stop() error
	Pause() error
	Resume() error
	IsSpeaking() bool
	Info() Info
}
