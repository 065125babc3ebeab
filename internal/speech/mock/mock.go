// Package mock provides a scriptable speech engine for tests and dry runs.
// It produces no sound. Tests drive utterances to completion by hand, or
// let them finish on a timer.
package mock

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/readaloud/internal/speech"
)

// Call records one method invocation on the engine.
type Call struct {
	Op   string // speak, stop, pause or resume
	Text string
}

// Engine implements speech.Engine in memory.
type Engine struct {
	mu sync.Mutex

	calls    []Call
	current  *utterance
	paused   bool
	speakErr error
	maxInput int
	duration func(text string) time.Duration
}

type utterance struct {
	text     string
	finished func(speech.Outcome)
	done     bool
	dropped  bool
	timer    *time.Timer
}

// New creates an engine whose utterances only finish when told to.
func New() *Engine {
	return &Engine{maxInput: speech.DefaultMaxInputLength}
}

// NewTimed creates an engine that finishes each utterance after perWord
// times the number of words in it.
func NewTimed(perWord time.Duration) *Engine {
	e := New()
	e.duration = func(text string) time.Duration {
		return time.Duration(len(strings.Fields(text))) * perWord
	}
	return e
}

// Speak starts an utterance, replacing any current one.
func (e *Engine) Speak(text string, _ speech.Voice, finished func(speech.Outcome)) error {
	e.mu.Lock()
	e.calls = append(e.calls, Call{Op: "speak", Text: text})
	if e.speakErr != nil {
		err := e.speakErr
		e.mu.Unlock()
		return err
	}

	prev := e.current
	u := &utterance{text: text, finished: finished}
	e.current = u
	e.paused = false
	if e.duration != nil {
		u.timer = time.AfterFunc(e.duration(text), func() {
			e.complete(u, speech.Outcome{Kind: speech.OutcomeDone})
		})
	}
	e.mu.Unlock()

	if prev != nil {
		e.complete(prev, speech.Outcome{Kind: speech.OutcomeStopped})
	}
	return nil
}

// Stop ends the current utterance with a stopped outcome.
func (e *Engine) Stop() error {
	e.mu.Lock()
	e.calls = append(e.calls, Call{Op: "stop"})
	u := e.current
	e.mu.Unlock()

	if u != nil {
		e.complete(u, speech.Outcome{Kind: speech.OutcomeStopped})
	}
	return nil
}

// Pause marks the engine paused.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls = append(e.calls, Call{Op: "pause"})
	e.paused = true
	return nil
}

// Resume clears the paused mark.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls = append(e.calls, Call{Op: "resume"})
	e.paused = false
	return nil
}

// IsSpeaking reports whether an utterance is audible.
func (e *Engine) IsSpeaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.current != nil && !e.current.dropped && !e.paused
}

// Info describes the engine.
func (e *Engine) Info() speech.Info {
	e.mu.Lock()
	defer e.mu.Unlock()

	return speech.Info{Name: "mock", MaxInputLength: e.maxInput}
}

// Finish completes the current utterance successfully. It reports false
// when nothing is being spoken.
func (e *Engine) Finish() bool {
	return e.finishCurrent(speech.Outcome{Kind: speech.OutcomeDone})
}

// Fail ends the current utterance with err.
func (e *Engine) Fail(err error) bool {
	if err == nil {
		err = errors.New("mock engine failure")
	}
	return e.finishCurrent(speech.Outcome{Kind: speech.OutcomeError, Err: err})
}

// Drop makes the current utterance go silent without any callback, the
// way a platform engine can lose an utterance when the device sleeps.
func (e *Engine) Drop() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return false
	}
	e.current.dropped = true
	if e.current.timer != nil {
		e.current.timer.Stop()
	}
	return true
}

// SetSpeakError makes every later Speak fail with err. nil clears it.
func (e *Engine) SetSpeakError(err error) {
	e.mu.Lock()
	e.speakErr = err
	e.mu.Unlock()
}

// SetMaxInputLength changes the reported input limit.
func (e *Engine) SetMaxInputLength(n int) {
	e.mu.Lock()
	e.maxInput = n
	e.mu.Unlock()
}

// Current returns the text of the utterance in flight.
func (e *Engine) Current() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return "", false
	}
	return e.current.text, true
}

// Calls returns a copy of every recorded call.
func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Call, len(e.calls))
	copy(out, e.calls)
	return out
}

// Spoken returns the text of every Speak call in order.
func (e *Engine) Spoken() []string {
	var out []string
	for _, c := range e.Calls() {
		if c.Op == "speak" {
			out = append(out, c.Text)
		}
	}
	return out
}

// Count returns how many times op was called.
func (e *Engine) Count(op string) int {
	n := 0
	for _, c := range e.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (e *Engine) finishCurrent(o speech.Outcome) bool {
	e.mu.Lock()
	u := e.current
	e.mu.Unlock()

	if u == nil {
		return false
	}
	return e.complete(u, o)
}

// complete delivers o to u exactly once.
func (e *Engine) complete(u *utterance, o speech.Outcome) bool {
	e.mu.Lock()
	if u.done {
		e.mu.Unlock()
		return false
	}
	u.done = true
	if u.timer != nil {
		u.timer.Stop()
	}
	if e.current == u {
		e.current = nil
		e.paused = false
	}
	e.mu.Unlock()

	u.finished(o)
	return true
}
