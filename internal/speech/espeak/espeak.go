// Package espeak drives the espeak-ng command line synthesizer. Each
// utterance is one espeak process playing straight to the sound card.
package espeak

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/readaloud/internal/speech"
)

const (
	// Words per minute at rate 1.0.
	baseWPM = 175
	minWPM  = 80
	maxWPM  = 450
)

// Candidates are the binaries tried, in order, when none is configured.
var Candidates = []string{"espeak-ng", "espeak"}

// Engine speaks through an espeak subprocess.
type Engine struct {
	binary string
	log    *log.Logger

	mu      sync.Mutex
	current *process
}

type process struct {
	cmd     *exec.Cmd
	stopped bool
	paused  bool
}

// Find returns the path of the first espeak binary on PATH.
func Find() (string, error) {
	for _, name := range Candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: none of %s found in PATH", speech.ErrEngineUnavailable, strings.Join(Candidates, ", "))
}

// New creates an engine using binary, or the first candidate on PATH when
// binary is empty.
func New(binary string, logger *log.Logger) (*Engine, error) {
	if logger == nil {
		logger = log.Default()
	}

	if binary == "" {
		found, err := Find()
		if err != nil {
			return nil, err
		}
		binary = found
	} else if _, err := exec.LookPath(binary); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", speech.ErrEngineUnavailable, binary, err)
	}

	return &Engine{
		binary: binary,
		log:    logger.WithPrefix("espeak"),
	}, nil
}

// Args builds the espeak command line for text.
func Args(text string, voice speech.Voice) []string {
	var args []string

	switch {
	case voice.Name != "":
		args = append(args, "-v", voice.Name)
	case voice.Language != "":
		args = append(args, "-v", voice.Language)
	}

	args = append(args, "-s", strconv.Itoa(wordsPerMinute(voice.Rate)))
	if voice.Pitch > 0 {
		// espeak pitch runs 0-99 with 50 as normal.
		p := int(voice.Pitch * 50)
		if p > 99 {
			p = 99
		}
		args = append(args, "-p", strconv.Itoa(p))
	}

	return append(args, "--", text)
}

func wordsPerMinute(rate float64) int {
	if rate <= 0 {
		rate = 1
	}
	wpm := int(baseWPM * rate)
	if wpm < minWPM {
		return minWPM
	}
	if wpm > maxWPM {
		return maxWPM
	}
	return wpm
}

// Speak starts an espeak process for text.
func (e *Engine) Speak(text string, voice speech.Voice, finished func(speech.Outcome)) error {
	// Engines do not queue.
	_ = e.Stop()

	var stderr bytes.Buffer
	cmd := exec.Command(e.binary, Args(text, voice)...)
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", e.binary, err)
	}

	p := &process{cmd: cmd}
	e.mu.Lock()
	e.current = p
	e.mu.Unlock()

	e.log.Debug("started", "pid", cmd.Process.Pid, "chars", len(text))

	go func() {
		err := cmd.Wait()

		e.mu.Lock()
		stopped := p.stopped
		if e.current == p {
			e.current = nil
		}
		e.mu.Unlock()

		switch {
		case stopped:
			finished(speech.Outcome{Kind: speech.OutcomeStopped})
		case err != nil:
			finished(speech.Outcome{
				Kind: speech.OutcomeError,
				Err:  fmt.Errorf("espeak exited: %w: %s", err, strings.TrimSpace(stderr.String())),
			})
		default:
			finished(speech.Outcome{Kind: speech.OutcomeDone})
		}
	}()

	return nil
}

// Stop kills the running process.
func (e *Engine) Stop() error {
	e.mu.Lock()
	p := e.current
	if p != nil {
		p.stopped = true
	}
	e.mu.Unlock()

	if p == nil || p.cmd.Process == nil {
		return nil
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill espeak: %w", err)
	}
	return nil
}

// Pause suspends the running process.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil || e.current.paused {
		return nil
	}
	if err := suspend(e.current.cmd.Process); err != nil {
		return err
	}
	e.current.paused = true
	return nil
}

// Resume continues a suspended process.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil || !e.current.paused {
		return nil
	}
	if err := resume(e.current.cmd.Process); err != nil {
		return err
	}
	e.current.paused = false
	return nil
}

// IsSpeaking reports whether a process is running and not suspended.
func (e *Engine) IsSpeaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.current != nil && !e.current.paused
}

// Info describes the engine.
func (e *Engine) Info() speech.Info {
	return speech.Info{Name: "espeak", MaxInputLength: speech.DefaultMaxInputLength}
}
