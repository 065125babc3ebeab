// Package piper synthesizes speech with the piper neural TTS binary and
// plays the raw PCM it produces through oto.
package piper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"

	"github.com/dgnsrekt/readaloud/internal/speech"
)

// DefaultSampleRate is the output rate of the common piper voices.
const DefaultSampleRate = 22050

// pollInterval is how often playback completion is checked.
const pollInterval = 20 * time.Millisecond

// Config locates the piper binary and voice model.
type Config struct {
	Binary      string
	Model       string
	ModelConfig string
	Speaker     int
	SampleRate  int
}

// player is the subset of *oto.Player the engine drives.
type player interface {
	Play()
	Pause()
	IsPlaying() bool
	Close() error
}

// synthesizeFunc turns text into 16-bit mono PCM.
type synthesizeFunc func(ctx context.Context, text string, voice speech.Voice) ([]byte, error)

// Engine speaks by running piper and playing its output.
type Engine struct {
	cfg        Config
	log        *log.Logger
	synthesize synthesizeFunc
	newPlayer  func(io.Reader) player

	mu      sync.Mutex
	current *utterance
}

type utterance struct {
	cancel  context.CancelFunc
	player  player
	stopped bool
	paused  bool
}

var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
)

// sharedContext returns the process-wide oto context. oto allows only one.
func sharedContext(sampleRate int) (*oto.Context, error) {
	otoOnce.Do(func() {
		var ready chan struct{}
		otoCtx, ready, otoErr = oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
		})
		if otoErr == nil {
			<-ready
		}
	})
	return otoCtx, otoErr
}

// New validates cfg and opens the audio device.
func New(cfg Config, logger *log.Logger) (*Engine, error) {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Binary == "" {
		cfg.Binary = "piper"
	}

	bin, err := exec.LookPath(cfg.Binary)
	if err != nil {
		return nil, fmt.Errorf("%w: piper binary %q: %v", speech.ErrEngineUnavailable, cfg.Binary, err)
	}
	cfg.Binary = bin

	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: no piper model configured", speech.ErrEngineUnavailable)
	}
	if _, err := os.Stat(cfg.Model); err != nil {
		return nil, fmt.Errorf("%w: piper model: %v", speech.ErrEngineUnavailable, err)
	}

	ctx, err := sharedContext(cfg.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}

	e := &Engine{
		cfg: cfg,
		log: logger.WithPrefix("piper"),
		newPlayer: func(r io.Reader) player {
			return ctx.NewPlayer(r)
		},
	}
	e.synthesize = e.runPiper
	return e, nil
}

// Args builds the piper command line.
func Args(cfg Config, voice speech.Voice) []string {
	args := []string{"--model", cfg.Model, "--output-raw"}
	if cfg.ModelConfig != "" {
		args = append(args, "--config", cfg.ModelConfig)
	}
	if cfg.Speaker > 0 {
		args = append(args, "--speaker", strconv.Itoa(cfg.Speaker))
	}
	if voice.Rate > 0 && voice.Rate != 1 {
		// Length scale is the inverse of speed.
		args = append(args, "--length-scale", strconv.FormatFloat(1/voice.Rate, 'f', 2, 64))
	}
	return args
}

func (e *Engine) runPiper(ctx context.Context, text string, voice speech.Voice) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, e.cfg.Binary, Args(e.cfg, voice)...)
	cmd.Stdin = strings.NewReader(text)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("piper: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, errors.New("piper produced no audio")
	}
	return stdout.Bytes(), nil
}

// Speak synthesizes text in the background and plays it.
func (e *Engine) Speak(text string, voice speech.Voice, finished func(speech.Outcome)) error {
	_ = e.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	u := &utterance{cancel: cancel}

	e.mu.Lock()
	e.current = u
	e.mu.Unlock()

	go e.run(ctx, u, text, voice, finished)
	return nil
}

func (e *Engine) run(ctx context.Context, u *utterance, text string, voice speech.Voice, finished func(speech.Outcome)) {
	defer u.cancel()

	outcome := e.play(ctx, u, text, voice)

	e.mu.Lock()
	if e.current == u {
		e.current = nil
	}
	if u.stopped {
		outcome = speech.Outcome{Kind: speech.OutcomeStopped}
	}
	e.mu.Unlock()

	finished(outcome)
}

func (e *Engine) play(ctx context.Context, u *utterance, text string, voice speech.Voice) speech.Outcome {
	pcm, err := e.synthesize(ctx, text, voice)
	if err != nil {
		return speech.Outcome{Kind: speech.OutcomeError, Err: err}
	}

	e.mu.Lock()
	if u.stopped {
		e.mu.Unlock()
		return speech.Outcome{Kind: speech.OutcomeStopped}
	}
	p := e.newPlayer(bytes.NewReader(pcm))
	u.player = p
	p.Play()
	e.mu.Unlock()

	defer p.Close()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return speech.Outcome{Kind: speech.OutcomeStopped}
		case <-ticker.C:
			e.mu.Lock()
			done := !u.paused && !p.IsPlaying()
			e.mu.Unlock()
			if done {
				return speech.Outcome{Kind: speech.OutcomeDone}
			}
		}
	}
}

// Stop cancels synthesis or playback of the current utterance.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	u := e.current
	if u == nil {
		return nil
	}
	u.stopped = true
	if u.player != nil {
		u.player.Pause()
	}
	u.cancel()
	return nil
}

// Pause pauses playback. Synthesis in progress is not interrupted.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil || e.current.player == nil {
		return nil
	}
	e.current.player.Pause()
	e.current.paused = true
	return nil
}

// Resume continues paused playback.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil || e.current.player == nil || !e.current.paused {
		return nil
	}
	e.current.player.Play()
	e.current.paused = false
	return nil
}

// IsSpeaking reports whether an utterance is synthesizing or audible.
func (e *Engine) IsSpeaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.current != nil && !e.current.paused
}

// Info describes the engine.
func (e *Engine) Info() speech.Info {
	return speech.Info{Name: "piper", MaxInputLength: speech.DefaultMaxInputLength}
}
