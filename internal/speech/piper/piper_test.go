package piper

import (
	"context"
	"errors"
	"io"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/readaloud/internal/speech"
)

// fakePlayer plays for a fixed number of polls.
type fakePlayer struct {
	mu      sync.Mutex
	playing bool
	left    int
	closed  atomic.Bool
}

func (p *fakePlayer) Play()  { p.mu.Lock(); p.playing = true; p.mu.Unlock() }
func (p *fakePlayer) Pause() { p.mu.Lock(); p.playing = false; p.mu.Unlock() }
func (p *fakePlayer) Close() error {
	p.closed.Store(true)
	return nil
}

func (p *fakePlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return false
	}
	if p.left <= 0 {
		p.playing = false
		return false
	}
	p.left--
	return true
}

func newTestEngine(synth synthesizeFunc, polls int) (*Engine, *fakePlayer) {
	fp := &fakePlayer{left: polls}
	return &Engine{
		cfg:        Config{SampleRate: DefaultSampleRate},
		log:        log.New(io.Discard),
		synthesize: synth,
		newPlayer:  func(io.Reader) player { return fp },
	}, fp
}

func pcm(context.Context, string, speech.Voice) ([]byte, error) {
	return make([]byte, 64), nil
}

func waitOutcome(t *testing.T, ch <-chan speech.Outcome) speech.Outcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("no outcome")
		return speech.Outcome{}
	}
}

func TestArgs(t *testing.T) {
	got := Args(Config{Model: "en.onnx", ModelConfig: "en.json", Speaker: 2}, speech.Voice{Rate: 2})
	want := []string{"--model", "en.onnx", "--output-raw", "--config", "en.json", "--speaker", "2", "--length-scale", "0.50"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Args() = %q, want %q", got, want)
	}

	got = Args(Config{Model: "en.onnx"}, speech.Voice{Rate: 1})
	want = []string{"--model", "en.onnx", "--output-raw"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Args() = %q, want %q", got, want)
	}
}

func TestSpeakDone(t *testing.T) {
	e, fp := newTestEngine(pcm, 3)
	out := make(chan speech.Outcome, 1)

	if err := e.Speak("Hello.", speech.Voice{}, func(o speech.Outcome) { out <- o }); err != nil {
		t.Fatal(err)
	}
	if o := waitOutcome(t, out); o.Kind != speech.OutcomeDone {
		t.Errorf("outcome = %v, want done", o.Kind)
	}
	if !fp.closed.Load() {
		t.Error("player not closed")
	}
	if e.IsSpeaking() {
		t.Error("engine still speaking")
	}
}

func TestSpeakStopped(t *testing.T) {
	e, _ := newTestEngine(pcm, 1_000_000)
	out := make(chan speech.Outcome, 1)

	if err := e.Speak("Hello.", speech.Voice{}, func(o speech.Outcome) { out <- o }); err != nil {
		t.Fatal(err)
	}
	if !e.IsSpeaking() {
		t.Error("engine not speaking")
	}
	if err := e.Stop(); err != nil {
		t.Fatal(err)
	}
	if o := waitOutcome(t, out); o.Kind != speech.OutcomeStopped {
		t.Errorf("outcome = %v, want stopped", o.Kind)
	}
}

func TestSpeakSynthesisError(t *testing.T) {
	boom := errors.New("model missing")
	e, _ := newTestEngine(func(context.Context, string, speech.Voice) ([]byte, error) {
		return nil, boom
	}, 0)
	out := make(chan speech.Outcome, 1)

	if err := e.Speak("Hello.", speech.Voice{}, func(o speech.Outcome) { out <- o }); err != nil {
		t.Fatal(err)
	}
	o := waitOutcome(t, out)
	if o.Kind != speech.OutcomeError || !errors.Is(o.Err, boom) {
		t.Errorf("outcome = %+v, want error wrapping %v", o, boom)
	}
}

func TestPauseResume(t *testing.T) {
	e, _ := newTestEngine(pcm, 1_000_000)
	out := make(chan speech.Outcome, 1)

	if err := e.Speak("Hello.", speech.Voice{}, func(o speech.Outcome) { out <- o }); err != nil {
		t.Fatal(err)
	}

	// Wait for playback to start.
	deadline := time.Now().Add(2 * time.Second)
	for {
		e.mu.Lock()
		started := e.current != nil && e.current.player != nil
		e.mu.Unlock()
		if started {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("playback never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	_ = e.Pause()
	if e.IsSpeaking() {
		t.Error("paused engine reports speaking")
	}

	// A paused utterance must not be mistaken for a finished one.
	time.Sleep(5 * pollInterval)
	select {
	case o := <-out:
		t.Fatalf("paused utterance finished: %v", o.Kind)
	default:
	}

	_ = e.Resume()
	if !e.IsSpeaking() {
		t.Error("resumed engine not speaking")
	}
	_ = e.Stop()
	waitOutcome(t, out)
}
