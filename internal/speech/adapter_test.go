package speech_test

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/readaloud/internal/speech"
	"github.com/dgnsrekt/readaloud/internal/speech/mock"
)

type recorder struct {
	done, failed, stopped atomic.Int32
	lastErr               atomic.Value
}

func (r *recorder) options() speech.Options {
	return speech.Options{
		OnDone:    func() { r.done.Add(1) },
		OnError:   func(err error) { r.failed.Add(1); r.lastErr.Store(err) },
		OnStopped: func() { r.stopped.Add(1) },
	}
}

func TestAdapterOutcomes(t *testing.T) {
	engine := mock.New()
	adapter := speech.NewAdapter(engine, nil)

	var r recorder
	require.NoError(t, adapter.Speak("Hello there.", r.options()))
	assert.True(t, adapter.IsSpeaking())

	require.True(t, engine.Finish())
	assert.EqualValues(t, 1, r.done.Load())
	assert.False(t, adapter.IsSpeaking())

	require.NoError(t, adapter.Speak("Again.", r.options()))
	boom := errors.New("boom")
	require.True(t, engine.Fail(boom))
	assert.EqualValues(t, 1, r.failed.Load())
	assert.ErrorIs(t, r.lastErr.Load().(error), boom)

	require.NoError(t, adapter.Speak("Once more.", r.options()))
	require.NoError(t, adapter.Stop())
	assert.EqualValues(t, 1, r.stopped.Load())
	assert.EqualValues(t, 1, r.done.Load())
}

func TestAdapterStopsBeforeSpeaking(t *testing.T) {
	engine := mock.New()
	adapter := speech.NewAdapter(engine, nil)

	var first, second recorder
	require.NoError(t, adapter.Speak("First.", first.options()))
	require.NoError(t, adapter.Speak("Second.", second.options()))

	calls := engine.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, mock.Call{Op: "speak", Text: "First."}, calls[0])
	assert.Equal(t, mock.Call{Op: "stop"}, calls[1])
	assert.Equal(t, mock.Call{Op: "speak", Text: "Second."}, calls[2])

	assert.EqualValues(t, 1, first.stopped.Load())
	assert.EqualValues(t, 0, second.stopped.Load())

	text, ok := engine.Current()
	assert.True(t, ok)
	assert.Equal(t, "Second.", text)
}

func TestAdapterRejectsBadInput(t *testing.T) {
	engine := mock.New()
	engine.SetMaxInputLength(10)
	adapter := speech.NewAdapter(engine, nil)

	assert.ErrorIs(t, adapter.Speak("   ", speech.Options{}), speech.ErrEmptyText)
	assert.ErrorIs(t, adapter.Speak(strings.Repeat("x", 11), speech.Options{}), speech.ErrTooLong)
	assert.Empty(t, engine.Calls())
}

func TestAdapterSpeakError(t *testing.T) {
	engine := mock.New()
	engine.SetSpeakError(speech.ErrEngineUnavailable)
	adapter := speech.NewAdapter(engine, nil)

	err := adapter.Speak("Hello.", speech.Options{})
	assert.ErrorIs(t, err, speech.ErrEngineUnavailable)
	assert.False(t, adapter.IsSpeaking())
}

func TestAdapterPassThrough(t *testing.T) {
	engine := mock.New()
	adapter := speech.NewAdapter(engine, nil)

	require.NoError(t, adapter.Speak("Hello.", speech.Options{}))
	require.NoError(t, adapter.Pause())
	assert.False(t, adapter.IsSpeaking())
	require.NoError(t, adapter.Resume())
	assert.True(t, adapter.IsSpeaking())
	assert.Equal(t, "mock", adapter.EngineName())
	assert.Equal(t, speech.DefaultMaxInputLength, adapter.MaxInputLength())
}

func TestTimedEngine(t *testing.T) {
	engine := mock.NewTimed(time.Millisecond)
	adapter := speech.NewAdapter(engine, nil)

	var r recorder
	require.NoError(t, adapter.Speak("three short words", r.options()))
	require.Eventually(t, func() bool { return r.done.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestDroppedUtteranceIsSilent(t *testing.T) {
	engine := mock.New()
	adapter := speech.NewAdapter(engine, nil)

	var r recorder
	require.NoError(t, adapter.Speak("Hello.", r.options()))
	require.True(t, engine.Drop())

	assert.False(t, adapter.IsSpeaking())
	assert.EqualValues(t, 0, r.done.Load()+r.failed.Load()+r.stopped.Load())

	// Stopping the lost utterance still reports it.
	require.NoError(t, adapter.Stop())
	assert.EqualValues(t, 1, r.stopped.Load())
}
