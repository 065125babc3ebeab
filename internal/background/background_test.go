package background

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/readaloud/internal/library"
	"github.com/dgnsrekt/readaloud/internal/playback"
	"github.com/dgnsrekt/readaloud/internal/speech"
	"github.com/dgnsrekt/readaloud/internal/speech/mock"
	"github.com/dgnsrekt/readaloud/internal/store"
)

type fixture struct {
	task   *Task
	c      *playback.Controller
	engine *mock.Engine
	kv     *store.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	logger := log.New(io.Discard)
	kv := store.NewMemory()
	lib := library.New(kv, logger)
	require.NoError(t, lib.Put(ctx, library.Chapter{Name: "c1", Content: "First one. First two."}))
	require.NoError(t, lib.Put(ctx, library.Chapter{Name: "c2", Content: "Second one."}))

	cfg := playback.DefaultConfig()
	cfg.Platform = playback.PlatformDesktop
	cfg.Delays = playback.Delays{Advance: time.Millisecond, Scrub: time.Millisecond}
	cfg.Monitor = playback.MonitorConfig{}

	engine := mock.New()
	c, err := playback.New(playback.Deps{
		Speaker:  speech.NewAdapter(engine, logger),
		Chapters: lib,
		Store:    kv,
		Logger:   logger,
	}, cfg)
	require.NoError(t, err)
	c.Start(ctx)
	t.Cleanup(func() { _ = c.Shutdown() })

	return &fixture{
		task:   NewTask(c, kv, logger),
		c:      c,
		engine: engine,
		kv:     kv,
	}
}

func ptr(f float64) *float64 { return &f }

func waitSpeaking(t *testing.T, e *mock.Engine, text string) {
	t.Helper()
	require.Eventually(t, func() bool {
		cur, ok := e.Current()
		return ok && cur == text
	}, 2*time.Second, 2*time.Millisecond)
}

func TestRunStartsPayloadChapter(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.task.Run(context.Background(), Payload{Current: "c1", Progress: ptr(0.5)}))
	waitSpeaking(t, f.engine, "First two.")

	st := f.c.State()
	assert.Equal(t, "c1", st.Chapter)
	assert.Equal(t, playback.StatusPlaying, st.Status)

	// Chains on its own with nothing mounted.
	require.True(t, f.engine.Finish())
	waitSpeaking(t, f.engine, "Second one.")
	assert.Equal(t, "c2", f.c.State().Chapter)
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	p := Payload{Current: "c1"}

	require.NoError(t, f.task.Run(context.Background(), p))
	waitSpeaking(t, f.engine, "First one.")
	require.NoError(t, f.task.Run(context.Background(), p))
	require.NoError(t, f.task.Run(context.Background(), p))

	assert.Equal(t, []string{"First one."}, f.engine.Spoken())
	assert.Zero(t, f.engine.Count("stop"))
}

func TestRunMovesPlayingChapter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.task.Run(ctx, Payload{Current: "c1", Progress: ptr(0)}))
	waitSpeaking(t, f.engine, "First one.")

	// Same chapter and same position: nothing to do.
	require.NoError(t, f.task.Run(ctx, Payload{Current: "c1", Progress: ptr(0)}))
	assert.Zero(t, f.engine.Count("stop"))

	require.NoError(t, f.task.Run(ctx, Payload{Current: "c1", Progress: ptr(0.5)}))
	waitSpeaking(t, f.engine, "First two.")

	st := f.c.State()
	assert.Equal(t, "c1", st.Chapter)
	assert.Equal(t, 1, st.UnitIndex)
	assert.Equal(t, playback.StatusPlaying, st.Status)
}

func TestRunResumesFromSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, store.SaveSettings(ctx, f.kv, store.Settings{Current: "c1", Progress: 0.5, FontSize: 20}))

	// Progress comes from the settings when the payload names the saved chapter.
	require.NoError(t, f.task.Run(ctx, Payload{Current: "c1"}))
	waitSpeaking(t, f.engine, "First two.")
}

func TestRunFallsBackToSavedChapter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, store.SaveSettings(ctx, f.kv, store.Settings{Current: "c2", Progress: 0}))

	require.NoError(t, f.task.Run(ctx, Payload{Progress: ptr(0)}))
	waitSpeaking(t, f.engine, "Second one.")
}

func TestRunOtherChapterStartsAtZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, store.SaveSettings(ctx, f.kv, store.Settings{Current: "c1", Progress: 1}))

	require.NoError(t, f.task.Run(ctx, Payload{Current: "c2"}))
	waitSpeaking(t, f.engine, "Second one.")
}

func TestRunStop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.task.Run(ctx, Payload{Current: "c1", Progress: ptr(0.5)}))
	waitSpeaking(t, f.engine, "First two.")

	require.NoError(t, f.task.Run(ctx, Payload{}))
	st := f.c.State()
	assert.Equal(t, playback.StatusStopped, st.Status)
	assert.Equal(t, 1, st.UnitIndex, "stop keeps the position")
}

func TestRunNothingToPlay(t *testing.T) {
	f := newFixture(t)
	err := f.task.Run(context.Background(), Payload{Progress: ptr(0.2)})
	assert.ErrorIs(t, err, ErrNothingToPlay)
}

func TestRunMissingChapter(t *testing.T) {
	f := newFixture(t)
	err := f.task.Run(context.Background(), Payload{Current: "nope"})

	var ce *playback.ContentError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, playback.CodeChapterNotFound, ce.Code)
}

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Payload
		wantErr bool
	}{
		{name: "empty", raw: "", want: Payload{}},
		{name: "null", raw: " null ", want: Payload{}},
		{name: "object", raw: `{}`, want: Payload{}},
		{name: "current", raw: `{"current":"c1"}`, want: Payload{Current: "c1"}},
		{name: "both", raw: `{"current":"c1","progress":0.25}`, want: Payload{Current: "c1", Progress: ptr(0.25)}},
		{name: "garbage", raw: `{current`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePayload([]byte(tt.raw))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPayload)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.True(t, Payload{}.IsStop())
	assert.True(t, Payload{Current: "  "}.IsStop())
	assert.False(t, Payload{Progress: ptr(0)}.IsStop())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	var got []Payload
	r.Register(TaskID, func(_ context.Context, p Payload) error {
		got = append(got, p)
		return nil
	})
	r.Register("other", func(context.Context, Payload) error { return nil })

	assert.Equal(t, []string{"other", TaskID}, r.IDs())

	ctx := context.Background()
	require.NoError(t, r.Dispatch(ctx, TaskID, []byte(`{"current":"c1"}`)))
	require.NoError(t, r.Dispatch(ctx, TaskID, nil))
	assert.Equal(t, []Payload{{Current: "c1"}, {}}, got)

	assert.ErrorIs(t, r.Dispatch(ctx, "missing", nil), ErrUnknownTask)
	assert.ErrorIs(t, r.Dispatch(ctx, TaskID, []byte("[")), ErrInvalidPayload)
}
