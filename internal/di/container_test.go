package di

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/readaloud/internal/background"
	"github.com/dgnsrekt/readaloud/internal/config"
	"github.com/dgnsrekt/readaloud/internal/library"
	"github.com/dgnsrekt/readaloud/internal/notify"
	"github.com/dgnsrekt/readaloud/internal/playback"
	"github.com/dgnsrekt/readaloud/internal/speech"
	"github.com/dgnsrekt/readaloud/internal/speech/engines"
	"github.com/dgnsrekt/readaloud/internal/speech/mock"
	"github.com/dgnsrekt/readaloud/internal/store"
)

func testConfig(t *testing.T, backend store.Backend) *config.Config {
	t.Helper()

	pc := playback.DefaultConfig()
	pc.Platform = playback.PlatformDesktop
	pc.Delays = playback.Delays{Advance: time.Millisecond, Scrub: time.Millisecond}
	pc.Monitor = playback.MonitorConfig{}

	return &config.Config{
		Store: config.StoreConfig{Backend: backend, Dir: t.TempDir()},
		Speech: config.SpeechConfig{
			Engine:   engines.Mock,
			Language: "en",
			Rate:     1,
			Pitch:    1,
		},
		Playback: config.PlaybackConfig{
			Platform: pc.Platform,
			Chain:    true,
			Delays:   pc.Delays,
			Monitor:  pc.Monitor,
		},
	}
}

func TestContainerSharesOneController(t *testing.T) {
	injector := NewContainer(testConfig(t, store.BackendMemory), log.New(io.Discard), nil)
	t.Cleanup(func() { _ = injector.Shutdown() })

	engine := mock.New()
	do.OverrideValue[speech.Engine](injector, engine)

	a := do.MustInvoke[*ControllerHandle](injector)
	b := do.MustInvoke[*ControllerHandle](injector)
	assert.Same(t, a, b)

	task := do.MustInvoke[*background.Task](injector)
	lib := do.MustInvoke[*library.Library](injector)
	registry := do.MustInvoke[*background.Registry](injector)
	assert.Equal(t, []string{background.TaskID}, registry.IDs())

	ctx := context.Background()
	require.NoError(t, lib.Put(ctx, library.Chapter{Name: "c1", Content: "Hello there."}))

	// The task drives the same controller the UI would see.
	require.NoError(t, task.Run(ctx, background.Payload{Current: "c1"}))
	require.Eventually(t, func() bool {
		cur, ok := engine.Current()
		return ok && cur == "Hello there."
	}, 2*time.Second, 2*time.Millisecond)
	assert.Equal(t, playback.StatusPlaying, a.State().Status)
}

func TestContainerNotifier(t *testing.T) {
	rec := &notify.Recorder{}
	injector := NewContainer(testConfig(t, store.BackendMemory), log.New(io.Discard), rec)
	t.Cleanup(func() { _ = injector.Shutdown() })
	do.OverrideValue[speech.Engine](injector, mock.New())

	c := do.MustInvoke[*ControllerHandle](injector)
	err := c.Load(context.Background(), "missing", 0)
	require.Error(t, err)
	assert.Len(t, rec.Messages(), 1)
}

func TestShutdownClosesStore(t *testing.T) {
	cfg := testConfig(t, store.BackendSQLite)
	injector := NewContainer(cfg, log.New(io.Discard), nil)
	do.OverrideValue[speech.Engine](injector, mock.New())

	c := do.MustInvoke[*ControllerHandle](injector)
	s := do.MustInvoke[*StoreHandle](injector)
	require.NoError(t, s.SetItem(context.Background(), "k", "v"))

	report := injector.Shutdown()
	assert.True(t, report.Succeed, report.Error())

	<-c.Done()
	_, err := s.GetItem(context.Background(), "k")
	assert.Error(t, err)
}
