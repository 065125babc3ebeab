package playback

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/readaloud/internal/library"
	"github.com/dgnsrekt/readaloud/internal/speech"
)

func TestStopSourceSemantics(t *testing.T) {
	tests := []struct {
		source  StopSource
		name    string
		resets  bool
		restart bool
	}{
		{StopSourceUnknown, "unknown", false, false},
		{StopSourceDoubleTap, "doubleTap", false, false},
		{StopSourcePlayBarStop, "playBarStop", false, false},
		{StopSourceManualProgressChange, "manualProgressChange", false, true},
		{StopSourceCleanup, "cleanup", true, false},
		{StopSourceNavigation, "navigation", true, false},
		{StopSourceRecovery, "recovery", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.source.String())
			assert.Equal(t, tt.resets, tt.source.resetsPosition())
			assert.Equal(t, tt.restart, tt.source.expectsRestart())
		})
	}
}

func TestStatePredicates(t *testing.T) {
	assert.False(t, State{Status: StatusStopped}.IsActive())
	assert.True(t, State{Status: StatusPlaying}.CanPause())
	assert.False(t, State{Status: StatusPlaying}.CanResume())
	assert.True(t, State{Status: StatusPaused}.CanResume())
	assert.True(t, State{Status: StatusPaused}.IsActive())
	assert.Equal(t, "unknown", Status(9).String())
}

func TestRestartDelay(t *testing.T) {
	d := DefaultConfig().Delays
	assert.Equal(t, 600*time.Millisecond, d.Restart(PlatformAndroid))
	assert.Equal(t, 150*time.Millisecond, d.Restart(PlatformIOS))
	assert.Equal(t, d.IOSRestart, d.Restart(PlatformDesktop))
}

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform(" Android ")
	require.NoError(t, err)
	assert.Equal(t, PlatformAndroid, p)

	p, err = ParsePlatform("auto")
	require.NoError(t, err)
	assert.Equal(t, DetectPlatform(), p)

	_, err = ParsePlatform("amiga")
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"platform", func(c *Config) { c.Platform = "" }},
		{"negative advance", func(c *Config) { c.Delays.Advance = -time.Millisecond }},
		{"negative grace", func(c *Config) { c.Monitor.Grace = -time.Second }},
		{"negative interval", func(c *Config) { c.Monitor.Interval = -time.Second }},
		{"no budget", func(c *Config) { c.Monitor.MaxRecoveries = 0 }},
		{"no window", func(c *Config) { c.Monitor.Window = 0 }},
		{"negative rate", func(c *Config) { c.Voice.Rate = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	// A disabled monitor needs no budget.
	cfg := DefaultConfig()
	cfg.Monitor = MonitorConfig{}
	assert.NoError(t, cfg.Validate())
}

func TestContentErrorCodes(t *testing.T) {
	tests := []struct {
		err  error
		code ContentCode
	}{
		{fmt.Errorf("%w: c1", library.ErrChapterNotFound), CodeChapterNotFound},
		{fmt.Errorf("%w: c1", library.ErrMalformedChapter), CodeMalformed},
		{fmt.Errorf("%w: c1", library.ErrNoContent), CodeNoContent},
		{fmt.Errorf("mock: %w", speech.ErrTooLong), CodeTooLong},
		{errors.New("something else"), CodeMalformed},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			ce := contentError("c1", tt.err)
			assert.Equal(t, tt.code, ce.Code)
			assert.ErrorIs(t, ce, tt.err)
			assert.Contains(t, ce.Message(), `"c1"`)
		})
	}

	// Already classified errors pass through untouched.
	orig := &ContentError{Code: CodeNoContent, Chapter: "c2"}
	assert.Same(t, orig, contentError("c1", fmt.Errorf("wrapped: %w", orig)))
}
