// Package config turns viper settings and the process environment into the
// typed configuration the rest of readaloud is built from.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	homedir "github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/readaloud/internal/playback"
	"github.com/dgnsrekt/readaloud/internal/speech/engines"
	"github.com/dgnsrekt/readaloud/internal/speech/piper"
	"github.com/dgnsrekt/readaloud/internal/store"
)

// AppName scopes config, data and cache directories.
const AppName = "readaloud"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Env is read straight from the process environment. Set values win over
// the config file.
type Env struct {
	Platform string `env:"READALOUD_PLATFORM"`
	DataDir  string `env:"READALOUD_DATA_DIR"`
	Debug    bool   `env:"READALOUD_DEBUG"`
	LogFile  string `env:"READALOUD_LOGFILE"`

	ConfigHome    string `env:"READALOUD_CONFIG_HOME"`
	XDGConfigHome string `env:"XDG_CONFIG_HOME"`
}

// Config is the full application configuration.
type Config struct {
	Store    StoreConfig
	Speech   SpeechConfig
	Playback PlaybackConfig
	Debug    bool
	LogFile  string
}

// StoreConfig selects the key-value backend.
type StoreConfig struct {
	Backend store.Backend
	Dir     string
}

// SpeechConfig selects and tunes the speech engine.
type SpeechConfig struct {
	Engine       engines.Type
	Language     string
	Voice        string
	Rate         float64
	Pitch        float64
	EspeakBinary string
	Piper        piper.Config
}

// PlaybackConfig holds controller timings and behaviour.
type PlaybackConfig struct {
	Platform      playback.Platform
	Chain         bool
	StripMarkdown bool
	Delays        playback.Delays
	Monitor       playback.MonitorConfig
}

// SetDefaults registers default values for every key on v.
func SetDefaults(v *viper.Viper) {
	d := playback.DefaultConfig()

	v.SetDefault("store.backend", string(store.BackendBadger))
	v.SetDefault("store.dir", "")

	v.SetDefault("speech.engine", string(engines.Auto))
	v.SetDefault("speech.language", "en")
	v.SetDefault("speech.voice", "")
	v.SetDefault("speech.rate", 1.0)
	v.SetDefault("speech.pitch", 1.0)
	v.SetDefault("speech.espeak.binary", "")
	v.SetDefault("speech.piper.binary", "piper")
	v.SetDefault("speech.piper.model", "")
	v.SetDefault("speech.piper.config", "")
	v.SetDefault("speech.piper.speaker", 0)
	v.SetDefault("speech.piper.sample_rate", piper.DefaultSampleRate)

	v.SetDefault("playback.platform", "auto")
	v.SetDefault("playback.chain", d.Chain)
	v.SetDefault("playback.strip_markdown", true)
	v.SetDefault("playback.delays.advance", d.Delays.Advance)
	v.SetDefault("playback.delays.scrub", d.Delays.Scrub)
	v.SetDefault("playback.delays.android_restart", d.Delays.AndroidRestart)
	v.SetDefault("playback.delays.ios_restart", d.Delays.IOSRestart)
	v.SetDefault("playback.monitor.interval", d.Monitor.Interval)
	v.SetDefault("playback.monitor.grace", d.Monitor.Grace)
	v.SetDefault("playback.monitor.max_recoveries", d.Monitor.MaxRecoveries)
	v.SetDefault("playback.monitor.recovery_window", d.Monitor.Window)
}

// Load reads the configuration from v and the environment.
func Load(v *viper.Viper) (*Config, error) {
	e, err := env.ParseAs[Env]()
	if err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}
	return FromViper(v, e)
}

// FromViper builds a validated Config from v, letting e override it.
func FromViper(v *viper.Viper, e Env) (*Config, error) {
	cfg := &Config{
		Debug:   e.Debug || v.GetBool("debug"),
		LogFile: e.LogFile,
	}

	cfg.Store.Backend = store.Backend(strings.ToLower(v.GetString("store.backend")))
	cfg.Store.Dir = v.GetString("store.dir")
	if e.DataDir != "" {
		cfg.Store.Dir = e.DataDir
	}
	if cfg.Store.Dir == "" && cfg.Store.Backend != store.BackendMemory {
		dir, err := DefaultDataDir()
		if err != nil {
			return nil, err
		}
		cfg.Store.Dir = dir
	}
	cfg.Store.Dir = ExpandPath(cfg.Store.Dir)

	engine, err := engines.ParseType(v.GetString("speech.engine"))
	if err != nil {
		return nil, fmt.Errorf("%w: speech.engine: %w", ErrInvalid, err)
	}
	cfg.Speech = SpeechConfig{
		Engine:       engine,
		Language:     v.GetString("speech.language"),
		Voice:        v.GetString("speech.voice"),
		Rate:         v.GetFloat64("speech.rate"),
		Pitch:        v.GetFloat64("speech.pitch"),
		EspeakBinary: v.GetString("speech.espeak.binary"),
		Piper: piper.Config{
			Binary:      v.GetString("speech.piper.binary"),
			Model:       ExpandPath(v.GetString("speech.piper.model")),
			ModelConfig: ExpandPath(v.GetString("speech.piper.config")),
			Speaker:     v.GetInt("speech.piper.speaker"),
			SampleRate:  v.GetInt("speech.piper.sample_rate"),
		},
	}

	platformName := v.GetString("playback.platform")
	if e.Platform != "" {
		platformName = e.Platform
	}
	platform, err := playback.ParsePlatform(platformName)
	if err != nil {
		return nil, fmt.Errorf("%w: playback.platform: %w", ErrInvalid, err)
	}
	cfg.Playback = PlaybackConfig{
		Platform:      platform,
		Chain:         v.GetBool("playback.chain"),
		StripMarkdown: v.GetBool("playback.strip_markdown"),
		Delays: playback.Delays{
			Advance:        v.GetDuration("playback.delays.advance"),
			Scrub:          v.GetDuration("playback.delays.scrub"),
			AndroidRestart: v.GetDuration("playback.delays.android_restart"),
			IOSRestart:     v.GetDuration("playback.delays.ios_restart"),
		},
		Monitor: playback.MonitorConfig{
			Interval:      v.GetDuration("playback.monitor.interval"),
			Grace:         v.GetDuration("playback.monitor.grace"),
			MaxRecoveries: v.GetInt("playback.monitor.max_recoveries"),
			Window:        v.GetDuration("playback.monitor.recovery_window"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would only fail later, at a worse time.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case store.BackendBadger, store.BackendSQLite, store.BackendMemory:
	default:
		return fmt.Errorf("%w: store.backend must be badger, sqlite or memory, got %q", ErrInvalid, c.Store.Backend)
	}

	if c.Speech.Rate < 0.1 || c.Speech.Rate > 3.0 {
		return fmt.Errorf("%w: speech.rate must be between 0.1 and 3.0, got %.2f", ErrInvalid, c.Speech.Rate)
	}
	if c.Speech.Pitch < 0 || c.Speech.Pitch > 2.0 {
		return fmt.Errorf("%w: speech.pitch must be between 0 and 2.0, got %.2f", ErrInvalid, c.Speech.Pitch)
	}
	if c.Speech.Engine == engines.Piper && c.Speech.Piper.Model == "" {
		return fmt.Errorf("%w: speech.piper.model is required for the piper engine", ErrInvalid)
	}

	if err := c.ControllerConfig().Validate(); err != nil {
		return fmt.Errorf("%w: playback: %w", ErrInvalid, err)
	}
	return nil
}

// ControllerConfig returns the playback controller configuration.
func (c *Config) ControllerConfig() playback.Config {
	return playback.Config{
		Platform: c.Playback.Platform,
		Delays:   c.Playback.Delays,
		Monitor:  c.Playback.Monitor,
		Voice: playback.Voice{
			Language: c.Speech.Language,
			Name:     c.Speech.Voice,
			Rate:     c.Speech.Rate,
			Pitch:    c.Speech.Pitch,
		},
		Chain:         c.Playback.Chain,
		StripMarkdown: c.Playback.StripMarkdown,
	}
}

// EngineConfig returns the engine factory configuration.
func (c *Config) EngineConfig() engines.Config {
	return engines.Config{
		Type:         c.Speech.Engine,
		EspeakBinary: c.Speech.EspeakBinary,
		Piper:        c.Speech.Piper,
	}
}

// DefaultDataDir is where chapters and settings live unless configured.
func DefaultDataDir() (string, error) {
	dirs, err := gap.NewScope(gap.User, AppName).DataDirs()
	if err != nil {
		return "", fmt.Errorf("could not find data directory: %w", err)
	}
	if len(dirs) == 0 {
		return "", errors.New("could not find data directory")
	}
	return dirs[0], nil
}

// ConfigDirs lists the directories searched for readaloud.yml, most
// specific first.
func ConfigDirs(e Env) ([]string, error) {
	dirs, err := gap.NewScope(gap.User, AppName).ConfigDirs()
	if err != nil {
		return nil, fmt.Errorf("could not find configuration directory: %w", err)
	}

	if e.XDGConfigHome != "" {
		dirs = append([]string{filepath.Join(e.XDGConfigHome, AppName)}, dirs...)
	}
	if e.ConfigHome != "" {
		dirs = append([]string{e.ConfigHome}, dirs...)
	}
	return dirs, nil
}

// ExpandPath expands ~ and environment variables in path.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		expanded = path
	}
	return filepath.Clean(os.ExpandEnv(expanded))
}
