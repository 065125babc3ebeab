// Package engines builds the configured speech engine.
package engines

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/readaloud/internal/speech"
	"github.com/dgnsrekt/readaloud/internal/speech/espeak"
	"github.com/dgnsrekt/readaloud/internal/speech/mock"
	"github.com/dgnsrekt/readaloud/internal/speech/piper"
)

// Type names an engine implementation.
type Type string

const (
	Auto   Type = "auto"
	Espeak Type = "espeak"
	Piper  Type = "piper"
	Mock   Type = "mock"
)

// ErrInvalidEngine is returned for an unknown engine name.
var ErrInvalidEngine = errors.New("invalid speech engine")

// mockWordDuration paces the silent engine roughly like real speech.
const mockWordDuration = 250 * time.Millisecond

// Config selects and configures an engine.
type Config struct {
	Type         Type
	EspeakBinary string
	Piper        piper.Config
}

// ParseType normalises a user supplied engine name.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Auto, nil
	case "espeak", "espeak-ng":
		return Espeak, nil
	case "piper":
		return Piper, nil
	case "mock", "silent", "none":
		return Mock, nil
	default:
		return "", fmt.Errorf("%w: %s\n\nSupported engines:\n  - auto\n  - espeak (espeak-ng)\n  - piper (offline neural TTS)\n  - mock (silent)", ErrInvalidEngine, s)
	}
}

// New builds the engine described by cfg. Auto prefers piper when a
// model is configured and falls back to espeak.
func New(cfg Config, logger *log.Logger) (speech.Engine, error) {
	if logger == nil {
		logger = log.Default()
	}

	switch cfg.Type {
	case Espeak:
		return espeak.New(cfg.EspeakBinary, logger)
	case Piper:
		return piper.New(cfg.Piper, logger)
	case Mock:
		return mock.NewTimed(mockWordDuration), nil
	case Auto, "":
		if cfg.Piper.Model != "" {
			e, err := piper.New(cfg.Piper, logger)
			if err == nil {
				return e, nil
			}
			logger.Warn("piper unavailable, trying espeak", "err", err)
		}
		e, err := espeak.New(cfg.EspeakBinary, logger)
		if err != nil {
			return nil, fmt.Errorf("no speech engine available: %w\n\nInstall espeak-ng, or configure piper:\n  speech:\n    engine: piper\n    piper:\n      model: /path/to/voice.onnx", err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidEngine, cfg.Type)
	}
}
