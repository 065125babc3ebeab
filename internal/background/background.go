// Package background is the headless entry point a scheduler invokes to
// start or stop reading without any UI. It rebuilds what to play from the
// payload and the persisted settings, never from memory.
package background

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/readaloud/internal/playback"
	"github.com/dgnsrekt/readaloud/internal/progress"
	"github.com/dgnsrekt/readaloud/internal/store"
)

// TaskID is the identifier the playback task is registered under.
const TaskID = "readaloud-tts"

var (
	// ErrUnknownTask is returned by Dispatch for an unregistered id.
	ErrUnknownTask = errors.New("background: unknown task")
	// ErrInvalidPayload is returned when a payload cannot be decoded.
	ErrInvalidPayload = errors.New("background: invalid payload")
	// ErrNothingToPlay is returned when neither the payload nor the
	// settings name a chapter.
	ErrNothingToPlay = errors.New("background: no chapter to play")
)

// Payload is what the scheduler hands to the task. The zero value means
// stop.
type Payload struct {
	Current  string   `json:"current,omitempty"`
	Progress *float64 `json:"progress,omitempty"`
}

// IsStop reports whether p asks playback to stop.
func (p Payload) IsStop() bool {
	return strings.TrimSpace(p.Current) == "" && p.Progress == nil
}

// Player is the part of the playback controller the task drives.
type Player interface {
	State() playback.State
	Load(ctx context.Context, chapter string, progress float64) error
	Stop(source playback.StopSource) error
	SetShouldAutoPlay(v bool) error
	SetProgress(progress float64) error
}

// Task starts and stops playback on behalf of the scheduler.
type Task struct {
	player Player
	kv     store.KV
	log    *log.Logger
}

// NewTask creates the playback task.
func NewTask(player Player, kv store.KV, logger *log.Logger) *Task {
	if logger == nil {
		logger = log.Default()
	}
	return &Task{
		player: player,
		kv:     kv,
		log:    logger.WithPrefix("background"),
	}
}

// Run applies p. It is safe to call repeatedly: asking for the chapter
// that is already playing changes nothing unless p also names a different
// position, which moves playback there.
func (t *Task) Run(ctx context.Context, p Payload) error {
	if p.IsStop() {
		t.log.Info("stop requested")
		return t.player.Stop(playback.StopSourceUnknown)
	}

	chapter, at, err := t.Resolve(ctx, p)
	if err != nil {
		return err
	}

	st := t.player.State()
	if st.Status == playback.StatusPlaying && st.Chapter == chapter {
		if p.Progress != nil && at != st.Progress {
			t.log.Info("moving playback", "chapter", chapter, "from", st.Progress, "to", at)
			return t.player.SetProgress(at)
		}
		t.log.Debug("already playing", "chapter", chapter, "unit", st.UnitIndex)
		return nil
	}

	t.log.Info("starting playback", "chapter", chapter, "progress", at)
	if err := t.player.SetShouldAutoPlay(true); err != nil {
		return err
	}
	return t.player.Load(ctx, chapter, at)
}

// Resolve fills in whatever the payload leaves out from the settings. The
// play bar uses it to pick where to open.
func (t *Task) Resolve(ctx context.Context, p Payload) (string, float64, error) {
	settings, err := store.LoadSettings(ctx, t.kv)
	if err != nil {
		t.log.Warn("failed to read settings", "err", err)
	}

	chapter := strings.TrimSpace(p.Current)
	if chapter == "" {
		chapter = settings.Current
	}
	if chapter == "" {
		return "", 0, ErrNothingToPlay
	}

	switch {
	case p.Progress != nil:
		return chapter, progress.Clamp(*p.Progress), nil
	case chapter == settings.Current:
		return chapter, progress.Clamp(settings.Progress), nil
	default:
		return chapter, 0, nil
	}
}

// Handler runs one kind of background task.
type Handler func(ctx context.Context, p Payload) error

// Registry maps task ids to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds h under id, replacing any earlier handler.
func (r *Registry) Register(id string, h Handler) {
	r.mu.Lock()
	r.handlers[id] = h
	r.mu.Unlock()
}

// IDs lists the registered task ids.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dispatch decodes raw and runs the task registered under id. Empty or
// null raw is the stop payload.
func (r *Registry) Dispatch(ctx context.Context, id string, raw []byte) error {
	r.mu.RLock()
	h, ok := r.handlers[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}

	p, err := DecodePayload(raw)
	if err != nil {
		return err
	}
	return h(ctx, p)
}

// DecodePayload parses a JSON payload.
func DecodePayload(raw []byte) (Payload, error) {
	var p Payload
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return p, nil
	}
	if err := json.Unmarshal([]byte(trimmed), &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return p, nil
}
