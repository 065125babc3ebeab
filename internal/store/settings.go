package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// SettingsKey is where the settings record is stored.
const SettingsKey = "settings"

// DefaultFontSize is used when no settings have been saved yet.
const DefaultFontSize = 16

// Settings is the persisted reading position plus display preferences the
// playback engine carries through untouched.
type Settings struct {
	Current  string  `json:"current"`
	Progress float64 `json:"progress"`
	FontSize int     `json:"fontSize"`
}

// DefaultSettings returns the settings used before anything is saved.
func DefaultSettings() Settings {
	return Settings{FontSize: DefaultFontSize}
}

// LoadSettings reads the settings record. A missing record yields defaults
// and no error. A malformed record yields defaults and an error.
func LoadSettings(ctx context.Context, kv KV) (Settings, error) {
	raw, err := kv.GetItem(ctx, SettingsKey)
	if errors.Is(err, ErrNotFound) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return DefaultSettings(), fmt.Errorf("load settings: %w", err)
	}

	s := DefaultSettings()
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return DefaultSettings(), fmt.Errorf("parse settings: %w", err)
	}
	return s, nil
}

// SaveSettings writes the settings record.
func SaveSettings(ctx context.Context, kv KV, s Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	return kv.SetItem(ctx, SettingsKey, string(data))
}

// UpdatePosition loads the settings, replaces the reading position and
// saves them again, keeping every other field.
func UpdatePosition(ctx context.Context, kv KV, current string, progress float64) error {
	s, err := LoadSettings(ctx, kv)
	if err != nil && !isParseError(err) {
		return err
	}
	s.Current = current
	s.Progress = progress
	return SaveSettings(ctx, kv, s)
}

func isParseError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
