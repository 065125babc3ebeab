// Package library reads and writes chapters and their ordered list in the
// key-value store, and resolves which chapter follows another.
package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/sahilm/fuzzy"

	"github.com/dgnsrekt/readaloud/internal/store"
)

const (
	// ChapterKeyPrefix prefixes the key of every chapter record.
	ChapterKeyPrefix = "chapter:"
	// ListKey holds the ordered chapter list.
	ListKey = "chapters"
)

var (
	ErrChapterNotFound  = errors.New("chapter not found")
	ErrMalformedChapter = errors.New("chapter record is malformed")
	ErrNoContent        = errors.New("chapter has no content")
	ErrMalformedList    = errors.New("chapter list is malformed")
)

// Chapter is a stored chapter record.
type Chapter struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Size    int64  `json:"size"`
	SHA     string `json:"sha"`
}

// Entry is one element of the ordered chapter list.
type Entry struct {
	Name string `json:"name"`
	Size int64  `json:"size,omitempty"`
	SHA  string `json:"sha,omitempty"`
}

// ChapterKey returns the store key for the chapter called name.
func ChapterKey(name string) string {
	return ChapterKeyPrefix + name
}

// Library gives typed access to chapters held in a KV store.
type Library struct {
	kv  store.KV
	log *log.Logger

	// Serialises read-modify-write cycles on the list.
	listMu sync.Mutex
}

// New creates a Library over kv.
func New(kv store.KV, logger *log.Logger) *Library {
	if logger == nil {
		logger = log.Default()
	}
	return &Library{
		kv:  kv,
		log: logger.WithPrefix("library"),
	}
}

// Chapter loads the chapter called name. The error wraps ErrChapterNotFound,
// ErrMalformedChapter or ErrNoContent for the content problems a reader
// should be told about.
func (l *Library) Chapter(ctx context.Context, name string) (Chapter, error) {
	raw, err := l.kv.GetItem(ctx, ChapterKey(name))
	if errors.Is(err, store.ErrNotFound) {
		return Chapter{}, fmt.Errorf("%w: %s", ErrChapterNotFound, name)
	}
	if err != nil {
		// Storage failures read as missing data.
		l.log.Warn("failed to read chapter", "chapter", name, "err", err)
		return Chapter{}, fmt.Errorf("%w: %s: %v", ErrChapterNotFound, name, err)
	}

	var ch Chapter
	if err := json.Unmarshal([]byte(raw), &ch); err != nil {
		return Chapter{}, fmt.Errorf("%w: %s: %v", ErrMalformedChapter, name, err)
	}
	if ch.Name == "" {
		ch.Name = name
	}
	if strings.TrimSpace(ch.Content) == "" {
		return ch, fmt.Errorf("%w: %s", ErrNoContent, name)
	}
	return ch, nil
}

// Entries returns the ordered chapter list. A missing list is empty.
func (l *Library) Entries(ctx context.Context) ([]Entry, error) {
	raw, err := l.kv.GetItem(ctx, ListKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read chapter list: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedList, err)
	}
	return entries, nil
}

// SetOrder replaces the chapter list.
func (l *Library) SetOrder(ctx context.Context, entries []Entry) error {
	l.listMu.Lock()
	defer l.listMu.Unlock()

	return l.writeList(ctx, entries)
}

// Put stores ch and appends it to the list if it is not there yet.
func (l *Library) Put(ctx context.Context, ch Chapter) error {
	if ch.Name == "" {
		return errors.New("chapter name is required")
	}
	if ch.Size == 0 {
		ch.Size = int64(len(ch.Content))
	}

	if err := l.putRecord(ctx, ch); err != nil {
		return err
	}

	l.listMu.Lock()
	defer l.listMu.Unlock()

	entries, err := l.Entries(ctx)
	if err != nil {
		l.log.Warn("rebuilding unreadable chapter list", "err", err)
		entries = nil
	}
	for i := range entries {
		if entries[i].Name == ch.Name {
			entries[i].Size = ch.Size
			entries[i].SHA = ch.SHA
			return l.writeList(ctx, entries)
		}
	}
	return l.writeList(ctx, append(entries, Entry{Name: ch.Name, Size: ch.Size, SHA: ch.SHA}))
}

// Remove deletes the chapter and drops it from the list.
func (l *Library) Remove(ctx context.Context, name string) error {
	if err := l.kv.RemoveItem(ctx, ChapterKey(name)); err != nil {
		return fmt.Errorf("remove chapter %s: %w", name, err)
	}

	l.listMu.Lock()
	defer l.listMu.Unlock()

	entries, err := l.Entries(ctx)
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.Name != name {
			kept = append(kept, e)
		}
	}
	return l.writeList(ctx, kept)
}

// Find returns list entries whose names fuzzily match query, best match
// first. An exact name match always wins.
func (l *Library) Find(ctx context.Context, query string) ([]Entry, error) {
	entries, err := l.Entries(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		if e.Name == query {
			return []Entry{e}, nil
		}
		names[i] = e.Name
	}

	matches := fuzzy.Find(query, names)
	out := make([]Entry, 0, len(matches))
	for _, m := range matches {
		out = append(out, entries[m.Index])
	}
	return out, nil
}

func marshalChapter(ch Chapter) (string, error) {
	data, err := json.Marshal(ch)
	if err != nil {
		return "", fmt.Errorf("marshal chapter: %w", err)
	}
	return string(data), nil
}

func (l *Library) writeList(ctx context.Context, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal chapter list: %w", err)
	}
	if err := l.kv.SetItem(ctx, ListKey, string(data)); err != nil {
		return fmt.Errorf("write chapter list: %w", err)
	}
	return nil
}
