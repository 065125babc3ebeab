package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/readaloud/internal/store"
)

// brokenKV fails every call.
type brokenKV struct{}

var errDisk = errors.New("disk on fire")

func (brokenKV) GetItem(context.Context, string) (string, error) { return "", errDisk }
func (brokenKV) SetItem(context.Context, string, string) error   { return errDisk }
func (brokenKV) RemoveItem(context.Context, string) error        { return errDisk }

func setupLibrary(t *testing.T, names ...string) (*Library, *store.Memory) {
	t.Helper()

	kv := store.NewMemory()
	lib := New(kv, nil)
	for _, n := range names {
		require.NoError(t, lib.Put(context.Background(), Chapter{Name: n, Content: "Text of " + n + "."}))
	}
	return lib, kv
}

func TestNext(t *testing.T) {
	ctx := context.Background()
	lib, _ := setupLibrary(t, "c1", "c2", "c3")

	tests := []struct {
		current string
		want    string
		ok      bool
	}{
		{"c1", "c2", true},
		{"c2", "c3", true},
		{"c3", "", false},
		{"missing", "", false},
	}

	for _, tt := range tests {
		got, ok := lib.Next(ctx, tt.current)
		assert.Equal(t, tt.want, got, "Next(%q)", tt.current)
		assert.Equal(t, tt.ok, ok, "Next(%q)", tt.current)
	}
}

func TestNextMalformedList(t *testing.T) {
	ctx := context.Background()
	lib, kv := setupLibrary(t, "c1", "c2")
	require.NoError(t, kv.SetItem(ctx, ListKey, "[{name: broken"))

	got, ok := lib.Next(ctx, "c1")
	assert.False(t, ok)
	assert.Empty(t, got)
}

func TestNextMissingList(t *testing.T) {
	lib := New(store.NewMemory(), nil)

	_, ok := lib.Next(context.Background(), "c1")
	assert.False(t, ok)
}

func TestNextStorageError(t *testing.T) {
	lib := New(brokenKV{}, nil)

	_, ok := lib.Next(context.Background(), "c1")
	assert.False(t, ok)
}

func TestChapter(t *testing.T) {
	ctx := context.Background()
	lib, kv := setupLibrary(t, "c1")

	ch, err := lib.Chapter(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Text of c1.", ch.Content)
	assert.EqualValues(t, len("Text of c1."), ch.Size)

	_, err = lib.Chapter(ctx, "nope")
	assert.ErrorIs(t, err, ErrChapterNotFound)

	require.NoError(t, kv.SetItem(ctx, ChapterKey("bad"), "not json"))
	_, err = lib.Chapter(ctx, "bad")
	assert.ErrorIs(t, err, ErrMalformedChapter)

	require.NoError(t, kv.SetItem(ctx, ChapterKey("empty"), `{"name":"empty","content":"   "}`))
	_, err = lib.Chapter(ctx, "empty")
	assert.ErrorIs(t, err, ErrNoContent)

	_, err = New(brokenKV{}, nil).Chapter(ctx, "c1")
	assert.ErrorIs(t, err, ErrChapterNotFound)
}

func TestPutAndRemove(t *testing.T) {
	ctx := context.Background()
	lib, _ := setupLibrary(t, "a", "b")

	// Re-putting keeps the position in the list.
	require.NoError(t, lib.Put(ctx, Chapter{Name: "a", Content: "Updated.", SHA: "abc"}))
	entries, err := lib.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Name)
	assert.Equal(t, "abc", entries[0].SHA)

	require.NoError(t, lib.Remove(ctx, "a"))
	entries, err = lib.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].Name)

	assert.Error(t, lib.Put(ctx, Chapter{Content: "nameless"}))
}

func TestFind(t *testing.T) {
	ctx := context.Background()
	lib, _ := setupLibrary(t, "01-intro", "02-the-middle", "03-ending")

	got, err := lib.Find(ctx, "middle")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "02-the-middle", got[0].Name)

	got, err = lib.Find(ctx, "03-ending")
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Name: "03-ending", Size: int64(len("Text of 03-ending.")), SHA: ""}}, got)
}

func TestBlobSHA(t *testing.T) {
	// git hash-object of an empty file.
	assert.Equal(t, "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391", BlobSHA(nil))
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "part2"), 0o755))
	writeFile(t, filepath.Join(dir, "01-start.md"), "# Start\n\nFirst.")
	writeFile(t, filepath.Join(dir, "02-next.txt"), "Second.")
	writeFile(t, filepath.Join(dir, "part2", "03-more.md"), "Third.")
	writeFile(t, filepath.Join(dir, "image.png"), "not a chapter")

	lib := New(store.NewMemory(), nil)
	res, err := lib.Import(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Imported)

	entries, err := lib.Entries(ctx)
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"01-start", "02-next", "part2/03-more"}, names)

	ch, err := lib.Chapter(ctx, "02-next")
	require.NoError(t, err)
	assert.Equal(t, "Second.", ch.Content)
	assert.Equal(t, BlobSHA([]byte("Second.")), ch.SHA)

	next, ok := lib.Next(ctx, "02-next")
	assert.True(t, ok)
	assert.Equal(t, "part2/03-more", next)
}

func TestWatcher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	lib := New(store.NewMemory(), nil)

	w, err := NewWatcher(lib, dir, 20*time.Millisecond)
	require.NoError(t, err)
	go func() { _ = w.Run(ctx) }()

	writeFile(t, filepath.Join(dir, "new.md"), "Fresh chapter.")

	require.Eventually(t, func() bool {
		ch, err := lib.Chapter(ctx, "new")
		return err == nil && ch.Content == "Fresh chapter."
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(dir, "new.md")))

	require.Eventually(t, func() bool {
		_, err := lib.Chapter(ctx, "new")
		return errors.Is(err, ErrChapterNotFound)
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatcherRescheduleKeepsNewestTimer(t *testing.T) {
	lib := New(store.NewMemory(), nil)
	w := &Watcher{
		lib:     lib,
		root:    t.TempDir(),
		settle:  time.Hour,
		pending: make(map[string]*time.Timer),
	}
	path := filepath.Join(w.root, "a.md")

	w.schedule(context.Background(), path)
	first := w.pending[path]
	w.schedule(context.Background(), path)
	second := w.pending[path]
	t.Cleanup(func() { first.Stop(); second.Stop() })
	require.NotSame(t, first, second)

	// The replaced timer firing late must not drop the newer one.
	assert.False(t, w.settled(path, first))
	assert.Same(t, second, w.pending[path])

	assert.True(t, w.settled(path, second))
	assert.Empty(t, w.pending)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
