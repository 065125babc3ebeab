package library

import (
	"context"
	"crypto/sha1" //nolint:gosec // git blob ids are sha1
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/muesli/gitcha"
)

// ChapterExtensions are the file patterns picked up by Import.
var ChapterExtensions = []string{"*.md", "*.mdown", "*.markdown", "*.txt"}

// ImportResult summarises an Import run.
type ImportResult struct {
	Imported int
	Skipped  int
}

// Import stores every chapter file below dir and sets the list order to the
// files' relative paths, sorted. Files ignored by git are skipped.
func (l *Library) Import(ctx context.Context, dir string) (ImportResult, error) {
	var res ImportResult

	abs, err := filepath.Abs(dir)
	if err != nil {
		return res, err
	}

	found, err := gitcha.FindFilesExcept(abs, ChapterExtensions, nil)
	if err != nil {
		return res, fmt.Errorf("scan %s: %w", dir, err)
	}

	var paths []string
	for r := range found {
		if r.Info != nil && r.Info.IsDir() {
			continue
		}
		paths = append(paths, r.Path)
	}
	sort.Strings(paths)

	entries := make([]Entry, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		ch, err := ReadChapterFile(abs, p)
		if err != nil {
			l.log.Warn("skipping chapter file", "path", p, "err", err)
			res.Skipped++
			continue
		}
		if err := l.putRecord(ctx, ch); err != nil {
			return res, err
		}
		entries = append(entries, Entry{Name: ch.Name, Size: ch.Size, SHA: ch.SHA})
		res.Imported++
	}

	if err := l.SetOrder(ctx, entries); err != nil {
		return res, err
	}
	l.log.Info("imported chapters", "dir", abs, "count", res.Imported, "skipped", res.Skipped)
	return res, nil
}

// ReadChapterFile reads the file at path into a Chapter named after its
// path relative to root, without extension.
func ReadChapterFile(root, path string) (Chapter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Chapter{}, err
	}

	return Chapter{
		Name:    ChapterName(root, path),
		Content: string(data),
		Size:    int64(len(data)),
		SHA:     BlobSHA(data),
	}, nil
}

// ChapterName derives a chapter name from a file path.
func ChapterName(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	rel = filepath.ToSlash(rel)
	return strings.TrimSuffix(rel, filepath.Ext(rel))
}

// BlobSHA returns the git blob id of data.
func BlobSHA(data []byte) string {
	h := sha1.New() //nolint:gosec
	fmt.Fprintf(h, "blob %d\x00", len(data))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func (l *Library) putRecord(ctx context.Context, ch Chapter) error {
	data, err := marshalChapter(ch)
	if err != nil {
		return err
	}
	if err := l.kv.SetItem(ctx, ChapterKey(ch.Name), data); err != nil {
		return fmt.Errorf("write chapter %s: %w", ch.Name, err)
	}
	return nil
}
