package playback

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/readaloud/internal/store"
)

const persistTimeout = 5 * time.Second

type position struct {
	chapter  string
	progress float64
}

// progressWriter saves the reading position off the loop goroutine. Only
// the latest position is kept; older unsaved ones are dropped.
type progressWriter struct {
	kv  store.KV
	log *log.Logger

	mu     sync.Mutex
	latest *position

	wake chan struct{}
	quit chan struct{}
	wg   sync.WaitGroup
	once sync.Once
	open bool
}

func newProgressWriter(kv store.KV, logger *log.Logger) *progressWriter {
	return &progressWriter{
		kv:   kv,
		log:  logger,
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
	}
}

func (w *progressWriter) start() {
	w.mu.Lock()
	w.open = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run()
}

func (w *progressWriter) save(chapter string, progress float64) {
	w.mu.Lock()
	w.latest = &position{chapter: chapter, progress: progress}
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *progressWriter) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.wake:
			w.flush()
		case <-w.quit:
			w.flush()
			return
		}
	}
}

func (w *progressWriter) flush() {
	w.mu.Lock()
	pos := w.latest
	w.latest = nil
	w.mu.Unlock()

	if pos == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := store.UpdatePosition(ctx, w.kv, pos.chapter, pos.progress); err != nil {
		w.log.Warn("failed to save progress", "chapter", pos.chapter, "err", err)
	}
}

// close writes any pending position and stops the writer.
func (w *progressWriter) close() {
	w.once.Do(func() {
		w.mu.Lock()
		open := w.open
		w.mu.Unlock()

		if !open {
			w.flush()
			return
		}
		close(w.quit)
		w.wg.Wait()
	})
}
