// Package playback turns a chapter into a sequence of sentence-sized
// utterances and drives a speech engine through them. All state lives on
// a single event-loop goroutine; engine callbacks, timers, monitor ticks
// and public calls all arrive there as messages.
package playback

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/readaloud/internal/library"
	"github.com/dgnsrekt/readaloud/internal/notify"
	"github.com/dgnsrekt/readaloud/internal/speech"
	"github.com/dgnsrekt/readaloud/internal/store"
)

// Speaker is the speech adapter as seen by the controller.
type Speaker interface {
	Speak(text string, opts speech.Options) error
	Stop() error
	IsSpeaking() bool
	MaxInputLength() int
}

// Chapters loads chapter content and resolves the chain order.
type Chapters interface {
	Chapter(ctx context.Context, name string) (library.Chapter, error)
	Next(ctx context.Context, current string) (string, bool)
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Speaker  Speaker
	Chapters Chapters
	Store    store.KV
	Notifier notify.Notifier
	Logger   *log.Logger
}

// storeTimeout bounds chapter reads made from the loop.
const storeTimeout = 5 * time.Second

type command struct {
	fn    func()
	reply chan struct{}
}

// Controller is the playback state machine. Every exported method is safe
// for concurrent use.
type Controller struct {
	cfg      Config
	speaker  Speaker
	chapters Chapters
	notifier notify.Notifier
	writer   *progressWriter
	log      *log.Logger
	session  string
	now      func() time.Time

	cmds   chan command
	events chan event
	timers chan uint64
	done   chan struct{}

	started  atomic.Bool
	stopOnce sync.Once
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	snapMu    sync.RWMutex
	snap      State
	listeners []func(State)

	// Owned by the loop goroutine.
	ctx          context.Context
	st           State
	units        []string
	utterance    uint64
	speaking     bool
	speakStarted time.Time
	pending      *time.Timer
	pendingGen   uint64
	pendingAt    float64
	recovering   bool
	limiter      *rate.Limiter
	ticker       *time.Ticker
	tickC        <-chan time.Time
}

// New creates a controller. Call Start before using it.
func New(deps Deps, cfg Config) (*Controller, error) {
	if deps.Speaker == nil || deps.Chapters == nil || deps.Store == nil {
		return nil, fmt.Errorf("playback: speaker, chapters and store are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("playback: %w", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.Log{Logger: logger}
	}

	id, err := gonanoid.New(10)
	if err != nil {
		return nil, fmt.Errorf("playback: session id: %w", err)
	}
	session := "ses_" + id
	logger = logger.WithPrefix("playback").With("session", session)

	c := &Controller{
		cfg:      cfg,
		speaker:  deps.Speaker,
		chapters: deps.Chapters,
		notifier: notifier,
		writer:   newProgressWriter(deps.Store, logger),
		log:      logger,
		session:  session,
		now:      time.Now,
		cmds:     make(chan command),
		events:   make(chan event, 64),
		timers:   make(chan uint64, 4),
		done:     make(chan struct{}),
	}
	if cfg.Monitor.Interval > 0 {
		c.limiter = rate.NewLimiter(rate.Every(cfg.Monitor.Window/time.Duration(cfg.Monitor.MaxRecoveries)), cfg.Monitor.MaxRecoveries)
	}
	c.st.Session = session
	c.snap = c.st
	return c, nil
}

// Start launches the event loop. It stops when ctx is cancelled or
// Shutdown is called.
func (c *Controller) Start(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.ctx = ctx

	c.writer.start()
	c.wg.Add(1)
	go c.run(ctx)

	c.log.Debug("controller started", "platform", c.cfg.Platform)
}

// Shutdown stops playback and the loop and flushes pending progress.
func (c *Controller) Shutdown() error {
	c.stopOnce.Do(func() {
		if c.started.CompareAndSwap(false, true) {
			// Never started: no loop will close done.
			close(c.done)
			c.writer.close()
			return
		}
		if c.cancel != nil {
			c.cancel()
		}
		c.wg.Wait()
		c.writer.close()
	})
	return nil
}

// Done is closed when the loop has exited.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Session identifies this controller in logs.
func (c *Controller) Session() string {
	return c.session
}

// State returns the latest published snapshot.
func (c *Controller) State() State {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()

	return c.snap
}

// OnChange registers fn to receive every new snapshot. fn runs on the loop
// goroutine: it must return quickly and must not call the controller.
func (c *Controller) OnChange(fn func(State)) {
	c.snapMu.Lock()
	c.listeners = append(c.listeners, fn)
	c.snapMu.Unlock()
}

// Load opens chapter at progress. Playback in progress stops first. When
// ShouldAutoPlay is set the chapter starts speaking straight away. Content
// problems are shown as a toast and returned as *ContentError.
func (c *Controller) Load(ctx context.Context, chapter string, progress float64) error {
	var err error
	if callErr := c.call(func() { err = c.load(ctx, chapter, progress) }); callErr != nil {
		return callErr
	}
	return err
}

// Speak starts speaking at the current progress.
func (c *Controller) Speak() error {
	return c.call(func() { c.speakAt(c.st.Progress) })
}

// SpeakAt starts speaking at progress.
func (c *Controller) SpeakAt(progress float64) error {
	return c.call(func() { c.speakAt(progress) })
}

// Stop halts playback on behalf of source.
func (c *Controller) Stop(source StopSource) error {
	return c.call(func() { c.stop(source) })
}

// Pause interrupts playback. It does nothing unless playing.
func (c *Controller) Pause() error {
	return c.call(c.pause)
}

// Resume restarts the current unit. It does nothing unless paused.
func (c *Controller) Resume() error {
	return c.call(c.resume)
}

// Toggle pauses when playing, resumes when paused and speaks when stopped.
func (c *Controller) Toggle() error {
	return c.call(func() {
		switch c.st.Status {
		case StatusPlaying:
			c.pause()
		case StatusPaused:
			c.resume()
		default:
			c.speakAt(c.st.Progress)
		}
	})
}

// SetProgress moves the reading position. While playing, speech restarts
// at the new position after the scrub delay.
func (c *Controller) SetProgress(progress float64) error {
	return c.call(func() { c.setProgress(progress) })
}

// SetShouldAutoPlay controls whether Load starts speaking.
func (c *Controller) SetShouldAutoPlay(v bool) error {
	return c.call(func() { c.st.ShouldAutoPlay = v })
}

// Cleanup stops playback and rewinds, for when the reader leaves.
func (c *Controller) Cleanup() error {
	return c.call(func() { c.stop(StopSourceCleanup) })
}

// call runs fn on the loop and waits for it.
func (c *Controller) call(fn func()) error {
	if !c.started.Load() {
		return ErrNotStarted
	}

	cmd := command{fn: fn, reply: make(chan struct{})}
	select {
	case c.cmds <- cmd:
	case <-c.done:
		return ErrClosed
	}

	select {
	case <-cmd.reply:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// post delivers an engine event to the loop without ever blocking the
// engine's goroutine.
func (c *Controller) post(ev event) {
	select {
	case c.events <- ev:
	default:
		go func() {
			select {
			case c.events <- ev:
			case <-c.done:
			}
		}()
	}
}

func (c *Controller) run(ctx context.Context) {
	defer c.wg.Done()
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			c.teardown()
			c.publish()
			return

		case cmd := <-c.cmds:
			c.safely(cmd.fn)
			c.publish()
			close(cmd.reply)

		case ev := <-c.events:
			c.safely(func() { c.handleEvent(ev) })
			c.publish()

		case gen := <-c.timers:
			c.safely(func() { c.handleTimer(gen) })
			c.publish()

		case <-c.tickC:
			c.safely(c.checkEngine)
			c.publish()
		}
	}
}

// safely runs fn and turns a panic into a stop.
func (c *Controller) safely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("recovered from panic in playback loop", "panic", r)
			c.halt()
		}
	}()
	fn()
}

func (c *Controller) teardown() {
	if c.speaking || c.st.Status != StatusStopped {
		c.stop(StopSourceCleanup)
	}
	c.cancelPending()
	c.disarmMonitor()
	c.log.Debug("controller stopped")
}

func (c *Controller) publish() {
	s := c.st

	c.snapMu.Lock()
	changed := s != c.snap
	c.snap = s
	listeners := c.listeners
	c.snapMu.Unlock()

	if !changed {
		return
	}
	for _, fn := range listeners {
		fn(s)
	}
}
