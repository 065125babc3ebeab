package playback

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/dgnsrekt/readaloud/internal/progress"
	"github.com/dgnsrekt/readaloud/internal/segment"
	"github.com/dgnsrekt/readaloud/internal/speech"
)

type eventKind int

const (
	eventDone eventKind = iota
	eventError
	eventStopped
)

func (k eventKind) String() string {
	switch k {
	case eventDone:
		return "done"
	case eventError:
		return "error"
	default:
		return "stopped"
	}
}

// event is a speech outcome tagged with the utterance it belongs to.
type event struct {
	kind      eventKind
	utterance uint64
	err       error
}

func (c *Controller) load(ctx context.Context, chapter string, p float64) error {
	if ctx == nil {
		ctx = c.ctx
	}
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	ch, err := c.chapters.Chapter(ctx, chapter)
	if err != nil {
		ce := contentError(chapter, err)
		c.log.Warn("cannot open chapter", "chapter", chapter, "code", ce.Code, "err", err)
		c.notifier.ShowErrorToast(ce.Message())
		return ce
	}

	text := ch.Content
	if c.cfg.StripMarkdown {
		text = segment.PlainText(text)
	}
	units := segment.Split(text)

	if c.speaking || c.st.Status != StatusStopped || c.pending != nil {
		c.stop(StopSourceNavigation)
	}

	c.units = units
	c.st.Chapter = chapter
	c.st.UnitCount = len(units)
	c.setPosition(p)
	c.persist()

	c.log.Info("chapter loaded", "chapter", chapter, "units", len(units), "progress", c.st.Progress)

	if c.st.ShouldAutoPlay {
		c.speakAt(c.st.Progress)
	}
	return nil
}

// setPosition moves progress and the unit index together.
func (c *Controller) setPosition(p float64) {
	p = progress.Clamp(p)
	n := len(c.units)

	c.st.Progress = p
	c.st.UnitIndex = progress.UnitIndex(p, n)
	c.st.Unit = ""
	if n > 0 {
		c.st.Unit = c.units[c.st.UnitIndex]
	}
}

func (c *Controller) speakAt(p float64) {
	c.cancelPending()

	if len(c.units) == 0 {
		c.log.Debug("nothing to speak", "chapter", c.st.Chapter)
		c.halt()
		return
	}

	c.setPosition(p)
	text := c.st.Unit

	if max := c.speaker.MaxInputLength(); max > 0 && utf8.RuneCountInString(text) > max {
		c.reject(speech.ErrTooLong)
		return
	}

	c.utterance++
	id := c.utterance
	c.speaking = true
	c.speakStarted = c.now()
	c.st.Status = StatusPlaying
	c.st.StopSource = StopSourceUnknown
	c.armMonitor()

	err := c.speaker.Speak(text, speech.Options{
		Language: c.cfg.Voice.Language,
		Voice:    c.cfg.Voice.Name,
		Rate:     c.cfg.Voice.Rate,
		Pitch:    c.cfg.Voice.Pitch,
		OnDone: func() {
			c.post(event{kind: eventDone, utterance: id})
		},
		OnError: func(err error) {
			c.post(event{kind: eventError, utterance: id, err: err})
		},
		OnStopped: func() {
			c.post(event{kind: eventStopped, utterance: id})
		},
	})
	if err != nil {
		c.speaking = false
		if errors.Is(err, speech.ErrTooLong) {
			c.reject(err)
			return
		}
		c.log.Error("speech engine refused unit", "unit", c.st.UnitIndex, "err", err)
		c.halt()
		return
	}

	c.log.Debug("speaking", "chapter", c.st.Chapter, "unit", c.st.UnitIndex, "of", len(c.units), "utterance", id)
}

// reject stops playback because of a content problem and tells the reader.
func (c *Controller) reject(err error) {
	ce := contentError(c.st.Chapter, err)
	c.log.Warn("cannot speak unit", "chapter", c.st.Chapter, "unit", c.st.UnitIndex, "code", ce.Code)
	c.notifier.ShowErrorToast(ce.Message())
	c.halt()
}

func (c *Controller) handleEvent(ev event) {
	// Only the utterance we are actively waiting on may move the state.
	if ev.utterance != c.utterance || !c.speaking {
		c.log.Debug("ignoring stale speech event", "event", ev.kind, "utterance", ev.utterance, "current", c.utterance)
		return
	}

	switch ev.kind {
	case eventDone:
		c.speaking = false
		c.advance()

	case eventError:
		c.speaking = false
		c.log.Error("speech engine error", "chapter", c.st.Chapter, "unit", c.st.UnitIndex, "err", ev.err)
		c.halt()

	case eventStopped:
		c.speaking = false
		if c.st.StopSource.expectsRestart() {
			return
		}
		// Stopped by something outside this controller.
		c.log.Info("speech stopped by engine", "unit", c.st.UnitIndex)
		c.halt()
		c.persist()
	}
}

// advance moves past a finished unit.
func (c *Controller) advance() {
	next := c.st.UnitIndex + 1
	n := len(c.units)

	if next < n {
		c.setPosition(progress.FromUnitIndex(next, n))
		c.persist()
		c.schedule(c.cfg.Delays.Advance, c.st.Progress)
		return
	}

	c.st.Progress = 1
	c.persist()
	c.halt()
	c.log.Info("chapter complete", "chapter", c.st.Chapter)

	if c.cfg.Chain {
		c.chain()
	}
}

// chain continues with the chapter after the current one, if any.
func (c *Controller) chain() {
	ctx, cancel := context.WithTimeout(c.ctx, storeTimeout)
	defer cancel()

	current := c.st.Chapter
	next, ok := c.chapters.Next(ctx, current)
	if !ok {
		c.log.Info("no next chapter", "chapter", current)
		return
	}

	c.log.Info("continuing with next chapter", "from", current, "to", next)
	c.st.ShouldAutoPlay = true
	if err := c.load(ctx, next, 0); err != nil {
		c.log.Warn("chained chapter failed to load", "chapter", next, "err", err)
	}
}

func (c *Controller) stop(source StopSource) {
	wasActive := c.speaking || c.st.Status != StatusStopped

	c.cancelPending()
	c.st.StopSource = source
	if c.speaking || c.st.Status == StatusPlaying {
		c.speaking = false
		if err := c.speaker.Stop(); err != nil {
			c.log.Warn("failed to stop speech engine", "err", err)
		}
	}
	c.speaking = false
	c.st.Status = StatusStopped
	c.disarmMonitor()

	if source.resetsPosition() {
		c.setPosition(0)
	} else if wasActive {
		c.persist()
	}

	c.log.Debug("stopped", "source", source, "unit", c.st.UnitIndex)
}

func (c *Controller) pause() {
	if c.st.Status != StatusPlaying {
		return
	}

	c.cancelPending()
	if c.speaking {
		c.speaking = false
		if err := c.speaker.Stop(); err != nil {
			c.log.Warn("failed to stop speech engine", "err", err)
		}
	}
	c.st.Status = StatusPaused
	c.disarmMonitor()
	c.persist()

	c.log.Debug("paused", "unit", c.st.UnitIndex)
}

func (c *Controller) resume() {
	if c.st.Status != StatusPaused {
		return
	}
	c.speakAt(c.st.Progress)
}

func (c *Controller) setProgress(p float64) {
	c.setPosition(p)
	c.persist()

	if c.st.Status != StatusPlaying {
		return
	}

	c.st.StopSource = StopSourceManualProgressChange
	c.cancelPending()
	if c.speaking {
		c.speaking = false
		if err := c.speaker.Stop(); err != nil {
			c.log.Warn("failed to stop speech engine", "err", err)
		}
	}
	c.schedule(c.cfg.Delays.Scrub, c.st.Progress)
}

// halt moves to STOPPED without touching the engine.
func (c *Controller) halt() {
	c.cancelPending()
	c.speaking = false
	c.st.Status = StatusStopped
	c.disarmMonitor()
}

// schedule speaks at p after d, keeping the status PLAYING meanwhile.
func (c *Controller) schedule(d time.Duration, p float64) {
	c.cancelPending()

	c.pendingGen++
	gen := c.pendingGen
	c.pendingAt = p
	c.st.Pending = true

	c.pending = time.AfterFunc(d, func() {
		select {
		case c.timers <- gen:
		case <-c.done:
		}
	})
}

func (c *Controller) handleTimer(gen uint64) {
	if gen != c.pendingGen || c.pending == nil {
		return
	}
	c.pending = nil
	c.st.Pending = false

	if c.st.Status != StatusPlaying {
		return
	}
	c.speakAt(c.pendingAt)
}

func (c *Controller) cancelPending() {
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
	c.pendingGen++
	c.st.Pending = false
}

func (c *Controller) persist() {
	if c.st.Chapter == "" {
		return
	}
	c.writer.save(c.st.Chapter, c.st.Progress)
}
