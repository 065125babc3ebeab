package playback

import "time"

// Platform engines can lose an utterance without reporting anything, most
// often when the device sleeps. The monitor polls the engine while a unit
// should be audible and restarts the unit when it is not.

func (c *Controller) armMonitor() {
	if c.cfg.Monitor.Interval <= 0 || c.ticker != nil {
		return
	}
	c.ticker = time.NewTicker(c.cfg.Monitor.Interval)
	c.tickC = c.ticker.C
}

func (c *Controller) disarmMonitor() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
		c.tickC = nil
	}
	c.recovering = false
}

func (c *Controller) checkEngine() {
	if c.st.Status != StatusPlaying {
		c.disarmMonitor()
		return
	}
	if c.pending != nil || !c.speaking {
		return
	}
	if c.now().Sub(c.speakStarted) < c.cfg.Monitor.Grace {
		return
	}

	if c.speaker.IsSpeaking() {
		if c.recovering {
			c.log.Info("speech engine recovered", "unit", c.st.UnitIndex)
			c.recovering = false
		}
		return
	}

	if !c.limiter.Allow() {
		c.log.Error("speech engine keeps going silent, stopping", "chapter", c.st.Chapter, "unit", c.st.UnitIndex)
		c.notifier.ShowErrorToast("Playback stopped: the speech engine is not responding.")
		c.stop(StopSourceRecovery)
		return
	}

	c.log.Warn("speech engine went silent, restarting unit", "chapter", c.st.Chapter, "unit", c.st.UnitIndex)
	c.recovering = true
	c.st.StopSource = StopSourceRecovery
	c.speaking = false
	if err := c.speaker.Stop(); err != nil {
		c.log.Warn("failed to stop speech engine", "err", err)
	}
	c.schedule(c.cfg.Delays.Restart(c.cfg.Platform), c.st.Progress)
}
