package playback

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Platform selects platform-specific timing.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformDesktop Platform = "desktop"
)

// DetectPlatform returns the platform for the running binary.
func DetectPlatform() Platform {
	switch runtime.GOOS {
	case "android":
		return PlatformAndroid
	case "ios":
		return PlatformIOS
	default:
		return PlatformDesktop
	}
}

// ParsePlatform normalises a platform name. "" and "auto" detect it.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return DetectPlatform(), nil
	case "android":
		return PlatformAndroid, nil
	case "ios":
		return PlatformIOS, nil
	case "desktop", "linux", "darwin", "windows":
		return PlatformDesktop, nil
	default:
		return "", fmt.Errorf("unknown platform %q", s)
	}
}

// Delays spaces out engine calls. Platform engines misbehave when a new
// utterance is requested from inside the callback of the previous one.
type Delays struct {
	// Advance separates one unit's completion from the next unit's start.
	Advance time.Duration
	// Scrub separates the stop caused by a progress change from the
	// restart at the new position.
	Scrub time.Duration
	// AndroidRestart and IOSRestart separate a recovery stop from the
	// restart on each platform.
	AndroidRestart time.Duration
	IOSRestart     time.Duration
}

// Restart returns the recovery restart delay for p. Desktop uses the iOS
// delay.
func (d Delays) Restart(p Platform) time.Duration {
	if p == PlatformAndroid {
		return d.AndroidRestart
	}
	return d.IOSRestart
}

// MonitorConfig tunes the recovery monitor.
type MonitorConfig struct {
	// Interval between engine checks. Zero disables the monitor.
	Interval time.Duration
	// Grace after an utterance starts before the engine is checked.
	Grace time.Duration
	// MaxRecoveries restarts are allowed per Window before giving up.
	MaxRecoveries int
	Window        time.Duration
}

// Voice is passed to the speech adapter with every unit.
type Voice struct {
	Language string
	Name     string
	Rate     float64
	Pitch    float64
}

// Config configures a Controller.
type Config struct {
	Platform Platform
	Delays   Delays
	Monitor  MonitorConfig
	Voice    Voice

	// Chain continues with the next chapter when one finishes.
	Chain bool
	// StripMarkdown speaks chapter content as plain text.
	StripMarkdown bool
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		Platform: DetectPlatform(),
		Delays: Delays{
			Advance:        50 * time.Millisecond,
			Scrub:          300 * time.Millisecond,
			AndroidRestart: 600 * time.Millisecond,
			IOSRestart:     150 * time.Millisecond,
		},
		Monitor: MonitorConfig{
			Interval:      2 * time.Second,
			Grace:         3 * time.Second,
			MaxRecoveries: 3,
			Window:        time.Minute,
		},
		Voice: Voice{Rate: 1, Pitch: 1},
		Chain: true,
	}
}

// Validate checks cfg for values the controller cannot work with.
func (c Config) Validate() error {
	switch c.Platform {
	case PlatformAndroid, PlatformIOS, PlatformDesktop:
	default:
		return fmt.Errorf("invalid platform %q", c.Platform)
	}

	for name, d := range map[string]time.Duration{
		"advance":         c.Delays.Advance,
		"scrub":           c.Delays.Scrub,
		"android_restart": c.Delays.AndroidRestart,
		"ios_restart":     c.Delays.IOSRestart,
		"monitor.grace":   c.Monitor.Grace,
	} {
		if d < 0 {
			return fmt.Errorf("delay %s must not be negative, got %s", name, d)
		}
	}

	if c.Monitor.Interval < 0 {
		return fmt.Errorf("monitor interval must not be negative, got %s", c.Monitor.Interval)
	}
	if c.Monitor.Interval > 0 && (c.Monitor.MaxRecoveries <= 0 || c.Monitor.Window <= 0) {
		return fmt.Errorf("monitor needs a positive recovery budget, got %d per %s", c.Monitor.MaxRecoveries, c.Monitor.Window)
	}
	if c.Voice.Rate < 0 {
		return fmt.Errorf("voice rate must not be negative, got %v", c.Voice.Rate)
	}
	return nil
}
