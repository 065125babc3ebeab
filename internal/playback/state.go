package playback

// Status is the coarse playback state.
type Status int

const (
	// StatusStopped means nothing is being spoken and nothing is scheduled.
	StatusStopped Status = iota
	// StatusPlaying means a unit is being spoken or the next one is about
	// to be.
	StatusPlaying
	// StatusPaused means playback was interrupted and resume will restart
	// the current unit.
	StatusPaused
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// StopSource records who asked playback to stop. It decides whether the
// position is reset and whether a stopped callback from the engine is
// terminal.
type StopSource int

const (
	StopSourceUnknown StopSource = iota
	StopSourceDoubleTap
	StopSourcePlayBarStop
	StopSourceManualProgressChange
	StopSourceCleanup
	StopSourceNavigation
	// StopSourceRecovery tags the stop issued before restarting a unit
	// the engine silently dropped.
	StopSourceRecovery
)

// String returns the string representation of the stop source.
func (s StopSource) String() string {
	switch s {
	case StopSourceUnknown:
		return "unknown"
	case StopSourceDoubleTap:
		return "doubleTap"
	case StopSourcePlayBarStop:
		return "playBarStop"
	case StopSourceManualProgressChange:
		return "manualProgressChange"
	case StopSourceCleanup:
		return "cleanup"
	case StopSourceNavigation:
		return "navigation"
	case StopSourceRecovery:
		return "recovery"
	default:
		return "invalid"
	}
}

// resetsPosition reports whether stopping for s rewinds to the start.
func (s StopSource) resetsPosition() bool {
	return s == StopSourceCleanup || s == StopSourceNavigation
}

// expectsRestart reports whether a stop for s is followed by a new
// utterance, so the engine's stopped callback is not terminal.
func (s StopSource) expectsRestart() bool {
	return s == StopSourceManualProgressChange || s == StopSourceRecovery
}

// State is a snapshot of the controller.
type State struct {
	Status         Status
	Chapter        string
	UnitIndex      int
	UnitCount      int
	Unit           string // text of the current unit
	Progress       float64
	ShouldAutoPlay bool
	StopSource     StopSource
	Pending        bool // a delayed speak is scheduled
	Session        string
}

// IsActive reports whether playback is playing or paused.
func (s State) IsActive() bool {
	return s.Status == StatusPlaying || s.Status == StatusPaused
}

// CanPause reports whether Pause would do anything.
func (s State) CanPause() bool {
	return s.Status == StatusPlaying
}

// CanResume reports whether Resume would do anything.
func (s State) CanResume() bool {
	return s.Status == StatusPaused
}
